package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soultoolman/sci-dl/internal/download"
	"github.com/soultoolman/sci-dl/internal/fetch"
	"github.com/soultoolman/sci-dl/internal/history"
	"github.com/soultoolman/sci-dl/internal/resolve"
	"github.com/soultoolman/sci-dl/pkg/types"
)

var dlCmd = &cobra.Command{
	Use:   "dl",
	Short: "Download a PDF by DOI",
	Long: `Dl resolves the DOI against the configured mirror, locates the PDF link
on the landing page, downloads the PDF, and saves it as <outdir>/<DOI>.pdf
with slashes replaced by underscores. A YAML record is written next to
the PDF and the download is appended to the history log.`,
	RunE: runDl,
}

func init() {
	dlCmd.Flags().StringP("doi", "d", "", "DOI, eg, 10.1002/9781118445112.stat06003")
	dlCmd.MarkFlagRequired("doi")
	dlCmd.Flags().String("out", "", "output file path (default: <outdir>/<DOI>.pdf)")
	dlCmd.Flags().Duration("timeout", 0, "HTTP timeout per attempt (default 60s)")
	dlCmd.Flags().Int("retries", -1, "number of failure retries (default 5)")

	rootCmd.AddCommand(dlCmd)
}

func runDl(cmd *cobra.Command, args []string) error {
	doi, _ := cmd.Flags().GetString("doi")

	cfg, err := loadConfig()
	if err != nil {
		return reportErr(err)
	}
	if t, _ := cmd.Flags().GetDuration("timeout"); t > 0 {
		cfg.Timeout = t
	}
	if r, _ := cmd.Flags().GetInt("retries"); r >= 0 {
		cfg.Retries = r
	}
	if err := cfg.Validate(); err != nil {
		return reportErr(err)
	}

	if !strings.Contains(doi, "/") {
		fmt.Fprintf(os.Stderr, "warning: %q does not look like a DOI\n", doi)
	}

	client, err := fetch.New(cfg)
	if err != nil {
		return reportErr(err)
	}
	mirror, err := resolve.NewMirror(cfg.BaseURL)
	if err != nil {
		return reportErr(err)
	}

	start := time.Now()
	d, err := download.ByDOI(cmd.Context(), client, mirror, doi, os.Stdout)
	if err != nil {
		return reportErr(err)
	}

	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		path = filepath.Join(cfg.OutDir, download.Filename(doi))
	}
	if err := d.Save(path, cfg.ChunkSize); err != nil {
		return reportErr(err)
	}

	rec := d.Record(path)
	if err := download.WriteRecord(rec, path+".yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write record: %v\n", err)
	}
	if store, err := history.Open(cfg.OutDir); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open download log: %v\n", err)
	} else {
		if err := store.Add(rec); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not log download: %v\n", err)
		}
		store.Close()
	}

	fmt.Printf("saved: %s (%d bytes in %s)\n", path, rec.Bytes, time.Since(start).Round(time.Millisecond))
	return nil
}

// reportErr prints a message tailored to the error kind and returns
// the error so the process exits non-zero.
func reportErr(err error) error {
	var cfgErr *types.ConfigError
	var fetchErr *fetch.FetchError
	var parseErr *resolve.ParseError
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
	case errors.As(err, &fetchErr):
		fmt.Fprintf(os.Stderr, "download failed after %d attempt(s): %v\n", fetchErr.Attempts, fetchErr.Err)
	case errors.As(err, &parseErr):
		fmt.Fprintf(os.Stderr, "could not locate the PDF: %v\nThe paper may be missing from the mirror, or the mirror may require a captcha.\n", err)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}
