// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download composes the fetcher and resolver into the one-call
// DOI-to-PDF flow and persists completed downloads for the CLI.
package download

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/soultoolman/sci-dl/internal/fetch"
	"github.com/soultoolman/sci-dl/internal/resolve"
)

// Download is the outcome of one DOI resolution: the final PDF
// response plus the URLs visited on the way to it.
type Download struct {
	DOI       string
	LookupURL string
	PDFURL    string
	Result    *fetch.Result
}

// ByDOI resolves doi through the mirror and fetches the PDF: build the
// lookup URL, fetch the landing page, extract the PDF link, fetch the
// PDF. Progress lines go to w. Configuration, fetch, and parse
// failures propagate to the caller unchanged in kind; none are
// recovered here.
func ByDOI(ctx context.Context, client *fetch.Client, mirror *resolve.Mirror, doi string, w io.Writer) (*Download, error) {
	lookupURL, err := mirror.LookupURL(doi)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "resolving: %s\n", lookupURL)

	page, err := client.Fetch(ctx, lookupURL)
	if err != nil {
		return nil, err
	}

	pdfURL, err := mirror.ExtractPDFURL(string(page.Body()))
	if err != nil {
		return nil, fmt.Errorf("locating PDF for DOI %s: %w", doi, err)
	}
	fmt.Fprintf(w, "found PDF: %s\n", pdfURL)

	result, err := client.Fetch(ctx, pdfURL)
	if err != nil {
		return nil, err
	}
	if ct := result.ContentType(); ct != "" && !strings.HasPrefix(ct, "application/pdf") {
		return nil, &resolve.ParseError{
			Reason: fmt.Sprintf("%s served %s instead of a PDF", pdfURL, ct),
		}
	}

	return &Download{
		DOI:       doi,
		LookupURL: lookupURL,
		PDFURL:    pdfURL,
		Result:    result,
	}, nil
}

// Filename returns the PDF filename for a DOI, with path separators
// replaced so the DOI stays recognizable on disk.
func Filename(doi string) string {
	return strings.ReplaceAll(doi, "/", "_") + ".pdf"
}

// Save streams the PDF body to path in chunkSize pieces through a
// temporary file in the destination directory, renaming on success. A
// failed download never leaves a partial file behind.
func (d *Download) Save(path string, chunkSize int) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".sci-dl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	var writeErr error
	for chunk := range d.Result.Chunks(chunkSize) {
		if _, err := tmpFile.Write(chunk); err != nil {
			writeErr = err
			break
		}
	}
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Record describes one completed download.
type Record struct {
	DOI          string    `json:"doi" yaml:"doi"`
	LookupURL    string    `json:"lookup_url" yaml:"lookup_url"`
	PDFURL       string    `json:"pdf_url" yaml:"pdf_url"`
	Path         string    `json:"path" yaml:"path"`
	Bytes        int       `json:"bytes" yaml:"bytes"`
	SHA256       string    `json:"sha256" yaml:"sha256"`
	DownloadedAt time.Time `json:"downloaded_at" yaml:"downloaded_at"`
}

// Record builds the download record for a PDF saved at path.
func (d *Download) Record(path string) Record {
	sum := sha256.Sum256(d.Result.Body())
	return Record{
		DOI:          d.DOI,
		LookupURL:    d.LookupURL,
		PDFURL:       d.PDFURL,
		Path:         path,
		Bytes:        d.Result.ContentLength(),
		SHA256:       fmt.Sprintf("%x", sum),
		DownloadedAt: time.Now().UTC(),
	}
}

// WriteRecord writes a Record to a YAML sidecar file.
func WriteRecord(rec Record, path string) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRecord reads a Record from a YAML sidecar file.
func ReadRecord(path string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parsing record %s: %w", path, err)
	}
	return rec, nil
}
