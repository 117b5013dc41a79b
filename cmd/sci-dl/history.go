package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soultoolman/sci-dl/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent downloads",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "maximum number of downloads to list")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return reportErr(err)
	}
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := history.Open(cfg.OutDir)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.Recent(limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no downloads recorded")
		return nil
	}
	for _, rec := range recs {
		fmt.Printf("%s  %-40s  %s (%d bytes)\n",
			rec.DownloadedAt.Format("2006-01-02 15:04"), rec.DOI, rec.Path, rec.Bytes)
	}
	return nil
}
