package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ashikshafi08/memorybench-sub000/internal/store"
)

var (
	exportFormat string
	exportPath   string
)

var exportCmd = &cobra.Command{
	Use:   "export <runId>",
	Short: "Export a run's results as JSON or CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := args[0]
		if exportFormat != "json" && exportFormat != "csv" {
			return fmt.Errorf("unknown export format %q (expected json or csv)", exportFormat)
		}

		db, err := store.Open(filepath.Join(outputDir, "results.db"))
		if err != nil {
			return err
		}
		defer db.Close()

		path := exportPath
		if path == "" {
			path = runID + "." + exportFormat
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()

		switch exportFormat {
		case "json":
			err = db.ExportJSON(f, runID)
		case "csv":
			err = db.ExportCSV(f, runID)
		}
		if err != nil {
			return err
		}
		cmd.Printf("%s exported run %s to %s\n", statusOK("OK"), runID, path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format: json|csv")
	exportCmd.Flags().StringVar(&exportPath, "output", "", "output path (default {runId}.{format})")
}
