package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verustcode/materiality/internal/mapping"
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Work with the mapping tables",
}

var mappingsExportCmd = &cobra.Command{
	Use:   "export <workbook.xlsx>",
	Short: "Export the mapping workbook as versioned JSON",
	Long: `Convert the mapping workbook into the JSON document the server can load:
  {"exported_at": "YYYYMMDD_HHMM", "sheets": {"<sheet>": [{"<column>": value}]}}

Sheet and column names are normalized (lower case, spaces and hyphens become
underscores) and empty cells are written as null.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		path, rows, err := exportMappings(args[0], out)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("✓ %s (%d rows)\n", path, rows)
		return nil
	},
}

func init() {
	mappingsCmd.AddCommand(mappingsExportCmd)
	mappingsExportCmd.Flags().StringP("out", "o", "", "output file (default: <workbook>.json next to the workbook)")
}

// exportMappings validates the workbook and writes its JSON export.
// Returns the written path and the number of mapping rows.
func exportMappings(in, out string) (string, int, error) {
	wb, err := mapping.ReadWorkbook(in)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read workbook: %w", err)
	}
	tables, err := mapping.FromWorkbook(wb)
	if err != nil {
		return "", 0, fmt.Errorf("invalid workbook: %w", err)
	}

	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".json"
	}
	if filepath.Clean(out) == filepath.Clean(in) {
		return "", 0, fmt.Errorf("output %s would overwrite the input", out)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := mapping.WriteJSON(f, wb); err != nil {
		f.Close()
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		return "", 0, err
	}

	rows := len(tables.Exposures) + len(tables.Scenarios) + len(tables.OutputStructure)
	return out, rows, nil
}
