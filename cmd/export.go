package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/geolocate-mvp/zipgallery/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export ARCHIVE",
		Short: "Write the image index of an archive to xlsx, parquet or yaml",
		Long: `Indexes the images inside an archive and writes one row per image
(ordinal, name, path, size and gallery page) to the output file.
The format is chosen from the output extension: .xlsx, .parquet or .yaml.`,
		Example: `  # Spreadsheet for the upload team
  zipgallery export batch.zip --output batch_index.xlsx

  # Columnar index
  zipgallery export batch.zip --output batch_index.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := export.ParseFormat(output); err != nil {
				return err
			}

			ix, _, err := openArchive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer ix.Close()

			rows := export.Rows(ix.Entries())
			if err := export.WriteFile(output, filepath.Base(args[0]), rows); err != nil {
				return fmt.Errorf("failed to export index: %w", err)
			}
			slog.Info("Archive index written", "archive", args[0], "output", output, "images", len(rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (.xlsx, .parquet or .yaml)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
