package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "zipgallery",
		Short: "Preview the images inside photo archives before bulk upload",
		Long: `zipgallery indexes the images inside a ZIP archive and serves them as a
paginated preview gallery, so a batch can be checked before it is uploaded.

Previews are decoded lazily, one page at a time, and released as soon as the
archive is replaced, cleared or uploaded.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if verbose {
				logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
				slog.SetDefault(logger)
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}
