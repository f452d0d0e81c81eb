package cmd

import (
	"fmt"
	"io"

	"github.com/geolocate-mvp/zipgallery/internal/gallery"
	"github.com/geolocate-mvp/zipgallery/internal/models"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var page int
	var all bool

	cmd := &cobra.Command{
		Use:   "inspect ARCHIVE",
		Short: "Print the preview gallery of an archive",
		Long: `Loads an archive exactly as the preview server does and prints one page
of its gallery (or every page with --all). Entries that cannot be decoded
are left out of the page, as they are in the browser.`,
		Example: `  # Show the first page
  zipgallery inspect batch.zip

  # Show page 3
  zipgallery inspect batch.zip --page 3

  # Show every page
  zipgallery inspect batch.zip --all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, view, err := openArchive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer ix.Close()

			out := cmd.OutOrStdout()
			pages := gallery.PageCount(ix.Total())
			if !all && (page < 1 || page > pages) {
				return fmt.Errorf("--page must be between 1 and %d, got %d", pages, page)
			}
			first, last := page, page
			if all {
				first, last = 1, pages
			}
			for p := first; p <= last; p++ {
				if _, err := ix.RenderPage(cmd.Context(), p); err != nil {
					return err
				}
				printPage(out, view.Snapshot())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page to print")
	cmd.Flags().BoolVar(&all, "all", false, "Print every page")

	return cmd
}

func printPage(w io.Writer, view models.PageView) {
	fmt.Fprintf(w, "%s | %s\n", view.Status, view.PagerLabel)
	for _, card := range view.Cards {
		fmt.Fprintf(w, "  #%-4d %-40s %10s  %dx%d %s\n",
			card.Ordinal, card.Name, card.SizeLabel, card.Handle.Width, card.Handle.Height, card.Handle.ContentType)
	}
}
