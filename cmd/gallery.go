package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/geolocate-mvp/zipgallery/internal/archive"
	"github.com/geolocate-mvp/zipgallery/internal/config"
	"github.com/geolocate-mvp/zipgallery/internal/gallery"
	"github.com/geolocate-mvp/zipgallery/internal/models"
	"github.com/geolocate-mvp/zipgallery/internal/preview"
)

// openArchive loads the archive at path into a fresh gallery.
func openArchive(ctx context.Context, path string) (*gallery.Indexer, *models.View, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read archive: %w", err)
	}
	if int64(len(blob)) > cfg.MaxUploadBytes {
		return nil, nil, fmt.Errorf("archive %s is %d bytes, over the %d byte upload limit", filepath.Base(path), len(blob), cfg.MaxUploadBytes)
	}

	view := &models.View{}
	ix := gallery.New(
		archive.NewZipOpener(cfg.MaxEntryBytes),
		preview.NewStore("/previews/"),
		view,
		gallery.WithLocale(cfg.Locale),
		gallery.WithConcurrency(cfg.DecodeConcurrency),
	)
	if _, err := ix.LoadArchive(ctx, blob); err != nil {
		_ = ix.Close()
		return nil, nil, err
	}
	return ix, view, nil
}
