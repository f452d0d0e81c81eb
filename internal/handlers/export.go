package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/geolocate-mvp/zipgallery/internal/export"
)

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	formatName := r.URL.Query().Get("format")
	if formatName == "" {
		formatName = string(export.FormatXLSX)
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	client := h.client(w, r)
	if client.Gallery.SessionID() == "" {
		h.writeError(w, "No archive loaded", http.StatusNotFound)
		return
	}
	entries := client.Gallery.Entries()

	archiveName := client.ArchiveName()
	base := strings.TrimSuffix(archiveName, filepath.Ext(archiveName))
	if base == "" {
		base = "archive"
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"_index."+string(format)))
	if err := export.Write(w, format, archiveName, export.Rows(entries)); err != nil {
		slog.Error("Failed to export archive index", "client_id", client.ID, "format", format, "err", err)
		return
	}
	slog.Info("Archive index exported", "client_id", client.ID, "format", format, "images", len(entries))
}
