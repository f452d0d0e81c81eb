package handlers

import (
	"net/http"
	"strings"
)

// HandlePreview serves the bytes behind a preview handle URL.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, previewPrefix)

	// Prevent directory traversal attacks
	if id == "" || strings.Contains(id, "/") || strings.Contains(id, "..") {
		http.Error(w, "Invalid preview path", http.StatusBadRequest)
		return
	}

	h.previews.ServeHTTP(w, r)
}
