package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/geolocate-mvp/zipgallery/internal/gallery"
	"github.com/geolocate-mvp/zipgallery/internal/storage"
)

// multipart framing allowance on top of the archive itself
const formOverhead = 1024 * 1024

func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	client := h.client(w, r)

	switch r.Method {
	case "GET":
		h.writeJSON(w, h.pageView(client))
	case "POST":
		h.handleArchiveUpload(w, r, client)
	case "DELETE":
		// file picker cleared or selection cancelled
		client.Gallery.Reset()
		client.SetArchiveName("")
		h.writeJSON(w, h.pageView(client))
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleArchiveUpload(w http.ResponseWriter, r *http.Request, client *storage.Client) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverhead)

	file, header, err := r.FormFile("archive")
	if err != nil {
		file, header, err = r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.writeError(w, fmt.Sprintf("Archive too large (max %dMB)", h.maxUploadBytes/1024/1024), http.StatusRequestEntityTooLarge)
				return
			}
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	blob, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if int64(len(blob)) > h.maxUploadBytes {
		h.writeError(w, fmt.Sprintf("Archive too large (max %dMB)", h.maxUploadBytes/1024/1024), http.StatusRequestEntityTooLarge)
		return
	}

	slog.Info("Archive received", "client_id", client.ID, "filename", header.Filename, "bytes", len(blob))

	res, err := client.Gallery.LoadArchive(r.Context(), blob)
	if err != nil {
		view := h.pageView(client)
		view.Error = err.Error()
		if errors.Is(err, gallery.ErrArchiveFormat) {
			slog.Warn("Rejected archive", "client_id", client.ID, "filename", header.Filename, "err", err)
			h.writeJSONStatus(w, http.StatusBadRequest, view)
			return
		}
		slog.Error("Failed to load archive", "client_id", client.ID, "err", err)
		h.writeJSONStatus(w, http.StatusInternalServerError, view)
		return
	}
	if res.Superseded {
		h.writeJSONStatus(w, http.StatusConflict, h.pageView(client))
		return
	}
	client.SetArchiveName(header.Filename)

	h.renderPage(w, r, client, 1)
}

func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	page := 1
	if v := r.URL.Query().Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, "Invalid page number: "+v, http.StatusBadRequest)
			return
		}
		page = n
	}

	client := h.client(w, r)
	if last := gallery.PageCount(client.Gallery.Total()); page > last {
		page = last
	}
	h.renderPage(w, r, client, page)
}

func (h *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	client := h.client(w, r)
	if _, err := client.Gallery.NextPage(r.Context()); err != nil {
		h.writeError(w, "Failed to render page: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, h.pageView(client))
}

func (h *Handler) HandlePrev(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	client := h.client(w, r)
	if _, err := client.Gallery.PrevPage(r.Context()); err != nil {
		h.writeError(w, "Failed to render page: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, h.pageView(client))
}

// HandleUploaded is called once a bulk upload of the previewed archive has
// finished, whether it succeeded or not.
func (h *Handler) HandleUploaded(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	client := h.client(w, r)
	slog.Info("Bulk upload finished", "client_id", client.ID, "archive", client.ArchiveName(), "result", r.URL.Query().Get("result"))
	client.Gallery.Reset()
	client.SetArchiveName("")
	h.writeJSON(w, h.pageView(client))
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, client *storage.Client, page int) {
	if _, err := client.Gallery.RenderPage(r.Context(), page); err != nil {
		h.writeError(w, "Failed to render page: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, h.pageView(client))
}
