package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/geolocate-mvp/zipgallery/internal/archive"
	"github.com/geolocate-mvp/zipgallery/internal/config"
	"github.com/geolocate-mvp/zipgallery/internal/gallery"
	"github.com/geolocate-mvp/zipgallery/internal/models"
	"github.com/geolocate-mvp/zipgallery/internal/preview"
	"github.com/geolocate-mvp/zipgallery/internal/storage"
	"github.com/google/uuid"
)

const (
	clientCookie  = "zipgallery_client"
	previewPrefix = "/previews/"
)

type Handler struct {
	clients        *storage.ClientStore
	previews       *preview.Store
	maxUploadBytes int64
}

func New(cfg *config.Config) *Handler {
	previews := preview.NewStore(previewPrefix)
	opener := archive.NewZipOpener(cfg.MaxEntryBytes)
	logger := slog.Default()

	clients := storage.New(func(view gallery.Renderer) *gallery.Indexer {
		return gallery.New(opener, previews, view,
			gallery.WithLogger(logger),
			gallery.WithLocale(cfg.Locale),
			gallery.WithConcurrency(cfg.DecodeConcurrency),
		)
	})

	return &Handler{
		clients:        clients,
		previews:       previews,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/archive", h.HandleArchive)
	mux.HandleFunc("/api/archive/page", h.HandlePage)
	mux.HandleFunc("/api/archive/next", h.HandleNext)
	mux.HandleFunc("/api/archive/prev", h.HandlePrev)
	mux.HandleFunc("/api/archive/uploaded", h.HandleUploaded)
	mux.HandleFunc("/api/archive/export", h.HandleExport)
	mux.HandleFunc(previewPrefix, h.HandlePreview)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// EvictIdle drops galleries of clients not seen for maxIdle.
func (h *Handler) EvictIdle(maxIdle time.Duration) int {
	return h.clients.EvictIdle(maxIdle)
}

// Close releases every client gallery.
func (h *Handler) Close() {
	h.clients.CloseAll()
	slog.Info("Galleries closed", "outstanding_previews", h.previews.Outstanding())
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Client helpers
func (h *Handler) client(w http.ResponseWriter, r *http.Request) *storage.Client {
	id := ""
	if c, err := r.Cookie(clientCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     clientCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return h.clients.GetOrCreate(id)
}

func (h *Handler) pageView(client *storage.Client) models.PageView {
	view := client.View.Snapshot()
	view.SessionID = client.Gallery.SessionID()
	view.Total = client.Gallery.Total()
	view.Page = client.Gallery.CurrentPage()
	view.PageCount = gallery.PageCount(view.Total)
	return view
}
