package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when bytes do not decode as a known image format.
var ErrUnsupportedImage = errors.New("preview: unsupported image")

// Handle is a displayable reference to materialized image bytes.
type Handle struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        int    `json:"size"`
}

type blob struct {
	data        []byte
	contentType string
	name        string
	createdAt   time.Time
}

// Store keeps materialized previews in memory until they are released.
type Store struct {
	prefix string
	blobs  map[string]*blob
	mu     sync.RWMutex
}

// NewStore creates a store whose handle URLs start with prefix (e.g. "/previews/").
func NewStore(prefix string) *Store {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{
		prefix: prefix,
		blobs:  make(map[string]*blob),
	}
}

// Materialize validates data as an image and registers it under a fresh handle.
func (s *Store) Materialize(name string, data []byte) (Handle, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, name, err)
	}

	id := uuid.NewString()
	b := &blob{
		data:        data,
		contentType: "image/" + format,
		name:        name,
		createdAt:   time.Now(),
	}

	s.mu.Lock()
	s.blobs[id] = b
	s.mu.Unlock()

	return Handle{
		ID:          id,
		URL:         s.prefix + id,
		ContentType: b.contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Size:        len(data),
	}, nil
}

// Release frees the bytes behind h. Releasing twice is a no-op.
func (s *Store) Release(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, h.ID)
}

// Outstanding returns the number of handles not yet released.
func (s *Store) Outstanding() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// ServeHTTP serves the bytes behind a handle URL.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, s.prefix)
	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	slog.Debug("Serving preview", "id", id, "name", b.name)
	w.Header().Set("Content-Type", b.contentType)
	w.Header().Set("Cache-Control", "private, max-age=60")
	http.ServeContent(w, r, b.name, b.createdAt, bytes.NewReader(b.data))
}
