package storage

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/geolocate-mvp/zipgallery/internal/archive"
	"github.com/geolocate-mvp/zipgallery/internal/gallery"
	"github.com/geolocate-mvp/zipgallery/internal/preview"
	"github.com/klauspost/compress/zip"
)

func testArchive(t *testing.T) []byte {
	t.Helper()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range []string{"one.png", "two.png"} {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := fw.Write(img.Bytes()); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func newTestStore() (*ClientStore, *preview.Store) {
	previews := preview.NewStore("/previews/")
	opener := archive.NewZipOpener(0)
	return New(func(view gallery.Renderer) *gallery.Indexer {
		return gallery.New(opener, previews, view)
	}), previews
}

func TestGetOrCreate(t *testing.T) {
	store, _ := newTestStore()

	a := store.GetOrCreate("a")
	if again := store.GetOrCreate("a"); again != a {
		t.Errorf("Expected the same client for repeated id")
	}
	if _, ok := store.Get("b"); ok {
		t.Errorf("Expected unknown client to be missing")
	}
	store.GetOrCreate("b")
	if store.Len() != 2 {
		t.Errorf("Expected 2 clients, got %d", store.Len())
	}
	if a.View.Snapshot().PagerLabel == "" {
		t.Errorf("Expected new client view to be initialised")
	}
}

func TestDeleteReleasesPreviews(t *testing.T) {
	store, previews := newTestStore()
	client := store.GetOrCreate("a")

	if _, err := client.Gallery.LoadArchive(context.Background(), testArchive(t)); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := client.Gallery.RenderPage(context.Background(), 1); err != nil {
		t.Fatalf("render: %v", err)
	}
	if previews.Outstanding() != 2 {
		t.Fatalf("Expected 2 previews, got %d", previews.Outstanding())
	}

	store.Delete("a")
	if previews.Outstanding() != 0 {
		t.Errorf("Expected previews released on delete, got %d", previews.Outstanding())
	}
	if store.Len() != 0 {
		t.Errorf("Expected no clients, got %d", store.Len())
	}
	store.Delete("a")
}

func TestEvictIdle(t *testing.T) {
	store, previews := newTestStore()
	idle := store.GetOrCreate("idle")
	store.GetOrCreate("busy")

	if _, err := idle.Gallery.LoadArchive(context.Background(), testArchive(t)); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := idle.Gallery.RenderPage(context.Background(), 1); err != nil {
		t.Fatalf("render: %v", err)
	}

	if n := store.EvictIdle(time.Hour); n != 0 {
		t.Errorf("Expected nothing evicted, got %d", n)
	}

	store.mu.Lock()
	idle.lastSeen = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	if n := store.EvictIdle(time.Hour); n != 1 {
		t.Errorf("Expected 1 eviction, got %d", n)
	}
	if _, ok := store.Get("idle"); ok {
		t.Errorf("Expected idle client gone")
	}
	if _, ok := store.Get("busy"); !ok {
		t.Errorf("Expected busy client kept")
	}
	if previews.Outstanding() != 0 {
		t.Errorf("Expected evicted previews released, got %d", previews.Outstanding())
	}
}

func TestCloseAll(t *testing.T) {
	store, previews := newTestStore()
	for _, id := range []string{"a", "b"} {
		client := store.GetOrCreate(id)
		if _, err := client.Gallery.LoadArchive(context.Background(), testArchive(t)); err != nil {
			t.Fatalf("load: %v", err)
		}
		if _, err := client.Gallery.RenderPage(context.Background(), 1); err != nil {
			t.Fatalf("render: %v", err)
		}
	}

	store.CloseAll()
	if store.Len() != 0 || previews.Outstanding() != 0 {
		t.Errorf("Expected everything closed, got %d clients and %d previews", store.Len(), previews.Outstanding())
	}
}
