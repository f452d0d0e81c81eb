package archive

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/klauspost/compress/zip"
)

type testFile struct {
	name  string
	body  []byte
	store bool
}

func buildZip(t *testing.T, files []testFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		method := zip.Deflate
		if f.store {
			method = zip.Store
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: f.name, Method: method})
		if err != nil {
			t.Fatalf("create %s: %v", f.name, err)
		}
		if _, err := fw.Write(f.body); err != nil {
			t.Fatalf("write %s: %v", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestIsImageName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"a.jpg", true},
		{"b.JPEG", true},
		{"dir/c.png", true},
		{"d.webp", true},
		{"e.Bmp", true},
		{"f.gif", true},
		{"g.tif", true},
		{"h.TIFF", true},
		{"readme.txt", false},
		{"noext", false},
		{"photo.jpg.zip", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsImageName(tt.name); got != tt.expected {
				t.Errorf("Expected %v for %q, got %v", tt.expected, tt.name, got)
			}
		})
	}
}

func TestOpenListsEntriesInContainerOrder(t *testing.T) {
	blob := buildZip(t, []testFile{
		{name: "b.png", body: []byte("bbbb")},
		{name: "a.jpg", body: []byte("aaaaaaaa")},
		{name: "readme.txt", body: []byte("text")},
		{name: "c/"},
		{name: "c/d.gif", body: []byte("dd")},
	})

	c, err := NewZipOpener(0).Open(blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	entries := c.Entries()
	if len(entries) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(entries))
	}

	wantNames := []string{"b.png", "a.jpg", "readme.txt", "c", "d.gif"}
	for i, want := range wantNames {
		if entries[i].Name != want {
			t.Errorf("entry %d: expected name %q, got %q", i, want, entries[i].Name)
		}
	}
	if !entries[3].IsDir {
		t.Errorf("Expected c/ to be a directory")
	}
	if entries[1].SizeHint != 8 {
		t.Errorf("Expected SizeHint=8 for a.jpg, got %d", entries[1].SizeHint)
	}
	if entries[4].Path != "c/d.gif" {
		t.Errorf("Expected path c/d.gif, got %q", entries[4].Path)
	}
}

func TestOpenRejectsNonArchive(t *testing.T) {
	for _, blob := range [][]byte{nil, []byte("definitely not a zip file")} {
		_, err := NewZipOpener(0).Open(blob)
		if !errors.Is(err, ErrArchiveFormat) {
			t.Errorf("Expected ErrArchiveFormat for %q, got %v", blob, err)
		}
	}
}

func TestReadEntry(t *testing.T) {
	blob := buildZip(t, []testFile{
		{name: "x.png", body: []byte("pixels")},
	})
	c, err := NewZipOpener(0).Open(blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	data, err := c.ReadEntry(context.Background(), c.Entries()[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "pixels" {
		t.Errorf("Expected pixels, got %q", data)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := c.ReadEntry(context.Background(), c.Entries()[0]); !errors.Is(err, ErrEntryDecode) {
		t.Errorf("Expected ErrEntryDecode after close, got %v", err)
	}
}

func TestReadEntryCorruptData(t *testing.T) {
	payload := []byte("stored-payload-that-will-be-corrupted")
	blob := buildZip(t, []testFile{
		{name: "corrupt.png", body: payload, store: true},
	})
	idx := bytes.Index(blob, payload)
	if idx < 0 {
		t.Fatalf("payload not found in archive")
	}
	blob[idx] ^= 0xFF

	c, err := NewZipOpener(0).Open(blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := c.ReadEntry(context.Background(), c.Entries()[0]); !errors.Is(err, ErrEntryDecode) {
		t.Errorf("Expected ErrEntryDecode for checksum mismatch, got %v", err)
	}
}

func TestReadEntryRespectsLimit(t *testing.T) {
	blob := buildZip(t, []testFile{
		{name: "big.png", body: bytes.Repeat([]byte{'x'}, 1024)},
	})
	c, err := NewZipOpener(100).Open(blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := c.ReadEntry(context.Background(), c.Entries()[0]); !errors.Is(err, ErrEntryDecode) {
		t.Errorf("Expected ErrEntryDecode for oversize entry, got %v", err)
	}
}

func TestReadEntryForeignEntry(t *testing.T) {
	c, err := NewZipOpener(0).Open(buildZip(t, []testFile{{name: "a.png", body: []byte("a")}}))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := c.ReadEntry(context.Background(), Entry{Path: "missing.png", position: 7}); !errors.Is(err, ErrEntryDecode) {
		t.Errorf("Expected ErrEntryDecode for unknown entry, got %v", err)
	}
}
