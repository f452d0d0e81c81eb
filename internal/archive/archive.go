package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/zip"
)

// DefaultMaxEntryBytes caps how much of a single entry is inflated into memory.
const DefaultMaxEntryBytes int64 = 64 * 1024 * 1024

var (
	// ErrArchiveFormat is returned when a blob is not a readable archive container.
	ErrArchiveFormat = errors.New("archive: not a valid archive")
	// ErrEntryDecode is returned when a single entry cannot be read back.
	ErrEntryDecode = errors.New("archive: entry cannot be decoded")
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
}

// IsImageName reports whether name carries one of the recognised image extensions.
func IsImageName(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// Entry describes one file inside a container, in the order the container yields it.
type Entry struct {
	Name           string // basename shown to users
	Path           string // full path inside the archive
	IsDir          bool
	SizeHint       int64 // uncompressed size, 0 when unknown
	CompressedSize int64
	position       int
}

// Opener decodes a raw blob into a Container.
type Opener interface {
	Open(blob []byte) (Container, error)
}

// Container is an opened archive whose entries can be read lazily.
type Container interface {
	Entries() []Entry
	ReadEntry(ctx context.Context, e Entry) ([]byte, error)
	Close() error
}

// ZipOpener opens ZIP containers held in memory.
type ZipOpener struct {
	MaxEntryBytes int64
}

// NewZipOpener creates a ZIP opener with the given per-entry cap (0 means the default).
func NewZipOpener(maxEntryBytes int64) *ZipOpener {
	if maxEntryBytes <= 0 {
		maxEntryBytes = DefaultMaxEntryBytes
	}
	return &ZipOpener{MaxEntryBytes: maxEntryBytes}
}

// Open parses the central directory of blob.
func (o *ZipOpener) Open(blob []byte) (Container, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrArchiveFormat)
	}
	r, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveFormat, err)
	}

	limit := o.MaxEntryBytes
	if limit <= 0 {
		limit = DefaultMaxEntryBytes
	}

	entries := make([]Entry, 0, len(r.File))
	for i, f := range r.File {
		name := strings.TrimSuffix(f.Name, "/")
		entries = append(entries, Entry{
			Name:           path.Base(name),
			Path:           f.Name,
			IsDir:          f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/"),
			SizeHint:       int64(f.UncompressedSize64),
			CompressedSize: int64(f.CompressedSize64),
			position:       i,
		})
	}

	return &zipContainer{reader: r, entries: entries, maxEntryBytes: limit}, nil
}

type zipContainer struct {
	reader        *zip.Reader
	entries       []Entry
	maxEntryBytes int64
	closed        atomic.Bool
}

func (c *zipContainer) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *zipContainer) ReadEntry(ctx context.Context, e Entry) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.closed.Load() {
		return nil, fmt.Errorf("%w: container closed", ErrEntryDecode)
	}
	if e.position < 0 || e.position >= len(c.reader.File) || c.reader.File[e.position].Name != e.Path {
		return nil, fmt.Errorf("%w: unknown entry %q", ErrEntryDecode, e.Path)
	}

	rc, err := c.reader.File[e.position].Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEntryDecode, e.Path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, c.maxEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEntryDecode, e.Path, err)
	}
	if int64(len(data)) > c.maxEntryBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrEntryDecode, e.Path, c.maxEntryBytes)
	}
	return data, nil
}

func (c *zipContainer) Close() error {
	c.closed.Store(true)
	return nil
}
