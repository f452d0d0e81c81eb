// Package gallery indexes the images inside an uploaded archive and exposes
// them as a paginated, lazily decoded preview gallery.
//
// An Indexer owns at most one Session at a time. Loading a new archive,
// resetting, or closing the indexer tears the current session down and
// releases every preview handle it materialized. Decode results are tagged
// with the session they were requested under and are dropped if that session
// is no longer current when they arrive.
package gallery

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/geolocate-mvp/zipgallery/internal/archive"
	"github.com/geolocate-mvp/zipgallery/internal/preview"
	"golang.org/x/text/language"
)

// PageSize is the number of cards shown per gallery page.
const PageSize = 12

var (
	// ErrArchiveFormat is returned by LoadArchive when the blob is not a readable archive.
	ErrArchiveFormat = archive.ErrArchiveFormat
	// ErrEntryDecode marks a single entry that could not be turned into a preview.
	ErrEntryDecode = archive.ErrEntryDecode
	// ErrClosed is returned by operations on a closed Indexer.
	ErrClosed = errors.New("gallery: indexer closed")
)

// Materializer turns decoded entry bytes into preview handles and frees them again.
type Materializer interface {
	Materialize(name string, data []byte) (preview.Handle, error)
	Release(h preview.Handle)
}

// Renderer receives gallery state changes. Calls are made while the indexer
// holds its lock, so implementations must not call back into the Indexer.
type Renderer interface {
	DisplayPage(cards []Card)
	SetPagerLabel(text string)
	SetStatusLabel(text string)
	SetPrevEnabled(enabled bool)
	SetNextEnabled(enabled bool)
}

// EntryRef is one image discovered inside the loaded archive.
type EntryRef struct {
	Name      string
	Path      string
	SizeBytes int64
	Ordinal   int
	Source    archive.Entry
}

// Card is one rendered gallery cell.
type Card struct {
	Handle    preview.Handle `json:"preview"`
	Name      string         `json:"name"`
	SizeLabel string         `json:"size_label"`
	Ordinal   int            `json:"ordinal"`
}

// LoadResult describes the outcome of LoadArchive.
type LoadResult struct {
	SessionID  string
	Total      int
	Empty      bool
	Superseded bool
}

// Indexer is the archive preview gallery for one client.
type Indexer struct {
	opener      archive.Opener
	materialize Materializer
	view        Renderer
	logger      *slog.Logger
	locale      language.Tag
	labels      Labels
	concurrency int

	mu      sync.Mutex
	current *Session
	loading string
	closed  bool
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger used for skipped cards and dropped results.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// WithLocale sets the collation and label language.
func WithLocale(tag language.Tag) Option {
	return func(ix *Indexer) {
		ix.locale = tag
	}
}

// WithConcurrency bounds how many entries of one page are decoded at once.
func WithConcurrency(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// New creates an Indexer wired to its collaborators.
func New(opener archive.Opener, m Materializer, view Renderer, opts ...Option) *Indexer {
	ix := &Indexer{
		opener:      opener,
		materialize: m,
		view:        view,
		logger:      slog.Default(),
		locale:      language.Russian,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.labels = LabelsFor(ix.locale)
	return ix
}

// PageCount returns the number of pages for total entries; an empty gallery has one page.
func PageCount(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + PageSize - 1) / PageSize
}

// pageBounds returns the half-open slice of the sorted entries shown on page.
// Pages past the last one are empty.
func pageBounds(page, total int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > PageCount(total) {
		return total, total
	}
	start := (page - 1) * PageSize
	end := min(page*PageSize, total)
	return start, end
}
