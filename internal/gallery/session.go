package gallery

import (
	"context"
	"fmt"

	"github.com/geolocate-mvp/zipgallery/internal/archive"
	"github.com/geolocate-mvp/zipgallery/internal/preview"
	"github.com/google/uuid"
)

// Session is the preview state of one loaded archive.
type Session struct {
	ID        string
	container archive.Container
	entries   []EntryRef
	pageIndex int
	cache     map[int]preview.Handle
	failed    map[int]error
	pending   map[int]*decodeResult
}

func newSession(c archive.Container, entries []EntryRef) *Session {
	return &Session{
		ID:        uuid.NewString(),
		container: c,
		entries:   entries,
		pageIndex: 1,
		cache:     make(map[int]preview.Handle),
		failed:    make(map[int]error),
		pending:   make(map[int]*decodeResult),
	}
}

// LoadArchive replaces the current session with one built from blob.
// No entry is decoded until a page containing it is rendered.
func (ix *Indexer) LoadArchive(ctx context.Context, blob []byte) (LoadResult, error) {
	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return LoadResult{}, ErrClosed
	}
	ix.teardownLocked()
	token := uuid.NewString()
	ix.loading = token
	ix.view.DisplayPage(nil)
	ix.view.SetStatusLabel(ix.labels.Loading)
	ix.renderPagerLocked()
	ix.mu.Unlock()

	// The previous session is already gone at this point; a new archive
	// selection replaces it whether or not the new load completes.
	if err := ctx.Err(); err != nil {
		ix.abandonLoad(token)
		return LoadResult{}, err
	}

	c, err := ix.opener.Open(blob)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.loading != token {
		if c != nil {
			_ = c.Close()
		}
		ix.logger.Debug("Dropping superseded archive load", "load", token)
		return LoadResult{Superseded: true}, nil
	}
	ix.loading = ""

	if err != nil {
		ix.view.SetStatusLabel(ix.labels.BadArchive)
		ix.renderPagerLocked()
		return LoadResult{}, fmt.Errorf("failed to open archive: %w", err)
	}

	entries := collectImages(c.Entries())
	sortEntries(entries, ix.locale)
	s := newSession(c, entries)
	ix.current = s

	if len(entries) == 0 {
		ix.view.SetStatusLabel(ix.labels.Empty)
	} else {
		ix.view.SetStatusLabel(fmt.Sprintf(ix.labels.Found, len(entries)))
	}
	ix.renderPagerLocked()

	ix.logger.Info("Archive loaded", "session_id", s.ID, "images", len(entries), "entries", len(c.Entries()))

	return LoadResult{
		SessionID: s.ID,
		Total:     len(entries),
		Empty:     len(entries) == 0,
	}, nil
}

func (ix *Indexer) abandonLoad(token string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.loading == token {
		ix.loading = ""
		ix.view.SetStatusLabel(ix.labels.Idle)
	}
}

// Reset releases every preview handle and empties the gallery. It also
// abandons a load that is still in flight. Safe to call with no session.
func (ix *Indexer) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.loading = ""
	ix.teardownLocked()
	if ix.closed {
		return
	}
	ix.view.DisplayPage(nil)
	ix.view.SetStatusLabel(ix.labels.Idle)
	ix.renderPagerLocked()
}

// Close tears the indexer down for good, as on page unload.
func (ix *Indexer) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.loading = ""
	ix.teardownLocked()
	ix.closed = true
	return nil
}

func (ix *Indexer) teardownLocked() {
	s := ix.current
	if s == nil {
		return
	}
	ix.current = nil

	for ordinal, h := range s.cache {
		ix.materialize.Release(h)
		delete(s.cache, ordinal)
	}
	if s.container != nil {
		if err := s.container.Close(); err != nil {
			ix.logger.Warn("Failed to close archive", "session_id", s.ID, "err", err)
		}
	}
	ix.logger.Debug("Session torn down", "session_id", s.ID, "pending", len(s.pending))
}

// SessionID returns the identity of the current session, or "" when empty.
func (ix *Indexer) SessionID() string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.current == nil {
		return ""
	}
	return ix.current.ID
}

// Total returns the number of images in the current session.
func (ix *Indexer) Total() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.current == nil {
		return 0
	}
	return len(ix.current.entries)
}

// CurrentPage returns the 1-based page last rendered.
func (ix *Indexer) CurrentPage() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.current == nil {
		return 1
	}
	return ix.current.pageIndex
}

// Entries returns the sorted entries of the current session.
func (ix *Indexer) Entries() []EntryRef {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.current == nil {
		return nil
	}
	out := make([]EntryRef, len(ix.current.entries))
	copy(out, ix.current.entries)
	return out
}

// Cached returns how many previews the current session holds.
func (ix *Indexer) Cached() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.current == nil {
		return 0
	}
	return len(ix.current.cache)
}
