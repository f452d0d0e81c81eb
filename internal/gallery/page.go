package gallery

import (
	"context"
	"errors"
	"fmt"

	"github.com/geolocate-mvp/zipgallery/internal/archive"
	"github.com/geolocate-mvp/zipgallery/internal/preview"
	"golang.org/x/sync/errgroup"
)

var errStale = errors.New("gallery: session superseded")

// decodeResult is a pending or finished preview decode, tagged with the
// session it was requested under.
type decodeResult struct {
	sessionID string
	entry     EntryRef
	done      chan struct{}
	handle    preview.Handle
	err       error
}

func newDecodeResult(sessionID string, e EntryRef) *decodeResult {
	return &decodeResult{sessionID: sessionID, entry: e, done: make(chan struct{})}
}

func resolvedResult(sessionID string, e EntryRef, h preview.Handle, err error) *decodeResult {
	r := newDecodeResult(sessionID, e)
	r.resolve(h, err)
	return r
}

func (r *decodeResult) resolve(h preview.Handle, err error) {
	r.handle = h
	r.err = err
	close(r.done)
}

// RenderPage shows page n of the current session, decoding entries that
// have not been seen yet. Pages below 1 are clamped to 1. An entry that
// fails to decode is left out of the page without failing the call.
func (ix *Indexer) RenderPage(ctx context.Context, n int) ([]Card, error) {
	if n < 1 {
		n = 1
	}

	ix.mu.Lock()
	if ix.closed {
		ix.mu.Unlock()
		return nil, ErrClosed
	}
	s := ix.current
	if s == nil {
		ix.view.DisplayPage(nil)
		ix.renderPagerLocked()
		ix.mu.Unlock()
		return nil, nil
	}
	s.pageIndex = n
	start, end := pageBounds(n, len(s.entries))
	results := make([]*decodeResult, 0, end-start)
	var started []*decodeResult
	for _, e := range s.entries[start:end] {
		if h, ok := s.cache[e.Ordinal]; ok {
			results = append(results, resolvedResult(s.ID, e, h, nil))
			continue
		}
		if err, ok := s.failed[e.Ordinal]; ok {
			results = append(results, resolvedResult(s.ID, e, preview.Handle{}, err))
			continue
		}
		if r, ok := s.pending[e.Ordinal]; ok {
			results = append(results, r)
			continue
		}
		r := newDecodeResult(s.ID, e)
		s.pending[e.Ordinal] = r
		results = append(results, r)
		started = append(started, r)
	}
	c := s.container
	ix.renderPagerLocked()
	ix.mu.Unlock()

	if len(started) > 0 {
		// Decodes are shared with concurrent renders and ignore this caller's cancellation.
		dctx := context.WithoutCancel(ctx)
		go func() {
			g := new(errgroup.Group)
			g.SetLimit(ix.concurrency)
			for _, r := range started {
				g.Go(func() error {
					ix.decode(dctx, c, r)
					return nil
				})
			}
			_ = g.Wait()
		}()
	}

	for _, r := range results {
		select {
		case <-r.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.current == nil || ix.current.ID != s.ID {
		ix.logger.Debug("Dropping page of superseded session", "session_id", s.ID, "page", n)
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cards := make([]Card, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			ix.logger.Warn("Skipping preview", "session_id", s.ID, "entry", r.entry.Path, "err", r.err)
			continue
		}
		cards = append(cards, Card{
			Handle:    r.handle,
			Name:      r.entry.Name,
			SizeLabel: SizeLabel(r.entry.SizeBytes),
			Ordinal:   r.entry.Ordinal,
		})
	}

	if s.pageIndex == n {
		ix.view.DisplayPage(cards)
		ix.renderPagerLocked()
	}
	return cards, nil
}

// decode reads and materializes one entry, then publishes the result into
// its session if that session is still current.
func (ix *Indexer) decode(ctx context.Context, c archive.Container, r *decodeResult) {
	var h preview.Handle
	data, err := c.ReadEntry(ctx, r.entry.Source)
	if err == nil {
		h, err = ix.materialize.Materialize(r.entry.Name, data)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrEntryDecode, err)
		}
	} else if !errors.Is(err, ErrEntryDecode) {
		err = fmt.Errorf("%w: %w", ErrEntryDecode, err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	s := ix.current
	if s == nil || s.ID != r.sessionID {
		if err == nil {
			ix.materialize.Release(h)
		}
		ix.logger.Debug("Dropping stale preview", "session_id", r.sessionID, "entry", r.entry.Path)
		r.resolve(preview.Handle{}, errStale)
		return
	}

	delete(s.pending, r.entry.Ordinal)
	if err == nil {
		s.cache[r.entry.Ordinal] = h
	} else {
		s.failed[r.entry.Ordinal] = err
	}
	r.resolve(h, err)
}

// NextPage renders the page after the current one, if any.
func (ix *Indexer) NextPage(ctx context.Context) ([]Card, error) {
	ix.mu.Lock()
	page, count := ix.pageLocked()
	ix.mu.Unlock()
	if page < count {
		page++
	}
	return ix.RenderPage(ctx, page)
}

// PrevPage renders the page before the current one, if any.
func (ix *Indexer) PrevPage(ctx context.Context) ([]Card, error) {
	ix.mu.Lock()
	page, _ := ix.pageLocked()
	ix.mu.Unlock()
	if page > 1 {
		page--
	}
	return ix.RenderPage(ctx, page)
}

func (ix *Indexer) pageLocked() (int, int) {
	if ix.current == nil {
		return 1, 1
	}
	return ix.current.pageIndex, PageCount(len(ix.current.entries))
}

func (ix *Indexer) renderPagerLocked() {
	page, count := ix.pageLocked()
	ix.view.SetPagerLabel(fmt.Sprintf(ix.labels.Pager, page, count))
	ix.view.SetPrevEnabled(page > 1)
	ix.view.SetNextEnabled(page < count)
}
