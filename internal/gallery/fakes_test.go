package gallery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/geolocate-mvp/zipgallery/internal/archive"
	"github.com/geolocate-mvp/zipgallery/internal/preview"
)

type fakeFile struct {
	path string
	data string
	dir  bool
}

type fakeContainer struct {
	files  []fakeFile
	fail   map[string]bool
	block  map[string]chan struct{}
	mu     sync.Mutex
	reads  map[string]int
	closed bool
}

func newFakeContainer(files ...fakeFile) *fakeContainer {
	return &fakeContainer{
		files: files,
		fail:  make(map[string]bool),
		block: make(map[string]chan struct{}),
		reads: make(map[string]int),
	}
}

func imageFiles(n int) []fakeFile {
	files := make([]fakeFile, n)
	for i := range files {
		files[i] = fakeFile{path: fmt.Sprintf("img%03d.jpg", i), data: "ok"}
	}
	return files
}

func (c *fakeContainer) Entries() []archive.Entry {
	out := make([]archive.Entry, 0, len(c.files))
	for _, f := range c.files {
		name := strings.TrimSuffix(f.path, "/")
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		out = append(out, archive.Entry{
			Name:     name,
			Path:     f.path,
			IsDir:    f.dir,
			SizeHint: int64(len(f.data)),
		})
	}
	return out
}

func (c *fakeContainer) ReadEntry(ctx context.Context, e archive.Entry) ([]byte, error) {
	c.mu.Lock()
	c.reads[e.Path]++
	gate := c.block[e.Path]
	fail := c.fail[e.Path]
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, fmt.Errorf("%w: %s: corrupt stream", archive.ErrEntryDecode, e.Path)
	}
	for _, f := range c.files {
		if f.path == e.Path {
			return []byte(f.data), nil
		}
	}
	return nil, fmt.Errorf("%w: missing %s", archive.ErrEntryDecode, e.Path)
}

func (c *fakeContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeContainer) readCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[path]
}

func (c *fakeContainer) setBlock(path string, gate chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block[path] = gate
}

func (c *fakeContainer) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeOpener maps a blob's string value to a container.
type fakeOpener struct {
	mu         sync.Mutex
	containers map[string]*fakeContainer
	gates      map[string]chan struct{}
	entered    chan string
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		containers: make(map[string]*fakeContainer),
		gates:      make(map[string]chan struct{}),
		entered:    make(chan string, 16),
	}
}

func (o *fakeOpener) add(key string, c *fakeContainer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.containers[key] = c
}

func (o *fakeOpener) gate(key string) chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	g := make(chan struct{})
	o.gates[key] = g
	return g
}

func (o *fakeOpener) Open(blob []byte) (archive.Container, error) {
	key := string(blob)
	o.mu.Lock()
	g := o.gates[key]
	c, ok := o.containers[key]
	o.mu.Unlock()

	select {
	case o.entered <- key:
	default:
	}
	if g != nil {
		<-g
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", archive.ErrArchiveFormat, key)
	}
	return c, nil
}

type fakeMaterializer struct {
	mu          sync.Mutex
	next        int
	outstanding map[string]string
}

func newFakeMaterializer() *fakeMaterializer {
	return &fakeMaterializer{outstanding: make(map[string]string)}
}

func (m *fakeMaterializer) Materialize(name string, data []byte) (preview.Handle, error) {
	if string(data) == "not-an-image" {
		return preview.Handle{}, errors.Join(preview.ErrUnsupportedImage, fmt.Errorf("%s", name))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("h%d", m.next)
	m.outstanding[id] = name
	return preview.Handle{ID: id, URL: "/previews/" + id, Size: len(data)}, nil
}

func (m *fakeMaterializer) Release(h preview.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.outstanding, h.ID)
}

func (m *fakeMaterializer) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.outstanding)
}

type recorder struct {
	mu     sync.Mutex
	cards  []Card
	pager  string
	status string
	prev   bool
	next   bool
}

func (r *recorder) DisplayPage(cards []Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards = cards
}

func (r *recorder) SetPagerLabel(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pager = text
}

func (r *recorder) SetStatusLabel(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = text
}

func (r *recorder) SetPrevEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prev = enabled
}

func (r *recorder) SetNextEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next = enabled
}

type viewState struct {
	cards  []Card
	pager  string
	status string
	prev   bool
	next   bool
}

func (r *recorder) snapshot() viewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return viewState{cards: r.cards, pager: r.pager, status: r.status, prev: r.prev, next: r.next}
}
