package storage

import (
	"log/slog"
	"sync"
	"time"

	"github.com/geolocate-mvp/zipgallery/internal/gallery"
	"github.com/geolocate-mvp/zipgallery/internal/models"
)

// Client is the gallery state of one browser page.
type Client struct {
	ID       string
	Gallery  *gallery.Indexer
	View     *models.View
	lastSeen time.Time

	nameMu      sync.Mutex
	archiveName string
}

// SetArchiveName records the file name of the archive last uploaded by the client.
func (c *Client) SetArchiveName(name string) {
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	c.archiveName = name
}

func (c *Client) ArchiveName() string {
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	return c.archiveName
}

// Factory builds an indexer that renders into view.
type Factory func(view gallery.Renderer) *gallery.Indexer

type ClientStore struct {
	clients map[string]*Client
	factory Factory
	mu      sync.RWMutex
}

func New(factory Factory) *ClientStore {
	return &ClientStore{
		clients: make(map[string]*Client),
		factory: factory,
	}
}

func (s *ClientStore) Get(clientID string) (*Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, exists := s.clients[clientID]
	if exists {
		client.lastSeen = time.Now()
	}
	return client, exists
}

// GetOrCreate returns the client for clientID, creating an empty gallery if needed.
func (s *ClientStore) GetOrCreate(clientID string) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if client, exists := s.clients[clientID]; exists {
		client.lastSeen = time.Now()
		return client
	}
	view := &models.View{}
	client := &Client{
		ID:       clientID,
		Gallery:  s.factory(view),
		View:     view,
		lastSeen: time.Now(),
	}
	client.Gallery.Reset()
	s.clients[clientID] = client
	return client
}

func (s *ClientStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Delete closes the client's gallery, releasing its previews.
func (s *ClientStore) Delete(clientID string) {
	s.mu.Lock()
	client, exists := s.clients[clientID]
	delete(s.clients, clientID)
	s.mu.Unlock()
	if exists {
		_ = client.Gallery.Close()
	}
}

// EvictIdle closes clients not seen for maxIdle and returns how many were removed.
func (s *ClientStore) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	var stale []*Client
	for id, client := range s.clients {
		if client.lastSeen.Before(cutoff) {
			stale = append(stale, client)
			delete(s.clients, id)
		}
	}
	s.mu.Unlock()

	for _, client := range stale {
		_ = client.Gallery.Close()
		slog.Info("Evicted idle gallery", "client_id", client.ID)
	}
	return len(stale)
}

// CloseAll closes every gallery, as on server shutdown.
func (s *ClientStore) CloseAll() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*Client)
	s.mu.Unlock()

	for _, client := range clients {
		_ = client.Gallery.Close()
	}
}
