package models

import (
	"sync"

	"github.com/geolocate-mvp/zipgallery/internal/gallery"
)

// PageView is the gallery state returned to the browser.
type PageView struct {
	SessionID   string         `json:"session_id,omitempty"`
	Cards       []gallery.Card `json:"cards"`
	Page        int            `json:"page"`
	PageCount   int            `json:"page_count"`
	Total       int            `json:"total"`
	PagerLabel  string         `json:"pager_label"`
	Status      string         `json:"status"`
	PrevEnabled bool           `json:"prev_enabled"`
	NextEnabled bool           `json:"next_enabled"`
	Error       string         `json:"error,omitempty"`
}

// View records what the gallery asked to display for one client.
type View struct {
	mu     sync.RWMutex
	cards  []gallery.Card
	pager  string
	status string
	prev   bool
	next   bool
}

func (v *View) DisplayPage(cards []gallery.Card) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cards = cards
}

func (v *View) SetPagerLabel(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pager = text
}

func (v *View) SetStatusLabel(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = text
}

func (v *View) SetPrevEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prev = enabled
}

func (v *View) SetNextEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.next = enabled
}

// Snapshot copies the recorded state into a PageView.
func (v *View) Snapshot() PageView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	cards := make([]gallery.Card, len(v.cards))
	copy(cards, v.cards)
	return PageView{
		Cards:       cards,
		PagerLabel:  v.pager,
		Status:      v.status,
		PrevEnabled: v.prev,
		NextEnabled: v.next,
	}
}
