package game

import (
	"context"
	"log"
	"sync"
	"time"
)

// BoardManager owns one DropController per board (a browser session), so
// each board runs its drops one at a time while different boards drop in
// parallel.
type BoardManager struct {
	boards  map[string]*boardEntry // keyed by board ID
	library LibraryReader
	opts    PlayerOptions
	mu      sync.RWMutex
}

type boardEntry struct {
	controller *DropController
	lastActive time.Time
}

// BoardInfo describes a live board.
type BoardInfo struct {
	ID         string    `json:"id"`
	LastActive time.Time `json:"last_active"`
}

var (
	// Global board manager instance
	Manager *BoardManager
)

// InitializeManager initializes the global board manager.
func InitializeManager(library LibraryReader, opts PlayerOptions) {
	Manager = NewBoardManager(library, opts)
}

func NewBoardManager(library LibraryReader, opts PlayerOptions) *BoardManager {
	return &BoardManager{
		boards:  make(map[string]*boardEntry),
		library: library,
		opts:    opts,
	}
}

// SetOptions replaces the playback options used for boards created from now
// on. Existing boards keep the options they were created with.
func (m *BoardManager) SetOptions(opts PlayerOptions) {
	m.mu.Lock()
	m.opts = opts
	m.mu.Unlock()
}

// Options returns the options new boards are created with.
func (m *BoardManager) Options() PlayerOptions {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts
}

// Controller returns the board's controller, creating it on first use.
func (m *BoardManager) Controller(boardID string) *DropController {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.boards[boardID]
	if !ok {
		e = &boardEntry{controller: NewDropController(m.library, nil, m.opts, 0)}
		m.boards[boardID] = e
		log.Printf("[DROP] board %s created (boards=%d)", boardID, len(m.boards))
	}
	e.lastActive = time.Now()
	return e.controller
}

// Drop runs a drop on boardID.
func (m *BoardManager) Drop(ctx context.Context, boardID string, req DropRequest, sink FrameSink) (*DropResult, error) {
	res, err := m.Controller(boardID).DropWithSink(ctx, req, sink)
	m.touch(boardID)
	return res, err
}

func (m *BoardManager) touch(boardID string) {
	m.mu.Lock()
	if e, ok := m.boards[boardID]; ok {
		e.lastActive = time.Now()
	}
	m.mu.Unlock()
}

// Remove forgets a board.
func (m *BoardManager) Remove(boardID string) {
	m.mu.Lock()
	delete(m.boards, boardID)
	m.mu.Unlock()
}

// Boards lists live boards.
func (m *BoardManager) Boards() []BoardInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]BoardInfo, 0, len(m.boards))
	for id, e := range m.boards {
		out = append(out, BoardInfo{ID: id, LastActive: e.lastActive})
	}
	return out
}

// EvictIdle removes boards inactive since before cutoff. A board with a drop
// in flight is skipped.
func (m *BoardManager) EvictIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, e := range m.boards {
		if !e.lastActive.Before(cutoff) || e.controller.Busy() {
			continue
		}
		delete(m.boards, id)
		evicted++
	}
	return evicted
}
