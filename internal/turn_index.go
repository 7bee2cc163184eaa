package internal

import (
	"sync"
)

// TurnIndex provides thread-safe lookup of turns by id
type TurnIndex struct {
	mu    sync.RWMutex
	turns map[string]*Turn
}

// NewTurnIndex creates a new TurnIndex
func NewTurnIndex() *TurnIndex {
	return &TurnIndex{
		turns: make(map[string]*Turn),
	}
}

// Get retrieves a turn by ID
func (ti *TurnIndex) Get(turnID string) (*Turn, bool) {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	turn, ok := ti.turns[turnID]
	return turn, ok
}

// Set stores a turn
func (ti *TurnIndex) Set(turnID string, turn *Turn) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.turns[turnID] = turn
}

// Len returns the number of indexed turns
func (ti *TurnIndex) Len() int {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return len(ti.turns)
}
