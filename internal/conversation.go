package internal

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

var (
	// ErrTurnComplete is returned when appending to a finished turn
	ErrTurnComplete = errors.New("turn is already complete")
	// ErrNotAgentTurn is returned when appending events to a user turn
	ErrNotAgentTurn = errors.New("events can only be appended to agent turns")
)

// Turn is one exchange unit. User turns are created complete. Agent turns
// start empty and incomplete and are fed by a Sequencer until the stream
// ends.
type Turn struct {
	mu sync.RWMutex

	id        string
	role      Role
	text      string
	createdAt time.Time

	events   []Event
	seg      *Segmenter
	complete bool
	err      error
}

// TurnView is what presentation sees of a turn after each mutation
type TurnView struct {
	TurnID   string
	Role     Role
	Items    []Item
	Settled  int // leading Items that will not change any more
	Complete bool
	Err      error
}

func newUserTurn(text string) *Turn {
	return &Turn{
		id:        uuid.New().String(),
		role:      RoleUser,
		text:      text,
		createdAt: time.Now(),
		complete:  true,
	}
}

func newAgentTurn() *Turn {
	return &Turn{
		id:        uuid.New().String(),
		role:      RoleAgent,
		createdAt: time.Now(),
		seg:       NewSegmenter(),
	}
}

// ID returns the turn id
func (t *Turn) ID() string { return t.id }

// Role returns the turn role
func (t *Turn) Role() Role { return t.role }

// CreatedAt returns the creation timestamp
func (t *Turn) CreatedAt() time.Time { return t.createdAt }

// Text returns the display text: the literal input for user turns, the
// accumulated text items for agent turns
func (t *Turn) Text() string {
	if t.role == RoleUser {
		return t.text
	}
	var parts []string
	for _, it := range t.Items() {
		if it.Category != CategoryText {
			continue
		}
		if s := it.Text().Text; s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Events returns a copy of the raw event log
func (t *Turn) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Event(nil), t.events...)
}

// Items returns the unfiltered items for the events received so far
func (t *Turn) Items() []Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.seg == nil {
		return nil
	}
	return t.seg.Items()
}

// IsComplete reports whether the turn has stopped receiving events
func (t *Turn) IsComplete() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.complete
}

// Err returns the error the turn ended with, if any
func (t *Turn) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// View returns the filtered snapshot of the turn
func (t *Turn) View(cfg DisplayConfig) TurnView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	view := TurnView{
		TurnID:   t.id,
		Role:     t.role,
		Complete: t.complete,
		Err:      t.err,
	}
	if t.seg == nil {
		return view
	}

	items, settled := t.seg.Snapshot()
	if t.complete {
		settled = len(items)
	}
	// filtering keeps order, so the visible settled items stay a prefix
	view.Items = Filter(items, cfg)
	view.Settled = len(Filter(items[:settled], cfg))
	return view
}

// append stamps and stores one record
func (t *Turn) append(kind string, data any) (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.role != RoleAgent {
		return Event{}, ErrNotAgentTurn
	}
	if t.complete {
		return Event{}, ErrTurnComplete
	}

	ev := Event{Seq: len(t.events), Kind: kind, Data: data}
	t.events = append(t.events, ev)
	t.seg.Push(ev)
	return ev, nil
}

// Complete marks the stream as ended normally
func (t *Turn) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.complete = true
}

// Fail records a terminal error as a synthetic error event and marks the
// turn complete. Items already segmented are kept.
func (t *Turn) Fail(err error) {
	if err == nil {
		return
	}
	if _, appendErr := t.append(KindError, map[string]any{"error": err.Error()}); appendErr != nil {
		LogDebug("turn %s: could not record failure: %v", t.id, appendErr)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.complete = true
	t.err = err
}

// Conversation is the ordered list of turns of one chat
type Conversation struct {
	mu sync.RWMutex

	id        string
	createdAt time.Time
	turns     []*Turn
	index     *TurnIndex
}

// NewConversation creates an empty conversation with a fresh id
func NewConversation() *Conversation {
	return &Conversation{
		id:        uuid.New().String(),
		createdAt: time.Now(),
		index:     NewTurnIndex(),
	}
}

// ID returns the conversation id
func (c *Conversation) ID() string { return c.id }

// CreatedAt returns the creation timestamp
func (c *Conversation) CreatedAt() time.Time { return c.createdAt }

// AddUserTurn appends a complete user turn
func (c *Conversation) AddUserTurn(text string) *Turn {
	return c.add(newUserTurn(text))
}

// StartAgentTurn appends an empty, incomplete agent turn
func (c *Conversation) StartAgentTurn() *Turn {
	return c.add(newAgentTurn())
}

func (c *Conversation) add(t *Turn) *Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
	c.index.Set(t.id, t)
	return t
}

// Turns returns the turns in order
func (c *Conversation) Turns() []*Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Turn(nil), c.turns...)
}

// Turn looks up a turn by id
func (c *Conversation) Turn(id string) (*Turn, bool) {
	return c.index.Get(id)
}

// TurnSnapshot is the stored form of a turn, used to rebuild conversations
// from the archive
type TurnSnapshot struct {
	ID        string
	Role      Role
	Text      string
	CreatedAt time.Time
	Events    []Event
	Complete  bool
	Error     string
}

// RestoreConversation rebuilds a conversation from stored turns. Agent turn
// events are re-sequenced in stored order.
func RestoreConversation(id string, createdAt time.Time, turns []TurnSnapshot) *Conversation {
	c := &Conversation{
		id:        id,
		createdAt: createdAt,
		index:     NewTurnIndex(),
	}
	for _, snap := range turns {
		t := &Turn{
			id:        snap.ID,
			role:      snap.Role,
			text:      snap.Text,
			createdAt: snap.CreatedAt,
		}
		if snap.Role == RoleAgent {
			t.seg = NewSegmenter()
			for _, ev := range snap.Events {
				ev.Seq = len(t.events)
				t.events = append(t.events, ev)
				t.seg.Push(ev)
			}
			if snap.Error != "" {
				t.err = errors.New(snap.Error)
			}
		}
		t.complete = snap.Role == RoleUser || snap.Complete
		c.turns = append(c.turns, t)
		c.index.Set(t.id, t)
	}
	return c
}

// Snapshot returns the stored form of the turn
func (t *Turn) Snapshot() TurnSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := TurnSnapshot{
		ID:        t.id,
		Role:      t.role,
		Text:      t.text,
		CreatedAt: t.createdAt,
		Events:    append([]Event(nil), t.events...),
		Complete:  t.complete,
	}
	if t.err != nil {
		snap.Error = t.err.Error()
	}
	return snap
}
