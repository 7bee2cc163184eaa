package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrConversationNotFound is returned when an archive has no such conversation
var ErrConversationNotFound = errors.New("conversation not found")

// Archive stores conversations, their turns and every raw event in SQLite.
// Events are kept verbatim so archived turns can be re-segmented later with
// a different display config.
type Archive struct {
	db   *sql.DB
	path string
}

// ConversationSummary is one row of the archive listing
type ConversationSummary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	TurnCount int
}

func newArchive(db *sql.DB, path string) *Archive {
	return &Archive{db: db, path: path}
}

// OpenArchive opens or creates the archive at path
func OpenArchive(path string) (*Archive, error) {
	db, err := OpenArchiveDatabase(path)
	if err != nil {
		return nil, &ArchiveError{Path: path, Op: "open", Err: err}
	}
	return newArchive(db, path), nil
}

// OpenArchiveReadOnly opens an existing archive without write access
func OpenArchiveReadOnly(path string) (*Archive, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &ArchiveError{Path: path, Op: "open", Err: err}
	}
	return newArchive(db, path), nil
}

// Close closes the underlying database
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveConversation writes the conversation and all of its turns. Saving
// again replaces the stored turns, so it can be called after every turn.
func (a *Archive) SaveConversation(ctx context.Context, conv *Conversation) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return &ArchiveError{Path: a.path, Op: "write", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	turns := conv.Turns()
	title := ""
	for _, t := range turns {
		if t.Role() == RoleUser {
			title = Truncate(t.Text(), 80)
			break
		}
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		conv.ID(), title, formatTime(conv.CreatedAt()), formatTime(now),
	); err != nil {
		return &ArchiveError{Path: a.path, Op: "write", Err: fmt.Errorf("conversation: %w", err)}
	}

	for pos, t := range turns {
		if err := saveTurn(ctx, tx, conv.ID(), pos, t); err != nil {
			return &ArchiveError{Path: a.path, Op: "write", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &ArchiveError{Path: a.path, Op: "write", Err: err}
	}
	LogDebug("archived conversation %s (%d turn(s))", conv.ID(), len(turns))
	return nil
}

func saveTurn(ctx context.Context, tx *sql.Tx, convID string, pos int, t *Turn) error {
	snap := t.Snapshot()
	text := snap.Text
	if snap.Role == RoleAgent {
		text = t.Text()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (id, conversation_id, position, role, text, created_at, complete, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position, text = excluded.text,
			complete = excluded.complete, error = excluded.error`,
		snap.ID, convID, pos, string(snap.Role), text, formatTime(snap.CreatedAt), snap.Complete, snap.Error,
	); err != nil {
		return fmt.Errorf("turn %s: %w", snap.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE turn_id = ?`, snap.ID); err != nil {
		return fmt.Errorf("events of turn %s: %w", snap.ID, err)
	}
	if len(snap.Events) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (turn_id, seq, kind, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare events: %w", err)
	}
	defer stmt.Close()

	for _, ev := range snap.Events {
		data, err := ev.RawJSON()
		if err != nil {
			return fmt.Errorf("encode event %d of turn %s: %w", ev.Seq, snap.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, snap.ID, ev.Seq, ev.Kind, string(data)); err != nil {
			return fmt.Errorf("event %d of turn %s: %w", ev.Seq, snap.ID, err)
		}
	}
	return nil
}

// ListConversations returns every archived conversation, newest first
func (a *Archive) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at, COUNT(t.id)
		FROM conversations c LEFT JOIN turns t ON t.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, &ArchiveError{Path: a.path, Op: "read", Err: err}
	}
	defer rows.Close()

	var out []ConversationSummary
	for rows.Next() {
		var (
			s                ConversationSummary
			created, updated string
		)
		if err := rows.Scan(&s.ID, &s.Title, &created, &updated, &s.TurnCount); err != nil {
			return nil, &ArchiveError{Path: a.path, Op: "read", Err: err}
		}
		s.CreatedAt = parseTime(created)
		s.UpdatedAt = parseTime(updated)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &ArchiveError{Path: a.path, Op: "read", Err: err}
	}
	return out, nil
}

// LoadConversation rebuilds one conversation. Turns and events are read
// concurrently and joined in memory.
func (a *Archive) LoadConversation(ctx context.Context, id string) (*Conversation, error) {
	var createdAt string
	err := a.db.QueryRowContext(ctx, `SELECT created_at FROM conversations WHERE id = ?`, id).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	if err != nil {
		return nil, &ArchiveError{Path: a.path, Op: "read", Err: err}
	}

	var (
		turns  []TurnSnapshot
		events map[string][]Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		turns, err = a.loadTurns(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = a.loadEvents(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &ArchiveError{Path: a.path, Op: "read", Err: err}
	}

	for i := range turns {
		turns[i].Events = events[turns[i].ID]
	}
	return RestoreConversation(id, parseTime(createdAt), turns), nil
}

// LoadAll rebuilds every archived conversation, newest first
func (a *Archive) LoadAll(ctx context.Context) ([]*Conversation, error) {
	summaries, err := a.ListConversations(ctx)
	if err != nil {
		return nil, err
	}

	convs := make([]*Conversation, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, s := range summaries {
		g.Go(func() error {
			conv, err := a.LoadConversation(gctx, s.ID)
			if err != nil {
				return err
			}
			convs[i] = conv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return convs, nil
}

func (a *Archive) loadTurns(ctx context.Context, convID string) ([]TurnSnapshot, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, role, text, created_at, complete, error
		FROM turns WHERE conversation_id = ? ORDER BY position`, convID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []TurnSnapshot
	for rows.Next() {
		var (
			snap    TurnSnapshot
			role    string
			created string
		)
		if err := rows.Scan(&snap.ID, &role, &snap.Text, &created, &snap.Complete, &snap.Error); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		snap.Role = Role(role)
		snap.CreatedAt = parseTime(created)
		turns = append(turns, snap)
	}
	return turns, rows.Err()
}

func (a *Archive) loadEvents(ctx context.Context, convID string) (map[string][]Event, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT e.turn_id, e.seq, e.kind, e.data
		FROM events e JOIN turns t ON t.id = e.turn_id
		WHERE t.conversation_id = ?
		ORDER BY e.turn_id, e.seq`, convID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make(map[string][]Event)
	for rows.Next() {
		var (
			turnID string
			ev     Event
			data   string
		)
		if err := rows.Scan(&turnID, &ev.Seq, &ev.Kind, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &ev.Data); err != nil {
			return nil, fmt.Errorf("decode event %d of turn %s: %w", ev.Seq, turnID, err)
		}
		events[turnID] = append(events[turnID], ev)
	}
	return events, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		LogDebug("invalid timestamp %q in archive: %v", s, err)
		return time.Time{}
	}
	return t
}
