package internal

import (
	"context"
	"errors"
)

// RunTurn streams one agent run into turn: transport bytes are decoded,
// sequenced onto the turn and re-segmented, and onUpdate receives the
// filtered view after every appended event and once more when the turn
// ends.
//
// A transport or read failure ends the turn with an error event and is
// returned. Cancellation of ctx leaves the turn incomplete and returns
// ctx.Err().
func RunTurn(ctx context.Context, tr Transport, req *AgentRequest, turn *Turn, display DisplayConfig, onUpdate func(TurnView)) error {
	notify := func() {
		if onUpdate != nil {
			onUpdate(turn.View(display))
		}
	}

	body, err := tr.Open(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		LogError("agent request failed: %v", err)
		turn.Fail(err)
		notify()
		return err
	}
	defer body.Close()

	seq := NewSequencer(turn)
	err = DecodeStream(ctx, body, func(rec Record) error {
		if _, err := seq.Append(rec); err != nil {
			return err
		}
		notify()
		return nil
	})

	switch {
	case err == nil:
		turn.Complete()
	case errors.Is(err, context.Canceled):
		LogDebug("turn %s abandoned after %d event(s)", turn.ID(), len(turn.Events()))
		return err
	default:
		LogError("agent stream failed: %v", err)
		turn.Fail(err)
	}
	notify()
	return err
}
