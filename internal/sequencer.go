package internal

// Sequencer appends decoded records to one agent turn in arrival order.
// Each appended event gets the next sequence index of that turn and is
// pushed into the turn's segmenter immediately.
type Sequencer struct {
	turn *Turn
}

// NewSequencer creates a Sequencer feeding turn
func NewSequencer(turn *Turn) *Sequencer {
	return &Sequencer{turn: turn}
}

// Append stamps rec and appends it to the turn
func (s *Sequencer) Append(rec Record) (Event, error) {
	return s.turn.append(rec.Event, rec.Data)
}
