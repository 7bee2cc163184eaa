package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Deduplicator drops sessions whose transcript repeats an earlier one, such
// as a capture replayed into the archive more than once
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate keeps the first session of each distinct transcript, in order
func (d *Deduplicator) Deduplicate(sessions []*Session) []*Session {
	seen := make(map[string]bool)
	var unique []*Session

	for _, session := range sessions {
		hash := d.hashSessionContent(session)
		if seen[hash] {
			LogDebug("skipping session %s: same transcript as an earlier one", session.ID)
			continue
		}
		seen[hash] = true
		unique = append(unique, session)
	}

	return unique
}

// hashSessionContent hashes what a reader sees: actors, contents and data
// payloads. Ids and timestamps differ between recordings and are left out.
func (d *Deduplicator) hashSessionContent(session *Session) string {
	h := sha256.New()

	for _, msg := range session.Messages {
		h.Write([]byte(msg.Actor))
		h.Write([]byte{0})
		h.Write([]byte(msg.Content))
		h.Write([]byte{0})
		if msg.Data != nil {
			if b, err := json.Marshal(msg.Data); err == nil {
				h.Write(b)
			}
		}
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}
