package refresh

import "sync/atomic"

// Token identifies one refresh or query request.
type Token uint64

// Sequencer hands out monotonically increasing tokens. Only the holder of
// the latest token may publish its results; anything older is stale.
type Sequencer struct {
	last atomic.Uint64
}

// Next issues a new token, invalidating all earlier ones.
func (s *Sequencer) Next() Token {
	return Token(s.last.Add(1))
}

// IsCurrent reports whether t is still the latest token issued.
func (s *Sequencer) IsCurrent(t Token) bool {
	return s.last.Load() == uint64(t)
}
