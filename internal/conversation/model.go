package conversation

import (
	"errors"
	"sync"
)

var (
	ErrTurnOutOfRange = errors.New("conversation: turn index out of range")
	ErrNotDisclosable = errors.New("conversation: turn has no evidence for that channel")
)

// Model is the append-only record of the interaction. Turns are never
// removed, reordered or mutated in place; appends land in completion order.
// The model lives for the current console session only and is not persisted.
type Model struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewModel() *Model {
	return &Model{}
}

// Append adds a turn at the end of the conversation.
func (m *Model) Append(t Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
}

func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// Turn returns the turn at index i.
func (m *Model) Turn(i int) (Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i < 0 || i >= len(m.turns) {
		return Turn{}, ErrTurnOutOfRange
	}
	return m.turns[i], nil
}

// Turns returns a copy of the conversation in insertion order.
func (m *Model) Turns() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Disclose expands the named evidence channel of the turn at index i into a
// new assistant turn whose text is the channel's full context, verbatim.
// Disclosure is purely local and intentionally not deduplicated: disclosing
// the same channel twice appends two identical turns.
func (m *Model) Disclose(i int, ch Channel) error {
	t, err := m.Turn(i)
	if err != nil {
		return err
	}
	if t.Sender != SenderAssistant {
		return ErrNotDisclosable
	}
	ev := t.Provenance.Channel(ch)
	if ev == nil {
		return ErrNotDisclosable
	}
	m.Append(Turn{Sender: SenderAssistant, Text: ev.Detail})
	return nil
}
