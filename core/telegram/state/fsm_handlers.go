package state

import "sort"

// Steps maps states to the handler that consumes the reply expected in that state.
// H is whatever the bot's step signature is.
type Steps[H any] struct {
	handlers map[State]H
}

// NewSteps returns an empty table.
func NewSteps[H any]() *Steps[H] {
	return &Steps[H]{handlers: make(map[State]H)}
}

// Register associates a state with its handler. Registering twice replaces.
func (s *Steps[H]) Register(st State, h H) {
	s.handlers[st] = h
}

// Lookup returns the handler for st.
func (s *Steps[H]) Lookup(st State) (H, bool) {
	h, ok := s.handlers[st]
	return h, ok
}

// States lists registered states in lexical order.
func (s *Steps[H]) States() []State {
	out := make([]State, 0, len(s.handlers))
	for st := range s.handlers {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
