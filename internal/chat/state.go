package chat

import "fmt"

// State is the phase of the turn an Orchestrator is driving.
type State int

const (
	StateIdle State = iota
	StateUserAppended
	StateStreaming
	StateCompleting
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUserAppended:
		return "user_appended"
	case StateStreaming:
		return "streaming"
	case StateCompleting:
		return "completing"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON frames.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name, for clients decoding state frames.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateErrored; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown chat state %q", text)
}

// transitions lists the legal next states. Returning to Idle from
// UserAppended or Streaming is a cancelled turn.
var transitions = map[State][]State{
	StateIdle:         {StateUserAppended},
	StateUserAppended: {StateStreaming, StateErrored, StateIdle},
	StateStreaming:    {StateCompleting, StateErrored, StateIdle},
	StateCompleting:   {StateIdle, StateErrored},
	StateErrored:      {StateIdle},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
