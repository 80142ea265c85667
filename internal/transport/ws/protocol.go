package ws

import (
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/chat"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

// Message types from client to relay
const (
	TypeSubmit            = "submit"
	TypeSwitchSession     = "switch_session"
	TypeNewSession        = "new_session"
	TypeRestore           = "restore"
	TypeListSessions      = "list_sessions"
	TypeDeleteSession     = "delete_session"
	TypeDeleteAllSessions = "delete_all_sessions"
	TypeCancel            = "cancel"
)

// Message types from relay to client
const (
	TypeState      = "state"
	TypeTurnDone   = "turn_done"
	TypeTurnFailed = "turn_failed"
	TypeAck        = "ack"
	TypeError      = "error"
)

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeTurnInFlight    = "turn_in_flight"
	ErrorCodeEmptyInput      = "empty_input"
	ErrorCodeNoActiveSession = "no_active_session"
	ErrorCodeSessionBusy     = "session_busy"
	ErrorCodeCancelled       = "cancelled"
	ErrorCodeValidation      = "validation_failed"
	ErrorCodeNotFound        = "not_found"
	ErrorCodeUpstream        = "upstream_failed"
	ErrorCodeTimeout         = "timeout"
	ErrorCodePersistence     = "persistence_failed"
	ErrorCodeInternal        = "internal_error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
}

// SubmitMessage sends one chat message on the active session.
type SubmitMessage struct {
	BaseMessage
	Content string `json:"content"`
}

// SessionMessage targets one session by id. Used by switch_session and
// delete_session.
type SessionMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
}

// NewSessionMessage creates a session for a freshly analysed resume.
type NewSessionMessage struct {
	BaseMessage
	ThreadID string                   `json:"thread_id"`
	Title    string                   `json:"title,omitempty"`
	Filename string                   `json:"filename,omitempty"`
	Snapshot *domain.AnalysisSnapshot `json:"snapshot,omitempty"`
}

// StateMessage carries the whole history view after a change.
type StateMessage struct {
	BaseMessage
	Snapshot chat.Snapshot `json:"snapshot"`
}

// TurnDoneMessage reports the final assistant reply of a turn.
type TurnDoneMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// AckMessage confirms a session operation.
type AckMessage struct {
	BaseMessage
	Op        string `json:"op"`
	SessionID string `json:"session_id,omitempty"`
	Deleted   int    `json:"deleted,omitempty"`
}

// ErrorMessage is sent for rejected frames (type error) and failed turns
// (type turn_failed).
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}
