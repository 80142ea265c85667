// Package domain defines the core domain models for the resume chat service.
package domain

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the persisted roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// EventKind tags a StreamEvent variant.
type EventKind string

const (
	EventToken   EventKind = "token"
	EventStatus  EventKind = "status"
	EventError   EventKind = "error"
	EventDone    EventKind = "done"
	EventUnknown EventKind = "unknown"
)

// Terminal reports whether an event of this kind ends a stream.
func (k EventKind) Terminal() bool {
	return k == EventError || k == EventDone
}

// DefaultSessionTitle is used when a session is created without a title.
const DefaultSessionTitle = "Resume Analysis"
