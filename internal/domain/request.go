package domain

// CreateSessionRequest is the input to session creation.
type CreateSessionRequest struct {
	ThreadID string            `json:"threadId"`
	Title    string            `json:"title,omitempty"`
	Filename string            `json:"filename,omitempty"`
	Snapshot *AnalysisSnapshot `json:"snapshot,omitempty"`
}

// UpdateSessionRequest is a partial update; nil fields are left untouched.
type UpdateSessionRequest struct {
	Title    *string           `json:"title,omitempty"`
	Snapshot *AnalysisSnapshot `json:"snapshot,omitempty"`
}

// AppendMessageRequest appends one message. An empty SessionID targets the
// most recently updated session.
type AppendMessageRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
}
