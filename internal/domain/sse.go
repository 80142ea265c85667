package domain

import "encoding/json"

// StreamEvent is one decoded event of an agent chat stream. It is transient:
// only the resolved text of a Done event is ever persisted.
type StreamEvent struct {
	Kind EventKind `json:"kind"`
	// Text is the accumulated reply for Token, the message for Status and
	// Error, and the final reply for Done (empty when the stream produced
	// none).
	Text string `json:"text,omitempty"`
	// Delta is the fragment carried by a Token event.
	Delta string `json:"delta,omitempty"`
	// Raw holds the payload of an Unknown event.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// AgentChatRequest is the body sent to the agent service.
type AgentChatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

// AgentChatResponse is the single-shot reply of the agent service.
type AgentChatResponse struct {
	ThreadID string `json:"thread_id,omitempty"`
	Response string `json:"response"`
}

// AgentStreamPayload is the JSON carried by one data line of the agent's
// event stream. Every field is optional.
type AgentStreamPayload struct {
	Token        *string `json:"token,omitempty"`
	Status       *string `json:"status,omitempty"`
	Error        *string `json:"error,omitempty"`
	Done         *bool   `json:"done,omitempty"`
	FullResponse *string `json:"full_response,omitempty"`
}
