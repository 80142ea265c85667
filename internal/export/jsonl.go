package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

// JSONLExporter writes one message per line.
type JSONLExporter struct{}

type jsonlLine struct {
	SessionID string      `json:"sessionId"`
	Role      domain.Role `json:"role"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp,omitempty"`
}

func (e *JSONLExporter) Export(session *domain.Session, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range session.Messages {
		line := jsonlLine{SessionID: session.ID, Role: msg.Role, Content: msg.Content}
		if !msg.Timestamp.IsZero() {
			line.Timestamp = msg.Timestamp.UTC().Format(timeLayout)
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

func (e *JSONLExporter) Extension() string {
	return "jsonl"
}

func (e *JSONLExporter) ContentType() string {
	return "application/x-ndjson"
}
