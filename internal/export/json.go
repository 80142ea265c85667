package export

import (
	"encoding/json"
	"io"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

// JSONExporter writes the whole session document, pretty-printed.
type JSONExporter struct{}

func (e *JSONExporter) Export(session *domain.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(session)
}

func (e *JSONExporter) Extension() string {
	return "json"
}

func (e *JSONExporter) ContentType() string {
	return "application/json"
}
