// Package export renders session transcripts for download.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(session *domain.Session, w io.Writer) error
	Extension() string
	ContentType() string
}

// Formats lists the accepted format names.
var Formats = []string{"json", "jsonl", "yaml", "markdown"}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return &JSONExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, &domain.ValidationError{
			Field:  "format",
			Reason: fmt.Sprintf("unsupported format %q (supported: %s)", format, strings.Join(Formats, ", ")),
		}
	}
}

// Filename suggests a download name for the session transcript.
func Filename(session *domain.Session, e Exporter) string {
	return fmt.Sprintf("session-%s.%s", session.ID, e.Extension())
}
