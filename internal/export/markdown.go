package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

const timeLayout = time.RFC3339

// MarkdownExporter renders a readable transcript.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(session *domain.Session, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", session.Title)
	if session.Filename != "" {
		fmt.Fprintf(&b, "**Resume:** %s  \n", session.Filename)
	}
	fmt.Fprintf(&b, "**ATS score:** %s  \n", formatScore(session.AnalysisSnapshot.ATSScore))
	fmt.Fprintf(&b, "**Messages:** %d\n\n", len(session.Messages))

	if len(session.AnalysisSnapshot.Suggestions) > 0 {
		b.WriteString("## Suggestions\n\n")
		for _, s := range session.AnalysisSnapshot.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n## Conversation\n\n")
	for i, msg := range session.Messages {
		timestamp := ""
		if !msg.Timestamp.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp.UTC().Format(timeLayout))
		}
		fmt.Fprintf(&b, "**%s:**%s\n\n%s\n\n", speaker(msg.Role), timestamp, escapeMarkdown(msg.Content))

		if i < len(session.Messages)-1 {
			b.WriteString("---\n\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}

func (e *MarkdownExporter) ContentType() string {
	return "text/markdown; charset=utf-8"
}

func speaker(role domain.Role) string {
	if role == domain.RoleUser {
		return "You"
	}
	return "Resume Agent"
}

func formatScore(score float64) string {
	if score == float64(int64(score)) {
		return fmt.Sprintf("%d", int64(score))
	}
	return fmt.Sprintf("%.1f", score)
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false

	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		line = strings.ReplaceAll(line, "**", "\\*\\*")
		lines[i] = strings.ReplaceAll(line, "__", "\\_\\_")
	}

	return strings.Join(lines, "\n")
}
