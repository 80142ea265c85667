package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

func roleLabel(role domain.Role) string {
	if role == domain.RoleUser {
		return userLabelStyle.Render("You:")
	}
	return assistantLabelStyle.Render("Resume Agent:")
}

func printMessages(w io.Writer, messages []domain.ChatMessage) {
	for _, m := range messages {
		fmt.Fprintf(w, "%s %s\n%s\n\n", roleLabel(m.Role), dateStyle.Render(formatWhen(m.Timestamp)), m.Content)
	}
}

func printSummaries(w io.Writer, summaries []domain.SessionSummary, activeID string) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, headerStyle.Render("No sessions found"))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d session(s)", len(summaries))))

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTitle\tResume\tATS\tUpdated")
	for _, s := range summaries {
		marker := ""
		if s.ID == activeID {
			marker = "*"
		}
		filename := s.Filename
		if filename == "" {
			filename = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			marker,
			idStyle.Render(s.ID),
			titleStyle.Render(truncate(s.Title, 40)),
			filename,
			scoreStyle.Render(strconv.FormatFloat(s.ATSScore, 'f', -1, 64)),
			dateStyle.Render(formatWhen(s.UpdatedAt)),
		)
	}
	_ = tw.Flush()
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.Local()
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
