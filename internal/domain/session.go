package domain

import "time"

// ChatMessage is a single persisted turn fragment. Messages are only ever
// appended to a session; they are never edited or removed individually.
type ChatMessage struct {
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// ATSBreakdown is the per-category score produced by resume analysis.
type ATSBreakdown struct {
	TechnicalSkills float64 `json:"technical_skills" yaml:"technical_skills"`
	SoftSkills      float64 `json:"soft_skills" yaml:"soft_skills"`
	ActionVerbs     float64 `json:"action_verbs" yaml:"action_verbs"`
	Formatting      float64 `json:"formatting" yaml:"formatting"`
}

// AnalysisSnapshot is the resume analysis captured when the session was
// established. The chat core stores it opaquely apart from ATSScore, which
// is projected into summaries.
type AnalysisSnapshot struct {
	ATSScore         float64      `json:"ats_score" yaml:"ats_score"`
	ATSBreakdown     ATSBreakdown `json:"ats_breakdown" yaml:"ats_breakdown"`
	SkillsFound      []string     `json:"skills_found,omitempty" yaml:"skills_found,omitempty"`
	ActionVerbsFound []string     `json:"action_verbs_found,omitempty" yaml:"action_verbs_found,omitempty"`
	Suggestions      []string     `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// Session is the durable record of one agent thread owned by one user.
// UserID and ThreadID never change after creation.
type Session struct {
	ID               string           `json:"id" yaml:"id"`
	UserID           string           `json:"userId" yaml:"user_id"`
	ThreadID         string           `json:"threadId" yaml:"thread_id"`
	Title            string           `json:"title" yaml:"title"`
	Filename         string           `json:"filename" yaml:"filename"`
	AnalysisSnapshot AnalysisSnapshot `json:"analysisSnapshot" yaml:"analysis_snapshot"`
	Messages         []ChatMessage    `json:"messages" yaml:"messages"`
	CreatedAt        time.Time        `json:"createdAt" yaml:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" yaml:"updated_at"`
}

// Summary projects the session onto its list view.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:        s.ID,
		ThreadID:  s.ThreadID,
		Title:     s.Title,
		Filename:  s.Filename,
		ATSScore:  s.AnalysisSnapshot.ATSScore,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// SessionSummary is the list projection of a session. It never carries
// messages.
type SessionSummary struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	ATSScore  float64   `json:"atsScore"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionSelector picks the target session of an append: an explicit id or
// the caller's most recently updated session.
type SessionSelector struct {
	ID string
}

// ByID selects the session with the given id.
func ByID(id string) SessionSelector { return SessionSelector{ID: id} }

// MostRecent selects the caller's most recently updated session.
func MostRecent() SessionSelector { return SessionSelector{} }

// IsMostRecent reports whether the selector defers to recency.
func (s SessionSelector) IsMostRecent() bool { return s.ID == "" }
