package chat

import (
	"slices"
	"sync"
	"time"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

// MessageView is one rendered chat bubble. Pending marks the assistant
// placeholder of the turn in flight; Failed marks a placeholder whose turn
// ended in the fallback reply.
type MessageView struct {
	Role      domain.Role `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Pending   bool        `json:"pending,omitempty"`
	Failed    bool        `json:"failed,omitempty"`
}

// ActiveSession is the metadata of the session the chat is bound to.
type ActiveSession struct {
	ID       string                  `json:"id"`
	ThreadID string                  `json:"threadId"`
	Title    string                  `json:"title"`
	Filename string                  `json:"filename"`
	Snapshot domain.AnalysisSnapshot `json:"analysisSnapshot"`
}

// Snapshot is an immutable copy of the view model.
type Snapshot struct {
	Summaries []domain.SessionSummary `json:"sessions"`
	Active    *ActiveSession          `json:"active"`
	Messages  []MessageView           `json:"messages"`
	Status    string                  `json:"status,omitempty"`
	State     State                   `json:"state"`
}

// History is the session history view model: the user's session summaries,
// the active session and its messages, and the live status line. Every
// change is pushed to subscribers in the order it was made.
type History struct {
	mu        sync.Mutex
	summaries []domain.SessionSummary
	active    *ActiveSession
	messages  []MessageView
	pending   int
	status    string
	state     State

	// notifyMu keeps deliveries in mutation order.
	notifyMu sync.Mutex
	subs     map[int]func(Snapshot)
	nextSub  int
}

// NewHistory returns an empty view model.
func NewHistory() *History {
	return &History{
		summaries: []domain.SessionSummary{},
		messages:  []MessageView{},
		pending:   -1,
		subs:      make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn for every subsequent change and returns a function
// that removes it. fn runs synchronously and must not mutate the History.
func (h *History) Subscribe(fn func(Snapshot)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Snapshot returns a copy of the current view.
func (h *History) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

// Active returns the active session metadata, or nil.
func (h *History) Active() *ActiveSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return nil
	}
	active := *h.active
	return &active
}

func (h *History) snapshotLocked() Snapshot {
	snap := Snapshot{
		Summaries: slices.Clone(h.summaries),
		Messages:  slices.Clone(h.messages),
		Status:    h.status,
		State:     h.state,
	}
	if h.active != nil {
		active := *h.active
		snap.Active = &active
	}
	return snap
}

// update applies fn under the lock and then notifies subscribers.
func (h *History) update(fn func()) {
	h.mu.Lock()
	fn()
	snap := h.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(h.subs))
	for _, id := range sortedKeys(h.subs) {
		subs = append(subs, h.subs[id])
	}
	h.notifyMu.Lock()
	h.mu.Unlock()

	defer h.notifyMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (h *History) setActive(session *domain.Session) {
	h.update(func() {
		h.pending = -1
		h.status = ""
		if session == nil {
			h.active = nil
			h.messages = []MessageView{}
			return
		}
		h.active = &ActiveSession{
			ID:       session.ID,
			ThreadID: session.ThreadID,
			Title:    session.Title,
			Filename: session.Filename,
			Snapshot: session.AnalysisSnapshot,
		}
		h.messages = make([]MessageView, 0, len(session.Messages))
		for _, m := range session.Messages {
			h.messages = append(h.messages, MessageView{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp})
		}
	})
}

func (h *History) setSummaries(summaries []domain.SessionSummary) {
	sorted := append([]domain.SessionSummary{}, summaries...)
	domain.SortByRecency(sorted)
	h.update(func() {
		h.summaries = sorted
	})
}

// touchSummary replaces or inserts one summary and keeps the list sorted.
func (h *History) touchSummary(sum domain.SessionSummary) {
	h.update(func() {
		idx := slices.IndexFunc(h.summaries, func(s domain.SessionSummary) bool { return s.ID == sum.ID })
		if idx >= 0 {
			h.summaries[idx] = sum
		} else {
			h.summaries = append(h.summaries, sum)
		}
		domain.SortByRecency(h.summaries)
	})
}

func (h *History) removeSummary(id string) {
	h.update(func() {
		h.summaries = slices.DeleteFunc(h.summaries, func(s domain.SessionSummary) bool { return s.ID == id })
	})
}

func (h *History) appendMessage(m MessageView) {
	h.update(func() {
		h.messages = append(h.messages, m)
	})
}

func (h *History) startPlaceholder(now time.Time) {
	h.update(func() {
		h.messages = append(h.messages, MessageView{Role: domain.RoleAssistant, Timestamp: now, Pending: true})
		h.pending = len(h.messages) - 1
	})
}

func (h *History) updatePlaceholder(text string) {
	h.update(func() {
		if h.pending >= 0 {
			h.messages[h.pending].Content = text
		}
	})
}

func (h *History) finishPlaceholder(text string) {
	h.update(func() {
		if h.pending >= 0 {
			h.messages[h.pending].Content = text
			h.messages[h.pending].Pending = false
			h.pending = -1
		}
		h.status = ""
	})
}

// failPlaceholder replaces the turn's reply with the fallback text. If the
// placeholder was already finished it is the last assistant message.
func (h *History) failPlaceholder(fallback string) {
	h.update(func() {
		idx := h.pending
		if idx < 0 {
			idx = lastIndexOfRole(h.messages, domain.RoleAssistant)
		}
		if idx >= 0 {
			h.messages[idx].Content = fallback
			h.messages[idx].Pending = false
			h.messages[idx].Failed = true
		}
		h.pending = -1
		h.status = ""
	})
}

func (h *History) dropPlaceholder() {
	h.update(func() {
		if h.pending >= 0 {
			h.messages = slices.Delete(h.messages, h.pending, h.pending+1)
			h.pending = -1
		}
		h.status = ""
	})
}

func (h *History) setStatus(status string) {
	h.update(func() {
		h.status = status
	})
}

func (h *History) setState(state State) {
	h.update(func() {
		h.state = state
	})
}

func lastIndexOfRole(messages []MessageView, role domain.Role) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == role {
			return i
		}
	}
	return -1
}

func sortedKeys(m map[int]func(Snapshot)) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
