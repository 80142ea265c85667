// Package chat drives chat turns against the agent service and keeps the
// session history view model in step with them.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/stream"
)

// FallbackReply replaces the assistant reply of a failed turn. It is shown
// to the user and never persisted.
const FallbackReply = "Sorry, I encountered an error. Please try again."

var (
	ErrTurnInFlight    = errors.New("a chat turn is already in flight")
	ErrEmptyInput      = errors.New("message is empty")
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionBusy     = errors.New("a session change is in progress")
	// ErrNotPersisted reports a reply that was received but could not be
	// stored. Submit returns it together with the reply text.
	ErrNotPersisted = errors.New("assistant reply was not persisted")
)

// Sessions is the session controller API as seen by one user.
type Sessions interface {
	List(ctx context.Context) ([]domain.SessionSummary, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Current returns the most recently updated session, or nil.
	Current(ctx context.Context) (*domain.Session, error)
	Create(ctx context.Context, req domain.CreateSessionRequest) (*domain.Session, error)
	Append(ctx context.Context, req domain.AppendMessageRequest) (*domain.Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteAll(ctx context.Context) (int, error)
}

// Agent is the conversational agent service.
type Agent interface {
	// Stream opens an event stream for one message. The caller closes the
	// returned body.
	Stream(ctx context.Context, threadID, message string) (io.ReadCloser, error)
	Chat(ctx context.Context, threadID, message string) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Streaming selects the event-stream endpoint; false uses single-shot chat.
	Streaming bool
	// IdleTimeout bounds the silence between stream chunks. Zero disables it.
	IdleTimeout time.Duration
	// PersistTimeout bounds each background append.
	PersistTimeout time.Duration
	Logger         *slog.Logger
}

// Orchestrator drives the chat turns of one open chat. At most one turn is
// in flight at a time; input submitted while a turn runs is rejected.
type Orchestrator struct {
	sessions Sessions
	agent    Agent
	history  *History
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	turnDone chan struct{}
	// changing is set while a session operation runs; no turn may start.
	changing bool

	// sessionOps serializes session operations.
	sessionOps sync.Mutex

	// background tracks appends that outlive the turn that issued them.
	background sync.WaitGroup
}

// New creates an orchestrator bound to a fresh History.
func New(sessions Sessions, agent Agent, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		sessions: sessions,
		agent:    agent,
		history:  NewHistory(),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// History returns the view model the orchestrator keeps up to date.
func (o *Orchestrator) History() *History {
	return o.history
}

// State returns the current turn state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submit runs one chat turn and returns the assistant's final reply. It
// blocks until the turn resolves. Cancelling ctx, or calling Cancel, stops
// the stream and returns context.Canceled with the placeholder discarded.
//
// When the reply arrives but cannot be stored, the history shows the
// fallback bubble and Submit returns the reply text with an error wrapping
// ErrNotPersisted.
func (o *Orchestrator) Submit(ctx context.Context, input string) (string, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return "", ErrEmptyInput
	}

	active, turnCtx, done, err := o.beginTurn(ctx)
	if err != nil {
		return "", err
	}
	defer done()

	logger := o.logger.With("session_id", active.ID, "thread_id", active.ThreadID)

	o.history.appendMessage(MessageView{Role: domain.RoleUser, Content: text, Timestamp: o.now()})
	userPersisted := o.persistInBackground(ctx, logger, active.ID, domain.RoleUser, text)

	o.transition(StateStreaming)
	o.history.startPlaceholder(o.now())

	final, err := o.fetchReply(turnCtx, logger, active.ThreadID, text)
	if err != nil {
		if turnCtx.Err() != nil && errors.Is(err, context.Canceled) {
			o.history.dropPlaceholder()
			o.transition(StateIdle)
			logger.Info("chat turn cancelled")
			return "", context.Canceled
		}
		logger.Warn("chat turn failed", "error", err)
		o.history.failPlaceholder(FallbackReply)
		o.transition(StateErrored)
		o.transition(StateIdle)
		return "", err
	}

	o.transition(StateCompleting)
	o.history.finishPlaceholder(final)

	if strings.TrimSpace(final) == "" {
		logger.Warn("skipping persist: empty assistant response")
		o.transition(StateIdle)
		return final, nil
	}

	// The user append was issued first; keep the assistant append behind it.
	<-userPersisted

	session, err := o.persist(ctx, active.ID, domain.RoleAssistant, final)
	if err != nil {
		logger.Error("failed to persist assistant message", "role", domain.RoleAssistant, "error", err)
		o.history.failPlaceholder(FallbackReply)
		o.transition(StateErrored)
		o.transition(StateIdle)
		return final, fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}

	o.history.touchSummary(session.Summary())
	o.transition(StateIdle)
	return final, nil
}

// beginTurn moves Idle -> UserAppended and arms the turn's cancellation.
// The active session is read under the same lock that session operations
// take, so it cannot change while the turn runs. The returned func ends the
// turn.
func (o *Orchestrator) beginTurn(ctx context.Context) (*ActiveSession, context.Context, func(), error) {
	o.mu.Lock()
	if o.changing {
		o.mu.Unlock()
		return nil, nil, nil, ErrSessionBusy
	}
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, nil, nil, ErrTurnInFlight
	}
	active := o.history.Active()
	if active == nil {
		o.mu.Unlock()
		return nil, nil, nil, ErrNoActiveSession
	}
	turnCtx, cancel := context.WithCancel(ctx)
	turnDone := make(chan struct{})
	o.cancel = cancel
	o.turnDone = turnDone
	o.setStateLocked(StateUserAppended)
	o.mu.Unlock()
	o.history.setState(StateUserAppended)

	return active, turnCtx, func() {
		cancel()
		o.mu.Lock()
		reset := o.state != StateIdle && o.setStateLocked(StateIdle)
		o.cancel = nil
		o.turnDone = nil
		o.mu.Unlock()
		if reset {
			o.history.setState(StateIdle)
		}
		close(turnDone)
	}, nil
}

func (o *Orchestrator) fetchReply(ctx context.Context, logger *slog.Logger, threadID, message string) (string, error) {
	if !o.opts.Streaming {
		reply, err := o.agent.Chat(ctx, threadID, message)
		if err != nil {
			return "", err
		}
		o.history.updatePlaceholder(reply)
		return reply, nil
	}

	body, err := o.agent.Stream(ctx, threadID, message)
	if err != nil {
		return "", err
	}

	dec := stream.NewDecoder(logger)
	final, err := stream.Decode(ctx, body, dec, o.opts.IdleTimeout, func(ev domain.StreamEvent) {
		switch ev.Kind {
		case domain.EventToken:
			o.history.updatePlaceholder(ev.Text)
		case domain.EventStatus:
			o.history.setStatus(ev.Text)
		case domain.EventUnknown:
			logger.Debug("ignoring unknown stream event", "payload", string(ev.Raw))
		}
	})
	if n := dec.Discarded(); n > 0 {
		logger.Debug("discarded malformed stream lines", "count", n)
	}
	if err != nil {
		return "", err
	}
	return final.Text, nil
}

// persistInBackground issues an append that is not tied to the turn's
// cancellation. The returned channel closes once the call resolves.
func (o *Orchestrator) persistInBackground(ctx context.Context, logger *slog.Logger, sessionID string, role domain.Role, content string) <-chan struct{} {
	resolved := make(chan struct{})
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		defer close(resolved)
		if _, err := o.persist(ctx, sessionID, role, content); err != nil {
			logger.Warn("failed to persist message", "role", role, "error", err)
		}
	}()
	return resolved
}

func (o *Orchestrator) persist(ctx context.Context, sessionID string, role domain.Role, content string) (*domain.Session, error) {
	ctx = context.WithoutCancel(ctx)
	if o.opts.PersistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.PersistTimeout)
		defer cancel()
	}
	return o.sessions.Append(ctx, domain.AppendMessageRequest{SessionID: sessionID, Role: role, Content: content})
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	ok := o.setStateLocked(to)
	o.mu.Unlock()
	// Subscribers run outside o.mu so they may read the orchestrator.
	if ok {
		o.history.setState(to)
	}
}

func (o *Orchestrator) setStateLocked(to State) bool {
	if !CanTransition(o.state, to) {
		o.logger.Error("illegal chat state transition", "from", o.state, "to", to)
		return false
	}
	o.state = to
	return true
}

// Cancel stops the turn in flight, if any, and reports whether there was one.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel == nil {
		return false
	}
	o.cancel()
	return true
}

// Wait blocks until the turn in flight and every background append have
// resolved.
func (o *Orchestrator) Wait() {
	o.waitTurn()
	o.background.Wait()
}

func (o *Orchestrator) waitTurn() {
	o.mu.Lock()
	done := o.turnDone
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

// beginSessionOp cancels the turn in flight, waits for it to unwind and
// keeps new turns out until the returned func is called. Session operations
// therefore only run while Idle.
func (o *Orchestrator) beginSessionOp() func() {
	o.sessionOps.Lock()
	release := o.holdTurns()
	return func() {
		release()
		o.sessionOps.Unlock()
	}
}

// holdTurns interrupts the turn in flight and blocks new ones until the
// returned func is called. The caller holds sessionOps.
func (o *Orchestrator) holdTurns() func() {
	for {
		o.Cancel()
		o.waitTurn()
		o.mu.Lock()
		if o.state == StateIdle {
			o.changing = true
			o.mu.Unlock()
			break
		}
		o.mu.Unlock()
	}
	return func() {
		o.mu.Lock()
		o.changing = false
		o.mu.Unlock()
	}
}

// SwitchSession binds the chat to another session and loads its messages.
func (o *Orchestrator) SwitchSession(ctx context.Context, id string) (*domain.Session, error) {
	defer o.beginSessionOp()()
	session, err := o.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o.history.setActive(session)
	o.refreshQuietly(ctx)
	return session, nil
}

// NewSession creates a session and makes it active.
func (o *Orchestrator) NewSession(ctx context.Context, req domain.CreateSessionRequest) (*domain.Session, error) {
	defer o.beginSessionOp()()
	session, err := o.sessions.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	o.history.setActive(session)
	o.history.touchSummary(session.Summary())
	return session, nil
}

// Restore reloads the summaries and activates the most recently updated
// session. It returns nil when the user has no sessions.
func (o *Orchestrator) Restore(ctx context.Context) (*domain.Session, error) {
	defer o.beginSessionOp()()
	session, err := o.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	o.history.setActive(session)
	if err := o.Refresh(ctx); err != nil {
		return session, err
	}
	return session, nil
}

// Refresh reloads the session summaries.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	summaries, err := o.sessions.List(ctx)
	if err != nil {
		return err
	}
	o.history.setSummaries(summaries)
	return nil
}

func (o *Orchestrator) refreshQuietly(ctx context.Context) {
	if err := o.Refresh(ctx); err != nil {
		o.logger.Warn("failed to refresh sessions", "error", err)
	}
}

// DeleteSession deletes one session. Deleting the active session unbinds
// the chat.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) (bool, error) {
	o.sessionOps.Lock()
	defer o.sessionOps.Unlock()
	active := o.history.Active()
	isActive := active != nil && active.ID == id
	if isActive {
		defer o.holdTurns()()
	}

	deleted, err := o.sessions.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		if isActive {
			o.history.setActive(nil)
		}
		o.history.removeSummary(id)
	}
	return deleted, nil
}

// DeleteAllSessions deletes every session of the user and unbinds the chat.
func (o *Orchestrator) DeleteAllSessions(ctx context.Context) (int, error) {
	defer o.beginSessionOp()()
	n, err := o.sessions.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	o.history.setActive(nil)
	o.history.setSummaries(nil)
	return n, nil
}
