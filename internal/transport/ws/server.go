// Package ws provides the live chat relay: a WebSocket endpoint that drives
// one chat orchestrator per connection and pushes its history view to the
// client.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/chat"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/config"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/transport/http/identity"
)

// SessionsFunc returns the session API scoped to one user.
type SessionsFunc func(userID string) chat.Sessions

// Relay handles WebSocket chat connections.
type Relay struct {
	cfg      *config.Config
	sessions SessionsFunc
	agent    chat.Agent
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*connection]struct{}
	wg    sync.WaitGroup
}

// NewRelay creates a new WebSocket relay.
func NewRelay(cfg *config.Config, sessions SessionsFunc, agent chat.Agent, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Relay{
		cfg:      cfg,
		sessions: sessions,
		agent:    agent,
		logger:   logger,
		conns:    make(map[*connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The gateway in front of the service enforces origins.
				return true
			},
		},
	}
}

// HandleWebSocket upgrades the request and starts the connection's pumps.
// The identity middleware must have run.
func (r *Relay) HandleWebSocket(c echo.Context) error {
	userID := identity.UserID(c)

	ws, err := r.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		r.logger.Warn("failed to upgrade websocket", "user_id", userID, "error", err)
		return err
	}

	conn := r.newConnection(ws, userID)
	conn.logger.Info("chat connection opened")

	go conn.writePump()
	go conn.readPump()

	return nil
}

// Shutdown closes every open connection and waits for their turns and
// background appends to resolve, or for ctx to expire.
func (r *Relay) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for conn := range r.conns {
		conn.ws.Close()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of open connections.
func (r *Relay) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Relay) newConnection(ws *websocket.Conn, userID string) *connection {
	id := "conn_" + uuid.New().String()[:8]
	logger := r.logger.With("conn_id", id, "user_id", userID)
	ctx, cancel := context.WithCancel(context.Background())

	conn := &connection{
		relay:      r,
		id:         id,
		ws:         ws,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		send:       make(chan []byte, 256),
		stateReady: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	conn.orch = chat.New(r.sessions(userID), r.agent, chat.Options{
		Streaming:      r.cfg.AgentStreaming,
		IdleTimeout:    r.cfg.AgentIdleTimeout,
		PersistTimeout: r.cfg.PersistTimeout,
		Logger:         logger,
	})
	conn.unsubscribe = conn.orch.History().Subscribe(conn.pushState)
	conn.pushState(conn.orch.History().Snapshot())

	r.mu.Lock()
	r.conns[conn] = struct{}{}
	r.mu.Unlock()
	r.wg.Add(1)

	return conn
}

func (r *Relay) remove(conn *connection) {
	r.mu.Lock()
	delete(r.conns, conn)
	r.mu.Unlock()
	r.wg.Done()
}

// connection is one open chat. Only writePump writes to ws.
type connection struct {
	relay  *Relay
	id     string
	ws     *websocket.Conn
	orch   *chat.Orchestrator
	logger *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	send chan []byte

	// State frames are coalesced: only the latest snapshot is written.
	stateMu    sync.Mutex
	state      []byte
	stateReady chan struct{}

	done      chan struct{}
	closeOnce sync.Once

	submits sync.WaitGroup
}

// readPump reads frames until the peer goes away, then tears the chat down.
func (c *connection) readPump() {
	defer func() {
		c.close()
		c.submits.Wait()
		c.orch.Wait()
		c.relay.remove(c)
		c.logger.Info("chat connection closed")
	}()

	cfg := c.relay.cfg
	c.ws.SetReadLimit(cfg.WSMaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(cfg.WSReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(cfg.WSReadTimeout))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *connection) writePump() {
	cfg := c.relay.cfg
	ticker := time.NewTicker(cfg.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case <-c.stateReady:
			if !c.flushState() {
				return
			}

		case message := <-c.send:
			// State changes made before this frame was queued go first.
			if !c.flushState() || !c.write(websocket.TextMessage, message) {
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *connection) write(messageType int, data []byte) bool {
	c.ws.SetWriteDeadline(time.Now().Add(c.relay.cfg.WSWriteTimeout))
	if err := c.ws.WriteMessage(messageType, data); err != nil {
		c.logger.Debug("websocket write failed", "error", err)
		return false
	}
	return true
}

func (c *connection) flushState() bool {
	c.stateMu.Lock()
	data := c.state
	c.state = nil
	c.stateMu.Unlock()
	if data == nil {
		return true
	}
	return c.write(websocket.TextMessage, data)
}

// pushState is the history subscriber. It never blocks.
func (c *connection) pushState(snap chat.Snapshot) {
	data, err := json.Marshal(StateMessage{
		BaseMessage: BaseMessage{Type: TypeState, Ts: time.Now().UnixMilli()},
		Snapshot:    snap,
	})
	if err != nil {
		c.logger.Error("failed to encode state", "error", err)
		return
	}
	c.stateMu.Lock()
	c.state = data
	c.stateMu.Unlock()

	select {
	case c.stateReady <- struct{}{}:
	default:
	}
}

func (c *connection) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to encode frame", "error", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		// A dropped turn_done or ack would leave the client waiting, so
		// a client that cannot keep up is disconnected instead.
		c.logger.Warn("send buffer full, closing connection")
		c.close()
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.unsubscribe()
		close(c.done)
	})
}

// handleMessage dispatches incoming frames.
func (c *connection) handleMessage(data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		c.sendError(TypeError, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeSubmit:
		c.handleSubmit(data, base)
	case TypeCancel:
		cancelled := c.orch.Cancel()
		c.logger.Debug("cancel requested", "in_flight", cancelled)
		c.sendJSON(AckMessage{BaseMessage: c.base(TypeAck, base.RequestID), Op: TypeCancel})
	case TypeSwitchSession:
		c.handleSwitchSession(data, base)
	case TypeNewSession:
		c.handleNewSession(data, base)
	case TypeRestore:
		c.runOp(base, func(ctx context.Context) (AckMessage, error) {
			session, err := c.orch.Restore(ctx)
			if err != nil || session == nil {
				return AckMessage{}, err
			}
			return AckMessage{SessionID: session.ID}, nil
		})
	case TypeListSessions:
		c.runOp(base, func(ctx context.Context) (AckMessage, error) {
			return AckMessage{}, c.orch.Refresh(ctx)
		})
	case TypeDeleteSession:
		c.handleDeleteSession(data, base)
	case TypeDeleteAllSessions:
		c.runOp(base, func(ctx context.Context) (AckMessage, error) {
			n, err := c.orch.DeleteAllSessions(ctx)
			return AckMessage{Deleted: n}, err
		})
	default:
		c.sendError(TypeError, base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

// handleSubmit runs the turn beside the read loop so that cancel frames
// are still read while the reply streams.
func (c *connection) handleSubmit(data []byte, base BaseMessage) {
	var msg SubmitMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(TypeError, base.RequestID, ErrorCodeInvalidMessage, "invalid submit message")
		return
	}

	c.submits.Add(1)
	go func() {
		defer c.submits.Done()
		reply, err := c.orch.Submit(c.ctx, msg.Content)
		if err != nil {
			frameType := TypeTurnFailed
			if errors.Is(err, chat.ErrTurnInFlight) || errors.Is(err, chat.ErrEmptyInput) ||
				errors.Is(err, chat.ErrNoActiveSession) || errors.Is(err, chat.ErrSessionBusy) {
				frameType = TypeError
			}
			c.sendError(frameType, base.RequestID, errorCode(err), err.Error())
			return
		}
		c.sendJSON(TurnDoneMessage{BaseMessage: c.base(TypeTurnDone, base.RequestID), Text: reply})
	}()
}

func (c *connection) handleSwitchSession(data []byte, base BaseMessage) {
	var msg SessionMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.SessionID == "" {
		c.sendError(TypeError, base.RequestID, ErrorCodeInvalidMessage, "session_id is required")
		return
	}
	c.runOp(base, func(ctx context.Context) (AckMessage, error) {
		session, err := c.orch.SwitchSession(ctx, msg.SessionID)
		if err != nil {
			return AckMessage{}, err
		}
		return AckMessage{SessionID: session.ID}, nil
	})
}

func (c *connection) handleNewSession(data []byte, base BaseMessage) {
	var msg NewSessionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(TypeError, base.RequestID, ErrorCodeInvalidMessage, "invalid new_session message")
		return
	}
	c.runOp(base, func(ctx context.Context) (AckMessage, error) {
		session, err := c.orch.NewSession(ctx, domainCreateRequest(msg))
		if err != nil {
			return AckMessage{}, err
		}
		return AckMessage{SessionID: session.ID}, nil
	})
}

func (c *connection) handleDeleteSession(data []byte, base BaseMessage) {
	var msg SessionMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.SessionID == "" {
		c.sendError(TypeError, base.RequestID, ErrorCodeInvalidMessage, "session_id is required")
		return
	}
	c.runOp(base, func(ctx context.Context) (AckMessage, error) {
		deleted, err := c.orch.DeleteSession(ctx, msg.SessionID)
		if err != nil {
			return AckMessage{}, err
		}
		if !deleted {
			return AckMessage{SessionID: msg.SessionID}, nil
		}
		return AckMessage{SessionID: msg.SessionID, Deleted: 1}, nil
	})
}

// runOp runs a session operation inline and acknowledges it.
func (c *connection) runOp(base BaseMessage, op func(ctx context.Context) (AckMessage, error)) {
	ctx := c.ctx
	if timeout := c.relay.cfg.PersistTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ack, err := op(ctx)
	if err != nil {
		c.logger.Warn("session operation failed", "op", base.Type, "error", err)
		c.sendError(TypeError, base.RequestID, errorCode(err), err.Error())
		return
	}
	ack.BaseMessage = c.base(TypeAck, base.RequestID)
	ack.Op = base.Type
	c.sendJSON(ack)
}

func (c *connection) sendError(frameType, requestID, code, message string) {
	c.sendJSON(ErrorMessage{
		BaseMessage: c.base(frameType, requestID),
		Code:        code,
		Message:     message,
	})
}

func (c *connection) base(frameType, requestID string) BaseMessage {
	return BaseMessage{Type: frameType, Ts: time.Now().UnixMilli(), RequestID: requestID}
}
