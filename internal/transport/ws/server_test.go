package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/chat"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/config"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/service"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/testutil"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/transport/http/identity"
)

const helloStream = "data: {\"token\":\"Hel\"}\n\n" +
	"data: {\"status\":\"Reading resume...\"}\n\n" +
	"data: {\"token\":\"lo\"}\n\n" +
	"data: {\"done\":true,\"full_response\":\"Hello\"}\n\n"

type scriptedAgent struct {
	body string
}

func (a *scriptedAgent) Stream(ctx context.Context, threadID, message string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(a.body)), nil
}

func (a *scriptedAgent) Chat(ctx context.Context, threadID, message string) (string, error) {
	return "Hello", nil
}

func newTestRelay(t *testing.T) (*httptest.Server, *service.Service, *Relay) {
	t.Helper()
	cfg := &config.Config{
		AgentStreaming:   true,
		AgentIdleTimeout: time.Second,
		PersistTimeout:   time.Second,
		SessionListLimit: 20,
		MaxMessageBytes:  1024,
		WSPingInterval:   time.Second,
		WSWriteTimeout:   time.Second,
		WSReadTimeout:    5 * time.Second,
		WSMaxMessageSize: 65536,
	}
	svc := service.New(testutil.NewTestSQLiteStore(t), nil, cfg, testutil.NewTestPolicyEngine(t), nil)
	relay := NewRelay(cfg, func(userID string) chat.Sessions { return svc.ForUser(userID) }, &scriptedAgent{body: helloStream}, nil)

	e := echo.New()
	e.GET("/v1/chat/ws", relay.HandleWebSocket, identity.Middleware(identity.DefaultHeader))
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		relay.Shutdown(ctx)
		srv.Close()
	})
	return srv, svc, relay
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws"
	header := http.Header{}
	header.Set(identity.DefaultHeader, userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Op        string         `json:"op"`
	SessionID string         `json:"session_id"`
	Deleted   int            `json:"deleted"`
	Text      string         `json:"text"`
	Code      string         `json:"code"`
	Snapshot  *chat.Snapshot `json:"snapshot"`
}

// readUntil reads frames until one of the given type arrives and returns
// it with every state frame seen on the way.
func readUntil(t *testing.T, conn *websocket.Conn, frameType string) (frame, []chat.Snapshot) {
	t.Helper()
	var states []chat.Snapshot
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		if f.Type == TypeState && f.Snapshot != nil {
			states = append(states, *f.Snapshot)
		}
		if f.Type == frameType {
			return f, states
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestRelayFullTurn(t *testing.T) {
	srv, svc, _ := newTestRelay(t)
	conn := dial(t, srv, "u1")

	// The initial view is pushed on connect.
	first, _ := readUntil(t, conn, TypeState)
	assert.Nil(t, first.Snapshot.Active)

	send(t, conn, map[string]interface{}{"type": TypeNewSession, "request_id": "r1", "thread_id": "thread-1", "filename": "cv.pdf"})
	ack, _ := readUntil(t, conn, TypeAck)
	assert.Equal(t, "r1", ack.RequestID)
	assert.Equal(t, TypeNewSession, ack.Op)
	require.NotEmpty(t, ack.SessionID)

	send(t, conn, map[string]interface{}{"type": TypeSubmit, "request_id": "r2", "content": "  Review my resume  "})
	done, states := readUntil(t, conn, TypeTurnDone)
	assert.Equal(t, "r2", done.RequestID)
	assert.Equal(t, "Hello", done.Text)

	// The last state written before turn_done shows the finished reply.
	require.NotEmpty(t, states)
	last := states[len(states)-1]
	require.Len(t, last.Messages, 2)
	assert.Equal(t, "Review my resume", last.Messages[0].Content)
	assert.Equal(t, "Hello", last.Messages[1].Content)
	assert.False(t, last.Messages[1].Pending)

	session, err := svc.GetSession(context.Background(), "u1", ack.SessionID)
	require.NoError(t, err)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, domain.RoleUser, session.Messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, session.Messages[1].Role)
}

func TestRelaySubmitWithoutSession(t *testing.T) {
	srv, _, _ := newTestRelay(t)
	conn := dial(t, srv, "u1")

	send(t, conn, map[string]interface{}{"type": TypeSubmit, "request_id": "r1", "content": "hi"})
	f, _ := readUntil(t, conn, TypeError)
	assert.Equal(t, ErrorCodeNoActiveSession, f.Code)
	assert.Equal(t, "r1", f.RequestID)
}

func TestRelayRejectsBadFrames(t *testing.T) {
	srv, _, _ := newTestRelay(t)
	conn := dial(t, srv, "u1")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	f, _ := readUntil(t, conn, TypeError)
	assert.Equal(t, ErrorCodeInvalidMessage, f.Code)

	send(t, conn, map[string]interface{}{"type": "upload_resume"})
	f, _ = readUntil(t, conn, TypeError)
	assert.Equal(t, ErrorCodeInvalidMessage, f.Code)

	send(t, conn, map[string]interface{}{"type": TypeSwitchSession})
	f, _ = readUntil(t, conn, TypeError)
	assert.Equal(t, ErrorCodeInvalidMessage, f.Code)
}

func TestRelaySessionsAreScopedToUser(t *testing.T) {
	srv, svc, _ := newTestRelay(t)
	foreign, err := svc.CreateSession(context.Background(), "someone-else", domain.CreateSessionRequest{ThreadID: "t9"})
	require.NoError(t, err)

	conn := dial(t, srv, "u1")
	send(t, conn, map[string]interface{}{"type": TypeSwitchSession, "session_id": foreign.ID})
	f, _ := readUntil(t, conn, TypeError)
	assert.Equal(t, ErrorCodeNotFound, f.Code)
}

func TestRelayRestoreAndDelete(t *testing.T) {
	srv, svc, _ := newTestRelay(t)
	ctx := context.Background()
	older, err := svc.CreateSession(ctx, "u1", domain.CreateSessionRequest{ThreadID: "t1"})
	require.NoError(t, err)
	newer, err := svc.CreateSession(ctx, "u1", domain.CreateSessionRequest{ThreadID: "t2"})
	require.NoError(t, err)

	conn := dial(t, srv, "u1")
	send(t, conn, map[string]interface{}{"type": TypeRestore})
	ack, states := readUntil(t, conn, TypeAck)
	assert.Equal(t, newer.ID, ack.SessionID)
	last := states[len(states)-1]
	require.NotNil(t, last.Active)
	assert.Equal(t, "t2", last.Active.ThreadID)
	assert.Len(t, last.Summaries, 2)

	send(t, conn, map[string]interface{}{"type": TypeDeleteSession, "session_id": older.ID})
	ack, _ = readUntil(t, conn, TypeAck)
	assert.Equal(t, 1, ack.Deleted)

	send(t, conn, map[string]interface{}{"type": TypeDeleteAllSessions})
	ack, states = readUntil(t, conn, TypeAck)
	assert.Equal(t, 1, ack.Deleted)
	last = states[len(states)-1]
	assert.Nil(t, last.Active)
	assert.Empty(t, last.Summaries)
}

func TestRelayRequiresIdentity(t *testing.T) {
	srv, _, _ := newTestRelay(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRelayShutdownClosesConnections(t *testing.T) {
	srv, _, relay := newTestRelay(t)
	conn := dial(t, srv, "u1")
	readUntil(t, conn, TypeState)
	assert.Equal(t, 1, relay.Count())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, relay.Shutdown(ctx))
	assert.Equal(t, 0, relay.Count())
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrorCodeTurnInFlight, errorCode(chat.ErrTurnInFlight))
	assert.Equal(t, ErrorCodeCancelled, errorCode(context.Canceled))
	assert.Equal(t, ErrorCodeTimeout, errorCode(&domain.TimeoutError{Idle: time.Second}))
	assert.Equal(t, ErrorCodeUpstream, errorCode(&domain.UpstreamStreamError{Op: "stream"}))
	assert.Equal(t, ErrorCodePersistence, errorCode(&domain.PersistenceError{Op: "append"}))
	assert.Equal(t, ErrorCodeSessionBusy, errorCode(chat.ErrSessionBusy))
	assert.Equal(t, ErrorCodePersistence, errorCode(fmt.Errorf("%w: %w", chat.ErrNotPersisted, assert.AnError)))
	assert.Equal(t, ErrorCodeInternal, errorCode(assert.AnError))
}

func TestSendJSONClosesSlowConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		logger:      slog.New(slog.DiscardHandler),
		ctx:         ctx,
		cancel:      cancel,
		unsubscribe: func() {},
		send:        make(chan []byte, 1),
		done:        make(chan struct{}),
	}

	c.sendJSON(AckMessage{BaseMessage: c.base(TypeAck, "r1"), Op: TypeCancel})
	select {
	case <-c.done:
		t.Fatal("connection closed before its buffer filled")
	default:
	}

	c.sendJSON(TurnDoneMessage{BaseMessage: c.base(TypeTurnDone, "r2"), Text: "Hello"})
	select {
	case <-c.done:
	default:
		t.Fatal("connection left open after a frame could not be queued")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Len(t, c.send, 1)

	// Frames queued after close are discarded without blocking.
	c.sendJSON(AckMessage{BaseMessage: c.base(TypeAck, "r3"), Op: TypeCancel})
	assert.Len(t, c.send, 1)
}
