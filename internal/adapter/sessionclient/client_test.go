package sessionclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/chat"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/config"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/logging"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/service"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/testutil"
	transport "github.com/TheIchigoSimp/HackNova-Hackathon/internal/transport/http"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/transport/ws"
)

var _ chat.Sessions = (*Client)(nil)

// newTestServer runs the real REST surface over an in-memory store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		PersistTimeout:   time.Second,
		SessionListLimit: 20,
		MaxMessageBytes:  1024,
		UserIDHeader:     "X-User-ID",
		WSPingInterval:   time.Second,
		WSWriteTimeout:   time.Second,
		WSReadTimeout:    time.Second,
		WSMaxMessageSize: 4096,
	}
	svc := service.New(testutil.NewTestSQLiteStore(t), nil, cfg, testutil.NewTestPolicyEngine(t), nil)
	relay := ws.NewRelay(cfg, func(userID string) chat.Sessions { return svc.ForUser(userID) }, nil, nil)
	srv := httptest.NewServer(transport.NewServer(svc, relay, cfg, logging.Discard()))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL+"/", "u1", "")
	ctx := context.Background()

	current, err := client.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	session, err := client.Create(ctx, domain.CreateSessionRequest{ThreadID: "t1", Filename: "cv.pdf"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSessionTitle, session.Title)

	_, err = client.Append(ctx, domain.AppendMessageRequest{SessionID: session.ID, Role: domain.RoleUser, Content: "Is this ATS friendly?"})
	require.NoError(t, err)
	// No session id appends to the most recent session.
	updated, err := client.Append(ctx, domain.AppendMessageRequest{Role: domain.RoleAssistant, Content: "Mostly."})
	require.NoError(t, err)
	require.Len(t, updated.Messages, 2)
	assert.Equal(t, domain.RoleAssistant, updated.Messages[1].Role)

	title := "Data roles"
	renamed, err := client.Update(ctx, session.ID, domain.UpdateSessionRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, renamed.Title)

	summaries, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, title, summaries[0].Title)

	transcript, err := client.Export(ctx, session.ID, "jsonl")
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "ATS friendly")

	deleted, err := client.Delete(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	n, err := client.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClientMapsErrors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	owner := NewClient(srv.URL, "u1", "")
	other := NewClient(srv.URL, "u2", "")

	session, err := owner.Create(ctx, domain.CreateSessionRequest{ThreadID: "t1"})
	require.NoError(t, err)

	_, err = other.Get(ctx, session.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, session.ID, notFound.ID)

	_, err = owner.Append(ctx, domain.AppendMessageRequest{SessionID: session.ID, Role: "system", Content: "x"})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "role", validation.Field)

	_, err = owner.Export(ctx, session.ID, "pdf")
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "format", validation.Field)
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewClient(srv.URL, "u1", "").List(context.Background())
	var persistence *domain.PersistenceError
	require.ErrorAs(t, err, &persistence)
	assert.Equal(t, "list", persistence.Op)
}

func TestClientMissingIdentity(t *testing.T) {
	srv := newTestServer(t)

	_, err := NewClient(srv.URL, "", "").List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
