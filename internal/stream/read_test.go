package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

func TestDecodeReturnsDone(t *testing.T) {
	var got []domain.StreamEvent
	final, err := Decode(context.Background(), io.NopCloser(strings.NewReader(scoreStream)), NewDecoder(nil), time.Second, func(ev domain.StreamEvent) {
		got = append(got, ev)
	})

	require.NoError(t, err)
	assert.Equal(t, "The score is 82.", final.Text)
	require.Len(t, got, 5)
	assert.Equal(t, domain.EventStatus, got[2].Kind)
	assert.Equal(t, final, got[4])
}

func TestDecodeErrorEvent(t *testing.T) {
	body := io.NopCloser(strings.NewReader("data: {\"token\":\"x\"}\ndata: {\"error\":\"rate limited\"}\n"))
	final, err := Decode(context.Background(), body, NewDecoder(nil), 0, nil)

	var upstream *domain.UpstreamStreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "rate limited", upstream.Message)
	assert.Equal(t, domain.EventError, final.Kind)
}

func TestDecodePrematureEOF(t *testing.T) {
	body := io.NopCloser(strings.NewReader("data: {\"token\":\"half\"}\n"))
	_, err := Decode(context.Background(), body, NewDecoder(nil), 0, nil)

	var upstream *domain.UpstreamStreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, upstream.Message, "before completion")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestDecodeReadFailure(t *testing.T) {
	_, err := Decode(context.Background(), io.NopCloser(failingReader{}), NewDecoder(nil), 0, nil)

	var upstream *domain.UpstreamStreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "read", upstream.Op)
	assert.EqualError(t, errors.Unwrap(upstream), "connection reset")
}

func TestDecodeIdleTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	go func() {
		_, _ = pw.Write([]byte("data: {\"token\":\"slow\"}\n"))
	}()

	var got []domain.StreamEvent
	_, err := Decode(context.Background(), pr, NewDecoder(nil), 50*time.Millisecond, func(ev domain.StreamEvent) {
		got = append(got, ev)
	})

	var timeout *domain.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 50*time.Millisecond, timeout.Idle)
	require.Len(t, got, 1)

	// The pipe was closed by Decode, so further writes fail.
	_, werr := pw.Write([]byte("data: [DONE]\n"))
	assert.ErrorIs(t, werr, io.ErrClosedPipe)
}

func TestDecodeCancellationStopsEvents(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	first := make(chan struct{})
	var got []domain.StreamEvent
	done := make(chan error, 1)
	go func() {
		_, err := Decode(ctx, pr, NewDecoder(nil), 0, func(ev domain.StreamEvent) {
			got = append(got, ev)
			if len(got) == 1 {
				close(first)
			}
		})
		done <- err
	}()

	_, _ = pw.Write([]byte("data: {\"token\":\"a\"}\n"))
	<-first
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Decode did not return after cancellation")
	}
	_, werr := pw.Write([]byte("data: {\"token\":\"b\"}\n"))
	assert.Error(t, werr)
	assert.Len(t, got, 1)
}
