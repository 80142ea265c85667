package stream

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

const readChunkSize = 4096

// EmitFunc receives each non-terminal event and then the terminal one.
type EmitFunc func(domain.StreamEvent)

type readResult struct {
	data []byte
	err  error
}

// Decode reads body until the decoder emits a terminal event and returns
// that event. body is always closed before Decode returns.
//
// Cancelling ctx stops the read between chunks: no event is emitted after
// the cancellation is observed and ctx.Err() is returned. If idle is
// positive and no bytes arrive for that long, Decode returns a
// *domain.TimeoutError. An Error event from the agent, a read failure, or
// EOF before a terminal event return a *domain.UpstreamStreamError.
func Decode(ctx context.Context, body io.ReadCloser, dec *Decoder, idle time.Duration, emit EmitFunc) (domain.StreamEvent, error) {
	if emit == nil {
		emit = func(domain.StreamEvent) {}
	}
	defer dec.Close()
	// Closing the body unblocks the reader goroutine below.
	defer body.Close()

	chunks := make(chan readResult)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			buf := make([]byte, readChunkSize)
			n, err := body.Read(buf)
			select {
			case chunks <- readResult{data: buf[:n], err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var timeout <-chan time.Time
	var timer *time.Timer
	if idle > 0 {
		timer = time.NewTimer(idle)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return domain.StreamEvent{}, ctx.Err()

		case <-timeout:
			return domain.StreamEvent{}, &domain.TimeoutError{Idle: idle}

		case res := <-chunks:
			if len(res.data) > 0 {
				if timer != nil {
					timer.Reset(idle)
				}
				for _, ev := range dec.Feed(res.data) {
					if ctx.Err() != nil {
						return domain.StreamEvent{}, ctx.Err()
					}
					emit(ev)
					switch ev.Kind {
					case domain.EventDone:
						return ev, nil
					case domain.EventError:
						return ev, &domain.UpstreamStreamError{Op: "stream", Message: ev.Text}
					}
				}
			}
			if res.err != nil {
				if ctx.Err() != nil {
					return domain.StreamEvent{}, ctx.Err()
				}
				if errors.Is(res.err, io.EOF) {
					return domain.StreamEvent{}, &domain.UpstreamStreamError{Op: "stream", Message: "stream closed before completion"}
				}
				return domain.StreamEvent{}, &domain.UpstreamStreamError{Op: "read", Err: res.err}
			}
		}
	}
}
