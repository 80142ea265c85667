// Package stream decodes the agent service's chat event stream.
//
// The agent answers POST /chat/stream with text/event-stream frames of the
// form
//
//	data: {"token":"..."}
//
// terminated by "data: [DONE]". Transport chunks do not respect line or JSON
// boundaries, so the Decoder buffers partial lines between calls to Feed.
package stream

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Decoder turns raw stream bytes into StreamEvents. It is not safe for
// concurrent use; one Decoder serves exactly one chat turn.
type Decoder struct {
	buf       []byte
	text      strings.Builder
	finished  bool
	discarded int
	logger    *slog.Logger
}

// NewDecoder returns a decoder for one stream. A nil logger discards the
// warnings emitted for unexpected payloads.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Decoder{logger: logger}
}

// Feed consumes one transport chunk and returns the events completed by it,
// in arrival order. Once a Done or Error event has been returned, Feed is a
// no-op.
func (d *Decoder) Feed(chunk []byte) []domain.StreamEvent {
	if d.finished {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var events []domain.StreamEvent
	for !d.finished {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimSuffix(d.buf[:i], []byte{'\r'}))
		d.buf = d.buf[i+1:]
		events = d.decodeLine(line, events)
	}

	if d.finished || len(d.buf) == 0 {
		d.buf = nil
	}
	return events
}

// Close stops the decoder and releases its buffer. Later Feed calls return
// nothing.
func (d *Decoder) Close() {
	d.finished = true
	d.buf = nil
}

// Finished reports whether a terminal event was emitted or Close was called.
func (d *Decoder) Finished() bool { return d.finished }

// Text returns the reply accumulated from token events so far.
func (d *Decoder) Text() string { return d.text.String() }

// Discarded returns the number of data lines dropped because their payload
// was not a JSON object.
func (d *Decoder) Discarded() int { return d.discarded }

func (d *Decoder) decodeLine(line string, events []domain.StreamEvent) []domain.StreamEvent {
	if !strings.HasPrefix(line, dataPrefix) {
		// blank separators, comments and other SSE fields
		return events
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])

	if payload == doneSentinel {
		d.finished = true
		return append(events, domain.StreamEvent{Kind: domain.EventDone, Text: d.text.String()})
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil || fields == nil {
		d.reject(payload, err)
		return events
	}
	var p domain.AgentStreamPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		d.reject(payload, err)
		return events
	}

	if p.Token == nil && p.Status == nil && p.Error == nil && p.Done == nil && p.FullResponse == nil {
		return append(events, domain.StreamEvent{Kind: domain.EventUnknown, Raw: json.RawMessage(payload)})
	}

	if p.Token != nil {
		d.text.WriteString(*p.Token)
		events = append(events, domain.StreamEvent{Kind: domain.EventToken, Text: d.text.String(), Delta: *p.Token})
	}
	if p.Status != nil {
		events = append(events, domain.StreamEvent{Kind: domain.EventStatus, Text: *p.Status})
	}
	if p.Error != nil {
		d.finished = true
		return append(events, domain.StreamEvent{Kind: domain.EventError, Text: *p.Error})
	}
	if p.Done != nil && *p.Done {
		d.finished = true
		final := d.text.String()
		if p.FullResponse != nil {
			final = *p.FullResponse
		}
		return append(events, domain.StreamEvent{Kind: domain.EventDone, Text: final})
	}
	return events
}

func (d *Decoder) reject(payload string, err error) {
	d.discarded++
	if payload != "" && !strings.HasPrefix(payload, "[") {
		d.logger.Warn("unexpected stream payload", "payload", payload, "error", err)
	}
}
