// Package sse encodes the orchestrator's streaming events onto the wire and
// enforces the strict event ordering of spec §4.10: metadata →
// decontextualized? → token* → (corrections|done|error).
package sse

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	ginsse "github.com/gin-contrib/sse"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

// Encode renders a single SSEEvent to its wire representation
// ("event:<type>\ndata:<json>\n\n") using gin-contrib/sse, the same
// encoder `gin.Context.SSEvent` uses internally.
func Encode(event types.SSEEvent) ([]byte, error) {
	var buf bytes.Buffer
	if err := ginsse.Encode(&buf, ginsse.Event{Event: string(event.Type), Data: event.Data}); err != nil {
		return nil, fmt.Errorf("sse: encode %s event: %w", event.Type, err)
	}
	return buf.Bytes(), nil
}

type state int

const (
	stateInit state = iota
	stateMetadataSent
	stateStreaming
	stateTerminal
)

// Sequencer writes SSE events to w, refusing any call that would violate
// spec §4.10's event order so a pipeline bug fails loudly instead of
// shipping a malformed stream.
type Sequencer struct {
	w       io.Writer
	flusher http.Flusher
	state   state
}

// NewSequencer wraps w, flushing after every event when w implements
// http.Flusher (true for gin's response writer and httptest.ResponseRecorder).
func NewSequencer(w io.Writer) *Sequencer {
	flusher, _ := w.(http.Flusher)
	return &Sequencer{w: w, flusher: flusher}
}

func (s *Sequencer) write(event types.SSEEvent) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("sse: write %s event: %w", event.Type, err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Metadata emits the mandatory, always-first event.
func (s *Sequencer) Metadata(payload types.MetadataPayload) error {
	if s.state != stateInit {
		return fmt.Errorf("sse: metadata must be the first event")
	}
	if err := s.write(types.SSEEvent{Type: types.SSEMetadata, Data: payload}); err != nil {
		return err
	}
	s.state = stateMetadataSent
	return nil
}

// Decontextualized emits the optional rewritten-question event. It may only
// follow metadata and must precede the first token.
func (s *Sequencer) Decontextualized(payload types.DecontextualizedPayload) error {
	if s.state != stateMetadataSent {
		return fmt.Errorf("sse: decontextualized must immediately follow metadata and precede any token")
	}
	return s.write(types.SSEEvent{Type: types.SSEDecontextualized, Data: payload})
}

// Token emits one streamed token. May repeat any number of times between
// metadata and the terminal event.
func (s *Sequencer) Token(payload types.TokenPayload) error {
	if s.state == stateInit || s.state == stateTerminal {
		return fmt.Errorf("sse: token must follow metadata and precede done/error")
	}
	s.state = stateStreaming
	return s.write(types.SSEEvent{Type: types.SSEToken, Data: payload})
}

// Corrections emits the optional guardrail-corrections event. Must follow
// metadata and precede the terminal event.
func (s *Sequencer) Corrections(payload types.CorrectionsPayload) error {
	if s.state == stateInit || s.state == stateTerminal {
		return fmt.Errorf("sse: corrections must follow metadata and precede done/error")
	}
	return s.write(types.SSEEvent{Type: types.SSECorrections, Data: payload})
}

// Done emits the terminal success event, closing the sequence.
func (s *Sequencer) Done(payload types.DonePayload) error {
	if s.state == stateInit || s.state == stateTerminal {
		return fmt.Errorf("sse: done requires metadata to have already been sent")
	}
	if err := s.write(types.SSEEvent{Type: types.SSEDone, Data: payload}); err != nil {
		return err
	}
	s.state = stateTerminal
	return nil
}

// Error emits the terminal failure event, closing the sequence. Unlike
// Done, Error may follow metadata directly without any tokens (a mid-stream
// failure before generation starts).
func (s *Sequencer) Error(payload types.ErrorPayload) error {
	if s.state == stateTerminal {
		return fmt.Errorf("sse: stream already terminated")
	}
	if err := s.write(types.SSEEvent{Type: types.SSEError, Data: payload}); err != nil {
		return err
	}
	s.state = stateTerminal
	return nil
}

// Terminated reports whether a terminal event has already been sent,
// letting callers avoid double-closing a stream after a cancellation races
// the normal completion path.
func (s *Sequencer) Terminated() bool {
	return s.state == stateTerminal
}
