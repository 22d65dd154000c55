// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress carries pipeline events to the caller over a push-only
// stream. Events are delivered in emission order, exactly one terminal event
// (complete or error) ends the stream, and nothing is sent after the caller
// disconnects.
package progress

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

// Phase names one ordered stage of the pipeline. Each phase owns a disjoint
// slice of the 0-100 progress range so phase transitions never move the
// displayed percentage backward.
type Phase string

const (
	PhaseSearching  Phase = "searching"
	PhaseParsing    Phase = "parsing"
	PhaseGenerating Phase = "generating"
)

// EventType discriminates the wire envelope.
type EventType string

const (
	TypeProgress EventType = "progress"
	TypeComplete EventType = "complete"
	TypeError    EventType = "error"
)

// Update describes current pipeline activity.
type Update struct {
	Phase    Phase  `json:"phase"`
	Step     string `json:"step"`
	Progress int    `json:"progress"`
	Current  int    `json:"current,omitempty"`
	Total    int    `json:"total,omitempty"`
	Details  string `json:"details,omitempty"`
}

// Event is one message on the stream. Progress events carry an Update,
// complete events carry the final result, error events carry a message.
// On the wire both payload kinds travel under the "data" key; see
// MarshalJSON.
type Event struct {
	Type    EventType
	Data    *Update
	Result  *types.GenerationResult
	Error   string
	Details string
}

// eventWire is the JSON envelope consumers parse:
//
//	{"type":"progress","data":{...Update...}}
//	{"type":"complete","data":{...GenerationResult...}}
//	{"type":"error","error":"...","details":"..."}
type eventWire struct {
	Type    EventType       `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Details string          `json:"details,omitempty"`
}

// MarshalJSON writes the wire envelope, keying the progress update or the
// final result under "data" depending on the event type.
func (e Event) MarshalJSON() ([]byte, error) {
	w := eventWire{Type: e.Type, Error: e.Error, Details: e.Details}

	var payload any
	switch {
	case e.Data != nil:
		payload = e.Data
	case e.Result != nil:
		payload = e.Result
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		w.Data = data
	}
	return json.Marshal(w)
}

// UnmarshalJSON reverses MarshalJSON, decoding "data" by event type.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w eventWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = Event{Type: w.Type, Error: w.Error, Details: w.Details}
	if len(w.Data) == 0 {
		return nil
	}
	if w.Type == TypeComplete {
		e.Result = new(types.GenerationResult)
		return json.Unmarshal(w.Data, e.Result)
	}
	e.Data = new(Update)
	return json.Unmarshal(w.Data, e.Data)
}

// Sink is the orchestrator's side of the stream.
type Sink interface {
	// Progress pushes a non-terminal update. It reports false once the
	// stream is terminated or the caller has gone away, which the
	// orchestrator treats as a stop signal.
	Progress(u Update) bool

	// Complete pushes the terminal success event and ends the stream.
	Complete(result *types.GenerationResult)

	// Fail pushes the terminal error event and ends the stream.
	Fail(message, details string)
}

// Stream is a single-producer event channel tied to the caller's context.
// The pipeline run is the only sender; the transport (SSE writer or CLI
// renderer) is the only receiver.
type Stream struct {
	ctx context.Context
	ch  chan Event

	mu       sync.Mutex
	terminal bool
}

// NewStream returns a stream bound to ctx. When ctx is cancelled (caller
// disconnect), pending and future sends are abandoned.
func NewStream(ctx context.Context) *Stream {
	return &Stream{ctx: ctx, ch: make(chan Event, 16)}
}

// Events returns the receive side. The channel is closed after the terminal
// event is delivered.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Progress implements Sink.
func (s *Stream) Progress(u Update) bool {
	return s.send(Event{Type: TypeProgress, Data: &u})
}

// Complete implements Sink.
func (s *Stream) Complete(result *types.GenerationResult) {
	s.send(Event{Type: TypeComplete, Result: result})
}

// Fail implements Sink.
func (s *Stream) Fail(message, details string) {
	s.send(Event{Type: TypeError, Error: message, Details: details})
}

// send delivers ev in order. The first terminal event closes the channel;
// later sends of any kind are dropped.
func (s *Stream) send(ev Event) bool {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		return false
	}
	closing := ev.Type != TypeProgress
	if closing {
		s.terminal = true
	}
	s.mu.Unlock()

	select {
	case s.ch <- ev:
		if closing {
			close(s.ch)
		}
		return true
	case <-s.ctx.Done():
		if closing {
			close(s.ch)
		}
		return false
	}
}
