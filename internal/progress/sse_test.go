// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

func TestWriteSSEHeadersAndFraming(t *testing.T) {
	s := NewStream(context.Background())
	go func() {
		s.Progress(Update{Phase: PhaseSearching, Step: "searching competitors", Progress: 5})
		s.Complete(&types.GenerationResult{Fields: map[string]string{"title": "Snake"}})
	}()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := WriteSSE(w, r, s.Events(), time.Minute); err != nil {
			t.Errorf("WriteSSE: %v", err)
		}
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}

	var payloads []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			payloads = append(payloads, strings.TrimPrefix(line, "data: "))
		}
	}
	if len(payloads) != 2 {
		t.Fatalf("got %d data frames, want 2: %v", len(payloads), payloads)
	}

	var first Event
	if err := json.Unmarshal([]byte(payloads[0]), &first); err != nil {
		t.Fatalf("frame 0 not JSON: %v", err)
	}
	if first.Type != TypeProgress || first.Data == nil || first.Data.Phase != PhaseSearching {
		t.Errorf("frame 0 = %+v", first)
	}

	var last Event
	if err := json.Unmarshal([]byte(payloads[1]), &last); err != nil {
		t.Fatalf("frame 1 not JSON: %v", err)
	}
	if last.Type != TypeComplete || last.Result == nil || last.Result.Fields["title"] != "Snake" {
		t.Errorf("frame 1 = %+v", last)
	}

	// Check the raw envelope keys too: both payload kinds travel under
	// "data", so a consumer parsing the documented shape sees the result.
	for i, payload := range payloads {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if _, ok := raw["data"]; !ok {
			t.Errorf("frame %d has no \"data\" key: %s", i, payload)
		}
		if _, ok := raw["result"]; ok {
			t.Errorf("frame %d leaks a \"result\" key: %s", i, payload)
		}
	}
}

func TestWriteSSEHeartbeatOnIdleStream(t *testing.T) {
	s := NewStream(context.Background())
	go func() {
		// Long silence before the terminal event forces heartbeats.
		time.Sleep(80 * time.Millisecond)
		s.Fail("done", "")
	}()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteSSE(w, r, s.Events(), 20*time.Millisecond)
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	heartbeats := 0
	frames := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ":") {
			heartbeats++
		}
		if strings.HasPrefix(line, "data: ") {
			frames++
		}
	}
	if heartbeats == 0 {
		t.Error("expected at least one keep-alive comment on idle stream")
	}
	if frames != 1 {
		t.Errorf("got %d data frames, want 1", frames)
	}
}
