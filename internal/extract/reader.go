// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// readerAPIBase is the reader provider endpoint; the target URL is appended
// as the path. Declared as a var so tests can substitute an httptest server.
var readerAPIBase = "https://r.jina.ai/"

// maxBodyBytes caps how much of a response body is read. Reader output for
// a single page should never be near this.
const maxBodyBytes = 2 << 20

// readerFetch asks the reader provider for a text rendering of pageURL.
func (e *Extractor) readerFetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, readerAPIBase+pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	if e.cfg.ReaderAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.ReaderAPIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading extraction response: %w", err)
	}

	body := strings.TrimSpace(string(data))
	if body == "" {
		return "", fmt.Errorf("extraction provider returned empty content")
	}
	// Some providers answer HTTP 200 with an error payload instead of a
	// failure status.
	if msg, ok := embeddedError(body); ok {
		return "", fmt.Errorf("extraction provider error: %s", msg)
	}

	return body, nil
}

// embeddedError detects HTTP-200 responses whose body is itself an error
// report: a JSON object carrying an "error"/"message" pair, or a plain-text
// error line.
func embeddedError(body string) (string, bool) {
	if strings.HasPrefix(body, "{") {
		var probe struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Code    int    `json:"code"`
		}
		if err := json.Unmarshal([]byte(body), &probe); err == nil {
			if probe.Error != "" {
				return probe.Error, true
			}
			if probe.Code >= 400 && probe.Message != "" {
				return probe.Message, true
			}
		}
		return "", false
	}

	firstLine := body
	if i := strings.IndexByte(body, '\n'); i > 0 {
		firstLine = body[:i]
	}
	lower := strings.ToLower(strings.TrimSpace(firstLine))
	if strings.HasPrefix(lower, "error:") || strings.HasPrefix(lower, "failed to ") {
		return strings.TrimSpace(firstLine), true
	}
	return "", false
}
