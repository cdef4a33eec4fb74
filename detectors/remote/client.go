// Package remote holds the HTTP plumbing shared by detectors that call a
// detection service over JSON.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/SamuelRCrider/redact-go/core"
)

// StatusError is returned when a service answers with a non-200 status
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Endpoint joins a base URL and a path without doubling slashes
func Endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// PostJSON posts body as JSON to url and decodes a 200 response into out
func PostJSON(ctx context.Context, client *http.Client, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ByteRange converts a character range reported by a service into byte
// offsets. ok is false for ranges that are empty, reversed or out of bounds.
func ByteRange(offsets *core.RuneOffsets, start, end int) (int, int, bool) {
	if start >= end {
		return 0, 0, false
	}
	bs, ok := offsets.Byte(start)
	if !ok {
		return 0, 0, false
	}
	be, ok := offsets.Byte(end)
	if !ok {
		return 0, 0, false
	}
	return bs, be, true
}
