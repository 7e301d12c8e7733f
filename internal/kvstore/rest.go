package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RestStore talks to an Upstash-style KV REST API:
//
//	GET  {base}/get/{key}  -> {"result": "<value>" | null}
//	POST {base}/set/{key}  body: JSON-encoded value string -> {"result":"OK"}
//
// Requests carry a bearer token. All calls use a 10s timeout.
type RestStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRestStore creates a REST KV client for the given endpoint and token.
func NewRestStore(baseURL, token string) *RestStore {
	return &RestStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Get fetches the raw value stored at key. A null result means the key
// does not exist.
func (s *RestStore) Get(ctx context.Context, key string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/get/"+url.PathEscape(key), nil)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("%w: GET %s returned %d", ErrUnavailable, key, resp.StatusCode)
	}

	var parsed struct {
		Result *string `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	if parsed.Result == nil {
		return "", false, nil
	}
	return *parsed.Result, true, nil
}

// Set stores value at key, replacing any previous value.
func (s *RestStore) Set(ctx context.Context, key, value string) error {
	// The REST API expects the value as a JSON string in the request body.
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/set/"+url.PathEscape(key), bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: SET %s returned %d", ErrUnavailable, key, resp.StatusCode)
	}
	return nil
}

// Ping issues a GET for a throwaway key to verify connectivity.
func (s *RestStore) Ping(ctx context.Context) error {
	_, _, err := s.Get(ctx, "dgb:ping")
	return err
}

// Name identifies the backend.
func (s *RestStore) Name() string { return "rest" }

// Close is a no-op; the REST client holds no persistent connections.
func (s *RestStore) Close() error { return nil }
