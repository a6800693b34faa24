// Package ftrack is a minimal client for the ftrack JSON API: queries, creates, deletes
// and batched commits.
package ftrack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	zlog "github.com/rs/zerolog/log"
)

type Options struct {
	ServerURL  string
	APIKey     string
	APIUser    string
	HTTPClient *http.Client
}

// Operation is a single entry of an API request.
type Operation struct {
	Action     string         `json:"action"`
	Expression string         `json:"expression,omitempty"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityData map[string]any `json:"entity_data,omitempty"`
	EntityKey  []string       `json:"entity_key,omitempty"`
}

// OperationResult is the server's answer to one Operation. Queries, creates and deletes
// fill Data; query_server_information fills the server fields.
type OperationResult struct {
	Action     string   `json:"action"`
	Data       []Entity `json:"data,omitempty"`
	Version    string   `json:"version,omitempty"`
	SchemaHash string   `json:"schema_hash,omitempty"`
}

// ServerInfo describes the server a session talks to.
type ServerInfo struct {
	Version    string
	SchemaHash string
}

// ServerError is returned when the server answers with an exception.
type ServerError struct {
	Status    int
	Exception string `json:"exception"`
	Content   string `json:"content"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("ftrack server error (%d) %s: %s", e.Status, e.Exception, e.Content)
}

// Session holds the connection settings and the operations waiting for Commit.
type Session struct {
	endpoint string
	apiKey   string
	apiUser  string
	client   *http.Client
	pending  []Operation
}

// NewSession validates the options; it does not contact the server.
func NewSession(opts Options) (*Session, error) {
	if opts.ServerURL == "" {
		return nil, errors.New("ftrack: server url is required")
	}
	if opts.APIKey == "" {
		return nil, errors.New("ftrack: api key is required")
	}
	endpoint, err := url.JoinPath(opts.ServerURL, "api")
	if err != nil {
		return nil, fmt.Errorf("ftrack: invalid server url: %w", err)
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Session{
		endpoint: endpoint,
		apiKey:   opts.APIKey,
		apiUser:  opts.APIUser,
		client:   client,
	}, nil
}

// Connect creates a session and queries the server information, so that a session that
// is returned has reached the server once.
func Connect(ctx context.Context, opts Options) (*Session, error) {
	s, err := NewSession(opts)
	if err != nil {
		return nil, err
	}
	info, err := s.ServerInformation(ctx)
	if err != nil {
		return nil, err
	}
	zlog.Debug().Str("engine", "ftrack").Str("version", info.Version).Msg("connected")
	return s, nil
}

// ServerInformation asks the server for its version and schema hash.
func (s *Session) ServerInformation(ctx context.Context) (ServerInfo, error) {
	results, err := s.Call(ctx, []Operation{{Action: "query_server_information"}})
	if err != nil {
		return ServerInfo{}, err
	}
	return ServerInfo{Version: results[0].Version, SchemaHash: results[0].SchemaHash}, nil
}

// Call sends the operations in one request and returns one result per operation.
func (s *Session) Call(ctx context.Context, ops []Operation) ([]OperationResult, error) {
	body, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ftrack-api-key", s.apiKey)
	if s.apiUser != "" {
		req.Header.Set("ftrack-user", s.apiUser)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ftrack request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// errors come back as an object, successful calls as a list
	trimmed := bytes.TrimSpace(data)
	if resp.StatusCode >= 300 || bytes.HasPrefix(trimmed, []byte("{")) {
		serverErr := &ServerError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(trimmed, serverErr); jsonErr != nil || serverErr.Exception == "" {
			serverErr.Exception = http.StatusText(resp.StatusCode)
			serverErr.Content = strings.TrimSpace(string(data))
		}
		return nil, serverErr
	}

	var results []OperationResult
	if err := json.Unmarshal(trimmed, &results); err != nil {
		return nil, fmt.Errorf("ftrack: malformed response: %w", err)
	}
	if len(results) != len(ops) {
		return nil, fmt.Errorf("ftrack: expected %d results, got %d", len(ops), len(results))
	}

	zlog.Debug().Str("engine", "ftrack").Int("operations", len(ops)).Msg("call")
	return results, nil
}

// Query prepares a query; nothing is sent until First or All is called.
func (s *Session) Query(expression string) *QueryResult {
	return &QueryResult{session: s, expression: expression}
}

// Pending returns the number of operations waiting for Commit.
func (s *Session) Pending() int {
	return len(s.pending)
}

// Commit sends every pending operation in a single request.
func (s *Session) Commit(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	ops := s.pending
	if _, err := s.Call(ctx, ops); err != nil {
		return err
	}
	s.pending = nil
	zlog.Debug().Str("engine", "ftrack").Int("operations", len(ops)).Msg("committed")
	return nil
}
