package kodi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"kodarr/internal/services"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPSession posts JSON-RPC requests to http://address:port/jsonrpc.
type HTTPSession struct {
	endpoint string
	user     string
	password string
	client   HTTPDoer
	nextID   atomic.Int64
}

// NewHTTPSession constructs an HTTP session. A nil client uses a dedicated
// http.Client so CloseIdleConnections on Close does not touch other users.
func NewHTTPSession(endpoint, user, password string, client HTTPDoer) *HTTPSession {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPSession{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		user:     user,
		password: password,
		client:   client,
	}
}

// HTTPEndpoint renders the JSON-RPC URL for a host.
func HTTPEndpoint(address string, port int) string {
	return fmt.Sprintf("http://%s/jsonrpc", net.JoinHostPort(address, fmt.Sprint(port)))
}

// Call implements Session.
func (s *HTTPSession) Call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	id := s.nextID.Add(1)
	payload, err := encodeRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, effectiveTimeout(timeout))
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "kodi", method, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.user != "" {
		req.SetBasicAuth(s.user, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(callCtx, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(callCtx, method, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrAuth, "kodi", method, fmt.Sprintf("http status %d, check credentials", resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, services.Wrap(services.ErrProtocol, "kodi", method, fmt.Sprintf("http status %d: %s", resp.StatusCode, snippet(body)), nil)
	}

	decoded, err := decodeResponse(method, body)
	if err != nil {
		return nil, err
	}
	return resultOf(method, decoded)
}

// Close releases idle connections.
func (s *HTTPSession) Close() error {
	if closer, ok := s.client.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	return nil
}

func classifyTransportError(ctx context.Context, method string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "kodi", method, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "kodi", method, "request timed out", err)
	}
	return services.Wrap(services.ErrConnection, "kodi", method, "request failed", err)
}

func snippet(body []byte) string {
	const limit = 200
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
