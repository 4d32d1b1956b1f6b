package kodi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kodarr/internal/services"
)

const (
	jsonRPCVersion = "2.0"

	// DefaultCallTimeout bounds a single JSON-RPC call.
	DefaultCallTimeout = 5 * time.Second
	// CatalogCallTimeout bounds full-catalog queries.
	CatalogCallTimeout = 60 * time.Second
)

// Session performs JSON-RPC calls against one host. Implementations never retry.
type Session interface {
	Call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error)
	Close() error
}

// RemoteError is an error object returned in a JSON-RPC response envelope.
type RemoteError struct {
	Method  string          `json:"-"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RemoteError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("%s: remote error %d: %s (%s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("%s: remote error %d: %s", e.Method, e.Code, e.Message)
}

// Is matches services.ErrRemote.
func (e *RemoteError) Is(target error) bool {
	return target == services.ErrRemote
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result"`
	Error   *RemoteError    `json:"error"`
}

func encodeRequest(id int64, method string, params any) ([]byte, error) {
	payload, err := json.Marshal(rpcRequest{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: params})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "kodi", method, "encode request", err)
	}
	return payload, nil
}

func decodeResponse(method string, body []byte) (rpcResponse, error) {
	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return rpcResponse{}, services.Wrap(services.ErrProtocol, "kodi", method, "decode response", err)
	}
	return resp, nil
}

func resultOf(method string, resp rpcResponse) (json.RawMessage, error) {
	if resp.Error != nil {
		resp.Error.Method = method
		return nil, resp.Error
	}
	if len(resp.Result) == 0 {
		return nil, services.Wrap(services.ErrProtocol, "kodi", method, "response missing result", nil)
	}
	return resp.Result, nil
}

func effectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultCallTimeout
	}
	return timeout
}
