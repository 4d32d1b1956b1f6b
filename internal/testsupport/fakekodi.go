package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"kodarr/internal/services/kodi"
)

// RPCHandler answers one JSON-RPC method. Returning a *kodi.RemoteError
// produces an error envelope; returning an HTTPStatus produces a bare HTTP
// error response.
type RPCHandler func(params map[string]any) (any, error)

// HTTPStatus makes the fake server answer with a non-2xx status.
type HTTPStatus int

func (s HTTPStatus) Error() string { return "http status " + strconv.Itoa(int(s)) }

// RPCCall is one request received by FakeKodi.
type RPCCall struct {
	Method string
	Params map[string]any
}

// FakeKodi is a scripted JSON-RPC server speaking both HTTP POST and
// WebSocket on /jsonrpc.
type FakeKodi struct {
	Server *httptest.Server

	mu       sync.Mutex
	handlers map[string]RPCHandler
	calls    []RPCCall
	user     string
	password string
}

// NewFakeKodi starts a server answering Ping, Version, and info booleans with
// Linux defaults. Unscripted methods answer "OK".
func NewFakeKodi(t testing.TB) *FakeKodi {
	t.Helper()

	f := &FakeKodi{handlers: map[string]RPCHandler{}}
	f.Result("JSONRPC.Ping", "pong")
	f.Result("JSONRPC.Version", map[string]any{"version": map[string]any{"major": 13, "minor": 5, "patch": 0}})
	f.Handle("XBMC.GetInfoBooleans", func(params map[string]any) (any, error) {
		out := map[string]any{}
		for _, name := range stringSlice(params["booleans"]) {
			out[name] = name == string(kodi.PlatformLinux)
		}
		return out, nil
	})
	f.Result("Player.GetActivePlayers", []any{})
	f.Result("VideoLibrary.GetMovies", map[string]any{"limits": map[string]any{"start": 0, "end": 0, "total": 0}})

	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Handle scripts a method.
func (f *FakeKodi) Handle(method string, handler RPCHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = handler
}

// Result scripts a method with a fixed result.
func (f *FakeKodi) Result(method string, result any) {
	f.Handle(method, func(map[string]any) (any, error) { return result, nil })
}

// RequireAuth rejects requests without the given basic credentials.
func (f *FakeKodi) RequireAuth(user, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user, f.password = user, password
}

// Calls returns the recorded requests for method, or all requests when method is empty.
func (f *FakeKodi) Calls(method string) []RPCCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RPCCall
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Address returns the server host and port.
func (f *FakeKodi) Address() (string, int) {
	host, portText, _ := net.SplitHostPort(strings.TrimPrefix(f.Server.URL, "http://"))
	port, _ := strconv.Atoi(portText)
	return host, port
}

// Endpoint returns the HTTP JSON-RPC URL.
func (f *FakeKodi) Endpoint() string { return f.Server.URL + "/jsonrpc" }

// WSEndpoint returns the WebSocket JSON-RPC URL.
func (f *FakeKodi) WSEndpoint() string {
	return "ws://" + strings.TrimPrefix(f.Server.URL, "http://") + "/jsonrpc"
}

type fakeRequest struct {
	ID     *int64         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

func (f *FakeKodi) authorized(r *http.Request) bool {
	f.mu.Lock()
	user, password := f.user, f.password
	f.mu.Unlock()
	if user == "" {
		return true
	}
	u, p, ok := r.BasicAuth()
	return ok && u == user && p == password
}

func (f *FakeKodi) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/jsonrpc" {
		http.NotFound(w, r)
		return
	}
	if !f.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		f.serveWebSocket(w, r)
		return
	}
	var req fakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	envelope, status := f.dispatch(req)
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope)
}

func (f *FakeKodi) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	ctx := context.Background()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req fakeRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		// Kodi interleaves notifications with responses.
		notice, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "Other.Notice", "params": map[string]any{}})
		if err := conn.Write(ctx, websocket.MessageText, notice); err != nil {
			return
		}
		envelope, status := f.dispatch(req)
		if status != 0 {
			envelope = map[string]any{"jsonrpc": "2.0", "id": req.ID, "error": map[string]any{"code": -32000, "message": http.StatusText(status)}}
		}
		payload, _ := json.Marshal(envelope)
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			return
		}
	}
}

func (f *FakeKodi) dispatch(req fakeRequest) (map[string]any, int) {
	f.mu.Lock()
	f.calls = append(f.calls, RPCCall{Method: req.Method, Params: req.Params})
	handler, ok := f.handlers[req.Method]
	f.mu.Unlock()

	envelope := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		envelope["result"] = "OK"
		return envelope, 0
	}
	result, err := handler(req.Params)
	if err != nil {
		var status HTTPStatus
		if errors.As(err, &status) {
			return nil, int(status)
		}
		var remote *kodi.RemoteError
		if errors.As(err, &remote) {
			envelope["error"] = map[string]any{"code": remote.Code, "message": remote.Message}
			return envelope, 0
		}
		envelope["error"] = map[string]any{"code": -32603, "message": err.Error()}
		return envelope, 0
	}
	envelope["result"] = result
	return envelope, 0
}

func stringSlice(value any) []string {
	items, _ := value.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// MovieJSON renders a movie the way VideoLibrary.GetMovies does.
func MovieJSON(m kodi.Movie) map[string]any {
	uniqueIDs := map[string]any{}
	if m.IMDB != "" {
		uniqueIDs["imdb"] = m.IMDB
	}
	if m.TMDB != "" {
		uniqueIDs["tmdb"] = m.TMDB
	}
	return map[string]any{
		"movieid":    m.ID,
		"label":      m.Title,
		"file":       m.File,
		"title":      m.Title,
		"year":       m.Year,
		"playcount":  m.Watched.PlayCount,
		"lastplayed": kodiTime(m.Watched.LastPlayed),
		"dateadded":  kodiTime(m.Watched.DateAdded),
		"resume":     map[string]any{"position": m.Watched.Resume.Position, "total": m.Watched.Resume.Total},
		"uniqueid":   uniqueIDs,
	}
}

func kodiTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(kodi.DateTimeLayout)
}
