package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// sseTransport posts each JSON-RPC request to cfg.URL and correlates its
// response out of a long-lived Server-Sent Events stream read from
// cfg.URL + "/events", the same persistent-connection shape a
// gorilla/websocket client would hold open, expressed in SSE framing since
// that is the wire format MCP servers speak over this transport.
type sseTransport struct {
	cfg    ServerConfig
	client *http.Client
	nextID atomic.Int64

	mu       sync.Mutex
	pending  map[int64]chan *jsonrpcResponse
	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup

	connected atomic.Bool
}

func newSSETransport(cfg ServerConfig) *sseTransport {
	return &sseTransport{
		cfg:      cfg,
		client:   &http.Client{Transport: authTransport(cfg)},
		pending:  map[int64]chan *jsonrpcResponse{},
		stopChan: make(chan struct{}),
	}
}

func (t *sseTransport) Connect(ctx context.Context) error {
	if t.cfg.URL == "" {
		return fmt.Errorf("mcp: URL is required for sse transport")
	}
	switch t.cfg.Auth {
	case AuthOAuth2:
		if _, err := oauthToken(ctx, t.cfg); err != nil {
			return fmt.Errorf("mcp: oauth2 token exchange: %w", err)
		}
	case AuthBearer:
		if err := checkBearerExpiry(t.cfg.BearerToken); err != nil {
			return err
		}
	}
	t.connected.Store(true)
	t.wg.Add(1)
	go t.readLoop(ctx)
	return nil
}

func (t *sseTransport) Close() error {
	t.connected.Store(false)
	t.stopOnce.Do(func() { close(t.stopChan) })
	t.wg.Wait()
	return nil
}

func (t *sseTransport) Connected() bool {
	return t.connected.Load()
}

func (t *sseTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !t.connected.Load() {
		return nil, fmt.Errorf("mcp: sse transport not connected")
	}

	id := t.nextID.Add(1)
	req := jsonrpcRequest{JSONRPC: "2.0", ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("mcp: marshal params: %w", err)
		}
		req.Params = raw
	}

	respChan := make(chan *jsonrpcResponse, 1)
	t.mu.Lock()
	t.pending[id] = respChan
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mcp: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range t.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("mcp: post request: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mcp: http %d posting request", resp.StatusCode)
	}

	select {
	case rpcResp := <-respChan:
		if rpcResp.Error != nil {
			return nil, fmt.Errorf("mcp: server error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
		}
		return rpcResp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.stopChan:
		return nil, fmt.Errorf("mcp: transport closed")
	}
}

func (t *sseTransport) readLoop(ctx context.Context) {
	defer t.wg.Done()

	eventsURL := strings.TrimSuffix(t.cfg.URL, "/") + "/events"

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopChan:
			return
		default:
		}

		t.consumeStream(ctx, eventsURL)

		select {
		case <-ctx.Done():
			return
		case <-t.stopChan:
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (t *sseTransport) consumeStream(ctx context.Context, eventsURL string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eventsURL, nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		if resp != nil {
			resp.Body.Close()
		}
		return
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		t.dispatch([]byte(strings.TrimPrefix(line, "data: ")))
	}
}

func (t *sseTransport) dispatch(data []byte) {
	var resp jsonrpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[resp.ID]
	t.mu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- &resp:
	default:
	}
}
