package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/mantlecore/agentcore/core"
)

// httpStreamTransport exchanges JSON-RPC requests as chunked HTTP POSTs
// against a single endpoint URL. Auth is attached per-request via the
// authRoundTripper built from cfg.Auth.
type httpStreamTransport struct {
	cfg       ServerConfig
	client    *http.Client
	nextID    atomic.Int64
	connected atomic.Bool
}

func newHTTPStreamTransport(cfg ServerConfig) *httpStreamTransport {
	return &httpStreamTransport{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second, Transport: authTransport(cfg)},
	}
}

func (t *httpStreamTransport) Connect(ctx context.Context) error {
	if t.cfg.URL == "" {
		return fmt.Errorf("mcp: URL is required for http_stream transport")
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
	return nil
}

func (t *httpStreamTransport) Close() error {
	t.connected.Store(false)
	return nil
}

func (t *httpStreamTransport) Connected() bool {
	return t.connected.Load()
}

func (t *httpStreamTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !t.connected.Load() {
		return nil, fmt.Errorf("mcp: http_stream transport not connected")
	}

	req := jsonrpcRequest{JSONRPC: "2.0", ID: t.nextID.Add(1), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("mcp: marshal params: %w", err)
		}
		req.Params = raw
	}

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
		return nil, fmt.Errorf("mcp: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mcp: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mcp: http %d: %s", resp.StatusCode, string(raw))
	}

	var rpcResp jsonrpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, fmt.Errorf("mcp: decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("mcp: server error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

// authTransport wraps http.DefaultTransport to attach the configured auth
// scheme to every outbound request.
func authTransport(cfg ServerConfig) http.RoundTripper {
	switch cfg.Auth {
	case AuthBearer:
		return &bearerRoundTripper{token: cfg.BearerToken, base: http.DefaultTransport}
	case AuthOAuth2:
		return &oauthRoundTripper{cfg: cfg, base: http.DefaultTransport}
	default:
		return http.DefaultTransport
	}
}

type bearerRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (b *bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(clone)
}

type oauthRoundTripper struct {
	cfg  ServerConfig
	base http.RoundTripper
}

func (o *oauthRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := oauthToken(req.Context(), o.cfg)
	if err != nil {
		return nil, core.Wrap(core.ErrToolError, err)
	}
	clone := req.Clone(req.Context())
	tok.SetAuthHeader(clone)
	return o.base.RoundTrip(clone)
}

// oauthConfig builds the oauth2.Config for cfg's authorization-code flow,
// bound to a local loopback redirect listener (spec §6).
func oauthConfig(cfg ServerConfig, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		Scopes:       cfg.OAuthScopes,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.OAuthAuthURL,
			TokenURL: cfg.OAuthTokenURL,
		},
	}
}
