package mcp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// oauthTokens caches the token obtained for each server config's client ID
// so the loopback flow only runs once per process per server.
var (
	oauthTokensMu sync.Mutex
	oauthTokens   = map[string]*oauth2.Token{}
)

// oauthToken returns a cached token for cfg, running the authorization-code
// loopback flow to obtain one if none is cached yet. The redirect listener
// binds to an unused port in [1024, 65535] (spec §6) chosen by the OS via
// ":0" rather than a fixed port, since the spec only requires the port lie
// in that range, not that it be predetermined.
func oauthToken(ctx context.Context, cfg ServerConfig) (*oauth2.Token, error) {
	oauthTokensMu.Lock()
	if tok, ok := oauthTokens[cfg.ID]; ok && tok.Valid() {
		oauthTokensMu.Unlock()
		return tok, nil
	}
	oauthTokensMu.Unlock()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("mcp: bind loopback redirect listener: %w", err)
	}
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("mcp: loopback port %d outside allowed range", port)
	}
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	oauthCfg := oauthConfig(cfg, redirectURL)

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("mcp: oauth callback missing code")
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		codeChan <- code
		fmt.Fprint(w, "authentication complete, you may close this window")
	})

	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Close()

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("mcp: exchange authorization code: %w", err)
	}

	oauthTokensMu.Lock()
	oauthTokens[cfg.ID] = tok
	oauthTokensMu.Unlock()

	return tok, nil
}
