package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStreamTransport_CallRoundTrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tools/list", req.Method)

		resp := jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"tools":[]}`)}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	tr := newHTTPStreamTransport(ServerConfig{Transport: TransportHTTPStream, URL: srv.URL})
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Close()

	raw, err := tr.Call(context.Background(), "tools/list", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tools":[]}`, string(raw))
}

func TestHTTPStreamTransport_BearerAuthAttachesHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		resp := jsonrpcResponse{JSONRPC: "2.0", ID: 1, Result: json.RawMessage(`{}`)}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cfg := ServerConfig{Transport: TransportHTTPStream, URL: srv.URL, Auth: AuthBearer, BearerToken: "s3cr3t"}
	tr := newHTTPStreamTransport(cfg)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Close()

	_, err := tr.Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cr3t", gotAuth)
}

func TestHTTPStreamTransport_RejectsEmptyURL(t *testing.T) {
	tr := newHTTPStreamTransport(ServerConfig{Transport: TransportHTTPStream})
	err := tr.Connect(context.Background())
	assert.Error(t, err)
}

func TestHTTPStreamTransport_ServerErrorSurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	tr := newHTTPStreamTransport(ServerConfig{Transport: TransportHTTPStream, URL: srv.URL})
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Close()

	_, err := tr.Call(context.Background(), "tools/list", nil)
	assert.Error(t, err)
}
