package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"blocdesk/app/config"
	"blocdesk/app/service/classify"
	"blocdesk/app/service/content"
	"blocdesk/app/service/decision"
	"blocdesk/app/service/extract"
	"blocdesk/app/service/queue"
	"blocdesk/app/service/session"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)

	di := do.New()
	do.ProvideValue(di, catalog)
	do.ProvideValue(di, &config.Config{
		Server: config.Server{Addr: ":0"},
		Memory: config.Memory{Capacity: 100, TTLSeconds: 3600},
	})
	do.Provide(di, session.New)
	do.Provide(di, classify.New)
	do.Provide(di, extract.New)
	do.Provide(di, queue.New)
	do.Provide(di, content.New)
	do.Provide(di, decision.New)

	srv, err := New(di)
	require.NoError(t, err)

	return srv
}

func postJSON(t *testing.T, srv *Server, path string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.fiberApp.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestDecideEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/decide", map[string]string{
		"session_id": "s1",
		"message":    "I want a training",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		BlocID    string `json:"bloc_id"`
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	decodeBody(t, resp, &body)

	assert.Equal(t, "CATALOG_INTRO", body.BlocID)
	assert.Equal(t, "s1", body.SessionID)
	assert.NotEmpty(t, body.Text)
}

func TestDecideEndpoint_MissingFields(t *testing.T) {
	srv := newTestServer(t)

	for name, payload := range map[string]map[string]string{
		"no message":    {"session_id": "s1"},
		"no session id": {"message": "hello"},
	} {
		resp := postJSON(t, srv, "/decide", payload)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, name)

		var body struct {
			Status    string `json:"status"`
			ErrorType string `json:"error_type"`
		}
		decodeBody(t, resp, &body)
		assert.Equal(t, "error", body.Status, name)
		assert.Equal(t, "INVALID_INPUT", body.ErrorType, name)
	}
}

func TestDecideEndpoint_MalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/decide", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.fiberApp.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := srv.fiberApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
}

func TestSessionStateEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions/unknown", nil)
	resp, err := srv.fiberApp.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	postJSON(t, srv, "/decide", map[string]string{
		"session_id": "s2",
		"message":    "I want a training",
	})

	req = httptest.NewRequest(http.MethodGet, "/sessions/s2", nil)
	resp, err = srv.fiberApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state struct {
		LastBlocID     string   `json:"last_bloc_id"`
		PresentedBlocs []string `json:"presented_blocs"`
	}
	decodeBody(t, resp, &state)
	assert.Equal(t, "CATALOG_INTRO", state.LastBlocID)
	assert.Contains(t, state.PresentedBlocs, "CATALOG_INTRO")
}

func TestClearSessionEndpoint(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv, "/decide", map[string]string{
		"session_id": "s3",
		"message":    "hello",
	})

	req := httptest.NewRequest(http.MethodDelete, "/sessions/s3", nil)
	resp, err := srv.fiberApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/sessions/s3", nil)
	resp, err = srv.fiberApp.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv, "/decide", map[string]string{
		"session_id": "s4",
		"message":    "hello",
	})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	resp, err := srv.fiberApp.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		ActiveSessions int `json:"active_sessions"`
		Capacity       int `json:"capacity"`
	}
	decodeBody(t, resp, &stats)
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 100, stats.Capacity)
}
