package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PulseWatch/internal/backend/dependencies"
	"PulseWatch/internal/backend/handlers"
	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Публичный литеральный IP проходит проверку цели без DNS
const publicTarget = "http://93.184.216.34/"

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*Server, *dependencies.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	container, err := dependencies.NewContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	return New(&Config{Port: 0, Mode: "test", Version: "test"}, container), container
}

func do(t *testing.T, s *Server, method, path, owner string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(handlers.OwnerHeader, owner)
	}

	w := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func createMonitor(t *testing.T, s *Server, owner string) string {
	t.Helper()

	w, resp := do(t, s, http.MethodPost, "/api/v1/monitors", owner, map[string]any{
		"url":         publicTarget,
		"interval_ms": 60_000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		MonitorID string `json:"monitor_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.MonitorID)
	return data.MonitorID
}

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t)

	w, _ := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"memory"`)

	w, _ = do(t, s, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPrometheusEndpoint(t *testing.T) {
	s, c := newTestServer(t)
	c.Telemetry.RecordRun(10 * time.Millisecond)

	w, _ := do(t, s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pulsewatch_")
}

func TestOwnerHeaderRequired(t *testing.T) {
	s, _ := newTestServer(t)

	w, resp := do(t, s, http.MethodGet, "/api/v1/monitors", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing_owner", resp.Error)
}

func TestMonitorLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	id := createMonitor(t, s, "alice")

	w, resp := do(t, s, http.MethodGet, "/api/v1/monitors", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), id)
	assert.Contains(t, string(resp.Data), `"display_status":"unknown"`)

	w, resp = do(t, s, http.MethodPost, "/api/v1/monitors/"+id+"/pause", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "monitor_paused", resp.Message)
	assert.Contains(t, string(resp.Data), `"display_status":"paused"`)

	w, _ = do(t, s, http.MethodPost, "/api/v1/monitors/"+id+"/resume", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, s, http.MethodPut, "/api/v1/monitors/"+id+"/interval", "alice", map[string]any{"interval_ms": 12345})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_interval", resp.Error)

	w, _ = do(t, s, http.MethodPut, "/api/v1/monitors/"+id+"/interval", "alice", map[string]any{"interval_ms": 300_000})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, s, http.MethodPut, "/api/v1/monitors/"+id+"/assertions", "alice", models.AssertionConfig{
		Enabled:             true,
		AcceptedStatusCodes: "200-299",
		FollowRedirects:     true,
		MaxRedirects:        3,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, s, http.MethodPut, "/api/v1/monitors/"+id+"/assertions", "alice", models.AssertionConfig{
		Enabled:             true,
		AcceptedStatusCodes: "abc",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_assertions", resp.Error)

	w, resp = do(t, s, http.MethodGet, "/api/v1/monitors/"+id+"/assertions", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"accepted_status_codes":"200-299"`)

	w, _ = do(t, s, http.MethodDelete, "/api/v1/monitors/"+id, "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, s, http.MethodGet, "/api/v1/monitors/"+id, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp.Error)
}

func TestCreateMonitorRejections(t *testing.T) {
	s, _ := newTestServer(t)

	w, resp := do(t, s, http.MethodPost, "/api/v1/monitors", "alice", map[string]any{"url": "http://127.0.0.1/"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "target_blocked", resp.Error)

	w, resp = do(t, s, http.MethodPost, "/api/v1/monitors", "alice", map[string]any{"name": "no url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", resp.Error)
}

func TestForeignMonitorIsForbidden(t *testing.T) {
	s, _ := newTestServer(t)
	id := createMonitor(t, s, "alice")

	w, resp := do(t, s, http.MethodGet, "/api/v1/monitors/"+id+"/metrics", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", resp.Error)
}

func TestSLOEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	id := createMonitor(t, s, "alice")

	w, resp := do(t, s, http.MethodPut, "/api/v1/monitors/"+id+"/slo", "alice", map[string]any{"target_percent": 50})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_target_percent", resp.Error)

	w, _ = do(t, s, http.MethodPut, "/api/v1/monitors/"+id+"/slo", "alice", map[string]any{
		"enabled": true, "target_percent": 99.5, "window_days": 7,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, s, http.MethodGet, "/api/v1/monitors/"+id+"/slo/summary", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Summary struct {
			Enabled       bool     `json:"enabled"`
			TargetPercent float64  `json:"target_percent"`
			UptimePercent *float64 `json:"uptime_percent"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.True(t, data.Summary.Enabled)
	assert.InDelta(t, 99.5, data.Summary.TargetPercent, 1e-9)
	assert.Nil(t, data.Summary.UptimePercent)
}

func TestMaintenanceRejectsLiteralIPTarget(t *testing.T) {
	s, _ := newTestServer(t)
	id := createMonitor(t, s, "alice")

	start := time.Now().Add(time.Hour).UTC()
	w, resp := do(t, s, http.MethodPost, "/api/v1/monitors/"+id+"/maintenance", "alice", map[string]any{
		"title":     "upgrade",
		"starts_at": start,
		"ends_at":   start.Add(time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_target", resp.Error)

	w, resp = do(t, s, http.MethodGet, "/api/v1/monitors/"+id+"/maintenance", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"count":0`)
}

func TestIncidentEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	id := createMonitor(t, s, "alice")

	w, resp := do(t, s, http.MethodGet, "/api/v1/incidents?limit=abc", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_limit", resp.Error)

	w, resp = do(t, s, http.MethodGet, "/api/v1/incidents?sort=name", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_sort", resp.Error)

	w, resp = do(t, s, http.MethodGet, "/api/v1/monitors/"+id+"/incidents?order=asc&lookback_days=7", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"total":0`)

	w, resp = do(t, s, http.MethodPost, "/api/v1/incidents/hide", "alice", map[string]any{
		"monitor_id": id,
		"started_at": time.Now().Add(-time.Hour).UTC(),
		"reason":     "   ",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "reason_required", resp.Error)

	w, _ = do(t, s, http.MethodPost, "/api/v1/incidents/hide", "alice", map[string]any{
		"monitor_id": id,
		"started_at": time.Now().Add(-time.Hour).UTC(),
		"reason":     "provider outage, not ours",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestMetricsPayload(t *testing.T) {
	s, _ := newTestServer(t)
	id := createMonitor(t, s, "alice")

	w, resp := do(t, s, http.MethodGet, "/api/v1/monitors/"+id+"/metrics", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Metrics struct {
			Hourly     []json.RawMessage `json:"hourly"`
			Heatmap    []json.RawMessage `json:"heatmap"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Len(t, data.Metrics.Hourly, 24)
	assert.Len(t, data.Metrics.Heatmap, 365)
}

func TestEngineEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	w, resp := do(t, s, http.MethodPost, "/api/v1/engine/validate-target", "", map[string]any{"url": "http://10.0.0.1/"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"reason":"private_address"`)

	w, _ = do(t, s, http.MethodGet, "/api/v1/engine/telemetry", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, s, http.MethodPost, "/api/v1/engine/failsafe/reset", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"triggered":false`)
}

func TestTransitionsWebSocket(t *testing.T) {
	s, c := newTestServer(t)

	ts := httptest.NewServer(s.GetRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/transitions?owner=alice"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello apiResponse
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello.Message)

	// подписка регистрируется до приветствия
	require.Eventually(t, func() bool { return c.Hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, c.Hub.PublishTransition(ctx, &models.StatusTransition{MonitorID: "other", Owner: "bob", To: models.StatusOffline}))
	require.NoError(t, c.Hub.PublishTransition(ctx, &models.StatusTransition{MonitorID: "mine", Owner: "alice", To: models.StatusOffline}))

	var got models.StatusTransition
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "mine", got.MonitorID)
	assert.Equal(t, models.StatusOffline, got.To)
}
