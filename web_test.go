package audioremoted

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audioremote/audioremoted/internal/audio"
	"github.com/audioremote/audioremoted/internal/bridge"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*WebServer, *audio.MemoryDevice) {
	t.Helper()
	dev := audio.NewMemoryDevice("test device")
	controller, err := audio.NewController(audio.ControllerConfig{Device: dev})
	require.NoError(t, err)

	cfg := DefaultConfig()
	dispatcher := bridge.NewWSDispatcher(nil)
	correlator := bridge.NewCorrelator(dispatcher, 100*time.Millisecond, nil)
	dispatcher.SetConfirmFunc(correlator.Confirm)

	return NewWebServer(cfg, controller, correlator, dispatcher), dev
}

func doRequest(t *testing.T, s *WebServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.setupRouter().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStatusRoute(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["muted"])
}

func TestVolumeSetThenGet(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/volume/set", `{"volume":0.3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.3, decodeBody(t, w)["volume"].(float64), 1e-9)

	w = doRequest(t, s, http.MethodGet, "/volume", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.3, decodeBody(t, w)["volume"].(float64), 1e-9)
}

func TestVolumeSetRejectsOutOfRange(t *testing.T) {
	s, dev := newTestServer(t)
	require.NoError(t, dev.SetOutputVolume(0.5))

	tests := []struct {
		name string
		body string
	}{
		{"above range", `{"volume":1.5}`},
		{"below range", `{"volume":-0.2}`},
		{"missing field", `{}`},
		{"wrong type", `{"volume":"loud"}`},
		{"malformed json", `{volume:`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodPost, "/volume/set", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "error", decodeBody(t, w)["status"])
		})
	}

	// Rejected requests must not alter device volume.
	v, err := dev.OutputVolume()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-9)
}

func TestVolumeIncreaseDecrease(t *testing.T) {
	s, dev := newTestServer(t)
	require.NoError(t, dev.SetOutputVolume(0.5))

	w := doRequest(t, s, http.MethodPost, "/volume/increase", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.6, decodeBody(t, w)["volume"].(float64), 1e-9)

	w = doRequest(t, s, http.MethodPost, "/volume/decrease", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.5, decodeBody(t, w)["volume"].(float64), 1e-9)
}

func TestVolumeToggleMute(t *testing.T) {
	s, dev := newTestServer(t)
	require.NoError(t, dev.SetOutputVolume(0.8))

	w := doRequest(t, s, http.MethodPost, "/volume/toggle-mute", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decodeBody(t, w)["volume"].(float64))

	w = doRequest(t, s, http.MethodPost, "/volume/toggle-mute", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.8, decodeBody(t, w)["volume"].(float64), 1e-9)
}

func TestToggleMicTwiceWithoutBridge(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/toggle-mic", "")
	require.Equal(t, http.StatusOK, w.Code)
	first := decodeBody(t, w)
	assert.Equal(t, "ok", first["status"])

	w = doRequest(t, s, http.MethodPost, "/toggle-mic", "")
	require.Equal(t, http.StatusOK, w.Code)
	second := decodeBody(t, w)
	assert.Equal(t, "ok", second["status"])

	assert.NotEqual(t, first["muted"], second["muted"])
}

func TestToggleMicAdapterError(t *testing.T) {
	s, dev := newTestServer(t)
	dev.SetUnavailable(true)

	w := doRequest(t, s, http.MethodPost, "/toggle-mic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", decodeBody(t, w)["status"])
}

func TestBridgeConfirmWhileIdle(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/bridge/confirm", `{"id":"stale","muted":true}`)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "stale", decodeBody(t, w)["status"])
}

func TestBridgeConfirmRejectsMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/bridge/confirm", `{"id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthzRoute(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["bridge_connected"])
}

func newListeningServer(t *testing.T) *WebServer {
	t.Helper()
	dev := audio.NewMemoryDevice("test device")
	controller, err := audio.NewController(audio.ControllerConfig{Device: dev})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Server.Port = freePort(t)
	return NewWebServer(cfg, controller, nil, nil)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestStartStopIdempotent(t *testing.T) {
	s := newListeningServer(t)

	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	// Starting while already running is a no-op.
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.Running())
	// Stopping while not running is a no-op.
	require.NoError(t, s.Stop(ctx))
}

func TestStartReportsPortInUse(t *testing.T) {
	port := freePort(t)
	occupier, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	defer occupier.Close()

	dev := audio.NewMemoryDevice("test device")
	controller, err := audio.NewController(audio.ControllerConfig{Device: dev})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Server.Port = port
	s := NewWebServer(cfg, controller, nil, nil)

	err = s.Start()
	require.Error(t, err)
	assert.False(t, s.Running(), "server must remain stopped after a bind failure")
}

func TestServedEndpointRoundTrip(t *testing.T) {
	s := newListeningServer(t)
	require.NoError(t, s.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	}()

	client := &http.Client{Timeout: time.Second}
	resp, err := client.Post("http://"+s.Addr()+"/volume/set", "application/json", strings.NewReader(`{"volume":0.3}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get("http://" + s.Addr() + "/volume")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Volume float64 `json:"volume"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.InDelta(t, 0.3, body.Volume, 1e-9)
}
