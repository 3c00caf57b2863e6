package audioremoted

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/audioremote/audioremoted/internal/audio"
	"github.com/audioremote/audioremoted/internal/bridge"
	"github.com/audioremote/audioremoted/internal/logging"
)

// ErrServerRunning is returned by Start when the endpoint is already serving.
var ErrServerRunning = errors.New("control endpoint already running")

// WebServer is the local HTTP control endpoint. All collaborators are
// injected at construction; there are no process-wide singletons behind it.
type WebServer struct {
	controller *audio.Controller
	correlator *bridge.Correlator
	dispatcher *bridge.WSDispatcher

	bridgeEnabled bool
	addr          string
	logger        *zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server
}

// NewWebServer wires the control endpoint. The correlator and dispatcher may
// be nil when bridge mode is disabled.
func NewWebServer(cfg Config, controller *audio.Controller, correlator *bridge.Correlator, dispatcher *bridge.WSDispatcher) *WebServer {
	return &WebServer{
		controller:    controller,
		correlator:    correlator,
		dispatcher:    dispatcher,
		bridgeEnabled: cfg.Bridge.Enabled && correlator != nil && dispatcher != nil,
		addr:          cfg.Server.ListenAddr(),
		logger:        logging.GetSubsystemLogger("web"),
	}
}

// Addr returns the address the endpoint is configured to bind.
func (s *WebServer) Addr() string { return s.addr }

// Running reports whether the endpoint is currently serving.
func (s *WebServer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// Start binds the listener and begins serving. Starting while already running
// is a no-op. A bind failure (such as the port being in use) is returned to
// the caller and the endpoint stays stopped.
func (s *WebServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{Handler: s.setupRouter()}

	s.listener = listener
	s.srv = srv

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("control endpoint stopped unexpectedly")
		}
	}()

	s.logger.Info().Str("addr", s.addr).Msg("control endpoint listening")
	return nil
}

// Stop shuts the endpoint down gracefully. Stopping while not running is a
// no-op.
func (s *WebServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info().Msg("control endpoint stopped")
	return nil
}

func (s *WebServer) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/status", s.handleStatus)
	r.GET("/volume", s.handleGetVolume)
	r.POST("/toggle-mic", s.handleToggleMic)

	r.POST("/volume/increase", s.handleVolumeIncrease)
	r.POST("/volume/decrease", s.handleVolumeDecrease)
	r.POST("/volume/toggle-mute", s.handleVolumeToggleMute)
	r.POST("/volume/set", s.handleVolumeSet)

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/bridge/ws", s.handleBridgeWS)
	r.POST("/bridge/confirm", s.handleBridgeConfirm)

	return r
}

func (s *WebServer) adapterError(c *gin.Context, err error) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("adapter call failed")
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
}

func (s *WebServer) handleStatus(c *gin.Context) {
	muted, err := s.controller.Muted()
	if err != nil {
		s.adapterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": muted})
}

func (s *WebServer) handleGetVolume(c *gin.Context) {
	volume, err := s.controller.Volume()
	if err != nil {
		s.adapterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"volume": volume})
}

// handleToggleMic toggles the microphone. When bridge mode is active and an
// extension is connected the toggle is routed through the correlator and the
// response is suspended until confirmation or timeout; otherwise the adapter
// is driven directly.
func (s *WebServer) handleToggleMic(c *gin.Context) {
	if s.bridgeEnabled && s.dispatcher.Connected() {
		res, err := s.correlator.Toggle(c.Request.Context())
		switch {
		case errors.Is(err, bridge.ErrNoExtension):
			// Extension went away between the check and the dispatch; fall
			// through to the adapter.
		case err != nil:
			s.adapterError(c, err)
			return
		case res.Status == bridge.StatusOK:
			c.JSON(http.StatusOK, gin.H{"status": "ok", "muted": res.Muted})
			return
		default:
			// Timeout is not a server error: the in-page toggle may still
			// have happened on the extension side.
			c.JSON(http.StatusOK, gin.H{"status": string(res.Status)})
			return
		}
	}

	muted, err := s.controller.ToggleMute()
	if err != nil {
		s.adapterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "muted": muted})
}

func (s *WebServer) handleVolumeIncrease(c *gin.Context) {
	volume, err := s.controller.Increase()
	if err != nil {
		s.adapterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"volume": volume})
}

func (s *WebServer) handleVolumeDecrease(c *gin.Context) {
	volume, err := s.controller.Decrease()
	if err != nil {
		s.adapterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"volume": volume})
}

func (s *WebServer) handleVolumeToggleMute(c *gin.Context) {
	volume, err := s.controller.ToggleOutputMute()
	if err != nil {
		s.adapterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"volume": volume})
}

type volumeSetRequest struct {
	Volume *float64 `json:"volume"`
}

func (s *WebServer) handleVolumeSet(c *gin.Context) {
	var req volumeSetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Volume == nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "body must be {\"volume\": <float>}"})
		return
	}
	if err := audio.ValidateVolume(*req.Volume); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if err := s.controller.SetVolume(*req.Volume); err != nil {
		s.adapterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"volume": *req.Volume})
}

// handleBridgeWS upgrades the extension socket and blocks pumping
// confirmations until it closes.
func (s *WebServer) handleBridgeWS(c *gin.Context) {
	if !s.bridgeEnabled {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "bridge mode disabled"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// The extension connects from a chrome-extension:// origin.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("extension websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	connectionID := uuid.NewString()
	s.dispatcher.Attach(c.Request.Context(), connectionID, conn)
}

type bridgeConfirmRequest struct {
	ID    string `json:"id"`
	Muted *bool  `json:"muted"`
}

// handleBridgeConfirm is the REST fallback for extensions that cannot hold a
// websocket open (e.g. MV3 service workers being suspended).
func (s *WebServer) handleBridgeConfirm(c *gin.Context) {
	if !s.bridgeEnabled {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "bridge mode disabled"})
		return
	}

	var req bridgeConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Muted == nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "body must be {\"id\": <string>, \"muted\": <bool>}"})
		return
	}

	if err := s.correlator.Confirm(req.ID, *req.Muted); err != nil {
		c.JSON(http.StatusGone, gin.H{"status": "stale"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
