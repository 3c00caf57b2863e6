package bridge

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/audioremote/audioremoted/internal/logging"
)

// confirmation is the inbound message from the extension. The ID echoes the
// correlation token from the toggle event; older extension builds omit it.
type confirmation struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Muted bool   `json:"muted"`
}

// eventMicState is the confirmation message type the extension sends back.
const eventMicState = "mic-state"

// ConfirmFunc receives confirmations read off extension sockets.
type ConfirmFunc func(id string, muted bool) error

// extensionConn is a connected extension socket.
type extensionConn struct {
	conn   *websocket.Conn
	ctx    context.Context
	logger *zerolog.Logger
}

// WSDispatcher fans toggle events out to connected extension sockets and
// feeds their confirmations back into the correlator. In practice a single
// extension is connected; the map shape keeps reconnects and multi-profile
// browsers from fighting over one slot.
type WSDispatcher struct {
	mu           sync.RWMutex
	subscribers  map[string]*extensionConn
	confirm      ConfirmFunc
	writeTimeout time.Duration
	logger       *zerolog.Logger
}

// NewWSDispatcher constructs a dispatcher. SetConfirmFunc must be called
// before the first extension attaches.
func NewWSDispatcher(logger *zerolog.Logger) *WSDispatcher {
	if logger == nil {
		logger = logging.GetSubsystemLogger("bridge-ws")
	}
	return &WSDispatcher{
		subscribers:  make(map[string]*extensionConn),
		writeTimeout: 2 * time.Second,
		logger:       logger,
	}
}

// SetConfirmFunc wires the confirmation sink (the correlator's Confirm).
func (d *WSDispatcher) SetConfirmFunc(fn ConfirmFunc) {
	d.mu.Lock()
	d.confirm = fn
	d.mu.Unlock()
}

// Connected reports whether at least one extension socket is attached.
// Bridge mode is active exactly while this holds.
func (d *WSDispatcher) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers) > 0
}

// Attach registers an extension socket and blocks reading confirmations from
// it until the socket closes or ctx is canceled.
func (d *WSDispatcher) Attach(ctx context.Context, connectionID string, conn *websocket.Conn) {
	scoped := d.logger.With().Str("connectionID", connectionID).Logger()

	d.mu.Lock()
	if _, exists := d.subscribers[connectionID]; exists {
		scoped.Debug().Msg("duplicate extension subscription detected; replacing existing entry")
		delete(d.subscribers, connectionID)
	}
	d.subscribers[connectionID] = &extensionConn{conn: conn, ctx: ctx, logger: &scoped}
	n := len(d.subscribers)
	d.mu.Unlock()

	scoped.Info().Int("extensions", n).Msg("browser extension attached")
	d.readLoop(ctx, connectionID, conn, &scoped)
}

func (d *WSDispatcher) readLoop(ctx context.Context, connectionID string, conn *websocket.Conn, logger *zerolog.Logger) {
	defer d.detach(connectionID)

	for {
		var msg confirmation
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if isExpectedCloseError(err) {
				logger.Debug().Err(err).Msg("extension socket closed")
			} else {
				logger.Warn().Err(err).Msg("failed to read from extension socket")
			}
			return
		}

		if msg.Type != eventMicState {
			logger.Debug().Str("type", msg.Type).Msg("ignoring unknown extension message")
			continue
		}

		d.mu.RLock()
		confirm := d.confirm
		d.mu.RUnlock()
		if confirm == nil {
			logger.Warn().Msg("confirmation received before correlator wiring")
			continue
		}
		if err := confirm(msg.ID, msg.Muted); err != nil {
			logger.Debug().Err(err).Str("id", msg.ID).Msg("confirmation discarded")
		}
	}
}

func (d *WSDispatcher) detach(connectionID string) {
	d.mu.Lock()
	delete(d.subscribers, connectionID)
	n := len(d.subscribers)
	d.mu.Unlock()
	d.logger.Info().Str("connectionID", connectionID).Int("extensions", n).Msg("browser extension detached")
}

// Dispatch writes the event to every attached extension socket. Sockets that
// fail the write are pruned. Returns ErrNoExtension when nothing is attached.
func (d *WSDispatcher) Dispatch(ctx context.Context, ev Event) error {
	d.mu.RLock()
	subscribersCopy := make(map[string]*extensionConn, len(d.subscribers))
	for id, sub := range d.subscribers {
		subscribersCopy[id] = sub
	}
	d.mu.RUnlock()

	if len(subscribersCopy) == 0 {
		return ErrNoExtension
	}

	var failed []string
	for connectionID, sub := range subscribersCopy {
		if !d.sendToExtension(ctx, sub, ev) {
			failed = append(failed, connectionID)
		}
	}

	if len(failed) > 0 {
		d.mu.Lock()
		for _, connectionID := range failed {
			delete(d.subscribers, connectionID)
			d.logger.Warn().Str("connectionID", connectionID).Msg("removed failed extension socket")
		}
		remaining := len(d.subscribers)
		d.mu.Unlock()
		if remaining == 0 && len(failed) == len(subscribersCopy) {
			return ErrNoExtension
		}
	}
	return nil
}

func (d *WSDispatcher) sendToExtension(ctx context.Context, sub *extensionConn, ev Event) bool {
	if sub.ctx.Err() != nil {
		return false
	}

	writeCtx, cancel := context.WithTimeout(ctx, d.writeTimeout)
	defer cancel()

	if err := wsjson.Write(writeCtx, sub.conn, ev); err != nil {
		if isExpectedCloseError(err) {
			sub.logger.Debug().Err(err).Msg("extension socket closed during event send")
		} else {
			sub.logger.Warn().Err(err).Msg("failed to send event to extension")
		}
		return false
	}
	return true
}

func isExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "use of closed network connection") ||
		strings.Contains(s, "connection reset by peer") ||
		strings.Contains(s, "context canceled") ||
		websocket.CloseStatus(err) != -1
}
