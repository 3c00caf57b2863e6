// Package bridge routes microphone toggles through a browser extension when
// the active audio consumer is a web video-call app. The extension observes
// the in-page mute control and confirms the resulting state; the Correlator
// matches each outbound toggle event with its confirmation.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/audioremote/audioremoted/internal/logging"
)

// Status classifies the outcome of a bridged toggle.
type Status string

const (
	StatusOK         Status = "ok"
	StatusTimeout    Status = "timeout"
	StatusSuperseded Status = "superseded"
)

// DefaultConfirmWindow bounds how long a bridged toggle waits for the
// extension to confirm before reporting a timeout.
const DefaultConfirmWindow = 5 * time.Second

var (
	// ErrNoExtension is returned when a toggle is requested while no
	// extension socket is connected.
	ErrNoExtension = errors.New("no browser extension connected")
	// ErrStaleConfirmation is returned for confirmations that do not match
	// the outstanding correlation. Stale confirmations are discarded.
	ErrStaleConfirmation = errors.New("confirmation does not match the outstanding correlation")
)

// EventToggleMic is the event type dispatched to the extension.
const EventToggleMic = "toggle-mic"

// Event is the outbound message to the browser extension. The ID is the
// correlation token the confirmation must carry (or omit, in which case it is
// attributed to the outstanding correlation).
type Event struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Result is the terminal outcome of one correlation.
type Result struct {
	Status Status
	Muted  bool
}

// Dispatcher delivers events to the extension transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
	Connected() bool
}

// pendingRequest is the single-slot correlation cell. The done channel is
// buffered so the resolving side never blocks; whichever of confirmation,
// timeout or supersession lands first wins and the loser's write is dropped
// with the slot.
type pendingRequest struct {
	id        string
	createdAt time.Time
	done      chan Result
}

// Correlator implements the Idle -> AwaitingConfirmation -> {Resolved,
// TimedOut, Superseded} -> Idle state machine over a single pending slot.
type Correlator struct {
	mu      sync.Mutex
	pending *pendingRequest

	dispatcher Dispatcher
	window     time.Duration
	logger     *zerolog.Logger
}

// NewCorrelator constructs a Correlator around a dispatcher. A zero window
// selects DefaultConfirmWindow.
func NewCorrelator(dispatcher Dispatcher, window time.Duration, logger *zerolog.Logger) *Correlator {
	if window <= 0 {
		window = DefaultConfirmWindow
	}
	if logger == nil {
		logger = logging.GetSubsystemLogger("bridge")
	}
	return &Correlator{
		dispatcher: dispatcher,
		window:     window,
		logger:     logger,
	}
}

// Pending reports whether a correlation is outstanding.
func (c *Correlator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Toggle dispatches a toggle event to the extension and suspends the caller
// until the extension confirms, the window elapses, or a later toggle
// supersedes this one. The wait is a per-request channel select; no lock is
// held across it, so other callers stay serviceable.
//
// A toggle arriving while one is outstanding supersedes it: the earlier
// caller is unblocked with StatusSuperseded so it can never hang.
func (c *Correlator) Toggle(ctx context.Context) (Result, error) {
	if !c.dispatcher.Connected() {
		return Result{}, ErrNoExtension
	}

	p := &pendingRequest{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		done:      make(chan Result, 1),
	}

	c.mu.Lock()
	if prev := c.pending; prev != nil {
		select {
		case prev.done <- Result{Status: StatusSuperseded}:
		default:
		}
		c.logger.Info().Str("superseded_id", prev.id).Str("id", p.id).Msg("superseding pending bridge correlation")
		recordSuperseded()
	}
	c.pending = p
	c.mu.Unlock()

	if err := c.dispatcher.Dispatch(ctx, Event{Type: EventToggleMic, ID: p.id}); err != nil {
		c.clearIfCurrent(p)
		return Result{}, err
	}
	recordDispatched()
	c.logger.Debug().Str("id", p.id).Msg("toggle event dispatched, awaiting confirmation")

	timer := time.NewTimer(c.window)
	defer timer.Stop()

	select {
	case res := <-p.done:
		// Resolution cancels the deadline timer (deferred Stop) so a stray
		// timeout can never fire against a reused slot.
		c.clearIfCurrent(p)
		if res.Status == StatusOK {
			recordResolved()
		}
		return res, nil

	case <-timer.C:
		c.clearIfCurrent(p)
		recordTimedOut()
		c.logger.Warn().Str("id", p.id).Dur("window", c.window).Msg("bridge confirmation window elapsed")
		return Result{Status: StatusTimeout}, nil

	case <-ctx.Done():
		c.clearIfCurrent(p)
		return Result{}, ctx.Err()
	}
}

// Confirm resolves the outstanding correlation with the mute state observed
// by the extension. An empty id is attributed to the outstanding correlation;
// a mismatched or late id is discarded with ErrStaleConfirmation and cannot
// affect the next correlation.
func (c *Correlator) Confirm(id string, muted bool) error {
	c.mu.Lock()
	p := c.pending
	if p == nil || (id != "" && id != p.id) {
		c.mu.Unlock()
		recordStale()
		c.logger.Debug().Str("id", id).Msg("discarding stale bridge confirmation")
		return ErrStaleConfirmation
	}
	c.pending = nil
	c.mu.Unlock()

	select {
	case p.done <- Result{Status: StatusOK, Muted: muted}:
	default:
	}
	return nil
}

func (c *Correlator) clearIfCurrent(p *pendingRequest) {
	c.mu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.mu.Unlock()
}
