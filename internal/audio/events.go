package audio

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// StateChangeKind identifies which aspect of the audio state changed.
type StateChangeKind string

const (
	StateChangeMute   StateChangeKind = "mute-changed"
	StateChangeVolume StateChangeKind = "volume-changed"
)

// StateChange is delivered to subscribers when the controller mutates device
// state. Notifications are decoupled from any UI thread affinity: each
// subscriber owns a buffered channel and slow subscribers lose events rather
// than block the controller.
type StateChange struct {
	Kind   StateChangeKind `json:"kind"`
	Muted  bool            `json:"muted,omitempty"`
	Volume float64         `json:"volume,omitempty"`
	At     time.Time       `json:"at"`
}

type subscriptions struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan StateChange
	logger *zerolog.Logger
}

func newSubscriptions(logger *zerolog.Logger) *subscriptions {
	return &subscriptions{
		subs:   make(map[int]chan StateChange),
		logger: logger,
	}
}

// subscribe returns a receive channel and a cancel func. A zero or negative
// buffer gets a small default.
func (s *subscriptions) subscribe(buffer int) (<-chan StateChange, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan StateChange, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *subscriptions) notifyMuteChanged(muted bool) {
	s.notify(StateChange{Kind: StateChangeMute, Muted: muted, At: time.Now()})
}

func (s *subscriptions) notifyVolumeChanged(volume float64) {
	s.notify(StateChange{Kind: StateChangeVolume, Volume: volume, At: time.Now()})
}

func (s *subscriptions) notify(change StateChange) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, ch := range s.subs {
		select {
		case ch <- change:
		default:
			s.logger.Debug().Int("subscriber", id).Str("kind", string(change.Kind)).Msg("subscriber channel full, dropping state change")
		}
	}
}
