package lifecycle

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Signal names broadcast once per boot attempt.
const (
	SignalReady  = "app:ready"
	SignalFailed = "app:failed"
)

// Emission is the payload delivered to signal subscribers.
type Emission struct {
	Signal    string
	BootID    string
	Timestamp time.Time
	Err       error
}

// Signal is a named, replayable broadcast: it emits at most once per
// boot attempt, and subscribers attaching after the emission receive it
// immediately. A UI phase may optimistically pre-emit readiness; the
// second emission is a no-op, so observers see exactly one delivery.
type Signal struct {
	name   string
	logger *zap.Logger

	mu          sync.Mutex
	emitted     bool
	last        Emission
	subscribers map[int]func(Emission)
	nextID      int
}

// NewSignal creates a signal with the given name.
func NewSignal(name string, logger *zap.Logger) *Signal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Signal{
		name:        name,
		logger:      logger,
		subscribers: make(map[int]func(Emission)),
	}
}

// Name returns the signal name.
func (s *Signal) Name() string { return s.name }

// Emitted reports whether the signal fired during the current attempt.
func (s *Signal) Emitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitted
}

// Emit broadcasts the signal. Returns false when the signal already
// fired this attempt, in which case nothing is delivered.
func (s *Signal) Emit(bootID string, err error) bool {
	s.mu.Lock()
	if s.emitted {
		s.mu.Unlock()
		s.logger.Debug("duplicate signal emission suppressed",
			zap.String("signal", s.name),
		)
		return false
	}
	if bootID == "" {
		bootID = uuid.NewString()
	}
	s.emitted = true
	s.last = Emission{
		Signal:    s.name,
		BootID:    bootID,
		Timestamp: time.Now(),
		Err:       err,
	}
	subs := make([]func(Emission), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	emission := s.last
	s.mu.Unlock()

	for _, fn := range subs {
		fn(emission)
	}
	return true
}

// Subscribe registers an observer. If the signal already fired this
// attempt, the observer is replayed the last emission immediately. The
// returned function unsubscribes and is safe to call more than once.
func (s *Signal) Subscribe(fn func(Emission)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers[id] = fn
	replay := s.emitted
	emission := s.last
	s.mu.Unlock()

	if replay {
		fn(emission)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// Reset clears the emission latch for the next boot attempt. Subscribers
// stay registered.
func (s *Signal) Reset() {
	s.mu.Lock()
	s.emitted = false
	s.last = Emission{}
	s.mu.Unlock()
}
