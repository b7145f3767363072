package progress

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultBaseInterval is the poll interval while the backend is healthy.
	DefaultBaseInterval = 2 * time.Second
	// DefaultMaxInterval caps backoff growth under transport failures.
	DefaultMaxInterval = 30 * time.Second
	// DefaultFetchTimeout bounds a single progress fetch. A timeout counts
	// as a transport failure.
	DefaultFetchTimeout = 10 * time.Second
	// DefaultFailThreshold is how many consecutive empty or failed
	// responses terminate the session with a synthetic error.
	DefaultFailThreshold = 5

	backoffFactor = 1.5
)

// trackingFailedMessage is the synthetic error surfaced when the failure
// threshold is crossed.
const trackingFailedMessage = "Progress tracking failed"

// Target identifies what a session polls: a batch id when BatchID is set,
// otherwise a single operation keyed by Key.
type Target struct {
	BatchID string
	Key     string
}

func (t Target) IsBatch() bool { return t.BatchID != "" }

func (t Target) String() string {
	if t.IsBatch() {
		return "batch:" + t.BatchID
	}
	return "op:" + t.Key
}

// Source fetches one progress snapshot for a target. Implementations must
// wrap network/HTTP failures in *TransportError and malformed bodies in
// *ProtocolError so the poller can apply the right retry policy.
type Source interface {
	Fetch(ctx context.Context, target Target) (*Snapshot, error)
}

// SessionConfig configures one polling session. Zero values pick defaults.
type SessionConfig struct {
	BaseInterval  time.Duration
	MaxInterval   time.Duration
	FetchTimeout  time.Duration
	FailThreshold int

	// OnSnapshot receives every valid snapshot, plus the synthetic error
	// snapshot when the failure threshold is crossed.
	OnSnapshot func(*Snapshot)
	// OnTerminal fires exactly once when the session ends with a terminal
	// snapshot (real or synthesized). It is not called on Stop.
	OnTerminal func(*Snapshot)
}

func (c *SessionConfig) applyDefaults() {
	if c.BaseInterval <= 0 {
		c.BaseInterval = DefaultBaseInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.FailThreshold <= 0 {
		c.FailThreshold = DefaultFailThreshold
	}
}

// Session is one client-side polling run bound to one operation. At most one
// fetch is in flight at any time: the next tick is armed only after the
// current fetch settles, never from a free-running ticker. A generation
// counter guards against a fetch that resolves after Stop.
type Session struct {
	cfg    SessionConfig
	target Target
	source Source

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	failures int
	active   bool
	gen      uint64
	timer    *time.Timer
}

// NewSession creates a session. Call Start to begin polling.
func NewSession(target Target, source Source, cfg SessionConfig) *Session {
	cfg.applyDefaults()
	return &Session{
		cfg:      cfg,
		target:   target,
		source:   source,
		interval: cfg.BaseInterval,
	}
}

// Start begins polling immediately. Cancelling ctx stops the session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrOperationInFlight
	}
	if s.ctx != nil {
		s.mu.Unlock()
		return ErrSessionStopped
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.active = true
	gen := s.gen
	s.mu.Unlock()

	context.AfterFunc(s.ctx, s.Stop)
	go s.pollOnce(gen)
	return nil
}

// Stop deactivates the session and cancels any pending timer. Idempotent and
// safe to call from any callback, including from within OnSnapshot: a fetch
// resolving after Stop applies nothing, enforced by the generation check.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Active reports whether the session is still polling.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Interval returns the current poll interval.
func (s *Session) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Failures returns the consecutive empty/failed response count.
func (s *Session) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

func (s *Session) pollOnce(gen uint64) {
	s.mu.Lock()
	if !s.active || gen != s.gen {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.mu.Unlock()

	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	snap, err := s.source.Fetch(fctx, s.target)
	cancel()

	s.mu.Lock()
	if !s.active || gen != s.gen {
		s.mu.Unlock()
		return
	}

	switch {
	case err != nil:
		if ctx.Err() != nil {
			// session context cancelled mid-fetch
			s.mu.Unlock()
			return
		}
		s.failures++
		slog.Debug("progress poll failed", "target", s.target.String(), "failures", s.failures, "error", err)
		if s.failures >= s.cfg.FailThreshold {
			s.terminateLocked()
			return
		}
		if isTransport(err) {
			s.interval = growInterval(s.interval, s.cfg.MaxInterval)
		}
		s.armLocked(gen)

	case snap.IsEmpty():
		s.failures++
		if s.failures >= s.cfg.FailThreshold {
			s.terminateLocked()
			return
		}
		// no data yet: retry at the current interval unchanged
		s.armLocked(gen)

	default:
		s.failures = 0
		s.interval = s.cfg.BaseInterval
		terminal := snap.Status.Terminal()
		if terminal {
			s.active = false
		}
		s.mu.Unlock()

		if s.cfg.OnSnapshot != nil {
			s.cfg.OnSnapshot(snap)
		}
		if terminal {
			if s.cfg.OnTerminal != nil {
				s.cfg.OnTerminal(snap)
			}
			return
		}

		s.mu.Lock()
		if !s.active || gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.armLocked(gen)
	}
}

// armLocked schedules the next poll and releases the lock.
func (s *Session) armLocked(gen uint64) {
	s.timer = time.AfterFunc(s.interval, func() { s.pollOnce(gen) })
	s.mu.Unlock()
}

// terminateLocked ends the session with the synthetic tracking-failed
// snapshot and releases the lock before invoking callbacks.
func (s *Session) terminateLocked() {
	s.active = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	slog.Warn("progress tracking failed", "target", s.target.String(), "failures", s.cfg.FailThreshold)
	synth := &Snapshot{Status: StatusError, Message: trackingFailedMessage}
	if s.cfg.OnSnapshot != nil {
		s.cfg.OnSnapshot(synth)
	}
	if s.cfg.OnTerminal != nil {
		s.cfg.OnTerminal(synth)
	}
}

func isTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

func growInterval(cur, max time.Duration) time.Duration {
	next := time.Duration(float64(cur) * backoffFactor)
	if next > max {
		return max
	}
	return next
}
