package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// OpState is the controller's lifecycle state.
type OpState int

const (
	StateIdle OpState = iota
	StateStarting
	StateRunning
	StateCompleted
	StateFailed
)

func (s OpState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Scope is the operation-scoping payload sent to the start endpoint.
type Scope struct {
	CourseIDs []string
	All       bool
}

// SingleKey returns the single-operation poll key for a scope, used when the
// start acknowledgment carries no batch id.
func (s Scope) SingleKey() string {
	if s.All {
		return "all"
	}
	if len(s.CourseIDs) > 0 {
		return s.CourseIDs[0]
	}
	return ""
}

// StartAck is the start endpoint's response. Status must be "started"; a
// present BatchID selects batch polling.
type StartAck struct {
	Status  string `json:"status"`
	BatchID string `json:"batch_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Starter begins a long-running operation on the backend.
type Starter interface {
	StartOperation(ctx context.Context, scope Scope) (*StartAck, error)
}

// ControllerConfig wires a Controller. Starter and Source are required.
type ControllerConfig struct {
	Starter Starter
	Source  Source
	Session SessionConfig

	Presenter  *Presenter
	Aggregator *Aggregator

	// SetTriggersEnabled toggles the start controls. Called with false
	// synchronously before the start request is sent (double-submit guard)
	// and with true again once the operation reaches a terminal state or
	// the start is rejected.
	SetTriggersEnabled func(enabled bool)

	// OnReload fires ReloadDelay after successful completion when
	// ReloadRelevant (if set) returns true. Server-rendered pages need a
	// refresh to show newly synced data.
	OnReload       func()
	ReloadRelevant func() bool
	ReloadDelay    time.Duration

	// Schedule defers f by d; defaults to time.AfterFunc.
	Schedule func(d time.Duration, f func()) (cancel func())
}

// Controller owns the "disable triggers, start, poll, terminal, re-enable"
// lifecycle of one operation at a time.
type Controller struct {
	cfg ControllerConfig

	mu      sync.Mutex
	state   OpState
	session *Session
	last    *Snapshot
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.ReloadDelay <= 0 {
		cfg.ReloadDelay = DefaultHideDelay
	}
	if cfg.Schedule == nil {
		cfg.Schedule = func(d time.Duration, f func()) func() {
			t := time.AfterFunc(d, f)
			return func() { t.Stop() }
		}
	}
	return &Controller{cfg: cfg, state: StateIdle}
}

// State returns the current lifecycle state.
func (c *Controller) State() OpState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastSnapshot returns the most recent snapshot seen, or nil.
func (c *Controller) LastSnapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Start runs the full lifecycle: triggers are disabled before the start
// request goes out, a poll session begins on a "started" acknowledgment, and
// triggers re-enable when the operation reaches a terminal state. A rejected
// start re-enables immediately and no session is created.
func (c *Controller) Start(ctx context.Context, scope Scope) error {
	c.mu.Lock()
	if c.state == StateStarting || c.state == StateRunning {
		c.mu.Unlock()
		return ErrOperationInFlight
	}
	c.state = StateStarting
	c.mu.Unlock()

	c.setTriggers(false)
	if c.cfg.Presenter != nil {
		c.cfg.Presenter.Reset()
	}

	ack, err := c.cfg.Starter.StartOperation(ctx, scope)
	if err != nil {
		c.reject(&StartRejectedError{Reason: "start request failed", Err: err})
		return &StartRejectedError{Reason: "start request failed", Err: err}
	}
	if ack == nil || ack.Status != "started" {
		reason := "unexpected start response"
		if ack != nil && ack.Error != "" {
			reason = ack.Error
		}
		rejErr := &StartRejectedError{Reason: reason}
		c.reject(rejErr)
		return rejErr
	}

	target := Target{Key: scope.SingleKey()}
	if ack.BatchID != "" {
		target = Target{BatchID: ack.BatchID}
	}
	slog.Info("operation started", "target", target.String())

	sess := NewSession(target, c.cfg.Source, c.sessionConfig())
	c.mu.Lock()
	c.state = StateRunning
	c.session = sess
	c.mu.Unlock()

	if err := sess.Start(ctx); err != nil {
		c.finish(&Snapshot{Status: StatusError, Message: err.Error()})
		return fmt.Errorf("poll session: %w", err)
	}
	return nil
}

// Stop cancels the running poll session, if any, and returns to idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.state = StateIdle
	c.mu.Unlock()

	if sess != nil {
		sess.Stop()
	}
	c.setTriggers(true)
}

func (c *Controller) sessionConfig() SessionConfig {
	cfg := c.cfg.Session
	userSnapshot := cfg.OnSnapshot
	cfg.OnSnapshot = func(snap *Snapshot) {
		c.mu.Lock()
		c.last = snap
		c.mu.Unlock()

		if c.cfg.Presenter != nil {
			c.cfg.Presenter.Observe(snap)
		}
		if c.cfg.Aggregator != nil && len(snap.SubStatuses) > 0 {
			c.cfg.Aggregator.Apply(snap.SubStatuses)
		}
		if userSnapshot != nil {
			userSnapshot(snap)
		}
	}
	userTerminal := cfg.OnTerminal
	cfg.OnTerminal = func(snap *Snapshot) {
		c.finish(snap)
		if userTerminal != nil {
			userTerminal(snap)
		}
	}
	return cfg
}

func (c *Controller) reject(err *StartRejectedError) {
	slog.Warn("operation start rejected", "reason", err.Reason)
	c.mu.Lock()
	c.state = StateFailed
	c.mu.Unlock()
	c.setTriggers(true)
}

func (c *Controller) finish(snap *Snapshot) {
	succeeded := snap.Status.Succeeded()

	c.mu.Lock()
	if succeeded {
		c.state = StateCompleted
	} else {
		c.state = StateFailed
	}
	c.session = nil
	c.mu.Unlock()

	c.setTriggers(true)

	if succeeded && c.cfg.OnReload != nil {
		c.cfg.Schedule(c.cfg.ReloadDelay, func() {
			if c.cfg.ReloadRelevant == nil || c.cfg.ReloadRelevant() {
				c.cfg.OnReload()
			}
		})
	}
}

func (c *Controller) setTriggers(enabled bool) {
	if c.cfg.SetTriggersEnabled != nil {
		c.cfg.SetTriggersEnabled(enabled)
	}
}
