package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStarter struct {
	ack *StartAck
	err error

	mu    sync.Mutex
	calls int
}

func (f *fakeStarter) StartOperation(ctx context.Context, scope Scope) (*StartAck, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.ack, f.err
}

// triggerLog records enable/disable transitions of the start controls.
type triggerLog struct {
	mu     sync.Mutex
	states []bool
}

func (l *triggerLog) set(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, enabled)
}

func (l *triggerLog) snapshot() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool(nil), l.states...)
}

func TestController_StartRejectedOnTransportError(t *testing.T) {
	triggers := &triggerLog{}
	c := NewController(ControllerConfig{
		Starter:            &fakeStarter{err: errors.New("connection refused")},
		Source:             newStepSource(),
		SetTriggersEnabled: triggers.set,
	})

	err := c.Start(context.Background(), Scope{CourseIDs: []string{"101"}})
	var rej *StartRejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want StartRejectedError", err)
	}
	if c.State() != StateFailed {
		t.Errorf("state = %s, want failed", c.State())
	}

	// disabled before the request, re-enabled immediately on rejection
	states := triggers.snapshot()
	if len(states) != 2 || states[0] != false || states[1] != true {
		t.Errorf("trigger transitions = %v, want [false true]", states)
	}
}

func TestController_StartRejectedOnNonStartedBody(t *testing.T) {
	c := NewController(ControllerConfig{
		Starter: &fakeStarter{ack: &StartAck{Error: "no courses selected"}},
		Source:  newStepSource(),
	})

	err := c.Start(context.Background(), Scope{})
	var rej *StartRejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want StartRejectedError", err)
	}
	if rej.Reason != "no courses selected" {
		t.Errorf("reason = %q", rej.Reason)
	}
}

func TestController_RejectsConcurrentStart(t *testing.T) {
	src := newStepSource()
	c := NewController(ControllerConfig{
		Starter: &fakeStarter{ack: &StartAck{Status: "started"}},
		Source:  src,
		Session: SessionConfig{BaseInterval: time.Millisecond},
	})

	if err := c.Start(context.Background(), Scope{CourseIDs: []string{"101"}}); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	if err := c.Start(context.Background(), Scope{CourseIDs: []string{"102"}}); !errors.Is(err, ErrOperationInFlight) {
		t.Errorf("second start = %v, want ErrOperationInFlight", err)
	}
}

func TestController_BatchAckSelectsBatchPolling(t *testing.T) {
	src := newStepSource()
	c := NewController(ControllerConfig{
		Starter: &fakeStarter{ack: &StartAck{Status: "started", BatchID: "b-77"}},
		Source:  src,
		Session: SessionConfig{BaseInterval: time.Millisecond},
	})

	if err := c.Start(context.Background(), Scope{All: true}); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	call := src.next(t)
	if call.target.BatchID != "b-77" {
		t.Errorf("target = %+v, want batch b-77", call.target)
	}
	call.reply <- fetchReply{snap: &Snapshot{Status: StatusCompleted}}
}

func TestController_SingleAckPollsByScopeKey(t *testing.T) {
	src := newStepSource()
	c := NewController(ControllerConfig{
		Starter: &fakeStarter{ack: &StartAck{Status: "started"}},
		Source:  src,
		Session: SessionConfig{BaseInterval: time.Millisecond},
	})

	if err := c.Start(context.Background(), Scope{CourseIDs: []string{"314"}}); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	call := src.next(t)
	if call.target.IsBatch() || call.target.Key != "314" {
		t.Errorf("target = %+v, want single op 314", call.target)
	}
	call.reply <- fetchReply{snap: &Snapshot{Status: StatusCompleted}}
}

// Full single-course lifecycle: phase text and percentages per snapshot,
// success event, and reload scheduled after the auto-hide delay.
func TestController_SingleCourseLifecycle(t *testing.T) {
	src := newStepSource()
	triggers := &triggerLog{}

	var mu sync.Mutex
	var states []UIState
	var successMsg string

	presenter := NewPresenter(PresenterConfig{
		OnSuccess: func(msg string) { successMsg = msg },
		Schedule:  func(time.Duration, func()) func() { return func() {} },
	})

	var reloadDelay time.Duration
	reloadFired := make(chan struct{}, 1)
	done := make(chan *Snapshot, 1)

	c := NewController(ControllerConfig{
		Starter:   &fakeStarter{ack: &StartAck{Status: "started"}},
		Source:    src,
		Presenter: presenter,
		Session: SessionConfig{
			BaseInterval: time.Millisecond,
			OnSnapshot: func(s *Snapshot) {
				mu.Lock()
				states = append(states, presenter.Present(s))
				mu.Unlock()
			},
			OnTerminal: func(s *Snapshot) { done <- s },
		},
		SetTriggersEnabled: triggers.set,
		OnReload:           func() { reloadFired <- struct{}{} },
		ReloadRelevant:     func() bool { return true },
		Schedule: func(d time.Duration, f func()) func() {
			reloadDelay = d
			f()
			return func() {}
		},
	})

	if err := c.Start(context.Background(), Scope{CourseIDs: []string{"101"}}); err != nil {
		t.Fatal(err)
	}

	src.next(t).reply <- fetchReply{snap: &Snapshot{Status: StatusFetchingCourse, Current: 0, Total: 0}}
	src.next(t).reply <- fetchReply{snap: &Snapshot{Status: StatusInProgress, Current: 3, Total: 10}}
	src.next(t).reply <- fetchReply{snap: &Snapshot{
		Status: StatusCompleted, Current: 10, Total: 10, Message: "Sync completed successfully!",
	}}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("operation never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 3 {
		t.Fatalf("saw %d states, want 3", len(states))
	}
	if states[0].StatusText != "Fetching course information..." || states[0].Percent != 0 {
		t.Errorf("first state = %+v", states[0])
	}
	if states[1].Percent != 30 {
		t.Errorf("second state percent = %d, want 30", states[1].Percent)
	}
	if states[2].Percent != 100 || states[2].BarColor != BarSuccess {
		t.Errorf("final state = %+v", states[2])
	}

	if successMsg != "Sync completed successfully!" {
		t.Errorf("success message = %q", successMsg)
	}
	if reloadDelay != DefaultHideDelay {
		t.Errorf("reload delay = %v, want %v", reloadDelay, DefaultHideDelay)
	}
	select {
	case <-reloadFired:
	default:
		t.Error("reload did not fire")
	}

	states2 := triggers.snapshot()
	if len(states2) != 2 || states2[0] != false || states2[1] != true {
		t.Errorf("trigger transitions = %v, want [false true]", states2)
	}
	if c.State() != StateCompleted {
		t.Errorf("state = %s, want completed", c.State())
	}
}

func TestController_ReloadSkippedWhenNotRelevant(t *testing.T) {
	src := newStepSource()
	done := make(chan *Snapshot, 1)
	reloaded := false

	c := NewController(ControllerConfig{
		Starter: &fakeStarter{ack: &StartAck{Status: "started"}},
		Source:  src,
		Session: SessionConfig{
			BaseInterval: time.Millisecond,
			OnTerminal:   func(s *Snapshot) { done <- s },
		},
		OnReload:       func() { reloaded = true },
		ReloadRelevant: func() bool { return false },
		Schedule: func(d time.Duration, f func()) func() {
			f()
			return func() {}
		},
	})

	if err := c.Start(context.Background(), Scope{CourseIDs: []string{"101"}}); err != nil {
		t.Fatal(err)
	}
	src.next(t).reply <- fetchReply{snap: &Snapshot{Status: StatusCompleted}}
	<-done

	if reloaded {
		t.Error("reload fired despite relevance predicate returning false")
	}
}

func TestController_FailedOperation(t *testing.T) {
	src := newStepSource()
	done := make(chan *Snapshot, 1)

	agg := NewAggregator()
	c := NewController(ControllerConfig{
		Starter:    &fakeStarter{ack: &StartAck{Status: "started", BatchID: "b-1"}},
		Source:     src,
		Aggregator: agg,
		Session: SessionConfig{
			BaseInterval: time.Millisecond,
			OnTerminal:   func(s *Snapshot) { done <- s },
		},
	})

	if err := c.Start(context.Background(), Scope{All: true}); err != nil {
		t.Fatal(err)
	}

	src.next(t).reply <- fetchReply{snap: &Snapshot{
		Status: StatusError,
		Error:  "canvas returned 503",
		SubStatuses: map[string]*SubStatus{
			"1": {Status: StatusError},
			"2": {Status: StatusCompleted},
		},
	}}
	<-done

	if c.State() != StateFailed {
		t.Errorf("state = %s, want failed", c.State())
	}
	items := agg.Items()
	if items["1"].Percent != 100 || items["1"].BarColor != BarDanger {
		t.Errorf("errored sub-item = %+v", items["1"])
	}
	if items["2"].Percent != 100 || items["2"].BarColor != BarSuccess {
		t.Errorf("completed sub-item = %+v", items["2"])
	}
}
