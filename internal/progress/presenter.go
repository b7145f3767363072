package progress

import (
	"fmt"
	"sync"
	"time"
)

// DefaultHideDelay is how long a finished progress surface stays visible
// after a successful terminal snapshot.
const DefaultHideDelay = 3 * time.Second

// BarColor classifies how the progress bar should be rendered.
type BarColor string

const (
	BarNeutral BarColor = "neutral"
	BarSuccess BarColor = "success"
	BarDanger  BarColor = "danger"
)

// UIState is the pure rendering model derived from one snapshot. Adapters
// (terminal writer, web UI) consume it; the core never touches a UI surface.
type UIState struct {
	Percent    int
	BarColor   BarColor
	StatusText string
	Message    string
	IsTerminal bool
}

// TextSet carries the context-dependent display strings. Course syncs and
// generic batch operations word the same phases differently.
type TextSet struct {
	Pending        string
	InProgress     string
	Completed      string
	DefaultMessage string
}

// SyncTexts is the wording for Canvas course sync operations.
var SyncTexts = TextSet{
	Pending:        "Preparing to sync...",
	InProgress:     "Sync in progress...",
	Completed:      "Sync completed successfully!",
	DefaultMessage: "Syncing...",
}

// GenericTexts is the wording for other long-running operations.
var GenericTexts = TextSet{
	Pending:        "Preparing...",
	InProgress:     "In progress...",
	Completed:      "Completed",
	DefaultMessage: "Processing...",
}

// StatusText resolves the display string for a status. Unrecognized values
// fall back to "Status: {status}" so new backend phases degrade gracefully.
func StatusText(s Status, errDetail string, texts TextSet) string {
	switch s {
	case StatusPending:
		return texts.Pending
	case StatusFetchingCourse:
		return "Fetching course information..."
	case StatusFetchingEnrollments:
		return "Fetching student and instructor enrollments..."
	case StatusFetchingUsers:
		return "Fetching user details and email addresses..."
	case StatusFetchingAssignments:
		return "Fetching assignments..."
	case StatusFetchingSubmissions:
		return "Fetching assignment submissions..."
	case StatusProcessingSubmissions:
		return "Processing assignment submissions..."
	case StatusSavingData:
		return "Saving data to database..."
	case StatusInProgress:
		return texts.InProgress
	case StatusProcessing:
		return "Processing..."
	case StatusCompleted, StatusSuccess:
		return texts.Completed
	case StatusError:
		if errDetail == "" {
			errDetail = "Unknown error"
		}
		return "Error: " + errDetail
	default:
		return fmt.Sprintf("Status: %s", string(s))
	}
}

func colorFor(s Status) BarColor {
	switch {
	case s == StatusError:
		return BarDanger
	case s.Succeeded():
		return BarSuccess
	default:
		return BarNeutral
	}
}

// PresenterConfig configures a Presenter. All callbacks are optional.
type PresenterConfig struct {
	Texts     TextSet
	HideDelay time.Duration

	// OnSuccess fires once with the final message on completed/success.
	OnSuccess func(message string)
	// OnError fires once with the message and raw error detail on error.
	// Errored surfaces never auto-hide.
	OnError func(message, detail string)
	// OnHide fires HideDelay after a successful terminal snapshot.
	OnHide func()

	// Schedule defers f by d and returns a cancel func. Defaults to
	// time.AfterFunc; tests inject a manual scheduler.
	Schedule func(d time.Duration, f func()) (cancel func())
}

// Presenter maps snapshots to UIState and owns the terminal-event contract:
// success/error fire at most once per operation and hide is scheduled only
// after a successful terminal snapshot, never before.
type Presenter struct {
	cfg PresenterConfig

	mu         sync.Mutex
	terminated bool
	cancelHide func()
}

func NewPresenter(cfg PresenterConfig) *Presenter {
	if cfg.Texts == (TextSet{}) {
		cfg.Texts = SyncTexts
	}
	if cfg.HideDelay <= 0 {
		cfg.HideDelay = DefaultHideDelay
	}
	if cfg.Schedule == nil {
		cfg.Schedule = func(d time.Duration, f func()) func() {
			t := time.AfterFunc(d, f)
			return func() { t.Stop() }
		}
	}
	return &Presenter{cfg: cfg}
}

// Present is the pure snapshot-to-UIState mapping. It has no side effects
// and is safe to call from anywhere, including tests.
func (p *Presenter) Present(snap *Snapshot) UIState {
	msg := snap.Message
	if msg == "" {
		msg = p.cfg.Texts.DefaultMessage
	}
	return UIState{
		Percent:    snap.Percent(),
		BarColor:   colorFor(snap.Status),
		StatusText: StatusText(snap.Status, snap.Error, p.cfg.Texts),
		Message:    msg,
		IsTerminal: snap.Status.Terminal(),
	}
}

// Observe presents a snapshot and fires the terminal callbacks when the
// operation reaches a terminal state.
func (p *Presenter) Observe(snap *Snapshot) UIState {
	state := p.Present(snap)
	if !state.IsTerminal {
		return state
	}

	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return state
	}
	p.terminated = true
	p.mu.Unlock()

	if snap.Status.Succeeded() {
		if p.cfg.OnSuccess != nil {
			p.cfg.OnSuccess(state.Message)
		}
		if p.cfg.OnHide != nil {
			cancel := p.cfg.Schedule(p.cfg.HideDelay, p.cfg.OnHide)
			p.mu.Lock()
			p.cancelHide = cancel
			p.mu.Unlock()
		}
	} else if p.cfg.OnError != nil {
		p.cfg.OnError(state.Message, snap.Error)
	}
	return state
}

// Reset re-arms the presenter for a new operation and cancels a pending hide.
func (p *Presenter) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminated = false
	if p.cancelHide != nil {
		p.cancelHide()
		p.cancelHide = nil
	}
}
