// Package jobs tracks server-side sync jobs and batches and feeds the
// progress endpoints polled by clients.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gradebench/gradebench/internal/progress"
)

const jobEventBufferSize = 16

// Job is the mutable state of one course sync.
type Job struct {
	Key         string
	CourseID    string
	CourseName  string
	CourseCode  string
	BatchID     string
	Status      progress.Status
	Current     int
	Total       int
	Message     string
	Error       string
	LastUpdated time.Time
}

// JobEvent is a status change broadcast to subscribers.
type JobEvent struct {
	Key string    `json:"key"`
	Job *Job      `json:"job"`
	At  time.Time `json:"at"`
}

// Tracker is the in-memory registry of sync jobs and batches. Jobs are
// process-local; restarting the daemon forgets them.
type Tracker struct {
	jobs    map[string]*Job
	batches map[string][]string // batch id -> job keys
	mu      sync.RWMutex

	eventSubs []chan *JobEvent
	eventMu   sync.RWMutex
}

func NewTracker() *Tracker {
	return &Tracker{
		jobs:    make(map[string]*Job),
		batches: make(map[string][]string),
	}
}

// Subscribe returns a channel receiving job status events. The channel is
// buffered; slow consumers miss events rather than block the runner.
func (t *Tracker) Subscribe() <-chan *JobEvent {
	t.eventMu.Lock()
	defer t.eventMu.Unlock()

	ch := make(chan *JobEvent, jobEventBufferSize)
	t.eventSubs = append(t.eventSubs, ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (t *Tracker) Unsubscribe(ch <-chan *JobEvent) {
	t.eventMu.Lock()
	defer t.eventMu.Unlock()

	for i, sub := range t.eventSubs {
		if sub == ch {
			close(sub)
			t.eventSubs = append(t.eventSubs[:i], t.eventSubs[i+1:]...)
			break
		}
	}
}

func (t *Tracker) broadcastEvent(key string, job *Job) {
	t.eventMu.RLock()
	defer t.eventMu.RUnlock()

	jobCopy := *job
	event := &JobEvent{Key: key, Job: &jobCopy, At: time.Now()}
	for _, sub := range t.eventSubs {
		select {
		case sub <- event:
		default:
			// subscriber is full, skip to avoid blocking
		}
	}
}

// NewBatch registers a batch of course jobs and returns the batch id.
func (t *Tracker) NewBatch(courseIDs []string) string {
	batchID := uuid.NewString()

	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(courseIDs))
	for _, id := range courseIDs {
		job := &Job{
			Key:         id,
			CourseID:    id,
			BatchID:     batchID,
			Status:      progress.StatusPending,
			LastUpdated: time.Now(),
		}
		t.jobs[id] = job
		keys = append(keys, id)
	}
	t.batches[batchID] = keys
	return batchID
}

// NewJob registers a single-course job under the given key.
func (t *Tracker) NewJob(key, courseID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.jobs[key] = &Job{
		Key:         key,
		CourseID:    courseID,
		Status:      progress.StatusPending,
		LastUpdated: time.Now(),
	}
}

// SetPhase advances a job to a new phase with fresh counters.
func (t *Tracker) SetPhase(key string, status progress.Status, current, total int, message string) {
	t.mu.Lock()
	job, ok := t.jobs[key]
	if !ok {
		t.mu.Unlock()
		return
	}
	job.Status = status
	job.Current = current
	job.Total = total
	job.Message = message
	job.Error = ""
	job.LastUpdated = time.Now()
	t.mu.Unlock()

	t.broadcastEvent(key, job)
}

// SetProgress updates the counters of a running job without changing phase.
func (t *Tracker) SetProgress(key string, current, total int) {
	t.mu.Lock()
	job, ok := t.jobs[key]
	if !ok {
		t.mu.Unlock()
		return
	}
	job.Current = current
	job.Total = total
	job.LastUpdated = time.Now()
	t.mu.Unlock()

	t.broadcastEvent(key, job)
}

// SetCourseInfo records the resolved course identity on a job.
func (t *Tracker) SetCourseInfo(key, name, code string) {
	t.mu.Lock()
	job, ok := t.jobs[key]
	if !ok {
		t.mu.Unlock()
		return
	}
	job.CourseName = name
	job.CourseCode = code
	job.LastUpdated = time.Now()
	t.mu.Unlock()

	t.broadcastEvent(key, job)
}

// SetCompleted marks a job as successfully finished.
func (t *Tracker) SetCompleted(key, message string) {
	t.mu.Lock()
	job, ok := t.jobs[key]
	if !ok {
		t.mu.Unlock()
		return
	}
	job.Status = progress.StatusCompleted
	job.Current = job.Total
	job.Message = message
	job.Error = ""
	job.LastUpdated = time.Now()
	t.mu.Unlock()

	t.broadcastEvent(key, job)
}

// SetError marks a job as failed.
func (t *Tracker) SetError(key string, err error) {
	t.mu.Lock()
	job, ok := t.jobs[key]
	if !ok {
		t.mu.Unlock()
		return
	}
	job.Status = progress.StatusError
	job.Error = err.Error()
	job.LastUpdated = time.Now()
	t.mu.Unlock()

	t.broadcastEvent(key, job)
}

// Snapshot returns the progress snapshot for a job key, or nil when no job
// is registered under the key. Clients treat nil as "no data yet".
func (t *Tracker) Snapshot(key string) *progress.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[key]
	if !ok {
		return nil
	}
	return jobSnapshot(job)
}

// BatchSnapshot rolls the batch's jobs up into one snapshot: top-level
// current/total count finished sub-items, and per-course details ride along
// as sub-statuses.
func (t *Tracker) BatchSnapshot(batchID string) *progress.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys, ok := t.batches[batchID]
	if !ok {
		return nil
	}

	snap := &progress.Snapshot{
		Status:      progress.StatusInProgress,
		Total:       len(keys),
		SubStatuses: make(map[string]*progress.SubStatus, len(keys)),
	}

	var failed int
	for _, key := range keys {
		job, ok := t.jobs[key]
		if !ok {
			continue
		}
		if job.Status.Terminal() {
			snap.Current++
			if job.Status == progress.StatusError {
				failed++
			}
		}

		sub := &progress.SubStatus{
			ID:         job.CourseID,
			Name:       job.CourseName,
			CourseCode: job.CourseCode,
			Status:     job.Status,
			Message:    job.Message,
		}
		if job.Status == progress.StatusError {
			sub.Message = job.Error
		}
		if job.Total > 0 {
			pct := float64(job.Current) / float64(job.Total) * 100
			sub.Progress = &pct
		}
		snap.SubStatuses[key] = sub
	}

	if snap.Current >= len(keys) {
		if failed == len(keys) {
			snap.Status = progress.StatusError
			snap.Error = "all course syncs failed"
		} else {
			snap.Status = progress.StatusCompleted
			snap.Message = batchMessage(failed)
		}
	}
	return snap
}

func batchMessage(failed int) string {
	if failed == 0 {
		return "All courses synced"
	}
	return "Sync finished with errors"
}

func jobSnapshot(job *Job) *progress.Snapshot {
	snap := &progress.Snapshot{
		Status:  job.Status,
		Current: job.Current,
		Total:   job.Total,
		Message: job.Message,
		Error:   job.Error,
	}
	return snap
}

// Active reports whether any job of the batch, or the keyed job, is still
// running.
func (t *Tracker) Active(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if job, ok := t.jobs[key]; ok {
		return !job.Status.Terminal()
	}
	return false
}

// BatchActive reports whether any job in the batch is still running.
func (t *Tracker) BatchActive(batchID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, key := range t.batches[batchID] {
		if job, ok := t.jobs[key]; ok && !job.Status.Terminal() {
			return true
		}
	}
	return false
}

// Cleanup drops terminal jobs older than maxAge, and batches whose jobs are
// all gone.
func (t *Tracker) Cleanup(maxAge time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for key, job := range t.jobs {
		if job.Status.Terminal() && job.LastUpdated.Before(cutoff) {
			delete(t.jobs, key)
		}
	}
	for batchID, keys := range t.batches {
		alive := false
		for _, key := range keys {
			if _, ok := t.jobs[key]; ok {
				alive = true
				break
			}
		}
		if !alive {
			delete(t.batches, batchID)
		}
	}
}

// Close shuts down all event subscriptions and clears state.
func (t *Tracker) Close() {
	t.eventMu.Lock()
	for _, sub := range t.eventSubs {
		close(sub)
	}
	t.eventSubs = nil
	t.eventMu.Unlock()

	t.mu.Lock()
	t.jobs = make(map[string]*Job)
	t.batches = make(map[string][]string)
	t.mu.Unlock()
}
