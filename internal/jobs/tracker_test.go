package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/gradebench/gradebench/internal/progress"
)

func TestSnapshotUnknownKey(t *testing.T) {
	tracker := NewTracker()
	if snap := tracker.Snapshot("nope"); snap != nil {
		t.Errorf("expected nil snapshot for unknown key, got %+v", snap)
	}
	if snap := tracker.BatchSnapshot("nope"); snap != nil {
		t.Errorf("expected nil snapshot for unknown batch, got %+v", snap)
	}
}

func TestJobPhaseProgression(t *testing.T) {
	tracker := NewTracker()
	tracker.NewJob("101", "101")

	snap := tracker.Snapshot("101")
	if snap == nil || snap.Status != progress.StatusPending {
		t.Fatalf("expected pending snapshot, got %+v", snap)
	}

	tracker.SetPhase("101", progress.StatusFetchingSubmissions, 0, 10, "Fetching submissions")
	tracker.SetProgress("101", 4, 10)

	snap = tracker.Snapshot("101")
	if snap.Status != progress.StatusFetchingSubmissions {
		t.Errorf("expected fetching_submissions, got %s", snap.Status)
	}
	if snap.Current != 4 || snap.Total != 10 {
		t.Errorf("expected 4/10, got %d/%d", snap.Current, snap.Total)
	}
	if snap.Message != "Fetching submissions" {
		t.Errorf("unexpected message %q", snap.Message)
	}

	tracker.SetCompleted("101", "Sync complete")
	snap = tracker.Snapshot("101")
	if snap.Status != progress.StatusCompleted {
		t.Errorf("expected completed, got %s", snap.Status)
	}
	if snap.Current != snap.Total {
		t.Errorf("completed job should have current == total, got %d/%d", snap.Current, snap.Total)
	}
	if tracker.Active("101") {
		t.Error("completed job should not be active")
	}
}

func TestSetErrorSnapshot(t *testing.T) {
	tracker := NewTracker()
	tracker.NewJob("101", "101")
	tracker.SetError("101", errors.New("canvas unreachable"))

	snap := tracker.Snapshot("101")
	if snap.Status != progress.StatusError {
		t.Errorf("expected error status, got %s", snap.Status)
	}
	if snap.Error != "canvas unreachable" {
		t.Errorf("unexpected error detail %q", snap.Error)
	}
}

func TestBatchRollup(t *testing.T) {
	tracker := NewTracker()
	batchID := tracker.NewBatch([]string{"101", "102", "103"})

	snap := tracker.BatchSnapshot(batchID)
	if snap.Current != 0 || snap.Total != 3 {
		t.Errorf("expected 0/3, got %d/%d", snap.Current, snap.Total)
	}
	if snap.Status.Terminal() {
		t.Errorf("fresh batch must not be terminal, got %s", snap.Status)
	}
	if len(snap.SubStatuses) != 3 {
		t.Fatalf("expected 3 sub-statuses, got %d", len(snap.SubStatuses))
	}

	tracker.SetCourseInfo("101", "Algorithms", "CS301")
	tracker.SetCompleted("101", "Sync complete")
	tracker.SetPhase("102", progress.StatusFetchingUsers, 3, 12, "Fetching users")

	snap = tracker.BatchSnapshot(batchID)
	if snap.Current != 1 {
		t.Errorf("expected 1 finished sub-item, got %d", snap.Current)
	}
	sub := snap.SubStatuses["101"]
	if sub.Name != "Algorithms" || sub.CourseCode != "CS301" {
		t.Errorf("course info not rolled up: %+v", sub)
	}
	sub = snap.SubStatuses["102"]
	if sub.Progress == nil || *sub.Progress != 25 {
		t.Errorf("expected 25%% sub progress, got %v", sub.Progress)
	}

	tracker.SetError("102", errors.New("boom"))
	tracker.SetCompleted("103", "Sync complete")

	snap = tracker.BatchSnapshot(batchID)
	if snap.Status != progress.StatusCompleted {
		t.Errorf("partial failure should still complete, got %s", snap.Status)
	}
	if snap.SubStatuses["102"].Message != "boom" {
		t.Errorf("failed sub-item should carry the error, got %q", snap.SubStatuses["102"].Message)
	}
	if tracker.BatchActive(batchID) {
		t.Error("settled batch should not be active")
	}
}

func TestBatchAllFailed(t *testing.T) {
	tracker := NewTracker()
	batchID := tracker.NewBatch([]string{"101", "102"})
	tracker.SetError("101", errors.New("boom"))
	tracker.SetError("102", errors.New("boom"))

	snap := tracker.BatchSnapshot(batchID)
	if snap.Status != progress.StatusError {
		t.Errorf("all-failed batch should be error, got %s", snap.Status)
	}
	if snap.Error == "" {
		t.Error("expected error detail on all-failed batch")
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	tracker := NewTracker()
	ch := tracker.Subscribe()
	defer tracker.Unsubscribe(ch)

	tracker.NewJob("101", "101")
	tracker.SetPhase("101", progress.StatusFetchingCourse, 0, 0, "Fetching course")

	select {
	case event := <-ch:
		if event.Key != "101" || event.Job.Status != progress.StatusFetchingCourse {
			t.Errorf("unexpected event %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	tracker := NewTracker()
	ch := tracker.Subscribe()
	defer tracker.Unsubscribe(ch)

	tracker.NewJob("101", "101")
	// overflow the buffer; broadcasts must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < jobEventBufferSize*3; i++ {
			tracker.SetProgress("101", i, 100)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}

func TestCleanup(t *testing.T) {
	tracker := NewTracker()
	batchID := tracker.NewBatch([]string{"101"})
	tracker.SetCompleted("101", "Sync complete")

	tracker.Cleanup(time.Hour)
	if tracker.Snapshot("101") == nil {
		t.Fatal("young job removed too early")
	}

	tracker.Cleanup(0)
	if tracker.Snapshot("101") != nil {
		t.Error("terminal job should be cleaned up")
	}
	if tracker.BatchSnapshot(batchID) != nil {
		t.Error("emptied batch should be cleaned up")
	}
}
