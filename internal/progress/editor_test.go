package progress

import (
	"context"
	"errors"
	"testing"
)

func gptr(s string) *string { return &s }

type fakeAssignmentBackend struct {
	assignments AssignmentMap
	saveErr     error

	saved     [][]AssignmentDelta
	loadCalls int
}

func (f *fakeAssignmentBackend) SaveAssignments(ctx context.Context, courseID string, deltas []AssignmentDelta) error {
	f.saved = append(f.saved, deltas)
	if f.saveErr != nil {
		return f.saveErr
	}
	return nil
}

func (f *fakeAssignmentBackend) LoadAssignments(ctx context.Context, courseID string) (AssignmentMap, error) {
	f.loadCalls++
	return f.assignments.clone(), nil
}

func newTestEditor(t *testing.T, backend *fakeAssignmentBackend) *GroupEditor {
	t.Helper()
	e := NewGroupEditor(EditorConfig{CourseID: "101", Saver: backend, Loader: backend})
	if err := e.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestEditor_DeltaIdempotence(t *testing.T) {
	backend := &fakeAssignmentBackend{assignments: AssignmentMap{
		"s1": gptr("g1"),
		"s2": nil,
	}}
	e := newTestEditor(t, backend)

	if deltas := e.ComputeDeltas(); len(deltas) != 0 {
		t.Fatalf("fresh editor has deltas: %+v", deltas)
	}

	// saving the empty delta list must not hit the network
	if err := e.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(backend.saved) != 0 {
		t.Error("no-op save made a network call")
	}
	if e.State() != EditorClean {
		t.Errorf("state = %s, want clean", e.State())
	}
}

func TestEditor_MoveAndRevertReturnsToClean(t *testing.T) {
	backend := &fakeAssignmentBackend{assignments: AssignmentMap{"s1": gptr("g1")}}
	e := newTestEditor(t, backend)

	e.Assign("s1", gptr("g2"))
	if !e.Dirty() {
		t.Fatal("move did not mark editor dirty")
	}

	e.Assign("s1", gptr("g1"))
	if e.Dirty() {
		t.Error("reverting the move should return to clean")
	}
}

func TestEditor_ComputeDeltas_MissingKeysAreChanges(t *testing.T) {
	backend := &fakeAssignmentBackend{assignments: AssignmentMap{
		"s1": gptr("g1"),
		"s2": gptr("g2"),
	}}
	e := newTestEditor(t, backend)

	// s2 disappears (concurrent unenrollment), s3 appears
	e.Remove("s2")
	e.Assign("s3", gptr("g1"))

	deltas := e.ComputeDeltas()
	if len(deltas) != 2 {
		t.Fatalf("deltas = %+v, want 2 entries", deltas)
	}
	byStudent := map[string]AssignmentDelta{}
	for _, d := range deltas {
		byStudent[d.StudentID] = d
	}
	if d := byStudent["s3"]; d.NewGroupID == nil || *d.NewGroupID != "g1" || d.OldGroupID != nil {
		t.Errorf("added student delta = %+v", d)
	}
	if d := byStudent["s2"]; d.OldGroupID == nil || *d.OldGroupID != "g2" || d.NewGroupID != nil {
		t.Errorf("removed student delta = %+v", d)
	}
}

func TestEditor_SaveSuccessRecapturesOriginal(t *testing.T) {
	backend := &fakeAssignmentBackend{assignments: AssignmentMap{"s1": gptr("g1")}}
	e := newTestEditor(t, backend)

	e.Assign("s1", nil) // unassign
	if err := e.Save(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(backend.saved) != 1 || len(backend.saved[0]) != 1 {
		t.Fatalf("saved payload = %+v", backend.saved)
	}
	d := backend.saved[0][0]
	if d.StudentID != "s1" || d.NewGroupID != nil || d.OldGroupID == nil || *d.OldGroupID != "g1" {
		t.Errorf("delta = %+v", d)
	}

	if e.State() != EditorClean {
		t.Errorf("state = %s, want clean", e.State())
	}
	// original now matches current, so no deltas remain
	if deltas := e.ComputeDeltas(); len(deltas) != 0 {
		t.Errorf("deltas after save = %+v", deltas)
	}
}

func TestEditor_SaveFailureStaysDirty(t *testing.T) {
	backend := &fakeAssignmentBackend{
		assignments: AssignmentMap{"s1": gptr("g1")},
		saveErr:     errors.New("validation failed"),
	}
	e := newTestEditor(t, backend)

	e.Assign("s1", gptr("g2"))
	err := e.Save(context.Background())

	var conflict *SaveConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want SaveConflictError", err)
	}
	if e.State() != EditorDirty {
		t.Errorf("state = %s, want dirty after failed save", e.State())
	}
}

func TestEditor_DiscardIsAuthoritativeRefetch(t *testing.T) {
	backend := &fakeAssignmentBackend{assignments: AssignmentMap{"s1": gptr("g1")}}
	e := newTestEditor(t, backend)

	e.Assign("s1", gptr("g2"))

	// server drifted since the original capture
	backend.assignments = AssignmentMap{
		"s1": gptr("g3"),
		"s9": nil,
	}

	if err := e.Discard(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e.State() != EditorClean {
		t.Errorf("state = %s, want clean", e.State())
	}

	cur, orig := e.Current(), e.Original()
	for _, m := range []AssignmentMap{cur, orig} {
		if len(m) != 2 {
			t.Fatalf("map = %+v, want drifted server state", m)
		}
		if m["s1"] == nil || *m["s1"] != "g3" {
			t.Errorf("s1 = %v, want g3", m["s1"])
		}
		if v, ok := m["s9"]; !ok || v != nil {
			t.Errorf("s9 = %v, want present and unassigned", v)
		}
	}
}

func TestEditor_LeaveWhileDirtyNeedsConfirmation(t *testing.T) {
	confirm := false
	backend := &fakeAssignmentBackend{assignments: AssignmentMap{"s1": gptr("g1")}}
	e := NewGroupEditor(EditorConfig{
		CourseID:     "101",
		Saver:        backend,
		Loader:       backend,
		ConfirmLeave: func() bool { return confirm },
	})
	if err := e.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !e.RequestLeave() {
		t.Error("clean editor should always allow leaving")
	}

	e.Assign("s1", gptr("g2"))
	if e.RequestLeave() {
		t.Error("declined confirmation must cancel navigation")
	}
	if !e.Dirty() {
		t.Error("cancelled navigation must not touch editor state")
	}

	confirm = true
	if !e.RequestLeave() {
		t.Error("confirmed navigation should proceed")
	}
}

func TestEditor_DirtyAffordanceCallback(t *testing.T) {
	var events []bool
	backend := &fakeAssignmentBackend{assignments: AssignmentMap{"s1": gptr("g1")}}
	e := NewGroupEditor(EditorConfig{
		CourseID:       "101",
		Saver:          backend,
		Loader:         backend,
		OnDirtyChanged: func(d bool) { events = append(events, d) },
	})
	if err := e.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	e.Assign("s1", gptr("g2"))
	e.Assign("s1", gptr("g3")) // still dirty, no duplicate event
	e.Assign("s1", gptr("g1"))

	if len(events) != 2 || events[0] != true || events[1] != false {
		t.Errorf("dirty events = %v, want [true false]", events)
	}
}
