package progress

import (
	"context"
	"sync"
)

// EditorState is the unsaved-changes state machine of the group editor.
type EditorState int

const (
	EditorClean EditorState = iota
	EditorDirty
	EditorSaving
	EditorDiscarding
)

func (s EditorState) String() string {
	switch s {
	case EditorClean:
		return "clean"
	case EditorDirty:
		return "dirty"
	case EditorSaving:
		return "saving"
	case EditorDiscarding:
		return "discarding"
	default:
		return "unknown"
	}
}

// AssignmentMap maps student id to group id; nil means unassigned.
type AssignmentMap map[string]*string

func (m AssignmentMap) clone() AssignmentMap {
	out := make(AssignmentMap, len(m))
	for k, v := range m {
		if v == nil {
			out[k] = nil
			continue
		}
		g := *v
		out[k] = &g
	}
	return out
}

func sameGroup(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// AssignmentDelta is one changed (student, old group, new group) triple.
type AssignmentDelta struct {
	StudentID  string  `json:"student_id"`
	NewGroupID *string `json:"new_group_id"`
	OldGroupID *string `json:"old_group_id"`
}

// AssignmentSaver persists a non-empty delta list.
type AssignmentSaver interface {
	SaveAssignments(ctx context.Context, courseID string, deltas []AssignmentDelta) error
}

// AssignmentLoader fetches the authoritative assignment map.
type AssignmentLoader interface {
	LoadAssignments(ctx context.Context, courseID string) (AssignmentMap, error)
}

// EditorConfig wires a GroupEditor.
type EditorConfig struct {
	CourseID string
	Saver    AssignmentSaver
	Loader   AssignmentLoader

	// OnDirtyChanged surfaces the persistent "unsaved changes" affordance.
	OnDirtyChanged func(dirty bool)
	// ConfirmLeave is asked before navigating away while dirty. Returning
	// false cancels the navigation entirely. Nil means always confirm.
	ConfirmLeave func() bool
}

// GroupEditor tracks drag-and-drop group reassignment against an explicit
// in-memory model: an original map captured at load and a current map the UI
// writes through. Deltas are computed between the two maps, never from a UI
// tree walk.
type GroupEditor struct {
	cfg EditorConfig

	mu       sync.Mutex
	state    EditorState
	original AssignmentMap
	current  AssignmentMap
}

func NewGroupEditor(cfg EditorConfig) *GroupEditor {
	return &GroupEditor{
		cfg:      cfg,
		state:    EditorClean,
		original: AssignmentMap{},
		current:  AssignmentMap{},
	}
}

// State returns the editor state.
func (e *GroupEditor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Dirty reports whether unsaved changes exist.
func (e *GroupEditor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == EditorDirty
}

// Load captures the authoritative assignment map as both original and
// current, entering the clean state.
func (e *GroupEditor) Load(ctx context.Context) error {
	m, err := e.cfg.Loader.LoadAssignments(ctx, e.cfg.CourseID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.original = m.clone()
	e.current = m.clone()
	e.setStateLocked(EditorClean)
	e.mu.Unlock()
	return nil
}

// Assign moves a student to a group (nil unassigns) in the current map and
// recomputes dirtiness.
func (e *GroupEditor) Assign(studentID string, groupID *string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if groupID == nil {
		e.current[studentID] = nil
	} else {
		g := *groupID
		e.current[studentID] = &g
	}
	e.recomputeDirtyLocked()
}

// Remove drops a student from the current map entirely (e.g. unenrolled by a
// concurrent reload). Missing keys count as changes in delta computation.
func (e *GroupEditor) Remove(studentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.current, studentID)
	e.recomputeDirtyLocked()
}

// Current returns a copy of the current assignment map.
func (e *GroupEditor) Current() AssignmentMap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.clone()
}

// Original returns a copy of the captured original assignment map.
func (e *GroupEditor) Original() AssignmentMap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.original.clone()
}

// ComputeDeltas returns the set difference between the original and current
// maps. A key present in only one map is treated as a change, so additions
// and removals caused by concurrent reloads are detected.
func (e *GroupEditor) ComputeDeltas() []AssignmentDelta {
	e.mu.Lock()
	defer e.mu.Unlock()
	return computeDeltas(e.original, e.current)
}

func computeDeltas(original, current AssignmentMap) []AssignmentDelta {
	var deltas []AssignmentDelta
	for id, cur := range current {
		orig, ok := original[id]
		if !ok {
			deltas = append(deltas, AssignmentDelta{StudentID: id, NewGroupID: cur})
			continue
		}
		if !sameGroup(orig, cur) {
			deltas = append(deltas, AssignmentDelta{StudentID: id, NewGroupID: cur, OldGroupID: orig})
		}
	}
	for id, orig := range original {
		if _, ok := current[id]; !ok {
			deltas = append(deltas, AssignmentDelta{StudentID: id, OldGroupID: orig})
		}
	}
	return deltas
}

// Save persists the computed deltas. An empty delta list transitions
// straight to clean without a network call. On failure the editor stays
// dirty and the error is returned for the caller to surface.
func (e *GroupEditor) Save(ctx context.Context) error {
	e.mu.Lock()
	deltas := computeDeltas(e.original, e.current)
	if len(deltas) == 0 {
		e.setStateLocked(EditorClean)
		e.mu.Unlock()
		return nil
	}
	e.state = EditorSaving
	e.mu.Unlock()

	if err := e.cfg.Saver.SaveAssignments(ctx, e.cfg.CourseID, deltas); err != nil {
		e.mu.Lock()
		e.setStateLocked(EditorDirty)
		e.mu.Unlock()
		return &SaveConflictError{Err: err}
	}

	e.mu.Lock()
	e.original = e.current.clone()
	e.setStateLocked(EditorClean)
	e.mu.Unlock()
	return nil
}

// Discard reloads the authoritative server state, replacing both maps. It is
// a refetch, not a local undo: server-side drift since the original capture
// is accepted. On fetch failure the editor keeps its previous state.
func (e *GroupEditor) Discard(ctx context.Context) error {
	e.mu.Lock()
	prev := e.state
	e.state = EditorDiscarding
	e.mu.Unlock()

	m, err := e.cfg.Loader.LoadAssignments(ctx, e.cfg.CourseID)
	if err != nil {
		e.mu.Lock()
		e.setStateLocked(prev)
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	e.original = m.clone()
	e.current = m.clone()
	e.setStateLocked(EditorClean)
	e.mu.Unlock()
	return nil
}

// RequestLeave gates navigation away from the editor. While dirty it asks
// ConfirmLeave; declining cancels the navigation with no state change.
func (e *GroupEditor) RequestLeave() bool {
	e.mu.Lock()
	dirty := e.state == EditorDirty || e.state == EditorSaving
	e.mu.Unlock()
	if !dirty {
		return true
	}
	if e.cfg.ConfirmLeave == nil {
		return false
	}
	return e.cfg.ConfirmLeave()
}

func (e *GroupEditor) recomputeDirtyLocked() {
	if len(computeDeltas(e.original, e.current)) == 0 {
		e.setStateLocked(EditorClean)
	} else {
		e.setStateLocked(EditorDirty)
	}
}

func (e *GroupEditor) setStateLocked(next EditorState) {
	prev := e.state
	e.state = next
	if e.cfg.OnDirtyChanged != nil && (prev == EditorDirty) != (next == EditorDirty) {
		e.cfg.OnDirtyChanged(next == EditorDirty)
	}
}
