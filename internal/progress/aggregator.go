package progress

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// inProgressFloor keeps in-flight sub-items visibly moving before the
// backend reports a real number. Without it the bar sits at 0% for the
// first several ticks of every course.
const inProgressFloor = 5.0

// SubItemState is the rendering model for one course within a batch.
type SubItemState struct {
	ID       string
	Label    string
	Status   Status
	Percent  float64
	BarColor BarColor
	Message  string
}

// Aggregator maintains the per-course board of a batch operation. The map is
// replaced wholesale on every poll: the backend is the source of truth each
// tick, there is no incremental patching.
type Aggregator struct {
	mu    sync.RWMutex
	items map[string]SubItemState
}

func NewAggregator() *Aggregator {
	return &Aggregator{items: make(map[string]SubItemState)}
}

// Apply replaces the board with the sub-statuses of a fresh snapshot and
// returns the new states keyed by sub-item id.
func (a *Aggregator) Apply(subs map[string]*SubStatus) map[string]SubItemState {
	next := make(map[string]SubItemState, len(subs))
	for id, ss := range subs {
		if ss == nil {
			continue
		}
		next[id] = SubItemState{
			ID:       id,
			Label:    ResolveLabel(id, ss),
			Status:   ss.Status,
			Percent:  ResolveProgress(ss),
			BarColor: colorFor(ss.Status),
			Message:  ss.Message,
		}
	}

	a.mu.Lock()
	a.items = next
	a.mu.Unlock()
	return next
}

// Items returns a copy of the current board.
func (a *Aggregator) Items() map[string]SubItemState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]SubItemState, len(a.items))
	for k, v := range a.items {
		out[k] = v
	}
	return out
}

// Sorted returns the board ordered by label for stable rendering.
func (a *Aggregator) Sorted() []SubItemState {
	items := a.Items()
	out := make([]SubItemState, 0, len(items))
	for _, v := range items {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// usableName reports whether a name field carries real information, as
// opposed to the "Course {id}" placeholder some backends emit.
func usableName(name, id string) bool {
	if name == "" {
		return false
	}
	return name != "Course "+id
}

// ResolveLabel picks the display name for a sub-item. The backend is
// inconsistent about which field carries it, so resolution follows a fixed
// precedence: name (unless placeholder, code-prefixed when distinct), then
// course_name, course_code, display_name, title, the nested course object,
// and finally "Course ID: {id}".
func ResolveLabel(id string, ss *SubStatus) string {
	if usableName(ss.Name, id) {
		if ss.CourseCode != "" && !strings.Contains(ss.Name, ss.CourseCode) {
			return ss.CourseCode + ": " + ss.Name
		}
		return ss.Name
	}
	if ss.CourseName != "" {
		return ss.CourseName
	}
	if ss.CourseCode != "" {
		return ss.CourseCode
	}
	if ss.DisplayName != "" {
		return ss.DisplayName
	}
	if ss.Title != "" {
		return ss.Title
	}
	if ss.Course != nil && usableName(ss.Course.Name, id) {
		if ss.Course.CourseCode != "" && !strings.Contains(ss.Course.Name, ss.Course.CourseCode) {
			return ss.Course.CourseCode + ": " + ss.Course.Name
		}
		return ss.Course.Name
	}
	return fmt.Sprintf("Course ID: %s", id)
}

// ResolveProgress applies the per-status progress policy: terminal success is
// pinned to 100, in-flight items get a visible floor, and errors without a
// reported value show a full danger bar to mark where work stopped.
func ResolveProgress(ss *SubStatus) float64 {
	switch {
	case ss.Status.Succeeded():
		return 100
	case ss.Status == StatusInProgress:
		if ss.Progress != nil && *ss.Progress > inProgressFloor {
			return clampProgress(*ss.Progress)
		}
		return inProgressFloor
	case ss.Status == StatusError:
		if ss.Progress != nil {
			return clampProgress(*ss.Progress)
		}
		return 100
	default:
		if ss.Progress != nil {
			return clampProgress(*ss.Progress)
		}
		return 0
	}
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
