// Package progress implements the client side of GradeBench's long-running
// operation protocol: polling progress snapshots, mapping them to UI state,
// aggregating batch sub-statuses and driving the operation lifecycle.
package progress

import "math"

// Status is the reported phase of a long-running operation. The set is open:
// the backend is free to introduce new phases, and unrecognized values must
// render as generic in-progress rather than fail.
type Status string

const (
	StatusPending               Status = "pending"
	StatusFetching              Status = "fetching"
	StatusFetchingCourse        Status = "fetching_course"
	StatusFetchingEnrollments   Status = "fetching_enrollments"
	StatusFetchingUsers         Status = "fetching_users"
	StatusFetchingAssignments   Status = "fetching_assignments"
	StatusFetchingSubmissions   Status = "fetching_submissions"
	StatusProcessingSubmissions Status = "processing_submissions"
	StatusSavingData            Status = "saving_data"
	StatusSaving                Status = "saving"
	StatusInProgress            Status = "in_progress"
	StatusProcessing            Status = "processing"
	StatusQueued                Status = "queued"
	StatusCompleted             Status = "completed"
	StatusSuccess               Status = "success"
	StatusError                 Status = "error"
)

// Terminal reports whether no further snapshots will follow this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusSuccess || s == StatusError
}

// Succeeded reports whether the status is a successful terminal state.
func (s Status) Succeeded() bool {
	return s == StatusCompleted || s == StatusSuccess
}

// Snapshot is one polled state report of a long-running operation. Snapshots
// are decoded fresh on every poll and never mutated in place.
type Snapshot struct {
	Status      Status                `json:"status"`
	Current     int                   `json:"current"`
	Total       int                   `json:"total"`
	Message     string                `json:"message,omitempty"`
	Error       string                `json:"error,omitempty"`
	SubStatuses map[string]*SubStatus `json:"sub_statuses,omitempty"`
}

// IsEmpty reports whether the snapshot carries no data at all. The progress
// endpoint returns a bare `{}` before the backend has registered the job,
// which is a valid "no data yet" response, not an error.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || (s.Status == "" && s.Current == 0 && s.Total == 0 &&
		s.Message == "" && s.Error == "" && len(s.SubStatuses) == 0)
}

// Percent returns the completion percentage clamped to [0,100]. A zero Total
// means indeterminate and yields 0. Current > Total is tolerated (the backend
// can race its own counters) and clamps to 100.
func (s *Snapshot) Percent() int {
	if s == nil || s.Total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(s.Current) / float64(s.Total) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// SubCourse is the nested course object some backend responses attach to a
// sub-status instead of the flat name fields.
type SubCourse struct {
	Name       string `json:"name,omitempty"`
	CourseCode string `json:"course_code,omitempty"`
}

// SubStatus is the per-course breakdown of a batch operation. The backend is
// inconsistent about which field carries the display name, so all observed
// variants are kept and resolved by the aggregator.
type SubStatus struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name,omitempty"`
	CourseName  string     `json:"course_name,omitempty"`
	CourseCode  string     `json:"course_code,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
	Title       string     `json:"title,omitempty"`
	Course      *SubCourse `json:"course,omitempty"`
	Status      Status     `json:"status"`
	Progress    *float64   `json:"progress,omitempty"`
	Message     string     `json:"message,omitempty"`
}
