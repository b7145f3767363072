package handlers

import "github.com/gradebench/gradebench/internal/progress"

// SaveAssignmentsRequest is the body of POST /v1/groups/save.
type SaveAssignmentsRequest struct {
	CourseID string                     `json:"course_id"`
	Changes  []progress.AssignmentDelta `json:"changes"`
}

// SaveAssignmentsResponse acknowledges a save. A failed save reports
// success false with a reason instead of a bare HTTP error so the editor
// can stay dirty and show the message.
type SaveAssignmentsResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AssignmentsResponse carries the authoritative assignment map.
type AssignmentsResponse struct {
	CourseID    string                 `json:"course_id"`
	Assignments progress.AssignmentMap `json:"assignments"`
}
