package sdk

import "github.com/gradebench/gradebench/internal/progress"

// StartSyncRequest is the body of POST /v1/sync/start.
type StartSyncRequest struct {
	CourseIDs []string `json:"course_ids,omitempty"`
	All       bool     `json:"all,omitempty"`
}

// SaveAssignmentsRequest is the body of POST /v1/groups/save.
type SaveAssignmentsRequest struct {
	CourseID string                     `json:"course_id"`
	Changes  []progress.AssignmentDelta `json:"changes"`
}

// SaveAssignmentsResponse acknowledges a save.
type SaveAssignmentsResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AssignmentsResponse carries the authoritative assignment map.
type AssignmentsResponse struct {
	CourseID    string                 `json:"course_id"`
	Assignments progress.AssignmentMap `json:"assignments"`
}

// StatusResponse reports daemon health and version.
type StatusResponse struct {
	Status    string `json:"status"`
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	Courses   int    `json:"courses"`
	StartedAt string `json:"started_at,omitempty"`
}
