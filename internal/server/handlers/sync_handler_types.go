package handlers

// StartSyncRequest is the body of POST /v1/sync/start. An empty course list
// with All unset is rejected.
type StartSyncRequest struct {
	CourseIDs []string `json:"course_ids"`
	All       bool     `json:"all"`
}

// StartSyncResponse acknowledges a started sync. BatchID is set only for
// multi-course runs; single-course runs are polled by course id.
type StartSyncResponse struct {
	Status  string `json:"status"`
	BatchID string `json:"batch_id,omitempty"`
	Error   string `json:"error,omitempty"`
}
