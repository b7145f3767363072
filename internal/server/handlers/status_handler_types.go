package handlers

// StatusResponse reports daemon health and version.
type StatusResponse struct {
	Status    string `json:"status"`
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	Courses   int    `json:"courses"`
	StartedAt string `json:"started_at,omitempty"`
}
