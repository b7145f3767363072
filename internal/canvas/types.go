package canvas

import "time"

// Course is the subset of the Canvas course object GradeBench mirrors.
type Course struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	CourseCode    string     `json:"course_code"`
	WorkflowState string     `json:"workflow_state,omitempty"`
	StartAt       *time.Time `json:"start_at,omitempty"`
	EndAt         *time.Time `json:"end_at,omitempty"`
}

// Enrollment links a user to a course in a role.
type Enrollment struct {
	ID       int64  `json:"id"`
	CourseID int64  `json:"course_id"`
	UserID   int64  `json:"user_id"`
	Type     string `json:"type"` // StudentEnrollment, TeacherEnrollment, ...
	State    string `json:"enrollment_state"`
	User     *User  `json:"user,omitempty"`
}

// User is a Canvas user profile.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SortableName string `json:"sortable_name,omitempty"`
	Email        string `json:"email,omitempty"`
	LoginID      string `json:"login_id,omitempty"`
}

// Assignment is a course assignment.
type Assignment struct {
	ID             int64      `json:"id"`
	CourseID       int64      `json:"course_id"`
	Name           string     `json:"name"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	PointsPossible float64    `json:"points_possible"`
	Published      bool       `json:"published"`
}

// Submission is one student's submission for an assignment.
type Submission struct {
	ID            int64      `json:"id"`
	AssignmentID  int64      `json:"assignment_id"`
	UserID        int64      `json:"user_id"`
	Score         *float64   `json:"score,omitempty"`
	Grade         string     `json:"grade,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	Late          bool       `json:"late"`
	Missing       bool       `json:"missing"`
	WorkflowState string     `json:"workflow_state"`
}

// Group is a student group within a course.
type Group struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CourseID     int64  `json:"course_id"`
	MembersCount int    `json:"members_count"`
}

// GroupMembership links a user to a group.
type GroupMembership struct {
	ID      int64  `json:"id"`
	GroupID int64  `json:"group_id"`
	UserID  int64  `json:"user_id"`
	State   string `json:"workflow_state"`
}
