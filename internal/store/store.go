package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gradebench/gradebench/internal/canvas"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS courses (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	course_code TEXT NOT NULL DEFAULT '',
	workflow_state TEXT NOT NULL DEFAULT '',
	synced_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	sortable_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	login_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS enrollments (
	id INTEGER PRIMARY KEY,
	course_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	type TEXT NOT NULL,
	state TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS assignments (
	id INTEGER PRIMARY KEY,
	course_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	due_at TEXT,
	points_possible REAL NOT NULL DEFAULT 0,
	published INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS submissions (
	id INTEGER PRIMARY KEY,
	assignment_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	score REAL,
	grade TEXT NOT NULL DEFAULT '',
	submitted_at TEXT,
	late INTEGER NOT NULL DEFAULT 0,
	missing INTEGER NOT NULL DEFAULT 0,
	workflow_state TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS groups (
	id INTEGER PRIMARY KEY,
	course_id INTEGER NOT NULL,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS group_memberships (
	group_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	PRIMARY KEY (group_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);
CREATE INDEX IF NOT EXISTS idx_assignments_course ON assignments(course_id);
CREATE INDEX IF NOT EXISTS idx_submissions_assignment ON submissions(assignment_id);
CREATE INDEX IF NOT EXISTS idx_groups_course ON groups(course_id);
CREATE INDEX IF NOT EXISTS idx_memberships_user ON group_memberships(user_id);
`

// AssignmentChange moves one student to a new group, or out of all groups
// when GroupID is nil.
type AssignmentChange struct {
	StudentID string
	GroupID   *string
}

// Store provides access to the mirrored Canvas data.
type Store struct {
	db *sqlx.DB
}

// New initializes the schema on an existing database connection.
func New(db *sqlx.DB) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertCourse adds or updates a course row.
func (s *Store) UpsertCourse(ctx context.Context, course *canvas.Course) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO courses (id, name, course_code, workflow_state, synced_at) VALUES (?, ?, ?, ?, ?)`,
		course.ID, course.Name, course.CourseCode, course.WorkflowState, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// UpsertUsers replaces the users referenced by a course's enrollments.
func (s *Store) UpsertUsers(ctx context.Context, courseID int64, users []*canvas.User) error {
	if len(users) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Preparex(
		`INSERT OR REPLACE INTO users (id, name, sortable_name, email, login_id) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	for _, user := range users {
		if _, err := stmt.Exec(user.ID, user.Name, user.SortableName, user.Email, user.LoginID); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert user %d: %w", user.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertEnrollments replaces all enrollments of a course.
func (s *Store) UpsertEnrollments(ctx context.Context, courseID int64, enrollments []*canvas.Enrollment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM enrollments WHERE course_id = ?`, courseID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear enrollments: %w", err)
	}

	stmt, err := tx.Preparex(
		`INSERT OR REPLACE INTO enrollments (id, course_id, user_id, type, state) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	for _, e := range enrollments {
		if _, err := stmt.Exec(e.ID, courseID, e.UserID, e.Type, e.State); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert enrollment %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertAssignments replaces all assignments of a course.
func (s *Store) UpsertAssignments(ctx context.Context, courseID int64, assignments []*canvas.Assignment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM assignments WHERE course_id = ?`, courseID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear assignments: %w", err)
	}

	stmt, err := tx.Preparex(
		`INSERT OR REPLACE INTO assignments (id, course_id, name, due_at, points_possible, published) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	for _, a := range assignments {
		var dueAt any
		if a.DueAt != nil {
			dueAt = a.DueAt.UTC().Format(time.RFC3339)
		}
		if _, err := stmt.Exec(a.ID, courseID, a.Name, dueAt, a.PointsPossible, a.Published); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert assignment %d: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertSubmissions adds or updates submission rows.
func (s *Store) UpsertSubmissions(ctx context.Context, courseID int64, submissions []*canvas.Submission) error {
	if len(submissions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Preparex(
		`INSERT OR REPLACE INTO submissions (id, assignment_id, user_id, score, grade, submitted_at, late, missing, workflow_state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	for _, sub := range submissions {
		var submittedAt any
		if sub.SubmittedAt != nil {
			submittedAt = sub.SubmittedAt.UTC().Format(time.RFC3339)
		}
		if _, err := stmt.Exec(sub.ID, sub.AssignmentID, sub.UserID, sub.Score, sub.Grade, submittedAt, sub.Late, sub.Missing, sub.WorkflowState); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert submission %d: %w", sub.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertGroups replaces all groups of a course. Memberships of removed
// groups are dropped with them.
func (s *Store) UpsertGroups(ctx context.Context, courseID int64, groups []*canvas.Group) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(
		`DELETE FROM group_memberships WHERE group_id IN (SELECT id FROM groups WHERE course_id = ?)`,
		courseID,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear memberships: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM groups WHERE course_id = ?`, courseID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear groups: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO groups (id, course_id, name) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	for _, g := range groups {
		if _, err := stmt.Exec(g.ID, courseID, g.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert group %d: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertMemberships replaces the memberships of one group.
func (s *Store) UpsertMemberships(ctx context.Context, groupID int64, memberships []*canvas.GroupMembership) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM group_memberships WHERE group_id = ?`, groupID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear memberships: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO group_memberships (group_id, user_id) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	for _, m := range memberships {
		if _, err := stmt.Exec(groupID, m.UserID); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert membership %d: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetCourse returns one mirrored course.
func (s *Store) GetCourse(ctx context.Context, courseID int64) (*canvas.Course, bool) {
	var row struct {
		ID         int64  `db:"id"`
		Name       string `db:"name"`
		CourseCode string `db:"course_code"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT id, name, course_code FROM courses WHERE id = ?`, courseID)
	if err != nil {
		return nil, false
	}
	return &canvas.Course{ID: row.ID, Name: row.Name, CourseCode: row.CourseCode}, true
}

// ListCourseIDs returns the ids of all mirrored courses.
func (s *Store) ListCourseIDs(ctx context.Context) ([]string, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM courses ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out, nil
}

// CourseCount returns the number of mirrored courses.
func (s *Store) CourseCount(ctx context.Context) int {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0
	}
	return count
}

// GetAssignments returns the student-to-group assignment map of a course.
// Every enrolled student appears; students in no group map to nil.
func (s *Store) GetAssignments(ctx context.Context, courseID int64) (map[string]*string, error) {
	type row struct {
		UserID  int64  `db:"user_id"`
		GroupID *int64 `db:"group_id"`
	}

	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT e.user_id, gm.group_id
		FROM enrollments e
		LEFT JOIN group_memberships gm
			ON gm.user_id = e.user_id
			AND gm.group_id IN (SELECT id FROM groups WHERE course_id = e.course_id)
		WHERE e.course_id = ? AND e.type = 'StudentEnrollment'`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	assignments := make(map[string]*string, len(rows))
	for _, r := range rows {
		var groupID *string
		if r.GroupID != nil {
			id := strconv.FormatInt(*r.GroupID, 10)
			groupID = &id
		}
		assignments[strconv.FormatInt(r.UserID, 10)] = groupID
	}
	return assignments, nil
}

// ApplyAssignmentChanges applies a set of group moves in one transaction.
// A change referencing a group outside the course fails the whole batch.
func (s *Store) ApplyAssignmentChanges(ctx context.Context, courseID int64, changes []AssignmentChange) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, change := range changes {
		studentID, err := strconv.ParseInt(change.StudentID, 10, 64)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("invalid student id %q: %w", change.StudentID, err)
		}

		if _, err := tx.Exec(
			`DELETE FROM group_memberships
			 WHERE user_id = ? AND group_id IN (SELECT id FROM groups WHERE course_id = ?)`,
			studentID, courseID,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to unassign student %d: %w", studentID, err)
		}

		if change.GroupID == nil {
			continue
		}

		groupID, err := strconv.ParseInt(*change.GroupID, 10, 64)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("invalid group id %q: %w", *change.GroupID, err)
		}

		var belongs int
		if err := tx.Get(&belongs,
			`SELECT COUNT(*) FROM groups WHERE id = ? AND course_id = ?`, groupID, courseID,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to check group %d: %w", groupID, err)
		}
		if belongs == 0 {
			tx.Rollback()
			return fmt.Errorf("group %d does not belong to course %d", groupID, courseID)
		}

		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO group_memberships (group_id, user_id) VALUES (?, ?)`,
			groupID, studentID,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to assign student %d: %w", studentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
