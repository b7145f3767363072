package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/gradebench/gradebench/internal/canvas"
	"github.com/gradebench/gradebench/internal/progress"
)

// batchConcurrency bounds how many course syncs run at once so a large
// batch doesn't hammer the Canvas instance.
const batchConcurrency = 4

// Store is the persistence surface the runner writes mirrored data into.
type Store interface {
	UpsertCourse(ctx context.Context, course *canvas.Course) error
	UpsertUsers(ctx context.Context, courseID int64, users []*canvas.User) error
	UpsertEnrollments(ctx context.Context, courseID int64, enrollments []*canvas.Enrollment) error
	UpsertAssignments(ctx context.Context, courseID int64, assignments []*canvas.Assignment) error
	UpsertSubmissions(ctx context.Context, courseID int64, submissions []*canvas.Submission) error
	UpsertGroups(ctx context.Context, courseID int64, groups []*canvas.Group) error
	UpsertMemberships(ctx context.Context, groupID int64, memberships []*canvas.GroupMembership) error
}

// Runner executes course syncs against Canvas, advancing tracker phases and
// persisting results into the store.
type Runner struct {
	canvas  *canvas.Client
	store   Store
	tracker *Tracker
	log     *slog.Logger
}

func NewRunner(client *canvas.Client, store Store, tracker *Tracker, log *slog.Logger) *Runner {
	return &Runner{
		canvas:  client,
		store:   store,
		tracker: tracker,
		log:     log,
	}
}

// StartCourse registers a single-course job under the course id key and runs
// it in the background. Returns an error only when the id is malformed.
func (r *Runner) StartCourse(ctx context.Context, courseID string) error {
	if _, err := strconv.ParseInt(courseID, 10, 64); err != nil {
		return fmt.Errorf("invalid course id %q: %w", courseID, err)
	}

	r.tracker.NewJob(courseID, courseID)
	go func() {
		if err := r.runCourse(ctx, courseID, courseID); err != nil {
			r.tracker.SetError(courseID, err)
		}
	}()
	return nil
}

// StartBatch registers a batch over the given course ids and runs them in the
// background with bounded concurrency. Per-course failures are recorded on
// the job and do not stop the rest of the batch.
func (r *Runner) StartBatch(ctx context.Context, courseIDs []string) (string, error) {
	for _, id := range courseIDs {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return "", fmt.Errorf("invalid course id %q: %w", id, err)
		}
	}

	batchID := r.tracker.NewBatch(courseIDs)
	go func() {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)
		for _, id := range courseIDs {
			g.Go(func() error {
				if err := r.runCourse(gctx, id, id); err != nil {
					r.tracker.SetError(id, err)
				}
				return nil
			})
		}
		g.Wait()
	}()
	return batchID, nil
}

func (r *Runner) runCourse(ctx context.Context, key, courseID string) error {
	start := time.Now()
	id, err := strconv.ParseInt(courseID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid course id %q: %w", courseID, err)
	}

	log := r.log.With("course", courseID)

	r.tracker.SetPhase(key, progress.StatusFetchingCourse, 0, 0, "Fetching course")
	course, err := r.canvas.Courses.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch course: %w", err)
	}
	r.tracker.SetCourseInfo(key, course.Name, course.CourseCode)

	r.tracker.SetPhase(key, progress.StatusFetchingEnrollments, 0, 0, "Fetching enrollments")
	enrollments, err := r.canvas.Courses.ListEnrollments(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch enrollments: %w", err)
	}

	r.tracker.SetPhase(key, progress.StatusFetchingUsers, 0, 0, "Fetching users")
	users, err := r.canvas.Courses.ListUsers(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch users: %w", err)
	}

	r.tracker.SetPhase(key, progress.StatusFetchingAssignments, 0, 0, "Fetching assignments")
	assignments, err := r.canvas.Courses.ListAssignments(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch assignments: %w", err)
	}

	r.tracker.SetPhase(key, progress.StatusFetchingSubmissions, 0, len(assignments), "Fetching submissions")
	var submissions []*canvas.Submission
	for i, assignment := range assignments {
		subs, err := r.canvas.Courses.ListSubmissions(ctx, id, assignment.ID)
		if err != nil {
			return fmt.Errorf("fetch submissions for assignment %d: %w", assignment.ID, err)
		}
		submissions = append(submissions, subs...)
		r.tracker.SetProgress(key, i+1, len(assignments))
	}

	r.tracker.SetPhase(key, progress.StatusProcessingSubmissions, 0, len(submissions), "Processing submissions")
	groups, err := r.canvas.Groups.ListForCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch groups: %w", err)
	}
	memberships := make(map[int64][]*canvas.GroupMembership, len(groups))
	for _, group := range groups {
		ms, err := r.canvas.Groups.ListMemberships(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("fetch memberships for group %d: %w", group.ID, err)
		}
		memberships[group.ID] = ms
	}

	r.tracker.SetPhase(key, progress.StatusSavingData, 0, 0, "Saving data")
	if err := r.persist(ctx, id, course, users, enrollments, assignments, submissions, groups, memberships); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	r.tracker.SetCompleted(key, "Sync complete")
	log.Info("course sync finished",
		"students", humanize.Comma(int64(len(users))),
		"assignments", humanize.Comma(int64(len(assignments))),
		"submissions", humanize.Comma(int64(len(submissions))),
		"groups", len(groups),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func (r *Runner) persist(
	ctx context.Context,
	courseID int64,
	course *canvas.Course,
	users []*canvas.User,
	enrollments []*canvas.Enrollment,
	assignments []*canvas.Assignment,
	submissions []*canvas.Submission,
	groups []*canvas.Group,
	memberships map[int64][]*canvas.GroupMembership,
) error {
	if err := r.store.UpsertCourse(ctx, course); err != nil {
		return err
	}
	if err := r.store.UpsertUsers(ctx, courseID, users); err != nil {
		return err
	}
	if err := r.store.UpsertEnrollments(ctx, courseID, enrollments); err != nil {
		return err
	}
	if err := r.store.UpsertAssignments(ctx, courseID, assignments); err != nil {
		return err
	}
	if err := r.store.UpsertSubmissions(ctx, courseID, submissions); err != nil {
		return err
	}
	if err := r.store.UpsertGroups(ctx, courseID, groups); err != nil {
		return err
	}
	for groupID, ms := range memberships {
		if err := r.store.UpsertMemberships(ctx, groupID, ms); err != nil {
			return err
		}
	}
	return nil
}
