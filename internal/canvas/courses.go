package canvas

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/imroc/req/v3"
)

const courseCacheSize = 128

// CoursesAPI covers course, enrollment, assignment and submission reads.
type CoursesAPI struct {
	client *req.Client
	cache  *lru.Cache[int64, *Course]
}

func newCoursesAPI(client *req.Client) (*CoursesAPI, error) {
	cache, err := lru.New[int64, *Course](courseCacheSize)
	if err != nil {
		return nil, err
	}
	return &CoursesAPI{client: client, cache: cache}, nil
}

// Get fetches one course. Results are cached; repeated lookups during a
// batch sync (name resolution, rollups) don't hit Canvas again.
func (a *CoursesAPI) Get(ctx context.Context, courseID int64) (*Course, error) {
	if course, ok := a.cache.Get(courseID); ok {
		return course, nil
	}

	var course *Course
	res, err := a.client.R().
		SetContext(ctx).
		SetSuccessResult(&course).
		Get(fmt.Sprintf("/api/v1/courses/%d", courseID))

	if err := handleAPIError(res, err, "get course"); err != nil {
		return nil, err
	}

	a.cache.Add(courseID, course)
	return course, nil
}

// ListEnrollments returns all enrollments of a course, following pagination.
func (a *CoursesAPI) ListEnrollments(ctx context.Context, courseID int64) ([]*Enrollment, error) {
	var all []*Enrollment
	for page := 1; ; page++ {
		var batch []*Enrollment
		res, err := a.client.R().
			SetContext(ctx).
			SetQueryParam("per_page", fmt.Sprint(defaultPerPage)).
			SetQueryParam("page", fmt.Sprint(page)).
			SetSuccessResult(&batch).
			Get(fmt.Sprintf("/api/v1/courses/%d/enrollments", courseID))

		if err := handleAPIError(res, err, "list enrollments"); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < defaultPerPage {
			return all, nil
		}
	}
}

// ListUsers returns all users of a course, following pagination.
func (a *CoursesAPI) ListUsers(ctx context.Context, courseID int64) ([]*User, error) {
	var all []*User
	for page := 1; ; page++ {
		var batch []*User
		res, err := a.client.R().
			SetContext(ctx).
			SetQueryParam("per_page", fmt.Sprint(defaultPerPage)).
			SetQueryParam("page", fmt.Sprint(page)).
			SetQueryParam("include[]", "email").
			SetSuccessResult(&batch).
			Get(fmt.Sprintf("/api/v1/courses/%d/users", courseID))

		if err := handleAPIError(res, err, "list users"); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < defaultPerPage {
			return all, nil
		}
	}
}

// ListAssignments returns all assignments of a course, following pagination.
func (a *CoursesAPI) ListAssignments(ctx context.Context, courseID int64) ([]*Assignment, error) {
	var all []*Assignment
	for page := 1; ; page++ {
		var batch []*Assignment
		res, err := a.client.R().
			SetContext(ctx).
			SetQueryParam("per_page", fmt.Sprint(defaultPerPage)).
			SetQueryParam("page", fmt.Sprint(page)).
			SetSuccessResult(&batch).
			Get(fmt.Sprintf("/api/v1/courses/%d/assignments", courseID))

		if err := handleAPIError(res, err, "list assignments"); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < defaultPerPage {
			return all, nil
		}
	}
}

// ListSubmissions returns all submissions for one assignment.
func (a *CoursesAPI) ListSubmissions(ctx context.Context, courseID, assignmentID int64) ([]*Submission, error) {
	var all []*Submission
	for page := 1; ; page++ {
		var batch []*Submission
		res, err := a.client.R().
			SetContext(ctx).
			SetQueryParam("per_page", fmt.Sprint(defaultPerPage)).
			SetQueryParam("page", fmt.Sprint(page)).
			SetSuccessResult(&batch).
			Get(fmt.Sprintf("/api/v1/courses/%d/assignments/%d/submissions", courseID, assignmentID))

		if err := handleAPIError(res, err, "list submissions"); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < defaultPerPage {
			return all, nil
		}
	}
}
