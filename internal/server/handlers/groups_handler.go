package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gradebench/gradebench/internal/progress"
	"github.com/gradebench/gradebench/internal/store"
)

// AssignmentStore reads and mutates the student-to-group assignment map.
type AssignmentStore interface {
	GetAssignments(ctx context.Context, courseID int64) (map[string]*string, error)
	ApplyAssignmentChanges(ctx context.Context, courseID int64, changes []store.AssignmentChange) error
}

type GroupsHandler struct {
	store AssignmentStore
}

func NewGroupsHandler(store AssignmentStore) *GroupsHandler {
	return &GroupsHandler{store: store}
}

// Save applies assignment deltas atomically. Failures report success false
// with the reason; the client keeps its unsaved state.
func (h *GroupsHandler) Save(c *gin.Context) {
	var req SaveAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	courseID, err := strconv.ParseInt(req.CourseID, 10, 64)
	if err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, errors.New("invalid course_id"))
		return
	}
	if len(req.Changes) == 0 {
		c.PureJSON(http.StatusOK, SaveAssignmentsResponse{Success: true})
		return
	}

	changes := make([]store.AssignmentChange, 0, len(req.Changes))
	for _, delta := range req.Changes {
		changes = append(changes, store.AssignmentChange{
			StudentID: delta.StudentID,
			GroupID:   delta.NewGroupID,
		})
	}

	if err := h.store.ApplyAssignmentChanges(c.Request.Context(), courseID, changes); err != nil {
		c.Error(err)
		c.PureJSON(http.StatusOK, SaveAssignmentsResponse{Success: false, Error: err.Error()})
		return
	}
	c.PureJSON(http.StatusOK, SaveAssignmentsResponse{Success: true})
}

// Assignments returns the current assignment map of a course.
func (h *GroupsHandler) Assignments(c *gin.Context) {
	rawID := c.Query("course_id")
	courseID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, errors.New("invalid course_id"))
		return
	}

	assignments, err := h.store.GetAssignments(c.Request.Context(), courseID)
	if err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeUnknownError, err)
		return
	}

	c.PureJSON(http.StatusOK, AssignmentsResponse{
		CourseID:    rawID,
		Assignments: progress.AssignmentMap(assignments),
	})
}
