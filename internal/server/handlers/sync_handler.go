package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradebench/gradebench/internal/jobs"
)

// SyncStarter launches sync jobs in the background.
type SyncStarter interface {
	StartCourse(ctx context.Context, courseID string) error
	StartBatch(ctx context.Context, courseIDs []string) (string, error)
}

// CourseLister enumerates mirrored courses for "sync all".
type CourseLister interface {
	ListCourseIDs(ctx context.Context) ([]string, error)
}

type SyncHandler struct {
	starter SyncStarter
	tracker *jobs.Tracker
	courses CourseLister
}

func NewSyncHandler(starter SyncStarter, tracker *jobs.Tracker, courses CourseLister) *SyncHandler {
	return &SyncHandler{starter: starter, tracker: tracker, courses: courses}
}

// Start begins a sync over one course, several courses, or everything.
func (h *SyncHandler) Start(c *gin.Context) {
	var req StartSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	courseIDs := req.CourseIDs
	if req.All {
		var err error
		courseIDs, err = h.courses.ListCourseIDs(c.Request.Context())
		if err != nil {
			AbortWithError(c, http.StatusInternalServerError, ErrCodeUnknownError, err)
			return
		}
	}
	if len(courseIDs) == 0 {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, errors.New("no courses to sync"))
		return
	}

	for _, id := range courseIDs {
		if h.tracker.Active(id) {
			c.PureJSON(http.StatusConflict, StartSyncResponse{
				Status: "busy",
				Error:  "sync already running for course " + id,
			})
			return
		}
	}

	// jobs outlive the request
	ctx := context.WithoutCancel(c.Request.Context())

	// "all" always polls as a batch: the client has no course key to poll a
	// single job under.
	if len(courseIDs) == 1 && !req.All {
		if err := h.starter.StartCourse(ctx, courseIDs[0]); err != nil {
			AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
			return
		}
		c.PureJSON(http.StatusOK, StartSyncResponse{Status: "started"})
		return
	}

	batchID, err := h.starter.StartBatch(ctx, courseIDs)
	if err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}
	c.PureJSON(http.StatusOK, StartSyncResponse{Status: "started", BatchID: batchID})
}

// Progress reports the snapshot of a single-course job. An unknown key
// yields a bare `{}` so pollers treat it as "no data yet".
func (h *SyncHandler) Progress(c *gin.Context) {
	courseID := c.Query("course_id")
	if courseID == "" {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, errors.New("course_id is required"))
		return
	}

	snap := h.tracker.Snapshot(courseID)
	if snap == nil {
		c.PureJSON(http.StatusOK, gin.H{})
		return
	}
	c.PureJSON(http.StatusOK, snap)
}

// Batch reports the rolled-up snapshot of a batch.
func (h *SyncHandler) Batch(c *gin.Context) {
	batchID := c.Param("id")

	snap := h.tracker.BatchSnapshot(batchID)
	if snap == nil {
		c.PureJSON(http.StatusOK, gin.H{})
		return
	}
	c.PureJSON(http.StatusOK, snap)
}

// Events streams job status changes as server-sent events.
func (h *SyncHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	eventCh := h.tracker.Subscribe()
	defer h.tracker.Unsubscribe(eventCh)

	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-eventCh:
			if !ok {
				return false
			}
			c.SSEvent("job", event)
			return true
		}
	})
}
