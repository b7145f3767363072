package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gradebench/gradebench/internal/version"
)

// CourseCounter reports how many courses are mirrored locally.
type CourseCounter interface {
	CourseCount(ctx context.Context) int
}

type StatusHandler struct {
	courses   CourseCounter
	startedAt time.Time
}

func NewStatusHandler(courses CourseCounter) *StatusHandler {
	return &StatusHandler{courses: courses, startedAt: time.Now()}
}

func (h *StatusHandler) Status(c *gin.Context) {
	c.PureJSON(http.StatusOK, StatusResponse{
		Status:    "ok",
		AppName:   version.AppName,
		Version:   version.Version,
		Revision:  version.Revision,
		Courses:   h.courses.CourseCount(c.Request.Context()),
		StartedAt: h.startedAt.UTC().Format(time.RFC3339),
	})
}
