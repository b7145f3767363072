package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeCounter struct {
	count int
}

func (f *fakeCounter) CourseCount(_ context.Context) int {
	return f.count
}

func TestStatusHandler_Status(t *testing.T) {
	handler := NewStatusHandler(&fakeCounter{count: 4})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/status", nil)

	handler.Status(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Status != "ok" || resp.Courses != 4 {
		t.Fatalf("unexpected status response %+v", resp)
	}
	if resp.Version == "" || resp.StartedAt == "" {
		t.Fatalf("expected version and started_at set, got %+v", resp)
	}
}
