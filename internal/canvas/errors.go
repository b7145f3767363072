package canvas

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/imroc/req/v3"
)

var (
	ErrNoBaseURL     = errors.New("canvas: base url missing")
	ErrNoAccessToken = errors.New("canvas: access token missing")
	ErrNotFound      = errors.New("canvas: resource not found")
	ErrRateLimited   = errors.New("canvas: rate limited")
)

const (
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeUnauthorized   = "E_UNAUTHORIZED"    // token invalid or expired
	CodeAccessDenied   = "E_ACCESS_DENIED"   // token lacks the required scope
	CodeNotFound       = "E_NOT_FOUND"       // course/group/user does not exist
	CodeRateLimited    = "E_RATE_LIMITED"    // canvas throttled the client
	CodeInternalError  = "E_INTERNAL_ERROR"  // canvas-side failure
	CodeUnknownError   = "E_UNKNOWN_ERR"     // anything else
)

// APIError is a structured error from the Canvas API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("canvas api error: %s - %s", e.Code, e.Message)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeAccessDenied
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		if status >= 500 {
			return CodeInternalError
		}
		return CodeUnknownError
	}
}

// handleAPIError converts a settled request into a typed error, or nil when
// the request succeeded.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	if resp.IsErrorState() {
		apiErr := &APIError{
			Code:    codeForStatus(resp.StatusCode),
			Message: resp.String(),
			Status:  resp.StatusCode,
		}
		return fmt.Errorf("%s: %w", operation, apiErr)
	}

	return nil
}
