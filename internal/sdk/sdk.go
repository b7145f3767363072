// Package sdk is the client for the GradeBench daemon's control plane. It
// satisfies the progress package's Starter, Source, AssignmentSaver and
// AssignmentLoader interfaces, so the CLI drives operations through it.
package sdk

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"

	"github.com/gradebench/gradebench/internal/progress"
	"github.com/gradebench/gradebench/internal/version"
)

// Client talks to a running GradeBench daemon.
type Client struct {
	client  *req.Client
	baseURL string
}

// New creates a daemon client. Token may be empty when the daemon runs
// without auth.
func New(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("sdk: base url missing")
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetCommonRetryCount(1).
		SetCommonRetryFixedInterval(500 * time.Millisecond).
		SetUserAgent("GradeBench/" + version.Version).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	if token != "" {
		client.SetCommonBearerAuthToken(token)
	}

	return &Client{client: client, baseURL: baseURL}, nil
}

// Close releases client resources.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// StartOperation asks the daemon to begin a sync over the given scope.
func (c *Client) StartOperation(ctx context.Context, scope progress.Scope) (*progress.StartAck, error) {
	body := &StartSyncRequest{CourseIDs: scope.CourseIDs, All: scope.All}

	var ack progress.StartAck
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetSuccessResult(&ack).
		SetErrorResult(&ack).
		Post("/v1/sync/start")
	if err != nil {
		return nil, &progress.TransportError{Op: "start sync", Err: err}
	}

	if res.IsErrorState() {
		if ack.Error != "" {
			return &ack, nil
		}
		return nil, &progress.ProtocolError{Op: "start sync", Reason: res.Status}
	}
	return &ack, nil
}

// Fetch retrieves one progress snapshot. A bare `{}` body decodes to an
// empty snapshot, which the poller treats as "no data yet".
func (c *Client) Fetch(ctx context.Context, target progress.Target) (*progress.Snapshot, error) {
	request := c.client.R().SetContext(ctx)

	var snap progress.Snapshot
	request.SetSuccessResult(&snap)

	var res *req.Response
	var err error
	if target.IsBatch() {
		res, err = request.Get("/v1/sync/batch/" + target.BatchID)
	} else {
		res, err = request.SetQueryParam("course_id", target.Key).Get("/v1/sync/progress")
	}
	if err != nil {
		return nil, &progress.TransportError{Op: "fetch " + target.String(), Err: err}
	}
	if res.IsErrorState() {
		return nil, &progress.TransportError{
			Op:  "fetch " + target.String(),
			Err: fmt.Errorf("unexpected status %s", res.Status),
		}
	}
	return &snap, nil
}

// SaveAssignments posts group-assignment deltas for a course.
func (c *Client) SaveAssignments(ctx context.Context, courseID string, deltas []progress.AssignmentDelta) error {
	body := &SaveAssignmentsRequest{CourseID: courseID, Changes: deltas}

	var resp SaveAssignmentsResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetSuccessResult(&resp).
		SetErrorResult(&resp).
		Post("/v1/groups/save")
	if err != nil {
		return &progress.TransportError{Op: "save assignments", Err: err}
	}

	if res.IsErrorState() || !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = res.Status
		}
		return fmt.Errorf("save assignments: %s", reason)
	}
	return nil
}

// LoadAssignments fetches the authoritative assignment map of a course.
func (c *Client) LoadAssignments(ctx context.Context, courseID string) (progress.AssignmentMap, error) {
	var resp AssignmentsResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("course_id", courseID).
		SetSuccessResult(&resp).
		Get("/v1/groups/assignments")
	if err != nil {
		return nil, &progress.TransportError{Op: "load assignments", Err: err}
	}
	if res.IsErrorState() {
		return nil, fmt.Errorf("load assignments: unexpected status %s", res.Status)
	}
	if resp.Assignments == nil {
		resp.Assignments = progress.AssignmentMap{}
	}
	return resp.Assignments, nil
}

// Status fetches the daemon's status report.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var status StatusResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&status).
		Get("/v1/status")
	if err != nil {
		return nil, &progress.TransportError{Op: "status", Err: err}
	}
	if res.IsErrorState() {
		return nil, fmt.Errorf("status: unexpected status %s", res.Status)
	}
	return &status, nil
}

var (
	_ progress.Starter          = (*Client)(nil)
	_ progress.Source           = (*Client)(nil)
	_ progress.AssignmentSaver  = (*Client)(nil)
	_ progress.AssignmentLoader = (*Client)(nil)
)
