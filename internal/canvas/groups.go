package canvas

import (
	"context"
	"fmt"

	"github.com/imroc/req/v3"
)

// GroupsAPI covers course group and membership operations.
type GroupsAPI struct {
	client *req.Client
}

func newGroupsAPI(client *req.Client) *GroupsAPI {
	return &GroupsAPI{client: client}
}

// ListForCourse returns all student groups of a course.
func (a *GroupsAPI) ListForCourse(ctx context.Context, courseID int64) ([]*Group, error) {
	var all []*Group
	for page := 1; ; page++ {
		var batch []*Group
		res, err := a.client.R().
			SetContext(ctx).
			SetQueryParam("per_page", fmt.Sprint(defaultPerPage)).
			SetQueryParam("page", fmt.Sprint(page)).
			SetSuccessResult(&batch).
			Get(fmt.Sprintf("/api/v1/courses/%d/groups", courseID))

		if err := handleAPIError(res, err, "list groups"); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < defaultPerPage {
			return all, nil
		}
	}
}

// ListMemberships returns the memberships of one group.
func (a *GroupsAPI) ListMemberships(ctx context.Context, groupID int64) ([]*GroupMembership, error) {
	var all []*GroupMembership
	for page := 1; ; page++ {
		var batch []*GroupMembership
		res, err := a.client.R().
			SetContext(ctx).
			SetQueryParam("per_page", fmt.Sprint(defaultPerPage)).
			SetQueryParam("page", fmt.Sprint(page)).
			SetSuccessResult(&batch).
			Get(fmt.Sprintf("/api/v1/groups/%d/memberships", groupID))

		if err := handleAPIError(res, err, "list memberships"); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < defaultPerPage {
			return all, nil
		}
	}
}

// AddMembership adds a user to a group on the Canvas side.
func (a *GroupsAPI) AddMembership(ctx context.Context, groupID, userID int64) (*GroupMembership, error) {
	var membership *GroupMembership
	res, err := a.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"user_id": userID}).
		SetSuccessResult(&membership).
		Post(fmt.Sprintf("/api/v1/groups/%d/memberships", groupID))

	if err := handleAPIError(res, err, "add membership"); err != nil {
		return nil, err
	}
	return membership, nil
}

// RemoveMembership removes a user from a group on the Canvas side.
func (a *GroupsAPI) RemoveMembership(ctx context.Context, groupID, userID int64) error {
	res, err := a.client.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/api/v1/groups/%d/users/%d", groupID, userID))

	return handleAPIError(res, err, "remove membership")
}
