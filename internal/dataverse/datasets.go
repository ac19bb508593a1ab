package dataverse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

const datasetsByPID = "/api/datasets/:persistentId"

// Service is the set of dataset operations the batch actions consume.
// *Client implements it; tests substitute fakes.
type Service interface {
	GetMetadata(ctx context.Context, pid string) (*DatasetVersion, error)
	ReplaceField(ctx context.Context, pid string, field Field) error
	GetRoleAssignments(ctx context.Context, pid string) ([]RoleAssignment, error)
	DeleteRoleAssignment(ctx context.Context, pid string, id int64) error
	GetLocks(ctx context.Context, pid string) ([]Lock, error)
	DeleteLocks(ctx context.Context, pid string) error
	Publish(ctx context.Context, pid, versionBump string) error
	Reindex(ctx context.Context, pid string) error
}

var _ Service = (*Client)(nil)

// GetMetadata returns the latest version of the dataset, draft included.
func (c *Client) GetMetadata(ctx context.Context, pid string) (*DatasetVersion, error) {
	var v DatasetVersion
	err := c.do(ctx, request{
		op:     "get_metadata",
		method: http.MethodGet,
		path:   datasetsByPID + "/versions/:latest",
		pid:    pid,
		query:  pidQuery(pid),
		auth:   true,
	}, &v)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ReplaceField overwrites one metadata field. The dataset becomes a draft
// if it was not one already.
func (c *Client) ReplaceField(ctx context.Context, pid string, field Field) error {
	q := pidQuery(pid)
	q.Set("replace", "true")
	return c.do(ctx, request{
		op:     "replace_field",
		method: http.MethodPut,
		path:   datasetsByPID + "/editMetadata",
		pid:    pid,
		query:  q,
		body:   map[string][]Field{"fields": {field}},
		auth:   true,
	}, nil)
}

// GetRoleAssignments lists the role assignments defined on the dataset.
func (c *Client) GetRoleAssignments(ctx context.Context, pid string) ([]RoleAssignment, error) {
	var out []RoleAssignment
	err := c.do(ctx, request{
		op:     "get_role_assignments",
		method: http.MethodGet,
		path:   datasetsByPID + "/assignments",
		pid:    pid,
		query:  pidQuery(pid),
		auth:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRoleAssignment removes one role assignment by id.
func (c *Client) DeleteRoleAssignment(ctx context.Context, pid string, id int64) error {
	return c.do(ctx, request{
		op:     "delete_role_assignment",
		method: http.MethodDelete,
		path:   datasetsByPID + "/assignments/" + url.PathEscape(strconv.FormatInt(id, 10)),
		pid:    pid,
		query:  pidQuery(pid),
		auth:   true,
	}, nil)
}

// GetLocks lists the dataset's locks. The endpoint is public, so no API
// token is sent.
func (c *Client) GetLocks(ctx context.Context, pid string) ([]Lock, error) {
	var out []Lock
	err := c.do(ctx, request{
		op:     "get_locks",
		method: http.MethodGet,
		path:   datasetsByPID + "/locks",
		pid:    pid,
		query:  pidQuery(pid),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteLocks removes every lock on the dataset. Locks cannot be removed
// individually through this endpoint.
func (c *Client) DeleteLocks(ctx context.Context, pid string) error {
	return c.do(ctx, request{
		op:     "delete_locks",
		method: http.MethodDelete,
		path:   datasetsByPID + "/locks",
		pid:    pid,
		query:  pidQuery(pid),
		auth:   true,
	}, nil)
}

// Publish promotes the latest draft to a published version. versionBump is
// VersionMajor or VersionMinor.
func (c *Client) Publish(ctx context.Context, pid, versionBump string) error {
	q := pidQuery(pid)
	q.Set("type", versionBump)
	return c.do(ctx, request{
		op:     "publish",
		method: http.MethodPost,
		path:   datasetsByPID + "/actions/:publish",
		pid:    pid,
		query:  q,
		auth:   true,
	}, nil)
}

// Reindex rebuilds the search index entry for the dataset. This goes
// through the admin API, which does not take a token and is normally only
// reachable from localhost or through a tunnel.
func (c *Client) Reindex(ctx context.Context, pid string) error {
	var ignored json.RawMessage
	return c.do(ctx, request{
		op:     "reindex",
		method: http.MethodGet,
		path:   "/api/admin/index/dataset",
		pid:    pid,
		query:  pidQuery(pid),
	}, &ignored)
}
