package action

import (
	"context"

	"github.com/dvtools/dvbatch/internal/dataverse"
	"github.com/dvtools/dvbatch/internal/logging"
)

// RemoveRoleAssignment deletes every assignment of RoleAlias to Assignee.
type RemoveRoleAssignment struct {
	Assignee  string
	RoleAlias string

	svc dataverse.Service
}

// NewRemoveRoleAssignment validates the parameters and binds them to svc.
func NewRemoveRoleAssignment(svc dataverse.Service, assignee, roleAlias string) (*RemoveRoleAssignment, error) {
	if err := checkService(svc); err != nil {
		return nil, err
	}
	if assignee == "" {
		return nil, ErrMissingAssignee
	}
	if roleAlias == "" {
		return nil, ErrMissingRoleAlias
	}
	return &RemoveRoleAssignment{Assignee: assignee, RoleAlias: roleAlias, svc: svc}, nil
}

// Name implements batch.Action.
func (a *RemoveRoleAssignment) Name() string { return NameRemoveRole }

// Apply implements batch.Action. Both assignee and alias must match exactly.
func (a *RemoveRoleAssignment) Apply(ctx context.Context, pid string) (bool, error) {
	log := logging.FromContext(ctx)

	assignments, err := a.svc.GetRoleAssignments(ctx, pid)
	if err != nil {
		return false, err
	}

	deleted := false
	for _, ra := range assignments {
		entry := log.Info().Ctx(ctx).
			Str("pid", pid).
			Str("assignee", ra.Assignee).
			Str("role_alias", ra.RoleAlias)
		if ra.Assignee != a.Assignee || ra.RoleAlias != a.RoleAlias {
			entry.Msg("role assignment, leave as-is")
			continue
		}
		entry.Int64("assignment_id", ra.ID).Msg("deleting role assignment")
		if err := a.svc.DeleteRoleAssignment(ctx, pid, ra.ID); err != nil {
			return false, err
		}
		deleted = true
	}
	return deleted, nil
}
