package action

import (
	"context"

	"github.com/dvtools/dvbatch/internal/dataverse"
	"github.com/dvtools/dvbatch/internal/logging"
)

// RemoveLocks deletes all locks on a dataset that has any.
type RemoveLocks struct {
	svc dataverse.Service
}

// NewRemoveLocks binds the action to svc.
func NewRemoveLocks(svc dataverse.Service) (*RemoveLocks, error) {
	if err := checkService(svc); err != nil {
		return nil, err
	}
	return &RemoveLocks{svc: svc}, nil
}

// Name implements batch.Action.
func (a *RemoveLocks) Name() string { return NameRemoveLocks }

// Apply implements batch.Action.
func (a *RemoveLocks) Apply(ctx context.Context, pid string) (bool, error) {
	log := logging.FromContext(ctx)

	locks, err := a.svc.GetLocks(ctx, pid)
	if err != nil {
		return false, err
	}
	if len(locks) == 0 {
		log.Info().Ctx(ctx).Str("pid", pid).Msg("no locks, leave as-is")
		return false, nil
	}

	types := make([]string, len(locks))
	for i, l := range locks {
		types[i] = l.LockType
	}
	log.Info().Ctx(ctx).Str("pid", pid).Strs("lock_types", types).Msg("found locks, deleting")

	if err := a.svc.DeleteLocks(ctx, pid); err != nil {
		return false, err
	}
	return true, nil
}
