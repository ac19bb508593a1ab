package action

import (
	"context"
	"fmt"

	"github.com/dvtools/dvbatch/internal/dataverse"
	"github.com/dvtools/dvbatch/internal/logging"
)

// Publish publishes the dataset's draft. It does not check for a draft
// first, so a dataset without one makes the service return an error.
type Publish struct {
	VersionBump string

	svc dataverse.Service
}

// NewPublish binds the action to svc. An empty bump means a major version.
func NewPublish(svc dataverse.Service, versionBump string) (*Publish, error) {
	if err := checkService(svc); err != nil {
		return nil, err
	}
	switch versionBump {
	case "":
		versionBump = dataverse.VersionMajor
	case dataverse.VersionMajor, dataverse.VersionMinor:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersionBump, versionBump)
	}
	return &Publish{VersionBump: versionBump, svc: svc}, nil
}

// Name implements batch.Action.
func (a *Publish) Name() string { return NamePublish }

// Apply implements batch.Action.
func (a *Publish) Apply(ctx context.Context, pid string) (bool, error) {
	logging.FromContext(ctx).Info().Ctx(ctx).Str("pid", pid).Str("type", a.VersionBump).Msg("publishing dataset")
	if err := a.svc.Publish(ctx, pid, a.VersionBump); err != nil {
		return false, err
	}
	return true, nil
}

// Reindex rebuilds the dataset's search index entry. It needs admin API
// access and sends no API token.
type Reindex struct {
	svc dataverse.Service
}

// NewReindex binds the action to svc.
func NewReindex(svc dataverse.Service) (*Reindex, error) {
	if err := checkService(svc); err != nil {
		return nil, err
	}
	return &Reindex{svc: svc}, nil
}

// Name implements batch.Action.
func (a *Reindex) Name() string { return NameReindex }

// Apply implements batch.Action.
func (a *Reindex) Apply(ctx context.Context, pid string) (bool, error) {
	logging.FromContext(ctx).Info().Ctx(ctx).Str("pid", pid).Msg("reindexing dataset")
	if err := a.svc.Reindex(ctx, pid); err != nil {
		return false, err
	}
	return true, nil
}
