package action

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dvtools/dvbatch/internal/dataverse"
	"github.com/dvtools/dvbatch/internal/engine/batch"
)

// Default pauses between datasets. Publishing keeps the server busy well
// after the request returns, so it gets the longer pause.
const (
	DefaultDelay = 1500 * time.Millisecond
	PublishDelay = 5 * time.Second
)

// ErrUnknownTask is returned by Lookup for an unregistered task name.
var ErrUnknownTask = errors.New("unknown task")

// Params carries the user-supplied parameters for building an action.
// Each task reads only the fields it needs.
type Params struct {
	Block       string
	FieldType   string
	From        string
	To          string
	Assignee    string
	RoleAlias   string
	VersionBump string
}

// Task is a named, runnable kind of batch job.
type Task struct {
	Name         string
	Description  string
	DefaultDelay time.Duration

	build func(dataverse.Service, Params) (batch.Action, error)
}

// Build creates the task's action bound to svc.
func (t Task) Build(svc dataverse.Service, p Params) (batch.Action, error) {
	a, err := t.build(svc, p)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.Name, err)
	}
	return a, nil
}

var registry = map[string]Task{
	NameReplaceField: {
		Name:         NameReplaceField,
		Description:  "Replace one metadata field value with another",
		DefaultDelay: DefaultDelay,
		build: func(svc dataverse.Service, p Params) (batch.Action, error) {
			return NewReplaceMetadataFieldValue(svc, p.Block, p.FieldType, p.From, p.To)
		},
	},
	NameRemoveLocks: {
		Name:         NameRemoveLocks,
		Description:  "Delete all locks on locked datasets",
		DefaultDelay: DefaultDelay,
		build: func(svc dataverse.Service, _ Params) (batch.Action, error) {
			return NewRemoveLocks(svc)
		},
	},
	NameRemoveRole: {
		Name:         NameRemoveRole,
		Description:  "Delete a role assignment from datasets",
		DefaultDelay: DefaultDelay,
		build: func(svc dataverse.Service, p Params) (batch.Action, error) {
			return NewRemoveRoleAssignment(svc, p.Assignee, p.RoleAlias)
		},
	},
	NamePublish: {
		Name:         NamePublish,
		Description:  "Publish the draft version of datasets",
		DefaultDelay: PublishDelay,
		build: func(svc dataverse.Service, p Params) (batch.Action, error) {
			return NewPublish(svc, p.VersionBump)
		},
	},
	NameReindex: {
		Name:         NameReindex,
		Description:  "Rebuild the search index entry of datasets (admin API)",
		DefaultDelay: DefaultDelay,
		build: func(svc dataverse.Service, _ Params) (batch.Action, error) {
			return NewReindex(svc)
		},
	},
}

// Lookup returns the task registered under name.
func Lookup(name string) (Task, error) {
	t, ok := registry[name]
	if !ok {
		return Task{}, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	return t, nil
}

// Tasks returns all registered tasks sorted by name.
func Tasks() []Task {
	out := make([]Task, 0, len(registry))
	for _, t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
