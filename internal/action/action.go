// Package action holds the per-dataset operations a batch run can apply.
//
// Every action inspects the dataset first and only changes it when needed,
// so re-running a partially completed worklist is safe. Actions that cannot
// inspect (Publish, Reindex) always act and always report a mutation.
package action

import (
	"errors"

	"github.com/dvtools/dvbatch/internal/dataverse"
	"github.com/dvtools/dvbatch/internal/engine/batch"
)

// Names used for actions and their tasks.
const (
	NameReplaceField = "replace-field"
	NameRemoveLocks  = "remove-locks"
	NameRemoveRole   = "remove-role"
	NamePublish      = "publish"
	NameReindex      = "reindex"
)

// Construction errors.
var (
	ErrNilService         = errors.New("action: dataverse service cannot be nil")
	ErrMissingBlock       = errors.New("action: metadata block name is required")
	ErrMissingFieldType   = errors.New("action: field type name is required")
	ErrSameValue          = errors.New("action: from and to values are identical")
	ErrMissingAssignee    = errors.New("action: role assignee is required")
	ErrMissingRoleAlias   = errors.New("action: role alias is required")
	ErrInvalidVersionBump = errors.New("action: version bump must be major or minor")
)

var (
	_ batch.Action = (*ReplaceMetadataFieldValue)(nil)
	_ batch.Action = (*RemoveLocks)(nil)
	_ batch.Action = (*RemoveRoleAssignment)(nil)
	_ batch.Action = (*Publish)(nil)
	_ batch.Action = (*Reindex)(nil)
)

func checkService(svc dataverse.Service) error {
	if svc == nil {
		return ErrNilService
	}
	return nil
}
