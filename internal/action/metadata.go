package action

import (
	"context"
	"fmt"

	"github.com/dvtools/dvbatch/internal/dataverse"
	"github.com/dvtools/dvbatch/internal/logging"
)

// ReplaceMetadataFieldValue replaces From with To in every field of type
// FieldType inside metadata block Block. Fields holding any other value are
// left alone, as are datasets without the block.
type ReplaceMetadataFieldValue struct {
	Block     string
	FieldType string
	From      string
	To        string

	svc dataverse.Service
}

// NewReplaceMetadataFieldValue validates the parameters and binds them to svc.
func NewReplaceMetadataFieldValue(svc dataverse.Service, block, fieldType, from, to string) (*ReplaceMetadataFieldValue, error) {
	if err := checkService(svc); err != nil {
		return nil, err
	}
	switch {
	case block == "":
		return nil, ErrMissingBlock
	case fieldType == "":
		return nil, ErrMissingFieldType
	case from == to:
		return nil, fmt.Errorf("%w: %q", ErrSameValue, from)
	}
	return &ReplaceMetadataFieldValue{Block: block, FieldType: fieldType, From: from, To: to, svc: svc}, nil
}

// Name implements batch.Action.
func (a *ReplaceMetadataFieldValue) Name() string { return NameReplaceField }

// Apply implements batch.Action. Every matching field is examined; one
// ReplaceField call is made per field that still holds From.
func (a *ReplaceMetadataFieldValue) Apply(ctx context.Context, pid string) (bool, error) {
	log := logging.FromContext(ctx)

	version, err := a.svc.GetMetadata(ctx, pid)
	if err != nil {
		return false, err
	}

	block, ok := version.MetadataBlocks[a.Block]
	if !ok {
		log.Info().Ctx(ctx).Str("pid", pid).Str("block", a.Block).Msg("metadata block not present, leave as-is")
		return false, nil
	}

	replaced := false
	for _, field := range block.Fields {
		if field.TypeName != a.FieldType {
			continue
		}
		current, isString := field.StringValue()
		if !isString {
			log.Info().Ctx(ctx).Str("pid", pid).Str("field", field.TypeName).Msg("field value is not a single string, leave as-is")
			continue
		}
		log.Info().Ctx(ctx).Str("pid", pid).Str("field", field.TypeName).Str("value", current).Msg("found field")
		if current != a.From {
			log.Info().Ctx(ctx).Str("pid", pid).Msg("leave as-is")
			continue
		}

		updated := field.WithStringValue(a.To)
		log.Info().Ctx(ctx).Str("pid", pid).Str("field", field.TypeName).Str("to", a.To).Msg("replacing field value")
		if err := a.svc.ReplaceField(ctx, pid, updated); err != nil {
			return false, err
		}
		replaced = true
	}
	return replaced, nil
}
