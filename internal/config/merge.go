package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for merge.
const (
	keyDataverse = "dataverse"
	keyFiles     = "files"
	keyBatch     = "batch"
	keyLogging   = "logging"
	keyTracing   = "tracing"
	keyArchive   = "archive"
)

// knownTopLevelKeys lists the YAML keys that correspond to exported Config fields.
// Keys not in this list are silently ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyDataverse: true,
	keyFiles:     true,
	keyBatch:     true,
	keyLogging:   true,
	keyTracing:   true,
	keyArchive:   true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level sections onto
// the target Config. Within a section present in the file, keys that are set
// override the target and keys that are absent keep their current value.
// Sections absent from the file are left unchanged.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]interface{}
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		// Re-marshal the single section so we can unmarshal it onto the
		// strongly-typed target field.
		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling overlay section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection decodes raw YAML bytes onto the matching field of target.
// The section is decoded onto a copy of the current value so defaults
// survive, then assigned back only when decoding succeeds.
func unmarshalSection(target *Config, key string, data []byte) error {
	switch key {
	case keyDataverse:
		v := target.Dataverse
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Dataverse = v
	case keyFiles:
		v := target.Files
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Files = v
	case keyBatch:
		v := target.Batch
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Batch = v
	case keyLogging:
		v := target.Logging
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logging = v
	case keyTracing:
		v := target.Tracing
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Tracing = v
	case keyArchive:
		v := target.Archive
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Archive = v
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
