package dataverse

import (
	"encoding/json"
	"time"
)

// Envelope status values.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Version bump granularity accepted by Publish.
const (
	VersionMajor = "major"
	VersionMinor = "minor"
)

// envelope is the wrapper every native API response uses.
type envelope struct {
	Status  string          `json:"status"`
	Message json.RawMessage `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// message returns the envelope message as text. Dataverse sends it either
// as a plain string or as an object with a "message" key.
func (e envelope) message() string {
	if len(e.Message) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Message, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(e.Message)
}

// DatasetVersion is the subset of a dataset version the actions inspect.
type DatasetVersion struct {
	ID                  int64                    `json:"id"`
	DatasetID           int64                    `json:"datasetId"`
	DatasetPersistentID string                   `json:"datasetPersistentId"`
	VersionState        string                   `json:"versionState"`
	MetadataBlocks      map[string]MetadataBlock `json:"metadataBlocks"`
}

// MetadataBlock is one named block of metadata fields, e.g. "citation".
type MetadataBlock struct {
	Name        string  `json:"name,omitempty"`
	DisplayName string  `json:"displayName,omitempty"`
	Fields      []Field `json:"fields"`
}

// Field is one metadata field. Value is kept raw because primitive,
// multiple and compound fields all encode it differently.
type Field struct {
	TypeName  string          `json:"typeName"`
	Multiple  bool            `json:"multiple"`
	TypeClass string          `json:"typeClass"`
	Value     json.RawMessage `json:"value"`
}

// StringValue returns the field value when it is a single string.
func (f Field) StringValue() (string, bool) {
	var s string
	if err := json.Unmarshal(f.Value, &s); err != nil {
		return "", false
	}
	return s, true
}

// WithStringValue returns a copy of f carrying value v.
func (f Field) WithStringValue(v string) Field {
	raw, _ := json.Marshal(v)
	f.Value = raw
	return f
}

// Lock is a server-side lock entry on a dataset.
type Lock struct {
	LockType string    `json:"lockType"`
	Date     time.Time `json:"date"`
	User     string    `json:"user"`
	Dataset  string    `json:"dataset,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// UnmarshalJSON tolerates Dataverse's non-RFC3339 lock dates.
func (l *Lock) UnmarshalJSON(data []byte) error {
	type alias Lock
	var raw struct {
		alias
		Date string `json:"date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Lock(raw.alias)
	l.Date = time.Time{}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw.Date); err == nil {
			l.Date = t
			break
		}
	}
	return nil
}

// RoleAssignment grants a role to an assignee on a dataset.
type RoleAssignment struct {
	ID                int64  `json:"id"`
	Assignee          string `json:"assignee"`
	RoleID            int64  `json:"roleId"`
	RoleAlias         string `json:"_roleAlias"`
	DefinitionPointID int64  `json:"definitionPointId"`
}

// VersionInfo is returned by /api/info/version.
type VersionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build,omitempty"`
}
