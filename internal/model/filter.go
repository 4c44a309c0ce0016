package model

import "time"

// DocumentFilter narrows document queries. Zero values mean "no constraint".
type DocumentFilter struct {
	PatientID     string
	AppointmentID string
	UploaderID    string
	Category      string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	IsShared      *bool
	Status        Status

	// VisibleToPatient keeps only documents the owning patient may read:
	// shared ones, or ones the patient uploaded.
	VisibleToPatient bool

	IncludeDeleted bool
}

// SortField names a sortable column.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByFileName  SortField = "file_name"
)

// Valid reports whether f is a supported sort field.
func (f SortField) Valid() bool {
	switch f {
	case SortByCreatedAt, SortByUpdatedAt, SortByFileName:
		return true
	}
	return false
}

// Sort orders query results.
type Sort struct {
	Field SortField
	Desc  bool
}

// DefaultSort is newest first.
var DefaultSort = Sort{Field: SortByCreatedAt, Desc: true}
