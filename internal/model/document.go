package model

import "time"

// Role is the trust level of the identity making a request.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleStaff   Role = "STAFF"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleStaff:
		return true
	}
	return false
}

// Status tracks whether the bytes behind a document were confirmed.
type Status string

const (
	StatusPending     Status = "pending"
	StatusActive      Status = "active"
	StatusQuarantined Status = "quarantined"
)

// Actor is an already-authenticated identity supplied by the auth provider.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Document is the metadata record of a clinical file held in object storage.
// The file bytes are never stored here and never mutated in place.
type Document struct {
	ID                  string    `json:"id"`
	PatientID           string    `json:"patient_id"`
	UploaderID          string    `json:"uploader_id"`
	UploaderRole        Role      `json:"uploader_role"`
	Category            string    `json:"category"`
	FileName            string    `json:"file_name"`
	MimeType            string    `json:"mime_type"`
	FileSize            int64     `json:"file_size"`
	StorageKey          string    `json:"storage_key"`
	AppointmentID       *string   `json:"appointment_id,omitempty"`
	IsSharedWithPatient bool      `json:"is_shared_with_patient"`
	IsDeleted           bool      `json:"is_deleted"`
	Status              Status    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// UploaderSummary is the joined view of the user who created a document.
type UploaderSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// DocumentWithUploader pairs a document with its uploader summary.
type DocumentWithUploader struct {
	Document
	Uploader UploaderSummary `json:"uploader"`
}

// CreateDocumentInput is everything needed to persist a new document record.
type CreateDocumentInput struct {
	PatientID           string
	UploaderID          string
	UploaderRole        Role
	Category            string
	FileName            string
	MimeType            string
	FileSize            int64
	StorageKey          string
	AppointmentID       *string
	IsSharedWithPatient bool
	Status              Status
}

// DocumentUpdate holds the mutable metadata fields. Nil fields are left untouched.
type DocumentUpdate struct {
	Category            *string `json:"category,omitempty"`
	IsSharedWithPatient *bool   `json:"is_shared_with_patient,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u DocumentUpdate) Empty() bool {
	return u.Category == nil && u.IsSharedWithPatient == nil
}

// DocumentStats is a read-only rollup over a patient's non-deleted documents.
type DocumentStats struct {
	PatientID       string         `json:"patient_id"`
	Total           int            `json:"total"`
	ByCategory      map[string]int `json:"by_category"`
	TotalSize       int64          `json:"total_size"`
	RecentDocuments []Document     `json:"recent_documents"`
}
