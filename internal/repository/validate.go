package repository

import (
	"docvault/internal/errs"
	"docvault/internal/model"
	"docvault/internal/storage"
	"docvault/internal/validator"
)

// Option configures a repository implementation.
type Option func(*Settings)

// Settings holds what every implementation shares. Implementations build it with Apply.
type Settings struct {
	Validator *validator.Validator
}

// WithValidator makes Create reject MIME types and sizes outside v's allow-lists.
func WithValidator(v *validator.Validator) Option {
	return func(s *Settings) { s.Validator = v }
}

// Apply folds opts into Settings.
func Apply(opts ...Option) Settings {
	var s Settings
	for _, o := range opts {
		o(&s)
	}
	return s
}

// ValidateCreate checks the invariants every implementation enforces before inserting.
// The MIME and size allow-lists are checked only when v is non-nil.
func ValidateCreate(in model.CreateDocumentInput, v *validator.Validator) error {
	if in.PatientID == "" || in.UploaderID == "" {
		return errs.Validation("patient id and uploader id are required")
	}
	if !in.UploaderRole.Valid() {
		return errs.Validation("uploader role %q is not valid", in.UploaderRole)
	}
	if in.UploaderRole == model.RolePatient && in.UploaderID != in.PatientID {
		return errs.Validation("a patient may only upload their own documents")
	}
	if in.FileName == "" || in.MimeType == "" {
		return errs.Validation("file name and mime type are required")
	}
	if in.FileSize <= 0 {
		return errs.Validation("file size must be positive")
	}
	if v != nil {
		if err := v.CheckDeclared(in.MimeType, in.FileSize); err != nil {
			return err
		}
	}
	parts, err := storage.ParseKey(in.StorageKey)
	if err != nil {
		return err
	}
	if parts.PatientID != in.PatientID {
		return errs.Validation("storage key %q does not belong to patient %s", in.StorageKey, in.PatientID)
	}
	switch in.Status {
	case "", model.StatusPending, model.StatusActive:
	default:
		return errs.Validation("documents cannot be created as %s", in.Status)
	}
	return nil
}
