package repository

import (
	"context"

	"docvault/internal/model"
)

// DocumentRepository defines data access for clinical document metadata.
//
// Every method reports failures as *errs.Error: KindNotFound, KindValidation, KindConflict or KindDatabase.
// Soft-deleted documents are invisible unless a filter sets IncludeDeleted.
type DocumentRepository interface {
	// Create stores a new document with a freshly assigned id.
	// It fails with a validation error if the storage key is malformed and a conflict if the key was ever used.
	Create(ctx context.Context, in model.CreateDocumentInput) (*model.Document, error)

	// FindByID returns a non-deleted document or a not-found error.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindMany returns documents matching f in the order and page given by q.
	FindMany(ctx context.Context, f model.DocumentFilter, q ListQuery) ([]model.Document, error)

	// FindManyWithUploader is FindMany joined with a summary of each uploader.
	FindManyWithUploader(ctx context.Context, f model.DocumentFilter, q ListQuery) ([]model.DocumentWithUploader, error)

	// Count returns the number of documents matching f.
	Count(ctx context.Context, f model.DocumentFilter) (int, error)

	// Update changes metadata fields only; it fails with not-found for missing or deleted documents.
	Update(ctx context.Context, id string, u model.DocumentUpdate) (*model.Document, error)

	// SetStatus moves a document through its upload lifecycle.
	SetStatus(ctx context.Context, id string, status model.Status) (*model.Document, error)

	// Delete soft-deletes a document. Deleting an already-deleted document succeeds.
	Delete(ctx context.Context, id string) error

	// FindByPatientID lists a patient's documents. Without includePrivate, documents that were neither
	// shared with the patient nor uploaded by them are left out.
	FindByPatientID(ctx context.Context, patientID string, includePrivate bool) ([]model.Document, error)

	// FindByAppointmentID lists documents linked to a visit.
	FindByAppointmentID(ctx context.Context, appointmentID string) ([]model.Document, error)

	// FindByUploaderID lists documents created by a user.
	FindByUploaderID(ctx context.Context, uploaderID string) ([]model.Document, error)

	// CheckAccess evaluates the access policy for actor against the document.
	CheckAccess(ctx context.Context, id string, actor model.Actor) (bool, error)

	// TogglePatientSharing sets whether the owning patient may read the document.
	TogglePatientSharing(ctx context.Context, id string, shared bool) (*model.Document, error)

	// GetPatientDocumentStats aggregates a patient's non-deleted documents.
	GetPatientDocumentStats(ctx context.Context, patientID string, recent int) (*model.DocumentStats, error)
}
