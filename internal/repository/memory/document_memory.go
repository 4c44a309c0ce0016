// Package memory is an in-process implementation of repository.DocumentRepository, used for
// offline runs and backend-independent tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docvault/internal/errs"
	"docvault/internal/model"
	"docvault/internal/policy"
	"docvault/internal/repository"
)

// DocumentMemory keeps documents in a map guarded by a RWMutex.
type DocumentMemory struct {
	mu        sync.RWMutex
	docs      map[string]*model.Document
	usedKeys  map[string]struct{}
	uploaders map[string]model.UploaderSummary
	now       func() time.Time
	set       repository.Settings
}

var _ repository.DocumentRepository = (*DocumentMemory)(nil)

// NewDocumentMemory creates an empty repository.
func NewDocumentMemory(opts ...repository.Option) *DocumentMemory {
	return &DocumentMemory{
		docs:      make(map[string]*model.Document),
		usedKeys:  make(map[string]struct{}),
		uploaders: make(map[string]model.UploaderSummary),
		now:       time.Now,
		set:       repository.Apply(opts...),
	}
}

// PutUploader registers a user summary for FindManyWithUploader.
func (r *DocumentMemory) PutUploader(u model.UploaderSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploaders[u.ID] = u
}

func (r *DocumentMemory) Create(ctx context.Context, in model.CreateDocumentInput) (*model.Document, error) {
	if err := repository.ValidateCreate(in, r.set.Validator); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = model.StatusPending
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, used := r.usedKeys[in.StorageKey]; used {
		return nil, errs.Conflict("storage key %s already exists", in.StorageKey)
	}

	now := r.now().UTC()
	d := &model.Document{
		ID:                  uuid.NewString(),
		PatientID:           in.PatientID,
		UploaderID:          in.UploaderID,
		UploaderRole:        in.UploaderRole,
		Category:            in.Category,
		FileName:            in.FileName,
		MimeType:            in.MimeType,
		FileSize:            in.FileSize,
		StorageKey:          in.StorageKey,
		AppointmentID:       cloneString(in.AppointmentID),
		IsSharedWithPatient: in.IsSharedWithPatient,
		Status:              in.Status,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	r.docs[d.ID] = d
	r.usedKeys[d.StorageKey] = struct{}{}
	return clone(d), nil
}

func (r *DocumentMemory) FindByID(ctx context.Context, id string) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return clone(d), nil
}

func (r *DocumentMemory) FindMany(ctx context.Context, f model.DocumentFilter, q repository.ListQuery) ([]model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.page(r.match(f), q), nil
}

func (r *DocumentMemory) FindManyWithUploader(ctx context.Context, f model.DocumentFilter, q repository.ListQuery) ([]model.DocumentWithUploader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.page(r.match(f), q)
	out := make([]model.DocumentWithUploader, 0, len(docs))
	for _, d := range docs {
		u, ok := r.uploaders[d.UploaderID]
		if !ok {
			u = model.UploaderSummary{ID: d.UploaderID, Role: d.UploaderRole}
		}
		out = append(out, model.DocumentWithUploader{Document: d, Uploader: u})
	}
	return out, nil
}

func (r *DocumentMemory) Count(ctx context.Context, f model.DocumentFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.match(f)), nil
}

func (r *DocumentMemory) Update(ctx context.Context, id string, u model.DocumentUpdate) (*model.Document, error) {
	if u.Empty() {
		return nil, errs.Validation("no metadata fields to update")
	}
	return r.mutate(id, func(d *model.Document) {
		if u.Category != nil {
			d.Category = *u.Category
		}
		if u.IsSharedWithPatient != nil {
			d.IsSharedWithPatient = *u.IsSharedWithPatient
		}
	})
}

func (r *DocumentMemory) SetStatus(ctx context.Context, id string, status model.Status) (*model.Document, error) {
	return r.mutate(id, func(d *model.Document) { d.Status = status })
}

func (r *DocumentMemory) TogglePatientSharing(ctx context.Context, id string, shared bool) (*model.Document, error) {
	return r.mutate(id, func(d *model.Document) { d.IsSharedWithPatient = shared })
}

func (r *DocumentMemory) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return errs.NotFound("document %s not found", id)
	}
	if !d.IsDeleted {
		d.IsDeleted = true
		d.UpdatedAt = r.now().UTC()
	}
	return nil
}

func (r *DocumentMemory) FindByPatientID(ctx context.Context, patientID string, includePrivate bool) ([]model.Document, error) {
	return r.all(model.DocumentFilter{PatientID: patientID, VisibleToPatient: !includePrivate})
}

func (r *DocumentMemory) FindByAppointmentID(ctx context.Context, appointmentID string) ([]model.Document, error) {
	return r.all(model.DocumentFilter{AppointmentID: appointmentID})
}

func (r *DocumentMemory) FindByUploaderID(ctx context.Context, uploaderID string) ([]model.Document, error) {
	return r.all(model.DocumentFilter{UploaderID: uploaderID})
}

func (r *DocumentMemory) CheckAccess(ctx context.Context, id string, actor model.Actor) (bool, error) {
	d, err := r.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return policy.Evaluate(actor.ID, actor.Role, d) == policy.Allow, nil
}

func (r *DocumentMemory) GetPatientDocumentStats(ctx context.Context, patientID string, recent int) (*model.DocumentStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.match(model.DocumentFilter{PatientID: patientID})
	stats := &model.DocumentStats{
		PatientID:  patientID,
		Total:      len(docs),
		ByCategory: make(map[string]int),
	}
	for _, d := range docs {
		stats.ByCategory[d.Category]++
		stats.TotalSize += d.FileSize
	}
	stats.RecentDocuments = r.page(docs, repository.ListQuery{Sort: model.DefaultSort, Limit: recent})
	return stats, nil
}

// live returns the stored non-deleted document. Caller holds the lock.
func (r *DocumentMemory) live(id string) (*model.Document, error) {
	d, ok := r.docs[id]
	if !ok || d.IsDeleted {
		return nil, errs.NotFound("document %s not found", id)
	}
	return d, nil
}

func (r *DocumentMemory) mutate(id string, apply func(d *model.Document)) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.live(id)
	if err != nil {
		return nil, err
	}
	apply(d)
	d.UpdatedAt = r.now().UTC()
	return clone(d), nil
}

func (r *DocumentMemory) all(f model.DocumentFilter) ([]model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.match(f)
	sortDocuments(docs, model.DefaultSort)
	return docs, nil
}

// match returns copies of the documents satisfying f. Caller holds the lock.
func (r *DocumentMemory) match(f model.DocumentFilter) []model.Document {
	out := make([]model.Document, 0)
	for _, d := range r.docs {
		if matches(f, d) {
			out = append(out, *clone(d))
		}
	}
	return out
}

func (r *DocumentMemory) page(docs []model.Document, q repository.ListQuery) []model.Document {
	q = q.Normalized(0, 0)
	sortDocuments(docs, q.Sort)
	if q.Offset >= len(docs) {
		return []model.Document{}
	}
	end := min(q.Offset+q.Limit, len(docs))
	return docs[q.Offset:end]
}

func matches(f model.DocumentFilter, d *model.Document) bool {
	switch {
	case d.IsDeleted && !f.IncludeDeleted:
		return false
	case f.PatientID != "" && d.PatientID != f.PatientID:
		return false
	case f.AppointmentID != "" && (d.AppointmentID == nil || *d.AppointmentID != f.AppointmentID):
		return false
	case f.UploaderID != "" && d.UploaderID != f.UploaderID:
		return false
	case f.Category != "" && d.Category != f.Category:
		return false
	case f.CreatedFrom != nil && d.CreatedAt.Before(*f.CreatedFrom):
		return false
	case f.CreatedTo != nil && d.CreatedAt.After(*f.CreatedTo):
		return false
	case f.IsShared != nil && d.IsSharedWithPatient != *f.IsShared:
		return false
	case f.Status != "" && d.Status != f.Status:
		return false
	case f.VisibleToPatient && !d.IsSharedWithPatient && d.UploaderID != d.PatientID:
		return false
	}
	return true
}

func sortDocuments(docs []model.Document, s model.Sort) {
	slices.SortFunc(docs, func(a, b model.Document) int {
		var c int
		switch s.Field {
		case model.SortByUpdatedAt:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		case model.SortByFileName:
			c = strings.Compare(a.FileName, b.FileName)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if s.Desc {
			return -c
		}
		return c
	})
}

func clone(d *model.Document) *model.Document {
	cp := *d
	cp.AppointmentID = cloneString(d.AppointmentID)
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
