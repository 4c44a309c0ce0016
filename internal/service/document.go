package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"docvault/internal/errs"
	"docvault/internal/model"
	"docvault/internal/policy"
	"docvault/internal/repository"
	"docvault/internal/storage"
	"docvault/internal/validator"
)

var tracer = otel.Tracer("docvault/internal/service")

// UploadInput is a request for a signed upload URL.
type UploadInput struct {
	FileName            string  `json:"file_name"`
	FileType            string  `json:"file_type"`
	FileSize            int64   `json:"file_size"`
	PatientID           string  `json:"patient_id"`
	Category            string  `json:"category"`
	AppointmentID       *string `json:"appointment_id,omitempty"`
	IsSharedWithPatient bool    `json:"is_shared_with_patient"`
}

// UploadResult is the pending document plus the ticket to upload its bytes.
type UploadResult struct {
	Document *model.Document      `json:"document"`
	Ticket   *storage.UploadTicket `json:"upload"`
}

// ListInput selects a page of documents.
type ListInput struct {
	Filter model.DocumentFilter
	Sort   model.Sort
	Limit  int
	Offset int
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items  []model.DocumentWithUploader `json:"data"`
	Total  int                          `json:"total"`
	Limit  int                          `json:"limit"`
	Offset int                          `json:"offset"`
}

// DocumentService defines the vault use cases. Every method authorizes actor against the policy tables
// and reports failures as *errs.Error.
type DocumentService interface {
	// RequestUpload validates the declared file, issues a signed upload URL and records a pending document.
	RequestUpload(ctx context.Context, actor model.Actor, in UploadInput) (*UploadResult, error)

	// ConfirmUpload sniffs the uploaded bytes and moves the document to active or quarantined.
	ConfirmUpload(ctx context.Context, actor model.Actor, id string) (*model.Document, error)

	Get(ctx context.Context, actor model.Actor, id string) (*model.Document, error)

	// DownloadURL issues a signed download URL for an active document.
	DownloadURL(ctx context.Context, actor model.Actor, id string) (*storage.DownloadTicket, error)

	// List returns the page of documents visible to actor.
	List(ctx context.Context, actor model.Actor, in ListInput) (*DocumentListResult, error)

	ListByPatient(ctx context.Context, actor model.Actor, patientID string) ([]model.Document, error)
	ListByAppointment(ctx context.Context, actor model.Actor, appointmentID string) ([]model.Document, error)
	ListByUploader(ctx context.Context, actor model.Actor, uploaderID string) ([]model.Document, error)

	// Update changes metadata only.
	Update(ctx context.Context, actor model.Actor, id string, u model.DocumentUpdate) (*model.Document, error)

	SetSharing(ctx context.Context, actor model.Actor, id string, shared bool) (*model.Document, error)

	// Delete soft-deletes the document. The stored object is left for the purge job.
	Delete(ctx context.Context, actor model.Actor, id string) error

	Stats(ctx context.Context, actor model.Actor, patientID string) (*model.DocumentStats, error)
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	SniffBytes      int64
	DefaultPageSize int
	MaxPageSize     int
	RecentDocuments int
}

const (
	defaultSniffBytes      = 8192
	defaultRecentDocuments = 5
)

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	repo      repository.DocumentRepository
	gateway   *storage.Gateway
	validator *validator.Validator
	metrics   *Metrics
	log       *zap.Logger
	opt       Options
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(
	repo repository.DocumentRepository,
	gateway *storage.Gateway,
	v *validator.Validator,
	metrics *Metrics,
	log *zap.Logger,
	opt Options,
) DocumentService {
	if opt.SniffBytes <= 0 {
		opt.SniffBytes = defaultSniffBytes
	}
	if opt.RecentDocuments <= 0 {
		opt.RecentDocuments = defaultRecentDocuments
	}
	return &documentService{
		repo:      repo,
		gateway:   gateway,
		validator: v,
		metrics:   metrics,
		log:       log.Named("document_service"),
		opt:       opt,
	}
}

func (s *documentService) Get(ctx context.Context, actor model.Actor, id string) (doc *model.Document, err error) {
	ctx, span := start(ctx, "DocumentService.Get", actor, attribute.String("document.id", id))
	defer func() { finish(span, err) }()

	return s.authorized(ctx, actor, id, policy.ActionRead)
}

func (s *documentService) DownloadURL(ctx context.Context, actor model.Actor, id string) (ticket *storage.DownloadTicket, err error) {
	ctx, span := start(ctx, "DocumentService.DownloadURL", actor, attribute.String("document.id", id))
	defer func() { finish(span, err) }()

	d, err := s.authorized(ctx, actor, id, policy.ActionRead)
	if err != nil {
		return nil, err
	}
	if d.Status != model.StatusActive {
		return nil, errs.Validation("document %s is %s and cannot be downloaded", d.ID, d.Status).
			WithDetail("status", string(d.Status))
	}
	ticket, err = s.gateway.GenerateDownloadURL(ctx, storage.DownloadRequest{StorageKey: d.StorageKey, FileName: d.FileName})
	if err != nil {
		s.log.Error("download url failed", zap.String("document_id", d.ID), zap.String("storage_key", d.StorageKey), zap.Error(err))
		return nil, err
	}
	s.metrics.downloadIssued(s.gateway.BackendName())
	return ticket, nil
}

func (s *documentService) List(ctx context.Context, actor model.Actor, in ListInput) (res *DocumentListResult, err error) {
	ctx, span := start(ctx, "DocumentService.List", actor)
	defer func() { finish(span, err) }()

	q := repository.ListQuery{Sort: in.Sort, Limit: in.Limit, Offset: in.Offset}.
		Normalized(s.opt.DefaultPageSize, s.opt.MaxPageSize)
	res = &DocumentListResult{Items: []model.DocumentWithUploader{}, Limit: q.Limit, Offset: q.Offset}

	in.Filter.IncludeDeleted = false
	f, ok := policy.ScopeFilter(actor, in.Filter)
	if !ok {
		return res, nil
	}
	if res.Items, err = s.repo.FindManyWithUploader(ctx, f, q); err != nil {
		return nil, err
	}
	if res.Total, err = s.repo.Count(ctx, f); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *documentService) ListByPatient(ctx context.Context, actor model.Actor, patientID string) (docs []model.Document, err error) {
	ctx, span := start(ctx, "DocumentService.ListByPatient", actor, attribute.String("patient.id", patientID))
	defer func() { finish(span, err) }()

	if policy.AuthorizePatient(actor, policy.ActionListPatient, patientID) == policy.Deny {
		return nil, errs.AccessDenied("actor %s may not list documents of patient %s", actor.ID, patientID)
	}
	// Clinicians see everything; the owning patient only what the read rule admits.
	return s.repo.FindByPatientID(ctx, patientID, actor.Role != model.RolePatient)
}

func (s *documentService) ListByAppointment(ctx context.Context, actor model.Actor, appointmentID string) (docs []model.Document, err error) {
	ctx, span := start(ctx, "DocumentService.ListByAppointment", actor, attribute.String("appointment.id", appointmentID))
	defer func() { finish(span, err) }()

	docs, err = s.repo.FindByAppointmentID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return readable(actor, docs), nil
}

func (s *documentService) ListByUploader(ctx context.Context, actor model.Actor, uploaderID string) (docs []model.Document, err error) {
	ctx, span := start(ctx, "DocumentService.ListByUploader", actor, attribute.String("uploader.id", uploaderID))
	defer func() { finish(span, err) }()

	docs, err = s.repo.FindByUploaderID(ctx, uploaderID)
	if err != nil {
		return nil, err
	}
	return readable(actor, docs), nil
}

func (s *documentService) Update(ctx context.Context, actor model.Actor, id string, u model.DocumentUpdate) (doc *model.Document, err error) {
	ctx, span := start(ctx, "DocumentService.Update", actor, attribute.String("document.id", id))
	defer func() { finish(span, err) }()

	if u.Empty() {
		return nil, errs.Validation("no metadata fields to update")
	}
	d, err := s.authorized(ctx, actor, id, policy.ActionModify)
	if err != nil {
		return nil, err
	}
	if u.IsSharedWithPatient != nil && *u.IsSharedWithPatient != d.IsSharedWithPatient &&
		policy.Authorize(actor, policy.ActionShare, d) == policy.Deny {
		return nil, errs.AccessDenied("actor %s may not change sharing of document %s", actor.ID, id)
	}
	return s.repo.Update(ctx, id, u)
}

func (s *documentService) SetSharing(ctx context.Context, actor model.Actor, id string, shared bool) (doc *model.Document, err error) {
	ctx, span := start(ctx, "DocumentService.SetSharing", actor,
		attribute.String("document.id", id), attribute.Bool("document.shared", shared))
	defer func() { finish(span, err) }()

	if _, err := s.authorized(ctx, actor, id, policy.ActionShare); err != nil {
		return nil, err
	}
	doc, err = s.repo.TogglePatientSharing(ctx, id, shared)
	if err != nil {
		return nil, err
	}
	s.log.Info("sharing changed", zap.String("document_id", id), zap.Bool("shared", shared), zap.String("actor_id", actor.ID))
	return doc, nil
}

func (s *documentService) Delete(ctx context.Context, actor model.Actor, id string) (err error) {
	ctx, span := start(ctx, "DocumentService.Delete", actor, attribute.String("document.id", id))
	defer func() { finish(span, err) }()

	d, err := s.authorized(ctx, actor, id, policy.ActionModify)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("document soft-deleted", zap.String("document_id", id), zap.String("storage_key", d.StorageKey), zap.String("actor_id", actor.ID))
	return nil
}

func (s *documentService) Stats(ctx context.Context, actor model.Actor, patientID string) (stats *model.DocumentStats, err error) {
	ctx, span := start(ctx, "DocumentService.Stats", actor, attribute.String("patient.id", patientID))
	defer func() { finish(span, err) }()

	if policy.AuthorizePatient(actor, policy.ActionViewStats, patientID) == policy.Deny {
		return nil, errs.AccessDenied("actor %s may not view statistics of patient %s", actor.ID, patientID)
	}
	return s.repo.GetPatientDocumentStats(ctx, patientID, s.opt.RecentDocuments)
}

// authorized loads a live document and checks action against it.
func (s *documentService) authorized(ctx context.Context, actor model.Actor, id string, action policy.Action) (*model.Document, error) {
	if id == "" {
		return nil, errs.Validation("id is required")
	}
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy.Authorize(actor, action, d) == policy.Deny {
		return nil, errs.AccessDenied("actor %s may not %s document %s", actor.ID, action, id)
	}
	return d, nil
}

func readable(actor model.Actor, docs []model.Document) []model.Document {
	out := make([]model.Document, 0, len(docs))
	for i := range docs {
		if policy.Authorize(actor, policy.ActionRead, &docs[i]) == policy.Allow {
			out = append(out, docs[i])
		}
	}
	return out
}

func start(ctx context.Context, name string, actor model.Actor, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("actor.id", actor.ID), attribute.String("actor.role", string(actor.Role)))
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errs.KindOf(err).String())
	}
	span.End()
}
