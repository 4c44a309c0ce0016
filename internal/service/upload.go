package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"docvault/internal/errs"
	"docvault/internal/model"
	"docvault/internal/policy"
	"docvault/internal/storage"
	"docvault/internal/validator"
)

func (s *documentService) RequestUpload(ctx context.Context, actor model.Actor, in UploadInput) (res *UploadResult, err error) {
	ctx, span := start(ctx, "DocumentService.RequestUpload", actor,
		attribute.String("patient.id", in.PatientID), attribute.String("file.type", in.FileType))
	defer func() { finish(span, err) }()

	if policy.AuthorizePatient(actor, policy.ActionUpload, in.PatientID) == policy.Deny {
		return nil, errs.AccessDenied("actor %s may not upload documents for patient %s", actor.ID, in.PatientID)
	}

	ticket, err := s.gateway.GenerateUploadURL(ctx, storage.UploadRequest{
		FileName:      in.FileName,
		FileType:      in.FileType,
		FileSize:      in.FileSize,
		PatientID:     in.PatientID,
		Category:      in.Category,
		AppointmentID: in.AppointmentID,
	})
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			s.metrics.rejected(StageDeclared, reasonOf(err))
		} else {
			s.log.Error("upload url failed", zap.String("patient_id", in.PatientID), zap.Error(err))
		}
		return nil, err
	}
	s.metrics.uploadIssued(s.gateway.BackendName())

	doc, err := s.repo.Create(ctx, model.CreateDocumentInput{
		PatientID:           in.PatientID,
		UploaderID:          actor.ID,
		UploaderRole:        actor.Role,
		Category:            in.Category,
		FileName:            in.FileName,
		MimeType:            validator.Normalize(in.FileType),
		FileSize:            in.FileSize,
		StorageKey:          ticket.StorageKey,
		AppointmentID:       in.AppointmentID,
		IsSharedWithPatient: in.IsSharedWithPatient,
		Status:              model.StatusPending,
	})
	if err != nil {
		// The ticket is discarded; nothing has been written under its key yet.
		s.log.Error("pending document not recorded", zap.String("storage_key", ticket.StorageKey), zap.Error(err))
		return nil, err
	}

	s.log.Info("upload ticket issued",
		zap.String("document_id", doc.ID),
		zap.String("storage_key", doc.StorageKey),
		zap.String("backend", s.gateway.BackendName()),
		zap.Time("expires_at", ticket.ExpiresAt),
	)
	return &UploadResult{Document: doc, Ticket: ticket}, nil
}

func (s *documentService) ConfirmUpload(ctx context.Context, actor model.Actor, id string) (doc *model.Document, err error) {
	ctx, span := start(ctx, "DocumentService.ConfirmUpload", actor, attribute.String("document.id", id))
	defer func() { finish(span, err) }()

	d, err := s.authorized(ctx, actor, id, policy.ActionModify)
	if err != nil {
		return nil, err
	}
	switch d.Status {
	case model.StatusActive:
		return d, nil
	case model.StatusQuarantined:
		return nil, errs.Validation("document %s is quarantined", d.ID).WithDetail("status", string(d.Status))
	}

	head, info, err := s.gateway.ReadHead(ctx, d.StorageKey, s.opt.SniffBytes)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Validation("no file has been uploaded for document %s", d.ID).
				WithDetail("reason", "not_uploaded")
		}
		s.log.Error("read uploaded object failed", zap.String("document_id", d.ID), zap.String("storage_key", d.StorageKey), zap.Error(err))
		return nil, err
	}

	if info.Size != d.FileSize || !s.validator.IsFileSizeAllowed(info.Size) {
		verr := errs.Validation("uploaded size %d does not match declared size %d", info.Size, d.FileSize).
			WithDetail("reason", validator.ReasonSizeMismatch)
		return nil, s.quarantine(ctx, d, verr)
	}

	check, verr := s.validator.CheckContent(d.MimeType, head, info.Size)
	if verr != nil {
		return nil, s.quarantine(ctx, d, verr)
	}
	if check.Ambiguous {
		s.log.Warn("content type accepted without signature",
			zap.String("document_id", d.ID),
			zap.String("storage_key", d.StorageKey),
			zap.String("declared", check.Declared),
		)
		span.SetAttributes(attribute.Bool("file.ambiguous", true))
	}

	return s.repo.SetStatus(ctx, d.ID, model.StatusActive)
}

// quarantine marks d and returns the validation error describing why.
func (s *documentService) quarantine(ctx context.Context, d *model.Document, cause error) error {
	s.metrics.rejected(StageContent, reasonOf(cause))
	s.log.Warn("upload quarantined",
		zap.String("document_id", d.ID),
		zap.String("storage_key", d.StorageKey),
		zap.String("reason", reasonOf(cause)),
		zap.Error(cause),
	)
	if _, err := s.repo.SetStatus(ctx, d.ID, model.StatusQuarantined); err != nil {
		return err
	}
	if e, ok := errs.As(cause); ok {
		return e.WithDetail("document_id", d.ID)
	}
	return cause
}

func reasonOf(err error) string {
	if e, ok := errs.As(err); ok {
		if r, ok := e.Detail["reason"].(string); ok {
			return r
		}
	}
	return ""
}
