package storage

import (
	"context"
	"errors"
	"mime"
	"net/url"
	"time"

	"docvault/internal/errs"
	"docvault/internal/validator"
)

// Default URL lifetimes.
const (
	DefaultUploadURLTTL   = 30 * time.Minute
	DefaultDownloadURLTTL = 60 * time.Minute
)

// Object metadata keys embedded on uploads.
const (
	MetaOriginalFilename = "original-filename"
	MetaCategory         = "category"
	MetaPatientID        = "patient-id"
	MetaAppointmentID    = "appointment-id"
)

// GatewayConfig holds the URL lifetimes.
type GatewayConfig struct {
	UploadURLTTL   time.Duration
	DownloadURLTTL time.Duration
}

// Gateway mints storage keys and signed URLs. Validation and TTLs are identical for every backend.
type Gateway struct {
	backend     Backend
	validator   *validator.Validator
	uploadTTL   time.Duration
	downloadTTL time.Duration
	now         func() time.Time
	newFileID   func() string
}

// NewGateway constructs a Gateway over backend. Zero TTLs fall back to the defaults.
func NewGateway(backend Backend, v *validator.Validator, cfg GatewayConfig) *Gateway {
	if cfg.UploadURLTTL <= 0 {
		cfg.UploadURLTTL = DefaultUploadURLTTL
	}
	if cfg.DownloadURLTTL <= 0 {
		cfg.DownloadURLTTL = DefaultDownloadURLTTL
	}
	return &Gateway{
		backend:     backend,
		validator:   v,
		uploadTTL:   cfg.UploadURLTTL,
		downloadTTL: cfg.DownloadURLTTL,
		now:         time.Now,
		newFileID:   NewFileID,
	}
}

// BackendName reports which backend was selected at startup.
func (g *Gateway) BackendName() string { return g.backend.Name() }

// UploadRequest describes a file the client intends to upload.
type UploadRequest struct {
	FileName      string
	FileType      string
	FileSize      int64
	PatientID     string
	Category      string
	AppointmentID *string
}

// UploadTicket is what the client needs to PUT the file directly to the backend.
type UploadTicket struct {
	UploadURL  string            `json:"upload_url"`
	Headers    map[string]string `json:"headers"`
	StorageKey string            `json:"storage_key"`
	FileID     string            `json:"file_id"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// GenerateUploadURL validates the declared type and size, mints a fresh key and asks the backend
// for a write URL. Nothing is minted and no backend call is made when validation fails.
func (g *Gateway) GenerateUploadURL(ctx context.Context, req UploadRequest) (*UploadTicket, error) {
	if err := g.validator.CheckDeclared(req.FileType, req.FileSize); err != nil {
		return nil, err
	}
	if req.FileName == "" {
		return nil, errs.Validation("file name is required").WithDetail("reason", ReasonMissingFileName)
	}
	if err := ValidatePatientID(req.PatientID); err != nil {
		return nil, err
	}

	now := g.now()
	fileID := g.newFileID()
	key, err := BuildKey(req.PatientID, now, fileID, req.FileName)
	if err != nil {
		return nil, err
	}

	meta := map[string]string{
		MetaOriginalFilename: url.PathEscape(req.FileName),
		MetaCategory:         url.PathEscape(req.Category),
		MetaPatientID:        req.PatientID,
	}
	if req.AppointmentID != nil && *req.AppointmentID != "" {
		meta[MetaAppointmentID] = url.PathEscape(*req.AppointmentID)
	}

	signed, err := g.backend.PresignPut(ctx, key, PutObjectOptions{
		ContentType: validator.Normalize(req.FileType),
		Size:        req.FileSize,
		Metadata:    meta,
	}, g.uploadTTL)
	if err != nil {
		return nil, errs.Storage(err, "presign upload url")
	}

	return &UploadTicket{
		UploadURL:  signed.URL,
		Headers:    signed.Headers,
		StorageKey: key,
		FileID:     fileID,
		ExpiresAt:  now.Add(g.uploadTTL).UTC(),
	}, nil
}

// DownloadRequest identifies the object to read.
type DownloadRequest struct {
	StorageKey string
	FileName   string
}

// DownloadTicket is a read-only signed URL.
type DownloadTicket struct {
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// GenerateDownloadURL asks the backend for a read URL. When FileName is set the response is served as
// an attachment with that name.
func (g *Gateway) GenerateDownloadURL(ctx context.Context, req DownloadRequest) (*DownloadTicket, error) {
	if _, err := ParseKey(req.StorageKey); err != nil {
		return nil, err
	}
	now := g.now()
	u, err := g.backend.PresignGet(ctx, req.StorageKey, GetObjectOptions{ResponseFileName: req.FileName}, g.downloadTTL)
	if err != nil {
		return nil, errs.Storage(err, "presign download url")
	}
	return &DownloadTicket{DownloadURL: u, ExpiresAt: now.Add(g.downloadTTL).UTC()}, nil
}

// ReadHead returns up to n leading bytes of the uploaded object and its info.
func (g *Gateway) ReadHead(ctx context.Context, key string, n int64) ([]byte, ObjectInfo, error) {
	head, info, err := g.backend.Head(ctx, key, n)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, ObjectInfo{}, errs.NotFound("no object uploaded under %s", key)
		}
		return nil, ObjectInfo{}, errs.Storage(err, "read object head")
	}
	return head, info, nil
}

// ContentDisposition renders an attachment disposition for fileName, RFC 2231-encoding non-ASCII names.
func ContentDisposition(fileName string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return "attachment"
}
