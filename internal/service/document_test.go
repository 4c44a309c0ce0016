package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docvault/internal/errs"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/repository/memory"
	repoMocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
	storeMocks "docvault/internal/storage/mocks"
	"docvault/internal/validator"
)

const maxSize = 1024

var (
	staff   = model.Actor{ID: "s1", Role: model.RoleStaff}
	doctor  = model.Actor{ID: "d1", Role: model.RoleDoctor}
	patient = model.Actor{ID: "p1", Role: model.RolePatient}
	other   = model.Actor{ID: "p2", Role: model.RolePatient}

	pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
)

type fixture struct {
	svc     DocumentService
	repo    *memory.DocumentMemory
	local   *storage.LocalBackend
	metrics *Metrics
}

func newValidator() *validator.Validator {
	return validator.New(validator.Rules{
		AllowedMimeTypes:  []string{"application/pdf", "image/png", "text/plain"},
		MaxFileSize:       maxSize,
		TextLikeMimeTypes: []string{"text/plain"},
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	local, err := storage.NewLocal("http://localhost:8080/mock-storage", []byte("test-secret"))
	require.NoError(t, err)
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	v := newValidator()
	repo := memory.NewDocumentMemory(repository.WithValidator(v))
	gw := storage.NewGateway(local, v, storage.GatewayConfig{})
	svc := NewDocumentService(repo, gw, v, metrics, zap.NewNop(), Options{RecentDocuments: 2})
	return &fixture{svc: svc, repo: repo, local: local, metrics: metrics}
}

// upload requests a ticket as actor and stores body under it.
func (f *fixture) upload(t *testing.T, actor model.Actor, patientID, fileType string, declared int64, body []byte) *model.Document {
	t.Helper()
	res, err := f.svc.RequestUpload(context.Background(), actor, UploadInput{
		FileName:  "file.bin",
		FileType:  fileType,
		FileSize:  declared,
		PatientID: patientID,
		Category:  "lab",
	})
	require.NoError(t, err)
	require.NoError(t, f.local.Store(res.Ticket.StorageKey, fileType, body))
	return res.Document
}

func (f *fixture) active(t *testing.T, actor model.Actor, patientID string) *model.Document {
	t.Helper()
	body := []byte("%PDF-1.7\n1 0 obj\n")
	d := f.upload(t, actor, patientID, "application/pdf", int64(len(body)), body)
	d, err := f.svc.ConfirmUpload(context.Background(), actor, d.ID)
	require.NoError(t, err)
	return d
}

func TestRequestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("pending document and ticket", func(t *testing.T) {
		f := newFixture(t)
		appt := "appt-1"
		res, err := f.svc.RequestUpload(ctx, doctor, UploadInput{
			FileName:      "Scan.PDF",
			FileType:      "Application/PDF",
			FileSize:      100,
			PatientID:     "p1",
			Category:      "imaging",
			AppointmentID: &appt,
		})
		require.NoError(t, err)

		d := res.Document
		assert.Equal(t, model.StatusPending, d.Status)
		assert.Equal(t, "application/pdf", d.MimeType)
		assert.Equal(t, "d1", d.UploaderID)
		assert.Equal(t, model.RoleDoctor, d.UploaderRole)
		assert.Equal(t, res.Ticket.StorageKey, d.StorageKey)
		assert.Contains(t, res.Ticket.UploadURL, d.StorageKey)
		assert.Equal(t, "application/pdf", res.Ticket.Headers["Content-Type"])
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.uploadTickets.WithLabelValues("mock")))
	})

	t.Run("patient uploading for someone else", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestUpload(ctx, patient, UploadInput{FileName: "a.pdf", FileType: "application/pdf", FileSize: 1, PatientID: "p2"})
		assert.ErrorIs(t, err, errs.ErrAccessDenied)

		n, err := f.repo.Count(ctx, model.DocumentFilter{IncludeDeleted: true})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("disallowed type is counted and nothing recorded", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestUpload(ctx, staff, UploadInput{FileName: "setup.exe", FileType: "application/x-msdownload", FileSize: 10, PatientID: "p1"})
		assert.ErrorIs(t, err, errs.ErrValidation)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.validationRejections.WithLabelValues(StageDeclared, validator.ReasonTypeNotAllowed)))
		assert.Zero(t, testutil.ToFloat64(f.metrics.uploadTickets.WithLabelValues("mock")))

		n, err := f.repo.Count(ctx, model.DocumentFilter{})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("one byte over the limit", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestUpload(ctx, staff, UploadInput{FileName: "a.pdf", FileType: "application/pdf", FileSize: maxSize + 1, PatientID: "p1"})
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("request shape rejections carry their own reason", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestUpload(ctx, staff, UploadInput{FileName: "a.pdf", FileType: "application/pdf", FileSize: 10, PatientID: "../x"})
		assert.ErrorIs(t, err, errs.ErrValidation)
		_, err = f.svc.RequestUpload(ctx, staff, UploadInput{FileType: "application/pdf", FileSize: 10, PatientID: "p1"})
		assert.ErrorIs(t, err, errs.ErrValidation)

		rejections := f.metrics.validationRejections
		assert.Equal(t, 1.0, testutil.ToFloat64(rejections.WithLabelValues(StageDeclared, storage.ReasonInvalidPatientID)))
		assert.Equal(t, 1.0, testutil.ToFloat64(rejections.WithLabelValues(StageDeclared, storage.ReasonMissingFileName)))
		assert.Zero(t, testutil.ToFloat64(rejections.WithLabelValues(StageDeclared, "unknown")))
	})

	t.Run("storage failure surfaces and records nothing", func(t *testing.T) {
		backend := new(storeMocks.MockBackend)
		backend.On("PresignPut", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.SignedURL{}, errors.New("connection refused"))
		repo := new(repoMocks.MockDocumentRepository)
		metrics, err := NewMetrics(prometheus.NewRegistry())
		require.NoError(t, err)
		v := newValidator()
		svc := NewDocumentService(repo, storage.NewGateway(backend, v, storage.GatewayConfig{}), v, metrics, zap.NewNop(), Options{})

		_, err = svc.RequestUpload(ctx, staff, UploadInput{FileName: "a.pdf", FileType: "application/pdf", FileSize: 10, PatientID: "p1"})
		assert.ErrorIs(t, err, errs.ErrStorage)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestConfirmUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("matching signature becomes active", func(t *testing.T) {
		f := newFixture(t)
		d := f.active(t, doctor, "p1")
		assert.Equal(t, model.StatusActive, d.Status)

		again, err := f.svc.ConfirmUpload(ctx, doctor, d.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusActive, again.Status)
	})

	t.Run("plain text accepted without a signature", func(t *testing.T) {
		f := newFixture(t)
		body := []byte("blood pressure 120/80, résumé attached\n")
		d := f.upload(t, patient, "p1", "text/plain", int64(len(body)), body)

		d, err := f.svc.ConfirmUpload(ctx, patient, d.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusActive, d.Status)
	})

	t.Run("png declared as text is quarantined", func(t *testing.T) {
		f := newFixture(t)
		d := f.upload(t, staff, "p1", "text/plain", int64(len(pngHeader)), pngHeader)

		_, err := f.svc.ConfirmUpload(ctx, staff, d.ID)
		assert.ErrorIs(t, err, errs.ErrValidation)
		e, ok := errs.As(err)
		require.True(t, ok)
		assert.Equal(t, validator.ReasonTypeMismatch, e.Detail["reason"])
		assert.Equal(t, d.ID, e.Detail["document_id"])

		stored, err := f.repo.FindByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusQuarantined, stored.Status)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.validationRejections.WithLabelValues(StageContent, validator.ReasonTypeMismatch)))

		_, err = f.svc.DownloadURL(ctx, staff, d.ID)
		assert.ErrorIs(t, err, errs.ErrValidation)

		_, err = f.svc.ConfirmUpload(ctx, staff, d.ID)
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("size differs from declaration", func(t *testing.T) {
		f := newFixture(t)
		body := bytes.Repeat([]byte("a"), 20)
		d := f.upload(t, staff, "p1", "text/plain", 10, body)

		_, err := f.svc.ConfirmUpload(ctx, staff, d.ID)
		e, ok := errs.As(err)
		require.True(t, ok)
		assert.Equal(t, validator.ReasonSizeMismatch, e.Detail["reason"])
	})

	t.Run("nothing uploaded yet", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.RequestUpload(ctx, staff, UploadInput{FileName: "a.pdf", FileType: "application/pdf", FileSize: 10, PatientID: "p1"})
		require.NoError(t, err)

		_, err = f.svc.ConfirmUpload(ctx, staff, res.Document.ID)
		assert.ErrorIs(t, err, errs.ErrValidation)

		stored, err := f.repo.FindByID(ctx, res.Document.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, stored.Status)
	})

	t.Run("patient cannot confirm a clinician upload", func(t *testing.T) {
		f := newFixture(t)
		body := []byte("%PDF-1.7\n")
		d := f.upload(t, doctor, "p1", "application/pdf", int64(len(body)), body)

		_, err := f.svc.ConfirmUpload(ctx, patient, d.ID)
		assert.ErrorIs(t, err, errs.ErrAccessDenied)
	})
}

func TestReadAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.active(t, doctor, "p1")

	_, err := f.svc.Get(ctx, patient, d.ID)
	assert.ErrorIs(t, err, errs.ErrAccessDenied, "unshared clinician upload")

	_, err = f.svc.SetSharing(ctx, patient, d.ID, true)
	assert.ErrorIs(t, err, errs.ErrAccessDenied)

	_, err = f.svc.SetSharing(ctx, doctor, d.ID, true)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, patient, d.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSharedWithPatient)

	_, err = f.svc.Get(ctx, other, d.ID)
	assert.ErrorIs(t, err, errs.ErrAccessDenied)

	ticket, err := f.svc.DownloadURL(ctx, patient, d.ID)
	require.NoError(t, err)
	assert.Contains(t, ticket.DownloadURL, "response-content-disposition")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.downloadTickets.WithLabelValues("mock")))

	_, err = f.svc.SetSharing(ctx, staff, d.ID, false)
	require.NoError(t, err)
	_, err = f.svc.DownloadURL(ctx, patient, d.ID)
	assert.ErrorIs(t, err, errs.ErrAccessDenied)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hidden := f.active(t, doctor, "p1")
	own := f.active(t, patient, "p1")
	f.active(t, staff, "p2")

	res, err := f.svc.List(ctx, patient, ListInput{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, own.ID, res.Items[0].ID)
	assert.Equal(t, 1, res.Total)

	res, err = f.svc.List(ctx, patient, ListInput{Filter: model.DocumentFilter{PatientID: "p2"}})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.Total)

	res, err = f.svc.List(ctx, doctor, ListInput{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Limit)

	docs, err := f.svc.ListByPatient(ctx, patient, "p1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, own.ID, docs[0].ID)

	docs, err = f.svc.ListByPatient(ctx, doctor, "p1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = f.svc.ListByPatient(ctx, other, "p1")
	assert.ErrorIs(t, err, errs.ErrAccessDenied)

	docs, err = f.svc.ListByUploader(ctx, patient, "d1")
	require.NoError(t, err)
	assert.Empty(t, docs, "patients only see uploads they may read")

	docs, err = f.svc.ListByUploader(ctx, staff, "d1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, hidden.ID, docs[0].ID)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := f.active(t, patient, "p1")

	category := "referral"
	updated, err := f.svc.Update(ctx, patient, d.ID, model.DocumentUpdate{Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "referral", updated.Category)

	shared := true
	_, err = f.svc.Update(ctx, patient, d.ID, model.DocumentUpdate{IsSharedWithPatient: &shared})
	assert.ErrorIs(t, err, errs.ErrAccessDenied, "sharing is a clinician decision")

	_, err = f.svc.Update(ctx, patient, d.ID, model.DocumentUpdate{})
	assert.ErrorIs(t, err, errs.ErrValidation)

	assert.ErrorIs(t, f.svc.Delete(ctx, other, d.ID), errs.ErrAccessDenied)
	require.NoError(t, f.svc.Delete(ctx, patient, d.ID))

	_, err = f.svc.Get(ctx, staff, d.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, staff, d.ID), errs.ErrNotFound)

	res, err := f.svc.List(ctx, staff, ListInput{})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.active(t, doctor, "p1")
	}

	_, err := f.svc.Stats(ctx, patient, "p1")
	assert.ErrorIs(t, err, errs.ErrAccessDenied)

	stats, err := f.svc.Stats(ctx, doctor, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[string]int{"lab": 3}, stats.ByCategory)
	assert.Len(t, stats.RecentDocuments, 2)
}

func TestListPassesNormalizedQuery(t *testing.T) {
	ctx := context.Background()
	repo := new(repoMocks.MockDocumentRepository)
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	local, err := storage.NewLocal("http://localhost/mock-storage", nil)
	require.NoError(t, err)
	v := newValidator()
	svc := NewDocumentService(repo, storage.NewGateway(local, v, storage.GatewayConfig{}), v, metrics, zap.NewNop(),
		Options{DefaultPageSize: 5, MaxPageSize: 10})

	wantFilter := model.DocumentFilter{PatientID: "p1", VisibleToPatient: true}
	wantQuery := repository.ListQuery{Sort: model.DefaultSort, Limit: 10, Offset: 0}
	repo.On("FindManyWithUploader", mock.Anything, wantFilter, wantQuery).Return([]model.DocumentWithUploader{}, nil)
	repo.On("Count", mock.Anything, wantFilter).Return(0, nil)

	res, err := svc.List(ctx, patient, ListInput{Limit: 500, Offset: -1, Filter: model.DocumentFilter{IncludeDeleted: true}})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Limit)
	repo.AssertExpectations(t)
}
