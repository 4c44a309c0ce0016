package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docvault/internal/model"
	"docvault/internal/service"
	"docvault/internal/storage"
)

type MockDocumentService struct {
	mock.Mock
}

var _ service.DocumentService = (*MockDocumentService)(nil)

func (m *MockDocumentService) RequestUpload(ctx context.Context, actor model.Actor, in service.UploadInput) (*service.UploadResult, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockDocumentService) ConfirmUpload(ctx context.Context, actor model.Actor, id string) (*model.Document, error) {
	args := m.Called(ctx, actor, id)
	return document(args)
}

func (m *MockDocumentService) Get(ctx context.Context, actor model.Actor, id string) (*model.Document, error) {
	args := m.Called(ctx, actor, id)
	return document(args)
}

func (m *MockDocumentService) DownloadURL(ctx context.Context, actor model.Actor, id string) (*storage.DownloadTicket, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.DownloadTicket), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, actor model.Actor, in service.ListInput) (*service.DocumentListResult, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) ListByPatient(ctx context.Context, actor model.Actor, patientID string) ([]model.Document, error) {
	args := m.Called(ctx, actor, patientID)
	return documents(args)
}

func (m *MockDocumentService) ListByAppointment(ctx context.Context, actor model.Actor, appointmentID string) ([]model.Document, error) {
	args := m.Called(ctx, actor, appointmentID)
	return documents(args)
}

func (m *MockDocumentService) ListByUploader(ctx context.Context, actor model.Actor, uploaderID string) ([]model.Document, error) {
	args := m.Called(ctx, actor, uploaderID)
	return documents(args)
}

func (m *MockDocumentService) Update(ctx context.Context, actor model.Actor, id string, u model.DocumentUpdate) (*model.Document, error) {
	args := m.Called(ctx, actor, id, u)
	return document(args)
}

func (m *MockDocumentService) SetSharing(ctx context.Context, actor model.Actor, id string, shared bool) (*model.Document, error) {
	args := m.Called(ctx, actor, id, shared)
	return document(args)
}

func (m *MockDocumentService) Delete(ctx context.Context, actor model.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockDocumentService) Stats(ctx context.Context, actor model.Actor, patientID string) (*model.DocumentStats, error) {
	args := m.Called(ctx, actor, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentStats), args.Error(1)
}

func document(args mock.Arguments) (*model.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func documents(args mock.Arguments) ([]model.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}
