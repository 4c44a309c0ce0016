package mocks

import (
	"context"

	"docvault/internal/model"
	"docvault/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

var _ repository.DocumentRepository = (*MockDocumentRepository)(nil)

func (m *MockDocumentRepository) document(args mock.Arguments) (*model.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) documents(args mock.Arguments) ([]model.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentRepository) Create(ctx context.Context, in model.CreateDocumentInput) (*model.Document, error) {
	return m.document(m.Called(ctx, in))
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	return m.document(m.Called(ctx, id))
}

func (m *MockDocumentRepository) FindMany(ctx context.Context, f model.DocumentFilter, q repository.ListQuery) ([]model.Document, error) {
	return m.documents(m.Called(ctx, f, q))
}

func (m *MockDocumentRepository) FindManyWithUploader(ctx context.Context, f model.DocumentFilter, q repository.ListQuery) ([]model.DocumentWithUploader, error) {
	args := m.Called(ctx, f, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentWithUploader), args.Error(1)
}

func (m *MockDocumentRepository) Count(ctx context.Context, f model.DocumentFilter) (int, error) {
	args := m.Called(ctx, f)
	return args.Int(0), args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, id string, u model.DocumentUpdate) (*model.Document, error) {
	return m.document(m.Called(ctx, id, u))
}

func (m *MockDocumentRepository) SetStatus(ctx context.Context, id string, status model.Status) (*model.Document, error) {
	return m.document(m.Called(ctx, id, status))
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindByPatientID(ctx context.Context, patientID string, includePrivate bool) ([]model.Document, error) {
	return m.documents(m.Called(ctx, patientID, includePrivate))
}

func (m *MockDocumentRepository) FindByAppointmentID(ctx context.Context, appointmentID string) ([]model.Document, error) {
	return m.documents(m.Called(ctx, appointmentID))
}

func (m *MockDocumentRepository) FindByUploaderID(ctx context.Context, uploaderID string) ([]model.Document, error) {
	return m.documents(m.Called(ctx, uploaderID))
}

func (m *MockDocumentRepository) CheckAccess(ctx context.Context, id string, actor model.Actor) (bool, error) {
	args := m.Called(ctx, id, actor)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) TogglePatientSharing(ctx context.Context, id string, shared bool) (*model.Document, error) {
	return m.document(m.Called(ctx, id, shared))
}

func (m *MockDocumentRepository) GetPatientDocumentStats(ctx context.Context, patientID string, recent int) (*model.DocumentStats, error) {
	args := m.Called(ctx, patientID, recent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentStats), args.Error(1)
}
