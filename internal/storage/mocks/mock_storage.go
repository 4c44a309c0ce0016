package mocks

import (
	"context"
	"time"

	"docvault/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockBackend) PresignPut(ctx context.Context, key string, opt storage.PutObjectOptions, expiry time.Duration) (storage.SignedURL, error) {
	args := m.Called(ctx, key, opt, expiry)
	return args.Get(0).(storage.SignedURL), args.Error(1)
}

func (m *MockBackend) PresignGet(ctx context.Context, key string, opt storage.GetObjectOptions, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, opt, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Head(ctx context.Context, key string, n int64) ([]byte, storage.ObjectInfo, error) {
	args := m.Called(ctx, key, n)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).([]byte), args.Get(1).(storage.ObjectInfo), args.Error(2)
}
