package storage_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/errs"
	"docvault/internal/storage"
	storeMocks "docvault/internal/storage/mocks"
	"docvault/internal/validator"
)

const maxSize = 10 * 1024 * 1024

func newValidator() *validator.Validator {
	return validator.New(validator.Rules{
		AllowedMimeTypes:  []string{"application/pdf", "image/png", "text/plain"},
		MaxFileSize:       maxSize,
		TextLikeMimeTypes: []string{"text/plain"},
	})
}

func localGateway(t *testing.T) *storage.Gateway {
	t.Helper()
	l, err := storage.NewLocal("http://localhost:8080/mock-storage", nil)
	require.NoError(t, err)
	return storage.NewGateway(l, newValidator(), storage.GatewayConfig{})
}

func TestGenerateUploadURL_RejectsBeforeMinting(t *testing.T) {
	tests := []struct {
		name   string
		req    storage.UploadRequest
		reason string
	}{
		{"disallowed type", storage.UploadRequest{FileName: "setup.exe", FileType: "application/x-msdownload", FileSize: 100, PatientID: "p1"}, validator.ReasonTypeNotAllowed},
		{"one byte over max", storage.UploadRequest{FileName: "scan.pdf", FileType: "application/pdf", FileSize: maxSize + 1, PatientID: "p1"}, validator.ReasonSizeNotAllowed},
		{"bad patient id", storage.UploadRequest{FileName: "scan.pdf", FileType: "application/pdf", FileSize: 10, PatientID: "../p1"}, storage.ReasonInvalidPatientID},
		{"missing file name", storage.UploadRequest{FileType: "application/pdf", FileSize: 10, PatientID: "p1"}, storage.ReasonMissingFileName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(storeMocks.MockBackend)
			gw := storage.NewGateway(backend, newValidator(), storage.GatewayConfig{})

			ticket, err := gw.GenerateUploadURL(context.Background(), tt.req)

			assert.ErrorIs(t, err, errs.ErrValidation)
			assert.Nil(t, ticket)
			e, ok := errs.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, e.Detail["reason"])
			backend.AssertNotCalled(t, "PresignPut", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGenerateUploadURL_UsesTTLAndMetadata(t *testing.T) {
	backend := new(storeMocks.MockBackend)
	gw := storage.NewGateway(backend, newValidator(), storage.GatewayConfig{})
	appt := "appt-7"

	backend.On("PresignPut", mock.Anything,
		mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "documents/p1/") && strings.HasSuffix(key, ".pdf")
		}),
		mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.ContentType == "application/pdf" &&
				opt.Size == 2048 &&
				opt.Metadata[storage.MetaOriginalFilename] == "Blood%20Panel.pdf" &&
				opt.Metadata[storage.MetaCategory] == "lab" &&
				opt.Metadata[storage.MetaPatientID] == "p1" &&
				opt.Metadata[storage.MetaAppointmentID] == "appt-7"
		}),
		30*time.Minute,
	).Return(storage.SignedURL{URL: "https://s3.example/put", Headers: map[string]string{"Content-Type": "application/pdf"}}, nil).Once()

	ticket, err := gw.GenerateUploadURL(context.Background(), storage.UploadRequest{
		FileName:      "Blood Panel.pdf",
		FileType:      "application/pdf",
		FileSize:      2048,
		PatientID:     "p1",
		Category:      "lab",
		AppointmentID: &appt,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/put", ticket.UploadURL)
	assert.True(t, strings.HasSuffix(ticket.StorageKey, "/"+ticket.FileID+".pdf"))
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), ticket.ExpiresAt, 5*time.Second)
	backend.AssertExpectations(t)
}

func TestGenerateUploadURL_BackendFailureIsStorageError(t *testing.T) {
	backend := new(storeMocks.MockBackend)
	gw := storage.NewGateway(backend, newValidator(), storage.GatewayConfig{})
	backend.On("PresignPut", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.SignedURL{}, errors.New("signing endpoint down")).Once()

	_, err := gw.GenerateUploadURL(context.Background(), storage.UploadRequest{
		FileName: "a.pdf", FileType: "application/pdf", FileSize: 1, PatientID: "p1",
	})

	assert.ErrorIs(t, err, errs.ErrStorage)
}

func TestGenerateUploadURL_ConcurrentKeysAreDistinct(t *testing.T) {
	gw := localGateway(t)

	const n = 100
	keys := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := gw.GenerateUploadURL(context.Background(), storage.UploadRequest{
				FileName: "scan.pdf", FileType: "application/pdf", FileSize: 100, PatientID: "p1",
			})
			if err == nil {
				keys[i] = ticket.StorageKey
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, k := range keys {
		require.NotEmpty(t, k)
		seen[k] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestGenerateDownloadURL(t *testing.T) {
	backend := new(storeMocks.MockBackend)
	gw := storage.NewGateway(backend, newValidator(), storage.GatewayConfig{DownloadURLTTL: 15 * time.Minute})
	key := "documents/p1/2026-05-01/5f0c6a0e-8f1a-4d0f-9a47-2f4d8f1e9b11.pdf"

	backend.On("PresignGet", mock.Anything, key, storage.GetObjectOptions{ResponseFileName: "report.pdf"}, 15*time.Minute).
		Return("https://s3.example/get", nil).Once()

	ticket, err := gw.GenerateDownloadURL(context.Background(), storage.DownloadRequest{StorageKey: key, FileName: "report.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/get", ticket.DownloadURL)

	_, err = gw.GenerateDownloadURL(context.Background(), storage.DownloadRequest{StorageKey: "../../etc/passwd"})
	assert.ErrorIs(t, err, errs.ErrValidation)
	backend.AssertExpectations(t)
}

func TestGateway_BackendsBehaveAlike(t *testing.T) {
	backend := new(storeMocks.MockBackend)
	backend.On("PresignPut", mock.Anything, mock.Anything, mock.Anything, storage.DefaultUploadURLTTL).
		Return(storage.SignedURL{URL: "https://s3.example/put"}, nil)

	gateways := map[string]*storage.Gateway{
		"object store": storage.NewGateway(backend, newValidator(), storage.GatewayConfig{}),
		"local mock":   localGateway(t),
	}

	for name, gw := range gateways {
		t.Run(name, func(t *testing.T) {
			_, err := gw.GenerateUploadURL(context.Background(), storage.UploadRequest{
				FileName: "x.exe", FileType: "application/x-msdownload", FileSize: 1, PatientID: "p1",
			})
			assert.ErrorIs(t, err, errs.ErrValidation)

			ticket, err := gw.GenerateUploadURL(context.Background(), storage.UploadRequest{
				FileName: "notes.txt", FileType: "text/plain", FileSize: 12, PatientID: "p1",
			})
			require.NoError(t, err)
			parts, err := storage.ParseKey(ticket.StorageKey)
			require.NoError(t, err)
			assert.Equal(t, "p1", parts.PatientID)
			assert.Equal(t, ".txt", parts.Ext)
			assert.WithinDuration(t, time.Now().Add(storage.DefaultUploadURLTTL), ticket.ExpiresAt, 5*time.Second)
		})
	}
}

func TestReadHead_NotFound(t *testing.T) {
	gw := localGateway(t)
	_, _, err := gw.ReadHead(context.Background(), "documents/p1/2026-05-01/5f0c6a0e-8f1a-4d0f-9a47-2f4d8f1e9b11.pdf", 512)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
