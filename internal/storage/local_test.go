package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (*LocalBackend, *time.Time) {
	t.Helper()
	l, err := NewLocal("http://localhost:8080/mock-storage/", []byte("secret"))
	require.NoError(t, err)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func splitURL(t *testing.T, raw string) (string, url.Values) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return strings.TrimPrefix(u.Path, "/mock-storage/"), u.Query()
}

func TestLocalBackend_PutThenHead(t *testing.T) {
	l, _ := newLocal(t)
	ctx := context.Background()
	key := "documents/p1/2026-05-01/5f0c6a0e-8f1a-4d0f-9a47-2f4d8f1e9b11.txt"

	signed, err := l.PresignPut(ctx, key, PutObjectOptions{
		ContentType: "text/plain",
		Size:        5,
		Metadata:    map[string]string{MetaPatientID: "p1"},
	}, 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed.URL, "http://localhost:8080/mock-storage/documents/p1/"))
	assert.Equal(t, "text/plain", signed.Headers["Content-Type"])
	assert.Equal(t, "p1", signed.Headers["X-Amz-Meta-Patient-Id"])

	gotKey, q := splitURL(t, signed.URL)
	assert.Equal(t, key, gotKey)
	require.NoError(t, l.Verify("PUT", key, q))
	assert.ErrorIs(t, l.Verify("GET", key, q), ErrSignatureInvalid)

	assert.ErrorIs(t, l.Store(key, "application/pdf", []byte("hello")), ErrHeaderMismatch)
	require.NoError(t, l.Store(key, "text/plain", []byte("hello")))

	assert.ErrorIs(t, l.Store(key, "text/plain", []byte("again")), ErrUploadNotIssued, "upload urls are single use")

	head, info, err := l.Head(ctx, key, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("he"), head)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)
}

func TestLocalBackend_StoreRequiresIssuedURL(t *testing.T) {
	l, _ := newLocal(t)
	assert.ErrorIs(t, l.Store("documents/p1/2026-05-01/x", "text/plain", []byte("x")), ErrUploadNotIssued)

	_, _, err := l.Head(context.Background(), "documents/p1/2026-05-01/x", 10)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalBackend_ExpiredGrantsArePruned(t *testing.T) {
	l, now := newLocal(t)
	ctx := context.Background()
	stale := "documents/p1/2026-05-01/5f0c6a0e-8f1a-4d0f-9a47-2f4d8f1e9b11.txt"
	fresh := "documents/p1/2026-05-01/7a1d2c3b-4e5f-4a6b-8c7d-9e0f1a2b3c4d.txt"

	_, err := l.PresignPut(ctx, stale, PutObjectOptions{ContentType: "text/plain"}, time.Minute)
	require.NoError(t, err)
	assert.Len(t, l.issued, 1)

	*now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, l.Store(stale, "text/plain", []byte("late")), ErrUploadNotIssued)

	_, err = l.PresignPut(ctx, stale, PutObjectOptions{ContentType: "text/plain"}, time.Minute)
	require.NoError(t, err)
	*now = now.Add(2 * time.Minute)
	_, err = l.PresignPut(ctx, fresh, PutObjectOptions{ContentType: "text/plain"}, time.Minute)
	require.NoError(t, err)

	assert.Len(t, l.issued, 1)
	assert.Contains(t, l.issued, fresh)
}

func TestLocalBackend_Expiry(t *testing.T) {
	l, now := newLocal(t)
	key := "documents/p1/2026-05-01/5f0c6a0e-8f1a-4d0f-9a47-2f4d8f1e9b11.pdf"

	raw, err := l.PresignGet(context.Background(), key, GetObjectOptions{ResponseFileName: "report.pdf"}, time.Hour)
	require.NoError(t, err)
	_, q := splitURL(t, raw)
	assert.Equal(t, `attachment; filename=report.pdf`, q.Get("response-content-disposition"))
	require.NoError(t, l.Verify("GET", key, q))

	*now = now.Add(time.Hour + time.Second)
	assert.ErrorIs(t, l.Verify("GET", key, q), ErrURLExpired)
}

func TestLocalBackend_TamperedQuery(t *testing.T) {
	l, _ := newLocal(t)
	key := "documents/p1/2026-05-01/5f0c6a0e-8f1a-4d0f-9a47-2f4d8f1e9b11.pdf"

	raw, err := l.PresignGet(context.Background(), key, GetObjectOptions{}, time.Minute)
	require.NoError(t, err)
	_, q := splitURL(t, raw)
	q.Set("expires", "99999999999")

	assert.ErrorIs(t, l.Verify("GET", key, q), ErrSignatureInvalid)
	assert.ErrorIs(t, l.Verify("GET", "documents/p2/2026-05-01/other.pdf", q), ErrSignatureInvalid)
}
