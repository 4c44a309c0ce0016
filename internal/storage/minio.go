package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docvault/internal/config"
)

// minioBackend implements Backend using an S3-compatible object store (MinIO, AWS S3, etc.).
// It is safe for concurrent use by multiple goroutines.
type minioBackend struct {
	client *minio.Client
	bucket string
}

// NewMinIO creates an S3-compatible backend.
// It validates connectivity and ensures the bucket exists (creates it if missing).
func NewMinIO(ctx context.Context, cfg config.MinIOConfig) (Backend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	tr, err := minio.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("minio transport: %w", err)
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: otelhttp.NewTransport(tr),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Ensure bucket exists.
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &minioBackend{client: cli, bucket: cfg.Bucket}, nil
}

func (m *minioBackend) Name() string { return "minio" }

// PresignPut signs a PUT with the content type and user metadata as signed headers,
// so the client must send exactly those headers.
func (m *minioBackend) PresignPut(ctx context.Context, key string, opt PutObjectOptions, expiry time.Duration) (SignedURL, error) {
	headers := uploadHeaders(opt)
	h := make(http.Header, len(headers))
	for k, v := range headers {
		h.Set(k, v)
	}
	u, err := m.client.PresignHeader(ctx, http.MethodPut, m.bucket, key, expiry, url.Values{}, h)
	if err != nil {
		return SignedURL{}, err
	}
	return SignedURL{URL: u.String(), Headers: headers}, nil
}

// PresignGet generates a pre-signed URL for GET with the specified expiry.
func (m *minioBackend) PresignGet(ctx context.Context, key string, opt GetObjectOptions, expiry time.Duration) (string, error) {
	params := url.Values{}
	if opt.ResponseFileName != "" {
		params.Set("response-content-disposition", ContentDisposition(opt.ResponseFileName))
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Head stats the object and reads at most n leading bytes with a ranged GET.
func (m *minioBackend) Head(ctx context.Context, key string, n int64) ([]byte, ObjectInfo, error) {
	st, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, translateMinIOError(err)
	}
	info := ObjectInfo{
		Key:          key,
		Size:         st.Size,
		ContentType:  st.ContentType,
		LastModified: st.LastModified,
		Metadata:     st.UserMetadata,
	}
	if st.Size == 0 || n <= 0 {
		return []byte{}, info, nil
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(0, min(n, st.Size)-1); err != nil {
		return nil, ObjectInfo{}, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, opts)
	if err != nil {
		return nil, ObjectInfo{}, translateMinIOError(err)
	}
	defer obj.Close()

	head, err := io.ReadAll(io.LimitReader(obj, n))
	if err != nil {
		return nil, ObjectInfo{}, translateMinIOError(err)
	}
	return head, info, nil
}

func translateMinIOError(err error) error {
	if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, resp.Key)
	}
	return err
}

// uploadHeaders are the headers a client must send with a signed PUT.
func uploadHeaders(opt PutObjectOptions) map[string]string {
	h := make(map[string]string, len(opt.Metadata)+1)
	if opt.ContentType != "" {
		h["Content-Type"] = opt.ContentType
	}
	for k, v := range opt.Metadata {
		h[http.CanonicalHeaderKey("X-Amz-Meta-"+k)] = v
	}
	return h
}
