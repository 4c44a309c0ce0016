package storage

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Errors returned when verifying a mock storage URL.
var (
	ErrSignatureInvalid = errors.New("signature does not match")
	ErrURLExpired       = errors.New("signed url expired")
	ErrUploadNotIssued  = errors.New("no upload url was issued for this key")
	ErrHeaderMismatch   = errors.New("request headers do not match the signed upload")
)

// uploadGrant is an issued upload URL. It is consumed by the first successful Store.
type uploadGrant struct {
	opt     PutObjectOptions
	expires time.Time
}

type localObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// LocalBackend is an in-memory stand-in for the object store, used when no store is configured.
// It issues HMAC-signed URLs under baseURL that are served by the mock storage routes, and enforces
// expiry and signed headers the way the real store does.
type LocalBackend struct {
	baseURL string
	secret  []byte
	now     func() time.Time

	mu      sync.RWMutex
	issued  map[string]uploadGrant
	objects map[string]*localObject
}

// NewLocal creates a LocalBackend. baseURL is the externally reachable prefix of the mock storage
// routes; an empty secret is replaced by a random one.
func NewLocal(baseURL string, secret []byte) (*LocalBackend, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("mock storage base url is required")
	}
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate mock storage secret: %w", err)
		}
	}
	return &LocalBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
		issued:  make(map[string]uploadGrant),
		objects: make(map[string]*localObject),
	}, nil
}

func (l *LocalBackend) Name() string { return "mock" }

func (l *LocalBackend) PresignPut(ctx context.Context, key string, opt PutObjectOptions, expiry time.Duration) (SignedURL, error) {
	if err := ctx.Err(); err != nil {
		return SignedURL{}, err
	}
	now := l.now()
	expires := now.Add(expiry)
	l.mu.Lock()
	l.pruneExpired(now)
	l.issued[key] = uploadGrant{opt: opt, expires: expires}
	l.mu.Unlock()

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires.Unix(), 10))
	q.Set("content-type", opt.ContentType)
	q.Set("signature", l.sign("PUT", key, q))
	return SignedURL{URL: l.objectURL(key, q), Headers: uploadHeaders(opt)}, nil
}

func (l *LocalBackend) PresignGet(ctx context.Context, key string, opt GetObjectOptions, expiry time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(l.now().Add(expiry).Unix(), 10))
	if opt.ResponseFileName != "" {
		q.Set("response-content-disposition", ContentDisposition(opt.ResponseFileName))
	}
	q.Set("signature", l.sign("GET", key, q))
	return l.objectURL(key, q), nil
}

func (l *LocalBackend) Head(ctx context.Context, key string, n int64) ([]byte, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	l.mu.RLock()
	obj, ok := l.objects[key]
	l.mu.RUnlock()
	if !ok {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	size := int64(len(obj.data))
	head := make([]byte, min(n, size))
	copy(head, obj.data)
	return head, obj.info(key), nil
}

// Verify checks a signed request against method, key and its query parameters.
func (l *LocalBackend) Verify(method, key string, q url.Values) error {
	sig, err := hex.DecodeString(q.Get("signature"))
	if err != nil {
		return ErrSignatureInvalid
	}
	want, _ := hex.DecodeString(l.sign(method, key, q))
	if !hmac.Equal(sig, want) {
		return ErrSignatureInvalid
	}
	exp, err := strconv.ParseInt(q.Get("expires"), 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	if l.now().Unix() > exp {
		return ErrURLExpired
	}
	return nil
}

// pruneExpired drops grants whose URL can no longer verify. Callers hold mu.
func (l *LocalBackend) pruneExpired(now time.Time) {
	for key, g := range l.issued {
		if now.Unix() > g.expires.Unix() {
			delete(l.issued, key)
		}
	}
}

// Store saves an uploaded object. The content type must equal the one the upload URL was signed for.
// A grant is single use: once an object is stored, the key needs a fresh upload URL.
func (l *LocalBackend) Store(key, contentType string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	g, ok := l.issued[key]
	if !ok || now.Unix() > g.expires.Unix() {
		delete(l.issued, key)
		return ErrUploadNotIssued
	}
	if !strings.EqualFold(contentType, g.opt.ContentType) {
		return ErrHeaderMismatch
	}
	l.objects[key] = &localObject{
		data:        append([]byte(nil), data...),
		contentType: g.opt.ContentType,
		metadata:    g.opt.Metadata,
		modified:    now,
	}
	delete(l.issued, key)
	return nil
}

// Open returns a copy of a stored object.
func (l *LocalBackend) Open(key string) ([]byte, ObjectInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	obj, ok := l.objects[key]
	if !ok {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return append([]byte(nil), obj.data...), obj.info(key), nil
}

func (o *localObject) info(key string) ObjectInfo {
	return ObjectInfo{
		Key:          key,
		Size:         int64(len(o.data)),
		ContentType:  o.contentType,
		LastModified: o.modified,
		Metadata:     o.metadata,
	}
}

func (l *LocalBackend) objectURL(key string, q url.Values) string {
	return l.baseURL + "/" + key + "?" + q.Encode()
}

// sign covers the method, key and every query parameter except the signature itself.
func (l *LocalBackend) sign(method, key string, q url.Values) string {
	unsigned := url.Values{}
	for k, v := range q {
		if k != "signature" {
			unsigned[k] = v
		}
	}
	mac := hmac.New(sha256.New, l.secret)
	mac.Write([]byte(method + "\n" + key + "\n" + unsigned.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}
