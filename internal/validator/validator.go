// Package validator implements the two-stage file type defense: a cheap declared-metadata check before any
// URL is signed, and an authoritative byte-signature check once the object has been uploaded.
package validator

import (
	"bytes"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"

	"docvault/internal/errs"
)

// Rules is the immutable allow-list configuration.
type Rules struct {
	AllowedMimeTypes []string
	MaxFileSize      int64
	// TextLikeMimeTypes are accepted when signature detection is inconclusive, provided the bytes are text.
	TextLikeMimeTypes []string
}

// Validator checks uploads against Rules. It is safe for concurrent use.
type Validator struct {
	allowed  map[string]struct{}
	textLike map[string]struct{}
	maxSize  int64
}

// New builds a Validator from rules.
func New(r Rules) *Validator {
	v := &Validator{
		allowed:  make(map[string]struct{}, len(r.AllowedMimeTypes)),
		textLike: make(map[string]struct{}, len(r.TextLikeMimeTypes)),
		maxSize:  r.MaxFileSize,
	}
	for _, m := range r.AllowedMimeTypes {
		v.allowed[Normalize(m)] = struct{}{}
	}
	for _, m := range r.TextLikeMimeTypes {
		v.textLike[Normalize(m)] = struct{}{}
	}
	return v
}

// MaxFileSize returns the configured maximum in bytes.
func (v *Validator) MaxFileSize() int64 { return v.maxSize }

// aliases maps non-canonical spellings seen from browsers to the canonical type.
var aliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
}

// Normalize lowercases a MIME type, drops parameters and resolves known aliases.
func Normalize(m string) string {
	m = strings.TrimSpace(m)
	if mt, _, err := mime.ParseMediaType(m); err == nil {
		m = mt
	}
	m = strings.ToLower(m)
	if canon, ok := aliases[m]; ok {
		return canon
	}
	return m
}

// IsFileTypeAllowed reports whether the declared MIME type is on the allow-list.
func (v *Validator) IsFileTypeAllowed(mimeType string) bool {
	_, ok := v.allowed[Normalize(mimeType)]
	return ok
}

// IsFileSizeAllowed reports whether size is positive and within the maximum.
func (v *Validator) IsFileSizeAllowed(size int64) bool {
	return size > 0 && size <= v.maxSize
}

// CheckDeclared is the pre-upload stage. Type is checked before size.
func (v *Validator) CheckDeclared(mimeType string, size int64) error {
	if !v.IsFileTypeAllowed(mimeType) {
		return errs.Validation("file type %q is not allowed", mimeType).
			WithDetail("reason", ReasonTypeNotAllowed)
	}
	if !v.IsFileSizeAllowed(size) {
		return errs.Validation("file size %d is outside the allowed range (1..%d bytes)", size, v.maxSize).
			WithDetail("reason", ReasonSizeNotAllowed).
			WithDetail("max_bytes", v.maxSize)
	}
	return nil
}

// Rejection reasons, also used as metric labels.
const (
	ReasonTypeNotAllowed = "type_not_allowed"
	ReasonSizeNotAllowed = "size_not_allowed"
	ReasonTypeMismatch   = "type_mismatch"
	ReasonUndetectable   = "undetectable"
	ReasonNotText        = "not_text"
	ReasonEmpty          = "empty"
	ReasonSizeMismatch   = "size_mismatch"
)

// ContentCheck describes the outcome of the post-upload stage.
type ContentCheck struct {
	Declared string
	Detected string
	// Ambiguous is set when the type could not be detected and the upload was accepted on
	// the text-like fallback. Such uploads should be logged for manual review.
	Ambiguous bool
	Reason    string
}

// CheckContent is the post-upload stage. head holds the leading bytes of the object and totalSize its full
// length; head may be shorter than totalSize. A non-nil error means the upload must be quarantined.
func (v *Validator) CheckContent(declared string, head []byte, totalSize int64) (ContentCheck, error) {
	res := ContentCheck{Declared: Normalize(declared)}
	if len(head) == 0 {
		res.Reason = ReasonEmpty
		return res, errs.Validation("uploaded object is empty").WithDetail("reason", res.Reason)
	}

	kind, err := filetype.Match(head)
	if err == nil && kind != filetype.Unknown {
		res.Detected = Normalize(kind.MIME.Value)
		if res.Detected != res.Declared {
			res.Reason = ReasonTypeMismatch
			return res, errs.Validation("content looks like %s but was declared as %s", res.Detected, res.Declared).
				WithDetail("reason", res.Reason).
				WithDetail("detected", res.Detected)
		}
		return res, nil
	}

	if _, ok := v.textLike[res.Declared]; !ok {
		res.Reason = ReasonUndetectable
		return res, errs.Validation("content type of %s upload could not be verified", res.Declared).
			WithDetail("reason", res.Reason)
	}
	if !looksLikeText(head, int64(len(head)) < totalSize) {
		res.Reason = ReasonNotText
		return res, errs.Validation("content declared as %s is not text", res.Declared).
			WithDetail("reason", res.Reason)
	}
	res.Ambiguous = true
	return res, nil
}

// looksLikeText accepts valid UTF-8 without NUL bytes. When the sample was cut short, an incomplete
// trailing rune is tolerated.
func looksLikeText(b []byte, truncated bool) bool {
	if bytes.IndexByte(b, 0) >= 0 {
		return false
	}
	if truncated {
		for i := 0; i < utf8.UTFMax-1 && len(b) > 0; i++ {
			if r, _ := utf8.DecodeLastRune(b); r != utf8.RuneError {
				break
			}
			b = b[:len(b)-1]
		}
	}
	return utf8.Valid(b)
}
