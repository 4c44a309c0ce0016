package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/errs"
)

const maxSize = 10 * 1024 * 1024

var (
	pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	pdfHeader = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n")
	exeHeader = append([]byte{'M', 'Z', 0x90, 0}, make([]byte, 60)...)
)

func newValidator() *Validator {
	return New(Rules{
		AllowedMimeTypes:  []string{"application/pdf", "image/jpeg", "image/png", "text/plain"},
		MaxFileSize:       maxSize,
		TextLikeMimeTypes: []string{"text/plain"},
	})
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "text/plain", Normalize("Text/Plain; charset=utf-8"))
	assert.Equal(t, "image/jpeg", Normalize("image/jpg"))
	assert.Equal(t, "application/pdf", Normalize(" application/pdf "))
}

func TestCheckDeclared(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name       string
		mime       string
		size       int64
		wantReason string
	}{
		{name: "allowed pdf", mime: "application/pdf", size: 1024},
		{name: "alias accepted", mime: "image/jpg", size: 1},
		{name: "exactly max", mime: "image/png", size: maxSize},
		{name: "executable rejected", mime: "application/x-msdownload", size: 10, wantReason: ReasonTypeNotAllowed},
		{name: "one byte over", mime: "application/pdf", size: maxSize + 1, wantReason: ReasonSizeNotAllowed},
		{name: "zero size", mime: "application/pdf", size: 0, wantReason: ReasonSizeNotAllowed},
		{name: "type checked before size", mime: "application/zip", size: maxSize * 2, wantReason: ReasonTypeNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CheckDeclared(tt.mime, tt.size)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errs.ErrValidation)
			e, _ := errs.As(err)
			assert.Equal(t, tt.wantReason, e.Detail["reason"])
		})
	}
}

func TestCheckContent(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name          string
		declared      string
		head          []byte
		size          int64
		wantReason    string
		wantAmbiguous bool
	}{
		{name: "genuine png", declared: "image/png", head: pngHeader, size: 2048},
		{name: "genuine pdf", declared: "application/pdf", head: pdfHeader, size: 4096},
		{name: "png declared as text", declared: "text/plain", head: pngHeader, size: 2048, wantReason: ReasonTypeMismatch},
		{name: "executable declared as pdf", declared: "application/pdf", head: exeHeader, size: 64, wantReason: ReasonTypeMismatch},
		{name: "utf-8 text declared as text", declared: "text/plain", head: []byte("Patient reports mild headache. Température 37,2°C.\n"), size: 52, wantAmbiguous: true},
		{name: "text declared as pdf", declared: "application/pdf", head: []byte("just some words"), size: 15, wantReason: ReasonUndetectable},
		{name: "binary declared as text", declared: "text/plain", head: []byte{0x01, 0x00, 0x02, 0x03}, size: 4, wantReason: ReasonNotText},
		{name: "invalid utf-8 declared as text", declared: "text/plain", head: []byte{'a', 0xff, 0xfe, 'b'}, size: 4, wantReason: ReasonNotText},
		{name: "empty object", declared: "text/plain", head: nil, size: 0, wantReason: ReasonEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.CheckContent(tt.declared, tt.head, tt.size)
			if tt.wantReason == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAmbiguous, res.Ambiguous)
				return
			}
			require.ErrorIs(t, err, errs.ErrValidation)
			assert.Equal(t, tt.wantReason, res.Reason)
		})
	}
}

func TestCheckContent_TruncatedTextSample(t *testing.T) {
	v := newValidator()
	full := []byte(strings.Repeat("é", 10))
	// Cut in the middle of a two-byte rune.
	head := full[:len(full)-1]

	res, err := v.CheckContent("text/plain", head, int64(len(full)))
	require.NoError(t, err)
	assert.True(t, res.Ambiguous)

	_, err = v.CheckContent("text/plain", head, int64(len(head)))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestTextLikeListIsConfigurable(t *testing.T) {
	v := New(Rules{
		AllowedMimeTypes:  []string{"text/csv"},
		MaxFileSize:       maxSize,
		TextLikeMimeTypes: []string{"text/csv"},
	})

	_, err := v.CheckContent("text/csv", []byte("a,b,c\n1,2,3\n"), 12)
	assert.NoError(t, err)

	_, err = v.CheckContent("text/plain", []byte("hello there"), 11)
	assert.ErrorIs(t, err, errs.ErrValidation)
}
