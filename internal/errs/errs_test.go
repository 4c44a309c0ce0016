package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := NotFound("document %s not found", "abc")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "not_found: document abc not found", err.Error())
}

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("find document: %w", Database(cause, "query documents"))

	assert.Equal(t, KindDatabase, KindOf(err))
	assert.ErrorIs(t, err, ErrDatabase)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUnknown, KindOf(cause))
}

func TestWithDetailCopies(t *testing.T) {
	base := Validation("file too large")
	withSize := base.WithDetail("max_bytes", 10)

	assert.Nil(t, base.Detail)
	assert.Equal(t, 10, withSize.Detail["max_bytes"])
	e, ok := As(withSize)
	assert.True(t, ok)
	assert.Equal(t, KindValidation, e.Kind)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "access_denied", KindAccessDenied.String())
	assert.Equal(t, "storage_error", KindStorage.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
