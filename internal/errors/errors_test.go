package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModkitErrorFormatting(t *testing.T) {
	plain := New(CategoryConfig, SeverityFatal, "missing module list")
	assert.Equal(t, "config (fatal): missing module list", plain.Error())

	wrapped := Wrap(stderrors.New("permission denied"), CategoryFileSystem, SeverityError, "cannot write artifact")
	assert.Equal(t, "filesystem (error): cannot write artifact: permission denied", wrapped.Error())
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(cause, CategoryScan, SeverityError, "scan failed")
	assert.True(t, stderrors.Is(err, cause))
}

func TestCategoryMatching(t *testing.T) {
	err := New(CategoryEject, SeverityError, "eject failed")
	wrapped := fmt.Errorf("outer: %w", err)

	assert.True(t, IsCategory(wrapped, CategoryEject))
	assert.False(t, IsCategory(wrapped, CategoryConfig))
	assert.Equal(t, CategoryEject, GetCategory(wrapped))
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("untyped")))
}

func TestWithContext(t *testing.T) {
	err := New(CategoryValidation, SeverityError, "bad entry").
		WithContext("module", "customers").
		WithContext("line", 7)
	require.NotNil(t, err.Context)
	assert.Equal(t, "customers", err.Context["module"])
	assert.Equal(t, 7, err.Context["line"])
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("%w: %q", ErrNotEjectable, "customers")
	assert.True(t, stderrors.Is(err, ErrNotEjectable))
	assert.False(t, stderrors.Is(err, ErrAlreadyLocal))
}
