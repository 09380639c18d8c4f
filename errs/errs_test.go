package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStringIncludesKindAndTitle(t *testing.T) {
	err := BadRequestf("target_crs", "unsupported CRS %q", "EPSG:0")
	assert.Equal(t, `BadRequest: target_crs: unsupported CRS "EPSG:0"`, err.Error())
}

func TestWrapPreservesCauseForErrorsIs(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Wrap(DownloadErrorKind, "staging", cause)
	assert.ErrorIs(t, wrapped, cause)
}

func TestWrapNilCauseReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(DownloadErrorKind, "staging", nil))
}

func TestIsMatchesOnKindOnly(t *testing.T) {
	a := BadRequestf("bands", "bad")
	b := BadRequestf("aliases", "also bad")
	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, MosaickingErrorf("x", "y"))
}

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	inner := MosaickingErrorf("mosaic", "overlap unresolved")
	wrapped := fmt.Errorf("building cube: %w", inner)
	assert.Equal(t, MosaickingErrorKind, KindOf(wrapped))
	assert.Equal(t, InternalErrorKind, KindOf(errors.New("plain")))
}

func TestKindStatus(t *testing.T) {
	assert.Equal(t, 400, BadRequest.Status())
	assert.Equal(t, 500, UploadErrorKind.Status())
}
