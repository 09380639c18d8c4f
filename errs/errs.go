// Package errs implements the error taxonomy used across the datacube
// builder: each failure is tagged with a Kind so the build controller can
// classify it without inspecting error strings.
package errs

import "fmt"

// Kind classifies a failure the way the original Python implementation's
// error hierarchy (BadRequest, DownloadError, MosaickingError, UploadError)
// did, but as a comparable value rather than a class hierarchy.
type Kind int

const (
	// InternalErrorKind is used for unclassified failures.
	InternalErrorKind Kind = iota
	// BadRequest signals a schema or constraint violation in the build
	// request itself.
	BadRequest
	// DownloadErrorKind signals a failure while staging a raster (archive
	// missing, metadata absent, subband not present, decode failure).
	DownloadErrorKind
	// MosaickingErrorKind signals a failure during grid derivation,
	// interpolation, or mosaic recursion.
	MosaickingErrorKind
	// UploadErrorKind signals a failure writing the cube or preview to the
	// output collaborator.
	UploadErrorKind
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "BadRequest"
	case DownloadErrorKind:
		return "DownloadError"
	case MosaickingErrorKind:
		return "MosaickingError"
	case UploadErrorKind:
		return "UploadError"
	default:
		return "InternalError"
	}
}

// Status returns the HTTP-ish status code associated with k.
func (k Kind) Status() int {
	if k == BadRequest {
		return 400
	}
	return 500
}

// Error is a kind-tagged error carrying a title (short context, usually the
// stage or resource involved) and a detail (the underlying cause).
type Error struct {
	Kind   Kind
	Title  string
	Detail string
	cause  error
}

// New creates an Error of the given kind.
func New(kind Kind, title, detail string) *Error {
	return &Error{Kind: kind, Title: title, Detail: detail}
}

// Wrap creates an Error of the given kind, wrapping cause so errors.Is/As
// and errors.Unwrap keep working.
func Wrap(kind Kind, title string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Title: title, Detail: cause.Error(), cause: cause}
}

func (e *Error) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Title, e.Detail)
}

// Unwrap exposes the wrapped cause, if any, so callers can use errors.Is/As
// against sentinel errors raised deeper in the stack.
func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, errs.New(SomeKind, "", "")) match purely on kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// BadRequestf builds a BadRequest error with a formatted detail.
func BadRequestf(title, format string, args ...interface{}) *Error {
	return New(BadRequest, title, fmt.Sprintf(format, args...))
}

// DownloadErrorf builds a DownloadError with a formatted detail.
func DownloadErrorf(title, format string, args ...interface{}) *Error {
	return New(DownloadErrorKind, title, fmt.Sprintf(format, args...))
}

// MosaickingErrorf builds a MosaickingError with a formatted detail.
func MosaickingErrorf(title, format string, args ...interface{}) *Error {
	return New(MosaickingErrorKind, title, fmt.Sprintf(format, args...))
}

// UploadErrorf builds an UploadError with a formatted detail.
func UploadErrorf(title, format string, args ...interface{}) *Error {
	return New(UploadErrorKind, title, fmt.Sprintf(format, args...))
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and
// InternalErrorKind otherwise.
func KindOf(err error) Kind {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return InternalErrorKind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
