package errs

import (
	"github.com/pkg/errors"
)

// Layout / grammar errors. Open-for-read fails before the session reaches
// LayoutReady.
var (
	ErrBadHeader     = errors.New("sdds: malformed header")
	ErrUnknownTag    = errors.New("sdds: unknown header tag")
	ErrUnknownField  = errors.New("sdds: unknown field name")
	ErrUnknownType   = errors.New("sdds: unknown data type")
	ErrDuplicateName = errors.New("sdds: duplicate definition name")
	ErrBadValue      = errors.New("sdds: bad field value")
	ErrIncludeCycle  = errors.New("sdds: include cycle or depth limit")
)

// Data-shape errors. The current page is invalid and the session must be
// terminated by the caller.
var (
	ErrTruncatedPage   = errors.New("sdds: truncated page")
	ErrRowCountChanged = errors.New("sdds: row count differs under fixed_row_count")
	ErrBadDimensions   = errors.New("sdds: array dimensions inconsistent")
)

// Caller-misuse errors.
var (
	ErrNoPageActive = errors.New("sdds: no page active")
	ErrTerminated   = errors.New("sdds: dataset terminated")
	ErrNotFound     = errors.New("sdds: no such definition")
	ErrTypeMismatch = errors.New("sdds: value type does not match definition")
)

// Stream-level errors.
var (
	ErrUnsupportedSeek = errors.New("sdds: seek not supported on compressed stream")
	ErrNoMorePages     = errors.New("sdds: no more pages")
	ErrWriteTooLarge   = errors.New("sdds: formatted write exceeds staging buffer")
)
