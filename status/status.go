// Package status provides the canonical error/result types shared across
// the engine, mirroring the original C++ util::Status / util::StatusOr split
// as a pair of idiomatic Go types.
package status

import "fmt"

// Code is one of the canonical error kinds a Status can carry.
type Code int

const (
	// OK is the zero value: no error.
	OK Code = iota
	FailedPrecondition
	InvalidArgument
	Timeout
	OutOfMemory
	OutOfBounds
	LogicError
	ResourceUnobtainable
	Unimplemented
	FormatMismatch
	IOError
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case FailedPrecondition:
		return "FAILED_PRECONDITION"
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case Timeout:
		return "TIMEOUT"
	case OutOfMemory:
		return "OUT_OF_MEMORY"
	case OutOfBounds:
		return "OUT_OF_BOUNDS"
	case LogicError:
		return "LOGIC_ERROR"
	case ResourceUnobtainable:
		return "RESOURCE_UNOBTAINABLE"
	case Unimplemented:
		return "UNIMPLEMENTED"
	case FormatMismatch:
		return "FORMAT_MISMATCH"
	case IOError:
		return "IO_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Status is an error kind plus a message. The zero Status is OK.
type Status struct {
	code    Code
	message string
}

// Ok returns the canonical OK status.
func Ok() Status { return Status{} }

func (s Status) IsOK() bool       { return s.code == OK }
func (s Status) Code() Code       { return s.code }
func (s Status) Message() string  { return s.message }
func (s Status) Error() string    { return fmt.Sprintf("%s: %s", s.code, s.message) }

// Equal compares error kind and message; two OK statuses are always equal.
func (s Status) Equal(other Status) bool {
	if s.IsOK() || other.IsOK() {
		return s.IsOK() == other.IsOK()
	}
	return s.code == other.code && s.message == other.message
}

func newf(code Code, format string, args ...any) Status {
	return Status{code: code, message: fmt.Sprintf(format, args...)}
}

func FailedPreconditionf(format string, args ...any) Status {
	return newf(FailedPrecondition, format, args...)
}
func InvalidArgumentf(format string, args ...any) Status {
	return newf(InvalidArgument, format, args...)
}
func Timeoutf(format string, args ...any) Status { return newf(Timeout, format, args...) }
func OutOfMemoryf(format string, args ...any) Status {
	return newf(OutOfMemory, format, args...)
}
func OutOfBoundsf(format string, args ...any) Status {
	return newf(OutOfBounds, format, args...)
}
func LogicErrorf(format string, args ...any) Status { return newf(LogicError, format, args...) }
func ResourceUnobtainablef(format string, args ...any) Status {
	return newf(ResourceUnobtainable, format, args...)
}
func Unimplementedf(format string, args ...any) Status {
	return newf(Unimplemented, format, args...)
}
func FormatMismatchf(format string, args ...any) Status {
	return newf(FormatMismatch, format, args...)
}
func IOErrorf(format string, args ...any) Status { return newf(IOError, format, args...) }
