package plugin

import (
	"errors"

	vgmplay "github.com/devgianlu/go-vgmplay"
)

// Error is a host status code, operations return it negated.
type Error int

const (
	ErrorSuccess Error = iota
	ErrorErrno
	ErrorFunctionNotSupported
	ErrorFileFormat
	ErrorNotOption
	ErrorInvalidOption
)

func (e Error) String() string {
	switch e {
	case ErrorSuccess:
		return "success"
	case ErrorErrno:
		return "system error"
	case ErrorFunctionNotSupported:
		return "function not supported"
	case ErrorFileFormat:
		return "file format not supported or corrupted file"
	case ErrorNotOption:
		return "no such option"
	case ErrorInvalidOption:
		return "invalid option value"
	default:
		return "unknown error"
	}
}

// Status maps an error to the negated host status code, nil maps to zero.
func Status(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, vgmplay.ErrFormat):
		return -int(ErrorFileFormat)
	case errors.Is(err, vgmplay.ErrConfig):
		return -int(ErrorInvalidOption)
	case errors.Is(err, vgmplay.ErrUnsupported):
		return -int(ErrorFunctionNotSupported)
	default:
		return -int(ErrorErrno)
	}
}
