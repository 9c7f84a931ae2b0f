package go_vgmplay

import "errors"

var (
	// ErrIo reports an operating system failure (stat, dup, mmap, temporary files).
	ErrIo = errors.New("i/o error")
	// ErrFormat reports content that is not gzip or not a supported chiptune container,
	// or that has a valid header but fails to load.
	ErrFormat = errors.New("unsupported file format")
	// ErrConfig reports a malformed option value.
	ErrConfig = errors.New("invalid option value")
	// ErrUnsupported is returned by queries the format has no concept of.
	ErrUnsupported = errors.New("function not supported")
)
