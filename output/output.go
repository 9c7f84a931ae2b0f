package output

import (
	"time"

	vgmplay "github.com/devgianlu/go-vgmplay"
)

// StdoutPipe selects the standard output as destination.
const StdoutPipe = "-"

type Output struct {
	*pipeOutput
}

type NewOutputOptions struct {
	Log vgmplay.Logger

	// Reader provides data for the output.
	//
	// The format of data is as follows:
	//
	//	[data]      = [frame 1] [frame 2] [frame 3] ...
	//	[frame *]   = [left] [right]
	//
	// Each channel is a signed 32bit sample.
	Reader vgmplay.Int32Reader

	// Pipe is the path of the named pipe or file to write to, StdoutPipe writes to the standard output.
	Pipe string

	// Format is the sample format written out: s16le, s32le or f32le.
	Format string

	// InitialVolume specifies the initial output volume (0-1).
	InitialVolume float32

	// OpenTimeout bounds how long to wait for a reader on a named pipe, zero waits forever.
	OpenTimeout time.Duration
}

func NewOutput(options *NewOutputOptions) (*Output, error) {
	out, err := newPipeOutput(options)
	if err != nil {
		return nil, err
	}

	return &Output{out}, nil
}
