package output

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	vgmplay "github.com/devgianlu/go-vgmplay"
	"golang.org/x/sys/unix"
)

type pipeOutput struct {
	log    vgmplay.Logger
	reader vgmplay.Int32Reader
	file   *os.File
	stdout bool

	lock sync.Mutex
	cond *sync.Cond

	volume float32
	paused bool
	closed bool
	ended  bool

	err  chan error
	done chan struct{}

	transform func([]int32, []byte) int
}

func transformFor(format string) (func([]int32, []byte) int, error) {
	switch format {
	case "s16le":
		return func(in []int32, out []byte) int {
			for i := 0; i < len(in); i++ {
				binary.LittleEndian.PutUint16(out[i*2:], uint16(in[i]>>16))
			}
			return len(in) * 2
		}, nil
	case "s32le":
		return func(in []int32, out []byte) int {
			for i := 0; i < len(in); i++ {
				binary.LittleEndian.PutUint32(out[i*4:], uint32(in[i]))
			}
			return len(in) * 4
		}, nil
	case "f32le":
		return func(in []int32, out []byte) int {
			for i := 0; i < len(in); i++ {
				sample := math.Float32bits(float32(in[i]) / 2147483648)
				binary.LittleEndian.PutUint32(out[i*4:], sample)
			}
			return len(in) * 4
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown output pipe format: %s", vgmplay.ErrConfig, format)
	}
}

func newPipeOutput(opts *NewOutputOptions) (out *pipeOutput, err error) {
	if opts.InitialVolume < 0 || opts.InitialVolume > 1 {
		return nil, fmt.Errorf("%w: invalid volume value: %0.2f", vgmplay.ErrConfig, opts.InitialVolume)
	}

	out = &pipeOutput{
		log:    opts.Log,
		reader: opts.Reader,
		volume: opts.InitialVolume,
		err:    make(chan error, 2),
		done:   make(chan struct{}),
	}

	if out.log == nil {
		out.log = &vgmplay.NullLogger{}
	}

	out.cond = sync.NewCond(&out.lock)

	if out.transform, err = transformFor(opts.Format); err != nil {
		return nil, err
	}

	if opts.Pipe == StdoutPipe {
		out.file, out.stdout = os.Stdout, true
	} else if out.file, err = openPipe(out.log, opts.Pipe, opts.OpenTimeout); err != nil {
		return nil, err
	}

	go out.outputLoop()

	return out, nil
}

// openPipe opens path for writing. Opening a named pipe fails with ENXIO until
// a reader shows up, in which case the open is retried.
func openPipe(log vgmplay.Logger, path string, timeout time.Duration) (*os.File, error) {
	var file *os.File
	open := func() (err error) {
		file, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|unix.O_NONBLOCK, 0o644)
		if errors.Is(err, unix.ENXIO) {
			log.Tracef("waiting for a reader on %s", path)
			return err
		} else if err != nil {
			return backoff.Permanent(err)
		}

		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = timeout
	if err := backoff.Retry(open, bo); err != nil {
		return nil, fmt.Errorf("%w: failed to open output pipe: %w", vgmplay.ErrIo, err)
	}

	return file, nil
}

func (out *pipeOutput) outputLoop() {
	samples := make([]int32, 4*1024)
	bytes := make([]byte, 4*len(samples)) // times four is the biggest we can get

	for {
		out.lock.Lock()

		for (out.paused || out.ended) && !out.closed {
			out.cond.Wait()
		}

		if out.closed {
			out.lock.Unlock()
			break
		}

		n, err := out.reader.Read(samples)

		if out.volume < 1 {
			// Same as math.Pow(out.volume, 2), which is perceived as linear.
			volume := float64(out.volume * out.volume)

			for i := 0; i < n; i++ {
				samples[i] = int32(float64(samples[i]) * volume)
			}
		}

		if n > 0 {
			nn := out.transform(samples[:n], bytes)
			if _, err := out.file.Write(bytes[:nn]); err != nil {
				out.err <- err
				out.closed = true
				out.lock.Unlock()
				break
			}
		}

		if errors.Is(err, io.EOF) {
			// Reached EOF, nothing more will come.
			out.ended = true
			close(out.done)
		} else if err != nil {
			// Got some other error. Close the output and report the error.
			out.err <- err
			out.closed = true
			out.lock.Unlock()
			break
		}

		out.lock.Unlock()
	}

	_ = out.Close()
}

// Pause stops pulling samples from the reader.
func (out *pipeOutput) Pause() error {
	out.lock.Lock()
	defer out.lock.Unlock()

	if out.closed {
		return nil
	}

	out.paused = true
	out.cond.Signal()
	return nil
}

// Resume resumes pulling samples from the reader.
func (out *pipeOutput) Resume() error {
	out.lock.Lock()
	defer out.lock.Unlock()

	if out.closed {
		return nil
	}

	out.paused = false
	out.cond.Signal()
	return nil
}

// SetVolume sets the volume (0-1).
func (out *pipeOutput) SetVolume(vol float32) {
	if vol < 0 || vol > 1 {
		panic(fmt.Sprintf("invalid volume value: %0.2f", vol))
	}

	out.lock.Lock()
	out.volume = vol
	out.lock.Unlock()
}

// Error returns the error that stopped the output (if any).
func (out *pipeOutput) Error() <-chan error {
	return out.err
}

// Done is closed once the reader returned EOF and everything was written.
func (out *pipeOutput) Done() <-chan struct{} {
	return out.done
}

// Close closes the output, the standard output is left open.
func (out *pipeOutput) Close() error {
	out.lock.Lock()
	defer out.lock.Unlock()

	if out.closed && out.file == nil {
		return nil
	}

	if !out.stdout && out.file != nil {
		_ = out.file.Close()
	}

	out.file = nil
	out.closed = true
	out.cond.Signal()

	return nil
}
