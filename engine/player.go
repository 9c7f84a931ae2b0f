// Package engine implements chiptune synthesis players for the VGM, S98 and DRO
// containers. A Player interprets the command stream of a loaded file, drives
// the chip models in the chip package and renders interleaved stereo frames.
package engine

import "errors"

// DefaultSampleRate is the rate every player renders at unless told otherwise.
const DefaultSampleRate = 44100

var (
	ErrNotLoaded     = errors.New("engine: no file loaded")
	ErrInvalidHeader = errors.New("engine: invalid header")
	ErrTruncated     = errors.New("engine: truncated file")
	ErrUnsupported   = errors.New("engine: unsupported version")
)

type EventType int

const (
	// EventLoop is fired each time playback jumps back to the loop point.
	EventLoop EventType = iota
	// EventEnd is fired once when a song without a loop point runs out of data.
	EventEnd
)

func (e EventType) String() string {
	switch e {
	case EventLoop:
		return "loop"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Callback is invoked synchronously from Render. For EventLoop, loop is the
// number of loop jumps performed since the start, for EventEnd it is zero.
type Callback func(evt EventType, loop uint32)

// Frame is one stereo sample pair in engine scale (nominally 24 bit).
type Frame struct {
	L, R int32
}

// Player is a format specific synthesis engine.
type Player interface {
	// Format returns a short name of the container format.
	Format() string

	// LoadFile parses the file held by the loader. The loader data must stay
	// valid until UnloadFile is called.
	LoadFile(l *FileLoader) error
	// UnloadFile stops playback and drops every reference to the loader data.
	UnloadFile() error

	SetSampleRate(rate uint32) error
	SetCallback(cb Callback)

	// Start starts playback from tick zero.
	Start() error
	// Stop halts playback, Render produces nothing until the next Start.
	Stop() error
	// Reset rewinds playback to tick zero and resets all chips.
	Reset() error

	// Render adds up to len(buf) frames into buf and returns how many were produced,
	// which is less than len(buf) only when the song has ended.
	Render(buf []Frame) int

	// LoopTicks returns the length of the looped section, zero if the song does not loop.
	LoopTicks() uint32
	// TotalTicks returns the length of one pass through the song.
	TotalTicks() uint32
	// TotalPlayTicks returns the length of the song when the loop is played loops times.
	TotalPlayTicks(loops uint32) uint32
	// TickToSecond converts ticks to seconds.
	TickToSecond(ticks uint32) float64

	SongTitle() string
	Tags() Tags
}
