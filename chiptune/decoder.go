// Package chiptune turns VGM, VGZ, S98 and DRO files into a stream of 44.1 kHz
// stereo signed 32 bit PCM. A Decoder owns the file view and the synthesis
// engine of one song and bounds looped songs with a fade-out.
package chiptune

import (
	"errors"
	"fmt"
	"os"
	"sync"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/engine"
	"github.com/devgianlu/go-vgmplay/source"
)

const (
	SampleRate = engine.DefaultSampleRate
	Channels   = 2
	// FrameSize is the size in bytes of one stereo frame.
	FrameSize = Channels * 4
	// MaxRenderFrames is the most frames rendered by the engine in a single call.
	MaxRenderFrames = 4096
)

var ErrClosed = errors.New("chiptune: decoder has already been closed")

type State int

const (
	StateStopped State = iota
	StateStarted
	StateAtEnd
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarted:
		return "started"
	case StateAtEnd:
		return "at end"
	default:
		return "unknown"
	}
}

var _ vgmplay.AudioSource = (*Decoder)(nil)

// Decoder is a playback session over a single chiptune file.
type Decoder struct {
	sync.Mutex

	log  vgmplay.Logger
	opts *Options

	buf    *source.Buffer
	loader *engine.FileLoader
	player engine.Player

	state      State
	fadeVolume float64

	// frames rendered since the start or the last seek
	position int64
	frames   []engine.Frame
}

// New opens f, detects its format and starts playback. The file may be closed
// by the caller once New returns. On failure everything acquired is released.
func New(log vgmplay.Logger, f *os.File, opts *Options) (_ *Decoder, err error) {
	if opts == nil {
		opts = NewOptions()
	}

	d := &Decoder{
		log:        log,
		opts:       opts,
		state:      StateStopped,
		fadeVolume: 1,
		frames:     make([]engine.Frame, MaxRenderFrames),
	}

	d.buf, err = source.Load(log, f)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	d.loader, d.player, err = openPlayer(log, d.buf.Bytes())
	if err != nil {
		return nil, err
	}

	d.player.SetCallback(d.handleEvent)
	if err := d.player.SetSampleRate(SampleRate); err != nil {
		return nil, fmt.Errorf("%w: failed setting sample rate: %w", vgmplay.ErrFormat, err)
	}
	if err := d.player.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed starting playback: %w", vgmplay.ErrFormat, err)
	}

	d.state = StateStarted
	d.log.Debugf("opened %s %s, duration %.2fs, loop ticks %d", d.player.Format(), f.Name(), d.duration(), d.player.LoopTicks())
	return d, nil
}

// handleEvent runs inside Render and only updates the session state.
func (d *Decoder) handleEvent(evt engine.EventType, loop uint32) {
	switch evt {
	case engine.EventLoop:
		d.log.Tracef("loop %d reached", loop)
		if loop >= d.opts.MaxLoops() {
			d.enterAtEnd()
		}
	case engine.EventEnd:
		d.enterAtEnd()
	}
}

func (d *Decoder) enterAtEnd() {
	if d.state == StateAtEnd {
		return
	}

	d.state = StateAtEnd
	d.log.Debugf("playback reached the end at %dms", d.positionMs())
}

// Close stops the engine and releases the file view.
func (d *Decoder) Close() {
	d.Lock()
	defer d.Unlock()

	if d.player != nil {
		_ = d.player.Stop()
		_ = d.player.UnloadFile()
		d.player = nil
	}

	if d.loader != nil {
		d.loader.Unload()
		d.loader = nil
	}

	if d.buf != nil {
		if err := d.buf.Close(); err != nil {
			d.log.WithError(err).Warnf("failed releasing file view")
		}
		d.buf = nil
	}
}

func (d *Decoder) State() State {
	d.Lock()
	defer d.Unlock()
	return d.state
}

func (d *Decoder) FadeVolume() float64 {
	d.Lock()
	defer d.Unlock()
	return d.fadeVolume
}

// Format returns the container format name, empty after Close.
func (d *Decoder) Format() string {
	d.Lock()
	defer d.Unlock()

	if d.player == nil {
		return ""
	}
	return d.player.Format()
}

// Title returns the song title, empty if the file has none.
func (d *Decoder) Title() string {
	d.Lock()
	defer d.Unlock()

	if d.player == nil {
		return ""
	}
	return d.player.SongTitle()
}

// Tags returns all the metadata of the file.
func (d *Decoder) Tags() engine.Tags {
	d.Lock()
	defer d.Unlock()

	if d.player == nil {
		return engine.Tags{}
	}
	return d.player.Tags()
}

// Looped reports whether the song has a loop point.
func (d *Decoder) Looped() bool {
	d.Lock()
	defer d.Unlock()
	return d.player != nil && d.player.LoopTicks() > 0
}

// Duration returns the playback length in seconds when the loop is played as
// many times as the loop ceiling allows.
func (d *Decoder) Duration() float64 {
	d.Lock()
	defer d.Unlock()
	return d.duration()
}

func (d *Decoder) duration() float64 {
	if d.player == nil {
		return 0
	}
	return d.player.TickToSecond(d.player.TotalPlayTicks(d.opts.MaxLoops()))
}

// DurationSeconds returns Duration truncated to whole seconds.
func (d *Decoder) DurationSeconds() int {
	return int(d.Duration())
}

// PositionMs returns the playback position in milliseconds.
func (d *Decoder) PositionMs() int64 {
	d.Lock()
	defer d.Unlock()
	return d.positionMs()
}

func (d *Decoder) positionMs() int64 {
	return d.position * 1000 / SampleRate
}
