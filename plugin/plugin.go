// Package plugin exposes the chiptune decoder through the operation table of a
// pull based media player input plugin.
package plugin

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/chiptune"
)

const (
	// ABIVersion is the version of the operation table.
	ABIVersion = 1
	// Priority orders this plugin among others claiming the same extension.
	Priority = 50
)

var (
	Extensions = []string{"vgm", "vgz", "s98", "dro"}
	MimeTypes  = []string{}
)

type SampleFormat struct {
	Bits      int
	Rate      int
	Channels  int
	Signed    bool
	BigEndian bool
}

type ChannelPosition int

const (
	ChannelInvalid ChannelPosition = iota
	ChannelFrontLeft
	ChannelFrontRight
)

// InputData is the per source state shared with the host.
type InputData struct {
	Filename string
	File     *os.File

	// SampleFormat and ChannelMap are filled by Open.
	SampleFormat SampleFormat
	ChannelMap   []ChannelPosition

	priv *chiptune.Decoder
}

type KeyVal struct {
	Key string
	Val string
}

// Ops is the operation table called by the host. Integer results are zero or
// positive on success and a negated Error on failure.
type Ops interface {
	Open(ip *InputData) int
	Close(ip *InputData) int
	Read(ip *InputData, buf []byte) int
	Seek(ip *InputData, offset float64) int
	ReadComments(ip *InputData) ([]KeyVal, int)
	Duration(ip *InputData) int
	Bitrate(ip *InputData) int64
	BitrateCurrent(ip *InputData) int64
	Codec(ip *InputData) string
	CodecProfile(ip *InputData) string
}

var _ Ops = (*Plugin)(nil)

type Plugin struct {
	log  vgmplay.Logger
	opts *chiptune.Options

	options []Option
}

func New(log vgmplay.Logger, opts *chiptune.Options) *Plugin {
	if opts == nil {
		opts = chiptune.NewOptions()
	}

	p := &Plugin{log: log, opts: opts}
	p.options = []Option{
		{Name: "max_loops", Get: opts.MaxLoopsString, Set: opts.SetMaxLoopsString},
	}
	return p
}

// hostSampleFormat describes the frames produced by chiptune.Decoder.Read.
func hostSampleFormat() SampleFormat {
	return SampleFormat{
		Bits:      32,
		Rate:      chiptune.SampleRate,
		Channels:  chiptune.Channels,
		Signed:    true,
		BigEndian: binary.NativeEndian.Uint16([]byte{0, 1}) == 1,
	}
}

func (p *Plugin) Open(ip *InputData) int {
	log := p.log.WithField("file", ip.Filename)
	log.Debugf("opening source")

	if ip.File == nil {
		log.Errorf("no file to open")
		return -int(ErrorErrno)
	}

	d, err := chiptune.New(log, ip.File, p.opts)
	if err != nil {
		log.WithError(err).Warnf("failed opening source")
		return Status(err)
	}

	ip.priv = d
	ip.SampleFormat = hostSampleFormat()
	ip.ChannelMap = []ChannelPosition{ChannelFrontLeft, ChannelFrontRight}
	return 0
}

func (p *Plugin) Close(ip *InputData) int {
	p.log.WithField("file", ip.Filename).Debugf("closing source")

	if ip.priv != nil {
		ip.priv.Close()
		ip.priv = nil
	}
	return 0
}

func (p *Plugin) decoder(ip *InputData) (*chiptune.Decoder, error) {
	if ip.priv == nil {
		return nil, fmt.Errorf("%s is not open: %w", ip.Filename, chiptune.ErrClosed)
	}
	return ip.priv, nil
}

// Read returns the number of bytes written to buf, zero at the end of the stream.
// A buffer shorter than one frame is an error, not the end of the stream.
func (p *Plugin) Read(ip *InputData, buf []byte) int {
	d, err := p.decoder(ip)
	if err != nil {
		return Status(err)
	}

	n, err := d.Read(buf)
	if errors.Is(err, io.EOF) {
		return 0
	} else if err != nil {
		p.log.WithField("file", ip.Filename).WithError(err).Errorf("failed reading")
		return Status(err)
	}

	return n
}

func (p *Plugin) Seek(ip *InputData, offset float64) int {
	d, err := p.decoder(ip)
	if err != nil {
		return Status(err)
	}

	p.log.WithField("file", ip.Filename).Debugf("seeking to %.3fs", offset)
	return Status(d.Seek(offset))
}

// ReadComments returns a title entry when the song has a title.
func (p *Plugin) ReadComments(ip *InputData) ([]KeyVal, int) {
	d, err := p.decoder(ip)
	if err != nil {
		return nil, Status(err)
	}

	comments := []KeyVal{}
	if title := d.Title(); title != "" {
		comments = append(comments, KeyVal{Key: "title", Val: title})
	}
	return comments, 0
}

// Duration returns the playback length in whole seconds.
func (p *Plugin) Duration(ip *InputData) int {
	d, err := p.decoder(ip)
	if err != nil {
		return Status(err)
	}

	return d.DurationSeconds()
}

func (p *Plugin) Bitrate(*InputData) int64 {
	return int64(Status(vgmplay.ErrUnsupported))
}

func (p *Plugin) BitrateCurrent(*InputData) int64 {
	return int64(Status(vgmplay.ErrUnsupported))
}

func (p *Plugin) Codec(*InputData) string {
	return ""
}

func (p *Plugin) CodecProfile(*InputData) string {
	return ""
}
