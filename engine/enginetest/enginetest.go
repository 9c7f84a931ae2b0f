// Package enginetest builds small synthetic VGM, S98 and DRO files for tests.
//
// The builders drive an SN76489 (VGM, S98) or an OPL2 (DRO). An SN76489 channel
// with tone period 0 holds its output high, so Level produces a constant signal
// which makes rendered frames easy to assert on.
package enginetest

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"
)

const (
	SN76489Clock = 3579545

	// SN76489MaxLevel is the per channel amplitude of an SN76489 at full volume.
	SN76489MaxLevel = 1 << 17
)

// snLevel returns the two writes that set channel 0 to period 0 and the given attenuation.
func snLevel(atten uint8) []byte {
	return []byte{0x80, 0x00, 0x90 | atten&0x0f}
}

// VGM builds a version 1.50 VGM file with an SN76489.
type VGM struct {
	cmds        []byte
	samples     uint32
	loopPos     int
	loopSamples uint32
	hasLoop     bool
	title       string
	version     uint32
}

func NewVGM() *VGM {
	return &VGM{version: 0x150}
}

// Version overrides the version field of the header.
func (b *VGM) Version(v uint32) *VGM {
	b.version = v
	return b
}

// Level sets SN76489 channel 0 to a constant output, attenuation 0 is the loudest and 15 is silence.
func (b *VGM) Level(atten uint8) *VGM {
	for _, v := range snLevel(atten) {
		b.cmds = append(b.cmds, 0x50, v)
	}
	return b
}

// Tone sets SN76489 channel ch to a square wave of the given 10 bit period.
func (b *VGM) Tone(ch uint8, period uint16, atten uint8) *VGM {
	ch &= 0x03
	b.cmds = append(b.cmds,
		0x50, 0x80|ch<<5|uint8(period&0x0f),
		0x50, uint8(period>>4)&0x3f,
		0x50, 0x90|ch<<5|atten&0x0f,
	)
	return b
}

// Raw appends arbitrary command bytes.
func (b *VGM) Raw(cmds ...byte) *VGM {
	b.cmds = append(b.cmds, cmds...)
	return b
}

// Wait appends wait commands for the given number of 44.1 kHz samples.
func (b *VGM) Wait(samples uint32) *VGM {
	b.samples += samples
	for samples > 0 {
		n := min(samples, 0xffff)
		b.cmds = append(b.cmds, 0x61, byte(n), byte(n>>8))
		samples -= n
	}
	return b
}

// Loop marks the current position as the loop point.
func (b *VGM) Loop() *VGM {
	b.hasLoop = true
	b.loopPos = len(b.cmds)
	b.loopSamples = b.samples
	return b
}

// Title adds a GD3 tag with the given English track title.
func (b *VGM) Title(title string) *VGM {
	b.title = title
	return b
}

func (b *VGM) Bytes() []byte {
	const dataStart = 0x40

	hdr := make([]byte, dataStart)
	copy(hdr, "Vgm ")
	binary.LittleEndian.PutUint32(hdr[0x08:], b.version)
	binary.LittleEndian.PutUint32(hdr[0x0c:], SN76489Clock)
	binary.LittleEndian.PutUint32(hdr[0x18:], b.samples)
	binary.LittleEndian.PutUint32(hdr[0x24:], 60)
	binary.LittleEndian.PutUint16(hdr[0x28:], 0x0009)
	hdr[0x2a] = 16
	binary.LittleEndian.PutUint32(hdr[0x34:], dataStart-0x34)

	if b.hasLoop {
		binary.LittleEndian.PutUint32(hdr[0x1c:], uint32(dataStart+b.loopPos-0x1c))
		binary.LittleEndian.PutUint32(hdr[0x20:], b.samples-b.loopSamples)
	}

	var buf bytes.Buffer
	buf.Write(hdr)
	buf.Write(b.cmds)
	buf.WriteByte(0x66)

	if b.title != "" {
		gd3Pos := buf.Len()
		buf.Write(gd3(b.title))
		binary.LittleEndian.PutUint32(buf.Bytes()[0x14:], uint32(gd3Pos-0x14))
	}

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[0x04:], uint32(len(out)-0x04))
	return out
}

func gd3(title string) []byte {
	var body bytes.Buffer
	writeString := func(s string) {
		for _, u := range utf16.Encode([]rune(s)) {
			_ = binary.Write(&body, binary.LittleEndian, u)
		}
		body.Write([]byte{0, 0})
	}

	writeString(title)
	for i := 0; i < 10; i++ {
		writeString("")
	}

	out := make([]byte, 12, 12+body.Len())
	copy(out, "Gd3 ")
	binary.LittleEndian.PutUint32(out[4:], 0x100)
	binary.LittleEndian.PutUint32(out[8:], uint32(body.Len()))
	return append(out, body.Bytes()...)
}

// S98 builds a version 3 S98 file with a single SN76489 device and a 10 ms tick.
type S98 struct {
	cmds    []byte
	loopPos int
	hasLoop bool
	tag     []byte
}

func NewS98() *S98 {
	return &S98{}
}

// Level sets SN76489 channel 0 to a constant output, attenuation 0 is the loudest and 15 is silence.
func (b *S98) Level(atten uint8) *S98 {
	for _, v := range snLevel(atten) {
		b.cmds = append(b.cmds, 0x00, 0x00, v)
	}
	return b
}

// Wait appends sync commands for the given number of 10 ms ticks.
func (b *S98) Wait(ticks uint32) *S98 {
	switch {
	case ticks == 0:
	case ticks == 1:
		b.cmds = append(b.cmds, 0xff)
	default:
		b.cmds = append(b.cmds, 0xfe)
		n := ticks - 2
		for {
			c := byte(n & 0x7f)
			n >>= 7
			if n != 0 {
				b.cmds = append(b.cmds, c|0x80)
				continue
			}
			b.cmds = append(b.cmds, c)
			break
		}
	}
	return b
}

// Loop marks the current position as the loop point.
func (b *S98) Loop() *S98 {
	b.hasLoop = true
	b.loopPos = len(b.cmds)
	return b
}

// Tag sets the raw tag area, use TagBlock for a version 3 key=value block.
func (b *S98) Tag(tag []byte) *S98 {
	b.tag = tag
	return b
}

// TagBlock formats a UTF-8 "[S98]" tag block.
func TagBlock(lines ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("[S98]")
	buf.Write([]byte{0xef, 0xbb, 0xbf})
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte(0x0a)
	}
	buf.WriteByte(0)
	return buf.Bytes()
}

func (b *S98) Bytes() []byte {
	const dataStart = 0x30

	hdr := make([]byte, dataStart)
	copy(hdr, "S983")
	binary.LittleEndian.PutUint32(hdr[0x04:], 10)
	binary.LittleEndian.PutUint32(hdr[0x08:], 1000)
	binary.LittleEndian.PutUint32(hdr[0x14:], dataStart)
	binary.LittleEndian.PutUint32(hdr[0x1c:], 1)
	binary.LittleEndian.PutUint32(hdr[0x20:], 16)
	binary.LittleEndian.PutUint32(hdr[0x24:], SN76489Clock)

	if b.hasLoop {
		binary.LittleEndian.PutUint32(hdr[0x18:], uint32(dataStart+b.loopPos))
	}

	out := append(hdr, b.cmds...)
	out = append(out, 0xfd)

	if len(b.tag) > 0 {
		binary.LittleEndian.PutUint32(out[0x10:], uint32(len(out)))
		out = append(out, b.tag...)
	}

	return out
}

// DRO builds a version 2.0 DOSBox raw OPL capture for an OPL2.
type DRO struct {
	codemap []byte
	pairs   []byte
	ms      uint32
}

const (
	droShortDelay = 0x7e
	droLongDelay  = 0x7f
)

func NewDRO() *DRO {
	return &DRO{}
}

// Write appends a register write.
func (b *DRO) Write(reg, val uint8) *DRO {
	idx := bytes.IndexByte(b.codemap, reg)
	if idx < 0 {
		idx = len(b.codemap)
		b.codemap = append(b.codemap, reg)
	}

	b.pairs = append(b.pairs, byte(idx), val)
	return b
}

// Note keys on channel 0 with a plain sine tone.
func (b *DRO) Note() *DRO {
	return b.Write(0x20, 0x21).Write(0x40, 0x10).Write(0x60, 0xf0).Write(0x80, 0x07).
		Write(0x23, 0x21).Write(0x43, 0x00).Write(0x63, 0xf0).Write(0x83, 0x07).
		Write(0xc0, 0x00).Write(0xa0, 0x98).Write(0xb0, 0x31)
}

// Delay appends delays totalling ms milliseconds.
func (b *DRO) Delay(ms uint32) *DRO {
	b.ms += ms
	for ms >= 256 {
		n := min(ms/256, 256)
		b.pairs = append(b.pairs, droLongDelay, byte(n-1))
		ms -= n * 256
	}
	if ms > 0 {
		b.pairs = append(b.pairs, droShortDelay, byte(ms-1))
	}
	return b
}

func (b *DRO) Bytes() []byte {
	hdr := make([]byte, 0x1a)
	copy(hdr, "DBRAWOPL")
	binary.LittleEndian.PutUint16(hdr[0x08:], 2)
	binary.LittleEndian.PutUint16(hdr[0x0a:], 0)
	binary.LittleEndian.PutUint32(hdr[0x0c:], uint32(len(b.pairs)/2))
	binary.LittleEndian.PutUint32(hdr[0x10:], b.ms)
	hdr[0x17] = droShortDelay
	hdr[0x18] = droLongDelay
	hdr[0x19] = byte(len(b.codemap))

	out := append(hdr, b.codemap...)
	return append(out, b.pairs...)
}

// DROv1 wraps version 0.1 command bytes in a header with the given hardware type.
func DROv1(hardware byte, lengthMs uint32, cmds []byte) []byte {
	hdr := make([]byte, 0x18)
	copy(hdr, "DBRAWOPL")
	binary.LittleEndian.PutUint16(hdr[0x08:], 0)
	binary.LittleEndian.PutUint16(hdr[0x0a:], 1)
	binary.LittleEndian.PutUint32(hdr[0x0c:], lengthMs)
	binary.LittleEndian.PutUint32(hdr[0x10:], uint32(len(cmds)))
	hdr[0x14] = hardware
	return append(hdr, cmds...)
}

// Gzip compresses data the way VGZ files are stored.
func Gzip(tb testing.TB, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(tb, err)
	require.NoError(tb, w.Close())
	return buf.Bytes()
}

// TempFile writes data to a file in a test temporary directory and opens it,
// the file is closed when the test ends.
func TempFile(tb testing.TB, name string, data []byte) *os.File {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)
	require.NoError(tb, os.WriteFile(path, data, 0o600))

	f, err := os.Open(path)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = f.Close() })
	return f
}
