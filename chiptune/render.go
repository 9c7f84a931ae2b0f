package chiptune

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/devgianlu/go-vgmplay/engine/chip"
)

const (
	sampleMin = -0x800000
	sampleMax = 0x7fffff

	// fadeThreshold is the volume under which the fade-out is considered silent.
	fadeThreshold = 1e-4
)

// fadeDecay is the per frame volume factor, a time constant of one second.
var fadeDecay = math.Exp(-1.0 / SampleRate)

// widen clips a 24 bit engine sample and scales it to the full 32 bit range.
func widen(s int32) int32 {
	return chip.Clamp(s, sampleMin, sampleMax) * (1 << 8)
}

// Read fills p with whole native endian signed 32 bit stereo frames and returns
// the number of bytes written. At most MaxRenderFrames frames are produced per
// call. io.EOF is returned once the song has ended or the fade-out is over, and
// io.ErrShortBuffer if p cannot hold a single frame.
func (d *Decoder) Read(p []byte) (int, error) {
	d.Lock()
	defer d.Unlock()

	if d.player == nil {
		return 0, ErrClosed
	}

	atEnd := d.state == StateAtEnd
	if atEnd && d.player.LoopTicks() == 0 {
		return 0, io.EOF
	}

	want := min(len(p)/FrameSize, MaxRenderFrames)
	if want == 0 {
		return 0, io.ErrShortBuffer
	}

	frames := d.frames[:want]
	clear(frames)
	region := p[:want*FrameSize]
	clear(region)

	got := d.player.Render(frames)
	d.position += int64(got)

	for i := 0; i < got; i++ {
		l, r := widen(frames[i].L), widen(frames[i].R)

		if atEnd {
			d.fadeVolume *= fadeDecay
			if d.fadeVolume < fadeThreshold {
				got = i
				break
			}

			l = int32(math.Round(float64(l) * d.fadeVolume))
			r = int32(math.Round(float64(r) * d.fadeVolume))
		}

		binary.NativeEndian.PutUint32(region[i*FrameSize:], uint32(l))
		binary.NativeEndian.PutUint32(region[i*FrameSize+4:], uint32(r))
	}

	if got == 0 {
		return 0, io.EOF
	}

	return got * FrameSize, nil
}
