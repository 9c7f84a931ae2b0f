package chiptune

import (
	"fmt"
	"math"
)

// Seek moves playback to offset seconds from the start. The engine has no random
// access, it is reset and the frames up to the target are rendered and discarded.
// Seeking past the end leaves the engine at its natural end, for looped songs
// that is the end of the fade-out.
func (d *Decoder) Seek(offset float64) error {
	d.Lock()
	defer d.Unlock()

	if d.player == nil {
		return ErrClosed
	}

	if err := d.player.Reset(); err != nil {
		return fmt.Errorf("failed resetting engine: %w", err)
	}

	d.state = StateStarted
	d.fadeVolume = 1
	d.position = 0

	var skip int64
	if frames := math.Round(offset * SampleRate); frames >= math.MaxInt64 {
		skip = math.MaxInt64
	} else if frames > 0 {
		skip = int64(frames)
	}

	d.log.Tracef("seeking to %.3fs, discarding %d frames", offset, skip)

	for skip > 0 {
		// a looped song ends where its fade-out does
		atEnd := d.state == StateAtEnd
		if atEnd && d.fadeVolume < fadeThreshold {
			break
		}

		frames := d.frames[:min(skip, MaxRenderFrames)]
		clear(frames)

		got := d.player.Render(frames)
		d.position += int64(got)
		skip -= int64(len(frames))

		if atEnd {
			d.fadeVolume *= math.Pow(fadeDecay, float64(got))
		}

		if got < len(frames) {
			break
		}
	}

	return nil
}

// SetPositionMs seeks to pos milliseconds from the start.
func (d *Decoder) SetPositionMs(pos int64) error {
	return d.Seek(float64(pos) / 1000)
}
