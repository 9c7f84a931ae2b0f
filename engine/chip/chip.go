// Package chip contains simplified sound chip models driven by register writes.
//
// The models favour a small, readable implementation over cycle accuracy: they
// produce the right pitches, envelopes and mixing, not a bit-exact waveform.
package chip

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Device is a sound chip that can be written to and mixed one sample at a time.
type Device interface {
	// Reset restores the power-on register state.
	Reset()
	// SetSampleRate sets the output sample rate, it must be called before Mix.
	SetSampleRate(rate uint32)
	// Write writes val to register reg of the given port.
	Write(port, reg, val uint8)
	// Mix renders one output sample and adds it to the left and right channels of out.
	Mix(out *[2]int32)
}

// Null is a Device that accepts writes and produces silence, it stands in for
// chips that have no model.
type Null struct{}

func (Null) Reset()               {}
func (Null) SetSampleRate(uint32) {}
func (Null) Write(_, _, _ uint8)  {}
func (Null) Mix(*[2]int32)        {}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}

// attenuationTable builds a 16 entry volume table where index 0 is loudest and
// every following step is stepDb quieter, index 15 is silence.
func attenuationTable(max int32, stepDb float64) [16]int32 {
	var table [16]int32
	for i := 0; i < 15; i++ {
		table[i] = int32(float64(max) * math.Pow(10, -float64(i)*stepDb/20))
	}
	table[15] = 0
	return table
}
