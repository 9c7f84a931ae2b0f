//go:build test_unit

package chip

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 44100

func render(d Device, n int) [][2]int32 {
	out := make([][2]int32, n)
	for i := range out {
		d.Mix(&out[i])
	}
	return out
}

func TestClamp(t *testing.T) {
	assert.Equal(t, int32(-5), Clamp[int32](-10, -5, 5))
	assert.Equal(t, int32(5), Clamp[int32](10, -5, 5))
	assert.Equal(t, int32(3), Clamp[int32](3, -5, 5))
	assert.Equal(t, 1.5, Clamp(1.5, -2.0, 2.0))
}

func TestAttenuationTable(t *testing.T) {
	table := attenuationTable(1<<17, 2)

	assert.Equal(t, int32(1<<17), table[0])
	assert.Equal(t, int32(0), table[15])
	for i := 1; i < 15; i++ {
		assert.Less(t, table[i], table[i-1])
		assert.InDelta(t, math.Pow(10, -2.0/20), float64(table[i])/float64(table[i-1]), 0.001)
	}
}

func TestNull(t *testing.T) {
	var d Device = Null{}
	d.Reset()
	d.SetSampleRate(testRate)
	d.Write(0, 0x10, 0xff)

	out := [2]int32{7, -7}
	d.Mix(&out)
	assert.Equal(t, [2]int32{7, -7}, out)
}

func TestSN76489_SilentAfterReset(t *testing.T) {
	c := NewSN76489(3579545, 0, 0)
	c.SetSampleRate(testRate)

	for _, s := range render(c, 1000) {
		assert.Equal(t, [2]int32{0, 0}, s)
	}
}

func TestSN76489_ConstantLevel(t *testing.T) {
	c := NewSN76489(3579545, 0, 0)
	c.SetSampleRate(testRate)

	// channel 0, period 0, full volume
	c.Write(0, 0, 0x80)
	c.Write(0, 0, 0x00)
	c.Write(0, 0, 0x90)

	for _, s := range render(c, 100) {
		assert.Equal(t, [2]int32{snMaxVolume, snMaxVolume}, s)
	}

	// two steps of attenuation
	c.Write(0, 0, 0x92)
	s := render(c, 1)[0]
	assert.Equal(t, snVolumeTable[2], s[0])
}

func TestSN76489_TonePitch(t *testing.T) {
	c := NewSN76489(3579545, 0, 0)
	c.SetSampleRate(testRate)

	// 3579545 / 16 / 254 toggles per second is a 440 Hz square wave
	c.Write(0, 0, 0x80|(254&0x0f))
	c.Write(0, 0, 254>>4)
	c.Write(0, 0, 0x90)

	var rising int
	prev := int32(0)
	for _, s := range render(c, testRate) {
		if prev < 0 && s[0] > 0 {
			rising++
		}
		prev = s[0]
	}

	assert.InDelta(t, 440, rising, 2)
}

func TestSN76489_GameGearStereo(t *testing.T) {
	c := NewSN76489(3579545, 0, 0)
	c.SetSampleRate(testRate)

	c.Write(0, 0, 0x80)
	c.Write(0, 0, 0x00)
	c.Write(0, 0, 0x90)
	c.Write(1, 0, 0x0f)

	assert.Equal(t, [2]int32{0, snMaxVolume}, render(c, 1)[0])
}

func TestSN76489_Noise(t *testing.T) {
	c := NewSN76489(3579545, 0, 0)
	c.SetSampleRate(testRate)

	// white noise, fastest shift rate, full volume
	c.Write(0, 0, 0xe4)
	c.Write(0, 0, 0xf0)

	var pos, neg int
	for _, s := range render(c, 4410) {
		if s[0] > 0 {
			pos++
		} else if s[0] < 0 {
			neg++
		}
	}

	assert.NotZero(t, pos)
	assert.NotZero(t, neg)
}

func TestAY8910_FixedAmplitude(t *testing.T) {
	c := NewAY8910(1789773)
	c.SetSampleRate(testRate)

	for _, s := range render(c, 10) {
		assert.Equal(t, [2]int32{0, 0}, s)
	}

	// tone and noise disabled, channel A at full amplitude
	c.Write(0, 8, 0x0f)
	assert.Equal(t, [2]int32{ayMaxVolume, ayMaxVolume}, render(c, 1)[0])
}

func TestAY8910_Tone(t *testing.T) {
	c := NewAY8910(1789773)
	c.SetSampleRate(testRate)

	c.Write(0, 0, 100)
	c.Write(0, 1, 0)
	c.Write(0, 7, 0xfe)
	c.Write(0, 8, 0x0f)

	seen := map[int32]bool{}
	for _, s := range render(c, 1000) {
		seen[s[0]] = true
	}

	assert.True(t, seen[0])
	assert.True(t, seen[ayMaxVolume])
}

func TestAY8910_EnvelopeDecayHolds(t *testing.T) {
	c := NewAY8910(1789773)
	c.SetSampleRate(testRate)

	// envelope mode on channel A, shape 0 decays once then stays silent
	c.Write(0, 8, 0x10)
	c.Write(0, 11, 0x10)
	c.Write(0, 12, 0x00)
	c.Write(0, 13, 0x00)

	out := render(c, testRate/10)
	assert.Greater(t, out[0][0], int32(0))
	assert.Equal(t, int32(0), out[len(out)-1][0])
}

func writeNote(c *OPL, port uint8) {
	for _, w := range [][2]uint8{
		{0x20, 0x21}, {0x40, 0x10}, {0x60, 0xf0}, {0x80, 0x07},
		{0x23, 0x21}, {0x43, 0x00}, {0x63, 0xf0}, {0x83, 0x07},
		{0xc0, 0x30}, {0xa0, 0x98}, {0xb0, 0x31},
	} {
		c.Write(port, w[0], w[1])
	}
}

func peak(out [][2]int32) (int32, int32) {
	var l, r int32
	for _, s := range out {
		l = max(l, s[0], -s[0])
		r = max(r, s[1], -s[1])
	}
	return l, r
}

func TestOPL_KeyOnProducesSound(t *testing.T) {
	c := NewOPL(3579545, false)
	c.SetSampleRate(testRate)

	l, r := peak(render(c, 100))
	assert.Zero(t, l)
	assert.Zero(t, r)

	writeNote(c, 0)
	l, r = peak(render(c, 1000))
	assert.Greater(t, l, int32(0))
	assert.Equal(t, l, r)
}

func TestOPL_KeyOffReleases(t *testing.T) {
	c := NewOPL(3579545, false)
	c.SetSampleRate(testRate)

	writeNote(c, 0)
	render(c, 1000)

	// fastest release rate
	c.Write(0, 0x83, 0x0f)
	c.Write(0, 0xb0, 0x11)
	render(c, testRate/2)

	l, _ := peak(render(c, 100))
	assert.Zero(t, l)
}

func TestOPL_SecondBank(t *testing.T) {
	opl2 := NewOPL(3579545, false)
	opl2.SetSampleRate(testRate)
	writeNote(opl2, 1)
	l, _ := peak(render(opl2, 1000))
	assert.Zero(t, l, "OPL2 has no second bank")

	opl3 := NewOPL(14318180, true)
	opl3.SetSampleRate(testRate)
	writeNote(opl3, 1)
	l, _ = peak(render(opl3, 1000))
	assert.Greater(t, l, int32(0))
}

func risingEdges(out [][2]int32) int {
	var n int
	prev := int32(0)
	for _, s := range out {
		if prev < 0 && s[0] >= 0 {
			n++
		}
		prev = s[0]
	}
	return n
}

func TestOPL_SamePitchOnOPL2AndOPL3(t *testing.T) {
	opl2 := NewOPL(3579545, false)
	opl3 := NewOPL(14318180, true)

	var edges []int
	for _, c := range []*OPL{opl2, opl3} {
		c.SetSampleRate(testRate)
		writeNote(c, 0)
		// modulator fully attenuated, the carrier is a plain sine
		c.Write(0, 0x40, 0x3f)
		edges = append(edges, risingEdges(render(c, testRate)))
	}

	// fnum 0x198 block 4: 408 * 3579545 / 72 / 2^16 is about 309.5 Hz
	assert.InDelta(t, 309.5, edges[0], 3)
	assert.InDelta(t, edges[0], edges[1], 2)
}

func TestOPL_StereoInNewMode(t *testing.T) {
	c := NewOPL(14318180, true)
	c.SetSampleRate(testRate)

	c.Write(1, 0x05, 0x01)
	writeNote(c, 0)
	// left output only
	c.Write(0, 0xc0, 0x10)

	l, r := peak(render(c, 1000))
	require.Greater(t, l, int32(0))
	assert.Zero(t, r)
}

func TestSlotOperator(t *testing.T) {
	tests := []struct {
		slot    uint8
		ch      int
		carrier int
		ok      bool
	}{
		{0x00, 0, 0, true},
		{0x03, 0, 1, true},
		{0x05, 2, 1, true},
		{0x08, 3, 0, true},
		{0x15, 8, 1, true},
		{0x06, 0, 0, false},
		{0x18, 0, 0, false},
	}

	for _, tt := range tests {
		ch, carrier, ok := slotOperator(tt.slot)
		assert.Equal(t, tt.ok, ok, "slot 0x%02x", tt.slot)
		if tt.ok {
			assert.Equal(t, tt.ch, ch, "slot 0x%02x", tt.slot)
			assert.Equal(t, tt.carrier, carrier, "slot 0x%02x", tt.slot)
		}
	}
}
