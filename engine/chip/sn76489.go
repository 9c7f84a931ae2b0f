package chip

const snMaxVolume = 1 << 17

var snVolumeTable = attenuationTable(snMaxVolume, 2)

const (
	SN76489DefaultFeedback = 0x0009
	SN76489DefaultWidth    = 16
)

// SN76489 models the TI SN76489 / Sega PSG: three square wave channels and a
// noise channel driven by a linear feedback shift register.
type SN76489 struct {
	clock    uint32
	feedback uint16
	width    uint8

	// step is the number of chip ticks (clock/16) elapsed per output sample.
	step float64

	tone      [3]uint16
	volume    [4]uint8
	noiseCtrl uint8
	latch     uint8
	stereo    uint8

	counter [4]float64
	output  [4]bool
	lfsr    uint16
}

func NewSN76489(clock uint32, feedback uint16, width uint8) *SN76489 {
	if feedback == 0 {
		feedback = SN76489DefaultFeedback
	}
	if width == 0 || width > 16 {
		width = SN76489DefaultWidth
	}

	c := &SN76489{clock: clock, feedback: feedback, width: width}
	c.Reset()
	return c
}

func (c *SN76489) Reset() {
	c.tone = [3]uint16{}
	c.volume = [4]uint8{15, 15, 15, 15}
	c.noiseCtrl = 0
	c.latch = 0
	c.stereo = 0xff
	c.counter = [4]float64{}
	c.output = [4]bool{}
	c.lfsr = 1 << (c.width - 1)
}

func (c *SN76489) SetSampleRate(rate uint32) {
	if rate == 0 {
		c.step = 0
		return
	}

	c.step = float64(c.clock) / 16 / float64(rate)
}

// Write handles a data byte on port 0 and the Game Gear stereo register on port 1.
func (c *SN76489) Write(port, _, val uint8) {
	if port == 1 {
		c.stereo = val
		return
	}

	if val&0x80 != 0 {
		c.latch = (val >> 4) & 0x07
		c.writeLatched(uint16(val&0x0f), false)
	} else {
		c.writeLatched(uint16(val&0x3f), true)
	}
}

func (c *SN76489) writeLatched(data uint16, high bool) {
	ch := c.latch >> 1
	if c.latch&1 == 1 {
		c.volume[ch] = uint8(data & 0x0f)
		return
	}

	if ch == 3 {
		c.noiseCtrl = uint8(data & 0x07)
		c.lfsr = 1 << (c.width - 1)
		return
	}

	if high {
		c.tone[ch] = (c.tone[ch] & 0x0f) | (data << 4)
	} else {
		c.tone[ch] = (c.tone[ch] & 0x3f0) | data
	}
}

func (c *SN76489) noisePeriod() float64 {
	switch c.noiseCtrl & 0x03 {
	case 0:
		return 0x20
	case 1:
		return 0x40
	case 2:
		return 0x80
	default:
		return float64(max(c.tone[2], 1)) * 2
	}
}

func (c *SN76489) shiftNoise() {
	var bit uint16
	if c.noiseCtrl&0x04 != 0 {
		// white noise, parity of the tapped bits
		tapped := c.lfsr & c.feedback
		for tapped != 0 {
			bit ^= tapped & 1
			tapped >>= 1
		}
	} else {
		bit = c.lfsr & 1
	}

	c.lfsr = (c.lfsr >> 1) | (bit << (c.width - 1))
	c.output[3] = c.lfsr&1 != 0
}

func (c *SN76489) Mix(out *[2]int32) {
	for ch := 0; ch < 3; ch++ {
		period := c.tone[ch]
		if period <= 1 {
			// periods of 0 and 1 hold the output high, used for sample playback
			c.output[ch] = true
			continue
		}

		c.counter[ch] -= c.step
		for c.counter[ch] <= 0 {
			c.counter[ch] += float64(period)
			c.output[ch] = !c.output[ch]
		}
	}

	c.counter[3] -= c.step
	for c.counter[3] <= 0 {
		c.counter[3] += c.noisePeriod()
		c.shiftNoise()
	}

	for ch := 0; ch < 4; ch++ {
		amp := snVolumeTable[c.volume[ch]]
		if !c.output[ch] {
			amp = -amp
		}

		if c.stereo&(0x10<<ch) != 0 {
			out[0] += amp
		}
		if c.stereo&(0x01<<ch) != 0 {
			out[1] += amp
		}
	}
}
