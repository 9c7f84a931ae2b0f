package chip

import "math"

const (
	oplMaxVolume = 1 << 16
	oplMaxAtten  = 96.0

	oplChannels = 9
)

var oplMultiples = [16]float64{0.5, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 10, 12, 12, 15, 15}

type envStage int

const (
	envOff envStage = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

type oplOperator struct {
	mult    float64
	sustain bool
	tl      uint8
	ar, dr  uint8
	sl, rr  uint8
	wave    uint8

	phase float64
	atten float64
	stage envStage
}

type oplChannel struct {
	fnum     uint16
	block    uint8
	keyOn    bool
	feedback uint8
	additive bool
	left     bool
	right    bool

	prev [2]float64
}

// OPL models the Yamaha YM3526/YM3812 (OPL/OPL2) and YMF262 (OPL3) two-operator
// FM synthesizers. OPL3 chips expose a second register bank on port 1 with nine
// more channels. Rhythm mode, four-operator pairing, tremolo and vibrato are
// not modelled.
type OPL struct {
	clock uint32
	opl3  bool
	rate  float64

	waveSelect bool
	newMode    bool

	ch [2 * oplChannels]oplChannel
	op [4 * oplChannels]oplOperator
}

func NewOPL(clock uint32, opl3 bool) *OPL {
	c := &OPL{clock: clock, opl3: opl3}
	c.Reset()
	return c
}

// sampleClock is the internal sample rate, the YMF262 divides a four times faster clock by 288.
func (c *OPL) sampleClock() float64 {
	if c.opl3 {
		return float64(c.clock) / 288
	}
	return float64(c.clock) / 72
}

func (c *OPL) Reset() {
	c.waveSelect = false
	c.newMode = false
	c.ch = [2 * oplChannels]oplChannel{}
	c.op = [4 * oplChannels]oplOperator{}
	for i := range c.op {
		c.op[i].mult = oplMultiples[0]
		c.op[i].atten = oplMaxAtten
	}
	for i := range c.ch {
		c.ch[i].left, c.ch[i].right = true, true
	}
}

func (c *OPL) SetSampleRate(rate uint32) {
	c.rate = float64(rate)
}

// slotOperator maps the slot part of an operator register address to the
// channel and the operator within the channel, ok is false for unused slots.
func slotOperator(slot uint8) (ch int, carrier int, ok bool) {
	group, within := int(slot/8), int(slot%8)
	if group > 2 || within > 5 {
		return 0, 0, false
	}

	return group*3 + within%3, within / 3, true
}

func (c *OPL) Write(port, reg, val uint8) {
	bank := 0
	if port&1 == 1 {
		if !c.opl3 {
			return
		}
		bank = 1
	}

	switch {
	case reg == 0x01 && bank == 0:
		c.waveSelect = val&0x20 != 0
	case reg == 0x05 && bank == 1:
		c.newMode = val&0x01 != 0
	case reg >= 0x20 && reg <= 0x95, reg >= 0xe0 && reg <= 0xf5:
		ch, carrier, ok := slotOperator(reg & 0x1f)
		if !ok {
			return
		}
		c.writeOperator(&c.op[(bank*oplChannels+ch)*2+carrier], reg&0xe0, val)
	case reg >= 0xa0 && reg <= 0xa8:
		ch := &c.ch[bank*oplChannels+int(reg-0xa0)]
		ch.fnum = ch.fnum&0x300 | uint16(val)
	case reg >= 0xb0 && reg <= 0xb8:
		idx := bank*oplChannels + int(reg-0xb0)
		ch := &c.ch[idx]
		ch.fnum = ch.fnum&0xff | uint16(val&0x03)<<8
		ch.block = (val >> 2) & 0x07
		c.setKey(idx, val&0x20 != 0)
	case reg >= 0xc0 && reg <= 0xc8:
		ch := &c.ch[bank*oplChannels+int(reg-0xc0)]
		ch.additive = val&0x01 != 0
		ch.feedback = (val >> 1) & 0x07
		ch.left = val&0x10 != 0
		ch.right = val&0x20 != 0
	}
}

func (c *OPL) writeOperator(op *oplOperator, group, val uint8) {
	switch group {
	case 0x20:
		op.mult = oplMultiples[val&0x0f]
		op.sustain = val&0x20 != 0
	case 0x40:
		op.tl = val & 0x3f
	case 0x60:
		op.ar = val >> 4
		op.dr = val & 0x0f
	case 0x80:
		op.sl = val >> 4
		op.rr = val & 0x0f
	case 0xe0:
		op.wave = val & 0x07
	}
}

func (c *OPL) setKey(idx int, on bool) {
	ch := &c.ch[idx]
	if ch.keyOn == on {
		return
	}

	ch.keyOn = on
	for i := 0; i < 2; i++ {
		op := &c.op[idx*2+i]
		if on {
			op.phase = 0
			op.stage = envAttack
		} else if op.stage != envOff {
			op.stage = envRelease
		}
	}
}

// envRate returns the attenuation change in dB per sample for a 4 bit rate,
// fullTime is the time in seconds a rate of 1 takes to cover the whole range.
func (c *OPL) envRate(rate uint8, fullTime float64) float64 {
	if rate == 0 || c.rate == 0 {
		return 0
	}

	return oplMaxAtten / (fullTime / float64(uint32(1)<<(rate-1)) * c.rate)
}

func (c *OPL) stepEnvelope(op *oplOperator) {
	sl := float64(op.sl) * 3
	if op.sl == 15 {
		sl = oplMaxAtten
	}

	switch op.stage {
	case envAttack:
		if op.ar == 15 {
			op.atten = 0
		} else {
			op.atten -= c.envRate(op.ar, 2.826)
		}
		if op.atten <= 0 {
			op.atten = 0
			op.stage = envDecay
		}
	case envDecay:
		op.atten += c.envRate(op.dr, 39.28)
		if op.atten >= sl {
			op.atten = sl
			op.stage = envSustain
		}
	case envSustain:
		if !op.sustain {
			op.atten += c.envRate(op.rr, 39.28)
		}
	case envRelease:
		op.atten += c.envRate(op.rr, 39.28)
	}

	if op.atten >= oplMaxAtten {
		op.atten = oplMaxAtten
		if op.stage == envRelease || op.stage == envSustain {
			op.stage = envOff
		}
	}
}

func (c *OPL) waveform(wave uint8, phase float64) float64 {
	if !c.waveSelect && !c.newMode {
		wave = 0
	} else if !c.newMode {
		wave &= 0x03
	}

	phase -= math.Floor(phase)
	s := math.Sin(2 * math.Pi * phase)
	switch wave {
	case 1:
		return math.Max(s, 0)
	case 2:
		return math.Abs(s)
	case 3:
		if math.Mod(phase, 0.5) < 0.25 {
			return math.Abs(s)
		}
		return 0
	case 4:
		if phase < 0.5 {
			return math.Sin(4 * math.Pi * phase)
		}
		return 0
	case 5:
		if phase < 0.5 {
			return math.Abs(math.Sin(4 * math.Pi * phase))
		}
		return 0
	case 6:
		if phase < 0.5 {
			return 1
		}
		return -1
	case 7:
		if s >= 0 {
			return 1
		}
		return -1
	default:
		return s
	}
}

func (c *OPL) operator(op *oplOperator, freq, mod float64) float64 {
	c.stepEnvelope(op)
	op.phase += freq * op.mult / c.rate
	op.phase -= math.Floor(op.phase)
	if op.stage == envOff {
		return 0
	}

	gain := math.Pow(10, -(op.atten+float64(op.tl)*0.75)/20)
	return c.waveform(op.wave, op.phase+mod) * gain
}

func (c *OPL) Mix(out *[2]int32) {
	if c.rate == 0 {
		return
	}

	channels := oplChannels
	if c.opl3 {
		channels *= 2
	}

	var left, right float64
	for idx := 0; idx < channels; idx++ {
		ch := &c.ch[idx]
		mod, car := &c.op[idx*2], &c.op[idx*2+1]
		if mod.stage == envOff && car.stage == envOff {
			continue
		}

		freq := float64(ch.fnum) * c.sampleClock() / float64(uint32(1)<<(20-ch.block))

		var fb float64
		if ch.feedback > 0 {
			fb = (ch.prev[0] + ch.prev[1]) / 2 * float64(uint32(1)<<ch.feedback) / 32
		}

		m := c.operator(mod, freq, fb)
		ch.prev[1], ch.prev[0] = ch.prev[0], m

		var sample float64
		if ch.additive {
			sample = m + c.operator(car, freq, 0)
		} else {
			sample = c.operator(car, freq, m)
		}

		if !c.newMode || ch.left {
			left += sample
		}
		if !c.newMode || ch.right {
			right += sample
		}
	}

	out[0] += int32(Clamp(left, -2*oplChannels, 2*oplChannels) * oplMaxVolume)
	out[1] += int32(Clamp(right, -2*oplChannels, 2*oplChannels) * oplMaxVolume)
}
