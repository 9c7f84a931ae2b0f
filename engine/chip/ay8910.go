package chip

const ayMaxVolume = 1 << 17

// AY levels are roughly 3dB apart, level 15 is the loudest.
var ayVolumeTable = func() [16]int32 {
	att := attenuationTable(ayMaxVolume, 3)
	var table [16]int32
	for i := range table {
		table[i] = att[15-i]
	}
	return table
}()

const (
	ayRegMixer     = 7
	ayRegAmplitude = 8
	ayRegEnvFine   = 11
	ayRegEnvCoarse = 12
	ayRegEnvShape  = 13

	ayEnvHold      = 0x01
	ayEnvAlternate = 0x02
	ayEnvAttack    = 0x04
	ayEnvContinue  = 0x08
)

// AY8910 models the General Instrument AY-3-8910 and the compatible Yamaha
// YM2149 / OPN SSG: three square wave channels, a noise generator and a
// shared envelope generator. Output is mono on both channels.
type AY8910 struct {
	clock uint32

	// step is the number of chip ticks (clock/8) elapsed per output sample.
	step float64

	regs [16]uint8

	toneCounter  [3]float64
	toneOut      [3]bool
	noiseCounter float64
	noiseOut     bool
	lfsr         uint32

	envCounter float64
	envStep    int
	envAttack  bool
	envHolding bool
	envVolume  int
}

func NewAY8910(clock uint32) *AY8910 {
	c := &AY8910{clock: clock}
	c.Reset()
	return c
}

func (c *AY8910) Reset() {
	c.regs = [16]uint8{}
	c.regs[ayRegMixer] = 0xff
	c.toneCounter = [3]float64{}
	c.toneOut = [3]bool{}
	c.noiseCounter = 0
	c.noiseOut = false
	c.lfsr = 1
	c.envCounter = 0
	c.resetEnvelope()
}

func (c *AY8910) SetSampleRate(rate uint32) {
	if rate == 0 {
		c.step = 0
		return
	}

	c.step = float64(c.clock) / 8 / float64(rate)
}

// Write sets register reg, the port is ignored.
func (c *AY8910) Write(_, reg, val uint8) {
	reg &= 0x0f
	c.regs[reg] = val
	if reg == ayRegEnvShape {
		c.resetEnvelope()
	}
}

func (c *AY8910) resetEnvelope() {
	c.envStep = 0
	c.envHolding = false
	c.envAttack = c.regs[ayRegEnvShape]&ayEnvAttack != 0
	if c.envAttack {
		c.envVolume = 0
	} else {
		c.envVolume = 15
	}
}

func (c *AY8910) tonePeriod(ch int) float64 {
	period := uint16(c.regs[ch*2]) | uint16(c.regs[ch*2+1]&0x0f)<<8
	return float64(max(period, 1))
}

func (c *AY8910) stepEnvelope() {
	if c.envHolding {
		return
	}

	c.envStep++
	if c.envStep > 15 {
		shape := c.regs[ayRegEnvShape]
		switch {
		case shape&ayEnvContinue == 0:
			c.envHolding = true
			c.envVolume = 0
			return
		case shape&ayEnvHold != 0:
			if shape&ayEnvAlternate != 0 {
				c.envAttack = !c.envAttack
			}
			c.envHolding = true
			if c.envAttack {
				c.envVolume = 15
			} else {
				c.envVolume = 0
			}
			return
		default:
			if shape&ayEnvAlternate != 0 {
				c.envAttack = !c.envAttack
			}
			c.envStep = 0
		}
	}

	if c.envAttack {
		c.envVolume = c.envStep
	} else {
		c.envVolume = 15 - c.envStep
	}
}

func (c *AY8910) Mix(out *[2]int32) {
	for ch := 0; ch < 3; ch++ {
		period := c.tonePeriod(ch)
		c.toneCounter[ch] -= c.step
		for c.toneCounter[ch] <= 0 {
			c.toneCounter[ch] += period
			c.toneOut[ch] = !c.toneOut[ch]
		}
	}

	noisePeriod := float64(max(c.regs[6]&0x1f, 1)) * 2
	c.noiseCounter -= c.step
	for c.noiseCounter <= 0 {
		c.noiseCounter += noisePeriod
		bit := (c.lfsr ^ (c.lfsr >> 3)) & 1
		c.lfsr = (c.lfsr >> 1) | (bit << 16)
		c.noiseOut = c.lfsr&1 != 0
	}

	envPeriod := float64(max(uint16(c.regs[ayRegEnvFine])|uint16(c.regs[ayRegEnvCoarse])<<8, 1)) * 2
	c.envCounter -= c.step
	for c.envCounter <= 0 {
		c.envCounter += envPeriod
		c.stepEnvelope()
	}

	var sum int32
	mixer := c.regs[ayRegMixer]
	for ch := 0; ch < 3; ch++ {
		toneOff := mixer&(1<<ch) != 0
		noiseOff := mixer&(8<<ch) != 0
		if !(c.toneOut[ch] || toneOff) || !(c.noiseOut || noiseOff) {
			continue
		}

		amp := c.regs[ayRegAmplitude+ch]
		if amp&0x10 != 0 {
			sum += ayVolumeTable[c.envVolume]
		} else {
			sum += ayVolumeTable[amp&0x0f]
		}
	}

	out[0] += sum
	out[1] += sum
}
