package engine

import "github.com/devgianlu/go-vgmplay/engine/chip"

// sequence walks the command stream of a loaded file.
type sequence interface {
	// step executes commands at the current position until one that waits,
	// it returns the wait in ticks or end when the data is exhausted.
	step() (delay uint32, end bool)
	// jumpLoop moves the position to the loop point.
	jumpLoop()
	// rewind moves the position to the start of the data.
	rewind()
}

// playback holds the timing and loop logic shared by all players.
type playback struct {
	seq     sequence
	devices []chip.Device

	sampleRate uint32

	// one tick lasts tickNum/tickDen seconds
	tickNum, tickDen uint64

	loopTicks  uint32
	totalTicks uint32

	callback Callback

	started bool
	ended   bool
	curLoop uint32

	playTick       uint64
	playSmpl       uint64
	nextSmpl       uint64
	ticksSinceLoop uint64
}

func (p *playback) SetSampleRate(rate uint32) error {
	if rate == 0 {
		return ErrUnsupported
	}

	p.sampleRate = rate
	for _, d := range p.devices {
		d.SetSampleRate(rate)
	}
	return nil
}

func (p *playback) SetCallback(cb Callback) {
	p.callback = cb
}

func (p *playback) Start() error {
	if p.seq == nil {
		return ErrNotLoaded
	}
	if p.sampleRate == 0 {
		p.sampleRate = DefaultSampleRate
	}

	for _, d := range p.devices {
		d.SetSampleRate(p.sampleRate)
	}

	p.restart()
	p.started = true
	return nil
}

func (p *playback) Stop() error {
	p.started = false
	return nil
}

func (p *playback) Reset() error {
	if p.seq == nil {
		return ErrNotLoaded
	}

	p.restart()
	return nil
}

func (p *playback) restart() {
	p.seq.rewind()
	for _, d := range p.devices {
		d.Reset()
	}

	p.ended = false
	p.curLoop = 0
	p.playTick, p.playSmpl, p.nextSmpl, p.ticksSinceLoop = 0, 0, 0, 0
}

func (p *playback) unload() {
	p.started = false
	p.seq = nil
	p.devices = nil
	p.loopTicks, p.totalTicks = 0, 0
}

func (p *playback) tickToSample(ticks uint64) uint64 {
	return ticks * uint64(p.sampleRate) * p.tickNum / p.tickDen
}

func (p *playback) emit(evt EventType, loop uint32) {
	if p.callback != nil {
		p.callback(evt, loop)
	}
}

func (p *playback) advance() {
	delay, end := p.seq.step()
	if !end {
		p.playTick += uint64(delay)
		p.ticksSinceLoop += uint64(delay)
		p.nextSmpl = p.tickToSample(p.playTick)
		return
	}

	// a loop without any elapsed time would spin forever
	if p.loopTicks == 0 || p.ticksSinceLoop == 0 {
		p.ended = true
		p.emit(EventEnd, 0)
		return
	}

	p.curLoop++
	p.ticksSinceLoop = 0
	p.seq.jumpLoop()
	p.emit(EventLoop, p.curLoop)
}

func (p *playback) Render(buf []Frame) int {
	if !p.started || p.ended {
		return 0
	}

	for i := range buf {
		for !p.ended && p.playSmpl >= p.nextSmpl {
			p.advance()
		}
		if p.ended {
			return i
		}

		var mix [2]int32
		for _, d := range p.devices {
			d.Mix(&mix)
		}

		buf[i].L += mix[0]
		buf[i].R += mix[1]
		p.playSmpl++
	}

	return len(buf)
}

func (p *playback) LoopTicks() uint32 {
	return p.loopTicks
}

func (p *playback) TotalTicks() uint32 {
	return p.totalTicks
}

func (p *playback) TotalPlayTicks(loops uint32) uint32 {
	if p.loopTicks == 0 || loops == 0 {
		return p.totalTicks
	}

	return p.totalTicks + p.loopTicks*(loops-1)
}

func (p *playback) TickToSecond(ticks uint32) float64 {
	if p.tickDen == 0 {
		return 0
	}

	return float64(ticks) * float64(p.tickNum) / float64(p.tickDen)
}
