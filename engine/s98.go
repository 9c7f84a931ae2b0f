package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/engine/chip"
)

const (
	s98HeaderSize    = 0x20
	s98DeviceSize    = 0x10
	s98MaxDevices    = 64
	s98DefaultNum    = 10
	s98DefaultDen    = 1000
	s98DefaultClock  = 7987200
	s98OffTimerNum   = 0x04
	s98OffTimerDen   = 0x08
	s98OffTag        = 0x10
	s98OffData       = 0x14
	s98OffLoop       = 0x18
	s98OffDeviceCnt  = 0x1c
	s98OffDeviceInfo = 0x20
)

const (
	s98DeviceNone    = 0
	s98DeviceYM2149  = 1
	s98DeviceYM2203  = 2
	s98DeviceYM2612  = 3
	s98DeviceYM2608  = 4
	s98DeviceYM2151  = 5
	s98DeviceYM2413  = 6
	s98DeviceYM3526  = 7
	s98DeviceYM3812  = 8
	s98DeviceYMF262  = 9
	s98DeviceAY8910  = 15
	s98DeviceSN76489 = 16
)

var s98Ident = []byte("S98")

// IsS98File reports whether the loader header carries the S98 identifier and a known version.
func IsS98File(l *FileLoader) bool {
	h := l.Header()
	return len(h) >= 4 && bytes.Equal(h[:3], s98Ident) && h[3] >= '0' && h[3] <= '3'
}

type s98Device struct {
	typ   uint32
	clock uint32
}

// ssgPort forwards only the SSG registers of an OPN family chip to an AY model.
type ssgPort struct {
	*chip.AY8910
}

func (s ssgPort) Write(port, reg, val uint8) {
	if port == 0 && reg < 0x10 {
		s.AY8910.Write(port, reg, val)
	}
}

func newS98Device(dev s98Device) (chip.Device, string) {
	switch dev.typ {
	case s98DeviceYM2149:
		return chip.NewAY8910(dev.clock), "YM2149"
	case s98DeviceAY8910:
		return chip.NewAY8910(dev.clock), "AY8910"
	case s98DeviceYM2203:
		return ssgPort{chip.NewAY8910(dev.clock / 2)}, "YM2203"
	case s98DeviceYM2608:
		return ssgPort{chip.NewAY8910(dev.clock / 4)}, "YM2608"
	case s98DeviceYM3526:
		return chip.NewOPL(dev.clock, false), "YM3526"
	case s98DeviceYM3812:
		return chip.NewOPL(dev.clock, false), "YM3812"
	case s98DeviceYMF262:
		return chip.NewOPL(dev.clock, true), "YMF262"
	case s98DeviceSN76489:
		return chip.NewSN76489(dev.clock, 0, 0), "SN76489"
	case s98DeviceYM2612:
		return chip.Null{}, "YM2612"
	case s98DeviceYM2151:
		return chip.Null{}, "YM2151"
	case s98DeviceYM2413:
		return chip.Null{}, "YM2413"
	default:
		return chip.Null{}, fmt.Sprintf("unknown(%d)", dev.typ)
	}
}

// S98Player plays S98 register logs.
type S98Player struct {
	playback

	log vgmplay.Logger

	data      []byte
	dataStart int
	loopPos   int
	pos       int
	tags      Tags
}

func NewS98Player(log vgmplay.Logger) *S98Player {
	return &S98Player{log: log}
}

func (p *S98Player) Format() string {
	return "S98"
}

func (p *S98Player) LoadFile(l *FileLoader) error {
	data := l.Data()
	if len(data) < s98HeaderSize || !bytes.Equal(data[:3], s98Ident) {
		return fmt.Errorf("%w: not an S98 file", ErrInvalidHeader)
	}

	version := data[3] - '0'
	if version > 3 {
		return fmt.Errorf("%w: S98 version %c", ErrUnsupported, data[3])
	}

	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(data[off:]) }

	num, den := u32(s98OffTimerNum), u32(s98OffTimerDen)
	if num == 0 {
		num = s98DefaultNum
	}
	if den == 0 {
		den = s98DefaultDen
	}

	dataStart := int(u32(s98OffData))
	if dataStart < s98HeaderSize || dataStart >= len(data) {
		return fmt.Errorf("%w: S98 data offset out of range", ErrTruncated)
	}

	loopPos := int(u32(s98OffLoop))
	if loopPos != 0 && (loopPos < dataStart || loopPos >= len(data)) {
		p.log.Warnf("ignoring S98 loop offset 0x%x outside of data", loopPos)
		loopPos = 0
	}

	devices, err := readS98Devices(data, version, dataStart)
	if err != nil {
		return err
	}

	var chips []chip.Device
	for _, dev := range devices {
		c, name := newS98Device(dev)
		if _, ok := c.(chip.Null); ok {
			p.log.Debugf("S98 device %s at %d Hz is not supported, writes are ignored", name, dev.clock)
		}
		chips = append(chips, c)
	}

	tags := Tags{}
	if off := int(u32(s98OffTag)); off != 0 && off < len(data) {
		if tags, err = parseS98Tags(data[off:]); err != nil {
			p.log.WithError(err).Warnf("ignoring invalid S98 tag")
			tags = Tags{}
		}
	}

	p.data, p.dataStart, p.loopPos, p.tags = data, dataStart, loopPos, tags
	p.seq = p
	p.devices = chips
	p.tickNum, p.tickDen = uint64(num), uint64(den)

	total, loopTick, loopFound := p.measure()
	p.totalTicks = total
	if loopPos != 0 && loopFound && total > loopTick {
		p.loopTicks = total - loopTick
	} else {
		p.loopTicks = 0
		p.loopPos = 0
	}

	p.pos = dataStart
	p.log.Debugf("loaded S98 v%d, %d devices, %d ticks, loop %d ticks", version, len(chips), p.totalTicks, p.loopTicks)
	return nil
}

func readS98Devices(data []byte, version byte, dataStart int) ([]s98Device, error) {
	var devices []s98Device

	readDevice := func(i int) (s98Device, bool) {
		off := s98OffDeviceInfo + i*s98DeviceSize
		if off+s98DeviceSize > dataStart {
			return s98Device{}, false
		}
		return s98Device{
			typ:   binary.LittleEndian.Uint32(data[off:]),
			clock: binary.LittleEndian.Uint32(data[off+4:]),
		}, true
	}

	switch version {
	case 3:
		count := int(binary.LittleEndian.Uint32(data[s98OffDeviceCnt:]))
		if count > s98MaxDevices {
			return nil, fmt.Errorf("%w: too many S98 devices: %d", ErrInvalidHeader, count)
		}
		for i := 0; i < count; i++ {
			dev, ok := readDevice(i)
			if !ok {
				return nil, fmt.Errorf("%w: S98 device table overlaps data", ErrTruncated)
			}
			devices = append(devices, dev)
		}
	case 2:
		for i := 0; i < s98MaxDevices; i++ {
			dev, ok := readDevice(i)
			if !ok || dev.typ == s98DeviceNone {
				break
			}
			devices = append(devices, dev)
		}
	}

	if len(devices) == 0 {
		devices = append(devices, s98Device{typ: s98DeviceYM2608, clock: s98DefaultClock})
	}

	return devices, nil
}

// measure walks the whole command stream without touching the chips and returns the
// length in ticks, the tick at which the loop point is crossed and whether it was.
func (p *S98Player) measure() (total uint32, loopTick uint32, loopFound bool) {
	pos := p.dataStart
	for {
		if p.loopPos != 0 && pos == p.loopPos {
			loopTick, loopFound = total, true
		}

		delay, next, end := p.decode(pos, false)
		if end {
			return total, loopTick, loopFound
		}

		total += delay
		pos = next
	}
}

// decode executes, or only parses when apply is false, the command at pos.
func (p *S98Player) decode(pos int, apply bool) (delay uint32, next int, end bool) {
	if pos >= len(p.data) {
		return 0, pos, true
	}

	cmd := p.data[pos]
	switch {
	case cmd < 0x80:
		if pos+3 > len(p.data) {
			return 0, pos, true
		}
		if dev := int(cmd >> 1); apply && dev < len(p.devices) {
			p.devices[dev].Write(cmd&1, p.data[pos+1], p.data[pos+2])
		}
		return 0, pos + 3, false
	case cmd == 0xff:
		return 1, pos + 1, false
	case cmd == 0xfe:
		var n uint32
		var shift uint
		pos++
		for {
			if pos >= len(p.data) || shift > 28 {
				return 0, pos, true
			}
			b := p.data[pos]
			pos++
			n |= uint32(b&0x7f) << shift
			shift += 7
			if b&0x80 == 0 {
				break
			}
		}
		return n + 2, pos, false
	case cmd == 0xfd:
		return 0, pos + 1, true
	default:
		return 0, pos + 1, false
	}
}

func (p *S98Player) UnloadFile() error {
	p.unload()
	p.data = nil
	p.tags = nil
	return nil
}

func (p *S98Player) SongTitle() string {
	return p.tags[TagTitle]
}

func (p *S98Player) Tags() Tags {
	return p.tags
}

func (p *S98Player) rewind() {
	p.pos = p.dataStart
}

func (p *S98Player) jumpLoop() {
	p.pos = p.loopPos
}

func (p *S98Player) step() (uint32, bool) {
	for {
		delay, next, end := p.decode(p.pos, true)
		p.pos = next
		if end {
			return 0, true
		} else if delay > 0 {
			return delay, false
		}
	}
}
