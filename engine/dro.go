package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/engine/chip"
)

const (
	droOPL2Clock = 3579545
	droOPL3Clock = 14318180
	droTickRate  = 1000

	droV1HeaderSize = 0x18
	droV2HeaderSize = 0x1a
)

type droHardware int

const (
	droOPL2 droHardware = iota
	droDualOPL2
	droOPL3
)

func (h droHardware) String() string {
	switch h {
	case droOPL2:
		return "OPL2"
	case droDualOPL2:
		return "dual OPL2"
	case droOPL3:
		return "OPL3"
	default:
		return "unknown"
	}
}

var droIdent = []byte("DBRAWOPL")

// IsDROFile reports whether the loader header carries the DOSBox raw OPL identifier.
func IsDROFile(l *FileLoader) bool {
	h := l.Header()
	return len(h) >= len(droIdent) && bytes.Equal(h[:len(droIdent)], droIdent)
}

// DROPlayer plays DOSBox raw OPL captures, both the 0.1 and 2.0 layouts.
type DROPlayer struct {
	playback

	log vgmplay.Logger

	data      []byte
	version   int
	dataStart int
	dataEnd   int
	pos       int
	bank      uint8

	// v2 only
	shortDelay uint8
	longDelay  uint8
	codemap    []byte

	opl *chip.OPL
}

func NewDROPlayer(log vgmplay.Logger) *DROPlayer {
	return &DROPlayer{log: log}
}

func (p *DROPlayer) Format() string {
	return "DRO"
}

func (p *DROPlayer) LoadFile(l *FileLoader) error {
	data := l.Data()
	if len(data) < 0x0c || !bytes.Equal(data[:8], droIdent) {
		return fmt.Errorf("%w: not a DRO file", ErrInvalidHeader)
	}

	major := binary.LittleEndian.Uint16(data[0x08:])
	minor := binary.LittleEndian.Uint16(data[0x0a:])

	var hw droHardware
	var lengthMs uint32
	switch {
	case major == 0 && minor == 1:
		if len(data) < droV1HeaderSize {
			return fmt.Errorf("%w: DRO header", ErrTruncated)
		}

		lengthMs = binary.LittleEndian.Uint32(data[0x0c:])
		dataLen := int(binary.LittleEndian.Uint32(data[0x10:]))

		// early captures store the hardware type in one byte instead of four
		p.dataStart = droV1HeaderSize
		if data[0x15] != 0 || data[0x16] != 0 || data[0x17] != 0 {
			p.dataStart = 0x15
		}

		switch data[0x14] {
		case 0:
			hw = droOPL2
		case 1:
			hw = droOPL3
		default:
			hw = droDualOPL2
		}

		p.dataEnd = min(p.dataStart+dataLen, len(data))
		p.version = 1
	case major == 2 && minor == 0:
		if len(data) < droV2HeaderSize {
			return fmt.Errorf("%w: DRO header", ErrTruncated)
		}

		pairs := int(binary.LittleEndian.Uint32(data[0x0c:]))
		lengthMs = binary.LittleEndian.Uint32(data[0x10:])
		if data[0x15] != 0 || data[0x16] != 0 {
			return fmt.Errorf("%w: DRO format %d compression %d", ErrUnsupported, data[0x15], data[0x16])
		}

		switch data[0x14] {
		case 0:
			hw = droOPL2
		case 1:
			hw = droDualOPL2
		default:
			hw = droOPL3
		}

		p.shortDelay, p.longDelay = data[0x17], data[0x18]
		codemapLen := int(data[0x19])
		if droV2HeaderSize+codemapLen > len(data) {
			return fmt.Errorf("%w: DRO codemap", ErrTruncated)
		}

		p.codemap = data[droV2HeaderSize : droV2HeaderSize+codemapLen]
		p.dataStart = droV2HeaderSize + codemapLen
		p.dataEnd = min(p.dataStart+pairs*2, len(data))
		p.version = 2
	default:
		return fmt.Errorf("%w: DRO version %d.%d", ErrUnsupported, major, minor)
	}

	if hw == droOPL2 {
		p.opl = chip.NewOPL(droOPL2Clock, false)
	} else {
		// both banks of a dual OPL2 are played through the OPL3 register banks
		p.opl = chip.NewOPL(droOPL3Clock, true)
	}

	p.data = data
	p.seq = p
	p.devices = []chip.Device{p.opl}
	p.tickNum, p.tickDen = 1, droTickRate
	p.loopTicks = 0

	p.totalTicks = p.measure()
	if lengthMs != 0 && lengthMs != p.totalTicks {
		p.log.Debugf("DRO header length %d ms does not match data length %d ms", lengthMs, p.totalTicks)
	}

	p.rewind()
	p.log.Debugf("loaded DRO v%d (%s), %d ms", p.version, hw, p.totalTicks)
	return nil
}

func (p *DROPlayer) measure() uint32 {
	var total uint32
	pos, bank := p.dataStart, uint8(0)
	for {
		delay, next, end := p.decode(pos, &bank, false)
		if end {
			return total
		}

		total += delay
		pos = next
	}
}

func (p *DROPlayer) decode(pos int, bank *uint8, apply bool) (delay uint32, next int, end bool) {
	if p.version == 2 {
		return p.decodeV2(pos, apply)
	}

	data := p.data[:p.dataEnd]
	if pos >= len(data) {
		return 0, pos, true
	}

	write := func(reg, val uint8) {
		if apply {
			p.opl.Write(*bank, reg, val)
		}
	}

	switch cmd := data[pos]; cmd {
	case 0x00:
		if pos+2 > len(data) {
			return 0, pos, true
		}
		return uint32(data[pos+1]) + 1, pos + 2, false
	case 0x01:
		if pos+3 > len(data) {
			return 0, pos, true
		}
		return uint32(binary.LittleEndian.Uint16(data[pos+1:])) + 1, pos + 3, false
	case 0x02, 0x03:
		*bank = cmd - 0x02
		return 0, pos + 1, false
	case 0x04:
		if pos+3 > len(data) {
			return 0, pos, true
		}
		write(data[pos+1], data[pos+2])
		return 0, pos + 3, false
	default:
		if pos+2 > len(data) {
			return 0, pos, true
		}
		write(cmd, data[pos+1])
		return 0, pos + 2, false
	}
}

func (p *DROPlayer) decodeV2(pos int, apply bool) (delay uint32, next int, end bool) {
	data := p.data[:p.dataEnd]
	if pos+2 > len(data) {
		return 0, pos, true
	}

	code, val := data[pos], data[pos+1]
	switch code {
	case p.shortDelay:
		return uint32(val) + 1, pos + 2, false
	case p.longDelay:
		return (uint32(val) + 1) << 8, pos + 2, false
	}

	if idx := int(code & 0x7f); apply && idx < len(p.codemap) {
		p.opl.Write(code>>7, p.codemap[idx], val)
	}
	return 0, pos + 2, false
}

func (p *DROPlayer) UnloadFile() error {
	p.unload()
	p.data, p.codemap, p.opl = nil, nil, nil
	return nil
}

func (p *DROPlayer) SongTitle() string {
	return ""
}

func (p *DROPlayer) Tags() Tags {
	return Tags{}
}

func (p *DROPlayer) rewind() {
	p.pos = p.dataStart
	p.bank = 0
}

func (p *DROPlayer) jumpLoop() {
	p.rewind()
}

func (p *DROPlayer) step() (uint32, bool) {
	for {
		delay, next, end := p.decode(p.pos, &p.bank, true)
		p.pos = next
		if end {
			return 0, true
		} else if delay > 0 {
			return delay, false
		}
	}
}
