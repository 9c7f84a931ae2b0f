package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/engine/chip"
)

const (
	vgmTickRate       = 44100
	vgmMinHeaderSize  = 0x40
	vgmMaxVersion     = 0x171
	vgmLegacyDataBase = 0x40

	vgmOffEOF          = 0x04
	vgmOffVersion      = 0x08
	vgmOffSN76489      = 0x0c
	vgmOffGD3          = 0x14
	vgmOffTotalSamples = 0x18
	vgmOffLoop         = 0x1c
	vgmOffLoopSamples  = 0x20
	vgmOffSNFeedback   = 0x28
	vgmOffSNWidth      = 0x2a
	vgmOffData         = 0x34
	vgmOffYM3812       = 0x50
	vgmOffYM3526       = 0x54
	vgmOffY8950        = 0x58
	vgmOffYMF262       = 0x5c
	vgmOffAY8910       = 0x74

	vgmClockMask = 0x3fffffff
)

var vgmIdent = []byte("Vgm ")

// IsVGMFile reports whether the loader header carries the VGM identifier.
func IsVGMFile(l *FileLoader) bool {
	h := l.Header()
	return len(h) >= len(vgmIdent) && bytes.Equal(h[:len(vgmIdent)], vgmIdent)
}

// vgmCommandLength returns the encoded length of fixed size commands, 0 for
// commands that are handled separately or unknown.
func vgmCommandLength(cmd uint8) int {
	switch {
	case cmd >= 0x30 && cmd <= 0x3f:
		return 2
	case cmd >= 0x40 && cmd <= 0x4e:
		return 3
	case cmd == 0x4f || cmd == 0x50:
		return 2
	case cmd >= 0x51 && cmd <= 0x5f:
		return 3
	case cmd == 0x61:
		return 3
	case cmd == 0x62 || cmd == 0x63 || cmd == 0x66:
		return 1
	case cmd == 0x68:
		return 12
	case cmd >= 0x70 && cmd <= 0x8f:
		return 1
	case cmd == 0x90 || cmd == 0x91 || cmd == 0x95:
		return 5
	case cmd == 0x92:
		return 6
	case cmd == 0x93:
		return 11
	case cmd == 0x94:
		return 2
	case cmd >= 0xa0 && cmd <= 0xbf:
		return 3
	case cmd >= 0xc0 && cmd <= 0xdf:
		return 4
	case cmd >= 0xe0:
		return 5
	default:
		return 0
	}
}

type vgmHeader struct {
	version      uint32
	totalSamples uint32
	loopSamples  uint32

	dataStart int
	dataEnd   int
	loopPos   int
	gd3Pos    int
}

// VGMPlayer plays Video Game Music files.
type VGMPlayer struct {
	playback

	log vgmplay.Logger

	data []byte
	hdr  vgmHeader
	pos  int
	tags Tags

	sn  *chip.SN76489
	ay  *chip.AY8910
	opl *chip.OPL

	warned map[uint8]bool
}

func NewVGMPlayer(log vgmplay.Logger) *VGMPlayer {
	return &VGMPlayer{log: log}
}

func (p *VGMPlayer) Format() string {
	return "VGM"
}

func (p *VGMPlayer) LoadFile(l *FileLoader) error {
	data := l.Data()
	if len(data) < vgmMinHeaderSize || !bytes.Equal(data[:4], vgmIdent) {
		return fmt.Errorf("%w: not a VGM file", ErrInvalidHeader)
	}

	hdr, err := parseVGMHeader(data)
	if err != nil {
		return err
	}

	// fields at or after the data start are command bytes, not header
	field := func(off int) uint32 {
		if off+4 > hdr.dataStart {
			return 0
		}
		return binary.LittleEndian.Uint32(data[off:])
	}

	var devices []chip.Device
	var sn *chip.SN76489
	var ay *chip.AY8910
	var opl *chip.OPL

	if clock := field(vgmOffSN76489) & vgmClockMask; clock != 0 {
		var feedback uint16
		var width uint8
		if hdr.version >= 0x110 && vgmOffSNWidth < hdr.dataStart {
			feedback = binary.LittleEndian.Uint16(data[vgmOffSNFeedback:])
			width = data[vgmOffSNWidth]
		}

		sn = chip.NewSN76489(clock, feedback, width)
		devices = append(devices, sn)
	}

	if hdr.version >= 0x151 {
		if clock := field(vgmOffAY8910) & vgmClockMask; clock != 0 {
			ay = chip.NewAY8910(clock)
			devices = append(devices, ay)
		}

		if clock := field(vgmOffYMF262) & vgmClockMask; clock != 0 {
			opl = chip.NewOPL(clock, true)
		} else {
			for _, off := range []int{vgmOffYM3812, vgmOffYM3526, vgmOffY8950} {
				if clock := field(off) & vgmClockMask; clock != 0 {
					opl = chip.NewOPL(clock, false)
					break
				}
			}
		}
		if opl != nil {
			devices = append(devices, opl)
		}
	}

	if len(devices) == 0 {
		p.log.Debugf("no supported chips in VGM file, playback will be silent")
	}

	tags := Tags{}
	if hdr.gd3Pos != 0 {
		if tags, err = parseGD3(data[hdr.gd3Pos:]); err != nil {
			p.log.WithError(err).Warnf("ignoring invalid GD3 tag")
			tags = Tags{}
		}
	}

	p.data, p.hdr, p.tags = data, hdr, tags
	p.sn, p.ay, p.opl = sn, ay, opl
	p.warned = map[uint8]bool{}

	p.seq = p
	p.devices = devices
	p.tickNum, p.tickDen = 1, vgmTickRate
	p.totalTicks = hdr.totalSamples
	if hdr.loopPos != 0 {
		p.loopTicks = hdr.loopSamples
	} else {
		p.loopTicks = 0
	}

	p.pos = hdr.dataStart
	p.log.Debugf("loaded VGM %x.%02x, %d samples, loop %d samples", hdr.version>>8, hdr.version&0xff, hdr.totalSamples, p.loopTicks)
	return nil
}

func parseVGMHeader(data []byte) (vgmHeader, error) {
	var hdr vgmHeader
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(data[off:]) }

	hdr.version = u32(vgmOffVersion)
	if hdr.version < 0x100 || hdr.version > vgmMaxVersion {
		return hdr, fmt.Errorf("%w: VGM version %x", ErrUnsupported, hdr.version)
	}

	hdr.dataStart = vgmLegacyDataBase
	if off := u32(vgmOffData); hdr.version >= 0x150 && off != 0 {
		hdr.dataStart = vgmOffData + int(off)
	}
	if hdr.dataStart >= len(data) {
		return hdr, fmt.Errorf("%w: VGM data offset out of range", ErrTruncated)
	}

	hdr.dataEnd = len(data)
	if off := u32(vgmOffEOF); off != 0 && vgmOffEOF+int(off) < len(data) {
		hdr.dataEnd = vgmOffEOF + int(off)
	}
	if hdr.dataEnd <= hdr.dataStart {
		return hdr, fmt.Errorf("%w: VGM end of file before data", ErrTruncated)
	}

	hdr.totalSamples = u32(vgmOffTotalSamples)
	hdr.loopSamples = u32(vgmOffLoopSamples)
	if off := u32(vgmOffLoop); off != 0 && hdr.loopSamples != 0 {
		pos := vgmOffLoop + int(off)
		if pos >= hdr.dataStart && pos < hdr.dataEnd {
			hdr.loopPos = pos
		}
	}

	if off := u32(vgmOffGD3); off != 0 && vgmOffGD3+int(off) < len(data) {
		hdr.gd3Pos = vgmOffGD3 + int(off)
	}

	return hdr, nil
}

func (p *VGMPlayer) UnloadFile() error {
	p.unload()
	p.data = nil
	p.sn, p.ay, p.opl = nil, nil, nil
	p.tags = nil
	return nil
}

func (p *VGMPlayer) SongTitle() string {
	return p.tags[TagTitle]
}

func (p *VGMPlayer) Tags() Tags {
	return p.tags
}

func (p *VGMPlayer) rewind() {
	p.pos = p.hdr.dataStart
}

func (p *VGMPlayer) jumpLoop() {
	p.pos = p.hdr.loopPos
}

func (p *VGMPlayer) step() (uint32, bool) {
	data := p.data[:p.hdr.dataEnd]
	for p.pos < len(data) {
		cmd := data[p.pos]
		if cmd == 0x67 {
			// data block: 0x67 0x66 type size32 data
			if p.pos+7 > len(data) {
				return 0, true
			}
			size := binary.LittleEndian.Uint32(data[p.pos+3:]) & 0x7fffffff
			p.pos += 7 + int(size)
			continue
		}

		n := vgmCommandLength(cmd)
		if n == 0 {
			if !p.warned[cmd] {
				p.warned[cmd] = true
				p.log.Warnf("skipping unknown VGM command 0x%02x at offset 0x%x", cmd, p.pos)
			}
			p.pos++
			continue
		} else if p.pos+n > len(data) {
			return 0, true
		}

		args := data[p.pos+1 : p.pos+n]
		p.pos += n

		switch {
		case cmd == 0x66:
			return 0, true
		case cmd == 0x61:
			if delay := binary.LittleEndian.Uint16(args); delay > 0 {
				return uint32(delay), false
			}
		case cmd == 0x62:
			return 735, false
		case cmd == 0x63:
			return 882, false
		case cmd >= 0x70 && cmd <= 0x7f:
			return uint32(cmd&0x0f) + 1, false
		case cmd >= 0x80 && cmd <= 0x8f:
			// YM2612 DAC write and wait, the DAC itself is not modelled
			if delay := uint32(cmd & 0x0f); delay > 0 {
				return delay, false
			}
		case cmd == 0x50:
			if p.sn != nil {
				p.sn.Write(0, 0, args[0])
			}
		case cmd == 0x4f:
			if p.sn != nil {
				p.sn.Write(1, 0, args[0])
			}
		case cmd == 0xa0:
			// bit 7 of the register selects the second chip, which is not supported
			if p.ay != nil && args[0]&0x80 == 0 {
				p.ay.Write(0, args[0], args[1])
			}
		case cmd == 0x5a || cmd == 0x5b || cmd == 0x5c || cmd == 0x5e:
			if p.opl != nil {
				p.opl.Write(0, args[0], args[1])
			}
		case cmd == 0x5f:
			if p.opl != nil {
				p.opl.Write(1, args[0], args[1])
			}
		}
	}

	return 0, true
}
