//go:build test_unit

package engine_test

import (
	"encoding/binary"
	"testing"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/engine"
	"github.com/devgianlu/go-vgmplay/engine/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS98_Probe(t *testing.T) {
	l := engine.NewFileLoader(enginetest.NewS98().Wait(1).Bytes())
	require.NoError(t, l.Load())
	assert.True(t, engine.IsS98File(l))
	assert.False(t, engine.IsVGMFile(l))

	l = engine.NewFileLoader([]byte("S98X"))
	require.NoError(t, l.Load())
	assert.False(t, engine.IsS98File(l))
}

func TestS98_PlaysToEnd(t *testing.T) {
	p := engine.NewS98Player(&vgmplay.NullLogger{})
	load(t, p, enginetest.NewS98().Level(0).Wait(100).Bytes())

	assert.Equal(t, "S98", p.Format())
	assert.Equal(t, uint32(100), p.TotalTicks())
	assert.Zero(t, p.LoopTicks())
	assert.InDelta(t, 1.0, p.TickToSecond(100), 1e-9)

	events := start(t, p)

	buf := make([]engine.Frame, 50000)
	n := p.Render(buf)
	assert.Equal(t, 44100, n)
	assert.Equal(t, engine.Frame{L: enginetest.SN76489MaxLevel, R: enginetest.SN76489MaxLevel}, buf[0])
	assert.Equal(t, []event{{engine.EventEnd, 0}}, *events)
}

func TestS98_WaitEncoding(t *testing.T) {
	p := engine.NewS98Player(&vgmplay.NullLogger{})
	load(t, p, enginetest.NewS98().Wait(1).Wait(2).Wait(300).Bytes())

	assert.Equal(t, uint32(303), p.TotalTicks())
}

func TestS98_Loops(t *testing.T) {
	p := engine.NewS98Player(&vgmplay.NullLogger{})
	load(t, p, enginetest.NewS98().Level(0).Wait(10).Loop().Wait(20).Bytes())

	assert.Equal(t, uint32(30), p.TotalTicks())
	assert.Equal(t, uint32(20), p.LoopTicks())
	assert.Equal(t, uint32(50), p.TotalPlayTicks(2))

	events := start(t, p)

	// past the first loop jump at 0.3 s, before the second at 0.5 s
	buf := make([]engine.Frame, 44100*4/10)
	assert.Equal(t, len(buf), p.Render(buf))
	assert.Equal(t, []event{{engine.EventLoop, 1}}, *events)
}

func TestS98_Tags(t *testing.T) {
	p := engine.NewS98Player(&vgmplay.NullLogger{})
	load(t, p, enginetest.NewS98().Wait(1).Tag(enginetest.TagBlock("title=Foo", "Artist=Bar", "year=1991", "custom=value")).Bytes())

	assert.Equal(t, "Foo", p.SongTitle())
	assert.Equal(t, engine.Tags{
		engine.TagTitle:  "Foo",
		engine.TagArtist: "Bar",
		engine.TagDate:   "1991",
		"custom":         "value",
	}, p.Tags())
}

func TestS98_ShiftJISTitle(t *testing.T) {
	p := engine.NewS98Player(&vgmplay.NullLogger{})
	load(t, p, enginetest.NewS98().Wait(1).Tag([]byte{0x83, 0x65, 0x83, 0x58, 0x83, 0x67, 0x00}).Bytes())

	assert.Equal(t, "テスト", p.SongTitle())
}

func TestS98_LegacyDefaultsToOPNA(t *testing.T) {
	data := enginetest.NewS98().Level(0).Wait(10).Bytes()
	data[3] = '1'

	p := engine.NewS98Player(&vgmplay.NullLogger{})
	load(t, p, data)
	assert.Equal(t, uint32(10), p.TotalTicks())
	start(t, p)

	// the writes land on the SSG of the default YM2608, which stays silent
	buf := make([]engine.Frame, 4410)
	require.Equal(t, 4410, p.Render(buf))
	assert.Equal(t, engine.Frame{}, buf[0])
}

func TestS98_DefaultTimer(t *testing.T) {
	data := enginetest.NewS98().Wait(100).Bytes()
	binary.LittleEndian.PutUint32(data[0x04:], 0)
	binary.LittleEndian.PutUint32(data[0x08:], 0)

	p := engine.NewS98Player(&vgmplay.NullLogger{})
	load(t, p, data)
	assert.InDelta(t, 1.0, p.TickToSecond(p.TotalTicks()), 1e-9)
}

func TestS98_InvalidFiles(t *testing.T) {
	valid := enginetest.NewS98().Wait(1).Bytes()

	badData := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badData[0x14:], 0x1000)

	tooMany := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(tooMany[0x1c:], 1000)

	badVersion := append([]byte(nil), valid...)
	badVersion[3] = '4'

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"short", []byte("S983"), engine.ErrInvalidHeader},
		{"data offset", badData, engine.ErrTruncated},
		{"device count", tooMany, engine.ErrInvalidHeader},
		{"version", badVersion, engine.ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := engine.NewS98Player(&vgmplay.NullLogger{})
			l := engine.NewFileLoader(tt.data)
			require.NoError(t, l.Load())
			assert.ErrorIs(t, p.LoadFile(l), tt.err)
		})
	}
}
