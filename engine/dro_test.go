//go:build test_unit

package engine_test

import (
	"testing"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/engine"
	"github.com/devgianlu/go-vgmplay/engine/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peak(frames []engine.Frame) int32 {
	var p int32
	for _, f := range frames {
		p = max(p, f.L, -f.L)
	}
	return p
}

func TestDRO_Probe(t *testing.T) {
	l := engine.NewFileLoader(enginetest.NewDRO().Delay(1).Bytes())
	require.NoError(t, l.Load())
	assert.True(t, engine.IsDROFile(l))
	assert.False(t, engine.IsVGMFile(l))
	assert.False(t, engine.IsS98File(l))
}

func TestDRO_V2(t *testing.T) {
	p := engine.NewDROPlayer(&vgmplay.NullLogger{})
	load(t, p, enginetest.NewDRO().Note().Delay(500).Bytes())

	assert.Equal(t, "DRO", p.Format())
	assert.Equal(t, uint32(500), p.TotalTicks())
	assert.Zero(t, p.LoopTicks())
	assert.Equal(t, uint32(500), p.TotalPlayTicks(3))
	assert.InDelta(t, 0.5, p.TickToSecond(500), 1e-9)
	assert.Empty(t, p.SongTitle())
	assert.Empty(t, p.Tags())

	events := start(t, p)

	buf := make([]engine.Frame, 44100)
	n := p.Render(buf)
	assert.Equal(t, 22050, n)
	assert.Greater(t, peak(buf[:n]), int32(0))
	assert.Equal(t, []event{{engine.EventEnd, 0}}, *events)
}

func TestDRO_V2Silence(t *testing.T) {
	p := engine.NewDROPlayer(&vgmplay.NullLogger{})
	load(t, p, enginetest.NewDRO().Delay(100).Bytes())
	start(t, p)

	buf := make([]engine.Frame, 44100)
	n := p.Render(buf)
	assert.Equal(t, 4410, n)
	assert.Zero(t, peak(buf[:n]))
}

func droV1Commands() []byte {
	return []byte{
		0x00, 0x09, // 10 ms
		0x01, 0xe7, 0x03, // 1000 ms
		0x02,       // low bank
		0xb0, 0x31, // key on
		0x04, 0x01, 0x20, // escaped write to register 0x01
	}
}

func TestDRO_V1(t *testing.T) {
	p := engine.NewDROPlayer(&vgmplay.NullLogger{})
	load(t, p, enginetest.DROv1(0, 1010, droV1Commands()))

	assert.Equal(t, uint32(1010), p.TotalTicks())
	start(t, p)

	buf := make([]engine.Frame, 50000)
	assert.Equal(t, 44541, p.Render(buf))
}

func TestDRO_V1ShortHardwareField(t *testing.T) {
	full := enginetest.DROv1(1, 1010, droV1Commands())

	// the hardware type takes one byte, commands start right after it
	data := make([]byte, 0, len(full)-3)
	data = append(data, full[:0x15]...)
	data = append(data, full[0x18:]...)

	p := engine.NewDROPlayer(&vgmplay.NullLogger{})
	load(t, p, data)
	assert.Equal(t, uint32(1010), p.TotalTicks())
}

func TestDRO_InvalidFiles(t *testing.T) {
	compressed := enginetest.NewDRO().Delay(1).Bytes()
	compressed[0x16] = 1

	version := enginetest.NewDRO().Delay(1).Bytes()
	version[0x08] = 1

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"short", []byte("DBRAWOPL"), engine.ErrInvalidHeader},
		{"compressed", compressed, engine.ErrUnsupported},
		{"version", version, engine.ErrUnsupported},
		{"v1 header", enginetest.DROv1(0, 0, nil)[:0x10], engine.ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := engine.NewDROPlayer(&vgmplay.NullLogger{})
			l := engine.NewFileLoader(tt.data)
			require.NoError(t, l.Load())
			assert.ErrorIs(t, p.LoadFile(l), tt.err)
		})
	}
}
