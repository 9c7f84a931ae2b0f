//go:build test_unit

package plugin_test

import (
	"testing"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/chiptune"
	"github.com/devgianlu/go-vgmplay/engine/enginetest"
	"github.com/devgianlu/go-vgmplay/plugin"
	"github.com/devgianlu/go-vgmplay/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlugin() *plugin.Plugin {
	return plugin.New(&vgmplay.NullLogger{}, chiptune.NewOptions())
}

func openData(t *testing.T, p *plugin.Plugin, name string, data []byte) (*plugin.InputData, int) {
	t.Helper()

	ip := &plugin.InputData{Filename: name, File: enginetest.TempFile(t, name, data)}
	ret := p.Open(ip)
	if ret == 0 {
		t.Cleanup(func() { p.Close(ip) })
	}
	return ip, ret
}

func TestOpen(t *testing.T) {
	p := newPlugin()
	vgm := enginetest.NewVGM().Level(0).Wait(44100).Bytes()

	for name, data := range map[string][]byte{
		"song.vgm": vgm,
		"song.vgz": enginetest.Gzip(t, vgm),
		"song.s98": enginetest.NewS98().Level(0).Wait(100).Bytes(),
		"song.dro": enginetest.NewDRO().Note().Delay(1000).Bytes(),
	} {
		t.Run(name, func(t *testing.T) {
			ip, ret := openData(t, p, name, data)
			require.Zero(t, ret)

			assert.Equal(t, plugin.SampleFormat{Bits: 32, Rate: 44100, Channels: 2, Signed: true, BigEndian: ip.SampleFormat.BigEndian}, ip.SampleFormat)
			assert.Equal(t, []plugin.ChannelPosition{plugin.ChannelFrontLeft, plugin.ChannelFrontRight}, ip.ChannelMap)
			assert.Equal(t, 1, p.Duration(ip))
		})
	}
}

func TestOpen_Failures(t *testing.T) {
	p := newPlugin()
	live := source.LiveBuffers()

	ip, ret := openData(t, p, "song.mp3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00"))
	assert.Equal(t, -int(plugin.ErrorFileFormat), ret)
	assert.Equal(t, live, source.LiveBuffers())
	assert.Zero(t, ip.SampleFormat)
	assert.Nil(t, ip.ChannelMap)

	ret = p.Open(&plugin.InputData{Filename: "missing.vgm"})
	assert.Equal(t, -int(plugin.ErrorErrno), ret)
}

func TestRead(t *testing.T) {
	p := newPlugin()
	ip, ret := openData(t, p, "song.vgm", enginetest.NewVGM().Level(0).Wait(5000).Bytes())
	require.Zero(t, ret)

	buf := make([]byte, 4096*chiptune.FrameSize)
	total := 0
	for {
		n := p.Read(ip, buf)
		require.GreaterOrEqual(t, n, 0)
		if n == 0 {
			break
		}
		total += n
	}
	assert.Equal(t, 5000*chiptune.FrameSize, total)
	assert.Zero(t, p.Read(ip, buf))

	assert.Zero(t, p.Seek(ip, 0))
	assert.Equal(t, len(buf), p.Read(ip, buf))
}

func TestRead_ShortBuffer(t *testing.T) {
	p := newPlugin()
	ip, ret := openData(t, p, "song.vgm", enginetest.NewVGM().Level(0).Wait(5000).Bytes())
	require.Zero(t, ret)

	assert.Equal(t, -int(plugin.ErrorErrno), p.Read(ip, make([]byte, chiptune.FrameSize-1)))
	assert.Equal(t, chiptune.FrameSize, p.Read(ip, make([]byte, chiptune.FrameSize)))
}

func TestReadComments(t *testing.T) {
	p := newPlugin()

	ip, ret := openData(t, p, "titled.vgm", enginetest.NewVGM().Wait(10).Title("Boss").Bytes())
	require.Zero(t, ret)
	comments, ret := p.ReadComments(ip)
	require.Zero(t, ret)
	assert.Equal(t, []plugin.KeyVal{{Key: "title", Val: "Boss"}}, comments)

	ip, ret = openData(t, p, "untitled.vgm", enginetest.NewVGM().Wait(10).Bytes())
	require.Zero(t, ret)
	comments, ret = p.ReadComments(ip)
	require.Zero(t, ret)
	assert.Empty(t, comments)
}

func TestUnsupportedQueries(t *testing.T) {
	p := newPlugin()
	ip, ret := openData(t, p, "song.vgm", enginetest.NewVGM().Wait(10).Bytes())
	require.Zero(t, ret)

	assert.Equal(t, int64(-plugin.ErrorFunctionNotSupported), p.Bitrate(ip))
	assert.Equal(t, int64(-plugin.ErrorFunctionNotSupported), p.BitrateCurrent(ip))
	assert.Empty(t, p.Codec(ip))
	assert.Empty(t, p.CodecProfile(ip))
}

func TestClose(t *testing.T) {
	p := newPlugin()
	live := source.LiveBuffers()

	ip := &plugin.InputData{Filename: "song.vgm", File: enginetest.TempFile(t, "song.vgm", enginetest.NewVGM().Wait(10).Bytes())}
	require.Zero(t, p.Open(ip))
	assert.Equal(t, live+1, source.LiveBuffers())

	assert.Zero(t, p.Close(ip))
	assert.Equal(t, live, source.LiveBuffers())

	assert.Equal(t, -int(plugin.ErrorErrno), p.Read(ip, make([]byte, 64)))
	assert.Equal(t, -int(plugin.ErrorErrno), p.Seek(ip, 0))
	assert.Equal(t, -int(plugin.ErrorErrno), p.Duration(ip))
	_, ret := p.ReadComments(ip)
	assert.Equal(t, -int(plugin.ErrorErrno), ret)
}

func TestMaxLoopsOption(t *testing.T) {
	opts := chiptune.NewOptions()
	p := plugin.New(&vgmplay.NullLogger{}, opts)

	val, ret := p.GetOption("max_loops")
	require.Zero(t, ret)
	assert.Equal(t, "2", val)

	assert.Zero(t, p.SetOption("max_loops", "3"))
	val, _ = p.GetOption("max_loops")
	assert.Equal(t, "3", val)
	assert.Equal(t, uint32(3), opts.MaxLoops())

	assert.Equal(t, -int(plugin.ErrorInvalidOption), p.SetOption("max_loops", "abc"))
	val, _ = p.GetOption("max_loops")
	assert.Equal(t, "3", val)

	assert.Equal(t, -int(plugin.ErrorNotOption), p.SetOption("volume", "1"))
	_, ret = p.GetOption("volume")
	assert.Equal(t, -int(plugin.ErrorNotOption), ret)

	require.Len(t, p.Options(), 1)
	assert.Equal(t, "max_loops", p.Options()[0].Name)
}

func TestMaxLoopsAffectsOpenSources(t *testing.T) {
	p := newPlugin()
	ip, ret := openData(t, p, "song.vgm", enginetest.NewVGM().Level(0).Wait(44100).Loop().Wait(44100).Bytes())
	require.Zero(t, ret)

	assert.Equal(t, 3, p.Duration(ip))
	require.Zero(t, p.SetOption("max_loops", "5"))
	assert.Equal(t, 6, p.Duration(ip))
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, []string{"vgm", "vgz", "s98", "dro"}, plugin.Extensions)
	assert.Empty(t, plugin.MimeTypes)
	assert.Equal(t, 50, plugin.Priority)
}

func TestStatus(t *testing.T) {
	assert.Zero(t, plugin.Status(nil))
	assert.Equal(t, -int(plugin.ErrorErrno), plugin.Status(vgmplay.ErrIo))
	assert.Equal(t, -int(plugin.ErrorFileFormat), plugin.Status(vgmplay.ErrFormat))
	assert.Equal(t, -int(plugin.ErrorInvalidOption), plugin.Status(vgmplay.ErrConfig))
	assert.Equal(t, -int(plugin.ErrorFunctionNotSupported), plugin.Status(vgmplay.ErrUnsupported))
	assert.Equal(t, "no such option", plugin.ErrorNotOption.String())
}
