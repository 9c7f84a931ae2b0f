//go:build test_unit

package source_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/engine/enginetest"
	"github.com/devgianlu/go-vgmplay/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Plain(t *testing.T) {
	data := enginetest.NewVGM().Level(0).Wait(100).Bytes()
	f := enginetest.TempFile(t, "song.vgm", data)

	before := source.LiveBuffers()
	buf, err := source.Load(&vgmplay.NullLogger{}, f)
	require.NoError(t, err)
	assert.Equal(t, before+1, source.LiveBuffers())

	assert.Equal(t, data, buf.Bytes())
	assert.Equal(t, len(data), buf.Len())

	require.NoError(t, buf.Close())
	require.NoError(t, buf.Close())
	assert.Equal(t, before, source.LiveBuffers())
	assert.Nil(t, buf.Bytes())
}

func TestLoad_Gzip(t *testing.T) {
	// larger than a few chunks
	data := bytes.Repeat(enginetest.NewVGM().Level(0).Wait(100).Bytes(), 3*source.GzipChunkSize/64)
	f := enginetest.TempFile(t, "song.vgz", enginetest.Gzip(t, data))

	_, err := f.Seek(5, io.SeekStart)
	require.NoError(t, err)

	buf, err := source.Load(&vgmplay.NullLogger{}, f)
	require.NoError(t, err)
	defer func() { _ = buf.Close() }()

	assert.Equal(t, data, buf.Bytes())

	off, err := f.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), off, "caller offset must not move")
}

func TestLoad_Empty(t *testing.T) {
	f := enginetest.TempFile(t, "empty.vgm", nil)

	buf, err := source.Load(&vgmplay.NullLogger{}, f)
	require.NoError(t, err)
	assert.Zero(t, buf.Len())
	require.NoError(t, buf.Close())
}

func TestLoad_SingleByte(t *testing.T) {
	f := enginetest.TempFile(t, "one.vgm", []byte{0x1f})

	buf, err := source.Load(&vgmplay.NullLogger{}, f)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f}, buf.Bytes())
	require.NoError(t, buf.Close())
}

func TestLoad_CorruptGzip(t *testing.T) {
	compressed := enginetest.Gzip(t, bytes.Repeat([]byte("Vgm "), 4096))

	tests := []struct {
		name string
		data []byte
	}{
		{"bad header", []byte{0x1f, 0x8b, 0x00, 0x00}},
		{"truncated stream", compressed[:len(compressed)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := source.LiveBuffers()

			f := enginetest.TempFile(t, "bad.vgz", tt.data)
			buf, err := source.Load(&vgmplay.NullLogger{}, f)
			assert.ErrorIs(t, err, vgmplay.ErrFormat)
			assert.Nil(t, buf)
			assert.Equal(t, before, source.LiveBuffers())
		})
	}
}

func TestLoad_NoSpoolLeftBehind(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	f := enginetest.TempFile(t, "song.vgz", enginetest.Gzip(t, enginetest.NewVGM().Wait(10).Bytes()))
	buf, err := source.Load(&vgmplay.NullLogger{}, f)
	require.NoError(t, err)
	defer func() { _ = buf.Close() }()

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotRegexp(t, `^vgmplay-`, filepath.Base(e.Name()))
	}
}
