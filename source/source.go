package source

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	vgmplay "github.com/devgianlu/go-vgmplay"
)

const (
	// GzipChunkSize is the amount of decompressed data copied to the spool on each iteration.
	GzipChunkSize = 8192
)

var gzipMagic = []byte{0x1f, 0x8b}

// live counts buffers that have been acquired and not yet released.
var live atomic.Int64

// LiveBuffers returns the number of buffers that are currently acquired.
func LiveBuffers() int64 {
	return live.Load()
}

// Buffer is a read-only view of the full logical content of a source file.
type Buffer struct {
	data    []byte
	release func() error
	closed  bool
}

func newBuffer(data []byte, release func() error) *Buffer {
	live.Add(1)
	return &Buffer{data: data, release: release}
}

// Bytes returns the content. The slice must not be used after Close.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Len() int {
	return len(b.data)
}

// Close releases the underlying mapping or memory, it is safe to call more than once.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}

	b.closed = true
	live.Add(-1)

	b.data = nil
	if b.release != nil {
		if err := b.release(); err != nil {
			return fmt.Errorf("%w: failed releasing buffer: %w", vgmplay.ErrIo, err)
		}
	}

	return nil
}

// Load produces a byte view of f. Gzip framed files are decompressed into an anonymous
// temporary spool first, anything else is mapped directly. The offset of f is not modified.
func Load(log vgmplay.Logger, f *os.File) (*Buffer, error) {
	magic := make([]byte, len(gzipMagic))
	n, err := f.ReadAt(magic, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed reading magic: %w", vgmplay.ErrIo, err)
	}

	if n == len(gzipMagic) && bytes.Equal(magic, gzipMagic) {
		log.Debugf("gzip stream detected, decompressing %s", f.Name())
		return loadGzip(log, f)
	}

	return mapFile(f)
}

func loadGzip(log vgmplay.Logger, f *os.File) (*Buffer, error) {
	// keep the caller's descriptor untouched, the decompressor works on its own copy
	dup, err := dupFile(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed duplicating descriptor: %w", vgmplay.ErrIo, err)
	}
	defer func() { _ = dup.Close() }()

	stat, err := dup.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: failed stat: %w", vgmplay.ErrIo, err)
	}

	gz, err := gzip.NewReader(io.NewSectionReader(dup, 0, stat.Size()))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid gzip stream: %w", vgmplay.ErrFormat, err)
	}
	defer func() { _ = gz.Close() }()

	spool, cleanup, err := createSpool()
	if err != nil {
		return nil, fmt.Errorf("%w: failed creating spool file: %w", vgmplay.ErrIo, err)
	}
	defer cleanup()

	var total int64
	chunk := make([]byte, GzipChunkSize)
	for {
		n, rerr := gz.Read(chunk)
		if n > 0 {
			if w, werr := spool.Write(chunk[:n]); werr != nil {
				return nil, fmt.Errorf("%w: failed writing spool file: %w", vgmplay.ErrIo, werr)
			} else if w != n {
				return nil, fmt.Errorf("%w: short write to spool file", vgmplay.ErrIo)
			}

			total += int64(n)
		}

		if errors.Is(rerr, io.EOF) {
			break
		} else if rerr != nil {
			return nil, fmt.Errorf("%w: failed decompressing: %w", vgmplay.ErrFormat, rerr)
		}
	}

	log.Tracef("decompressed %d bytes from %s", total, f.Name())

	return mapFile(spool)
}
