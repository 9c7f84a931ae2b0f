package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/chiptune"
	"github.com/devgianlu/go-vgmplay/metadata"
	"github.com/devgianlu/go-vgmplay/output"
)

// playlist chains the decoders of several files into a single sample stream.
// Files that cannot be opened are skipped.
type playlist struct {
	log       vgmplay.Logger
	opts      *chiptune.Options
	publisher *metadata.Publisher
	files     []string
	seek      float64

	lock   sync.Mutex
	next   int
	file   *os.File
	dec    *chiptune.Decoder
	reader *output.ByteToInt32Reader
}

func (p *playlist) Read(samples []int32) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	for {
		if p.dec == nil {
			if err := p.openNext(); err != nil {
				return 0, err
			}
		}

		n, err := p.reader.Read(samples)
		if errors.Is(err, io.EOF) {
			p.closeCurrent()
			if n == 0 {
				continue
			}

			return n, nil
		}

		return n, err
	}
}

// openNext opens the next playable file, io.EOF means the playlist is over.
func (p *playlist) openNext() error {
	for p.next < len(p.files) {
		path := p.files[p.next]
		p.next++

		dec, file, err := openDecoder(p.log, path, p.opts)
		if err != nil {
			p.log.WithError(err).Warnf("skipping %s", path)
			continue
		}

		if p.seek > 0 {
			if err := dec.Seek(p.seek); err != nil {
				p.log.WithError(err).Warnf("failed seeking %s", path)
			}
		}

		p.file, p.dec = file, dec
		p.reader = output.NewByteToInt32Reader(dec)

		p.log.WithField("format", dec.Format()).Infof("playing %s", path)
		p.publisher.UpdateSong(metadata.Song{
			File:     filepath.Base(path),
			Format:   dec.Format(),
			Tags:     dec.Tags(),
			Duration: time.Duration(dec.Duration() * float64(time.Second)),
			Looped:   dec.Looped(),
			MaxLoops: p.opts.MaxLoops(),
		})
		return nil
	}

	return io.EOF
}

func (p *playlist) closeCurrent() {
	if p.dec == nil {
		return
	}

	p.dec.Close()
	_ = p.file.Close()
	p.dec, p.file, p.reader = nil, nil, nil
}

// Close releases the current decoder.
func (p *playlist) Close() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.closeCurrent()
}

// PositionMs returns the position in the current song.
func (p *playlist) PositionMs() int64 {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.dec == nil {
		return 0
	}

	return p.dec.PositionMs()
}

func openDecoder(log vgmplay.Logger, path string, opts *chiptune.Options) (*chiptune.Decoder, *os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", vgmplay.ErrIo, err)
	}

	dec, err := chiptune.New(log.WithField("file", filepath.Base(path)), file, opts)
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}

	return dec, file, nil
}
