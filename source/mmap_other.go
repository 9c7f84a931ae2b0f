//go:build !unix

package source

import (
	"fmt"
	"io"
	"os"

	vgmplay "github.com/devgianlu/go-vgmplay"
)

func mapFile(f *os.File) (*Buffer, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: failed stat: %w", vgmplay.ErrIo, err)
	}

	data := make([]byte, stat.Size())
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, stat.Size()), data); err != nil {
		return nil, fmt.Errorf("%w: failed reading file: %w", vgmplay.ErrIo, err)
	}

	return newBuffer(data, nil), nil
}

func dupFile(f *os.File) (*os.File, error) {
	return os.Open(f.Name())
}

func createSpool() (*os.File, func(), error) {
	f, err := os.CreateTemp("", "vgmplay-*.vgm")
	if err != nil {
		return nil, nil, err
	}

	return f, func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}, nil
}
