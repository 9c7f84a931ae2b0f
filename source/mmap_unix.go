//go:build unix

package source

import (
	"fmt"
	"os"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"golang.org/x/sys/unix"
)

func mapFile(f *os.File) (*Buffer, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: failed stat: %w", vgmplay.ErrIo, err)
	}

	size := stat.Size()
	if size == 0 {
		return newBuffer(nil, nil), nil
	} else if int64(int(size)) != size {
		return nil, fmt.Errorf("%w: file too large to map: %d bytes", vgmplay.ErrIo, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: failed mapping file: %w", vgmplay.ErrIo, err)
	}

	return newBuffer(data, func() error { return unix.Munmap(data) }), nil
}

func dupFile(f *os.File) (*os.File, error) {
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, err
	}

	unix.CloseOnExec(fd)
	return os.NewFile(uintptr(fd), f.Name()), nil
}

func createSpool() (*os.File, func(), error) {
	f, err := os.CreateTemp("", "vgmplay-*.vgm")
	if err != nil {
		return nil, nil, err
	}

	// unlink right away, the mapping keeps the data alive
	_ = os.Remove(f.Name())

	return f, func() { _ = f.Close() }, nil
}
