package engine

import "fmt"

// FileLoader gives players access to an in-memory file. The preload window is
// the part of the file that probes look at to recognise a format.
type FileLoader struct {
	data    []byte
	preload int
	loaded  bool
}

func NewFileLoader(data []byte) *FileLoader {
	return &FileLoader{data: data, preload: len(data)}
}

// SetPreloadBytes sets the size of the header window, it must be called before Load.
func (l *FileLoader) SetPreloadBytes(n int) {
	l.preload = n
}

func (l *FileLoader) Load() error {
	if len(l.data) == 0 {
		return fmt.Errorf("%w: empty file", ErrTruncated)
	}

	l.loaded = true
	return nil
}

// Header returns the preload window, nil if the loader has not been loaded.
func (l *FileLoader) Header() []byte {
	if !l.loaded {
		return nil
	}

	return l.data[:min(l.preload, len(l.data))]
}

// Data returns the whole file, nil if the loader has not been loaded.
func (l *FileLoader) Data() []byte {
	if !l.loaded {
		return nil
	}

	return l.data
}

func (l *FileLoader) Len() int {
	return len(l.data)
}

// Unload drops the reference to the file data.
func (l *FileLoader) Unload() {
	l.data = nil
	l.loaded = false
}
