package output

import (
	"encoding/binary"
	"io"
)

// ByteToInt32Reader wraps a reader of native endian 32bit samples to produce int32 samples.
type ByteToInt32Reader struct {
	Reader io.Reader
	buffer []byte
	tail   int
}

// NewByteToInt32Reader creates a new ByteToInt32Reader.
func NewByteToInt32Reader(reader io.Reader) *ByteToInt32Reader {
	return &ByteToInt32Reader{Reader: reader}
}

// Read reads int32 samples from the wrapped reader, a partial sample is kept for the next call.
func (r *ByteToInt32Reader) Read(p []int32) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if size := len(p) * 4; cap(r.buffer) < size {
		buffer := make([]byte, size)
		copy(buffer, r.buffer[:r.tail])
		r.buffer = buffer
	} else {
		r.buffer = r.buffer[:size]
	}

	n, err := r.Reader.Read(r.buffer[r.tail:])
	n += r.tail

	count := n / 4
	for i := 0; i < count; i++ {
		p[i] = int32(binary.NativeEndian.Uint32(r.buffer[i*4:]))
	}

	r.tail = copy(r.buffer, r.buffer[count*4:n])
	return count, err
}
