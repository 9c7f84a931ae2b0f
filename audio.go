package go_vgmplay

type Int32Reader interface {
	// Read reads interleaved signed 32bit samples from the stream
	// until EOF is returned.
	Read([]int32) (n int, err error)
}

type AudioSource interface {
	// SetPositionMs sets the new position in milliseconds
	SetPositionMs(int64) error

	// PositionMs gets the position in milliseconds
	PositionMs() int64

	// Read reads interleaved native endian signed 32bit samples as bytes
	Read([]byte) (int, error)
}
