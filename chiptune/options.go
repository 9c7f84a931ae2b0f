package chiptune

import (
	"fmt"
	"strconv"
	"sync/atomic"

	vgmplay "github.com/devgianlu/go-vgmplay"
)

// DefaultMaxLoops is the number of times a looped song is played before fading out.
const DefaultMaxLoops = 2

// Options holds settings shared by every decoder of the process. Decoders keep a
// reference and read it while rendering, changes apply to open decoders as well.
type Options struct {
	maxLoops atomic.Uint32
}

func NewOptions() *Options {
	o := &Options{}
	o.maxLoops.Store(DefaultMaxLoops)
	return o
}

// MaxLoops returns the loop ceiling.
func (o *Options) MaxLoops() uint32 {
	return o.maxLoops.Load()
}

func (o *Options) SetMaxLoops(n uint32) {
	o.maxLoops.Store(n)
}

// MaxLoopsString formats the loop ceiling as a decimal string.
func (o *Options) MaxLoopsString() string {
	return strconv.FormatUint(uint64(o.MaxLoops()), 10)
}

// SetMaxLoopsString parses a plain unsigned decimal integer, the current value is
// kept if s is not one.
func (o *Options) SetMaxLoopsString(s string) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("%w: max_loops %q: %w", vgmplay.ErrConfig, s, err)
	}

	o.SetMaxLoops(uint32(n))
	return nil
}
