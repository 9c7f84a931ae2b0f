package metadata

import (
	"sync"
	"time"

	vgmplay "github.com/devgianlu/go-vgmplay"
)

// PipeConfig represents the metadata pipe configuration.
type PipeConfig struct {
	Enabled    bool
	Path       string
	Format     string
	BufferSize int
}

// Song is the static information about a song published on track changes.
type Song struct {
	File     string
	Format   string
	Tags     map[string]string
	Duration time.Duration
	Looped   bool
	MaxLoops uint32
}

// Publisher keeps the current metadata and forwards every change to the pipe.
// A disabled publisher accepts every call and does nothing.
type Publisher struct {
	fifoManager *FIFOManager
	metadata    *TrackMetadata
	mutex       sync.RWMutex
	enabled     bool
}

func NewPublisher(log vgmplay.Logger, config PipeConfig) (*Publisher, error) {
	p := &Publisher{enabled: config.Enabled}
	if !config.Enabled {
		return p, nil
	}

	fm, err := NewFIFOManager(log, config.Path, config.Format, config.BufferSize)
	if err != nil {
		return nil, err
	}

	p.fifoManager = fm
	p.metadata = NewTrackMetadata()
	return p, nil
}

func (p *Publisher) Start() error {
	if !p.enabled {
		return nil
	}

	return p.fifoManager.Start()
}

func (p *Publisher) Stop() {
	if !p.enabled {
		return
	}

	p.fifoManager.Stop()
}

// UpdateSong replaces the metadata with a new song that starts playing.
func (p *Publisher) UpdateSong(song Song) {
	if !p.enabled {
		return
	}

	p.mutex.Lock()
	*p.metadata = TrackMetadata{
		File:      song.File,
		Format:    song.Format,
		Title:     song.Tags["title"],
		Game:      song.Tags["game"],
		System:    song.Tags["system"],
		Artist:    song.Tags["artist"],
		Date:      song.Tags["date"],
		Duration:  song.Duration.Milliseconds(),
		Looped:    song.Looped,
		MaxLoops:  song.MaxLoops,
		Playing:   true,
		Timestamp: time.Now(),
	}
	p.mutex.Unlock()

	p.writeMetadata()
}

func (p *Publisher) UpdatePosition(position time.Duration) {
	if !p.enabled {
		return
	}

	p.mutex.Lock()
	p.metadata.UpdatePosition(position.Milliseconds())
	p.mutex.Unlock()

	p.writeMetadata()
}

func (p *Publisher) UpdatePlayingState(playing bool) {
	if !p.enabled {
		return
	}

	p.mutex.Lock()
	p.metadata.UpdatePlayingState(playing)
	p.mutex.Unlock()

	p.writeMetadata()
}

// Current returns a copy of the current metadata, nil if disabled.
func (p *Publisher) Current() *TrackMetadata {
	if !p.enabled {
		return nil
	}

	p.mutex.RLock()
	defer p.mutex.RUnlock()

	metadataCopy := *p.metadata
	return &metadataCopy
}

func (p *Publisher) writeMetadata() {
	p.mutex.RLock()
	metadataCopy := *p.metadata
	p.mutex.RUnlock()

	p.fifoManager.WriteMetadata(&metadataCopy)
}
