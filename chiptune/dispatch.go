package chiptune

import (
	"fmt"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/engine"
)

// PreloadBytes is the size of the header window the probes look at.
const PreloadBytes = 0x100

type format struct {
	name  string
	probe func(l *engine.FileLoader) bool
	new   func(log vgmplay.Logger) engine.Player
}

// formats lists the supported containers in probe order.
var formats = []format{
	{"VGM", engine.IsVGMFile, func(log vgmplay.Logger) engine.Player { return engine.NewVGMPlayer(log) }},
	{"S98", engine.IsS98File, func(log vgmplay.Logger) engine.Player { return engine.NewS98Player(log) }},
	{"DRO", engine.IsDROFile, func(log vgmplay.Logger) engine.Player { return engine.NewDROPlayer(log) }},
}

// Formats returns the names of the supported containers in probe order.
func Formats() []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.name
	}
	return names
}

// openPlayer selects the engine for data and loads it. On success the caller owns
// both the loader and the player, on failure nothing is left loaded.
func openPlayer(log vgmplay.Logger, data []byte) (*engine.FileLoader, engine.Player, error) {
	loader := engine.NewFileLoader(data)
	loader.SetPreloadBytes(PreloadBytes)
	if err := loader.Load(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", vgmplay.ErrFormat, err)
	}

	for _, f := range formats {
		if !f.probe(loader) {
			continue
		}

		log.Debugf("detected %s file", f.name)

		player := f.new(log)
		if err := player.LoadFile(loader); err != nil {
			loader.Unload()
			return nil, nil, fmt.Errorf("%w: failed loading %s file: %w", vgmplay.ErrFormat, f.name, err)
		}

		return loader, player, nil
	}

	loader.Unload()
	return nil, nil, fmt.Errorf("%w: not a supported chiptune file", vgmplay.ErrFormat)
}
