package main

import (
	"fmt"
	"os"

	"github.com/devgianlu/go-vgmplay/chiptune"
	"github.com/devgianlu/go-vgmplay/metadata"
	"github.com/devgianlu/go-vgmplay/output"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

type Config struct {
	ConfigPath string `koanf:"config"`

	LogLevel string  `koanf:"log_level"`
	MaxLoops string  `koanf:"max_loops"`
	Seek     float64 `koanf:"seek"`
	Info     bool    `koanf:"info"`

	Output struct {
		Pipe        string  `koanf:"pipe"`
		Format      string  `koanf:"format"`
		Volume      float32 `koanf:"volume"`
		OpenTimeout int     `koanf:"open_timeout_ms"`
	} `koanf:"output"`

	MetadataPipe struct {
		Enabled    bool   `koanf:"enabled"`
		Path       string `koanf:"path"`
		Format     string `koanf:"format"`
		BufferSize int    `koanf:"buffer_size"`
	} `koanf:"metadata_pipe"`

	Files []string `koanf:"-"`
}

var defaultConfig = map[string]interface{}{
	"log_level":                 "info",
	"max_loops":                 fmt.Sprint(chiptune.DefaultMaxLoops),
	"output.pipe":               output.StdoutPipe,
	"output.format":             "s16le",
	"output.volume":             1.0,
	"output.open_timeout_ms":    0,
	"metadata_pipe.enabled":     false,
	"metadata_pipe.path":        "/tmp/vgmplay-metadata",
	"metadata_pipe.format":      metadata.FormatJSON,
	"metadata_pipe.buffer_size": 100,
}

func newFlagSet() *pflag.FlagSet {
	f := pflag.NewFlagSet("vgmplay", pflag.ContinueOnError)
	f.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: vgmplay [flags] FILE...\n\n%s", f.FlagUsages())
	}

	f.String("config", "", "the configuration file to load")
	f.String("log_level", "info", "the log level (trace, debug, info, warn, error)")
	f.String("max_loops", fmt.Sprint(chiptune.DefaultMaxLoops), "how many times looped songs reach their loop point before fading out")
	f.Float64("seek", 0, "start position in seconds")
	f.Bool("info", false, "print song information and exit")
	f.String("output.pipe", output.StdoutPipe, "the named pipe or file to write PCM to, - for stdout")
	f.String("output.format", "s16le", "the PCM format (s16le, s32le, f32le)")
	f.Float32("output.volume", 1, "the output volume (0-1)")
	f.Int("output.open_timeout_ms", 0, "how long to wait for a reader on the output pipe, 0 waits forever")
	f.Bool("metadata_pipe.enabled", false, "publish song metadata to a named pipe")
	f.String("metadata_pipe.path", "/tmp/vgmplay-metadata", "the metadata named pipe path")
	f.String("metadata_pipe.format", metadata.FormatJSON, "the metadata format (json, xml)")
	return f
}

func loadConfig(args []string) (*Config, error) {
	f := newFlagSet()
	if err := f.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultConfig, "."), nil); err != nil {
		return nil, fmt.Errorf("failed loading default configuration: %w", err)
	}

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed reading configuration file: %w", err)
		}
	}

	// flags only override what is set if explicitly given
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed loading flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed unmarshalling configuration: %w", err)
	}

	cfg.Files = f.Args()
	if len(cfg.Files) == 0 {
		f.Usage()
		return nil, fmt.Errorf("no input files")
	}

	return &cfg, nil
}
