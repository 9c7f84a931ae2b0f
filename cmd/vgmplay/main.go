package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"time"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/devgianlu/go-vgmplay/chiptune"
	"github.com/devgianlu/go-vgmplay/metadata"
	"github.com/devgianlu/go-vgmplay/output"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
)

type App struct {
	cfg  *Config
	log  vgmplay.Logger
	opts *chiptune.Options
}

func NewApp(cfg *Config, logger vgmplay.Logger) (*App, error) {
	app := &App{cfg: cfg, log: logger, opts: chiptune.NewOptions()}

	if err := app.opts.SetMaxLoopsString(cfg.MaxLoops); err != nil {
		return nil, err
	}

	return app, nil
}

// Info writes the information about every file to w.
func (app *App) Info(w io.Writer) {
	for _, path := range app.cfg.Files {
		dec, file, err := openDecoder(app.log, path, app.opts)
		if err != nil {
			app.log.WithError(err).Errorf("failed opening %s", path)
			continue
		}

		_, _ = fmt.Fprintf(w, "%s\n", path)
		_, _ = fmt.Fprintf(w, "  format:   %s\n", dec.Format())
		_, _ = fmt.Fprintf(w, "  duration: %s\n", time.Duration(dec.Duration()*float64(time.Second)).Round(time.Millisecond))
		_, _ = fmt.Fprintf(w, "  looped:   %t\n", dec.Looped())

		tags := dec.Tags()
		keys := make([]string, 0, len(tags))
		for key := range tags {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", key, tags[key])
		}

		dec.Close()
		_ = file.Close()
	}
}

// Play plays all files in order to the configured output until done or ctx is cancelled.
func (app *App) Play(ctx context.Context) error {
	publisher, err := metadata.NewPublisher(app.log, metadata.PipeConfig{
		Enabled:    app.cfg.MetadataPipe.Enabled,
		Path:       app.cfg.MetadataPipe.Path,
		Format:     app.cfg.MetadataPipe.Format,
		BufferSize: app.cfg.MetadataPipe.BufferSize,
	})
	if err != nil {
		return err
	}

	if err := publisher.Start(); err != nil {
		return err
	}
	defer publisher.Stop()

	songs := &playlist{
		log:       app.log,
		opts:      app.opts,
		publisher: publisher,
		files:     app.cfg.Files,
		seek:      app.cfg.Seek,
	}
	defer songs.Close()

	out, err := output.NewOutput(&output.NewOutputOptions{
		Log:           app.log,
		Reader:        songs,
		Pipe:          app.cfg.Output.Pipe,
		Format:        app.cfg.Output.Format,
		InitialVolume: app.cfg.Output.Volume,
		OpenTimeout:   time.Duration(app.cfg.Output.OpenTimeout) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	pauseCh := make(chan os.Signal, 1)
	signal.Notify(pauseCh, unix.SIGUSR1)
	defer signal.Stop(pauseCh)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	paused := false
	for {
		select {
		case <-ctx.Done():
			app.log.Debugf("playback interrupted")
			return nil
		case <-out.Done():
			app.log.Debugf("playback finished")
			return nil
		case err := <-out.Error():
			return fmt.Errorf("output failed: %w", err)
		case <-pauseCh:
			paused = !paused
			if paused {
				_ = out.Pause()
			} else {
				_ = out.Resume()
			}

			publisher.UpdatePlayingState(!paused)
		case <-ticker.C:
			publisher.UpdatePosition(time.Duration(songs.PositionMs()) * time.Millisecond)
		}
	}
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	} else if err != nil {
		log.WithError(err).Fatal("failed reading configuration")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatalf("invalid log level: %s", cfg.LogLevel)
	}

	logger.Debugf("running %s", vgmplay.SystemInfoString())

	app, err := NewApp(cfg, logger)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed creating app")
	}

	if cfg.Info {
		app.Info(os.Stdout)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	if err := app.Play(ctx); err != nil {
		logger.Log.WithError(err).Fatal("playback failed")
	}
}
