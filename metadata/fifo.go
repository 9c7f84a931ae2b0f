package metadata

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"golang.org/x/sys/unix"
)

const (
	FormatJSON = "json"
	FormatXML  = "xml"
)

// FIFOManager publishes metadata to a named pipe. Writes are queued and dropped
// when nobody is reading.
type FIFOManager struct {
	log        vgmplay.Logger
	path       string
	format     string
	bufferSize int

	pipe    *os.File
	mutex   sync.RWMutex
	closed  bool
	buffer  chan []byte
	stopCh  chan struct{}
	stopped chan struct{}

	writeCount atomic.Int64
	errorCount atomic.Int64
	dropCount  atomic.Int64
}

func NewFIFOManager(log vgmplay.Logger, path, format string, bufferSize int) (*FIFOManager, error) {
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatXML:
	default:
		return nil, fmt.Errorf("%w: unknown metadata format: %s", vgmplay.ErrConfig, format)
	}

	return &FIFOManager{
		log:        log,
		path:       path,
		format:     format,
		bufferSize: bufferSize,
		buffer:     make(chan []byte, max(bufferSize, 1)),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}, nil
}

// Start creates the named pipe and starts the writer goroutine.
func (fm *FIFOManager) Start() error {
	if err := fm.createFIFO(); err != nil {
		return fmt.Errorf("failed to create FIFO: %w", err)
	}

	fm.log.WithField("path", fm.path).WithField("format", fm.format).
		Infof("metadata FIFO started")

	go fm.writerLoop()

	return nil
}

// Stop stops the writer goroutine and removes the named pipe.
func (fm *FIFOManager) Stop() {
	fm.mutex.Lock()
	if fm.closed {
		fm.mutex.Unlock()
		return
	}

	fm.closed = true
	close(fm.stopCh)
	fm.mutex.Unlock()

	<-fm.stopped

	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	if fm.pipe != nil {
		_ = fm.pipe.Close()
		fm.pipe = nil
	}

	_ = os.Remove(fm.path)

	fm.log.WithField("writes", fm.writeCount.Load()).
		WithField("errors", fm.errorCount.Load()).
		WithField("drops", fm.dropCount.Load()).
		Infof("metadata FIFO stopped")
}

func (fm *FIFOManager) encode(metadata *TrackMetadata) []byte {
	switch fm.format {
	case FormatXML:
		return metadata.ToXMLFormat()
	default:
		return metadata.ToJSONFormat()
	}
}

// WriteMetadata queues metadata for the pipe.
func (fm *FIFOManager) WriteMetadata(metadata *TrackMetadata) {
	fm.mutex.RLock()
	closed := fm.closed
	fm.mutex.RUnlock()

	if closed {
		return
	}

	select {
	case fm.buffer <- fm.encode(metadata):
	case <-time.After(50 * time.Millisecond):
		fm.dropCount.Add(1)
	}
}

func (fm *FIFOManager) createFIFO() error {
	_ = os.Remove(fm.path)

	if err := unix.Mkfifo(fm.path, 0o666); err != nil {
		return fmt.Errorf("mkfifo failed: %w", err)
	}

	return nil
}

// openFIFO opens the FIFO for writing, it fails with ENXIO while there is no reader.
func (fm *FIFOManager) openFIFO() error {
	pipe, err := os.OpenFile(fm.path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("failed to open FIFO: %w", err)
	}

	fm.pipe = pipe
	return nil
}

func (fm *FIFOManager) writerLoop() {
	defer close(fm.stopped)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case data := <-fm.buffer:
			if err := fm.writeToFIFO(data); err != nil {
				// only log occasionally, there is usually no reader
				if n := fm.errorCount.Add(1); n%50 == 1 && !errors.Is(err, unix.ENXIO) {
					fm.log.WithError(err).Debugf("error writing to metadata FIFO")
				}
			} else {
				fm.writeCount.Add(1)
			}
		case <-ticker.C:
			fm.checkFIFOConnection()
		case <-fm.stopCh:
			return
		}
	}
}

// writeToFIFO writes data to the FIFO, reopening it after errors.
func (fm *FIFOManager) writeToFIFO(data []byte) error {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	if fm.pipe == nil {
		if err := fm.openFIFO(); err != nil {
			return err
		}
	}

	if _, err := fm.pipe.Write(data); err != nil {
		_ = fm.pipe.Close()
		fm.pipe = nil
		return err
	}

	return nil
}

func (fm *FIFOManager) checkFIFOConnection() {
	fm.mutex.Lock()
	defer fm.mutex.Unlock()

	if fm.pipe == nil {
		return
	}

	if _, err := fm.pipe.Write([]byte{}); err != nil {
		_ = fm.pipe.Close()
		fm.pipe = nil
	}
}
