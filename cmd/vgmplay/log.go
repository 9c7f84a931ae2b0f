package main

import (
	"os"

	vgmplay "github.com/devgianlu/go-vgmplay"
	"github.com/sirupsen/logrus"
)

type LogrusAdapter struct {
	Log *logrus.Entry
}

// newLogger logs to stderr, stdout may be carrying PCM.
func newLogger(level string) (LogrusAdapter, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return LogrusAdapter{}, err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return LogrusAdapter{logrus.NewEntry(log)}, nil
}

func (l LogrusAdapter) Tracef(format string, args ...interface{}) { l.Log.Tracef(format, args...) }
func (l LogrusAdapter) Debugf(format string, args ...interface{}) { l.Log.Debugf(format, args...) }
func (l LogrusAdapter) Infof(format string, args ...interface{})  { l.Log.Infof(format, args...) }
func (l LogrusAdapter) Warnf(format string, args ...interface{})  { l.Log.Warnf(format, args...) }
func (l LogrusAdapter) Errorf(format string, args ...interface{}) { l.Log.Errorf(format, args...) }

func (l LogrusAdapter) Trace(args ...interface{}) { l.Log.Trace(args...) }
func (l LogrusAdapter) Debug(args ...interface{}) { l.Log.Debug(args...) }
func (l LogrusAdapter) Info(args ...interface{})  { l.Log.Info(args...) }
func (l LogrusAdapter) Warn(args ...interface{})  { l.Log.Warn(args...) }
func (l LogrusAdapter) Error(args ...interface{}) { l.Log.Error(args...) }

func (l LogrusAdapter) WithField(key string, value interface{}) vgmplay.Logger {
	return LogrusAdapter{l.Log.WithField(key, value)}
}

func (l LogrusAdapter) WithError(err error) vgmplay.Logger {
	return LogrusAdapter{l.Log.WithError(err)}
}
