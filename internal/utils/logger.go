package utils

import (
	"io" // Writer composition
	"os" // Stdout

	"github.com/sirupsen/logrus"       // Logrus for structured logging
	"gopkg.in/natefinch/lumberjack.v2" // Rotating log files
)

// LogOptions controls the process-wide logger
type LogOptions struct {
	Level      string // debug, info, warn, error
	File       string // Optional log file, rotated by size
	MaxSizeMB  int    // Rotate after this many megabytes
	MaxBackups int    // Rotated files to keep
	MaxAgeDays int    // Days to keep rotated files
}

// SetupLogger configures the standard logrus logger and returns the file writer to close, if any
func SetupLogger(opts LogOptions) io.Closer {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true}) // Timestamped text lines
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel // Unknown level falls back to info
	}
	logrus.SetLevel(level)
	if opts.File == "" {
		logrus.SetOutput(os.Stdout) // Console only
		return nil
	}
	file := &lumberjack.Logger{
		Filename:   opts.File,       // Log file path
		MaxSize:    opts.MaxSizeMB,  // Megabytes
		MaxBackups: opts.MaxBackups, // Old files kept
		MaxAge:     opts.MaxAgeDays, // Days kept
		Compress:   true,            // Gzip rotated files
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, file)) // Console and file
	return file
}
