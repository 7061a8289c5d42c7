package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ekisa-team/voicescribe/internal/env"
)

const (
	defaultLogFile    = "logs/voicescribe.log"
	defaultMaxSizeMB  = 20
	defaultMaxBackups = 5
	defaultMaxAgeDays = 28
)

type options struct {
	logToFile bool
	logFile   string
	level     slog.Level
	out       io.Writer
}

// Option configures the logger.
type Option func(*options)

// WithLogToFile tees log output into a rotating file.
func WithLogToFile(enabled bool) Option {
	return func(o *options) {
		o.logToFile = enabled
	}
}

// WithLogFile sets the rotating log file path.
func WithLogFile(path string) Option {
	return func(o *options) {
		if path != "" {
			o.logFile = path
		}
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithOutput replaces stderr as the console writer.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// New builds a slog.Logger for the given environment.
// Development logs are colored with tint, production logs are JSON.
func New(environment env.Environment, opts ...Option) *slog.Logger {
	o := &options{
		logFile: defaultLogFile,
		level:   slog.LevelInfo,
		out:     os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	if environment.IsDevelopment() && o.level > slog.LevelDebug {
		o.level = slog.LevelDebug
	}

	var handler slog.Handler
	if environment.IsDevelopment() && !o.logToFile {
		handler = tint.NewHandler(o.out, &tint.Options{
			Level:      o.level,
			TimeFormat: time.TimeOnly,
		})
	} else {
		w := o.out
		if o.logToFile {
			w = io.MultiWriter(o.out, &lumberjack.Logger{
				Filename:   o.logFile,
				MaxSize:    defaultMaxSizeMB,
				MaxBackups: defaultMaxBackups,
				MaxAge:     defaultMaxAgeDays,
				Compress:   true,
			})
		}
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: o.level})
	}

	return slog.New(handler).With("service", "voicescribe")
}
