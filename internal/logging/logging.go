package logging

import (
	"io"
	"os"

	"github.com/baditaflorin/l"
)

// Logger is the structured logger interface used by copyedit packages.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Close() error
}

// Options configures New.
type Options struct {
	Verbose bool
	JSON    bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// stdLogger adapts an l.Logger to Logger.
type stdLogger struct {
	logger l.Logger
}

// New returns a logger for opts. Without Verbose it returns Nop().
func New(opts Options) (Logger, error) {
	if !opts.Verbose {
		return Nop(), nil
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger, err := l.NewStandardFactory().CreateLogger(l.Config{
		Output:      out,
		JsonFormat:  opts.JSON,
		AsyncWrite:  false,
		BufferSize:  64 * 1024,
		MaxFileSize: 10 * 1024 * 1024,
		MaxBackups:  1,
		AddSource:   false,
		Metrics:     false,
	})
	if err != nil {
		return nil, err
	}
	return &stdLogger{logger: logger}, nil
}

func (s *stdLogger) Debug(msg string, keysAndValues ...interface{}) {
	s.logger.Debug(msg, keysAndValues...)
}

func (s *stdLogger) Info(msg string, keysAndValues ...interface{}) {
	s.logger.Info(msg, keysAndValues...)
}

func (s *stdLogger) Warn(msg string, keysAndValues ...interface{}) {
	s.logger.Warn(msg, keysAndValues...)
}

func (s *stdLogger) Error(msg string, keysAndValues ...interface{}) {
	s.logger.Error(msg, keysAndValues...)
}

func (s *stdLogger) Close() error {
	return s.logger.Close()
}

type nopLogger struct{}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Close() error                 { return nil }
