package logging

import (
	"net/http"
	"net/http/httputil"
)

// LogConfig contains configuration for building the service logger
type LogConfig struct {
	Level           LogLevel
	OutputFile      string
	EnableConsole   bool
	EnableDebug     bool
	RedactSensitive bool
	EnableColor     bool
	EnableTimestamp bool
	MaxFileSize     int64
}

// DefaultLogConfig returns the default logging configuration
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:           INFO,
		EnableConsole:   true,
		RedactSensitive: true,
		EnableColor:     true,
		EnableTimestamp: true,
		MaxFileSize:     100 * 1024 * 1024,
	}
}

// NewLogger builds a logger from the configuration. Depending on which
// outputs are enabled this returns a ConsoleLogger, FileLogger, MultiLogger
// or NoOpLogger.
func NewLogger(config LogConfig) (Logger, error) {
	var loggers []Logger

	if config.EnableConsole {
		loggers = append(loggers, NewConsoleLogger(ConsoleLoggerConfig{
			Level:            config.Level,
			ColorEnabled:     config.EnableColor,
			TimestampEnabled: config.EnableTimestamp,
			RedactSensitive:  config.RedactSensitive,
		}))
	}

	if config.OutputFile != "" {
		fileLogger, err := NewFileLogger(FileLoggerConfig{
			FilePath:      config.OutputFile,
			Level:         config.Level,
			MaxFileSize:   config.MaxFileSize,
			RotateEnabled: config.MaxFileSize > 0,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, fileLogger)
	}

	switch len(loggers) {
	case 0:
		return NewNoOpLogger(), nil
	case 1:
		return loggers[0], nil
	default:
		return NewMultiLogger(loggers...), nil
	}
}

// DebugTransport is an http.RoundTripper that logs requests and responses
// at DEBUG level. Bodies are not logged; headers pass through redaction.
type DebugTransport struct {
	Base   http.RoundTripper
	Logger Logger
}

// RoundTrip implements http.RoundTripper
func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if dump, err := httputil.DumpRequestOut(req, false); err == nil {
		t.Logger.Debug("HTTP request", F("dump", redactSensitiveData(string(dump))))
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		t.Logger.Debug("HTTP transport error", F("error", err.Error()))
		return resp, err
	}

	if dump, err := httputil.DumpResponse(resp, false); err == nil {
		t.Logger.Debug("HTTP response", F("dump", redactSensitiveData(string(dump))))
	}

	return resp, err
}

// NewDebugLoggerWithTransport builds a logger and, when debug is enabled, an
// HTTP transport that traces outbound API calls through it.
func NewDebugLoggerWithTransport(config LogConfig) (Logger, *DebugTransport, error) {
	logger, err := NewLogger(config)
	if err != nil {
		return nil, nil, err
	}

	if !config.EnableDebug {
		return logger, nil, nil
	}

	return logger, &DebugTransport{Logger: logger}, nil
}
