// Package logging holds the process-wide logger.
// Dot-import it to call L_info, L_warn and friends directly.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Options holds logging configuration.
type Options struct {
	Level      string
	TimeFormat string
	ShowCaller bool
	Output     io.Writer
}

var (
	mu     sync.Mutex
	logger *log.Logger
)

// DefaultOptions logs warnings and errors to stderr, so a failed run prints
// one diagnostic line unless the user asks for more.
func DefaultOptions() *Options {
	return &Options{
		Level:      "warn",
		TimeFormat: "15:04:05",
	}
}

// Init (re)configures the global logger.
func Init(cfg *Options) error {
	if cfg == nil {
		cfg = DefaultOptions()
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	l := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		ReportCaller:    cfg.ShowCaller,
		CallerOffset:    2, // logMsg -> L_* -> caller
		Prefix:          "hello-whisper",
	})
	l.SetLevel(level)

	mu.Lock()
	logger = l
	mu.Unlock()

	return nil
}

// ParseLevel maps a level name to a charmbracelet level. "trace" is accepted
// and treated as debug.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace", "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

func current() *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if logger == nil {
		l := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, TimeFormat: "15:04:05"})
		l.SetLevel(log.WarnLevel)
		logger = l
	}

	return logger
}

// hasFmtVerb reports whether s looks like a printf format string.
func hasFmtVerb(s string) bool {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '%' && s[i+1] != '%' && strings.ContainsRune("vsdtfgeopqxXbcUT+#", rune(s[i+1])) {
			return true
		}
	}

	return false
}

// logMsg accepts three shapes:
//
//	logMsg(level, "message")
//	logMsg(level, "value is %d", 42)
//	logMsg(level, "loaded", "key", val, ...)
func logMsg(level log.Level, msg string, args ...interface{}) {
	l := current()

	var keyvals []interface{}

	switch {
	case len(args) == 0:
	case hasFmtVerb(msg):
		msg = fmt.Sprintf(msg, args...)
	default:
		keyvals = args
	}

	switch level {
	case log.DebugLevel:
		l.Debug(msg, keyvals...)
	case log.InfoLevel:
		l.Info(msg, keyvals...)
	case log.WarnLevel:
		l.Warn(msg, keyvals...)
	case log.ErrorLevel:
		l.Error(msg, keyvals...)
	}
}

// L_trace logs at trace level (mapped to debug).
func L_trace(msg string, args ...interface{}) {
	logMsg(log.DebugLevel, msg, args...)
}

// L_debug logs at debug level.
func L_debug(msg string, args ...interface{}) {
	logMsg(log.DebugLevel, msg, args...)
}

// L_info logs at info level.
func L_info(msg string, args ...interface{}) {
	logMsg(log.InfoLevel, msg, args...)
}

// L_warn logs at warn level.
func L_warn(msg string, args ...interface{}) {
	logMsg(log.WarnLevel, msg, args...)
}

// L_error logs at error level.
func L_error(msg string, args ...interface{}) {
	logMsg(log.ErrorLevel, msg, args...)
}
