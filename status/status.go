// Leveled logging shared by all packages of the tool.

package status

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// LogLevel selects how much gets printed.

type LogLevel int

const (
	LogLevelInfo LogLevel = iota
	LogLevelWarning
	LogLevelError
	LogLevelCritical
)

// Implementations of this must be thread-safe.
type Logger interface {
	// Print only messages at level l or above
	SetLevel(l LogLevel)

	// Lower log level at least to l
	LowerLevelTo(l LogLevel)

	// Print on this stream, if installed
	SetStderr(w io.Writer)

	// Print on this underlying (simpler) logger, if installed - often syslog.
	SetUnderlying(w UnderlyingLogger)

	// Print at various levels.  None of these exit or panic, the name indicates the log level
	// only.
	Info(xs ...any)
	Infof(format string, args ...any)

	Warning(xs ...any)
	Warningf(format string, args ...any)

	Error(xs ...any)
	Errorf(format string, args ...any)

	Critical(xs ...any)
	Criticalf(format string, args ...any)
}

// The underlying logger has the simpler interface of log/syslog, which implements it.  An
// underlying logger must be thread-safe.
type UnderlyingLogger interface {
	Info(m string) error
	Warning(m string) error
	Err(m string) error
	Crit(m string) error
}

type StandardLogger struct {
	sync.Mutex
	level      LogLevel
	stderr     io.Writer
	underlying UnderlyingLogger
}

// MT: Constant after initialization, thread-safe.
var defaultLogger Logger = &StandardLogger{
	level:  LogLevelWarning,
	stderr: os.Stderr,
}

func Default() Logger {
	return defaultLogger
}

func (sl *StandardLogger) SetLevel(l LogLevel) {
	sl.Lock()
	defer sl.Unlock()

	sl.level = l
}

func (sl *StandardLogger) LowerLevelTo(l LogLevel) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level > l {
		sl.level = l
	}
}

func (sl *StandardLogger) SetStderr(stderr io.Writer) {
	sl.Lock()
	defer sl.Unlock()

	sl.stderr = stderr
}

func (sl *StandardLogger) SetUnderlying(underlying UnderlyingLogger) {
	sl.Lock()
	defer sl.Unlock()

	sl.underlying = underlying
}

func (sl *StandardLogger) emit(l LogLevel, s string) {
	if sl.stderr != nil {
		fmt.Fprintln(sl.stderr, s)
	}
	if sl.underlying != nil {
		switch l {
		case LogLevelInfo:
			sl.underlying.Info(s)
		case LogLevelWarning:
			sl.underlying.Warning(s)
		case LogLevelError:
			sl.underlying.Err(s)
		case LogLevelCritical:
			sl.underlying.Crit(s)
		}
	}
}

func (sl *StandardLogger) Info(xs ...any) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level <= LogLevelInfo {
		sl.emit(LogLevelInfo, fmt.Sprint(xs...))
	}
}

func (sl *StandardLogger) Infof(format string, args ...any) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level <= LogLevelInfo {
		sl.emit(LogLevelInfo, fmt.Sprintf(format, args...))
	}
}

func (sl *StandardLogger) Warning(xs ...any) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level <= LogLevelWarning {
		sl.emit(LogLevelWarning, fmt.Sprint(xs...))
	}
}

func (sl *StandardLogger) Warningf(format string, args ...any) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level <= LogLevelWarning {
		sl.emit(LogLevelWarning, fmt.Sprintf(format, args...))
	}
}

func (sl *StandardLogger) Error(xs ...any) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level <= LogLevelError {
		sl.emit(LogLevelError, fmt.Sprint(xs...))
	}
}

func (sl *StandardLogger) Errorf(format string, args ...any) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level <= LogLevelError {
		sl.emit(LogLevelError, fmt.Sprintf(format, args...))
	}
}

func (sl *StandardLogger) Critical(xs ...any) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level <= LogLevelCritical {
		sl.emit(LogLevelCritical, fmt.Sprint(xs...))
	}
}

func (sl *StandardLogger) Criticalf(format string, args ...any) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level <= LogLevelCritical {
		sl.emit(LogLevelCritical, fmt.Sprintf(format, args...))
	}
}

func Fatal(msg string) {
	defaultLogger.Critical(msg)
	os.Exit(1)
}

func Fatalf(format string, args ...any) {
	defaultLogger.Criticalf(format, args...)
	os.Exit(1)
}
