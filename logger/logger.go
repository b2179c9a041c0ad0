package logger

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"
)

// Logger is a subsystem logger for a Backend.
type Logger struct {
	lvl       Level // atomic
	tag       string
	b         *Backend
	writeChan chan logEntry
}

// Trace formats message using the default formats for its operands and writes
// to log with LevelTrace.
func (l *Logger) Trace(args ...interface{}) {
	l.print(LevelTrace, args...)
}

// Tracef formats message according to format specifier and writes to
// log with LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.printf(LevelTrace, format, args...)
}

// Debug formats message using the default formats for its operands and writes
// to log with LevelDebug.
func (l *Logger) Debug(args ...interface{}) {
	l.print(LevelDebug, args...)
}

// Debugf formats message according to format specifier and writes to
// log with LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.printf(LevelDebug, format, args...)
}

// Info formats message using the default formats for its operands and writes
// to log with LevelInfo.
func (l *Logger) Info(args ...interface{}) {
	l.print(LevelInfo, args...)
}

// Infof formats message according to format specifier and writes to
// log with LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.printf(LevelInfo, format, args...)
}

// Warn formats message using the default formats for its operands and writes
// to log with LevelWarn.
func (l *Logger) Warn(args ...interface{}) {
	l.print(LevelWarn, args...)
}

// Warnf formats message according to format specifier and writes to
// log with LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.printf(LevelWarn, format, args...)
}

// Error formats message using the default formats for its operands and writes
// to log with LevelError.
func (l *Logger) Error(args ...interface{}) {
	l.print(LevelError, args...)
}

// Errorf formats message according to format specifier and writes to
// log with LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.printf(LevelError, format, args...)
}

// Critical formats message using the default formats for its operands and
// writes to log with LevelCritical.
func (l *Logger) Critical(args ...interface{}) {
	l.print(LevelCritical, args...)
}

// Criticalf formats message according to format specifier and writes to
// log with LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.printf(LevelCritical, format, args...)
}

// Backend returns the backend this logger writes to.
func (l *Logger) Backend() *Backend {
	return l.b
}

// Level returns the current logging level.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32((*uint32)(&l.lvl)))
}

// SetLevel changes the logging level to the passed level.
func (l *Logger) SetLevel(logLevel Level) {
	atomic.StoreUint32((*uint32)(&l.lvl), uint32(logLevel))
}

func (l *Logger) print(lvl Level, args ...interface{}) {
	if lvl < l.Level() {
		return
	}
	l.write(lvl, fmt.Sprint(args...))
}

func (l *Logger) printf(lvl Level, format string, args ...interface{}) {
	if lvl < l.Level() {
		return
	}
	l.write(lvl, fmt.Sprintf(format, args...))
}

// write formats the log entry with a timestamp, level tag and subsystem tag
// and forwards it to the backend write channel. When the backend isn't
// running (early startup, tests) entries fall through to stderr so nothing
// is silently lost.
func (l *Logger) write(lvl Level, msg string) {
	t := time.Now()

	var buf bytes.Buffer
	formatHeader(&buf, l.b.flag, t, lvl, l.tag)
	buf.WriteString(msg)
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		buf.WriteByte('\n')
	}

	if !l.b.IsRunning() {
		_, _ = os.Stderr.Write(buf.Bytes())
		return
	}
	l.writeChan <- logEntry{log: buf.Bytes(), level: lvl}
}

// formatHeader writes "2006-01-02 15:04:05.000 [INF] TAG: " to buf, plus the
// callsite when file flags are set.
func formatHeader(buf *bytes.Buffer, flag uint32, t time.Time, lvl Level, tag string) {
	buf.WriteString(t.Format("2006-01-02 15:04:05.000"))
	buf.WriteString(" [")
	buf.WriteString(lvl.String())
	buf.WriteString("] ")
	buf.WriteString(tag)

	if flag&(LogFlagShortFile|LogFlagLongFile) != 0 {
		file, line := callsite(flag)
		fmt.Fprintf(buf, " %s:%d", file, line)
	}

	buf.WriteString(": ")
}

// callsite returns the file name and line number of the callsite to the
// subsystem logger.
func callsite(flag uint32) (string, int) {
	_, file, line, ok := runtime.Caller(5)
	if !ok {
		return "???", 0
	}
	if flag&LogFlagShortFile != 0 {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if os.IsPathSeparator(file[i]) {
				short = file[i+1:]
				break
			}
		}
		file = short
	}
	return file, line
}
