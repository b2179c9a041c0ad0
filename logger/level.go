package logger

import "strings"

// Level is the severity threshold of a logger. Messages below the
// configured level are discarded.
type Level uint32

// Log levels, least to most severe. LevelOff silences a logger entirely.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

// levelTags are the three-letter tags that prefix every log line.
var levelTags = [...]string{"TRC", "DBG", "INF", "WRN", "ERR", "CRT", "OFF"}

// levelsByName maps both long and tag spellings to their level.
var levelsByName = map[string]Level{
	"trace": LevelTrace, "trc": LevelTrace,
	"debug": LevelDebug, "dbg": LevelDebug,
	"info": LevelInfo, "inf": LevelInfo,
	"warn": LevelWarn, "wrn": LevelWarn,
	"error": LevelError, "err": LevelError,
	"critical": LevelCritical, "crt": LevelCritical,
	"off": LevelOff,
}

// LevelFromString parses a level name, accepting either the long form or
// the three-letter tag, case insensitively. Unrecognized input yields
// LevelInfo and false.
func LevelFromString(s string) (Level, bool) {
	level, ok := levelsByName[strings.ToLower(s)]
	if !ok {
		return LevelInfo, false
	}
	return level, true
}

// String returns the tag for the level as it appears in log lines.
func (l Level) String() string {
	if l >= LevelOff {
		return "OFF"
	}
	return levelTags[l]
}
