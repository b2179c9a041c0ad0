package logger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// BackendLog is the logging backend used to create all subsystem loggers.
var BackendLog = NewBackend()

// SubsystemTags is an enum of all subsystem tags.
var SubsystemTags = struct {
	VSND,
	CHAN,
	SYNC,
	PEER,
	SRVR,
	MINR,
	MEMP,
	VSDB,
	POWR,
	CNFG string
}{
	VSND: "VSND",
	CHAN: "CHAN",
	SYNC: "SYNC",
	PEER: "PEER",
	SRVR: "SRVR",
	MINR: "MINR",
	MEMP: "MEMP",
	VSDB: "VSDB",
	POWR: "POWR",
	CNFG: "CNFG",
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]*Logger{
	SubsystemTags.VSND: BackendLog.Logger(SubsystemTags.VSND),
	SubsystemTags.CHAN: BackendLog.Logger(SubsystemTags.CHAN),
	SubsystemTags.SYNC: BackendLog.Logger(SubsystemTags.SYNC),
	SubsystemTags.PEER: BackendLog.Logger(SubsystemTags.PEER),
	SubsystemTags.SRVR: BackendLog.Logger(SubsystemTags.SRVR),
	SubsystemTags.MINR: BackendLog.Logger(SubsystemTags.MINR),
	SubsystemTags.MEMP: BackendLog.Logger(SubsystemTags.MEMP),
	SubsystemTags.VSDB: BackendLog.Logger(SubsystemTags.VSDB),
	SubsystemTags.POWR: BackendLog.Logger(SubsystemTags.POWR),
	SubsystemTags.CNFG: BackendLog.Logger(SubsystemTags.CNFG),
}

// Get returns a logger of a specific sub system
func Get(tag string) (logger *Logger, ok bool) {
	logger, ok = subsystemLoggers[tag]
	return
}

// InitLog attaches log file and error log file to the backend log.
func InitLog(logFile, errLogFile string) {
	err := BackendLog.AddLogFile(logFile, LevelTrace)
	if err != nil {
		fmt.Printf("Error adding log file %s as log rotator for level %s: %s", logFile, LevelTrace, err)
	}
	err = BackendLog.AddLogFile(errLogFile, LevelWarn)
	if err != nil {
		fmt.Printf("Error adding log file %s as log rotator for level %s: %s", errLogFile, LevelWarn, err)
	}
}

// SetLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored. Uninitialized subsystems are dynamically created as
// needed.
func SetLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level. It also dynamically creates the subsystem loggers as needed, so it
// can be used to initialize the logging system.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// ValidLogLevel returns whether or not logLevel is a valid debug log level.
func ValidLogLevel(logLevel string) bool {
	_, ok := LevelFromString(logLevel)
	return ok
}

// ParseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func ParseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !ValidLogLevel(debugLevel) {
			return errors.Errorf("the specified debug level [%s] is invalid", debugLevel)
		}

		// Change the logging level for all subsystems.
		SetLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return errors.Errorf("the specified debug level contains an invalid subsystem/level pair [%s]", logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			return errors.Errorf("the specified subsystem [%s] is invalid -- supported subsystems %s",
				subsysID, strings.Join(SupportedSubsystems(), ", "))
		}

		// Validate log level.
		if !ValidLogLevel(logLevel) {
			return errors.Errorf("the specified debug level [%s] is invalid", logLevel)
		}

		SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// LogAndMeasureExecutionTime logs that the given function has started and
// returns a callback that logs how long it took.
func LogAndMeasureExecutionTime(log *Logger, functionName string) (onEnd func()) {
	return logAndMeasure(log, functionName)
}
