package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btclog/v2"
	"github.com/jrick/logrotate/rotator"
	"resolvecache/internal/cache"
	"resolvecache/internal/server"
	"resolvecache/internal/upstream"
)

// Subsystem is the logging code of the daemon itself.
const Subsystem = "RCCD"

// log is the daemon's logger. It is replaced once the log manager is set up.
var log = btclog.Disabled

// logManager owns the log writers and the per-subsystem loggers.
type logManager struct {
	writer     io.Writer
	rotator    *rotator.Rotator
	pipe       *io.PipeWriter
	subLoggers map[string]btclog.Logger
}

// newLogManager sets up console logging, plus a rotating log file under
// logDir unless logDir is empty, and hands a logger to every package.
func newLogManager(console io.Writer, logDir string, maxFiles,
	maxFileSizeMB int) (*logManager, error) {

	m := &logManager{
		writer:     console,
		subLoggers: make(map[string]btclog.Logger),
	}

	if logDir != "" {
		logFile := filepath.Join(logDir, defaultLogFilename)
		if err := m.initLogRotator(logFile, maxFiles,
			maxFileSizeMB); err != nil {

			return nil, err
		}

		m.writer = io.MultiWriter(console, m.pipe)
	}

	m.register(Subsystem, func(l btclog.Logger) { log = l })
	m.register(cache.Subsystem, cache.UseLogger)
	m.register(upstream.Subsystem, upstream.UseLogger)
	m.register(server.Subsystem, server.UseLogger)

	return m, nil
}

// initLogRotator starts a rotator writing to logFile and rolling files in the
// same directory.
func (m *logManager) initLogRotator(logFile string, maxFiles,
	maxFileSizeMB int) error {

	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	r, err := rotator.New(
		logFile, int64(maxFileSizeMB*1024), false, maxFiles,
	)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		if err := r.Run(pr); err != nil {
			_, _ = fmt.Fprintf(os.Stderr,
				"failed to run file rotator: %v\n", err)
		}
	}()

	m.rotator = r
	m.pipe = pw

	return nil
}

// register creates the logger for subsystem and passes it to use.
func (m *logManager) register(subsystem string, use func(btclog.Logger)) {
	handler := btclog.NewDefaultHandler(m.writer).SubSystem(subsystem)
	logger := btclog.NewSLogger(handler)

	m.subLoggers[subsystem] = logger
	use(logger)
}

// supportedSubsystems returns the sorted subsystem codes.
func (m *logManager) supportedSubsystems() []string {
	subsystems := make([]string, 0, len(m.subLoggers))
	for subsystem := range m.subLoggers {
		subsystems = append(subsystems, subsystem)
	}
	sort.Strings(subsystems)

	return subsystems
}

// setLogLevel sets the level of a single subsystem. Unknown subsystems are
// ignored.
func (m *logManager) setLogLevel(subsystem string, level btclog.Level) {
	if logger, ok := m.subLoggers[subsystem]; ok {
		logger.SetLevel(level)
	}
}

// setLogLevels sets every subsystem to level.
func (m *logManager) setLogLevels(level btclog.Level) {
	for subsystem := range m.subLoggers {
		m.setLogLevel(subsystem, level)
	}
}

// parseAndSetDebugLevels applies a debug level string of the form
// "<global-level>,<subsystem>=<level>,..." where the global part is
// optional.
func (m *logManager) parseAndSetDebugLevels(debugLevel string) error {
	levels := strings.Split(debugLevel, ",")

	// If the first entry has no =, treat it as the log level for all
	// subsystems.
	if globalLevel := levels[0]; !strings.Contains(globalLevel, "=") {
		level, ok := btclog.LevelFromString(globalLevel)
		if !ok {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", globalLevel)
		}

		m.setLogLevels(level)
		levels = levels[1:]
	}

	for _, pair := range levels {
		fields := strings.Split(pair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level has an "+
				"invalid format [%v] -- use format "+
				"subsystem1=level1,subsystem2=level2", pair)
		}
		subsystem, levelStr := fields[0], fields[1]

		if _, ok := m.subLoggers[subsystem]; !ok {
			return fmt.Errorf("the specified subsystem [%v] is "+
				"invalid -- supported subsystems are %v",
				subsystem, m.supportedSubsystems())
		}

		level, ok := btclog.LevelFromString(levelStr)
		if !ok {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", levelStr)
		}

		m.setLogLevel(subsystem, level)
	}

	return nil
}

// Close flushes and closes the log file, if any.
func (m *logManager) Close() error {
	if m.pipe == nil {
		return nil
	}

	if err := m.pipe.Close(); err != nil {
		return err
	}

	return m.rotator.Close()
}
