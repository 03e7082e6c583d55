package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 5
	defaultMaxAgeDays = 28
)

type LogBuild struct {
	writer     io.Writer
	path       string
	console    bool
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

type LogData struct {
	writer  io.Writer
	LogFile io.WriteCloser
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{
		maxSizeMB:  defaultMaxSizeMB,
		maxBackups: defaultMaxBackups,
		maxAgeDays: defaultMaxAgeDays,
	}
}

// FromPath writes to a rotating file at path instead of the writer.
func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// Console switches from JSON lines to zerolog's human-readable output.
func (build *LogBuild) Console(enabled bool) *LogBuild {
	build.console = enabled
	return build
}

// Rotation sets when the log file is rotated and how many old files are kept.
// Zero values keep the defaults.
func (build *LogBuild) Rotation(maxSizeMB, maxBackups, maxAgeDays int) *LogBuild {
	if maxSizeMB > 0 {
		build.maxSizeMB = maxSizeMB
	}
	if maxBackups > 0 {
		build.maxBackups = maxBackups
	}
	if maxAgeDays > 0 {
		build.maxAgeDays = maxAgeDays
	}
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = new(LogData)
	logData.writer = os.Stdout
	if build.writer != nil {
		logData.writer = build.writer
	}
	if build.path != "" {
		logData.LogFile = &lumberjack.Logger{
			Filename:   build.path,
			MaxSize:    build.maxSizeMB,
			MaxBackups: build.maxBackups,
			MaxAge:     build.maxAgeDays,
			Compress:   true,
		}
		logData.writer = zerolog.SyncWriter(logData.LogFile)
	}
	if build.console {
		logData.writer = zerolog.ConsoleWriter{Out: logData.writer, TimeFormat: time.RFC3339}
	}
	logData.Logger = zerolog.New(logData.writer).With().Timestamp().Logger()
	return
}

// Close closes the log file, if any.
func (logData *LogData) Close() error {
	if logData.LogFile == nil {
		return nil
	}
	return logData.LogFile.Close()
}

// ParseLevel maps a configured level name to a zerolog level. An empty name
// means info.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(name)
}
