package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LOG_BUFFER_SIZE = 1000

var (
	ErrLogNotInitialized         = errors.New("log object is not initialized yet")
	ErrLoggingAlreadyInitialized = errors.New("logging is already initialized for this process")
	LOG_FOLDER_NAME_WITH_PATH    = ".." + string(os.PathSeparator) + "log"
)

const (
	LOG_LEVEL_ERROR = iota + 1
	LOG_LEVEL_WARN
	LOG_LEVEL_INFO
	LOG_LEVEL_DEBUG
)

// LogConfig describes the process-wide log sink. An empty File logs to
// stderr only.
type LogConfig struct {
	Level   int
	Format  string // "console" or "json"
	Dir     string
	File    string
	Rewrite bool
	Console bool
}

// MetricsLogger is a named handle on the process-wide sink. The zero value is
// usable and drops every event with ErrLogNotInitialized.
type MetricsLogger struct {
	name string
}

type LeveledLogger struct {
	level  int
	name   string
	logMsg string
}

type logSink struct {
	logBuffer chan LeveledLogger
	handle    *os.File
	wg        sync.WaitGroup
	zapLogger *zap.Logger
	level     int
}

var (
	sinkMu     sync.RWMutex
	activeSink *logSink

	registryMu sync.Mutex
	registry   = map[string]*MetricsLogger{}
)

// InitLogging sets up the sink once per process. Calling it again before
// ShutdownLogging returns ErrLoggingAlreadyInitialized and keeps the existing
// sink untouched.
func InitLogging(cfg LogConfig) error {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	if activeSink != nil {
		return ErrLoggingAlreadyInitialized
	}

	if cfg.Level < LOG_LEVEL_ERROR || cfg.Level > LOG_LEVEL_DEBUG {
		cfg.Level = LOG_LEVEL_INFO
	}

	s := &logSink{
		logBuffer: make(chan LeveledLogger, LOG_BUFFER_SIZE),
		level:     cfg.Level,
	}

	if cfg.File != "" {
		dir := cfg.Dir
		if dir == "" {
			dir = LOG_FOLDER_NAME_WITH_PATH
		}
		CheckAndCreateLogFolder(dir)

		flags := os.O_RDWR | os.O_CREATE | os.O_APPEND
		if cfg.Rewrite {
			flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
		}
		handle, err := os.OpenFile(filepath.Join(dir, cfg.File), flags, 0666)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		s.handle = handle
	}

	s.zapLogger = newZapLogger(cfg, s.handle)

	s.wg.Add(1)
	go s.logWritter()

	activeSink = s
	return nil
}

func newZapLogger(cfg LogConfig, handle *os.File) *zap.Logger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		encoder = zapcore.NewJSONEncoder(config)
	} else {
		encoder = zapcore.NewConsoleEncoder(config)
	}

	level := zapLevel(cfg.Level)
	var cores []zapcore.Core
	if handle != nil {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(handle), level))
	}
	if handle == nil || cfg.Console {
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.Lock(os.Stderr), level))
	}
	return zap.New(zapcore.NewTee(cores...))
}

func zapLevel(level int) zapcore.Level {
	switch level {
	case LOG_LEVEL_ERROR:
		return zapcore.ErrorLevel
	case LOG_LEVEL_WARN:
		return zapcore.WarnLevel
	case LOG_LEVEL_DEBUG:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLogLevel maps a level name to a LOG_LEVEL_* constant. Unknown names
// yield LOG_LEVEL_INFO.
func ParseLogLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LOG_LEVEL_ERROR
	case "warn", "warning":
		return LOG_LEVEL_WARN
	case "debug":
		return LOG_LEVEL_DEBUG
	default:
		return LOG_LEVEL_INFO
	}
}

func (s *logSink) logWritter() {
	defer s.wg.Done()
	for logdata := range s.logBuffer {
		logger := s.zapLogger
		if logdata.name != "" {
			logger = logger.Named(logdata.name)
		}
		switch logdata.level {
		case LOG_LEVEL_ERROR:
			logger.Error(logdata.logMsg)
		case LOG_LEVEL_WARN:
			logger.Warn(logdata.logMsg)
		case LOG_LEVEL_DEBUG:
			logger.Debug(logdata.logMsg)
		default:
			logger.Info(logdata.logMsg)
		}
	}
}

// ShutdownLogging drains buffered events, flushes and closes the sink. After
// it returns InitLogging may be called again.
func ShutdownLogging() {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	if activeSink == nil {
		return
	}
	close(activeSink.logBuffer)
	activeSink.wg.Wait()
	_ = activeSink.zapLogger.Sync()
	if activeSink.handle != nil {
		activeSink.handle.Close()
	}
	activeSink = nil
}

// GetLogger returns the logger registered under name, creating it on first
// use. It may be called before InitLogging, but events logged while no sink
// exists are dropped and LogEvent returns ErrLogNotInitialized.
func GetLogger(name string) *MetricsLogger {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l, ok := registry[name]; ok {
		return l
	}
	l := &MetricsLogger{name: name}
	registry[name] = l
	return l
}

func (m *MetricsLogger) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

// LogEvent takes an optional leading LOG_LEVEL_* followed by message parts.
// A single argument is logged at info level.
func (m *MetricsLogger) LogEvent(v ...interface{}) error {
	var msg string
	var level int
	var ok bool

	if len(v) == 1 {
		level = LOG_LEVEL_INFO
		msg = fmt.Sprint(v[0])

	} else if len(v) > 1 {
		level, ok = v[0].(int)
		if ok && level >= LOG_LEVEL_ERROR && level <= LOG_LEVEL_DEBUG {
			msg = fmt.Sprintf("%v", v[1:])
		} else {
			level = LOG_LEVEL_INFO
			msg = fmt.Sprintf("%v", v)
		}
		msg = msg[1 : len(msg)-1]
	}

	if m == nil {
		return ErrLogNotInitialized
	}

	sinkMu.RLock()
	defer sinkMu.RUnlock()

	if activeSink == nil {
		return ErrLogNotInitialized
	}
	if level > activeSink.level {
		return nil
	}
	activeSink.logBuffer <- LeveledLogger{level: level, name: m.name, logMsg: msg}
	return nil
}

func CheckAndCreateLogFolder(FolderNameWithPath string) {
	_, err := os.Stat(FolderNameWithPath)

	if os.IsNotExist(err) {
		err := os.MkdirAll(FolderNameWithPath, 0755)
		if err != nil {
			fmt.Println("Failed to create the log folder and Mkdir err :: ", err)
		}
	}
}
