package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines the configuration options for the logger
type Config struct {
	// LogLevel sets the minimum enabled logging level. Valid levels are
	// "debug", "info", "warn", and "error".
	LogLevel string

	// LogFileSize is the maximum size in megabytes of the log file before it gets
	// rotated. It defaults to 10 megabytes.
	LogFileSize int

	// LogFileCount is the maximum number of old log files to retain.
	// The default is 5.
	LogFileCount uint8

	// LogCompress determines if the rotated log files should be compressed
	// using gzip. The default is false.
	LogCompress bool

	// LogColorize enables output with colors
	LogColorize bool

	// TimeFormat sets the format for timestamp in logs. Valid formats are
	// "rfc3339", "iso8601", etc. The default is RFC3339.
	TimeFormat string

	// LogToFileOnly disables logging to stdout.
	// If true, logs will only be written to the file and not also stdout.
	LogToFileOnly bool
}

const logfile = "./logs/subdex.log"

var (
	log        zerolog.Logger
	timeFormat = time.RFC3339Nano
)

// InitLogger initializes the global logger based on the provided Config.
// It sets the log level, output format, rotation options, etc.
func InitLogger(config Config) {
	if config.LogFileSize == 0 {
		config.LogFileSize = 10
	}
	if config.LogFileCount == 0 {
		config.LogFileCount = 5
	}
	switch config.TimeFormat {
	case "rfc3339", "":
		timeFormat = time.RFC3339Nano
	case "iso8601":
		timeFormat = "2006-01-02T15:04:05.000Z0700"
	case "rfc1123":
		timeFormat = time.RFC1123
	case "rfc822":
		timeFormat = time.RFC822
	default:
		timeFormat = config.TimeFormat
	}
	zerolog.TimeFieldFormat = timeFormat

	var dbug bool
	level := zerolog.InfoLevel
	if strings.EqualFold(config.LogLevel, StrDebug) {
		level = zerolog.DebugLevel
		dbug = true
	}
	if strings.EqualFold(config.LogLevel, "warning") {
		level = zerolog.WarnLevel
	}

	var writers []io.Writer
	if !config.LogToFileOnly {
		if config.LogColorize {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout})
		} else {
			writers = append(writers, os.Stdout)
		}
	}
	logctx := zerolog.New(zerolog.MultiLevelWriter(append(writers, &lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    config.LogFileSize, // megabytes
		MaxBackups: int(config.LogFileCount),
		MaxAge:     28,                 //days
		Compress:   config.LogCompress, // disabled by default
	})...)).Level(level).With().Timestamp()
	if dbug {
		log = logctx.Caller().Logger()
	} else {
		log = logctx.Logger()
	}
}

// LogDynamicany logs a message with dynamic fields. The 'typev' parameter
// specifies the log level (info, debug, error, fatal, warn). The 'msg'
// parameter is the log message. The 'fields' parameter is a variadic list of
// key-value pairs to be logged.
func LogDynamicany(typev string, msg string, fields ...any) {
	var logv *zerolog.Event
	switch typev {
	case "info":
		logv = log.Info()
	case StrDebug:
		logv = log.Debug()
	case "error":
		logv = log.Error()
	case "fatal":
		logv = log.Fatal()
	case "warn":
		logv = log.Warn()
	default:
		logv = log.Info()
	}
	logv.CallerSkipFrame(1)

	var n string
	for i := range fields {
		switch tt := fields[i].(type) {
		case string:
			if n == "" {
				n = tt
			} else {
				if tt != "" {
					logv.Str(n, tt)
				}
				n = ""
			}
		case int:
			if n != "" {
				logv.Int(n, tt)
				n = ""
			}
		case int64:
			if n != "" {
				logv.Int64(n, tt)
				n = ""
			}
		case uint:
			if n != "" {
				logv.Uint(n, tt)
				n = ""
			}
		case bool:
			if n != "" {
				logv.Bool(n, tt)
				n = ""
			}
		case time.Duration:
			if n != "" {
				logv.Str(n, tt.Round(time.Millisecond).String())
				n = ""
			}
		case error:
			logv.Err(tt)
			n = ""
		case []string:
			if n != "" {
				if len(tt) != 0 {
					logv.Strs(n, tt)
				}
				n = ""
			}
		default:
			if n != "" {
				logv.Any(n, tt)
				n = ""
			}
		}
	}
	logv.Msg(msg)
}

// GetLogger returns the global zerolog logger instance.
func GetLogger() *zerolog.Logger {
	return &log
}
