// Package logutil sets up the logger of the command line tool.
package logutil

import (
	"os"

	"github.com/pingcap/errors"
	pclog "github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nihei9/gramc/grammar"
)

var (
	appLogger = zap.NewNop()
	appLevel  = zap.NewAtomicLevel()
)

// Config serializes log related config in toml.
type Config struct {
	// One of "debug", "info", "warn", "error", "dpanic", "panic", and "fatal".
	Level string `toml:"level"`
	// One of "text" and "json".
	Format           string `toml:"format"`
	DisableTimestamp bool   `toml:"disable-timestamp"`
	// Log filename, leave empty to log to stderr.
	File string `toml:"file"`
	// Max size for a single file, in MB.
	FileMaxSize    int `toml:"max-size"`
	FileMaxDays    int `toml:"max-days"`
	FileMaxBackups int `toml:"max-backups"`
}

func NewConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "text",
	}
}

// InitLogger replaces the global logger. Without a file, the logger writes to stderr and leaves stdout to
// the output of commands.
func InitLogger(cfg *Config) error {
	pcfg := &pclog.Config{
		Level:            cfg.Level,
		Format:           cfg.Format,
		DisableTimestamp: cfg.DisableTimestamp,
		File: pclog.FileLogConfig{
			Filename:   cfg.File,
			MaxSize:    cfg.FileMaxSize,
			MaxDays:    cfg.FileMaxDays,
			MaxBackups: cfg.FileMaxBackups,
		},
	}
	var logger *zap.Logger
	var props *pclog.ZapProperties
	var err error
	if cfg.File == "" {
		stderr := zapcore.Lock(os.Stderr)
		logger, props, err = pclog.InitLoggerWithWriteSyncer(pcfg, stderr, stderr)
	} else {
		logger, props, err = pclog.InitLogger(pcfg)
	}
	if err != nil {
		return errors.WithStack(err)
	}
	SetLogger(logger.WithOptions(zap.AddCallerSkip(1)))
	appLevel = props.Level
	return nil
}

func SetLogger(logger *zap.Logger) {
	appLogger = logger
}

func L() *zap.Logger {
	return appLogger
}

func ChangeLevel(level zapcore.Level) {
	appLevel.SetLevel(level)
}

func Info(msg string, fields ...zap.Field) {
	appLogger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	appLogger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	appLogger.Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	appLogger.Debug(msg, fields...)
}

func Sync() error {
	return appLogger.Sync()
}

// DiagnosticSink logs conflict diagnostics as warnings.
func DiagnosticSink(grammarName string) grammar.DiagnosticSink {
	return grammar.DiagnosticSinkFunc(func(d *grammar.Diagnostic) {
		fields := []zap.Field{
			zap.String("grammar", grammarName),
			zap.String("kind", string(d.Kind)),
			zap.Int("state", d.State),
			zap.String("terminal", d.TerminalName),
			zap.Ints("productions", d.Productions),
			zap.Stringer("decision", d.Decision),
			zap.String("resolved-by", string(d.ResolvedBy)),
		}
		if d.Kind == grammar.ConflictReduceReduce {
			fields = append(fields, zap.Int("adopted", d.Adopted))
		}
		appLogger.Warn(d.Message, fields...)
	})
}
