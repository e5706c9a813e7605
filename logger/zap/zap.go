// Package zap adapts go.uber.org/zap to the types.Logger contract and
// builds the small set of subsystem loggers this core owns (kernel,
// entity, storage, signal, hook, zone, perm, deferred) plus the casbin/gorm
// logger adapters perm needs.
//
// Grounded on forbearing-gst's logger/zap package, trimmed of the
// gin-access-log, and ~20 infra-specific loggers (kafka/ldap/mongo/...)
// this core has no use for -- see DESIGN.md.
package zap

import (
	"os"
	"path/filepath"
	"strings"

	casbinl "github.com/casbin/casbin/v2/log"
	"github.com/forbearing/admincore/config"
	"github.com/forbearing/admincore/logger"
	"github.com/forbearing/admincore/types"
	"github.com/forbearing/admincore/types/consts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logFile       string
	logLevel      string
	logFormat     string
	logMaxAge     int
	logMaxSize    int
	logMaxBackups int
)

// Option configures encoder behavior for constructors.
type Option struct {
	DisableMsg   bool
	DisableLevel bool
	TSLayout     string
}

// Init initializes global loggers from config and wires every
// subsystem logger var in the logger package.
func Init() error {
	readConf()
	zap.ReplaceGlobals(zap.New(
		zapcore.NewCore(newLogEncoder(), newLogWriter(), newLogLevel()),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.FatalLevel),
	))

	logger.Kernel = New("kernel.log")
	logger.Entity = New("entity.log")
	logger.Storage = New("storage.log")
	logger.Signal = New("signal.log")
	logger.Hook = New("hook.log")
	logger.Zone = New("zone.log")
	logger.Perm = New("perm.log")
	logger.Deferred = New("deferred.log")

	logger.Gorm = NewGorm("gorm.log")
	logger.Casbin = NewCasbin("casbin.log")

	return nil
}

func Clean() {
	_ = zap.L().Sync()
	logs := []types.Logger{
		logger.Kernel, logger.Entity, logger.Storage, logger.Signal,
		logger.Hook, logger.Zone, logger.Perm, logger.Deferred,
	}
	for _, l := range logs {
		if zl, ok := l.(*Logger); ok {
			_ = zl.zlog.Sync()
		}
	}
	if gl, ok := logger.Gorm.(*GormLogger); ok {
		if zl, ok := gl.l.(*Logger); ok {
			_ = zl.zlog.Sync()
		}
	}
	if cl, ok := logger.Casbin.(*CasbinLogger); ok {
		if zl, ok := cl.l.(*Logger); ok {
			_ = zl.zlog.Sync()
		}
	}
}

// New builds a types.Logger backed by *zap.Logger.
func New(filename string, opts ...Option) *Logger {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	l := zap.New(
		zapcore.NewCore(newLogEncoder(opts...), newLogWriter(opts...), newLogLevel(opts...)),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.FatalLevel),
	)
	return &Logger{zlog: l}
}

// NewGorm builds a gorm logger.Interface, used by perm's casbin
// gorm-adapter sqlite connection.
func NewGorm(filename string) *GormLogger {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	l := zap.New(
		zapcore.NewCore(newLogEncoder(), newLogWriter(), newLogLevel()),
		zap.AddCaller(),
		zap.AddCallerSkip(5),
		zap.AddStacktrace(zapcore.FatalLevel),
	)
	return &GormLogger{l: &Logger{zlog: l}}
}

// NewCasbin builds a casbin Logger (no caller field).
func NewCasbin(filename string) *CasbinLogger {
	readConf()
	if len(filename) > 0 {
		logFile = filename
	}
	l := zap.New(
		zapcore.NewCore(newLogEncoder(Option{DisableMsg: true}), newLogWriter(), newLogLevel()),
		zap.AddStacktrace(zapcore.FatalLevel),
	)
	return &CasbinLogger{l: &Logger{zlog: l}}
}

func newLogWriter(_ ...Option) zapcore.WriteSyncer {
	switch strings.TrimSpace(logFile) {
	case "/dev/stdout", "":
		return zapcore.AddSync(os.Stdout)
	case "/dev/stderr":
		return zapcore.AddSync(os.Stderr)
	default:
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(config.App.Dir, logFile),
			MaxAge:     logMaxAge,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackups,
			LocalTime:  true,
		})
	}
}

func newLogLevel(_ ...Option) zapcore.Level {
	if len(logLevel) == 0 {
		return zapcore.InfoLevel
	}
	level := new(zapcore.Level)
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return zapcore.InfoLevel
	}
	return *level
}

func newLogEncoder(opt ...Option) zapcore.Encoder {
	encConfig := zap.NewProductionEncoderConfig()
	encConfig.EncodeTime = zapcore.TimeEncoderOfLayout(consts.LayoutTimeEncoder)
	encConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if len(opt) > 0 {
		o := opt[0]
		if o.DisableMsg {
			encConfig.MessageKey = ""
		}
		if o.DisableLevel {
			encConfig.LevelKey = ""
		}
		if len(o.TSLayout) > 0 {
			encConfig.EncodeTime = zapcore.TimeEncoderOfLayout(o.TSLayout)
		}
	}
	switch strings.ToLower(logFormat) {
	case "text", "console":
		return zapcore.NewConsoleEncoder(encConfig)
	default:
		return zapcore.NewJSONEncoder(encConfig)
	}
}

func readConf() {
	logFile = config.App.Logger.File
	logLevel = config.App.Logger.Level
	logFormat = config.App.Logger.Format
	logMaxAge = config.App.Logger.MaxAge
	logMaxSize = config.App.Logger.MaxSize
	logMaxBackups = config.App.Logger.MaxBackups
}

var _ casbinl.Logger = (*CasbinLogger)(nil)
