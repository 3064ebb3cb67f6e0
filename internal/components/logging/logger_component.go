// components/logging/logger_component.go
package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/grand-thief-cash/humble/internal/consts"
	"github.com/grand-thief-cash/humble/internal/core"
)

const (
	// 全局函数 + Logger 方法 + log
	callerSkip = 3
	// Destination(x).Info 直接调用，少一层
	destinationCallerSkip = 2

	destInteraction = consts.LOG_INTERACTION
	destException   = consts.LOG_EXCEPTION
	destClosed      = consts.LOG_CLOSED
)

// LoggerComponent 主日志 + 三个 destination 日志
type LoggerComponent struct {
	*core.BaseComponent
	Logger
	config       *LoggingConfig
	zapLogger    *zap.Logger
	destinations map[string]*zap.Logger
	writers      []*lumberjack.Logger
	files        []*os.File
}

// NewLoggerComponent 创建新的日志组件
func NewLoggerComponent(cfg *LoggingConfig) *LoggerComponent {
	return &LoggerComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_LOGGING),
		Logger:        &noopLogger{},
		config:        cfg,
	}
}

// Start 启动日志组件
func (lc *LoggerComponent) Start(ctx context.Context) error {
	level, err := parseLevel(lc.config.Level)
	if err != nil {
		return err
	}

	writeSyncer, err := lc.buildWriteSyncer()
	if err != nil {
		return fmt.Errorf("failed to create write syncer: %w", err)
	}

	lc.zapLogger = zap.New(
		zapcore.NewCore(lc.buildEncoder(), writeSyncer, level),
		zap.AddCaller(),
		zap.AddCallerSkip(callerSkip),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	lc.Logger = &ctxLogger{z: lc.zapLogger}

	if err := lc.openDestinations(level); err != nil {
		_ = lc.zapLogger.Sync()
		return err
	}

	lc.zapLogger.Info("logger component started",
		zap.String("level", lc.config.Level),
		zap.String("format", lc.config.Format),
		zap.String("output", lc.config.Output),
		zap.String("destinations_dir", lc.config.Destinations.Dir),
	)

	SetGlobalLogger(lc)
	setGlobalDestinations(lc.destinations)
	return lc.BaseComponent.Start(ctx)
}

// Stop 停止日志组件
func (lc *LoggerComponent) Stop(ctx context.Context) error {
	if lc.zapLogger != nil {
		Info(ctx, "logger component stopping")
		_ = lc.zapLogger.Sync()
	}
	for _, d := range lc.destinations {
		_ = d.Sync()
	}
	for _, w := range lc.writers {
		_ = w.Close()
	}
	for _, f := range lc.files {
		_ = f.Close()
	}
	lc.writers, lc.files = nil, nil
	setGlobalDestinations(nil)
	SetGlobalLogger(&noopLogger{})
	return lc.BaseComponent.Stop(ctx)
}

// HealthCheck 健康检查
func (lc *LoggerComponent) HealthCheck() error {
	if err := lc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if lc.zapLogger == nil {
		return fmt.Errorf("zap logger is not initialized")
	}
	return nil
}

// GetZapLogger 获取原始的zap.Logger
func (lc *LoggerComponent) GetZapLogger() *zap.Logger {
	return lc.zapLogger
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func (lc *LoggerComponent) buildEncoder() zapcore.Encoder {
	if strings.ToLower(lc.config.Format) == "json" {
		return zapcore.NewJSONEncoder(encoderConfig())
	}
	return zapcore.NewConsoleEncoder(encoderConfig())
}

func (lc *LoggerComponent) buildWriteSyncer() (zapcore.WriteSyncer, error) {
	switch strings.ToLower(lc.config.Output) {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	case "file":
		fc := lc.config.FileConfig
		if fc == nil {
			return nil, fmt.Errorf("file config is required when output is 'file'")
		}
		if err := os.MkdirAll(fc.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		w := &lumberjack.Logger{
			Filename:   filepath.Join(fc.Dir, fc.Filename+".log"),
			MaxSize:    fc.MaxSizeMB,
			MaxBackups: fc.MaxBackups,
			Compress:   fc.Compress,
			LocalTime:  true,
		}
		lc.writers = append(lc.writers, w)
		return zapcore.AddSync(w), nil
	default:
		// 其他值当作文件路径
		file, err := os.OpenFile(lc.config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return zapcore.AddSync(file), nil
	}
}

// openDestinations 每个 destination 一行一条，console 编码，便于按行数截断。
// 必须 O_APPEND：logrotate 截断后下一条日志要从文件开头写起。
func (lc *LoggerComponent) openDestinations(level zapcore.Level) error {
	d := lc.config.Destinations
	if d == nil {
		d = &DestinationsConfig{}
		lc.config.Destinations = d
	}
	SetDestinationDefaults(d)
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create destinations directory: %w", err)
	}

	ec := encoderConfig()
	ec.CallerKey = zapcore.OmitKey
	ec.StacktraceKey = zapcore.OmitKey

	lc.destinations = make(map[string]*zap.Logger, 3)
	for name, path := range d.Paths() {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open %s destination: %w", name, err)
		}
		lc.files = append(lc.files, f)
		lc.destinations[name] = zap.New(
			zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.AddSync(f), level),
			zap.AddCallerSkip(destinationCallerSkip),
		).Named(name)
	}
	return nil
}
