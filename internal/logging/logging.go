package logging

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string
	Format string
}

var (
	baseLogger *zap.Logger
	sugar      *zap.SugaredLogger
	instanceID atomic.Value
	sessionID  uint64
)

func init() {
	baseLogger = zap.NewNop()
	sugar = baseLogger.Sugar()
}

func InitFromEnv() error {
	cfg := Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}
	return Init(cfg)
}

func Init(cfg Config) error {
	level := strings.ToLower(strings.TrimSpace(cfg.Level))
	if level == "" {
		level = "info"
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "console"
	}

	var zapCfg zap.Config
	switch format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %s", cfg.Format)
	}

	atomLevel := zap.NewAtomicLevel()
	if err := atomLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %s", cfg.Level)
	}
	zapCfg.Level = atomLevel

	logger, err := zapCfg.Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	baseLogger = logger
	sugar = logger.Sugar()
	return nil
}

func Sync() {
	if baseLogger != nil {
		_ = baseLogger.Sync()
	}
}

// SetInstance 设置当前混音器实例标识，空值会被忽略
func SetInstance(id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	instanceID.Store(id)
}

func NewInstanceID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "instance-unknown"
	}
	return hex.EncodeToString(buf)
}

// SessionLogger 绑定到一次投递会话（Mixer.Start 到 Halt）的日志器。
// 会话结束后全局计数器可能已前进，它仍带着自己的会话号
type SessionLogger struct {
	id uint64
}

// StartSession 开始新的投递会话（每次 Mixer.Start 调用一次）
func StartSession() *SessionLogger {
	id := atomic.AddUint64(&sessionID, 1)
	return &SessionLogger{id: id}
}

func (l *SessionLogger) ID() uint64 {
	if l == nil {
		return 0
	}
	return l.id
}

func (l *SessionLogger) Infof(format string, args ...interface{}) {
	l.logger().Infof(format, args...)
}

func (l *SessionLogger) Warnf(format string, args ...interface{}) {
	l.logger().Warnf(format, args...)
}

func (l *SessionLogger) Errorf(format string, args ...interface{}) {
	l.logger().Errorf(format, args...)
}

// logger 延迟绑定字段，Init 替换底层 logger 后也能生效
func (l *SessionLogger) logger() *zap.SugaredLogger {
	if l == nil {
		return withFields()
	}
	return fieldsFor(l.id)
}

func Debugf(format string, args ...interface{}) {
	withFields().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	withFields().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	withFields().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	withFields().Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	withFields().Fatalf(format, args...)
}

func withFields() *zap.SugaredLogger {
	return fieldsFor(atomic.LoadUint64(&sessionID))
}

func fieldsFor(session uint64) *zap.SugaredLogger {
	iid, _ := instanceID.Load().(string)
	if iid == "" {
		iid = "instance-unknown"
	}
	return sugar.With(
		"instance", iid,
		"session", session,
		"log_id", fmt.Sprintf("%s-%d", iid, session),
	)
}
