package logging

import (
	"encoding/json"
	"os"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Structured messages are serialized and
// written through a zap production core so log shipping stays line-JSON.
func New(appName, level string) (ectologger.Logger, func(), error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		zapLevel,
	)
	zl := zap.New(core).With(zap.String("app", appName))

	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		payload, err := json.Marshal(msg)
		if err != nil {
			zl.Error("failed to encode log message", zap.Error(err))
			return
		}
		zl.Info(string(payload))
	})

	cleanup := func() {
		_ = zl.Sync()
	}
	return logger, cleanup, nil
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}
