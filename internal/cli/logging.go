package cli

import (
	"io"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the slog logger used by a command, backed by zap.
//
// Normal runs log JSON at info level, which suits cron mail and log
// shippers. Verbose runs switch to the console encoder at debug level and
// report every upsert and delete. The returned func flushes buffered entries.
func newLogger(verbose bool, w io.Writer) (*slog.Logger, func() error) {
	var (
		encoder zapcore.Encoder
		level   = zapcore.InfoLevel
	)
	if verbose {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
		level = zapcore.DebugLevel
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), level)
	zapLogger := zap.New(core)

	return slog.New(zapslog.NewHandler(zapLogger.Core())), zapLogger.Sync
}
