package observability

import (
	"os"

	"productservice/internal/config"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const instrumentationScopeName = "product-service.manual"

// NewConsoleLogger builds the JSON console logger used before telemetry is configured.
func NewConsoleLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// NewLogger builds the service logger. Records go to stdout as JSON and, when
// telemetry is enabled, to the global OpenTelemetry logger provider as well.
func NewLogger(cfg *config.Config, fields ...zap.Field) *zap.Logger {
	consoleEncoderConfig := zap.NewProductionEncoderConfig()
	consoleEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(consoleEncoderConfig),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)

	core := consoleCore
	if cfg.TelemetryEnabled() {
		otelZapCore := otelzap.NewCore(instrumentationScopeName,
			otelzap.WithLoggerProvider(global.GetLoggerProvider()),
		)
		core = zapcore.NewTee(otelZapCore, consoleCore)
	}

	fields = append([]zap.Field{zap.String("service.name", config.ServiceName)}, fields...)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(fields...),
	)
}
