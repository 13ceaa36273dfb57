package logging

import (
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rogerio-castellano/inventory-orders/internal/config"
)

const scopeName = "inventory-orders.manual"

// New builds the JSON stdout logger. With withOtel set, records are also sent to the global
// OpenTelemetry logger provider through the otelzap bridge.
func New(level string, withOtel bool) (*zap.Logger, error) {
	return newLogger(os.Stdout, level, withOtel)
}

func newLogger(out io.Writer, level string, withOtel bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(out)),
		lvl,
	)

	if withOtel {
		otelCore := otelzap.NewCore(scopeName, otelzap.WithLoggerProvider(global.GetLoggerProvider()))
		core = zapcore.NewTee(core, otelCore)
	}

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", config.ServiceName)),
	), nil
}
