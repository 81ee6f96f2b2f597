package telemetry

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapSink adapts a *zap.Logger to the Sink interface. This is the engine's
// default EventSink: structured events only, no file rotation or on-disk
// format — that remains the logging subsystem's concern, not the core's.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps an already-built zap logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Log(level Level, message string) {
	s.logger.Check(toZapLevel(level), message).Write()
}

func (s *ZapSink) LogJob(level Level, job JobContext, message string) {
	s.logger.Check(toZapLevel(level), message).Write(
		zap.String("job", job.Name),
		zap.Int("cpu_time", job.CPUTime),
		zap.Int("priority", job.Priority),
		zap.String("status", job.Status),
	)
}

func toZapLevel(l Level) zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Info:
		return zapcore.InfoLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// BuildLogger constructs a *zap.Logger the way the engine wants it: a tee
// of a low-priority core writing to stdout and a high-priority core
// writing to stderr, with a runtime-adjustable level.
func BuildLogger(level string, development bool, encoding string) (*zap.Logger, zap.AtomicLevel, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, atomicLevel, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return atomicLevel.Enabled(lvl) && lvl < zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), lowPriority),
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), highPriority),
	)

	opts := []zap.Option{zap.AddCaller()}
	if development {
		opts = append(opts, zap.Development())
	}

	return zap.New(core, opts...), atomicLevel, nil
}

// SetLevel changes the logger's level dynamically, called from the
// viper config-change watcher.
func SetLevel(atomicLevel zap.AtomicLevel, level string) error {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	atomicLevel.SetLevel(l)
	return nil
}
