package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger atomic.Pointer[Logger]

// ValidLogLevels lists the levels accepted in the logging config.
var ValidLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// LoggingConfig is the subset of the logging configuration the logger needs.
type LoggingConfig interface {
	GetComponentLevel(component string) string
	GetDefaultLevel() string
	IsDevelopment() bool
}

// Logger is a zap SugaredLogger with a shared, adjustable level.
// Children created with WithComponent or WithChain follow the parent's level.
type Logger struct {
	*zap.SugaredLogger

	level     zap.AtomicLevel
	component string
}

// NewLogger builds a JSON production logger, or a colored console logger in development mode.
func NewLogger(level string, development bool) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{SugaredLogger: z.Sugar(), level: cfg.Level}, nil
}

// NewWithCore wraps an existing zap core. The level gates entries before they reach the core.
func NewWithCore(core zapcore.Core, level zapcore.Level) *Logger {
	atomicLevel := zap.NewAtomicLevelAt(level)
	gated, err := zapcore.NewIncreaseLevelCore(core, atomicLevel)
	if err != nil {
		// the core is more restrictive than level; keep it as is
		gated = core
	}

	return &Logger{SugaredLogger: zap.New(gated).Sugar(), level: atomicLevel}
}

// NewComponentLogger panics on an invalid level; it is only called while wiring the process.
func NewComponentLogger(component, level string, development bool) *Logger {
	l, err := NewLogger(level, development)
	if err != nil {
		panic(err)
	}

	return l.WithComponent(component)
}

// NewComponentLoggerFromConfig uses the component's configured level, or the default one.
// A nil config gives an info level production logger.
func NewComponentLoggerFromConfig(component string, cfg LoggingConfig) *Logger {
	if cfg == nil {
		return NewComponentLogger(component, "info", false)
	}

	return NewComponentLogger(component, cfg.GetComponentLevel(component), cfg.IsDevelopment())
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return NewWithCore(zapcore.NewNopCore(), zapcore.FatalLevel)
}

// WithComponent tags every entry with component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		SugaredLogger: l.With("component", component),
		level:         l.level,
		component:     component,
	}
}

// WithChain tags every entry with the chain a scanner or transport serves.
func (l *Logger) WithChain(name string, chainID uint64) *Logger {
	return &Logger{
		SugaredLogger: l.With("chain", name, "chain_id", chainID),
		level:         l.level,
		component:     l.component,
	}
}

func (l *Logger) GetComponent() string {
	return l.component
}

func (l *Logger) GetLevel() string {
	return l.level.Level().String()
}

// SetLevel changes the level of l and every logger derived from it.
func (l *Logger) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)

	return nil
}

// Close flushes buffered entries.
func (l *Logger) Close() error {
	return l.Sync()
}

// GetDefaultLogger returns the process-wide fallback logger used before the
// configuration is loaded, such as during handler registration.
func GetDefaultLogger() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}

	l, err := NewLogger("debug", true)
	if err != nil {
		panic(err)
	}
	defaultLogger.CompareAndSwap(nil, l)

	return defaultLogger.Load()
}
