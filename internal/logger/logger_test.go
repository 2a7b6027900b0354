package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type staticLevels struct {
	def   string
	dev   bool
	perID map[string]string
}

func (s staticLevels) GetComponentLevel(component string) string {
	if lvl, ok := s.perID[component]; ok {
		return lvl
	}
	return s.def
}

func (s staticLevels) GetDefaultLevel() string { return s.def }
func (s staticLevels) IsDevelopment() bool     { return s.dev }

func TestNewLogger(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		for _, dev := range []bool{false, true} {
			l, err := NewLogger(lvl, dev)
			require.NoError(t, err)
			require.Equal(t, lvl, l.GetLevel())
		}
	}

	_, err := NewLogger("verbose", false)
	require.Error(t, err)
}

func TestLogger_ChainFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewWithCore(core, zapcore.InfoLevel)

	scanner := base.WithComponent("scanner").WithChain("base", 8453)
	scanner.Infow("indexed range", "from", 100, "to", 199)
	scanner.Debug("dropped below level")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "indexed range", entry.Message)
	require.Equal(t, map[string]any{
		"component": "scanner",
		"chain":     "base",
		"chain_id":  uint64(8453),
		"from":      int64(100),
		"to":        int64(199),
	}, entry.ContextMap())
	require.Equal(t, "scanner", scanner.GetComponent())
}

func TestLogger_SetLevelPropagates(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewWithCore(core, zapcore.WarnLevel)
	transport := base.WithComponent("transport")
	reorg := base.WithComponent("reorg").WithChain("mainnet", 1)

	transport.Info("endpoint recovered")
	require.Zero(t, logs.Len())

	require.NoError(t, base.SetLevel("debug"))
	require.Equal(t, "debug", transport.GetLevel())
	require.Equal(t, "debug", reorg.GetLevel())

	transport.Info("endpoint recovered")
	reorg.Debug("walking back")
	require.Equal(t, 2, logs.Len())

	require.Error(t, base.SetLevel("loud"))
	require.Equal(t, "debug", base.GetLevel())
}

func TestNewComponentLoggerFromConfig(t *testing.T) {
	cfg := staticLevels{def: "warn", perID: map[string]string{"scanner": "debug"}}

	require.Equal(t, "debug", NewComponentLoggerFromConfig("scanner", cfg).GetLevel())
	require.Equal(t, "warn", NewComponentLoggerFromConfig("checkpoint", cfg).GetLevel())

	dev := staticLevels{def: "info", dev: true}
	l := NewComponentLoggerFromConfig("transport", dev)
	require.Equal(t, "transport", l.GetComponent())
	require.Equal(t, "info", l.GetLevel())

	l = NewComponentLoggerFromConfig("maintenance", nil)
	require.Equal(t, "info", l.GetLevel())

	require.Panics(t, func() {
		NewComponentLoggerFromConfig("api", staticLevels{def: "chatty"})
	})
}

func TestNewNopLogger(t *testing.T) {
	l := NewNopLogger()
	require.NotPanics(t, func() {
		l.WithComponent("materializer").WithChain("x", 1).Errorw("ignored", "k", "v")
	})
	require.Equal(t, "fatal", l.GetLevel())
}

func TestGetDefaultLogger(t *testing.T) {
	require.Same(t, GetDefaultLogger(), GetDefaultLogger())
}
