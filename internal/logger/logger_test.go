package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	cases := map[string]zap.AtomicLevel{
		"debug": zap.NewAtomicLevelAt(zap.DebugLevel),
		"info":  zap.NewAtomicLevelAt(zap.InfoLevel),
		"warn":  zap.NewAtomicLevelAt(zap.WarnLevel),
		"":      zap.NewAtomicLevelAt(zap.ErrorLevel),
	}
	for level, want := range cases {
		log, err := New(level, "json")
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(want.Level()), level)
		if want.Level() > zap.DebugLevel {
			assert.False(t, log.Core().Enabled(want.Level()-1), level)
		}
	}
}

func TestNew_Console(t *testing.T) {
	log, err := New("info", "console")
	require.NoError(t, err)
	assert.NotNil(t, log)
}
