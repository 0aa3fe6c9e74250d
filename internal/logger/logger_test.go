package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_NewLogger(t *testing.T) {
	t.Run("Debug enables debug level", func(t *testing.T) {
		l, err := NewLogger(&LoggerConfig{Debug: true})
		assert.Nil(t, err)
		assert.True(t, l.Core().Enabled(zap.DebugLevel))
	})
	t.Run("Default is info level", func(t *testing.T) {
		l, err := NewLogger(&LoggerConfig{Debug: false})
		assert.Nil(t, err)
		assert.False(t, l.Core().Enabled(zap.DebugLevel))
		assert.True(t, l.Core().Enabled(zap.InfoLevel))
	})
	t.Run("Nil config", func(t *testing.T) {
		l, err := NewLogger(nil)
		assert.Nil(t, err)
		assert.NotNil(t, l)
	})
}
