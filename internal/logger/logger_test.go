package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	l, err := New("WARN", "json")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.WarnLevel))
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	_, err = New("debug", "console")
	require.NoError(t, err)

	_, err = New("chatty", "json")
	assert.Error(t, err)
	_, err = New("info", "xml")
	assert.Error(t, err)
}
