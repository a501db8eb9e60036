package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_QuietIsNop(t *testing.T) {
	logger, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, Nop(), logger)
	assert.NoError(t, logger.Close())
}

func TestNew_VerboseWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Verbose: true, JSON: true, Output: &buf})
	require.NoError(t, err)

	logger.Warn("placeholders lost", "pending", 2)
	require.NoError(t, logger.Close())

	assert.Contains(t, buf.String(), "placeholders lost")
}
