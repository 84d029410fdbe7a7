package utils

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	stop := OperationTimer("recalculate", log)
	d := stop()

	assert.GreaterOrEqual(t, int64(d), int64(0))
	assert.Contains(t, buf.String(), `"operation":"recalculate"`)
	assert.NotContains(t, buf.String(), "Slow operation")
}
