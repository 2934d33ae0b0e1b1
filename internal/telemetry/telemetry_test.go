package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitNone(t *testing.T) {
	shutdown, err := Init(context.Background(), "none", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitUnknown(t *testing.T) {
	_, err := Init(context.Background(), "zipkin", "test")
	assert.ErrorIs(t, err, ErrUnknownExporter)
}
