package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupStdoutExporter(t *testing.T) {
	tracer, shutdown, err := Setup(context.Background(), Config{ServiceName: "svarmotor-test"})
	require.NoError(t, err)
	require.NotNil(t, tracer)
	defer func() { assert.NoError(t, shutdown(context.Background())) }()

	_, span := tracer.Start(context.Background(), "test-span")
	span.End()
}
