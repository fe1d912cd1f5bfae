package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/internal/logging"
)

func TestInitTracer_ExportsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	p, err := InitTracer("sluice-test", &buf, logging.NewNop())
	require.NoError(t, err)

	_, span := p.Tracer("test").Start(context.Background(), "sluice.step demo")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "sluice.step demo")
	assert.Contains(t, buf.String(), "sluice-test")
}
