package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestEnabledFromEnv(t *testing.T) {
	env := map[string]string{}
	lookup := func(k string) string { return env[k] }

	assert.False(t, EnabledFromEnv(lookup))

	env["OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"] = "http://collector:4318/v1/traces"
	assert.True(t, EnabledFromEnv(lookup))

	delete(env, "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
	env["OTEL_EXPORTER_OTLP_ENDPOINT"] = "http://collector:4318"
	assert.True(t, EnabledFromEnv(lookup))
}

func TestNew_Disabled(t *testing.T) {
	tr, err := New(context.Background(), Config{Enabled: false, ServiceName: "pgingest"})
	require.NoError(t, err)

	_, span := tr.Start(context.Background(), "noop")
	span.End()

	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestNew_ExportsToCollector(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", collector.URL)
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	tr, err := New(context.Background(), Config{
		Enabled:        true,
		ServiceName:    "pgingest",
		ServiceVersion: "test",
		RunID:          "run-1",
	})
	require.NoError(t, err)

	_, span := tr.Start(context.Background(), "pgingest.download")
	span.End()

	require.NoError(t, tr.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, paths, "/v1/traces")
}
