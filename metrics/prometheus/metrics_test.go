package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterHandlerServesMetrics(t *testing.T) {
	exporter := NewExporter(":0")

	RecordTriageTurn("generated")
	RecordTriageTurn("fallback")
	RecordProviderFailure("groq", "diagnosis")
	RecordVoiceStage("transcription", 0.42)
	RecordVoiceTurn("success")
	RecordSessionsSwept(3)

	server := httptest.NewServer(exporter.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	output := string(body)
	assert.Contains(t, output, "triagekit_triage_turns_total")
	assert.Contains(t, output, `outcome="generated"`)
	assert.Contains(t, output, "triagekit_provider_failures_total")
	assert.Contains(t, output, "triagekit_voice_stage_duration_seconds")
	assert.Contains(t, output, "triagekit_voice_turns_total")
	assert.Contains(t, output, "triagekit_sessions_swept_total")
}

func TestExporterRegistry(t *testing.T) {
	exporter := NewExporter(":0")
	require.NotNil(t, exporter.Registry())

	families, err := exporter.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
