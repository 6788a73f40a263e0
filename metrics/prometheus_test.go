package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusExporter(t *testing.T) {
	exporter := NewPrometheusExporter(DefaultConfig())

	t.Run("RecordStage", func(t *testing.T) {
		exporter.RecordStage("candidate_extraction", 10*time.Millisecond, true)
		exporter.RecordStage("concept_extraction", 800*time.Millisecond, true)
		exporter.RecordStage("layout", 50*time.Millisecond, false)
	})

	t.Run("RunsInFlight", func(t *testing.T) {
		exporter.IncRunsInFlight()
		exporter.IncRunsInFlight()
		exporter.DecRunsInFlight()
	})

	t.Run("RecordLLMCall", func(t *testing.T) {
		exporter.RecordLLMCall("deepseek", 300*time.Millisecond)
	})

	t.Run("RecordEmbeddingBatch", func(t *testing.T) {
		exporter.RecordEmbeddingBatch("openai", 120*time.Millisecond)
	})

	t.Run("RecordStoreOp", func(t *testing.T) {
		exporter.RecordStoreOp("save_concepts", nil)
		exporter.RecordStoreOp("save_concepts", errors.New("connection reset"))
	})

	t.Run("RecordRunShape", func(t *testing.T) {
		exporter.RecordRunShape(12, 4)
	})
}

func TestPrometheusExporterHandler(t *testing.T) {
	exporter := NewPrometheusExporter(DefaultConfig())
	exporter.RecordStage("merge", 5*time.Millisecond, true)
	exporter.RecordStoreOp("get_scene", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "mindmapforge_pipeline_stage_latency_seconds"))
	assert.True(t, strings.Contains(body, "mindmapforge_store_operations_total"))
}

func TestDefaultConfigHasBuckets(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotEmpty(t, cfg.LatencyBuckets)
}
