package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.ObserveRender(StatusSuccess, 3*time.Second)
	r.ObserveRender(StatusSuccess, time.Second)
	r.ObserveRender(StatusProbeError, 0)
	r.ObservePhase("probe", 20*time.Millisecond)
	r.SetFilterStages(5)
	r.SetEncodeSpeed(2.5)
	r.AddDownloadBytes(1024)
	r.AddDownloadBytes(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.renders.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.renders.WithLabelValues(StatusProbeError)))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.filterStages))
	assert.Equal(t, 2.5, testutil.ToFloat64(r.encodeSpeed))
	assert.Equal(t, 1024.0, testutil.ToFloat64(r.downloadBytes))
	assert.Equal(t, 1, testutil.CollectAndCount(r.renderSeconds))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveRender(StatusExecutionError, 2*time.Second)

	path := filepath.Join(t.TempDir(), "reelcannon.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `reelcannon_renders_total{status="execution_error"} 1`), text)
	assert.Contains(t, text, "reelcannon_render_duration_seconds_count 1")
}
