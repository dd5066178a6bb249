package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bennypowers.dev/lesstheme/internal/metrics"
	"bennypowers.dev/lesstheme/internal/theme"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := metrics.New(false)

	r.ObserveStage(theme.StageCompilingProbe, 20*time.Millisecond)
	r.ObserveStage(theme.StageCompilingFull, 80*time.Millisecond)
	r.ObserveBuild(theme.OutcomeGenerated, nil, 100*time.Millisecond)
	r.ObserveBuild(theme.OutcomeCached, nil, time.Millisecond)
	r.ObserveBuild(theme.OutcomeCached, nil, time.Millisecond)
	r.ObserveBuild(theme.OutcomeFailed, nil, time.Millisecond)

	t.Run("stage histogram has one series per stage", func(t *testing.T) {
		count, err := testutil.GatherAndCount(r.Registry(), "less_theme_stage_duration_seconds")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("builds are counted by outcome", func(t *testing.T) {
		count, err := testutil.GatherAndCount(r.Registry(), "less_theme_builds_total")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("handler exposes the registry", func(t *testing.T) {
		srv := httptest.NewServer(r.Handler())
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `less_theme_builds_total{outcome="cached"} 2`)
		assert.Contains(t, string(body), `less_theme_stage_duration_seconds_count{stage="compiling-full"} 1`)
	})
}
