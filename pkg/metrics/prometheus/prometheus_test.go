package prometheus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Layr-Labs/offering-ledger/internal/logger"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/metricsTypes"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_UnexpectedLabelsParsing(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	pmc, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
		Metrics: metricsTypes.MetricTypes,
	}, l)
	assert.Nil(t, err)

	t.Run("Should return no error for all labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_OperationDuration, []metricsTypes.MetricsLabel{
			{Name: "operation", Value: "deposit"},
			{Name: "hasError", Value: "false"},
		})
		assert.Nil(t, err)
	})
	t.Run("Should return no error for a subset labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_OperationDuration, []metricsTypes.MetricsLabel{
			{Name: "operation", Value: "deposit"},
		})
		assert.Nil(t, err)
	})
	t.Run("Should return an error for unexpected labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, metricsTypes.Metric_Timing_OperationDuration, []metricsTypes.MetricsLabel{
			{Name: "operation", Value: "deposit"},
			{Name: "hasError", Value: "false"},
			{Name: "unexpectedLabel", Value: "unexpectedValue"},
		})
		assert.NotNil(t, err)
	})
	t.Run("Should return an error for labels on an unlabeled metric", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Gauge, metricsTypes.Metric_Gauge_ReleasedPercent, []metricsTypes.MetricsLabel{
			{Name: "pool", Value: "0"},
		})
		assert.NotNil(t, err)
	})
}

func Test_Recording(t *testing.T) {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	pmc, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
		Metrics: metricsTypes.MetricTypes,
	}, l)
	assert.Nil(t, err)

	t.Run("Counters accept a subset of labels", func(t *testing.T) {
		err := pmc.Incr(metricsTypes.Metric_Incr_OperationAccepted, []metricsTypes.MetricsLabel{
			{Name: "operation", Value: "deposit"},
		}, 1)
		assert.Nil(t, err)

		count := testutil.ToFloat64(pmc.counters[metricsTypes.Metric_Incr_OperationAccepted].WithLabelValues("deposit", ""))
		assert.Equal(t, float64(1), count)
	})
	t.Run("Gauges", func(t *testing.T) {
		assert.Nil(t, pmc.Gauge(metricsTypes.Metric_Gauge_ReleasedPercent, 20, nil))
		assert.Equal(t, float64(20), testutil.ToFloat64(pmc.gauges[metricsTypes.Metric_Gauge_ReleasedPercent].WithLabelValues()))
	})
	t.Run("Timings", func(t *testing.T) {
		err := pmc.Timing(metricsTypes.Metric_Timing_OperationDuration, 5*time.Millisecond, []metricsTypes.MetricsLabel{
			{Name: "operation", Value: "harvest"},
			{Name: "hasError", Value: "false"},
		})
		assert.Nil(t, err)
	})
	t.Run("Unknown metrics are ignored", func(t *testing.T) {
		assert.Nil(t, pmc.Incr("does.not.exist", nil, 1))
	})
	t.Run("Clients have independent registries", func(t *testing.T) {
		other, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
			Metrics: metricsTypes.MetricTypes,
		}, l)
		assert.Nil(t, err)
		assert.NotEqual(t, pmc.Registry(), other.Registry())
	})
	t.Run("Textfile export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "metrics.prom")
		assert.Nil(t, pmc.WriteTextfile(path))

		data, err := os.ReadFile(path)
		assert.Nil(t, err)
		assert.Contains(t, string(data), "offering_operation_accepted")
	})
}
