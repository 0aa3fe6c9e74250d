package dogstatsd

import (
	"testing"
	"time"

	"github.com/Layr-Labs/offering-ledger/internal/logger"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/metricsTypes"
	"github.com/stretchr/testify/assert"
)

type recordedCall struct {
	kind  string
	name  string
	value float64
	tags  []string
	rate  float64
}

type fakeStatsd struct {
	calls   []recordedCall
	flushed int
}

func (f *fakeStatsd) Count(name string, value int64, tags []string, rate float64) error {
	f.calls = append(f.calls, recordedCall{"count", name, float64(value), tags, rate})
	return nil
}

func (f *fakeStatsd) Gauge(name string, value float64, tags []string, rate float64) error {
	f.calls = append(f.calls, recordedCall{"gauge", name, value, tags, rate})
	return nil
}

func (f *fakeStatsd) Timing(name string, value time.Duration, tags []string, rate float64) error {
	f.calls = append(f.calls, recordedCall{"timing", name, float64(value.Milliseconds()), tags, rate})
	return nil
}

func (f *fakeStatsd) Flush() error {
	f.flushed++
	return nil
}

func Test_DogStatsdMetricsClient(t *testing.T) {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	fake := &fakeStatsd{}
	client := NewDogStatsdMetricsClientWithStatsd(fake, 0, l)

	t.Run("Incr formats labels as tags", func(t *testing.T) {
		err := client.Incr(metricsTypes.Metric_Incr_OperationAccepted, []metricsTypes.MetricsLabel{
			{Name: "operation", Value: "deposit"},
			{Name: "pool", Value: "1"},
		}, 1)
		assert.Nil(t, err)
		assert.Equal(t, recordedCall{"count", metricsTypes.Metric_Incr_OperationAccepted, 1, []string{"operation:deposit", "pool:1"}, 1}, fake.calls[0])
	})
	t.Run("Gauge", func(t *testing.T) {
		assert.Nil(t, client.Gauge(metricsTypes.Metric_Gauge_ReleasedPercent, 50, nil))
		assert.Equal(t, "gauge", fake.calls[1].kind)
		assert.Equal(t, float64(50), fake.calls[1].value)
		assert.Empty(t, fake.calls[1].tags)
	})
	t.Run("Timing", func(t *testing.T) {
		assert.Nil(t, client.Timing(metricsTypes.Metric_Timing_OperationDuration, 12*time.Millisecond, nil))
		assert.Equal(t, float64(12), fake.calls[2].value)
	})
	t.Run("Flush", func(t *testing.T) {
		client.Flush()
		assert.Equal(t, 1, fake.flushed)
	})
}
