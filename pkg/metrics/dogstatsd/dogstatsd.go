package dogstatsd

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/metricsTypes"
	"go.uber.org/zap"
)

// StatsdClient is the subset of statsd.ClientInterface used by DogStatsdMetricsClient.
type StatsdClient interface {
	Count(name string, value int64, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
	Timing(name string, value time.Duration, tags []string, rate float64) error
	Flush() error
}

type DogStatsdMetricsConfig struct {
	Url        string
	SampleRate float64
}

type DogStatsdMetricsClient struct {
	client     StatsdClient
	sampleRate float64
	logger     *zap.Logger
}

func NewDogStatsdMetricsClient(cfg *DogStatsdMetricsConfig, l *zap.Logger) (*DogStatsdMetricsClient, error) {
	client, err := statsd.New(cfg.Url, statsd.WithNamespace("ifo."))
	if err != nil {
		l.Sugar().Errorw("Failed to create statsd client", zap.Error(err))
		return nil, err
	}
	return NewDogStatsdMetricsClientWithStatsd(client, cfg.SampleRate, l), nil
}

func NewDogStatsdMetricsClientWithStatsd(client StatsdClient, sampleRate float64, l *zap.Logger) *DogStatsdMetricsClient {
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1
	}
	return &DogStatsdMetricsClient{
		client:     client,
		sampleRate: sampleRate,
		logger:     l,
	}
}

func formatTags(labels []metricsTypes.MetricsLabel) []string {
	tags := make([]string, 0, len(labels))
	for _, label := range labels {
		tags = append(tags, fmt.Sprintf("%s:%s", label.Name, label.Value))
	}
	return tags
}

func (dsd *DogStatsdMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	return dsd.client.Count(name, int64(value), formatTags(labels), dsd.sampleRate)
}

func (dsd *DogStatsdMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	return dsd.client.Gauge(name, value, formatTags(labels), dsd.sampleRate)
}

func (dsd *DogStatsdMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return dsd.client.Timing(name, value, formatTags(labels), dsd.sampleRate)
}

func (dsd *DogStatsdMetricsClient) Flush() {
	if err := dsd.client.Flush(); err != nil {
		dsd.logger.Sugar().Warnw("Failed to flush statsd client", zap.Error(err))
	}
}
