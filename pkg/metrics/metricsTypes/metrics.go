package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_OperationAccepted = "offering.operation.accepted"
	Metric_Incr_OperationRejected = "offering.operation.rejected"
	Metric_Incr_TransferFailed    = "offering.transfer.failed"

	Metric_Gauge_PoolTotalContributed = "offering.pool.totalContributed"
	Metric_Gauge_ReleasedPercent      = "offering.releasedPercent"

	Metric_Timing_OperationDuration = "offering.operation.duration"
	Metric_Timing_ScenarioDuration  = "scenario.duration"
	Metric_Timing_CreateSnapshot    = "snapshot.create.duration"
	Metric_Timing_RestoreSnapshot   = "snapshot.restore.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name: Metric_Incr_OperationAccepted,
			Labels: []string{
				"operation",
				"pool",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_OperationRejected,
			Labels: []string{
				"operation",
				"kind",
				"code",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_TransferFailed,
			Labels: []string{
				"operation",
				"token",
			},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name: Metric_Gauge_PoolTotalContributed,
			Labels: []string{
				"pool",
			},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_ReleasedPercent,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name: Metric_Timing_OperationDuration,
			Labels: []string{
				"operation",
				"hasError",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_ScenarioDuration,
			Labels: []string{
				"scenario",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_CreateSnapshot,
			Labels: []string{
				"offeringId",
				"version",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_RestoreSnapshot,
			Labels: []string{
				"offeringId",
				"version",
			},
		},
	},
}
