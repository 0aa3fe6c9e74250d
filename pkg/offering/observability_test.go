package offering

import (
	"context"
	"errors"
	"testing"

	"github.com/Layr-Labs/offering-ledger/internal/tests"
	"github.com/Layr-Labs/offering-ledger/pkg/custody"
	"github.com/Layr-Labs/offering-ledger/pkg/eventBus"
	"github.com/Layr-Labs/offering-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/prometheus"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_EventsAndMetrics(t *testing.T) {
	l := tests.GetLogger()

	pmc, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
		Metrics: metricsTypes.MetricTypes,
	}, l)
	require.Nil(t, err)
	ms, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, []metricsTypes.IMetricsClient{pmc})
	require.Nil(t, err)

	eb := eventBus.NewEventBus(l)
	consumer := &eventBusTypes.Consumer{
		Id:      "test",
		Context: context.Background(),
		Channel: make(chan *eventBusTypes.Event, 16),
	}
	eb.Subscribe(consumer)

	clock := types.NewManualClock(0)
	ledger := custody.NewLedger(l)
	engine, err := NewEngine(defaultConfig(), clock, custody.NewSpender(ledger, custodyAccount), eb, ms, l)
	require.Nil(t, err)

	require.Nil(t, engine.SetPool(admin, 0, bi(100), bi(50), bi(0), false))
	_ = ledger.Mint(lpToken, alice, bi(10))
	_ = ledger.Approve(lpToken, alice, custodyAccount, custody.MaxAllowance)

	clock.Set(openTime)
	require.Nil(t, engine.DepositPool(alice, 0, bi(10)))
	err = engine.DepositPool(bob, 0, bi(10))
	assert.True(t, errors.Is(err, types.ErrInsufficientAllowance))

	t.Run("Accepted operations publish events in order", func(t *testing.T) {
		require.Len(t, consumer.Channel, 2)

		poolSet := <-consumer.Channel
		assert.Equal(t, eventBusTypes.Event_PoolSet, poolSet.Name)
		assert.NotEmpty(t, poolSet.Id)
		assert.Equal(t, uint64(0), poolSet.Timestamp)

		deposit := <-consumer.Channel
		assert.Equal(t, eventBusTypes.Event_Deposit, deposit.Name)
		assert.Equal(t, openTime, deposit.Timestamp)
		data, ok := deposit.Data.(*eventBusTypes.DepositData)
		require.True(t, ok)
		assert.Equal(t, alice, data.User)
		assert.Equal(t, "10", data.Amount.String())
	})
	t.Run("Outcomes are counted", func(t *testing.T) {
		accepted, err := testutil.GatherAndCount(pmc.Registry(), "offering_operation_accepted")
		assert.Nil(t, err)
		// setPool and deposit on pool 0
		assert.Equal(t, 2, accepted)

		rejected, err := testutil.GatherAndCount(pmc.Registry(), "offering_operation_rejected")
		assert.Nil(t, err)
		assert.Equal(t, 1, rejected)

		failed, err := testutil.GatherAndCount(pmc.Registry(), "offering_transfer_failed")
		assert.Nil(t, err)
		assert.Equal(t, 1, failed)
	})
}
