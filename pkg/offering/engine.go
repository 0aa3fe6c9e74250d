// Package offering is the public entry point of the offering ledger. An Engine owns one
// offering: its pools, contributions, release schedule and custody accounting.
//
// Calls hold the engine lock for their whole duration. Ledger state is mutated before the
// corresponding transfer and rolled back if the transfer fails. While the engine is
// waiting on an external collaborator (a transfer or an eligibility lookup) every call
// fails with types.ErrReentrantCall instead of blocking, whether it is made by the
// collaborator or by another goroutine. Callers sharing an engine retry on that error.
package offering

import (
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Layr-Labs/offering-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/contributionLedger"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/lifecycle"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/poolRegistry"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/vesting"
	"go.uber.org/zap"
)

const (
	Operation_SetPool            = "setPool"
	Operation_SetPrepPeriod      = "setPrepPeriod"
	Operation_SetVault           = "setVault"
	Operation_SetMinVaultBalance = "setMinVaultBalance"
	Operation_Deposit            = "deposit"
	Operation_Harvest            = "harvest"
	Operation_ReleaseTokens      = "releaseTokens"
	Operation_WithdrawRaised     = "withdrawRaised"
	Operation_FinalWithdraw      = "finalWithdraw"
)

type EngineConfig struct {
	ContributionToken types.Identity
	OfferingToken     types.Identity
	// Custody is the account holding tokens on behalf of the engine.
	Custody types.Identity
	Admin   types.Identity

	OpenTime  types.Timestamp
	CloseTime types.Timestamp

	ReleasedPercent      uint64
	NextReleaseTimestamp types.Timestamp

	// NumberPools defaults to 2 when zero.
	NumberPools        int
	PreparationSeconds uint64
	// FinalWithdrawDelay defaults to lifecycle.DefaultFinalWithdrawDelay when zero.
	FinalWithdrawDelay uint64
}

const defaultNumberPools = 2

// settings is the copy-on-write view of the scalar offering state. It is replaced after
// every successful mutation so scalar views never take the engine lock.
type settings struct {
	window               lifecycle.Window
	releasedPercent      uint64
	nextReleaseTimestamp types.Timestamp
	raisedWithdrawn      bool
	vault                types.EligibilityOracle
	minVaultBalance      *big.Int
}

type Engine struct {
	mu             sync.Mutex
	inExternalCall atomic.Bool

	contributionToken types.Identity
	offeringToken     types.Identity
	custody           types.Identity
	admin             types.Identity

	window          *lifecycle.Window
	schedule        *vesting.ReleaseSchedule
	pools           *poolRegistry.PoolRegistry
	ledger          *contributionLedger.ContributionLedger
	raisedWithdrawn bool
	vault           types.EligibilityOracle
	minVaultBalance *big.Int

	settings atomic.Pointer[settings]

	clock       types.Clock
	assets      types.AssetTransfer
	eventBus    eventBusTypes.IEventBus
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

// NewEngine validates cfg and returns an engine in its initial state. eb and ms may be nil.
func NewEngine(
	cfg *EngineConfig,
	clock types.Clock,
	assets types.AssetTransfer,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) (*Engine, error) {
	if cfg.ContributionToken == cfg.OfferingToken {
		return nil, types.Wrap(types.ErrIdenticalTokens, "%s", cfg.ContributionToken.Hex())
	}
	if cfg.Admin == types.ZeroIdentity {
		return nil, types.ErrInvalidAdmin
	}

	finalWithdrawDelay := cfg.FinalWithdrawDelay
	if finalWithdrawDelay == 0 {
		finalWithdrawDelay = lifecycle.DefaultFinalWithdrawDelay
	}
	window, err := lifecycle.NewWindow(cfg.OpenTime, cfg.CloseTime, cfg.PreparationSeconds, finalWithdrawDelay)
	if err != nil {
		return nil, err
	}

	schedule, err := vesting.NewReleaseSchedule(cfg.ReleasedPercent, cfg.NextReleaseTimestamp, cfg.CloseTime)
	if err != nil {
		return nil, err
	}

	numberPools := cfg.NumberPools
	if numberPools == 0 {
		numberPools = defaultNumberPools
	}
	pools, err := poolRegistry.NewPoolRegistry(numberPools)
	if err != nil {
		return nil, err
	}

	if ms == nil {
		ms, _ = metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, nil)
	}

	e := &Engine{
		contributionToken: cfg.ContributionToken,
		offeringToken:     cfg.OfferingToken,
		custody:           cfg.Custody,
		admin:             cfg.Admin,
		window:            window,
		schedule:          schedule,
		pools:             pools,
		ledger:            contributionLedger.NewContributionLedger(),
		minVaultBalance:   fixedPoint.Zero(),
		clock:             clock,
		assets:            assets,
		eventBus:          eb,
		metricsSink:       ms,
		logger:            l,
	}
	e.publishSettings()

	l.Sugar().Infow("Created offering engine",
		zap.String("contributionToken", cfg.ContributionToken.Hex()),
		zap.String("offeringToken", cfg.OfferingToken.Hex()),
		zap.Uint64("openTime", cfg.OpenTime),
		zap.Uint64("closeTime", cfg.CloseTime),
		zap.Int("numberPools", numberPools),
	)
	return e, nil
}

func (e *Engine) Admin() types.Identity {
	return e.admin
}

func (e *Engine) ContributionToken() types.Identity {
	return e.contributionToken
}

func (e *Engine) OfferingToken() types.Identity {
	return e.offeringToken
}

func (e *Engine) Custody() types.Identity {
	return e.custody
}

func (e *Engine) NumberPools() int {
	return e.pools.NumberPools()
}

// enter takes the engine lock. While an external call is in flight it fails for every
// caller, since a nested call cannot be told apart from a concurrent one.
func (e *Engine) enter() (func(), error) {
	if e.inExternalCall.Load() {
		return nil, types.ErrReentrantCall
	}
	e.mu.Lock()
	return e.mu.Unlock, nil
}

// external runs fn, a call to a collaborator, with re-entry into the engine disabled.
func (e *Engine) external(fn func() error) error {
	e.inExternalCall.Store(true)
	defer e.inExternalCall.Store(false)
	return fn()
}

// publishSettings must be called with the lock held, or before the engine is shared.
func (e *Engine) publishSettings() {
	e.settings.Store(&settings{
		window:               *e.window,
		releasedPercent:      e.schedule.ReleasedPercent,
		nextReleaseTimestamp: e.schedule.NextReleaseTimestamp,
		raisedWithdrawn:      e.raisedWithdrawn,
		vault:                e.vault,
		minVaultBalance:      fixedPoint.Copy(e.minVaultBalance),
	})
}

func (e *Engine) requireAdmin(caller types.Identity) error {
	if caller != e.admin {
		return types.Wrap(types.ErrNotAdmin, "%s", caller.Hex())
	}
	return nil
}

func (e *Engine) transferIn(operation string, token types.Identity, from types.Identity, amount *big.Int) error {
	err := e.external(func() error {
		return e.assets.TransferIn(token, from, amount)
	})
	if err != nil {
		e.logTransferFailure(operation, token, from, amount, err)
	}
	return err
}

func (e *Engine) transferOut(operation string, token types.Identity, to types.Identity, amount *big.Int) error {
	err := e.external(func() error {
		return e.assets.TransferOut(token, to, amount)
	})
	if err != nil {
		e.logTransferFailure(operation, token, to, amount, err)
	}
	return err
}

func (e *Engine) logTransferFailure(operation string, token types.Identity, account types.Identity, amount *big.Int, err error) {
	e.logger.Sugar().Errorw("Transfer failed, rolling back",
		zap.String("operation", operation),
		zap.String("token", token.Hex()),
		zap.String("account", account.Hex()),
		zap.String("amount", amount.String()),
		zap.Error(err),
	)
	_ = e.metricsSink.Incr(metricsTypes.Metric_Incr_TransferFailed, []metricsTypes.MetricsLabel{
		{Name: "operation", Value: operation},
		{Name: "token", Value: e.tokenName(token)},
	}, 1)
}

func (e *Engine) tokenName(token types.Identity) string {
	switch token {
	case e.contributionToken:
		return "contribution"
	case e.offeringToken:
		return "offering"
	default:
		return token.Hex()
	}
}

// custodyBalance reads the engine's custody balance of token.
func (e *Engine) custodyBalance(token types.Identity) *big.Int {
	var balance *big.Int
	_ = e.external(func() error {
		balance = e.assets.BalanceOf(token, e.custody)
		return nil
	})
	if balance == nil {
		return fixedPoint.Zero()
	}
	return balance
}

func (e *Engine) requireCustody(token types.Identity, amount *big.Int) error {
	if !fixedPoint.IsPositive(amount) {
		return nil
	}
	balance := e.custodyBalance(token)
	if balance.Cmp(amount) >= 0 {
		return nil
	}
	sentinel := types.ErrNotEnoughOfferingTokens
	if token == e.contributionToken {
		sentinel = types.ErrNotEnoughContributionTokens
	}
	return types.Wrap(sentinel, "custody holds %s, need %s", balance.String(), amount.String())
}

func (e *Engine) publishEvent(name eventBusTypes.EventName, data any) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.Publish(&eventBusTypes.Event{
		Name:      name,
		Timestamp: e.clock.Now(),
		Data:      data,
	})
}

// observe records the outcome of an operation. Rejections are expected traffic and are
// logged at debug level.
func (e *Engine) observe(operation string, poolId *types.PoolId, start time.Time, err error) {
	pool := ""
	if poolId != nil {
		pool = strconv.Itoa(int(*poolId))
	}
	_ = e.metricsSink.Timing(metricsTypes.Metric_Timing_OperationDuration, time.Since(start), []metricsTypes.MetricsLabel{
		{Name: "operation", Value: operation},
		{Name: "hasError", Value: fmt.Sprintf("%v", err != nil)},
	})
	if err == nil {
		_ = e.metricsSink.Incr(metricsTypes.Metric_Incr_OperationAccepted, []metricsTypes.MetricsLabel{
			{Name: "operation", Value: operation},
			{Name: "pool", Value: pool},
		}, 1)
		return
	}

	kind, _ := types.KindOf(err)
	_ = e.metricsSink.Incr(metricsTypes.Metric_Incr_OperationRejected, []metricsTypes.MetricsLabel{
		{Name: "operation", Value: operation},
		{Name: "kind", Value: string(kind)},
		{Name: "code", Value: types.CodeOf(err)},
	}, 1)
	e.logger.Sugar().Debugw("Operation rejected",
		zap.String("operation", operation),
		zap.String("pool", pool),
		zap.String("code", types.CodeOf(err)),
		zap.Error(err),
	)
}

func (e *Engine) recordPoolGauge(poolId types.PoolId, total *big.Int) {
	value, _ := new(big.Float).SetInt(total).Float64()
	_ = e.metricsSink.Gauge(metricsTypes.Metric_Gauge_PoolTotalContributed, value, []metricsTypes.MetricsLabel{
		{Name: "pool", Value: strconv.Itoa(int(poolId))},
	})
}
