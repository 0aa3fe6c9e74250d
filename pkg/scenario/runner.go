package scenario

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/Layr-Labs/offering-ledger/pkg/custody"
	"github.com/Layr-Labs/offering-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics"
	"github.com/Layr-Labs/offering-ledger/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/offering-ledger/pkg/offering"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/lifecycle"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/Layr-Labs/offering-ledger/pkg/stateRoot"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type RunnerConfig struct {
	// Progress receives a progress bar; nil disables it.
	Progress io.Writer
}

type Runner struct {
	scenario    *Scenario
	config      *RunnerConfig
	eventBus    eventBusTypes.IEventBus
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

type StepResult struct {
	Index     int
	Action    string
	Caller    string
	Timestamp types.Timestamp
	ErrorCode string
	Harvest   *offering.HarvestResult
	Raised    *big.Int
}

type Result struct {
	RunId     string
	Scenario  *Scenario
	Steps     []*StepResult
	Engine    *offering.Engine
	Ledger    *custody.Ledger
	State     *offering.OfferingState
	StateRoot stateRoot.StateRoot
	// Accounts maps account names to identities.
	Accounts map[string]types.Identity
}

// run is the mutable state of a single run.
type run struct {
	scenario *Scenario
	clock    *types.ManualClock
	ledger   *custody.Ledger
	vault    *custody.Vault
	engine   *offering.Engine
	accounts map[string]types.Identity
	admin    types.Identity
	custody  types.Identity
	logger   *zap.Logger
}

// NewRunner accepts a nil event bus and metrics sink.
func NewRunner(s *Scenario, cfg *RunnerConfig, eb eventBusTypes.IEventBus, ms *metrics.MetricsSink, l *zap.Logger) *Runner {
	if cfg == nil {
		cfg = &RunnerConfig{}
	}
	if ms == nil {
		ms, _ = metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, nil)
	}
	return &Runner{
		scenario:    s,
		config:      cfg,
		eventBus:    eb,
		metricsSink: ms,
		logger:      l,
	}
}

// Run executes every step in order. A step that fails without expecting that failure,
// or that succeeds while expecting one, stops the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runId := uuid.NewString()
	l := r.logger.With(zap.String("runId", runId), zap.String("scenario", r.scenario.Name))

	defer func() {
		_ = r.metricsSink.Timing(metricsTypes.Metric_Timing_ScenarioDuration, time.Since(start), []metricsTypes.MetricsLabel{
			{Name: "scenario", Value: r.scenario.Name},
		})
	}()

	st, err := r.setup(l)
	if err != nil {
		return nil, err
	}

	progress := r.config.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(len(r.scenario.Steps),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription(fmt.Sprintf("running %s", r.scenario.Name)),
	)

	result := &Result{
		RunId:    runId,
		Scenario: r.scenario,
		Steps:    make([]*StepResult, 0, len(r.scenario.Steps)),
		Engine:   st.engine,
		Ledger:   st.ledger,
		Accounts: st.accounts,
	}

	for i, step := range r.scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stepResult, err := st.execute(i, step)
		if err != nil {
			l.Sugar().Errorw("Scenario step failed",
				zap.Int("step", i),
				zap.String("action", step.Action),
				zap.Error(err),
			)
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
		result.Steps = append(result.Steps, stepResult)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	result.State, err = st.engine.State()
	if err != nil {
		return nil, err
	}
	result.StateRoot, err = stateRoot.Compute(result.State)
	if err != nil {
		return nil, err
	}

	l.Sugar().Infow("Scenario complete",
		zap.Int("steps", len(result.Steps)),
		zap.String("stateRoot", string(result.StateRoot)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (r *Runner) setup(l *zap.Logger) (*run, error) {
	spec := &r.scenario.Offering
	st := &run{
		scenario: r.scenario,
		clock:    types.NewManualClock(spec.StartTime),
		ledger:   custody.NewLedger(l),
		vault:    custody.NewVault(),
		accounts: make(map[string]types.Identity),
		logger:   l,
	}

	identities := []struct {
		value    string
		fallback string
		target   *types.Identity
	}{
		{spec.Admin, "admin", &st.admin},
		{spec.Custody, "custody", &st.custody},
	}
	for _, id := range identities {
		v := id.value
		if v == "" {
			v = id.fallback
		}
		resolved, err := ResolveIdentity(v)
		if err != nil {
			return nil, err
		}
		*id.target = resolved
	}

	contributionToken, err := resolveOrDefault(spec.ContributionToken, "contributionToken")
	if err != nil {
		return nil, err
	}
	offeringToken, err := resolveOrDefault(spec.OfferingToken, "offeringToken")
	if err != nil {
		return nil, err
	}

	st.engine, err = offering.NewEngine(&offering.EngineConfig{
		ContributionToken:    contributionToken,
		OfferingToken:        offeringToken,
		Custody:              st.custody,
		Admin:                st.admin,
		OpenTime:             spec.OpenTime,
		CloseTime:            spec.CloseTime,
		ReleasedPercent:      spec.ReleasedPercent,
		NextReleaseTimestamp: spec.NextReleaseTimestamp,
		NumberPools:          spec.NumberPools,
		PreparationSeconds:   spec.PreparationSeconds,
		FinalWithdrawDelay:   spec.FinalWithdrawDelay,
	}, st.clock, custody.NewSpender(st.ledger, st.custody), r.eventBus, r.metricsSink, l)
	if err != nil {
		return nil, err
	}

	for _, account := range r.scenario.Accounts {
		address := account.Address
		if address == "" {
			address = account.Name
		}
		id, err := ResolveIdentity(address)
		if err != nil {
			return nil, fmt.Errorf("account '%s': %w", account.Name, err)
		}
		st.accounts[account.Name] = id

		if account.Contribution != "" {
			amount, err := fixedPoint.ParseUnits(account.Contribution, spec.contributionDecimals())
			if err != nil {
				return nil, fmt.Errorf("account '%s' contribution: %w", account.Name, err)
			}
			if err := st.ledger.Mint(contributionToken, id, amount); err != nil {
				return nil, err
			}
			if err := st.ledger.Approve(contributionToken, id, st.custody, custody.MaxAllowance); err != nil {
				return nil, err
			}
		}
		if account.Vault != "" {
			amount, err := fixedPoint.ParseUnits(account.Vault, spec.vaultDecimals())
			if err != nil {
				return nil, fmt.Errorf("account '%s' vault: %w", account.Name, err)
			}
			if err := st.vault.Deposit(id, amount); err != nil {
				return nil, err
			}
		}
	}
	return st, nil
}

func resolveOrDefault(value string, fallback string) (types.Identity, error) {
	if value == "" {
		value = fallback
	}
	return ResolveIdentity(value)
}

// caller resolves a step caller: an account name, "admin", or a hex address.
func (st *run) caller(step *Step) (types.Identity, error) {
	switch step.Caller {
	case "", "admin":
		return st.admin, nil
	}
	if id, ok := st.accounts[step.Caller]; ok {
		return id, nil
	}
	return ResolveIdentity(step.Caller)
}

func (st *run) contributionUnits(s string) (*big.Int, error) {
	if s == "" {
		return fixedPoint.Zero(), nil
	}
	return fixedPoint.ParseUnits(s, st.scenario.Offering.contributionDecimals())
}

func (st *run) offeringUnits(s string) (*big.Int, error) {
	if s == "" {
		return fixedPoint.Zero(), nil
	}
	return fixedPoint.ParseUnits(s, st.scenario.Offering.offeringDecimals())
}

func (st *run) target(to string) (types.Timestamp, error) {
	spec := &st.scenario.Offering
	finalWithdrawDelay := spec.FinalWithdrawDelay
	if finalWithdrawDelay == 0 {
		finalWithdrawDelay = lifecycle.DefaultFinalWithdrawDelay
	}
	switch to {
	case Target_Open:
		return spec.OpenTime, nil
	case Target_Close:
		return spec.CloseTime, nil
	case Target_Harvest:
		return spec.CloseTime + st.engine.PrepPeriod(), nil
	case Target_Settled:
		return spec.CloseTime + finalWithdrawDelay, nil
	}
	ts, err := strconv.ParseUint(to, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid advanceTo target '%s'", to)
	}
	return ts, nil
}

func (st *run) execute(index int, step *Step) (*StepResult, error) {
	caller, err := st.caller(step)
	if err != nil {
		return nil, err
	}
	result := &StepResult{
		Index:  index,
		Action: step.Action,
		Caller: caller.Hex(),
	}

	opErr := st.apply(step, caller, result)
	// Errors without a ledger code come from the scenario itself, not the engine.
	if opErr != nil && types.CodeOf(opErr) == "" {
		return nil, opErr
	}
	result.Timestamp = st.clock.Now()
	result.ErrorCode = types.CodeOf(opErr)

	switch {
	case step.ExpectError == "" && opErr != nil:
		return nil, opErr
	case step.ExpectError != "" && opErr == nil:
		return nil, fmt.Errorf("expected %s, got success", step.ExpectError)
	case step.ExpectError != "" && result.ErrorCode != step.ExpectError:
		return nil, fmt.Errorf("expected %s, got %w", step.ExpectError, opErr)
	}

	if opErr == nil && result.Harvest != nil {
		if err := st.checkHarvest(step, result.Harvest); err != nil {
			return nil, err
		}
	}
	st.logger.Sugar().Debugw("Scenario step",
		zap.Int("step", index),
		zap.String("action", step.Action),
		zap.String("caller", result.Caller),
		zap.String("errorCode", result.ErrorCode),
	)
	return result, nil
}

func (st *run) apply(step *Step, caller types.Identity, result *StepResult) error {
	e := st.engine

	switch step.Action {
	case Action_SetPool:
		offeringAmount, err := st.offeringUnits(step.OfferingAmount)
		if err != nil {
			return err
		}
		raisingAmount, err := st.contributionUnits(step.RaisingAmount)
		if err != nil {
			return err
		}
		limit, err := st.contributionUnits(step.Limit)
		if err != nil {
			return err
		}
		return e.SetPool(caller, step.Pool, offeringAmount, raisingAmount, limit, step.HasTax)

	case Action_SetPrepPeriod:
		return e.SetPrepPeriod(caller, step.Seconds)

	case Action_SetVault:
		if step.Enabled != nil && !*step.Enabled {
			return e.SetVault(caller, nil)
		}
		return e.SetVault(caller, st.vault)

	case Action_SetMinVaultBalance:
		amount, err := fixedPoint.ParseUnits(step.Amount, st.scenario.Offering.vaultDecimals())
		if err != nil {
			return err
		}
		return e.SetMinVaultBalance(caller, amount)

	case Action_Advance:
		st.clock.Advance(step.Seconds)
		return nil

	case Action_AdvanceTo:
		ts, err := st.target(step.To)
		if err != nil {
			return err
		}
		st.clock.Set(ts)
		return nil

	case Action_Deposit:
		amount, err := st.contributionUnits(step.Amount)
		if err != nil {
			return err
		}
		return e.DepositPool(caller, step.Pool, amount)

	case Action_Harvest:
		harvest, err := e.HarvestPool(caller, step.Pool)
		result.Harvest = harvest
		return err

	case Action_ReleaseTokens:
		return e.ReleaseTokens(caller, step.Percent, step.NextRelease)

	case Action_WithdrawRaised:
		raised, err := e.WithdrawRaised(caller)
		result.Raised = raised
		return err

	case Action_FinalWithdraw:
		contributionAmount, err := st.contributionUnits(step.ContributionAmount)
		if err != nil {
			return err
		}
		offeringAmount, err := st.offeringUnits(step.OfferingAmount)
		if err != nil {
			return err
		}
		return e.FinalWithdraw(caller, contributionAmount, offeringAmount)

	case Action_FundOffering:
		amount, err := st.offeringUnits(step.Amount)
		if err != nil {
			return err
		}
		return st.ledger.Mint(e.OfferingToken(), st.custody, amount)
	}
	return fmt.Errorf("unknown action '%s'", step.Action)
}

func (st *run) checkHarvest(step *Step, harvest *offering.HarvestResult) error {
	checks := []struct {
		expected string
		actual   *big.Int
		parse    func(string) (*big.Int, error)
		name     string
	}{
		{step.ExpectOffering, harvest.OfferingAmount, st.offeringUnits, "offering"},
		{step.ExpectRefund, harvest.RefundAmount, st.contributionUnits, "refund"},
	}
	for _, c := range checks {
		if c.expected == "" {
			continue
		}
		expected, err := c.parse(c.expected)
		if err != nil {
			return err
		}
		if expected.Cmp(c.actual) != 0 {
			return fmt.Errorf("expected %s amount %s, got %s", c.name, expected.String(), c.actual.String())
		}
	}
	return nil
}
