// Package storage persists offering state snapshots.
//
// A snapshot is split into one offering record, one record per pool slot and one record
// per user position. Amounts are stored as base-10 strings. Every snapshot carries the
// version that wrote it and the state root at the time of writing, both checked on load.
package storage

import (
	"math/big"

	"github.com/Layr-Labs/offering-ledger/pkg/offering"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/contributionLedger"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/poolRegistry"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/Layr-Labs/offering-ledger/pkg/stateRoot"
	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

var (
	ErrStateNotFound       = errors.New("offering state not found")
	ErrIncompatibleVersion = errors.New("snapshot written by an incompatible version")
	ErrStateRootMismatch   = errors.New("stored state root does not match stored state")
)

type StateStore interface {
	SaveRecords(records *Records) error
	LoadRecords() (*Records, error)
	Close() error
}

type OfferingRecord struct {
	OfferingId           string `json:"offeringId" gorm:"primaryKey"`
	Version              string `json:"version"`
	StateRoot            string `json:"stateRoot"`
	ContributionToken    string `json:"contributionToken"`
	OfferingToken        string `json:"offeringToken"`
	Custody              string `json:"custody"`
	Admin                string `json:"admin"`
	OpenTime             uint64 `json:"openTime"`
	CloseTime            uint64 `json:"closeTime"`
	PreparationSeconds   uint64 `json:"preparationSeconds"`
	FinalWithdrawDelay   uint64 `json:"finalWithdrawDelay"`
	ReleasedPercent      uint64 `json:"releasedPercent"`
	NextReleaseTimestamp uint64 `json:"nextReleaseTimestamp"`
	RaisedWithdrawn      bool   `json:"raisedWithdrawn"`
	HasVault             bool   `json:"hasVault"`
	MinVaultBalance      string `json:"minVaultBalance"`
	NumberPools          int    `json:"numberPools"`
}

func (OfferingRecord) TableName() string {
	return "offerings"
}

type PoolRecord struct {
	OfferingId       string `json:"offeringId" gorm:"primaryKey"`
	PoolId           uint8  `json:"poolId" gorm:"primaryKey;autoIncrement:false"`
	OfferingAmount   string `json:"offeringAmount"`
	RaisingAmount    string `json:"raisingAmount"`
	PerUserLimit     string `json:"perUserLimit"`
	HasTax           bool   `json:"hasTax"`
	TotalContributed string `json:"totalContributed"`
}

func (PoolRecord) TableName() string {
	return "offering_pools"
}

type PositionRecord struct {
	OfferingId            string `json:"offeringId" gorm:"primaryKey"`
	UserAddress           string `json:"userAddress" gorm:"primaryKey"`
	PoolId                uint8  `json:"poolId" gorm:"primaryKey;autoIncrement:false"`
	AmountContributed     string `json:"amountContributed"`
	ClaimedOfferingAmount string `json:"claimedOfferingAmount"`
	HasHarvested          bool   `json:"hasHarvested"`
}

func (PositionRecord) TableName() string {
	return "user_positions"
}

type Records struct {
	Offering  *OfferingRecord   `json:"offering"`
	Pools     []*PoolRecord     `json:"pools"`
	Positions []*PositionRecord `json:"positions"`
}

// RecordsFromState flattens state into records tagged with offeringId and version.
func RecordsFromState(offeringId string, version string, state *offering.OfferingState) (*Records, error) {
	root, err := stateRoot.Compute(state)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute state root")
	}

	records := &Records{
		Offering: &OfferingRecord{
			OfferingId:           offeringId,
			Version:              version,
			StateRoot:            string(root),
			ContributionToken:    state.ContributionToken.Hex(),
			OfferingToken:        state.OfferingToken.Hex(),
			Custody:              state.Custody.Hex(),
			Admin:                state.Admin.Hex(),
			OpenTime:             state.OpenTime,
			CloseTime:            state.CloseTime,
			PreparationSeconds:   state.PreparationSeconds,
			FinalWithdrawDelay:   state.FinalWithdrawDelay,
			ReleasedPercent:      state.ReleasedPercent,
			NextReleaseTimestamp: state.NextReleaseTimestamp,
			RaisedWithdrawn:      state.RaisedWithdrawn,
			HasVault:             state.HasVault,
			MinVaultBalance:      amountString(state.MinVaultBalance),
			NumberPools:          len(state.Pools),
		},
		Pools:     make([]*PoolRecord, 0, len(state.Pools)),
		Positions: make([]*PositionRecord, 0, len(state.Positions)),
	}
	for i, pool := range state.Pools {
		records.Pools = append(records.Pools, &PoolRecord{
			OfferingId:       offeringId,
			PoolId:           types.PoolId(i),
			OfferingAmount:   amountString(pool.OfferingAmount),
			RaisingAmount:    amountString(pool.RaisingAmount),
			PerUserLimit:     amountString(pool.PerUserLimit),
			HasTax:           pool.HasTax,
			TotalContributed: amountString(pool.TotalContributed),
		})
	}
	for _, p := range state.Positions {
		records.Positions = append(records.Positions, &PositionRecord{
			OfferingId:            offeringId,
			UserAddress:           p.User.Hex(),
			PoolId:                p.PoolId,
			AmountContributed:     amountString(p.Position.AmountContributed),
			ClaimedOfferingAmount: amountString(p.Position.ClaimedOfferingAmount),
			HasHarvested:          p.Position.HasHarvested,
		})
	}
	return records, nil
}

// ToState rebuilds the offering state. Pool records must cover every slot exactly once.
func (r *Records) ToState() (*offering.OfferingState, error) {
	if r.Offering == nil {
		return nil, ErrStateNotFound
	}
	o := r.Offering
	if o.NumberPools <= 0 || o.NumberPools > types.MaxNumberPools {
		return nil, errors.Errorf("number of pools %d out of range", o.NumberPools)
	}

	minVaultBalance, err := parseAmount(o.MinVaultBalance)
	if err != nil {
		return nil, err
	}
	state := &offering.OfferingState{
		ContributionToken:    types.HexToIdentity(o.ContributionToken),
		OfferingToken:        types.HexToIdentity(o.OfferingToken),
		Custody:              types.HexToIdentity(o.Custody),
		Admin:                types.HexToIdentity(o.Admin),
		OpenTime:             o.OpenTime,
		CloseTime:            o.CloseTime,
		PreparationSeconds:   o.PreparationSeconds,
		FinalWithdrawDelay:   o.FinalWithdrawDelay,
		ReleasedPercent:      o.ReleasedPercent,
		NextReleaseTimestamp: o.NextReleaseTimestamp,
		RaisedWithdrawn:      o.RaisedWithdrawn,
		HasVault:             o.HasVault,
		MinVaultBalance:      minVaultBalance,
		Pools:                make([]*poolRegistry.Pool, o.NumberPools),
		Positions:            make([]*contributionLedger.PositionRecord, 0, len(r.Positions)),
	}

	for _, p := range r.Pools {
		if int(p.PoolId) >= o.NumberPools {
			return nil, errors.Errorf("pool %d out of range for %d pools", p.PoolId, o.NumberPools)
		}
		if state.Pools[p.PoolId] != nil {
			return nil, errors.Errorf("duplicate pool %d", p.PoolId)
		}
		pool, err := p.toPool()
		if err != nil {
			return nil, errors.Wrapf(err, "pool %d", p.PoolId)
		}
		state.Pools[p.PoolId] = pool
	}
	for i, pool := range state.Pools {
		if pool == nil {
			return nil, errors.Errorf("missing pool %d", i)
		}
	}

	for _, p := range r.Positions {
		if !types.IsHexIdentity(p.UserAddress) {
			return nil, errors.Errorf("invalid user address '%s'", p.UserAddress)
		}
		position, err := p.toPosition()
		if err != nil {
			return nil, errors.Wrapf(err, "position %s/%d", p.UserAddress, p.PoolId)
		}
		state.Positions = append(state.Positions, &contributionLedger.PositionRecord{
			PositionKey: contributionLedger.PositionKey{
				User:   types.HexToIdentity(p.UserAddress),
				PoolId: p.PoolId,
			},
			Position: position,
		})
	}
	contributionLedger.SortRecords(state.Positions)
	return state, nil
}

func (p *PoolRecord) toPool() (*poolRegistry.Pool, error) {
	amounts, err := parseAmounts(p.OfferingAmount, p.RaisingAmount, p.PerUserLimit, p.TotalContributed)
	if err != nil {
		return nil, err
	}
	return &poolRegistry.Pool{
		OfferingAmount:   amounts[0],
		RaisingAmount:    amounts[1],
		PerUserLimit:     amounts[2],
		HasTax:           p.HasTax,
		TotalContributed: amounts[3],
	}, nil
}

func (p *PositionRecord) toPosition() (*contributionLedger.UserPosition, error) {
	amounts, err := parseAmounts(p.AmountContributed, p.ClaimedOfferingAmount)
	if err != nil {
		return nil, err
	}
	return &contributionLedger.UserPosition{
		AmountContributed:     amounts[0],
		ClaimedOfferingAmount: amounts[1],
		HasHarvested:          p.HasHarvested,
	}, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("invalid amount '%s'", s)
	}
	return v, nil
}

func parseAmounts(values ...string) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(values))
	for _, s := range values {
		v, err := parseAmount(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// CheckVersionCompatibility rejects snapshots written by a newer major version. Versions
// that are not valid semver, such as development builds, are always accepted.
func CheckVersionCompatibility(snapshotVersion string, runningVersion string) error {
	if !semver.IsValid(snapshotVersion) || !semver.IsValid(runningVersion) {
		return nil
	}
	if semver.Compare(semver.Major(snapshotVersion), semver.Major(runningVersion)) > 0 {
		return errors.Wrapf(ErrIncompatibleVersion, "snapshot %s, running %s", snapshotVersion, runningVersion)
	}
	return nil
}

// SaveState writes state to store and returns its state root.
func SaveState(store StateStore, offeringId string, version string, state *offering.OfferingState) (stateRoot.StateRoot, error) {
	records, err := RecordsFromState(offeringId, version, state)
	if err != nil {
		return "", err
	}
	if err := store.SaveRecords(records); err != nil {
		return "", err
	}
	return stateRoot.StateRoot(records.Offering.StateRoot), nil
}

// LoadState reads, validates and rebuilds the stored state.
func LoadState(store StateStore, runningVersion string) (*offering.OfferingState, error) {
	records, err := store.LoadRecords()
	if err != nil {
		return nil, err
	}
	if err := CheckVersionCompatibility(records.Offering.Version, runningVersion); err != nil {
		return nil, err
	}
	state, err := records.ToState()
	if err != nil {
		return nil, err
	}

	root, err := stateRoot.Compute(state)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute state root")
	}
	if records.Offering.StateRoot != "" && string(root) != records.Offering.StateRoot {
		return nil, errors.Wrapf(ErrStateRootMismatch, "stored %s, computed %s", records.Offering.StateRoot, root)
	}
	return state, nil
}
