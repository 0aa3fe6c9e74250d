// Package report renders offering positions and pools as CSV.
package report

import (
	"fmt"
	"io"
	"math/big"

	"github.com/Layr-Labs/offering-ledger/pkg/fixedPoint"
	"github.com/Layr-Labs/offering-ledger/pkg/offering"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/allocation"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/poolRegistry"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	"github.com/gocarina/gocsv"
)

// PositionReader is the read side of the engine used for reports.
type PositionReader interface {
	NumberPools() int
	ViewUserInfo(user types.Identity, poolIds []types.PoolId) ([]*offering.UserInfo, error)
	ViewUserOfferingAndRefundingAmountsForPools(user types.Identity, poolIds []types.PoolId) ([]*allocation.Amounts, error)
	ClaimableTokens(user types.Identity, poolIds []types.PoolId) ([]*big.Int, error)
	ViewPoolInformation(poolId types.PoolId) (*poolRegistry.PoolInformation, error)
	ViewPoolTotalContributed(poolId types.PoolId) (*big.Int, error)
}

type ReportConfig struct {
	ContributionDecimals int32
	OfferingDecimals     int32
}

type PositionRow struct {
	User         string `csv:"user"`
	Label        string `csv:"label"`
	PoolId       uint8  `csv:"pool_id"`
	Contributed  string `csv:"contributed"`
	OfferingOwed string `csv:"offering_owed"`
	Claimed      string `csv:"claimed"`
	Claimable    string `csv:"claimable"`
	Refunding    string `csv:"refunding"`
	Tax          string `csv:"tax"`
	Harvested    bool   `csv:"harvested"`
}

type PoolRow struct {
	PoolId           uint8  `csv:"pool_id"`
	OfferingAmount   string `csv:"offering_amount"`
	RaisingAmount    string `csv:"raising_amount"`
	PerUserLimit     string `csv:"per_user_limit"`
	HasTax           bool   `csv:"has_tax"`
	TotalContributed string `csv:"total_contributed"`
}

// User is a participant to report on. Label is free text, usually an account name.
type User struct {
	Label    string
	Identity types.Identity
}

func allPools(r PositionReader) []types.PoolId {
	ids := make([]types.PoolId, r.NumberPools())
	for i := range ids {
		ids[i] = types.PoolId(i)
	}
	return ids
}

// PositionRows returns one row per user and pool with a non-zero contribution.
func PositionRows(r PositionReader, users []*User, cfg *ReportConfig) ([]*PositionRow, error) {
	poolIds := allPools(r)
	rows := make([]*PositionRow, 0)

	for _, u := range users {
		infos, err := r.ViewUserInfo(u.Identity, poolIds)
		if err != nil {
			return nil, fmt.Errorf("failed to read positions of %s: %w", u.Identity.Hex(), err)
		}
		amounts, err := r.ViewUserOfferingAndRefundingAmountsForPools(u.Identity, poolIds)
		if err != nil {
			return nil, fmt.Errorf("failed to read amounts of %s: %w", u.Identity.Hex(), err)
		}
		claimable, err := r.ClaimableTokens(u.Identity, poolIds)
		if err != nil {
			return nil, fmt.Errorf("failed to read claimable tokens of %s: %w", u.Identity.Hex(), err)
		}

		for i, info := range infos {
			if !fixedPoint.IsPositive(info.AmountContributed) {
				continue
			}
			rows = append(rows, &PositionRow{
				User:         u.Identity.Hex(),
				Label:        u.Label,
				PoolId:       info.PoolId,
				Contributed:  fixedPoint.FormatUnits(info.AmountContributed, cfg.ContributionDecimals),
				OfferingOwed: fixedPoint.FormatUnits(amounts[i].OfferingOwed, cfg.OfferingDecimals),
				Claimed:      fixedPoint.FormatUnits(info.ClaimedOfferingAmount, cfg.OfferingDecimals),
				Claimable:    fixedPoint.FormatUnits(claimable[i], cfg.OfferingDecimals),
				Refunding:    fixedPoint.FormatUnits(amounts[i].Refunding, cfg.ContributionDecimals),
				Tax:          fixedPoint.FormatUnits(amounts[i].Tax, cfg.ContributionDecimals),
				Harvested:    info.HasHarvested,
			})
		}
	}
	return rows, nil
}

func PoolRows(r PositionReader, cfg *ReportConfig) ([]*PoolRow, error) {
	rows := make([]*PoolRow, 0, r.NumberPools())
	for _, poolId := range allPools(r) {
		info, err := r.ViewPoolInformation(poolId)
		if err != nil {
			return nil, err
		}
		total, err := r.ViewPoolTotalContributed(poolId)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &PoolRow{
			PoolId:           poolId,
			OfferingAmount:   fixedPoint.FormatUnits(info.OfferingAmount, cfg.OfferingDecimals),
			RaisingAmount:    fixedPoint.FormatUnits(info.RaisingAmount, cfg.ContributionDecimals),
			PerUserLimit:     fixedPoint.FormatUnits(info.PerUserLimit, cfg.ContributionDecimals),
			HasTax:           info.HasTax,
			TotalContributed: fixedPoint.FormatUnits(total, cfg.ContributionDecimals),
		})
	}
	return rows, nil
}

func WritePositions(w io.Writer, r PositionReader, users []*User, cfg *ReportConfig) error {
	rows, err := PositionRows(r, users, cfg)
	if err != nil {
		return err
	}
	return gocsv.Marshal(rows, w)
}

func WritePools(w io.Writer, r PositionReader, cfg *ReportConfig) error {
	rows, err := PoolRows(r, cfg)
	if err != nil {
		return err
	}
	return gocsv.Marshal(rows, w)
}
