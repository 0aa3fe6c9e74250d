// Package stateRoot computes a deterministic commitment over an offering's state.
//
// The state is flattened into slots, one for the offering settings, one per pool and one
// per user position, and each slot becomes a keccak256 merkle leaf ordered by slot id.
package stateRoot

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/Layr-Labs/offering-ledger/pkg/offering"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/contributionLedger"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/poolRegistry"
	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/wealdtech/go-merkletree/v2"
	"github.com/wealdtech/go-merkletree/v2/keccak256"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type SlotID string

const (
	slotPrefix_Offering = "offering"
	slotPrefix_Pool     = "pool"
	slotPrefix_Position = "position"
)

type StateRoot string

type MerkleTreeInput struct {
	SlotID SlotID
	Value  []byte
}

func NewOfferingSlotID() SlotID {
	return SlotID(slotPrefix_Offering)
}

func NewPoolSlotID(poolId types.PoolId) SlotID {
	return SlotID(fmt.Sprintf("%s_%03d", slotPrefix_Pool, poolId))
}

// NewPositionSlotID uses the lowercase address so slot order matches byte order.
func NewPositionSlotID(user types.Identity, poolId types.PoolId) SlotID {
	return SlotID(fmt.Sprintf("%s_%s_%03d", slotPrefix_Position, strings.ToLower(user.Hex()), poolId))
}

// baseLeaf ties the tree to the offering's immutable parameters and guarantees at least
// one leaf.
func baseLeaf(state *offering.OfferingState) []byte {
	return []byte(fmt.Sprintf("%s_%s_%d_%d",
		strings.ToLower(state.ContributionToken.Hex()),
		strings.ToLower(state.OfferingToken.Hex()),
		state.OpenTime,
		state.CloseTime,
	))
}

func encodeOffering(state *offering.OfferingState) []byte {
	return []byte(fmt.Sprintf("%s_%s_%d_%d_%d_%d_%t_%t_%s",
		strings.ToLower(state.Custody.Hex()),
		strings.ToLower(state.Admin.Hex()),
		state.PreparationSeconds,
		state.FinalWithdrawDelay,
		state.ReleasedPercent,
		state.NextReleaseTimestamp,
		state.RaisedWithdrawn,
		state.HasVault,
		amountString(state.MinVaultBalance),
	))
}

func encodePool(pool *poolRegistry.Pool) []byte {
	return []byte(fmt.Sprintf("%s_%s_%s_%t_%s",
		amountString(pool.OfferingAmount),
		amountString(pool.RaisingAmount),
		amountString(pool.PerUserLimit),
		pool.HasTax,
		amountString(pool.TotalContributed),
	))
}

func encodePosition(position *contributionLedger.UserPosition) []byte {
	return []byte(fmt.Sprintf("%s_%s_%t",
		amountString(position.AmountContributed),
		amountString(position.ClaimedOfferingAmount),
		position.HasHarvested,
	))
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Inputs flattens state into sorted merkle inputs. Unconfigured empty pools are skipped.
func Inputs(state *offering.OfferingState) []*MerkleTreeInput {
	inputs := []*MerkleTreeInput{
		{SlotID: NewOfferingSlotID(), Value: encodeOffering(state)},
	}
	for i, pool := range state.Pools {
		if !pool.IsConfigured() {
			continue
		}
		inputs = append(inputs, &MerkleTreeInput{
			SlotID: NewPoolSlotID(types.PoolId(i)),
			Value:  encodePool(pool),
		})
	}
	for _, record := range state.Positions {
		inputs = append(inputs, &MerkleTreeInput{
			SlotID: NewPositionSlotID(record.User, record.PoolId),
			Value:  encodePosition(record.Position),
		})
	}
	sort.SliceStable(inputs, func(i, j int) bool {
		return inputs[i].SlotID < inputs[j].SlotID
	})
	return inputs
}

// MerkleizeState creates a merkle tree from inputs, which must be sorted by slot id
// without duplicates.
func MerkleizeState(state *offering.OfferingState, inputs []*MerkleTreeInput) (*merkletree.MerkleTree, error) {
	om := orderedmap.New[SlotID, []byte]()

	for _, input := range inputs {
		_, found := om.Get(input.SlotID)
		if found {
			return nil, fmt.Errorf("duplicate slotID %s", input.SlotID)
		}
		om.Set(input.SlotID, input.Value)

		prev := om.GetPair(input.SlotID).Prev()
		if prev != nil && prev.Key > input.SlotID {
			om.Delete(input.SlotID)
			return nil, errors.New("slotIDs are not in order")
		}
	}

	leaves := [][]byte{baseLeaf(state)}
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		leaves = append(leaves, encodeMerkleLeaf(pair.Key, pair.Value))
	}
	return merkletree.NewTree(
		merkletree.WithData(leaves),
		merkletree.WithHashType(keccak256.New()),
	)
}

func encodeMerkleLeaf(slotID SlotID, value []byte) []byte {
	return append([]byte(slotID), value...)
}

// Compute returns the 0x prefixed root of state.
func Compute(state *offering.OfferingState) (StateRoot, error) {
	tree, err := MerkleizeState(state, Inputs(state))
	if err != nil {
		return "", err
	}
	return StateRoot(gethcommon.BytesToHash(tree.Root()).Hex()), nil
}
