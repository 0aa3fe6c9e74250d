// Package types holds the identifiers, collaborator interfaces and error taxonomy
// shared by every offering ledger component.
package types

import (
	"math/big"
	"strings"

	gethcommon "github.com/ethereum/go-ethereum/common"
)

// Identity identifies a participant, the admin, a token or the engine's own custody account.
type Identity = gethcommon.Address

// Timestamp is a unix timestamp in seconds.
type Timestamp = uint64

// PoolId is the index of a pool within an offering.
type PoolId = uint8

// MaxNumberPools is the size of the pool index space.
const MaxNumberPools = 256

// ZeroIdentity is the null address.
var ZeroIdentity = Identity{}

// HexToIdentity parses a 0x prefixed hex address.
func HexToIdentity(s string) Identity {
	return gethcommon.HexToAddress(strings.TrimSpace(s))
}

func IsHexIdentity(s string) bool {
	return gethcommon.IsHexAddress(strings.TrimSpace(s))
}

// Clock supplies the current time. Implementations must be monotonic non-decreasing.
type Clock interface {
	Now() Timestamp
}

// AssetTransfer moves tokens between participants and the engine's custody account.
//
// TransferIn pulls amount of token from an account that has approved the engine.
// TransferOut pays amount of token from the engine's custody to an account.
// A failed transfer must leave every balance untouched.
type AssetTransfer interface {
	TransferIn(token Identity, from Identity, amount *big.Int) error
	TransferOut(token Identity, to Identity, amount *big.Int) error
	BalanceOf(token Identity, holder Identity) *big.Int
}

// EligibilityOracle reports the external balance used to gate participation.
type EligibilityOracle interface {
	BalanceOf(user Identity) (*big.Int, error)
}

// ManualClock is a Clock driven explicitly by its owner.
type ManualClock struct {
	now Timestamp
}

func NewManualClock(now Timestamp) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() Timestamp {
	return c.now
}

// Advance moves the clock forward by seconds.
func (c *ManualClock) Advance(seconds uint64) {
	c.now += seconds
}

// Set moves the clock to ts. Moving backwards is ignored.
func (c *ManualClock) Set(ts Timestamp) {
	if ts > c.now {
		c.now = ts
	}
}
