// Package scenario replays a scripted offering from a YAML file against an in-memory
// custody ledger and a manual clock.
package scenario

import (
	"fmt"
	"os"

	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	Action_SetPool            = "setPool"
	Action_SetPrepPeriod      = "setPrepPeriod"
	Action_SetVault           = "setVault"
	Action_SetMinVaultBalance = "setMinVaultBalance"
	Action_Advance            = "advance"
	Action_AdvanceTo          = "advanceTo"
	Action_Deposit            = "deposit"
	Action_Harvest            = "harvest"
	Action_ReleaseTokens      = "releaseTokens"
	Action_WithdrawRaised     = "withdrawRaised"
	Action_FinalWithdraw      = "finalWithdraw"
	Action_FundOffering       = "fundOffering"
)

var validActions = map[string]bool{
	Action_SetPool:            true,
	Action_SetPrepPeriod:      true,
	Action_SetVault:           true,
	Action_SetMinVaultBalance: true,
	Action_Advance:            true,
	Action_AdvanceTo:          true,
	Action_Deposit:            true,
	Action_Harvest:            true,
	Action_ReleaseTokens:      true,
	Action_WithdrawRaised:     true,
	Action_FinalWithdraw:      true,
	Action_FundOffering:       true,
}

// Targets accepted by advanceTo, besides a literal timestamp.
const (
	Target_Open    = "open"
	Target_Close   = "close"
	Target_Harvest = "harvest"
	Target_Settled = "settled"
)

const defaultDecimals = 18

type Scenario struct {
	Name     string         `yaml:"name"`
	Offering OfferingSpec   `yaml:"offering"`
	Accounts []*AccountSpec `yaml:"accounts"`
	Steps    []*Step        `yaml:"steps"`
}

// OfferingSpec mirrors offering.EngineConfig. Identities are either hex addresses or
// short names, see ResolveIdentity.
type OfferingSpec struct {
	ContributionToken    string `yaml:"contribution_token"`
	OfferingToken        string `yaml:"offering_token"`
	ContributionDecimals *int32 `yaml:"contribution_decimals"`
	OfferingDecimals     *int32 `yaml:"offering_decimals"`
	VaultDecimals        *int32 `yaml:"vault_decimals"`
	Admin                string `yaml:"admin"`
	Custody              string `yaml:"custody"`
	StartTime            uint64 `yaml:"start_time"`
	OpenTime             uint64 `yaml:"open_time"`
	CloseTime            uint64 `yaml:"close_time"`
	ReleasedPercent      uint64 `yaml:"released_percent"`
	NextReleaseTimestamp uint64 `yaml:"next_release_timestamp"`
	NumberPools          int    `yaml:"number_pools"`
	PreparationSeconds   uint64 `yaml:"preparation_seconds"`
	FinalWithdrawDelay   uint64 `yaml:"final_withdraw_delay"`
}

type AccountSpec struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	// Contribution is minted to the account and approved for the custody account.
	Contribution string `yaml:"contribution"`
	Vault        string `yaml:"vault"`
}

type Step struct {
	Action string `yaml:"action"`
	Caller string `yaml:"caller"`
	Pool   uint8  `yaml:"pool"`
	Amount string `yaml:"amount"`

	OfferingAmount     string `yaml:"offering_amount"`
	RaisingAmount      string `yaml:"raising_amount"`
	Limit              string `yaml:"limit"`
	HasTax             bool   `yaml:"has_tax"`
	ContributionAmount string `yaml:"contribution_amount"`

	Seconds     uint64 `yaml:"seconds"`
	To          string `yaml:"to"`
	Percent     uint64 `yaml:"percent"`
	NextRelease uint64 `yaml:"next_release"`
	Enabled     *bool  `yaml:"enabled"`

	ExpectError    string `yaml:"expect_error"`
	ExpectOffering string `yaml:"expect_offering"`
	ExpectRefund   string `yaml:"expect_refund"`
}

func (o *OfferingSpec) contributionDecimals() int32 {
	return decimalsOrDefault(o.ContributionDecimals)
}

func (o *OfferingSpec) offeringDecimals() int32 {
	return decimalsOrDefault(o.OfferingDecimals)
}

func (o *OfferingSpec) vaultDecimals() int32 {
	return decimalsOrDefault(o.VaultDecimals)
}

// TokenDecimals returns the contribution and offering token decimals.
func (o *OfferingSpec) TokenDecimals() (int32, int32) {
	return o.contributionDecimals(), o.offeringDecimals()
}

func decimalsOrDefault(d *int32) int32 {
	if d == nil {
		return defaultDecimals
	}
	return *d
}

// ResolveIdentity parses s as a hex address, or derives an address from a name of at
// most 20 bytes by right aligning its bytes.
func ResolveIdentity(s string) (types.Identity, error) {
	if types.IsHexIdentity(s) {
		return types.HexToIdentity(s), nil
	}
	if s == "" || len(s) > gethcommon.AddressLength {
		return types.ZeroIdentity, fmt.Errorf("invalid identity '%s'", s)
	}
	return gethcommon.BytesToAddress([]byte(s)), nil
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario '%s': %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the scenario's shape. Amounts and identities are checked when the
// scenario runs.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		s.Name = "scenario"
	}
	if s.Offering.ReleasedPercent == 0 {
		s.Offering.ReleasedPercent = 100
	}
	if s.Offering.NextReleaseTimestamp == 0 {
		s.Offering.NextReleaseTimestamp = s.Offering.CloseTime + 1
	}

	names := make(map[string]bool, len(s.Accounts))
	for _, a := range s.Accounts {
		if a.Name == "" {
			return fmt.Errorf("account without a name")
		}
		if names[a.Name] {
			return fmt.Errorf("duplicate account '%s'", a.Name)
		}
		names[a.Name] = true
	}

	for i, step := range s.Steps {
		if !validActions[step.Action] {
			return fmt.Errorf("step %d: unknown action '%s'", i, step.Action)
		}
		if step.ExpectError != "" {
			if _, ok := types.ErrorByCode(step.ExpectError); !ok {
				return fmt.Errorf("step %d: unknown error code '%s'", i, step.ExpectError)
			}
		}
		if step.Action == Action_AdvanceTo && step.To == "" {
			return fmt.Errorf("step %d: advanceTo requires 'to'", i)
		}
	}
	return nil
}
