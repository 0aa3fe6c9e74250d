package custody

import (
	"math/big"

	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
)

// Spender is the types.AssetTransfer view of a Ledger for a single custody account.
type Spender struct {
	ledger  *Ledger
	account types.Identity
}

func NewSpender(ledger *Ledger, account types.Identity) *Spender {
	return &Spender{
		ledger:  ledger,
		account: account,
	}
}

func (s *Spender) Account() types.Identity {
	return s.account
}

// TransferIn pulls amount from an owner that approved the custody account.
func (s *Spender) TransferIn(token types.Identity, from types.Identity, amount *big.Int) error {
	return s.ledger.TransferFrom(token, s.account, from, s.account, amount)
}

func (s *Spender) TransferOut(token types.Identity, to types.Identity, amount *big.Int) error {
	return s.ledger.Transfer(token, s.account, to, amount)
}

func (s *Spender) BalanceOf(token types.Identity, holder types.Identity) *big.Int {
	return s.ledger.BalanceOf(token, holder)
}
