package bank

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bricsengine/core/types"
	nativecommon "bricsengine/native/common"
)

// Store persists balances, allowances and supply counters.
type Store interface {
	BankBalance(account common.Address, currency types.Currency) (*big.Int, error)
	PutBankBalance(account common.Address, currency types.Currency, amount *big.Int) error
	BankAllowance(owner, spender common.Address, currency types.Currency) (*big.Int, error)
	PutBankAllowance(owner, spender common.Address, currency types.Currency, amount *big.Int) error
	BankSupply(currency types.Currency) (*big.Int, error)
	PutBankSupply(currency types.Currency, amount *big.Int) error
}

// Ledger is the token ledger the vault and pools settle against. Every method
// either applies fully or returns an error before writing.
type Ledger struct {
	store      Store
	currencies *types.CurrencyTable
}

// NewLedger binds a ledger to store.
func NewLedger(store Store, currencies *types.CurrencyTable) *Ledger {
	return &Ledger{store: store, currencies: currencies}
}

func (l *Ledger) check(currency types.Currency, amount *big.Int, allowZero bool) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("bank: ledger not configured")
	}
	if _, ok := l.currencies.Meta(currency); !ok {
		return fmt.Errorf("bank: %w", nativecommon.ErrUnknownCurrency)
	}
	if amount == nil || amount.Sign() < 0 || (!allowZero && amount.Sign() == 0) {
		return fmt.Errorf("bank: amount must be positive: %w", nativecommon.ErrInvalidInput)
	}
	return nil
}

// BalanceOf returns the balance of account in currency.
func (l *Ledger) BalanceOf(account common.Address, currency types.Currency) (*big.Int, error) {
	if err := l.check(currency, big.NewInt(0), true); err != nil {
		return nil, err
	}
	return l.store.BankBalance(account, currency)
}

// Allowance returns how much spender may pull from owner.
func (l *Ledger) Allowance(owner, spender common.Address, currency types.Currency) (*big.Int, error) {
	if err := l.check(currency, big.NewInt(0), true); err != nil {
		return nil, err
	}
	return l.store.BankAllowance(owner, spender, currency)
}

// TotalSupply returns the circulating supply of currency.
func (l *Ledger) TotalSupply(currency types.Currency) (*big.Int, error) {
	if err := l.check(currency, big.NewInt(0), true); err != nil {
		return nil, err
	}
	return l.store.BankSupply(currency)
}

// Approve replaces the allowance granted by owner to spender.
func (l *Ledger) Approve(owner, spender common.Address, currency types.Currency, amount *big.Int) error {
	if err := l.check(currency, amount, true); err != nil {
		return err
	}
	return l.store.PutBankAllowance(owner, spender, currency, new(big.Int).Set(amount))
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(from, to common.Address, currency types.Currency, amount *big.Int) error {
	if err := l.check(currency, amount, false); err != nil {
		return err
	}
	return l.move(from, to, currency, amount, nativecommon.ErrInsufficientBalance)
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming allowance. A short allowance or balance is reported as
// ErrTransferFailed.
func (l *Ledger) TransferFrom(spender, owner, to common.Address, currency types.Currency, amount *big.Int) error {
	if err := l.check(currency, amount, false); err != nil {
		return err
	}
	allowance, err := l.store.BankAllowance(owner, spender, currency)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("bank: allowance %s below %s: %w", allowance, amount, nativecommon.ErrTransferFailed)
	}
	if err := l.move(owner, to, currency, amount, nativecommon.ErrTransferFailed); err != nil {
		return err
	}
	return l.store.PutBankAllowance(owner, spender, currency, new(big.Int).Sub(allowance, amount))
}

func (l *Ledger) move(from, to common.Address, currency types.Currency, amount *big.Int, shortErr error) error {
	fromBal, err := l.store.BankBalance(from, currency)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("bank: balance %s below %s: %w", fromBal, amount, shortErr)
	}
	if from == to {
		return nil
	}
	toBal, err := l.store.BankBalance(to, currency)
	if err != nil {
		return err
	}
	if err := l.store.PutBankBalance(from, currency, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.store.PutBankBalance(to, currency, new(big.Int).Add(toBal, amount))
}

// Mint credits amount to account and grows supply.
func (l *Ledger) Mint(to common.Address, currency types.Currency, amount *big.Int) error {
	if err := l.check(currency, amount, false); err != nil {
		return err
	}
	bal, err := l.store.BankBalance(to, currency)
	if err != nil {
		return err
	}
	supply, err := l.store.BankSupply(currency)
	if err != nil {
		return err
	}
	if err := l.store.PutBankBalance(to, currency, new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	return l.store.PutBankSupply(currency, new(big.Int).Add(supply, amount))
}

// Burn debits amount from account and shrinks supply.
func (l *Ledger) Burn(from common.Address, currency types.Currency, amount *big.Int) error {
	if err := l.check(currency, amount, false); err != nil {
		return err
	}
	bal, err := l.store.BankBalance(from, currency)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("bank: burn %s exceeds balance %s: %w", amount, bal, nativecommon.ErrInsufficientBalance)
	}
	supply, err := l.store.BankSupply(currency)
	if err != nil {
		return err
	}
	if err := l.store.PutBankBalance(from, currency, new(big.Int).Sub(bal, amount)); err != nil {
		return err
	}
	remaining := new(big.Int).Sub(supply, amount)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	return l.store.PutBankSupply(currency, remaining)
}
