package ledgertest

import (
	"errors"
	"fmt"

	"github.com/roach88/sanctum"
)

// ErrInsufficientFunds is returned by withdrawals that would overdraw.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Account is a guarded type: its balance and history live in the vault,
// invisible outside this package.
type Account struct {
	sanctum.Vault
	bank  *Bank
	Owner string
}

// NewAccount opens an account with the opening balance.
func (b *Bank) NewAccount(owner string) (*Account, error) {
	a := &Account{bank: b, Owner: owner}
	acc, err := b.account.Open(a)
	if err != nil {
		return nil, err
	}
	if err := acc.Set("balance", openingBalance); err != nil {
		return nil, err
	}
	if err := acc.Set("history", []string{}); err != nil {
		return nil, err
	}
	return a, nil
}

// Balance reads the private balance.
func (a *Account) Balance() (int, error) {
	acc, err := a.bank.account.Open(a)
	if err != nil {
		return 0, err
	}
	val, err := acc.Get("balance")
	if err != nil {
		return 0, err
	}
	return val.(int), nil
}

// Deposit adds amount to the balance and records it in the history.
func (a *Account) Deposit(amount int) error {
	acc, err := a.bank.account.Open(a)
	if err != nil {
		return err
	}
	val, err := acc.Get("balance")
	if err != nil {
		return err
	}
	if err := acc.Set("balance", val.(int)+amount); err != nil {
		return err
	}
	return a.record(acc, fmt.Sprintf("deposit %d", amount))
}

// Withdraw removes amount from the balance, refusing to overdraw.
func (a *Account) Withdraw(amount int) error {
	acc, err := a.bank.account.Open(a)
	if err != nil {
		return err
	}
	val, err := acc.Get("balance")
	if err != nil {
		return err
	}
	balance := val.(int)
	if amount > balance {
		return fmt.Errorf("withdraw %d from %d: %w", amount, balance, ErrInsufficientFunds)
	}
	if err := acc.Set("balance", balance-amount); err != nil {
		return err
	}
	return a.record(acc, fmt.Sprintf("withdraw %d", amount))
}

// History returns a copy of the transaction history.
func (a *Account) History() ([]string, error) {
	acc, err := a.bank.account.Open(a)
	if err != nil {
		return nil, err
	}
	val, err := acc.Get("history")
	if err != nil {
		return nil, err
	}
	entries := val.([]string)
	out := make([]string, len(entries))
	copy(out, entries)
	return out, nil
}

func (a *Account) record(acc *sanctum.Access, entry string) error {
	val, err := acc.Get("history")
	if err != nil {
		return err
	}
	return acc.Set("history", append(val.([]string), entry))
}

// WriteOff removes the stored balance. Later reads fall back to the
// registered opening-balance default.
func (a *Account) WriteOff() error {
	acc, err := a.bank.account.Open(a)
	if err != nil {
		return err
	}
	return acc.Delete("balance")
}

// Close releases the account's private storage.
func (a *Account) Close() error {
	return a.Vault.Close()
}

// CheckingAccount extends Account with an overdraft allowance. It exists
// alongside SavingsAccount so sibling isolation is observable: neither
// subtype reaches the other's declarations.
type CheckingAccount struct {
	Account
}

// NewCheckingAccount opens a checking account with the given overdraft
// allowance.
func (b *Bank) NewCheckingAccount(owner string, overdraft int) (*CheckingAccount, error) {
	c := &CheckingAccount{Account: Account{bank: b, Owner: owner}}
	acc, err := b.checking.Open(c)
	if err != nil {
		return nil, err
	}
	if err := acc.Set("balance", openingBalance); err != nil {
		return nil, err
	}
	if err := acc.Set("history", []string{}); err != nil {
		return nil, err
	}
	if err := acc.Set("overdraft", overdraft); err != nil {
		return nil, err
	}
	return c, nil
}

// Withdraw allows the balance to go negative up to the overdraft
// allowance.
func (c *CheckingAccount) Withdraw(amount int) error {
	acc, err := c.bank.checking.Open(c)
	if err != nil {
		return err
	}
	balVal, err := acc.Get("balance")
	if err != nil {
		return err
	}
	odVal, err := acc.Get("overdraft")
	if err != nil {
		return err
	}
	balance, overdraft := balVal.(int), odVal.(int)
	if amount > balance+overdraft {
		return fmt.Errorf("withdraw %d from %d with overdraft %d: %w", amount, balance, overdraft, ErrInsufficientFunds)
	}
	if err := acc.Set("balance", balance-amount); err != nil {
		return err
	}
	return c.record(acc, fmt.Sprintf("withdraw %d", amount))
}
