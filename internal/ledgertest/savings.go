package ledgertest

import "fmt"

// SavingsAccount extends Account with an interest rate held in basis
// points. The inherited balance and history resolve through the same
// vault the base methods use.
type SavingsAccount struct {
	Account
}

// NewSavingsAccount opens a savings account at the given rate.
func (b *Bank) NewSavingsAccount(owner string, rateBps int) (*SavingsAccount, error) {
	s := &SavingsAccount{Account: Account{bank: b, Owner: owner}}
	acc, err := b.savings.Open(s)
	if err != nil {
		return nil, err
	}
	if err := acc.Set("balance", openingBalance); err != nil {
		return nil, err
	}
	if err := acc.Set("history", []string{}); err != nil {
		return nil, err
	}
	if err := acc.Set("rate", rateBps); err != nil {
		return nil, err
	}
	return s, nil
}

// Rate reads the private interest rate.
func (s *SavingsAccount) Rate() (int, error) {
	acc, err := s.bank.savings.Open(s)
	if err != nil {
		return 0, err
	}
	val, err := acc.Get("rate")
	if err != nil {
		return 0, err
	}
	return val.(int), nil
}

// AccrueInterest applies one period of interest to the balance. It
// touches the inherited balance and the own rate through one access.
func (s *SavingsAccount) AccrueInterest() error {
	acc, err := s.bank.savings.Open(s)
	if err != nil {
		return err
	}
	rateVal, err := acc.Get("rate")
	if err != nil {
		return err
	}
	balVal, err := acc.Get("balance")
	if err != nil {
		return err
	}
	balance := balVal.(int)
	interest := balance * rateVal.(int) / 10000
	if err := acc.Set("balance", balance+interest); err != nil {
		return err
	}
	return s.record(acc, fmt.Sprintf("interest %d", interest))
}
