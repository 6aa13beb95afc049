package conformance

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/roach88/sanctum"
	"github.com/roach88/sanctum/internal/ledgertest"
	"github.com/roach88/sanctum/internal/testutil"
)

// scenarioEpoch pins every audit timestamp in a conformance run.
var scenarioEpoch = time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)

// account is the method surface shared by the fixture account types.
// SavingsAccount and CheckingAccount satisfy it through promotion, as
// does the public-bag surface every holder inherits from its vault.
type account interface {
	sanctum.Holder
	Balance() (int, error)
	Deposit(amount int) error
	Withdraw(amount int) error
	History() ([]string, error)
	WriteOff() error
	Close() error
	Lookup(name string) (any, error)
	Assign(name string, value any) error
	Remove(name string) error
}

// runner executes scenario steps against one bank installation.
type runner struct {
	realm   *sanctum.Realm
	bank    *ledgertest.Bank
	holders map[string]account
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh realm with the account fixtures
// installed. The realm uses a frozen clock and sequential identities so
// the audit events are reproducible across runs.
func Run(scenario *Scenario) (*Result, error) {
	rec := &collector{}
	realm := sanctum.NewRealm(
		sanctum.WithAuditor(rec),
		sanctum.WithIdentityGenerator(testutil.NewSequentialIdentities("acct")),
		sanctum.WithClock(testutil.FrozenClock(scenarioEpoch)),
	)
	bank, err := ledgertest.Install(realm)
	if err != nil {
		return nil, fmt.Errorf("failed to install account fixtures: %w", err)
	}

	run := &runner{
		realm:   realm,
		bank:    bank,
		holders: make(map[string]account),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		run.exec(i, step, result)
	}
	result.AccessLog = rec.snapshot()
	return result, nil
}

// exec runs one step and records its trace and expectation outcome.
func (r *runner) exec(i int, step Step, result *Result) {
	var (
		value  any
		values []string
		err    error
	)

	switch step.Op {
	case StepNewAccount:
		var acct *ledgertest.Account
		acct, err = r.bank.NewAccount(step.Owner)
		if err == nil {
			r.holders[step.As] = acct
		}
	case StepNewSavings:
		var acct *ledgertest.SavingsAccount
		acct, err = r.bank.NewSavingsAccount(step.Owner, step.Rate)
		if err == nil {
			r.holders[step.As] = acct
		}
	case StepNewChecking:
		var acct *ledgertest.CheckingAccount
		acct, err = r.bank.NewCheckingAccount(step.Owner, step.Overdraft)
		if err == nil {
			r.holders[step.As] = acct
		}
	case StepDeposit:
		var a account
		if a, err = r.account(step.Target); err == nil {
			err = a.Deposit(step.Amount)
		}
	case StepWithdraw:
		var a account
		if a, err = r.account(step.Target); err == nil {
			err = a.Withdraw(step.Amount)
		}
	case StepBalance:
		var a account
		if a, err = r.account(step.Target); err == nil {
			var bal int
			if bal, err = a.Balance(); err == nil {
				value = bal
			}
		}
	case StepHistory:
		var a account
		if a, err = r.account(step.Target); err == nil {
			values, err = a.History()
		}
	case StepRate:
		var s *ledgertest.SavingsAccount
		if s, err = r.savings(step.Target); err == nil {
			var rate int
			if rate, err = s.Rate(); err == nil {
				value = rate
			}
		}
	case StepAccrueInterest:
		var s *ledgertest.SavingsAccount
		if s, err = r.savings(step.Target); err == nil {
			err = s.AccrueInterest()
		}
	case StepWriteOff:
		var a account
		if a, err = r.account(step.Target); err == nil {
			err = a.WriteOff()
		}
	case StepClose:
		var a account
		if a, err = r.account(step.Target); err == nil {
			err = a.Close()
		}
	case StepMarshal:
		var a account
		if a, err = r.account(step.Target); err == nil {
			_, err = json.Marshal(a)
		}
	case StepLookup:
		var a account
		if a, err = r.account(step.Target); err == nil {
			var got any
			if got, err = a.Lookup(step.Attr); err == nil {
				value = got
			}
		}
	case StepAssign:
		var a account
		if a, err = r.account(step.Target); err == nil {
			err = a.Assign(step.Attr, step.Value)
		}
	case StepRemove:
		var a account
		if a, err = r.account(step.Target); err == nil {
			err = a.Remove(step.Attr)
		}
	case StepOutsideGet:
		var a account
		if a, err = r.account(step.Target); err == nil {
			var got any
			if got, err = r.realm.Get(a, step.Attr); err == nil {
				value = got
			}
		}
	case StepOutsideSet:
		var a account
		if a, err = r.account(step.Target); err == nil {
			err = r.realm.Set(a, step.Attr, step.Value)
		}
	case StepOutsideDelete:
		var a account
		if a, err = r.account(step.Target); err == nil {
			err = r.realm.Delete(a, step.Attr)
		}
	case StepOutsideTypeGet:
		var ref sanctum.TypeRef
		if ref, err = typeRefFor(step.TypeName); err == nil {
			var got any
			if got, err = r.realm.TypeGet(ref, step.Attr); err == nil {
				value = got
			}
		}
	case StepOutsideTypeSet:
		var ref sanctum.TypeRef
		if ref, err = typeRefFor(step.TypeName); err == nil {
			err = r.realm.TypeSet(ref, step.Attr, step.Value)
		}
	case StepOutsideTypeDelete:
		var ref sanctum.TypeRef
		if ref, err = typeRefFor(step.TypeName); err == nil {
			err = r.realm.TypeDelete(ref, step.Attr)
		}
	default:
		result.AddError(fmt.Sprintf("steps[%d]: unknown op %q", i, step.Op))
		return
	}

	r.finish(i, step, result, value, values, err)
}

// finish appends the step trace and checks the expect clause.
func (r *runner) finish(i int, step Step, result *Result, value any, values []string, err error) {
	trace := StepTrace{Op: step.Op, Target: step.target(), Attr: step.Attr}
	if err != nil {
		trace.Outcome = OutcomeError
		trace.Code = codeOf(err)
		trace.Error = err.Error()
	} else {
		trace.Outcome = OutcomeOK
		trace.Value = value
		trace.Values = values
	}
	result.Steps = append(result.Steps, trace)

	expect := step.Expect
	if err != nil {
		if expect == nil || expect.Error == "" {
			result.AddError(fmt.Sprintf("steps[%d] (%s): unexpected error: %v", i, step.Op, err))
		} else if expect.Error != trace.Code {
			result.AddError(fmt.Sprintf("steps[%d] (%s): error code = %s, expected %s", i, step.Op, trace.Code, expect.Error))
		}
		return
	}
	if expect == nil {
		return
	}
	if expect.Error != "" {
		result.AddError(fmt.Sprintf("steps[%d] (%s): succeeded, expected error %s", i, step.Op, expect.Error))
		return
	}
	if expect.Value != nil && !reflect.DeepEqual(value, expect.Value) {
		result.AddError(fmt.Sprintf("steps[%d] (%s): value = %v, expected %v", i, step.Op, value, expect.Value))
	}
	if expect.Values != nil && !reflect.DeepEqual(values, expect.Values) {
		result.AddError(fmt.Sprintf("steps[%d] (%s): values = %v, expected %v", i, step.Op, values, expect.Values))
	}
}

// account resolves a bound account label.
func (r *runner) account(label string) (account, error) {
	a, ok := r.holders[label]
	if !ok {
		return nil, fmt.Errorf("no account bound to label %q", label)
	}
	return a, nil
}

// savings resolves a bound label that must be a savings account.
func (r *runner) savings(label string) (*ledgertest.SavingsAccount, error) {
	a, err := r.account(label)
	if err != nil {
		return nil, err
	}
	s, ok := a.(*ledgertest.SavingsAccount)
	if !ok {
		return nil, fmt.Errorf("account %q is not a savings account", label)
	}
	return s, nil
}

// typeRefFor maps a scenario type label to its registered reference.
func typeRefFor(label string) (sanctum.TypeRef, error) {
	switch label {
	case "Account":
		return sanctum.RefOf[ledgertest.Account](), nil
	case "SavingsAccount":
		return sanctum.RefOf[ledgertest.SavingsAccount](), nil
	case "CheckingAccount":
		return sanctum.RefOf[ledgertest.CheckingAccount](), nil
	}
	return "", fmt.Errorf("unknown account type %q", label)
}

// codeOf classifies an error for expect clauses. Guard errors report
// their code; fixture errors map to stable names.
func codeOf(err error) string {
	var gerr *sanctum.Error
	if errors.As(err, &gerr) {
		return string(gerr.Code)
	}
	if errors.Is(err, ledgertest.ErrInsufficientFunds) {
		return "INSUFFICIENT_FUNDS"
	}
	return "ERROR"
}
