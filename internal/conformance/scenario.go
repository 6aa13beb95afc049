package conformance

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a named sequence of steps
// run against a fresh realm with the account fixtures installed.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Steps is the ordered list of operations to execute.
	Steps []Step `yaml:"steps"`
}

// Step is a single scenario operation. Which fields apply depends on
// the op; validation enforces the required ones per op.
type Step struct {
	// Op is one of the Step* constants.
	Op string `yaml:"op"`

	// As binds the account created by a new_* op to a label.
	As string `yaml:"as,omitempty"`

	// Target names a previously bound account label.
	Target string `yaml:"target,omitempty"`

	// TypeName names a registered account type for type-level ops:
	// Account, SavingsAccount, or CheckingAccount.
	TypeName string `yaml:"type,omitempty"`

	// Owner is the account owner for new_* ops.
	Owner string `yaml:"owner,omitempty"`

	// Attr is the attribute name for outside_* and public-bag ops.
	Attr string `yaml:"attr,omitempty"`

	// Amount is the amount for deposit and withdraw.
	Amount int `yaml:"amount,omitempty"`

	// Rate is the interest rate in basis points for new_savings.
	Rate int `yaml:"rate,omitempty"`

	// Overdraft is the overdraft allowance for new_checking.
	Overdraft int `yaml:"overdraft,omitempty"`

	// Value is the value to write for assign, outside_set, and
	// outside_type_set.
	Value any `yaml:"value,omitempty"`

	// Expect specifies the expected outcome. If nil, the step must
	// simply succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected step outcome. Error excludes the
// other two fields: a step either fails with a code or yields a value.
type ExpectClause struct {
	// Value is the expected scalar result, for ops returning one.
	Value any `yaml:"value,omitempty"`

	// Values is the expected list result, for the history op.
	Values []string `yaml:"values,omitempty"`

	// Error is the expected error code, such as ATTR_NOT_FOUND,
	// FORBIDDEN, or INSUFFICIENT_FUNDS.
	Error string `yaml:"error,omitempty"`
}

// Step op constants.
const (
	StepNewAccount        = "new_account"
	StepNewSavings        = "new_savings"
	StepNewChecking       = "new_checking"
	StepDeposit           = "deposit"
	StepWithdraw          = "withdraw"
	StepBalance           = "balance"
	StepHistory           = "history"
	StepRate              = "rate"
	StepAccrueInterest    = "accrue_interest"
	StepWriteOff          = "write_off"
	StepClose             = "close"
	StepMarshal           = "marshal"
	StepLookup            = "lookup"
	StepAssign            = "assign"
	StepRemove            = "remove"
	StepOutsideGet        = "outside_get"
	StepOutsideSet        = "outside_set"
	StepOutsideDelete     = "outside_delete"
	StepOutsideTypeGet    = "outside_type_get"
	StepOutsideTypeSet    = "outside_type_set"
	StepOutsideTypeDelete = "outside_type_delete"
)

// LoadScenario reads and parses a scenario YAML file. It rejects files
// with unknown fields, so typos in step keys fail loudly instead of
// silently dropping a constraint.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, step *Step) error {
	if step.Op == "" {
		return fmt.Errorf("steps[%d]: op is required", index)
	}

	switch step.Op {
	case StepNewAccount, StepNewSavings, StepNewChecking:
		if step.As == "" {
			return fmt.Errorf("steps[%d]: as is required for %s", index, step.Op)
		}
		if step.Owner == "" {
			return fmt.Errorf("steps[%d]: owner is required for %s", index, step.Op)
		}
	case StepDeposit, StepWithdraw:
		if step.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for %s", index, step.Op)
		}
		if step.Amount <= 0 {
			return fmt.Errorf("steps[%d]: amount must be positive for %s", index, step.Op)
		}
	case StepBalance, StepHistory, StepRate, StepAccrueInterest, StepWriteOff, StepClose, StepMarshal:
		if step.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for %s", index, step.Op)
		}
	case StepLookup, StepAssign, StepRemove, StepOutsideGet, StepOutsideSet, StepOutsideDelete:
		if step.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for %s", index, step.Op)
		}
		if step.Attr == "" {
			return fmt.Errorf("steps[%d]: attr is required for %s", index, step.Op)
		}
	case StepOutsideTypeGet, StepOutsideTypeSet, StepOutsideTypeDelete:
		if step.TypeName == "" {
			return fmt.Errorf("steps[%d]: type is required for %s", index, step.Op)
		}
		if _, err := typeRefFor(step.TypeName); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
		if step.Attr == "" {
			return fmt.Errorf("steps[%d]: attr is required for %s", index, step.Op)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.Op == StepAssign || step.Op == StepOutsideSet || step.Op == StepOutsideTypeSet {
		if step.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for %s", index, step.Op)
		}
	}

	if step.Expect != nil {
		if step.Expect.Error == "" && step.Expect.Value == nil && step.Expect.Values == nil {
			return fmt.Errorf("steps[%d].expect: value, values, or error is required", index)
		}
		if step.Expect.Error != "" && (step.Expect.Value != nil || step.Expect.Values != nil) {
			return fmt.Errorf("steps[%d].expect: error excludes value and values", index)
		}
	}

	return nil
}

// target returns the label or type a step acts on, for step traces.
func (s Step) target() string {
	switch {
	case s.Target != "":
		return s.Target
	case s.As != "":
		return s.As
	default:
		return s.TypeName
	}
}
