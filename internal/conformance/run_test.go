package conformance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sanctum"
	"github.com/roach88/sanctum/internal/canonical"
)

// snapshotBytes marshals a run result the way golden comparison does.
func snapshotBytes(t *testing.T, name string, result *Result) []byte {
	t.Helper()
	s := Snapshot{ScenarioName: name, Steps: result.Steps, AccessLog: result.AccessLog}
	data, err := canonical.Marshal(s.toCanonicalMap())
	require.NoError(t, err)
	return data
}

func TestRun_AccountLifecycle(t *testing.T) {
	scenario := &Scenario{
		Name:        "lifecycle",
		Description: "deposit then read",
		Steps: []Step{
			{Op: StepNewAccount, As: "a", Owner: "ada"},
			{Op: StepDeposit, Target: "a", Amount: 50},
			{Op: StepBalance, Target: "a", Expect: &ExpectClause{Value: 150}},
			{Op: StepHistory, Target: "a", Expect: &ExpectClause{Values: []string{"deposit 50"}}},
			{Op: StepClose, Target: "a"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Steps, 5)

	require.Equal(t, OutcomeOK, result.Steps[2].Outcome)
	require.Equal(t, 150, result.Steps[2].Value)
	require.Equal(t, []string{"deposit 50"}, result.Steps[3].Values)

	// Registration of the three account types leads the log.
	require.GreaterOrEqual(t, len(result.AccessLog), 3)
	for i, want := range []string{"Account", "SavingsAccount", "CheckingAccount"} {
		ev := result.AccessLog[i]
		require.Equal(t, sanctum.OpRegister, ev.Op)
		require.Equal(t, int64(i+1), ev.Seq)
		require.Contains(t, ev.Type, want)
	}
	last := result.AccessLog[len(result.AccessLog)-1]
	require.Equal(t, sanctum.OpRelease, last.Op)
	require.Equal(t, "acct-1", last.Object)
}

func TestRun_SavingsOps(t *testing.T) {
	scenario := &Scenario{
		Name:        "savings",
		Description: "rate and interest",
		Steps: []Step{
			{Op: StepNewSavings, As: "s", Owner: "grace", Rate: 500},
			{Op: StepRate, Target: "s", Expect: &ExpectClause{Value: 500}},
			{Op: StepAccrueInterest, Target: "s"},
			{Op: StepBalance, Target: "s", Expect: &ExpectClause{Value: 105}},
			{Op: StepHistory, Target: "s", Expect: &ExpectClause{Values: []string{"interest 5"}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_CheckingOverdraft(t *testing.T) {
	scenario := &Scenario{
		Name:        "checking",
		Description: "overdraft withdrawal",
		Steps: []Step{
			{Op: StepNewChecking, As: "c", Owner: "bob", Overdraft: 50},
			{Op: StepWithdraw, Target: "c", Amount: 120},
			{Op: StepBalance, Target: "c", Expect: &ExpectClause{Value: -20}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InsufficientFunds(t *testing.T) {
	scenario := &Scenario{
		Name:        "overdraw",
		Description: "withdrawal past the balance",
		Steps: []Step{
			{Op: StepNewAccount, As: "a", Owner: "ada"},
			{Op: StepWithdraw, Target: "a", Amount: 500, Expect: &ExpectClause{Error: "INSUFFICIENT_FUNDS"}},
			{Op: StepBalance, Target: "a", Expect: &ExpectClause{Value: 100}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.Equal(t, OutcomeError, result.Steps[1].Outcome)
	require.Equal(t, "INSUFFICIENT_FUNDS", result.Steps[1].Code)
}

func TestRun_OutsideTypeWrites(t *testing.T) {
	scenario := &Scenario{
		Name:        "type_writes",
		Description: "type-level writes from outside are refused",
		Steps: []Step{
			{Op: StepOutsideTypeSet, TypeName: "Account", Attr: "balance", Value: 5,
				Expect: &ExpectClause{Error: "FORBIDDEN"}},
			{Op: StepOutsideTypeDelete, TypeName: "Account", Attr: "balance",
				Expect: &ExpectClause{Error: "FORBIDDEN"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_PublicBag(t *testing.T) {
	scenario := &Scenario{
		Name:        "bag",
		Description: "public attributes round-trip, private names stay sealed",
		Steps: []Step{
			{Op: StepNewAccount, As: "a", Owner: "ada"},
			{Op: StepAssign, Target: "a", Attr: "nickname", Value: "rainy-day"},
			{Op: StepLookup, Target: "a", Attr: "nickname", Expect: &ExpectClause{Value: "rainy-day"}},
			{Op: StepAssign, Target: "a", Attr: "balance", Value: 1,
				Expect: &ExpectClause{Error: "FORBIDDEN"}},
			{Op: StepRemove, Target: "a", Attr: "nickname"},
			{Op: StepLookup, Target: "a", Attr: "nickname",
				Expect: &ExpectClause{Error: "ATTR_NOT_FOUND"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	// The refused private write is audited; the public round-trip is not.
	last := result.AccessLog[len(result.AccessLog)-1]
	require.Equal(t, sanctum.OpSet, last.Op)
	require.Equal(t, sanctum.DecisionDenied, last.Decision)
	require.Equal(t, "balance", last.Attr)
}

func TestRun_ExpectationMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "a wrong expected value fails the run",
		Steps: []Step{
			{Op: StepNewAccount, As: "a", Owner: "ada"},
			{Op: StepBalance, Target: "a", Expect: &ExpectClause{Value: 999}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "value = 100, expected 999")
}

func TestRun_UnexpectedSuccess(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_error",
		Description: "expecting an error from a succeeding step fails the run",
		Steps: []Step{
			{Op: StepNewAccount, As: "a", Owner: "ada"},
			{Op: StepBalance, Target: "a", Expect: &ExpectClause{Error: "FORBIDDEN"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.False(t, result.Pass)
	require.Contains(t, result.Errors[0], "succeeded, expected error FORBIDDEN")
}

func TestRun_UnknownLabel(t *testing.T) {
	scenario := &Scenario{
		Name:        "ghost",
		Description: "a step on an unbound label fails the run",
		Steps: []Step{
			{Op: StepDeposit, Target: "ghost", Amount: 10},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.False(t, result.Pass)
	require.Contains(t, result.Errors[0], `no account bound to label "ghost"`)
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "repeat",
		Description: "two runs produce identical snapshots",
		Steps: []Step{
			{Op: StepNewAccount, As: "a", Owner: "ada"},
			{Op: StepDeposit, Target: "a", Amount: 25},
			{Op: StepOutsideGet, Target: "a", Attr: "balance", Expect: &ExpectClause{Error: "ATTR_NOT_FOUND"}},
			{Op: StepBalance, Target: "a", Expect: &ExpectClause{Value: 125}},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, first.Pass, "errors: %v", first.Errors)

	second, err := Run(scenario)
	require.NoError(t, err)

	require.Equal(t,
		string(snapshotBytes(t, scenario.Name, first)),
		string(snapshotBytes(t, scenario.Name, second)))
}
