package conformance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeScenarioFile writes YAML content to a temp file and returns its path.
func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "account_lifecycle.yaml"))
	require.NoError(t, err)

	require.Equal(t, "account_lifecycle", scenario.Name)
	require.NotEmpty(t, scenario.Description)
	require.Len(t, scenario.Steps, 5)

	require.Equal(t, StepNewAccount, scenario.Steps[0].Op)
	require.Equal(t, "a", scenario.Steps[0].As)
	require.Equal(t, "ada", scenario.Steps[0].Owner)

	require.Equal(t, StepDeposit, scenario.Steps[1].Op)
	require.Equal(t, 50, scenario.Steps[1].Amount)

	require.NotNil(t, scenario.Steps[2].Expect)
	require.Equal(t, 150, scenario.Steps[2].Expect.Value)

	require.Equal(t, []string{"deposit 50"}, scenario.Steps[3].Expect.Values)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "no_such.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenarioFile(t, `
name: typo
description: A step key with a typo must be rejected.
steps:
  - op: new_account
    as: a
    owner: ada
    onwer: ada
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nsteps:\n  - op: new_account\n    as: a\n    owner: o\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nsteps:\n  - op: new_account\n    as: a\n    owner: o\n",
			wantErr: "description is required",
		},
		{
			name:    "missing steps",
			content: "name: n\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name:    "missing op",
			content: "name: n\ndescription: d\nsteps:\n  - as: a\n    owner: o\n",
			wantErr: "steps[0]: op is required",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\nsteps:\n  - op: transfer\n    target: a\n",
			wantErr: `steps[0]: unknown op "transfer"`,
		},
		{
			name:    "new without label",
			content: "name: n\ndescription: d\nsteps:\n  - op: new_account\n    owner: o\n",
			wantErr: "as is required",
		},
		{
			name:    "new without owner",
			content: "name: n\ndescription: d\nsteps:\n  - op: new_account\n    as: a\n",
			wantErr: "owner is required",
		},
		{
			name:    "deposit without amount",
			content: "name: n\ndescription: d\nsteps:\n  - op: deposit\n    target: a\n",
			wantErr: "amount must be positive",
		},
		{
			name:    "balance without target",
			content: "name: n\ndescription: d\nsteps:\n  - op: balance\n",
			wantErr: "target is required",
		},
		{
			name:    "outside_get without attr",
			content: "name: n\ndescription: d\nsteps:\n  - op: outside_get\n    target: a\n",
			wantErr: "attr is required",
		},
		{
			name:    "outside_set without value",
			content: "name: n\ndescription: d\nsteps:\n  - op: outside_set\n    target: a\n    attr: balance\n",
			wantErr: "value is required",
		},
		{
			name:    "lookup without attr",
			content: "name: n\ndescription: d\nsteps:\n  - op: lookup\n    target: a\n",
			wantErr: "attr is required",
		},
		{
			name:    "assign without value",
			content: "name: n\ndescription: d\nsteps:\n  - op: assign\n    target: a\n    attr: nickname\n",
			wantErr: "value is required",
		},
		{
			name:    "type op without type",
			content: "name: n\ndescription: d\nsteps:\n  - op: outside_type_get\n    attr: rate\n",
			wantErr: "type is required",
		},
		{
			name:    "type op with unknown type",
			content: "name: n\ndescription: d\nsteps:\n  - op: outside_type_get\n    type: Ledger\n    attr: rate\n",
			wantErr: `unknown account type "Ledger"`,
		},
		{
			name: "empty expect",
			content: "name: n\ndescription: d\nsteps:\n" +
				"  - op: balance\n    target: a\n    expect: {}\n",
			wantErr: "value, values, or error is required",
		},
		{
			name: "expect error with value",
			content: "name: n\ndescription: d\nsteps:\n" +
				"  - op: balance\n    target: a\n    expect:\n      error: FORBIDDEN\n      value: 5\n",
			wantErr: "error excludes value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenarioFile(t, tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStepTarget(t *testing.T) {
	require.Equal(t, "a", Step{Target: "a", As: "b", TypeName: "c"}.target())
	require.Equal(t, "b", Step{As: "b", TypeName: "c"}.target())
	require.Equal(t, "c", Step{TypeName: "c"}.target())
}
