package conformance

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sanctum"
	"github.com/roach88/sanctum/internal/canonical"
)

// Snapshot captures a scenario run for golden comparison: the step
// outcomes and the full access log, serialized as canonical JSON.
type Snapshot struct {
	ScenarioName string                `json:"scenario_name"`
	Steps        []StepTrace           `json:"steps"`
	AccessLog    []sanctum.AccessEvent `json:"access_log"`
}

// toCanonicalMap converts the snapshot to plain maps for canonical JSON
// serialization. Empty event fields are omitted, and the storage key is
// reduced to a derived marker: keys are capabilities and must not land
// in fixtures.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, st := range s.Steps {
		m := map[string]any{
			"op":      st.Op,
			"outcome": st.Outcome,
		}
		if st.Target != "" {
			m["target"] = st.Target
		}
		if st.Attr != "" {
			m["attr"] = st.Attr
		}
		if st.Code != "" {
			m["code"] = st.Code
		}
		if st.Error != "" {
			m["error"] = st.Error
		}
		if st.Value != nil {
			m["value"] = canonicalValue(st.Value)
		}
		if st.Values != nil {
			m["values"] = canonicalValue(st.Values)
		}
		steps[i] = m
	}

	log := make([]any, len(s.AccessLog))
	for i, ev := range s.AccessLog {
		m := map[string]any{
			"seq":      ev.Seq,
			"at":       ev.Time.UTC().Format(time.RFC3339Nano),
			"op":       ev.Op,
			"type":     ev.Type,
			"decision": ev.Decision,
		}
		if ev.Attr != "" {
			m["attr"] = ev.Attr
		}
		if ev.Object != "" {
			m["object"] = ev.Object
		}
		if ev.Key != "" {
			m["derived"] = true
		}
		if ev.Via != "" {
			m["via"] = ev.Via
		}
		if ev.Unit != "" {
			m["unit"] = ev.Unit
		}
		log[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
		"access_log":    log,
	}
}

// canonicalValue widens step values into the types canonical JSON
// accepts.
func canonicalValue(v any) any {
	switch x := v.(type) {
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	default:
		return v
	}
}

// RunWithGolden loads a scenario file, runs it, and compares the run
// snapshot against testdata/golden/{name}.golden. Expectation failures
// inside the scenario fail the test.
func RunWithGolden(t *testing.T, path string) error {
	t.Helper()

	scenario, err := LoadScenario(path)
	if err != nil {
		return err
	}
	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-obtained result against the golden
// file for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Steps:        result.Steps,
		AccessLog:    result.AccessLog,
	}
	data, err := canonical.Marshal(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
