package result

import (
	"testing"

	"gotest.tools/v3/assert"

	"carnot/solver"
)

func destroyed(ed map[string]float64) *Snapshot {
	snap := &Snapshot{Verdict: Verdict{Status: solver.Converged}}
	for label, v := range ed {
		snap.Balances = append(snap.Balances, Balance{Label: label, ExergyDestruction: v})
	}
	return snap
}

func TestDecompose(t *testing.T) {
	labels := []string{"a", "b", "c"}
	cases := []Case{
		{Real: []string{"c", "a", "b"}, Snapshot: destroyed(map[string]float64{"a": 10, "b": 20, "c": 30})},
		{Real: []string{"a"}, Snapshot: destroyed(map[string]float64{"a": 6, "b": 1, "c": 1})},
		{Real: []string{"b"}, Snapshot: destroyed(map[string]float64{"a": 1, "b": 15, "c": 1})},
		{Real: []string{"c"}, Snapshot: destroyed(map[string]float64{"a": 1, "b": 1, "c": 25})},
		{Real: []string{"b", "a"}, Snapshot: destroyed(map[string]float64{"a": 8, "b": 17, "c": 1})},
		{Real: []string{"a", "c"}, Snapshot: destroyed(map[string]float64{"a": 7, "b": 1, "c": 27})},
		{Real: []string{"b", "c"}, Snapshot: destroyed(map[string]float64{"a": 1, "b": 16, "c": 28})},
	}
	splits, err := Decompose(labels, cases)
	assert.NilError(t, err)
	assert.DeepEqual(t, splits, []Split{
		{Label: "a", ED: 10, EN: 6, EX: 4, MEXO: 1, Pairs: map[string]float64{"b": 2, "c": 1}},
		{Label: "b", ED: 20, EN: 15, EX: 5, MEXO: 2, Pairs: map[string]float64{"a": 2, "c": 1}},
		{Label: "c", ED: 30, EN: 25, EX: 5, MEXO: 0, Pairs: map[string]float64{"a": 2, "b": 3}},
	})

	_, err = Decompose(labels, cases[:6])
	assert.ErrorContains(t, err, "no case with b+c real")

	cases[3].Snapshot.Verdict.Status = solver.Diverged
	_, err = Decompose(labels, cases)
	assert.ErrorContains(t, err, "case c diverged")
}
