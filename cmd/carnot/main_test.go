package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func testdata(name string) string { return filepath.Join("..", "..", "config", "testdata", name) }

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestSolve(t *testing.T) {
	code, out, _ := execute(t, "solve", "--log-level", "error", testdata("hp.yaml"))
	assert.Equal(t, code, 0)
	assert.Check(t, is.Contains(out, "converged"))
	assert.Check(t, is.Contains(out, "c35"))
	assert.Check(t, is.Contains(out, "COP"))
}

func TestSolveJSON(t *testing.T) {
	code, out, _ := execute(t, "solve", "--format", "json", "--log-level", "error", testdata("orc.yaml"))
	assert.Equal(t, code, 0)
	var snap struct {
		Verdict struct {
			Status string `json:"status"`
		} `json:"verdict"`
		Indicators struct {
			Efficiency float64 `json:"efficiency"`
		} `json:"indicators"`
		Variables []string `json:"variables"`
	}
	assert.NilError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, snap.Verdict.Status, "converged")
	assert.Check(t, snap.Indicators.Efficiency > 0)
	assert.Check(t, len(snap.Variables) > 0)
}

func TestSolveOutputs(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "report.html")
	record := filepath.Join(dir, "run.json")
	plots := filepath.Join(dir, "plots")
	code, _, _ := execute(t, "solve", "--log-level", "error",
		"--report", page, "--record", record, "--plots", plots, testdata("hp.yaml"))
	assert.Equal(t, code, 0)
	for _, f := range []string{page, record, filepath.Join(plots, "ph.png"), filepath.Join(plots, "ts.png"), filepath.Join(plots, "convergence.png")} {
		info, err := os.Stat(f)
		assert.NilError(t, err)
		assert.Check(t, info.Size() > 0, f)
	}
	b, err := os.ReadFile(record)
	assert.NilError(t, err)
	var rec map[string]any
	assert.NilError(t, json.Unmarshal(b, &rec))
	assert.Check(t, is.Contains(rec, "result"))
}

func TestValidate(t *testing.T) {
	code, out, _ := execute(t, "validate", testdata("hp.yaml"))
	assert.Equal(t, code, 0)
	assert.Check(t, is.Contains(out, "29 variables, 29 equations"))

	code, _, errOut := execute(t, "validate", testdata("underdetermined.yaml"))
	assert.Equal(t, code, 2)
	assert.Check(t, is.Contains(errOut, "error:"))
}

func TestInvalidInput(t *testing.T) {
	code, _, _ := execute(t, "solve", testdata("underdetermined.yaml"))
	assert.Equal(t, code, 2)

	code, _, errOut := execute(t, "solve", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, code, 2)
	assert.Check(t, is.Contains(errOut, "missing.yaml"))

	code, _, _ = execute(t, "solve", "--format", "xml", testdata("hp.yaml"))
	assert.Equal(t, code, 2)
}

func TestIterationLimit(t *testing.T) {
	settings := filepath.Join(t.TempDir(), "solver.ini")
	assert.NilError(t, os.WriteFile(settings, []byte("[solver]\nmax_iterations = 1\n\n[log]\nlevel = error\n"), 0o644))
	code, out, _ := execute(t, "solve", "--settings", settings, testdata("hp.yaml"))
	assert.Equal(t, code, 1)
	assert.Check(t, is.Contains(out, "max-iterations"))
}

func TestSweep(t *testing.T) {
	code, out, _ := execute(t, "sweep", "--format", "json", "--log-level", "error",
		"--target", "c32.p", "--from", "12.8", "--to", "13.2", "--steps", "3", testdata("hp.yaml"))
	assert.Equal(t, code, 0)
	var rows []sweepRow
	assert.NilError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, len(rows), 3)
	for i, want := range []float64{12.8, 13.0, 13.2} {
		assert.Check(t, is.Equal(rows[i].Status, "converged"))
		assert.Check(t, rows[i].Value > want-1e-9 && rows[i].Value < want+1e-9, rows[i].Value)
		assert.Check(t, rows[i].COP > 0)
	}

	code, _, _ = execute(t, "sweep", "--target", "c99.p", "--from", "1", "--to", "2", testdata("hp.yaml"))
	assert.Equal(t, code, 2)
}

func TestAdvanced(t *testing.T) {
	code, out, _ := execute(t, "advanced", "--format", "json", "--log-level", "error", testdata("hp.yaml"))
	assert.Equal(t, code, 0)
	var splits []struct {
		Label string             `json:"label"`
		ED    float64            `json:"E_D"`
		EN    float64            `json:"E_D_EN"`
		EX    float64            `json:"E_D_EX"`
		Pairs map[string]float64 `json:"E_D_EX_l"`
	}
	assert.NilError(t, json.Unmarshal([]byte(out), &splits))
	assert.Equal(t, len(splits), 4)
	for _, s := range splits {
		assert.Check(t, s.ED > 0, s.Label)
		assert.Check(t, math.Abs(s.EN+s.EX-s.ED) <= 1e-6*s.ED, s.Label)
		assert.Check(t, is.Len(s.Pairs, 3), s.Label)
	}

	code, out, _ = execute(t, "advanced", "--log-level", "error", testdata("hp.yaml"))
	assert.Equal(t, code, 0)
	assert.Check(t, is.Contains(out, "E_D_MEXO"))
	assert.Check(t, is.Contains(out, "EX by comp"))
}

func TestOptimize(t *testing.T) {
	args := []string{"optimize", "--log-level", "error", "--target", "c32.p", "--component", "cond", "--pinch", "5", "--tol", "1e-3"}
	code, out, _ := execute(t, append(args, "--from", "11", "--to", "14", testdata("hp.yaml"))...)
	assert.Equal(t, code, 0)
	assert.Check(t, is.Contains(out, "c32.p = 12."))
	assert.Check(t, is.Contains(out, "cond min dT"))

	code, _, errOut := execute(t, append(args, "--from", "13.5", "--to", "14", testdata("hp.yaml"))...)
	assert.Equal(t, code, 2)
	assert.Check(t, is.Contains(errOut, "not bracketed"))
}
