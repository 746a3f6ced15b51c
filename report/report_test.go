package report

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"carnot/component"
	"carnot/fluid"
	"carnot/network"
	"carnot/result"
	"carnot/solver"
	"carnot/types"
)

var pngMagic = []byte("\x89PNG")

// feed 给水泵, 1 bar 20 °C 的水升压到 5 bar
func feed(t *testing.T) (*network.System, *fluid.Adapter) {
	t.Helper()
	props, err := fluid.NewDefault()
	assert.NilError(t, err)
	n := network.New("feed")
	a, err := n.AddStream("a", "water")
	assert.NilError(t, err)
	b, err := n.AddStream("b", "water")
	assert.NilError(t, err)
	assert.NilError(t, n.AddComponent("pump", &component.Pump{Machine: component.Machine{In: a, Out: b, EtaS: 0.8, PR: 5}}))
	assert.NilError(t, n.Fix("a", types.Pressure, types.Bar))
	assert.NilError(t, n.Fix("a", types.MassFlow, 1))
	assert.NilError(t, n.SetTemperature("a", types.ZeroCelsius+20))
	sys, err := n.Assemble(props)
	assert.NilError(t, err)
	return sys, props
}

func solve(t *testing.T) (*Record, *Diagram) {
	t.Helper()
	sys, props := feed(t)
	x0, err := sys.Initialize(props, nil)
	assert.NilError(t, err)
	list := &Record{}
	list.Init(sys, x0)
	st := solver.New(props, solver.Options{Observer: list.Update}).Solve(context.Background(), sys, x0)
	assert.Equal(t, st.Status, solver.Converged)
	snap := result.Emit(sys, st, props, result.Options{Name: "feed"})
	list.Finish(snap)
	return list, &Diagram{Snapshot: snap, Network: sys.Network, Props: props, Samples: 10}
}

func TestRecord(t *testing.T) {
	list, d := solve(t)
	assert.Equal(t, list.Name, "feed")
	assert.DeepEqual(t, list.Components, []string{"pump(pump)"})
	assert.DeepEqual(t, list.Links, []Link{{Stream: "a", From: -1, To: 0}, {Stream: "b", From: 0, To: -1}})
	assert.DeepEqual(t, list.Variables, []string{"a.h", "b.p", "b.h", "b.m"})
	assert.Equal(t, list.Steps(), d.Snapshot.Verdict.Iterations)
	assert.Equal(t, len(list.X), list.Steps()+1)
	assert.Equal(t, list.Norm[0], d.Snapshot.History[0])

	var buf bytes.Buffer
	assert.NilError(t, list.Render(&buf))
	var back struct {
		Name   string    `json:"name"`
		Norm   []float64 `json:"norm"`
		Result struct {
			Verdict struct {
				Status string `json:"status"`
			} `json:"verdict"`
		} `json:"result"`
	}
	assert.NilError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, back.Name, "feed")
	assert.Equal(t, back.Result.Verdict.Status, "converged")
	assert.Equal(t, len(back.Norm), len(list.Norm))
}

func TestChartsHandler(t *testing.T) {
	list, _ := solve(t)
	rec := httptest.NewRecorder()
	NewCharts(list).Handler(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, rec.Code, 200)
	body := rec.Body.String()
	assert.Check(t, is.Contains(body, "<html"))
	assert.Check(t, is.Contains(body, "pump(pump)"))
	assert.Check(t, is.Contains(body, "a.h"))
	assert.Check(t, strings.Contains(rec.Header().Get("Content-Type"), "text/html"))
}

func TestDiagrams(t *testing.T) {
	_, d := solve(t)
	assert.Equal(t, d.working(), "WATER")

	ph, err := d.PH(Bounds{"p_min": 0.1, "p_max": 20})
	assert.NilError(t, err)
	assert.Equal(t, ph.Y.Min, 0.1)
	assert.Equal(t, ph.Y.Max, 20.0)
	var buf bytes.Buffer
	assert.NilError(t, WritePNG(&buf, ph))
	assert.Assert(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	ts, err := d.TS(nil)
	assert.NilError(t, err)
	buf.Reset()
	assert.NilError(t, WritePNG(&buf, ts))
	assert.Assert(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	liquid, vapour := d.dome("WATER", 0.5*types.Bar, 10*types.Bar)
	assert.Equal(t, len(liquid), 11)
	assert.Equal(t, len(vapour), 11)
	for i := range liquid {
		assert.Assert(t, vapour[i].h > liquid[i].h)
		assert.Assert(t, vapour[i].s > liquid[i].s)
	}
}

func TestPlots(t *testing.T) {
	_, d := solve(t)
	dir := filepath.Join(t.TempDir(), "plots")
	files, err := Plots(dir, d, nil)
	assert.NilError(t, err)
	assert.Equal(t, len(files), 3)
	for _, f := range files {
		b, err := os.ReadFile(f)
		assert.NilError(t, err)
		assert.Assert(t, bytes.HasPrefix(b, pngMagic), f)
	}
}

func TestConvergenceEmpty(t *testing.T) {
	_, err := Convergence("x", nil)
	assert.ErrorIs(t, err, ErrNoData)

	p, err := Convergence("x", []float64{1, 1e-3, 0})
	assert.NilError(t, err)
	assert.Equal(t, p.Y.Label.Text, "||r||")
}
