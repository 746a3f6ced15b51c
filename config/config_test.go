package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"carnot/fluid"
	"carnot/network"
	"carnot/types"
)

func props(t *testing.T) *fluid.Adapter {
	t.Helper()
	p, err := fluid.NewDefault()
	assert.NilError(t, err)
	return p
}

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-9*math.Abs(b) }

func load(t *testing.T, name string) *Config {
	t.Helper()
	cfg, err := Load(filepath.Join("testdata", name))
	assert.NilError(t, err)
	return cfg
}

func TestHeatPumpNetwork(t *testing.T) {
	cfg := load(t, "hp.yaml")
	assert.Equal(t, cfg.Working(), "R1336MZZZ")
	assert.Equal(t, cfg.LogPH["p_max"], 30.0)

	p := props(t)
	n, err := cfg.Network(p)
	assert.NilError(t, err)
	assert.Equal(t, len(n.Components), 6)
	assert.Equal(t, n.Streams.Len(), 11)

	sys, err := n.Assemble(p)
	assert.NilError(t, err)
	assert.Equal(t, sys.Size(), 29)
	assert.Equal(t, len(sys.Equations), 29)

	c32, err := n.Stream("c32")
	assert.NilError(t, err)
	assert.Equal(t, sys.Column(c32, types.Pressure), -1)
	c21, err := n.Stream("c21")
	assert.NilError(t, err)
	assert.Equal(t, sys.Column(c21, types.MassFlow), -1)

	c30, err := n.Stream("c30")
	assert.NilError(t, err)
	start := n.Start(c30)
	assert.Assert(t, start.P != nil && start.T != nil && start.M != nil)
	assert.Assert(t, near(*start.P, 0.32*types.Bar))
	assert.Assert(t, near(*start.T, 70+types.ZeroCelsius))

	cond, ok := n.Component("cond")
	assert.Assert(t, ok)
	assert.Equal(t, cond.Kind(), types.KindHeatExchanger)
}

func TestRankineNetwork(t *testing.T) {
	cfg := load(t, "orc.yaml")
	p := props(t)
	n, err := cfg.Network(p)
	assert.NilError(t, err)
	sys, err := n.Assemble(p)
	assert.NilError(t, err)
	assert.Equal(t, sys.Size(), len(sys.Equations))

	// 放热储热侧进口取高温
	var inlet float64
	c23, err := n.Stream("c23")
	assert.NilError(t, err)
	for _, s := range n.Specs() {
		if s.Kind == network.SpecTemperature && s.Stream == c23 {
			inlet = s.Value
		}
	}
	assert.Assert(t, near(inlet, 140+types.ZeroCelsius))
}

func TestUnderdetermined(t *testing.T) {
	cfg := load(t, "underdetermined.yaml")
	p := props(t)
	n, err := cfg.Network(p)
	assert.NilError(t, err)
	_, err = n.Assemble(p)
	assert.ErrorIs(t, err, network.ErrUnderdetermined)
	var se *network.StructureError
	assert.Assert(t, errors.As(err, &se))
	assert.Equal(t, se.Variables, 29)
	assert.Equal(t, se.Equations, 28)
}

func TestCustomLayout(t *testing.T) {
	cfg := load(t, "custom.yaml")
	p := props(t)
	n, err := cfg.Network(p)
	assert.NilError(t, err)
	v1, ok := n.Component("v1")
	assert.Assert(t, ok)
	assert.Equal(t, v1.Kind(), types.KindValve)
	sys, err := n.Assemble(p)
	assert.NilError(t, err)
	assert.Equal(t, sys.Size(), 4)
}

func TestParseErrors(t *testing.T) {
	base := `
setup: {name: x, topology: hp}
fluids: {working: R1336MZZZ, tes: water, ambient: air}
`
	for _, tc := range []struct {
		name  string
		doc   string
		field string
	}{
		{"no name", "setup: {topology: hp}\nfluids: {working: water}\n", "setup.name"},
		{"no fluid", "setup: {name: x, topology: hp}\n", "setup.refrigerant"},
		{"topology", "setup: {name: x, topology: brayton}\nfluids: {working: water}\n", "setup.topology"},
		{"layout", base + "layout: {components: [{label: a, kind: pump}]}\n", "layout"},
		{"dimension", base + "dimension_parameters: [{kind: volume, stream: c21, value: 1}]\n", "dimension_parameters[0].kind"},
		{"mass flow", base + "dimension_parameters: [{kind: mass_flow, value: 1}]\n", "dimension_parameters[0].stream"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), "test.yaml")
			assert.ErrorIs(t, err, ErrInvalid)
			var ce *Error
			assert.Assert(t, errors.As(err, &ce))
			assert.Equal(t, ce.Field, tc.field)
			assert.Equal(t, ce.Path, "test.yaml")
		})
	}
}

func TestUnknownSection(t *testing.T) {
	_, err := Parse([]byte("setup: {name: x, topology: hp, colour: red}\nfluids: {working: water}\n"), "test.yaml")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBlockErrors(t *testing.T) {
	p := props(t)
	for _, tc := range []struct {
		name   string
		target string
		field  string
	}{
		{"unknown key", "cond.ttd_x", "cond.ttd_x"},
		{"both terminals", "cond.ttd_u", "cond"},
		{"stream key", "c32.eta_s", "c32.eta_s"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := load(t, "hp.yaml")
			assert.NilError(t, cfg.Set(tc.target, 5))
			_, err := cfg.Network(p)
			var ce *Error
			assert.Assert(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, ce.Field, tc.field)
		})
	}

	cfg := load(t, "hp.yaml")
	delete(cfg.Blocks, "comp")
	_, err := cfg.Network(p)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Check(t, is.ErrorContains(err, "comp.eta_s"))

	cfg = load(t, "hp.yaml")
	cfg.Blocks["nozzle"] = Block{"pr": 1}
	_, err = cfg.Network(p)
	assert.Check(t, is.ErrorContains(err, "no component or stream named nozzle"))
}

func TestUnknownFluid(t *testing.T) {
	cfg := load(t, "hp.yaml")
	cfg.Fluids.Working = "XENON"
	_, err := cfg.Network(props(t))
	assert.ErrorIs(t, err, fluid.ErrUnknownFluid)
	var ce *Error
	assert.Assert(t, errors.As(err, &ce))
	assert.Equal(t, ce.Field, "fluids")
}

func TestCloneSet(t *testing.T) {
	cfg := load(t, "hp.yaml")
	cp := cfg.Clone()
	assert.NilError(t, cp.Set("c32.p", 14))
	assert.NilError(t, cp.Set("cond.ttd_l", 3))

	v, ok := cfg.Get("c32.p")
	assert.Assert(t, ok)
	assert.Equal(t, v, 13.0)
	v, _ = cp.Get("c32.p")
	assert.Equal(t, v, 14.0)
	v, _ = cp.Get("cond.ttd_l")
	assert.Equal(t, v, 3.0)

	assert.ErrorIs(t, cp.Set("c99.p", 1), ErrInvalid)
	assert.ErrorIs(t, cp.Set("c32", 1), ErrInvalid)
	_, ok = cp.Get("c32")
	assert.Assert(t, !ok)
}

func TestIdealize(t *testing.T) {
	cfg := load(t, "hp.yaml")
	labels, err := cfg.Idealizable()
	assert.NilError(t, err)
	assert.DeepEqual(t, labels, []string{"comp", "cond", "ihx", "eva"})
	labels, err = load(t, "orc.yaml").Idealizable()
	assert.NilError(t, err)
	assert.DeepEqual(t, labels, []string{"pump", "ihx", "eva", "exp", "cond"})

	cp := cfg.Clone()
	for _, label := range []string{"comp", "cond", "eva"} {
		assert.NilError(t, cp.Idealize(label))
	}
	for target, want := range map[string]float64{
		"comp.eta_s": 1,
		"cond.pr1":   1,
		"cond.ttd_l": IdealTTD,
		"eva.pr2":    1,
		"eva.ttd_u":  IdealTTD,
		"ihx.ttd_u":  5,
	} {
		v, ok := cp.Get(target)
		assert.Assert(t, ok, target)
		assert.Equal(t, v, want, target)
	}
	_, ok := cp.Get("cond.ttd_u")
	assert.Assert(t, !ok)
	v, _ := cfg.Get("comp.eta_s")
	assert.Equal(t, v, 0.85)

	_, err = cp.Network(props(t))
	assert.NilError(t, err)
	assert.ErrorIs(t, cp.Idealize("valve"), ErrInvalid)
	assert.ErrorIs(t, cp.Idealize("c32"), ErrInvalid)
}

func TestDeadState(t *testing.T) {
	d := load(t, "hp.yaml").DeadState()
	assert.Assert(t, d != nil)
	assert.Assert(t, near(d.T, 10+types.ZeroCelsius))
	assert.Assert(t, near(d.P, 1.013*types.Bar))

	d = load(t, "custom.yaml").DeadState()
	assert.Assert(t, d == nil)
}

func TestSettings(t *testing.T) {
	s, err := LoadSettings(filepath.Join("testdata", "solver.ini"))
	assert.NilError(t, err)
	assert.Equal(t, s.Solver.Tolerance, 1e-9)
	assert.Equal(t, s.Solver.MaxIterations, 40)
	assert.Equal(t, s.Solver.MaxShrink, 8)
	assert.Equal(t, s.Solver.Workers, 2)
	assert.Equal(t, s.Solver.ConditionLimit, 1e12)
	assert.Equal(t, s.Solver.Regularization, types.Regularization)
	assert.Equal(t, s.Solver.Timeout, 30*time.Second)
	assert.Equal(t, s.Level, log.DebugLevel)
	assert.Equal(t, s.Format, "json")

	logger := log.New()
	s.Apply(logger)
	assert.Equal(t, logger.GetLevel(), log.DebugLevel)
	_, ok := logger.Formatter.(*log.JSONFormatter)
	assert.Assert(t, ok)

	s, err = LoadSettings(filepath.Join("testdata", "missing.ini"))
	assert.NilError(t, err)
	assert.Equal(t, s.Solver.Tolerance, types.Tolerance)
	assert.Equal(t, s.Level, log.InfoLevel)
}

func TestSettingsInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"tolerance": "[solver]\ntolerance = -1\n",
		"level":     "[log]\nlevel = loud\n",
		"format":    "[log]\nformat = xml\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".ini")
			assert.NilError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadSettings(path)
			var ce *Error
			assert.Assert(t, errors.As(err, &ce))
			assert.Equal(t, ce.Path, path)
		})
	}
}
