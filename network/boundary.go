package network

import (
	"fmt"

	"carnot/component"
	"carnot/fluid"
	"carnot/types"
)

// boundary 由边界条件生成方程, 固定量不生成方程
func (n *Network) boundary(spec Spec) (component.Equation, bool, error) {
	id := spec.Stream
	owner := n.Streams.Label(id)
	switch spec.Kind {
	case SpecFixed:
		return component.Equation{}, false, nil
	case SpecTemperature:
		T := spec.Value
		return component.NewEquation(owner, "T", component.EqBoundary, func(v component.Values, props fluid.Properties) (float64, float64, error) {
			h, err := props.Enthalpy(v.Fluid(id), v.P(id), T)
			return v.H(id), h, err
		}, id), true, nil
	case SpecQuality:
		x := spec.Value
		return component.NewEquation(owner, "x", component.EqBoundary, func(v component.Values, props fluid.Properties) (float64, float64, error) {
			h, err := props.EnthalpyPQ(v.Fluid(id), v.P(id), x)
			return v.H(id), h, err
		}, id), true, nil
	case SpecSuperheat:
		dT := spec.Value
		return component.NewEquation(owner, "Td_bp", component.EqBoundary, func(v component.Values, props fluid.Properties) (float64, float64, error) {
			h, err := props.EnthalpyOffset(v.Fluid(id), v.P(id), dT)
			return v.H(id), h, err
		}, id), true, nil
	case SpecHeatDuty, SpecPower:
		c, ok := n.Component(spec.Component)
		if !ok {
			return component.Equation{}, false, fmt.Errorf("unknown component %s", spec.Component)
		}
		var side component.Side
		for _, s := range c.Sides() {
			if s.Name == spec.Side {
				side = s
			}
		}
		in, out, target := side.In, side.Out, spec.Value
		if spec.Kind == SpecHeatDuty {
			return component.NewEquation(c.Label, "Q", component.EqBoundary, func(v component.Values, _ fluid.Properties) (float64, float64, error) {
				return v.M(in) * (v.H(out) - v.H(in)), target, nil
			}, in, out), true, nil
		}
		return component.NewEquation(c.Label, "P", component.EqBoundary, func(v component.Values, _ fluid.Properties) (float64, float64, error) {
			return v.M(in) * (v.H(in) - v.H(out)), target, nil
		}, in, out), true, nil
	}
	return component.Equation{}, false, fmt.Errorf("unknown boundary kind %d", spec.Kind)
}

// fixedValue 查找固定值
func (n *Network) fixedValue(id types.StreamID, q types.Quantity) (float64, bool) {
	for _, s := range n.specs {
		if s.Kind == SpecFixed && s.Stream == id && s.Quantity == q {
			return s.Value, true
		}
	}
	return 0, false
}
