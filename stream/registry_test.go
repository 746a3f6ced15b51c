package stream

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"carnot/types"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, err := r.Add("c31", "R1336MZZZ")
	assert.NilError(t, err)
	b, err := r.Add("c32", "R1336MZZZ")
	assert.NilError(t, err)
	assert.Equal(t, a, 0)
	assert.Equal(t, b, 1)
	assert.Equal(t, r.Len(), 2)

	_, err = r.Add("c31", "WATER")
	assert.ErrorContains(t, err, "c31 declared twice")
	_, err = r.Add("", "WATER")
	assert.ErrorContains(t, err, "empty label")

	id, ok := r.Lookup("c32")
	assert.Check(t, ok)
	assert.Equal(t, id, b)
	_, ok = r.Lookup("c99")
	assert.Check(t, !ok)
	assert.Equal(t, r.Label(b), "c32")
	assert.Equal(t, r.Label(7), "#7")
	assert.Check(t, !r.Has(types.NoStream))
}

func TestRegistryValues(t *testing.T) {
	r := NewRegistry()
	id, err := r.Add("a", "WATER")
	assert.NilError(t, err)
	assert.NilError(t, r.Set(id, types.Pressure, 2e5))
	assert.NilError(t, r.Set(id, types.Enthalpy, 4e5))
	assert.NilError(t, r.Set(id, types.MassFlow, 1.5))
	assert.Equal(t, r.Value(id, types.Pressure), 2e5)
	assert.Equal(t, r.Value(id, types.Enthalpy), 4e5)
	assert.Equal(t, r.Value(id, types.MassFlow), 1.5)
	assert.DeepEqual(t, r.Get(id), Stream{ID: id, Label: "a", Fluid: "WATER", P: 2e5, H: 4e5, M: 1.5})

	assert.ErrorContains(t, r.Set(id, types.MassFlow, -1), "negative mass flow")
	assert.ErrorContains(t, r.Set(3, types.Pressure, 1), "unknown handle 3")

	all := r.All()
	all[0].P = 0
	assert.Equal(t, r.Value(id, types.Pressure), 2e5)
}

func TestFreeze(t *testing.T) {
	r := NewRegistry()
	id, err := r.Add("a", "WATER")
	assert.NilError(t, err)
	r.Freeze()
	assert.Check(t, r.Frozen())
	assert.Check(t, errors.Is(r.Set(id, types.Pressure, 1e5), ErrFrozen))
	_, err = r.Add("b", "WATER")
	assert.Check(t, is.ErrorIs(err, ErrFrozen))
}
