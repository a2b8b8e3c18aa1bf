package unit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUnitAlgebra 验证乘除乘方的量纲组合关系。
func TestUnitAlgebra(t *testing.T) {
	newton, err := Derived("N", "newton", Kilogram, 1, Meter, 1, Second, -2)
	require.NoError(t, err)
	flow, err := Derived("kg/s", "mass flow", Kilogram, 1, Second, -1)
	require.NoError(t, err)
	units := []Unit{Dimensionless, Meter, Kilogram, Second, Ampere, Kelvin, Mole, Candela, newton, flow}
	for _, u1 := range units {
		for _, u2 := range units {
			// divide(multiply(u1,u2),u2) == u1
			back := u1.Multiply(u2).Divide(u2)
			assert.True(t, back.Coherent(u1), "%s*%s/%s", u1, u2, u2)
		}
		assert.True(t, u1.Power(0).IsDimensionless(), "%s^0", u1)
		assert.True(t, u1.Coherent(u1))
	}
	assert.False(t, Meter.Coherent(Second))
}

// TestUnitPower 验证分数指数。
func TestUnitPower(t *testing.T) {
	area := Meter.Power(2)
	require.Equal(t, 2.0, area.Dim[Length])
	side := area.Power(0.5)
	require.True(t, side.Coherent(Meter))
}

// TestUnitString 验证单位字符串输出。
func TestUnitString(t *testing.T) {
	flow := Kilogram.Divide(Second)
	assert.Equal(t, "kg/s", flow.String())
	anon := Unit{Dim: flow.Dim}
	assert.Equal(t, "kg/s", anon.String())
	assert.Equal(t, "1", Dimensionless.String())
	assert.Equal(t, "1/s", Dimensionless.Divide(Second).String())
	accel := Unit{Dim: Exponents{Length: 1, Time: -2}}
	assert.Equal(t, "m/s^2", accel.String())
}

// TestDerived 验证导出单位构造。
func TestDerived(t *testing.T) {
	n, err := Derived("N", "newton", Kilogram, 1, Meter, 1, Second, -2)
	require.NoError(t, err)
	want := Kilogram.Multiply(Meter).Divide(Second.Power(2))
	assert.True(t, n.Coherent(want))
	assert.Equal(t, "N", n.Name)

	for _, terms := range [][]any{
		{Kilogram, 1, Meter},
		{"kg", 1},
		{Kilogram, "2"},
		{Kilogram, int64(2)},
		{Kilogram, math.NaN()},
	} {
		_, err := Derived("bad", "", terms...)
		assert.ErrorIs(t, err, ErrInvalidTerms, "%v", terms)
	}
}
