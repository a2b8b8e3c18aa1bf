package equation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procsim/types"
	"procsim/unit"
)

var (
	flow = unit.Kilogram.Divide(unit.Second)
	rate = unit.Dimensionless.Divide(unit.Second)
)

func mustVariable(t *testing.T, ws *Workspace, name string, u unit.Unit, opts ...VariableOption) *Variable {
	t.Helper()
	v, err := ws.NewVariable(name, u, name, opts...)
	require.NoError(t, err)
	return v
}

// TestTypePrecedence 类型按 differential > nonlinear > linear 合并
func TestTypePrecedence(t *testing.T) {
	ws := NewWorkspace()
	x := mustVariable(t, ws, "x", unit.Dimensionless)
	y := mustVariable(t, ws, "y", unit.Dimensionless)
	tm := mustVariable(t, ws, "t", unit.Second)
	dom, err := ws.NewDomain("time", unit.Second, "", tm)
	require.NoError(t, err)
	require.NoError(t, x.DistributeOnDomain(dom))

	lin := x.Node().Add(y)
	require.NoError(t, lin.Err())
	assert.Equal(t, Linear, lin.Type())

	non := Exp(y)
	require.NoError(t, non.Err())
	assert.Equal(t, Nonlinear, non.Type())

	diff := x.Diff(tm)
	require.NoError(t, diff.Err())
	assert.Equal(t, Differential, diff.Type())

	ops := []func(a, b Node) Node{
		func(a, b Node) Node { return a.Add(b) },
		func(a, b Node) Node { return a.Sub(b) },
		func(a, b Node) Node { return a.Mul(b) },
		func(a, b Node) Node { return a.Div(b) },
	}
	for i, op := range ops {
		assert.Equal(t, Nonlinear, op(lin, non).Type(), "op %d", i)
		got := op(lin, diff.Mul(tm))
		require.NoError(t, got.Err())
		assert.Equal(t, Differential, got.Type(), "op %d", i)
		assert.Equal(t, Differential, op(non, diff.Mul(tm)).Type(), "op %d", i)
	}

	assert.Equal(t, Nonlinear, lin.Pow(2).Type())
	assert.Equal(t, Linear, lin.Pow(1).Type())
	assert.Equal(t, Nonlinear, x.Node().Mul(y).Type())
	assert.Equal(t, Linear, x.Node().Mul(3).Type())
	assert.Equal(t, Nonlinear, Lit(1).Div(y).Type())
}

// TestSymbolMapUnion 符号映射合并保持量的同一性
func TestSymbolMapUnion(t *testing.T) {
	ws := NewWorkspace()
	a := mustVariable(t, ws, "a", flow)
	b := mustVariable(t, ws, "b", flow)
	sum := a.Node().Add(b)
	require.NoError(t, sum.Err())
	assert.Equal(t, []string{"a", "b"}, sum.Symbols().Names())
	qa, ok := sum.Symbols().Get(a.Symbol())
	require.True(t, ok)
	assert.Same(t, a, qa)
	qb, ok := sum.Symbols().Get(b.Symbol())
	require.True(t, ok)
	assert.Same(t, b, qb)

	// 重复符号只保留一次
	twice := sum.Sub(a)
	assert.Equal(t, 2, twice.Symbols().Len())
}

// TestDimensionalGuard 加减检查量纲，乘除不检查
func TestDimensionalGuard(t *testing.T) {
	ws := NewWorkspace()
	m := mustVariable(t, ws, "m", unit.Kilogram)
	l := mustVariable(t, ws, "l", unit.Meter)

	bad := m.Node().Add(l)
	var dce *types.DimensionalCoherenceError
	require.True(t, errors.As(bad.Err(), &dce))
	assert.Equal(t, unit.Kilogram.Dim, dce.Left)
	assert.Equal(t, unit.Meter.Dim, dce.Right)

	// 错误随后续运算传递
	assert.ErrorIs(t, bad.Mul(2).Add(m).Err(), types.ErrDimensionalCoherence)

	prod := m.Node().Mul(l)
	require.NoError(t, prod.Err())
	assert.True(t, prod.Unit().Coherent(unit.Kilogram.Multiply(unit.Meter)))

	// 有量纲节点与纯数值相加
	assert.ErrorIs(t, m.Node().Add(1).Err(), types.ErrDimensionalCoherence)
	assert.NoError(t, m.Node().Div(m).Add(1).Err())

	// 超越函数要求无量纲
	assert.ErrorIs(t, Log(m).Err(), types.ErrNonDimensionalArgument)
	assert.NoError(t, Sin(m.Node().Div(m)).Err())
	assert.InDelta(t, math.Log(2), mustEval(t, Log(2)), 1e-15)
}

func mustEval(t *testing.T, n Node) float64 {
	t.Helper()
	v, err := n.Eval()
	require.NoError(t, err)
	return v
}

// TestPowUnit 乘方的单位规则
func TestPowUnit(t *testing.T) {
	ws := NewWorkspace()
	l := mustVariable(t, ws, "l", unit.Meter)
	x := mustVariable(t, ws, "x", unit.Dimensionless)
	k, err := ws.NewConstant("k", unit.Dimensionless, "", 3)
	require.NoError(t, err)

	sq := l.Node().Pow(2)
	require.NoError(t, sq.Err())
	assert.True(t, sq.Unit().Coherent(unit.Meter.Power(2)))

	cube := l.Node().Pow(k)
	require.NoError(t, cube.Err())
	assert.Equal(t, 3.0, cube.Unit().Dim[unit.Length])

	assert.ErrorIs(t, l.Node().Pow(x).Err(), types.ErrUnexpectedValue)
	assert.ErrorIs(t, x.Node().Pow(l).Err(), types.ErrDimensionalCoherence)
	assert.NoError(t, x.Node().Pow(x).Err())
}

// TestSpecifiedQuantityIsLiteral 已指定的量以常数参与运算
func TestSpecifiedQuantityIsLiteral(t *testing.T) {
	ws := NewWorkspace()
	c := mustVariable(t, ws, "c", unit.Kilogram)
	e, err := ws.NewConstant("e", rate, "", 0.7)
	require.NoError(t, err)

	n := c.Node().Mul(e)
	require.NoError(t, n.Err())
	assert.Equal(t, []string{"c"}, n.Symbols().Names())
	assert.Equal(t, []string{"e"}, n.Literals().Names())
	assert.True(t, n.Unit().Coherent(flow))
	assert.Equal(t, Linear, n.Type())

	v, ok := e.Node().Constant()
	require.True(t, ok)
	assert.Equal(t, 0.7, v)
}

// TestDiffRequiresDomain 求导前变量必须分布到域上
func TestDiffRequiresDomain(t *testing.T) {
	ws := NewWorkspace()
	h := mustVariable(t, ws, "h", unit.Meter)
	tm := mustVariable(t, ws, "t", unit.Second)

	assert.ErrorIs(t, h.Diff(tm).Err(), types.ErrAbsentRequiredObject)

	dom, err := ws.NewDomain("time", unit.Second, "", tm)
	require.NoError(t, err)
	require.NoError(t, h.DistributeOnDomain(dom))

	d := h.Diff(tm)
	require.NoError(t, d.Err())
	assert.True(t, d.Unit().Coherent(unit.Meter.Divide(unit.Second)))
	assert.Equal(t, []string{"h", "t"}, d.Symbols().Names())
	assert.Equal(t, "d(h)/d(t)", d.String())

	// 乘积的链式法则
	sq := Diff(h.Node().Mul(h), tm)
	require.NoError(t, sq.Err())
	assert.Equal(t, Differential, sq.Type())

	_, err = ws.NewDomain("space", unit.Meter, "", tm)
	assert.ErrorIs(t, err, types.ErrDimensionalCoherence)
}

// TestWorkspaceGuards 工作区名称唯一、跨工作区运算报错
func TestWorkspaceGuards(t *testing.T) {
	ws := NewWorkspace()
	mustVariable(t, ws, "a", unit.Kilogram)
	_, err := ws.NewVariable("a", unit.Kilogram, "")
	assert.ErrorIs(t, err, types.ErrUnexpectedValue)

	other := NewWorkspace()
	b := mustVariable(t, other, "b", unit.Kilogram)
	a, ok := ws.Quantity("a")
	require.True(t, ok)
	assert.ErrorIs(t, a.Node().Add(b).Err(), types.ErrUnexpectedValue)

	assert.ErrorIs(t, a.Node().Add("x").Err(), types.ErrUnexpectedValue)
}

// TestNilQuantity 未创建的量作为运算数时报错而不是崩溃
func TestNilQuantity(t *testing.T) {
	ws := NewWorkspace()
	x := mustVariable(t, ws, "x", unit.Dimensionless)
	var (
		v *Variable
		p *Parameter
		c *Constant
	)
	for _, operand := range []any{v, p, c, Quantity(v)} {
		assert.ErrorIs(t, x.Node().Add(operand).Err(), types.ErrUnexpectedValue)
	}
	_, err := New("e", "", Eq(x.Node().Add(v), 1))
	assert.ErrorIs(t, err, types.ErrUnexpectedValue)
	_, err = New("f", "", Eq(v, x))
	assert.ErrorIs(t, err, types.ErrUnexpectedValue)

	assert.ErrorIs(t, v.Node().Err(), types.ErrUnexpectedValue)
	assert.ErrorIs(t, p.Node().Err(), types.ErrUnexpectedValue)
	assert.ErrorIs(t, c.Node().Err(), types.ErrUnexpectedValue)
	assert.ErrorIs(t, v.Diff(x).Err(), types.ErrUnexpectedValue)
	assert.ErrorIs(t, Exp(v).Err(), types.ErrUnexpectedValue)
}

// TestSetValue 赋值规则
func TestSetValue(t *testing.T) {
	ws := NewWorkspace()
	a := mustVariable(t, ws, "a", flow)
	b := mustVariable(t, ws, "b", flow)
	p, err := ws.NewParameter("p", flow, "")
	require.NoError(t, err)

	assert.False(t, a.IsSpecified())
	require.NoError(t, a.SetValue(2))
	assert.True(t, a.IsSpecified())
	assert.Equal(t, 2.0, a.Value())

	require.NoError(t, b.SetValue(a))
	assert.Equal(t, 2.0, b.Value())

	assert.ErrorIs(t, b.SetValue(3.0, unit.Meter), types.ErrDimensionalCoherence)
	assert.ErrorIs(t, b.SetValue("3"), types.ErrUnexpectedValue)
	assert.ErrorIs(t, p.SetValue(a), types.ErrUnexpectedValue)

	c := mustVariable(t, ws, "c", unit.Kilogram)
	assert.ErrorIs(t, c.SetValue(a), types.ErrDimensionalCoherence)

	c.SetResult(4)
	assert.False(t, c.IsSpecified())
	assert.Equal(t, 4.0, c.Value())

	_, err = ws.NewVariable("d", flow, "", Bounds(2, 1))
	assert.ErrorIs(t, err, types.ErrUnexpectedValue)
}
