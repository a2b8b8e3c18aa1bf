package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procsim/equation"
	"procsim/types"
	"procsim/unit"
)

var flow = unit.Kilogram.Divide(unit.Second)

// source 出口流量固定的源
type source struct {
	out   *equation.Variable
	value float64
}

func (s *source) DeclareVariables(m *Model) (err error) {
	s.out, err = m.CreateVariable("out", flow, "outlet", equation.Exposed(equation.Output))
	return err
}

func (s *source) DeclareEquations(m *Model) error {
	_, err := m.CreateEquation("spec", "fixed outlet", equation.Eq(s.out, s.value))
	return err
}

// splitter 一进两出
type splitter struct {
	in, a, b *equation.Variable
	frac     *equation.Parameter
}

func (s *splitter) DeclareParameters(m *Model) (err error) {
	s.frac, err = m.CreateParameter("frac", unit.Dimensionless, "split fraction", 0.25)
	return err
}

func (s *splitter) DeclareVariables(m *Model) (err error) {
	if s.in, err = m.CreateVariable("in", flow, "", equation.Exposed(equation.Input)); err != nil {
		return err
	}
	if s.a, err = m.CreateVariable("a", flow, ""); err != nil {
		return err
	}
	s.b, err = m.CreateVariable("b", flow, "")
	return err
}

func (s *splitter) DeclareEquations(m *Model) error {
	if _, err := m.CreateEquation("", "", equation.Eq(s.a, s.frac.Node().Mul(s.in))); err != nil {
		return err
	}
	_, err := m.CreateEquation("balance", "", equation.Eq(s.in, s.a.Node().Add(s.b)))
	return err
}

// plant 组合模型
type plant struct {
	src *source
	spl *splitter
	log []string
}

func (p *plant) DeclareConstants(m *Model) error {
	p.log = append(p.log, "constants")
	return nil
}

func (p *plant) DeclareConnections(m *Model) error {
	p.log = append(p.log, "connections")
	_, err := m.Connect(p.src.out, p.spl.in)
	return err
}

func newPlant(t *testing.T) (*Model, *plant) {
	t.Helper()
	p := &plant{src: &source{value: 4}, spl: &splitter{}}
	m := New("plant", "", p)
	require.NoError(t, m.AddSubModel(New("src", "", p.src), New("split", "", p.spl)))
	return m, p
}

// TestBuildOrder 声明按阶段执行，子模型在前
func TestBuildOrder(t *testing.T) {
	m, p := newPlant(t)
	ws := equation.NewWorkspace(equation.WithIDGenerator(&equation.SequenceGenerator{}))
	require.NoError(t, m.Build(ws))

	assert.Equal(t, []string{"constants", "connections"}, p.log)
	var names []string
	for _, v := range m.Variables() {
		names = append(names, v.Name())
	}
	assert.Equal(t, []string{"out_src", "in_split", "a_split", "b_split"}, names)

	var eqs []string
	for _, e := range m.Equations() {
		eqs = append(eqs, e.Name())
	}
	want := []string{"spec_src", "eq_1", "balance_split", "connection_out_src_in_split_plant"}
	if diff := cmp.Diff(want, eqs); diff != "" {
		t.Errorf("equation order (-want +got):\n%s", diff)
	}
	assert.Len(t, m.Parameters(), 1)

	v, ok := m.Children()[1].Variable("in")
	require.True(t, ok)
	assert.Equal(t, equation.Input, v.Exposure())
	_, ok = m.Child("src")
	assert.True(t, ok)
}

// TestRebuild 重新 Build 得到全新的量
func TestRebuild(t *testing.T) {
	m, p := newPlant(t)
	require.NoError(t, m.Build(equation.NewWorkspace()))
	first := p.src.out
	require.NoError(t, m.Build(equation.NewWorkspace()))
	assert.NotSame(t, first, p.src.out)
	assert.Len(t, m.Equations(), 4)
	assert.Len(t, m.Variables(), 4)
}

// foreign 引用其他模型的量
type foreign struct {
	other *equation.Variable
	x     *equation.Variable
}

func (f *foreign) DeclareVariables(m *Model) (err error) {
	f.x, err = m.CreateVariable("x", flow, "")
	return err
}

func (f *foreign) DeclareEquations(m *Model) error {
	_, err := m.CreateEquation("leak", "", equation.Eq(f.x, f.other))
	return err
}

// TestUndeclaredObject 方程引用未注册的量
func TestUndeclaredObject(t *testing.T) {
	ws := equation.NewWorkspace()
	other, err := ws.NewVariable("ghost", flow, "")
	require.NoError(t, err)
	m := New("m", "", &foreign{other: other})
	err = m.Build(ws)
	var uod *types.UnexpectedObjectDeclarationError
	require.True(t, errors.As(err, &uod))
	assert.Equal(t, []string{"ghost"}, uod.Undeclared)
	assert.Equal(t, []string{"x_m"}, uod.Known)
	assert.Equal(t, "m", uod.Model)
}

// TestSubModelGuards 子模型名称与归属检查
func TestSubModelGuards(t *testing.T) {
	root := New("root", "", nil)
	a := New("a", "", nil)
	require.NoError(t, root.AddSubModel(a))
	assert.ErrorIs(t, root.AddSubModel(New("a", "", nil)), types.ErrUnexpectedValue)
	assert.ErrorIs(t, New("other", "", nil).AddSubModel(a), types.ErrUnexpectedValue)
	assert.ErrorIs(t, root.AddSubModel(root), types.ErrUnexpectedValue)

	_, err := a.CreateVariable("x", flow, "")
	assert.ErrorIs(t, err, types.ErrAbsentRequiredObject)
}

// TestConnectUnits 连接两侧单位必须一致
func TestConnectUnits(t *testing.T) {
	ws := equation.NewWorkspace()
	m := New("m", "", nil)
	require.NoError(t, m.Build(ws))
	x, err := m.CreateVariable("x", flow, "")
	require.NoError(t, err)
	y, err := m.CreateVariable("y", unit.Kilogram, "")
	require.NoError(t, err)
	_, err = m.Connect(x, y)
	assert.ErrorIs(t, err, types.ErrDimensionalCoherence)
}
