package simulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procsim/block"
	"procsim/equation"
	"procsim/library"
	"procsim/model"
	"procsim/problem"
	"procsim/solver"
	"procsim/types"
	"procsim/unit"
)

func build(t *testing.T, name string) (*problem.Problem, library.Entry) {
	e, err := library.Lookup(name)
	require.NoError(t, err)
	p, err := e.New(problem.WithIDGenerator(&equation.SequenceGenerator{}))
	require.NoError(t, err)
	return p, e
}

// TestLinearScenario 线性方程组
func TestLinearScenario(t *testing.T) {
	p, _ := build(t, "linear")
	sim := New("linear", p)
	require.NoError(t, sim.Run())
	assert.Equal(t, block.Linear, sim.Kind())
	want := map[string]float64{"a_linear": 1, "b_linear": 0, "c_linear": 1.4285714, "d_linear": 1.4285714}
	for k, v := range want {
		got, err := sim.Value(k)
		require.NoError(t, err)
		assert.InDelta(t, v, got, 1e-6, k)
	}
	q, err := p.Quantity("c_linear")
	require.NoError(t, err)
	assert.InDelta(t, 1/0.7, q.Value(), 1e-12)
	assert.False(t, q.IsSpecified())

	_, err = sim.Value("nope")
	assert.ErrorIs(t, err, types.ErrAbsentRequiredObject)
}

// TestNonlinearScenario 非线性方程组从默认初值收敛
func TestNonlinearScenario(t *testing.T) {
	p, _ := build(t, "nonlinear")
	sim := New("nonlinear", p)
	require.NoError(t, sim.Run())
	assert.Equal(t, block.Nonlinear, sim.Kind())
	res := sim.Results()
	assert.InDelta(t, 0.148557, res["a_nl"], 1e-5)
	assert.InDelta(t, 99.851443, res["b_nl"], 1e-5)
	assert.InDelta(t, 5.502062, res["c_nl"], 1e-5)
	assert.Positive(t, sim.Statistics().Iterations)
}

// TestDifferentialScenario 捕食者-被捕食者模型，结果写入时间域
func TestDifferentialScenario(t *testing.T) {
	p, e := build(t, "lotka_volterra")
	sim := New("lv", p,
		WithTimeSpan(e.Start, e.End),
		WithSolverOptions(solver.Options{RelTol: 1e-10, AbsTol: 1e-12}))
	sim.SetInitialConditions(e.InitialConditions())
	require.NoError(t, sim.Run())
	assert.Equal(t, block.Differential, sim.Kind())

	u, err := sim.Value("u_lv")
	require.NoError(t, err)
	v, err := sim.Value("v_lv")
	require.NoError(t, err)
	assert.InDelta(t, 8.38505427, u, 1e-5)
	assert.InDelta(t, 7.1602100083, v, 1e-5)
	assert.Positive(t, sim.Statistics().Iterations)
	assert.Positive(t, sim.Statistics().JacobianEvaluations)

	domains, err := sim.Domains()
	require.NoError(t, err)
	require.Len(t, domains, 1)
	d := domains[0]
	assert.Equal(t, []string{"t_lv", "u_lv", "v_lv"}, d.Columns())
	assert.Equal(t, sim.Statistics().Steps+1, d.Len())
	assert.Equal(t, []float64{0, 10, 5}, d.Rows()[0])
	last, ok := d.Last()
	require.True(t, ok)
	assert.Equal(t, 16.0, last[0])
	assert.InDelta(t, u, last[1], 1e-12)

	sim.Reset()
	assert.Zero(t, d.Len())
	assert.Empty(t, sim.Results())
	assert.False(t, sim.Done())
}

// TestMissingInitialConditions 缺少导数变量初值
func TestMissingInitialConditions(t *testing.T) {
	p, e := build(t, "lotka_volterra")
	sim := New("lv", p, WithTimeSpan(e.Start, e.End))
	sim.SetInitialConditions(map[string]float64{"u_lv": 10})
	assert.ErrorIs(t, sim.Run(), types.ErrAbsentRequiredObject)

	sim = New("lv", p)
	sim.SetInitialConditions(e.InitialConditions())
	assert.ErrorIs(t, sim.Run(), types.ErrUnexpectedValue)
}

// TestDAEScenario 储罐液位趋于稳态
func TestDAEScenario(t *testing.T) {
	p, e := build(t, "tank")
	sim := New("tank", p, WithTimeSpan(e.Start, e.End))
	sim.SetInitialConditions(e.InitialConditions())
	require.NoError(t, sim.Run())
	assert.Equal(t, block.DAE, sim.Kind())

	res := sim.Results()
	assert.InDelta(t, 0.5, res["q_feed"], 1e-9)
	assert.InDelta(t, 0.5, res["qin_tank"], 1e-9)
	assert.InDelta(t, 1.0, res["h_tank"], 1e-3)
	assert.InDelta(t, 0.5*math.Sqrt(res["h_tank"]), res["qout_tank"], 1e-9)
	assert.Equal(t, 40.0, res["t_tank"])

	domains, err := sim.Domains()
	require.NoError(t, err)
	require.Len(t, domains, 1)
	first := domains[0].Rows()[0]
	assert.Equal(t, []float64{0, 0.25}, first)

	ic := e.InitialConditions()
	delete(ic, "h_tank_d")
	sim = New("tank", p, WithTimeSpan(e.Start, e.End))
	sim.SetInitialConditions(ic)
	assert.ErrorIs(t, sim.Run(), types.ErrAbsentRequiredObject)
}

// TestTanksInSeries 两个储罐串联，各自的时间变量共用一条时间轴
func TestTanksInSeries(t *testing.T) {
	p := problem.New("series", "", problem.WithIDGenerator(&equation.SequenceGenerator{}))
	require.NoError(t, p.AddModels(
		model.New("feed", "", &library.Feed{Flow: 0.5}),
		model.New("t1", "", &library.Tank{Area: 1, Coefficient: 0.5}),
		model.New("t2", "", &library.Tank{Area: 1, Coefficient: 0.5}),
	))
	require.NoError(t, p.Connect("feed", "q", "t1", "qin"))
	require.NoError(t, p.Connect("t1", "qout", "t2", "qin"))

	dof, err := p.DegreesOfFreedom()
	require.NoError(t, err)
	assert.Equal(t, problem.WellPosed, dof.Status())

	sim := New("series", p, WithTimeSpan(0, 60))
	sim.SetInitialConditions(map[string]float64{
		"h_t1": 0.25, "h_t1_d": 0,
		"h_t2": 0.25, "h_t2_d": 0,
	})
	require.NoError(t, sim.Run())
	assert.Equal(t, block.DAE, sim.Kind())

	res := sim.Results()
	assert.InDelta(t, 1.0, res["h_t1"], 1e-2)
	assert.InDelta(t, 1.0, res["h_t2"], 1e-2)
	assert.InDelta(t, res["qout_t1"], res["qin_t2"], 1e-9)
	assert.Equal(t, 60.0, res["t_t1"])
	assert.Equal(t, 60.0, res["t_t2"])

	domains, err := sim.Domains()
	require.NoError(t, err)
	require.Len(t, domains, 2)
	for _, d := range domains {
		assert.Equal(t, []float64{0, 0.25}, d.Rows()[0])
		assert.Equal(t, domains[0].Len(), d.Len())
	}
}

// gain y = k·x, x = 1，k 未指定
type gain struct {
	x, y *equation.Variable
	k    *equation.Parameter
}

func (g *gain) DeclareParameters(m *model.Model) (err error) {
	g.k, err = m.CreateParameter("k", unit.Dimensionless, "")
	return err
}

func (g *gain) DeclareVariables(m *model.Model) (err error) {
	if g.x, err = m.CreateVariable("x", unit.Dimensionless, ""); err != nil {
		return err
	}
	g.y, err = m.CreateVariable("y", unit.Dimensionless, "")
	return err
}

func (g *gain) DeclareEquations(m *model.Model) error {
	if _, err := m.CreateEquation("", "", equation.Eq(g.x, 1)); err != nil {
		return err
	}
	_, err := m.CreateEquation("", "", equation.Eq(g.y, g.k.Node().Mul(g.x)))
	return err
}

// TestUnspecifiedParameter 参数未指定时拒绝运行，指定后重建求解
func TestUnspecifiedParameter(t *testing.T) {
	p := problem.New("gain", "")
	require.NoError(t, p.AddModels(model.New("g", "", &gain{})))
	sim := New("gain", p)
	assert.ErrorIs(t, sim.Run(), types.ErrAbsentRequiredObject)

	p.Specify("k_g", 3)
	sim.Reset()
	require.NoError(t, sim.Run())
	y, err := sim.Value("y_g")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, y, 1e-12)
}
