package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procsim/equation"
	"procsim/model"
	"procsim/problem"
	"procsim/simulation"
	"procsim/types"
	"procsim/unit"
)

// double x = 2·p
type double struct {
	x *equation.Variable
	p *equation.Parameter
}

func (d *double) DeclareParameters(m *model.Model) (err error) {
	d.p, err = m.CreateParameter("p", unit.Dimensionless, "")
	return err
}

func (d *double) DeclareVariables(m *model.Model) (err error) {
	d.x, err = m.CreateVariable("x", unit.Dimensionless, "")
	return err
}

func (d *double) DeclareEquations(m *model.Model) error {
	_, err := m.CreateEquation("", "", equation.Eq(d.x, d.p.Node().Mul(2)))
	return err
}

func newSimulation(t *testing.T) *simulation.Simulation {
	p := problem.New("double", "")
	require.NoError(t, p.AddModels(model.New("m", "", &double{})))
	return simulation.New("double", p)
}

func squared(sim *simulation.Simulation) (float64, error) {
	x, err := sim.Value("x_m")
	if err != nil {
		return 0, err
	}
	return (x - 3) * (x - 3), nil
}

// TestMinimize 目标 (x−3)² 的最优参数为 1.5
func TestMinimize(t *testing.T) {
	sim := newSimulation(t)
	opt := New(sim, squared, []Decision{{Name: "p_m", Lower: -10, Upper: 10, Initial: 0}})
	res, err := opt.Run()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, res.X["p_m"], 1e-3)
	assert.InDelta(t, 0, res.F, 1e-6)
	assert.Positive(t, res.Evaluations)
	assert.Zero(t, res.Failures)

	x, err := sim.Value("x_m")
	require.NoError(t, err)
	assert.InDelta(t, 3, x, 2e-3)
}

// TestBounds 最优点在边界外时停在上界
func TestBounds(t *testing.T) {
	sim := newSimulation(t)
	res, err := New(sim, squared, []Decision{{Name: "p_m", Lower: 0, Upper: 1, Initial: 0.5}}).Run()
	require.NoError(t, err)
	assert.InDelta(t, 1, res.X["p_m"], 1e-9)
	assert.InDelta(t, 1, res.F, 1e-9)
}

// TestInvalidDecisions 决策变量校验与初始点失败
func TestInvalidDecisions(t *testing.T) {
	sim := newSimulation(t)
	_, err := New(sim, squared, nil).Run()
	assert.ErrorIs(t, err, types.ErrAbsentRequiredObject)

	_, err = New(sim, squared, []Decision{{Name: "p_m", Lower: 1, Upper: 0}}).Run()
	assert.ErrorIs(t, err, types.ErrUnexpectedValue)

	_, err = New(sim, squared, []Decision{{Name: "ghost", Lower: 0, Upper: 1}}).Run()
	assert.ErrorIs(t, err, types.ErrAbsentRequiredObject)
}
