package library

import (
	"procsim/equation"
	"procsim/model"
	"procsim/problem"
	"procsim/unit"
)

func init() {
	Register(Entry{
		Name:        "nonlinear",
		Description: "两个线性方程与一个二次方程",
		Factory: func(opts ...problem.Option) (*problem.Problem, error) {
			p := problem.New("nonlinear", "quadratic balance", opts...)
			return p, p.AddModels(model.New("nl", "quadratic balance", &Nonlinear{}))
		},
	})
}

// Nonlinear a+b=100, a+c·d=4, (c·d)² = a·b
type Nonlinear struct {
	a, b, c *equation.Variable
	d       *equation.Constant
}

func (n *Nonlinear) DeclareConstants(m *model.Model) (err error) {
	n.d, err = m.CreateConstant("d", rate, "", 0.7)
	return err
}

func (n *Nonlinear) DeclareVariables(m *model.Model) (err error) {
	if n.a, err = m.CreateVariable("a", massFlow, "", equation.Exposed(equation.Output)); err != nil {
		return err
	}
	if n.b, err = m.CreateVariable("b", massFlow, ""); err != nil {
		return err
	}
	n.c, err = m.CreateVariable("c", unit.Kilogram, "")
	return err
}

func (n *Nonlinear) DeclareEquations(m *model.Model) error {
	cd := n.c.Node().Mul(n.d)
	for _, expr := range []any{
		equation.Eq(n.a.Node().Add(n.b), 100),
		equation.Eq(n.a.Node().Add(cd), 4),
		equation.Eq(cd.Pow(2), n.a.Node().Mul(n.b)),
	} {
		if _, err := m.CreateEquation("", "", expr); err != nil {
			return err
		}
	}
	return nil
}
