package library

import (
	"procsim/equation"
	"procsim/model"
	"procsim/problem"
	"procsim/unit"
)

var (
	massFlow = unit.Kilogram.Divide(unit.Second)
	rate     = unit.Dimensionless.Divide(unit.Second)
)

func init() {
	Register(Entry{
		Name:        "linear",
		Description: "四个线性方程，解为 a=1 b=0 c=d=1/0.7",
		Factory: func(opts ...problem.Option) (*problem.Problem, error) {
			p := problem.New("linear", "linear balance", opts...)
			return p, p.AddModels(model.New("linear", "linear balance", &Linear{}))
		},
	})
}

// Linear 线性物料平衡
type Linear struct {
	a, b, c, d *equation.Variable
	e          *equation.Constant
}

// DeclareConstants 常量
func (l *Linear) DeclareConstants(m *model.Model) (err error) {
	l.e, err = m.CreateConstant("e", rate, "rate constant", 0.7)
	return err
}

// DeclareVariables 变量
func (l *Linear) DeclareVariables(m *model.Model) (err error) {
	if l.a, err = m.CreateVariable("a", massFlow, "flow a"); err != nil {
		return err
	}
	if l.b, err = m.CreateVariable("b", massFlow, "flow b"); err != nil {
		return err
	}
	if l.c, err = m.CreateVariable("c", unit.Kilogram, "holdup c", equation.Exposed(equation.Output)); err != nil {
		return err
	}
	l.d, err = m.CreateVariable("d", unit.Kilogram, "holdup d", equation.Exposed(equation.Output))
	return err
}

// DeclareEquations 方程
func (l *Linear) DeclareEquations(m *model.Model) error {
	eqs := []struct {
		name string
		expr any
	}{
		{"total", equation.Eq(l.a.Node().Add(l.b), 1)},
		{"feed", equation.Eq(l.a.Node().Add(l.c.Node().Mul(l.e)), 2)},
		{"holdup", equation.Eq(l.e.Node().Mul(l.c), l.a.Node().Add(l.b))},
		{"mirror", equation.Eq(l.c.Node().Mul(l.e), l.d.Node().Mul(l.e))},
	}
	for _, eq := range eqs {
		if _, err := m.CreateEquation(eq.name, "", eq.expr); err != nil {
			return err
		}
	}
	return nil
}
