package library

import (
	"procsim/equation"
	"procsim/model"
	"procsim/problem"
	"procsim/unit"
)

func init() {
	Register(Entry{
		Name:        "lotka_volterra",
		Description: "捕食者-被捕食者模型",
		Factory: func(opts ...problem.Option) (*problem.Problem, error) {
			p := problem.New("lotka_volterra", "predator prey", opts...)
			return p, p.AddModels(model.New("lv", "predator prey", &LotkaVolterra{}))
		},
		Start:   0,
		End:     16,
		Initial: map[string]float64{"u_lv": 10, "v_lv": 5},
	})
}

// LotkaVolterra du/dt = a·u − b·u·v, dv/dt = d·b·u·v − c·v
type LotkaVolterra struct {
	u, v, t    *equation.Variable
	a, b, c, d *equation.Constant
	time       *equation.Domain
}

func (lv *LotkaVolterra) DeclareConstants(m *model.Model) (err error) {
	if lv.a, err = m.CreateConstant("a", rate, "prey growth", 1); err != nil {
		return err
	}
	if lv.b, err = m.CreateConstant("b", rate, "predation", 0.1); err != nil {
		return err
	}
	if lv.c, err = m.CreateConstant("c", rate, "predator death", 1.5); err != nil {
		return err
	}
	lv.d, err = m.CreateConstant("d", unit.Dimensionless, "conversion", 0.75)
	return err
}

func (lv *LotkaVolterra) DeclareVariables(m *model.Model) (err error) {
	if lv.t, err = m.CreateVariable("t", unit.Second, "time"); err != nil {
		return err
	}
	if lv.time, err = m.CreateDomain("time", unit.Second, "time domain", lv.t); err != nil {
		return err
	}
	if lv.u, err = m.CreateVariable("u", unit.Dimensionless, "prey", equation.Latex(`u`)); err != nil {
		return err
	}
	if lv.v, err = m.CreateVariable("v", unit.Dimensionless, "predator", equation.Latex(`v`)); err != nil {
		return err
	}
	if err = lv.u.DistributeOnDomain(lv.time); err != nil {
		return err
	}
	return lv.v.DistributeOnDomain(lv.time)
}

func (lv *LotkaVolterra) DeclareEquations(m *model.Model) error {
	prey := lv.a.Node().Mul(lv.u).Sub(lv.b.Node().Mul(lv.u).Mul(lv.v))
	predator := lv.d.Node().Mul(lv.b).Mul(lv.u).Mul(lv.v).Sub(lv.c.Node().Mul(lv.v))
	if _, err := m.CreateEquation("prey", "prey balance", equation.Eq(lv.u.Diff(lv.t), prey)); err != nil {
		return err
	}
	_, err := m.CreateEquation("predator", "predator balance", equation.Eq(lv.v.Diff(lv.t), predator))
	return err
}
