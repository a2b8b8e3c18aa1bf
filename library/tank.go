package library

import (
	"procsim/equation"
	"procsim/model"
	"procsim/problem"
	"procsim/unit"
)

var (
	area       = unit.Meter.Power(2)
	volumeFlow = unit.Meter.Power(3).Divide(unit.Second)
)

func init() {
	Register(Entry{
		Name:        "tank",
		Description: "进料连接到自由排放的储罐",
		Factory: func(opts ...problem.Option) (*problem.Problem, error) {
			p := problem.New("tank", "feed and draining tank", opts...)
			if err := p.AddModels(
				model.New("feed", "constant feed", &Feed{Flow: 0.5}),
				model.New("tank", "draining tank", &Tank{Area: 1, Coefficient: 0.5}),
			); err != nil {
				return nil, err
			}
			return p, p.Connect("feed", "q", "tank", "qin")
		},
		Start:   0,
		End:     40,
		Initial: map[string]float64{"h_tank": 0.25, "h_tank_d": 0},
	})
}

// Feed 给定流量的进料
type Feed struct {
	Flow float64
	q    *equation.Variable
	flow *equation.Parameter
}

func (f *Feed) DeclareParameters(m *model.Model) (err error) {
	f.flow, err = m.CreateParameter("flow", volumeFlow, "feed flow", f.Flow)
	return err
}

func (f *Feed) DeclareVariables(m *model.Model) (err error) {
	f.q, err = m.CreateVariable("q", volumeFlow, "outlet", equation.Exposed(equation.Output))
	return err
}

func (f *Feed) DeclareEquations(m *model.Model) error {
	_, err := m.CreateEquation("outlet", "", equation.Eq(f.q, f.flow))
	return err
}

// Tank 面积 A 的储罐，出口流量 k·√h
type Tank struct {
	Area, Coefficient float64

	qin, qout, h, t *equation.Variable
	area            *equation.Constant
	k               *equation.Parameter
	time            *equation.Domain
}

func (tk *Tank) DeclareConstants(m *model.Model) (err error) {
	tk.area, err = m.CreateConstant("area", area, "cross section", tk.Area)
	return err
}

func (tk *Tank) DeclareParameters(m *model.Model) (err error) {
	tk.k, err = m.CreateParameter("k", unit.Meter.Power(2.5).Divide(unit.Second), "outlet coefficient", tk.Coefficient)
	return err
}

func (tk *Tank) DeclareVariables(m *model.Model) (err error) {
	if tk.t, err = m.CreateVariable("t", unit.Second, "time"); err != nil {
		return err
	}
	if tk.time, err = m.CreateDomain("time", unit.Second, "", tk.t); err != nil {
		return err
	}
	if tk.qin, err = m.CreateVariable("qin", volumeFlow, "inlet", equation.Exposed(equation.Input)); err != nil {
		return err
	}
	if tk.qout, err = m.CreateVariable("qout", volumeFlow, "outlet", equation.Exposed(equation.Output), equation.Guess(0.5)); err != nil {
		return err
	}
	if tk.h, err = m.CreateVariable("h", unit.Meter, "level", equation.Bounds(0, 10)); err != nil {
		return err
	}
	return tk.h.DistributeOnDomain(tk.time)
}

func (tk *Tank) DeclareEquations(m *model.Model) error {
	balance := equation.Eq(tk.area.Node().Mul(tk.h.Diff(tk.t)), tk.qin.Node().Sub(tk.qout))
	if _, err := m.CreateEquation("balance", "volume balance", balance); err != nil {
		return err
	}
	_, err := m.CreateEquation("outflow", "free discharge", equation.Eq(tk.qout, tk.k.Node().Mul(tk.h.Node().Pow(0.5))))
	return err
}
