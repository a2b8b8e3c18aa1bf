package procsim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"procsim/config"
	"procsim/equation"
	"procsim/library"
	"procsim/optimization"
	"procsim/problem"
	"procsim/report"
	"procsim/simulation"
)

// Outcome 一次配置运行的结果
type Outcome struct {
	Simulation   *simulation.Simulation
	Optimization *optimization.Result // 未配置优化时为 nil
}

// Run 按配置构造问题、求解或优化，并写出报告
func Run(cfg *config.Simulation, log logr.Logger) (*Outcome, error) {
	entry, err := library.Lookup(cfg.Problem)
	if err != nil {
		return nil, err
	}
	log = log.WithValues("run", cfg.Name)
	p, err := entry.New(problem.WithLogger(log))
	if err != nil {
		return nil, err
	}
	for k, v := range cfg.Parameters {
		p.Specify(k, v)
	}
	start, end := entry.Start, entry.End
	if cfg.Dynamic() {
		start, end = cfg.StartTime, cfg.EndTime
	}
	sim := simulation.New(cfg.Name, p,
		simulation.WithLogger(log),
		simulation.WithTimeSpan(start, end),
		simulation.WithSolverOptions(cfg.SolverOptions()))
	sim.SetInitialConditions(entry.InitialConditions())
	sim.SetInitialConditions(cfg.InitialConditions)

	out := &Outcome{Simulation: sim}
	if cfg.Optimize != nil {
		res, err := optimize(sim, cfg.Optimize, log)
		if err != nil {
			return nil, err
		}
		out.Optimization = &res
	} else if err := sim.Run(); err != nil {
		return nil, err
	}
	if cfg.Report != nil {
		if err := write(sim, p, cfg.Report, log); err != nil {
			return out, err
		}
	}
	return out, nil
}

// optimize 按配置构造目标函数和决策变量
func optimize(sim *simulation.Simulation, cfg *config.Optimize, log logr.Logger) (optimization.Result, error) {
	objective := func(s *simulation.Simulation) (float64, error) {
		v, err := s.Value(cfg.Objective)
		if err != nil {
			return 0, err
		}
		if cfg.Target == nil {
			return v, nil
		}
		d := v - *cfg.Target
		return d * d, nil
	}
	decisions := make([]optimization.Decision, len(cfg.Decisions))
	for i, d := range cfg.Decisions {
		decisions[i] = optimization.Decision{Name: d.Name, Lower: d.Lower, Upper: d.Upper, Initial: d.Initial}
	}
	opts := []optimization.Option{optimization.WithLogger(log)}
	if cfg.MaxEvaluations > 0 {
		opts = append(opts, optimization.WithMaxEvaluations(cfg.MaxEvaluations))
	}
	return optimization.New(sim, objective, decisions, opts...).Run()
}

// write 写出配置中要求的报告文件
func write(sim *simulation.Simulation, p *problem.Problem, cfg *config.Report, log logr.Logger) error {
	if cfg.DOT != "" {
		if err := writeFile(cfg.DOT, func(w io.Writer) error {
			_, err := io.WriteString(w, report.ProblemGraph(p).String())
			return err
		}); err != nil {
			return err
		}
	}
	if cfg.PNG == "" && cfg.SVG == "" && cfg.HTML == "" {
		return nil
	}
	domains, err := sim.Domains()
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		log.Info("没有域记录，跳过曲线输出")
		return nil
	}
	for i, d := range domains {
		plots := []struct {
			path   string
			render func(io.Writer) error
		}{
			{cfg.PNG, func(w io.Writer) error { return report.PlotDomain(d, w, "png") }},
			{cfg.SVG, func(w io.Writer) error { return report.PlotDomain(d, w, "svg") }},
			{cfg.HTML, func(w io.Writer) error { return report.ChartDomain(d, w) }},
		}
		for _, pl := range plots {
			if pl.path == "" {
				continue
			}
			if err := writeFile(domainPath(pl.path, d, i), pl.render); err != nil {
				return err
			}
		}
	}
	return nil
}

// domainPath 第一个域使用给定路径，其余在文件名后加域名
func domainPath(path string, d *equation.Domain, i int) string {
	if i == 0 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + d.Name() + ext
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("写出 %s: %w", path, err)
	}
	return f.Close()
}
