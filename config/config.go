package config

import (
	"fmt"
	"math"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"procsim/solver"
	"procsim/types"
)

// File 一个运行配置文件
type File struct {
	Simulations []*Simulation `hcl:"simulation,block"`
}

// Simulation 一次仿真的配置
type Simulation struct {
	Name              string             `hcl:"name,label"`
	Problem           string             `hcl:"problem"`
	StartTime         float64            `hcl:"start_time,optional"`
	EndTime           float64            `hcl:"end_time,optional"`
	InitialConditions map[string]float64 `hcl:"initial_conditions,optional"`
	Parameters        map[string]float64 `hcl:"parameters,optional"`
	Solver            *Solver            `hcl:"solver,block"`
	Report            *Report            `hcl:"report,block"`
	Optimize          *Optimize          `hcl:"optimize,block"`
}

// Solver 求解参数，缺省字段取默认值
type Solver struct {
	Tolerance        *float64 `hcl:"tolerance,optional"`
	MaxIterations    *int     `hcl:"max_iterations,optional"`
	RelTol           *float64 `hcl:"rel_tol,optional"`
	AbsTol           *float64 `hcl:"abs_tol,optional"`
	InitialStep      *float64 `hcl:"initial_step,optional"`
	MaxStep          *float64 `hcl:"max_step,optional"`
	FiniteDifference *bool    `hcl:"finite_difference,optional"`
}

// Report 输出文件，空字符串表示不输出
type Report struct {
	PNG  string `hcl:"png,optional"`
	SVG  string `hcl:"svg,optional"`
	HTML string `hcl:"html,optional"`
	DOT  string `hcl:"dot,optional"`
}

// Optimize 优化配置：最小化 (objective − target)²，未给 target 时最小化 objective
type Optimize struct {
	Objective      string      `hcl:"objective"`
	Target         *float64    `hcl:"target,optional"`
	MaxEvaluations int         `hcl:"max_evaluations,optional"`
	Decisions      []*Decision `hcl:"decision,block"`
}

// Decision 决策变量
type Decision struct {
	Name    string  `hcl:"name,label"`
	Lower   float64 `hcl:"lower"`
	Upper   float64 `hcl:"upper"`
	Initial float64 `hcl:"initial,optional"`
}

// evalContext 配置中可用的常量
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"pi": cty.NumberFloatVal(math.Pi),
			"e":  cty.NumberFloatVal(math.E),
		},
	}
}

// Load 读取并校验配置文件
func Load(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置 %s: %w", path, err)
	}
	return Parse(src, path)
}

// Parse 解析配置内容，filename 用于诊断信息
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("解析配置 %s: %w", filename, diags)
	}
	var file File
	if diags := gohcl.DecodeBody(f.Body, evalContext(), &file); diags.HasErrors() {
		return nil, fmt.Errorf("解码配置 %s: %w", filename, diags)
	}
	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("配置 %s: %w", filename, err)
	}
	return &file, nil
}

func (f *File) validate() error {
	if len(f.Simulations) == 0 {
		return &types.AbsentRequiredObjectError{Object: "simulation 块", Context: "配置"}
	}
	seen := make(map[string]bool, len(f.Simulations))
	for _, s := range f.Simulations {
		if seen[s.Name] {
			return &types.UnexpectedValueError{Context: "simulation 名称重复", Value: s.Name}
		}
		seen[s.Name] = true
		if s.EndTime < s.StartTime {
			return &types.UnexpectedValueError{Context: "simulation " + s.Name + " 积分区间", Value: [2]float64{s.StartTime, s.EndTime}}
		}
		if o := s.Optimize; o != nil {
			if len(o.Decisions) == 0 {
				return &types.AbsentRequiredObjectError{Object: "decision 块", Context: "simulation " + s.Name + " optimize"}
			}
			for _, d := range o.Decisions {
				if d.Lower > d.Upper {
					return &types.UnexpectedValueError{Context: "decision " + d.Name + " 上下界", Value: [2]float64{d.Lower, d.Upper}}
				}
			}
		}
	}
	return nil
}

// Simulation 按名称查找
func (f *File) Simulation(name string) (*Simulation, error) {
	for _, s := range f.Simulations {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, &types.AbsentRequiredObjectError{Object: "simulation " + name, Context: "配置"}
}

// Dynamic 是否给出了积分区间
func (s *Simulation) Dynamic() bool { return s.EndTime > s.StartTime }

// SolverOptions 合并默认求解参数
func (s *Simulation) SolverOptions() solver.Options {
	o := solver.DefaultOptions()
	c := s.Solver
	if c == nil {
		return o
	}
	if c.Tolerance != nil {
		o.Tolerance = *c.Tolerance
	}
	if c.MaxIterations != nil {
		o.MaxIterations = *c.MaxIterations
	}
	if c.RelTol != nil {
		o.RelTol = *c.RelTol
	}
	if c.AbsTol != nil {
		o.AbsTol = *c.AbsTol
	}
	if c.InitialStep != nil {
		o.InitialStep = *c.InitialStep
	}
	if c.MaxStep != nil {
		o.MaxStep = *c.MaxStep
	}
	if c.FiniteDifference != nil {
		o.FiniteDifference = *c.FiniteDifference
	}
	return o
}
