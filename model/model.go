package model

import (
	"fmt"

	"github.com/go-logr/logr"

	"procsim/equation"
	"procsim/types"
	"procsim/unit"
)

// ConstantDeclarer 声明常量
type ConstantDeclarer interface {
	DeclareConstants(m *Model) error
}

// ParameterDeclarer 声明参数
type ParameterDeclarer interface {
	DeclareParameters(m *Model) error
}

// VariableDeclarer 声明变量
type VariableDeclarer interface {
	DeclareVariables(m *Model) error
}

// EquationDeclarer 声明方程
type EquationDeclarer interface {
	DeclareEquations(m *Model) error
}

// ConnectionDeclarer 声明子模型之间的连接
type ConnectionDeclarer interface {
	DeclareConnections(m *Model) error
}

// stage 声明阶段
type stage struct {
	name string
	run  func(spec any, m *Model) (bool, error)
}

// stages 固定的声明顺序
var stages = []stage{
	{"constants", func(spec any, m *Model) (bool, error) {
		d, ok := spec.(ConstantDeclarer)
		if !ok {
			return false, nil
		}
		return true, d.DeclareConstants(m)
	}},
	{"parameters", func(spec any, m *Model) (bool, error) {
		d, ok := spec.(ParameterDeclarer)
		if !ok {
			return false, nil
		}
		return true, d.DeclareParameters(m)
	}},
	{"variables", func(spec any, m *Model) (bool, error) {
		d, ok := spec.(VariableDeclarer)
		if !ok {
			return false, nil
		}
		return true, d.DeclareVariables(m)
	}},
	{"equations", func(spec any, m *Model) (bool, error) {
		d, ok := spec.(EquationDeclarer)
		if !ok {
			return false, nil
		}
		return true, d.DeclareEquations(m)
	}},
	{"connections", func(spec any, m *Model) (bool, error) {
		d, ok := spec.(ConnectionDeclarer)
		if !ok {
			return false, nil
		}
		return true, d.DeclareConnections(m)
	}},
}

// Model 模型
// spec 实现若干 Declarer 接口，Build 时按固定顺序调用。
type Model struct {
	name        string
	description string
	spec        any
	parent      *Model
	children    []*Model

	ws         *equation.Workspace
	log        logr.Logger
	local      map[string]equation.Quantity
	quantities []equation.Quantity
	variables  []*equation.Variable
	parameters []*equation.Parameter
	constants  []*equation.Constant
	equations  []*equation.Equation
	domains    []*equation.Domain
}

// New 创建模型
func New(name, description string, spec any) *Model {
	return &Model{
		name:        name,
		description: description,
		spec:        spec,
		log:         logr.Discard(),
		local:       make(map[string]equation.Quantity),
	}
}

// Name 名称
func (m *Model) Name() string { return m.name }

// Description 描述
func (m *Model) Description() string { return m.description }

// Spec 声明实现
func (m *Model) Spec() any { return m.spec }

// Parent 上级模型
func (m *Model) Parent() *Model { return m.parent }

// Children 子模型
func (m *Model) Children() []*Model { return append([]*Model(nil), m.children...) }

// Workspace 最近一次 Build 使用的工作区
func (m *Model) Workspace() *equation.Workspace { return m.ws }

// AddSubModel 嵌入子模型
func (m *Model) AddSubModel(children ...*Model) error {
	for _, c := range children {
		if c == nil || c == m {
			return &types.UnexpectedValueError{Context: "子模型 " + m.name, Value: c}
		}
		if c.parent != nil {
			return &types.UnexpectedValueError{Context: "子模型已属于 " + c.parent.name, Value: c.name}
		}
		for _, e := range m.children {
			if e.name == c.name {
				return &types.UnexpectedValueError{Context: "子模型名称重复", Value: c.name}
			}
		}
		c.parent = m
		m.children = append(m.children, c)
	}
	return nil
}

// Walk 先子后父遍历模型树
func (m *Model) Walk(fn func(*Model) error) error {
	for _, c := range m.children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return fn(m)
}

// Build 在 ws 中重新声明整棵模型树
// 每个阶段先执行全部子模型，再执行本模型。
func (m *Model) Build(ws *equation.Workspace) error {
	_ = m.Walk(func(x *Model) error {
		x.reset(ws)
		return nil
	})
	for _, st := range stages {
		err := m.Walk(func(x *Model) error {
			ran, err := st.run(x.spec, x)
			if err != nil {
				return fmt.Errorf("模型 %s 声明 %s: %w", x.name, st.name, err)
			}
			if ran {
				x.log.V(1).Info("声明完成", "model", x.name, "stage", st.name)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) reset(ws *equation.Workspace) {
	m.ws = ws
	m.log = ws.Logger().WithValues("model", m.name)
	m.local = make(map[string]equation.Quantity)
	m.quantities = nil
	m.variables = nil
	m.parameters = nil
	m.constants = nil
	m.equations = nil
	m.domains = nil
}

// Qualify 限定名 <name>_<model>
func (m *Model) Qualify(name string) string {
	return name + "_" + m.name
}

func (m *Model) workspace() (*equation.Workspace, error) {
	if m.ws == nil {
		return nil, &types.AbsentRequiredObjectError{Object: "工作区", Context: "模型 " + m.name + " 尚未 Build"}
	}
	return m.ws, nil
}

func (m *Model) remember(short string, q equation.Quantity) {
	m.local[short] = q
	m.quantities = append(m.quantities, q)
}

// CreateVariable 创建变量
func (m *Model) CreateVariable(name string, u unit.Unit, description string, opts ...equation.VariableOption) (*equation.Variable, error) {
	ws, err := m.workspace()
	if err != nil {
		return nil, err
	}
	v, err := ws.NewVariable(m.Qualify(name), u, description, opts...)
	if err != nil {
		return nil, err
	}
	m.remember(name, v)
	m.variables = append(m.variables, v)
	return v, nil
}

// CreateParameter 创建参数，给出 value 时即为已指定
func (m *Model) CreateParameter(name string, u unit.Unit, description string, value ...float64) (*equation.Parameter, error) {
	ws, err := m.workspace()
	if err != nil {
		return nil, err
	}
	p, err := ws.NewParameter(m.Qualify(name), u, description, value...)
	if err != nil {
		return nil, err
	}
	m.remember(name, p)
	m.parameters = append(m.parameters, p)
	return p, nil
}

// CreateConstant 创建常量
func (m *Model) CreateConstant(name string, u unit.Unit, description string, value float64) (*equation.Constant, error) {
	ws, err := m.workspace()
	if err != nil {
		return nil, err
	}
	c, err := ws.NewConstant(m.Qualify(name), u, description, value)
	if err != nil {
		return nil, err
	}
	m.remember(name, c)
	m.constants = append(m.constants, c)
	return c, nil
}

// CreateDomain 创建一维域
func (m *Model) CreateDomain(name string, u unit.Unit, description string, indep *equation.Variable) (*equation.Domain, error) {
	ws, err := m.workspace()
	if err != nil {
		return nil, err
	}
	d, err := ws.NewDomain(m.Qualify(name), u, description, indep)
	if err != nil {
		return nil, err
	}
	m.domains = append(m.domains, d)
	return d, nil
}

// CreateEquation 创建方程
// 方程引用的每个量必须已在本模型或其子模型中注册。
func (m *Model) CreateEquation(name, description string, expr any) (*equation.Equation, error) {
	if _, err := m.workspace(); err != nil {
		return nil, err
	}
	qualified := ""
	if name != "" {
		qualified = m.Qualify(name)
	}
	eq, err := equation.New(qualified, description, expr)
	if err != nil {
		return nil, fmt.Errorf("方程 %s: %w", name, err)
	}
	if eq.Workspace() != m.ws {
		return nil, &types.UnexpectedValueError{Context: "方程不属于模型 " + m.name + " 的工作区", Value: eq.Name()}
	}
	var undeclared []string
	for _, q := range eq.References() {
		if !m.Owns(q) {
			undeclared = append(undeclared, q.Name())
		}
	}
	if len(undeclared) > 0 {
		return nil, &types.UnexpectedObjectDeclarationError{Model: m.name, Undeclared: undeclared, Known: m.Registry()}
	}
	m.equations = append(m.equations, eq)
	m.log.V(2).Info("方程", "equation", eq.String(), "type", eq.Type().String())
	return eq, nil
}

// Connect 在组合模型内连接两个变量：to == from
func (m *Model) Connect(from, to *equation.Variable) (*equation.Equation, error) {
	if from == nil || to == nil {
		return nil, &types.AbsentRequiredObjectError{Object: "连接变量", Context: "模型 " + m.name}
	}
	if !from.Unit().Coherent(to.Unit()) {
		return nil, &types.DimensionalCoherenceError{Op: "connect " + from.Name() + " -> " + to.Name(), Left: from.Unit().Dim, Right: to.Unit().Dim}
	}
	return m.CreateEquation("connection_"+from.Name()+"_"+to.Name(), "connection", equation.Eq(to, from))
}

// Owns 量是否注册在本模型或子模型中
func (m *Model) Owns(q equation.Quantity) bool {
	for _, x := range m.quantities {
		if x == q {
			return true
		}
	}
	for _, c := range m.children {
		if c.Owns(q) {
			return true
		}
	}
	return false
}

// Registry 本模型及子模型注册的全部限定名
func (m *Model) Registry() []string {
	var out []string
	_ = m.Walk(func(x *Model) error {
		for _, q := range x.quantities {
			out = append(out, q.Name())
		}
		return nil
	})
	return out
}

// Quantity 按短名查找本模型的量
func (m *Model) Quantity(name string) (equation.Quantity, bool) {
	q, ok := m.local[name]
	return q, ok
}

// Variable 按短名查找本模型的变量
func (m *Model) Variable(name string) (*equation.Variable, bool) {
	q, ok := m.local[name]
	if !ok {
		return nil, false
	}
	v, ok := q.(*equation.Variable)
	return v, ok
}

// Child 按名称查找子模型
func (m *Model) Child(name string) (*Model, bool) {
	for _, c := range m.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// collect 先子后父收集
func collect[T any](m *Model, get func(*Model) []T) []T {
	var out []T
	_ = m.Walk(func(x *Model) error {
		out = append(out, get(x)...)
		return nil
	})
	return out
}

// Variables 变量，子模型在前
func (m *Model) Variables() []*equation.Variable {
	return collect(m, func(x *Model) []*equation.Variable { return x.variables })
}

// Parameters 参数，子模型在前
func (m *Model) Parameters() []*equation.Parameter {
	return collect(m, func(x *Model) []*equation.Parameter { return x.parameters })
}

// Constants 常量，子模型在前
func (m *Model) Constants() []*equation.Constant {
	return collect(m, func(x *Model) []*equation.Constant { return x.constants })
}

// Equations 方程，子模型在前
func (m *Model) Equations() []*equation.Equation {
	return collect(m, func(x *Model) []*equation.Equation { return x.equations })
}

// Domains 域，子模型在前
func (m *Model) Domains() []*equation.Domain {
	return collect(m, func(x *Model) []*equation.Domain { return x.domains })
}

// String 模型摘要
func (m *Model) String() string {
	return fmt.Sprintf("%s: %d 变量 %d 参数 %d 常量 %d 方程", m.name,
		len(m.Variables()), len(m.Parameters()), len(m.Constants()), len(m.Equations()))
}
