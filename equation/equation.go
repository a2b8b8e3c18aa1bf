package equation

import (
	"procsim/symbol"
	"procsim/types"
)

// Side 方程求值的一侧
type Side int

// 求值位置
const (
	Residual Side = iota // 残差 lhs - rhs
	Left                 // 左侧
	Right                // 右侧
)

// Elementary 等式形式 lhs == rhs
type Elementary struct {
	LHS, RHS any
}

// Eq 构造等式形式
func Eq(lhs, rhs any) Elementary {
	return Elementary{LHS: lhs, RHS: rhs}
}

// Equation 方程
// 残差形式为单个节点（等于0），等式形式保存左右两侧并派生残差。
type Equation struct {
	ws          *Workspace
	name        string
	description string
	residual    Node
	lhs, rhs    Node
	elementary  bool
	typ         Type
}

// New 创建方程，name 为空时自动命名
func New(name, description string, expr any) (*Equation, error) {
	e := &Equation{name: name, description: description}
	if err := e.SetResidual(expr); err != nil {
		return nil, err
	}
	if e.name == "" {
		e.name = "eq_" + e.ws.NextID()
	}
	return e, nil
}

// SetResidual 设置表达式，类型随之重新计算
// 接受节点、量或 Elementary；等式形式中的纯数值一侧沿用另一侧的单位。
func (e *Equation) SetResidual(expr any) error {
	var res, lhs, rhs Node
	elementary := false
	switch x := expr.(type) {
	case Elementary:
		lhs, rhs = asNode(x.LHS), asNode(x.RHS)
		if lhs.err != nil {
			return lhs.err
		}
		if rhs.err != nil {
			return rhs.err
		}
		if lhs.ws == nil && rhs.ws == nil {
			return &types.UnexpectedValueError{Context: "方程两侧都是纯数值", Value: lhs.name + " == " + rhs.name}
		}
		if lhs.ws == nil {
			lhs = lhs.withUnit(rhs.unit)
		}
		if rhs.ws == nil {
			rhs = rhs.withUnit(lhs.unit)
		}
		res = lhs.Sub(rhs)
		elementary = true
	case Node, Quantity:
		res = asNode(x)
		if res.err == nil && res.ws == nil {
			return &types.UnexpectedValueError{Context: "残差不能是纯数值", Value: res.name}
		}
	default:
		return &types.UnexpectedValueError{Context: "方程表达式 " + e.name, Value: expr}
	}
	if res.err != nil {
		return res.err
	}
	e.ws, e.residual, e.lhs, e.rhs, e.elementary = res.ws, res, lhs, rhs, elementary
	e.typ = res.typ
	return nil
}

// Name 名称
func (e *Equation) Name() string { return e.name }

// Description 描述
func (e *Equation) Description() string { return e.description }

// Type 类型
func (e *Equation) Type() Type { return e.typ }

// Workspace 所属工作区
func (e *Equation) Workspace() *Workspace { return e.ws }

// IsElementary 是否为等式形式
func (e *Equation) IsElementary() bool { return e.elementary }

// Sides 等式两侧
func (e *Equation) Sides() (Node, Node, bool) { return e.lhs, e.rhs, e.elementary }

// Residual 残差节点
func (e *Equation) Residual() Node { return e.residual }

// ConvertToResidualForm 由等式两侧重新生成残差
func (e *Equation) ConvertToResidualForm() (Node, error) {
	if e.elementary {
		res := e.lhs.Sub(e.rhs)
		if res.err != nil {
			return Node{}, res.err
		}
		e.residual = res
	}
	return e.residual, nil
}

// Symbols 方程的自由符号映射
func (e *Equation) Symbols() SymbolMap { return e.residual.symbols }

// Declared 方程使用的自由量，按出现顺序
func (e *Equation) Declared() []Quantity { return e.residual.symbols.Quantities() }

// References 方程引用的全部量，包括以常数参与的已指定量
func (e *Equation) References() []Quantity {
	all, err := e.residual.symbols.merge(e.residual.literals)
	if err != nil {
		return e.Declared()
	}
	return all.Quantities()
}

// node 选择求值节点
func (e *Equation) node(side Side) (Node, error) {
	switch side {
	case Residual:
		return e.residual, nil
	case Left, Right:
		if !e.elementary {
			return Node{}, &types.AbsentRequiredObjectError{Object: "等式形式", Context: "方程 " + e.name}
		}
		if side == Left {
			return e.lhs, nil
		}
		return e.rhs, nil
	}
	return Node{}, &types.UnexpectedValueError{Context: "方程求值位置", Value: side}
}

// Eval 以各量当前值求值
func (e *Equation) Eval(side Side) (float64, error) {
	return e.EvalAt(side, nil)
}

// EvalAt 以给定取值求值，未给出的量使用当前值
// 导数取值以 "<name>_d" 为键。
func (e *Equation) EvalAt(side Side, values map[string]float64) (float64, error) {
	n, err := e.node(side)
	if err != nil {
		return 0, err
	}
	if n.ws == nil {
		return n.lit, nil
	}
	env := symbol.Env{
		Symbols:     make(map[symbol.SymbolID]float64, n.symbols.Len()),
		Derivatives: make(map[symbol.SymbolID]float64),
	}
	for _, id := range n.symbols.ids {
		q := n.symbols.qs[id]
		v, ok := values[q.Name()]
		if !ok {
			v = q.Value()
		}
		env.Symbols[id] = v
	}
	for _, id := range n.ws.arena.Derivatives(n.id) {
		name := n.ws.arena.Name(id) + types.DerivativeSuffix
		if v, ok := values[name]; ok {
			env.Derivatives[id] = v
		}
	}
	return n.ws.arena.Eval(n.id, env)
}

// Function 编译后的残差函数，参数按编译时给定的顺序排列
type Function func(args ...float64) (float64, error)

// ConvertToFunction 编译残差
// 参数依次为 order 中各量的值，其后为 derivatives 中各量的导数。
func (e *Equation) ConvertToFunction(order []Quantity, derivatives ...Quantity) (Function, error) {
	layout := symbol.Layout{
		Symbols:     make(map[symbol.SymbolID]int, len(order)),
		Derivatives: make(map[symbol.SymbolID]int, len(derivatives)),
	}
	for i, q := range order {
		layout.Symbols[q.Symbol()] = i
	}
	for i, q := range derivatives {
		layout.Derivatives[q.Symbol()] = len(order) + i
	}
	prog, err := e.ws.arena.Compile([]symbol.NodeID{e.residual.id}, layout)
	if err != nil {
		return nil, err
	}
	arity := len(order) + len(derivatives)
	out := make([]float64, 1)
	return func(args ...float64) (float64, error) {
		if len(args) != arity {
			return 0, &types.UnexpectedValueError{Context: "方程 " + e.name + " 参数个数", Value: len(args)}
		}
		prog.Run(args, out)
		return out[0], nil
	}, nil
}

// String 方程字符串
func (e *Equation) String() string {
	if e.elementary {
		return e.name + ": " + e.lhs.String() + " == " + e.rhs.String()
	}
	return e.name + ": " + e.residual.String() + " == 0"
}
