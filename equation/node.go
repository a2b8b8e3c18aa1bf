package equation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"procsim/symbol"
	"procsim/types"
	"procsim/unit"
)

// Type 方程类型，按 Linear < Nonlinear < Differential 的优先级合并
type Type uint8

// 方程类型
const (
	Linear Type = iota
	Nonlinear
	Differential
)

// String 类型名称
func (t Type) String() string {
	switch t {
	case Linear:
		return "linear"
	case Nonlinear:
		return "nonlinear"
	case Differential:
		return "differential"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// MergeType 取优先级更高的类型
func MergeType(a, b Type) Type {
	if a > b {
		return a
	}
	return b
}

// Node 表达式节点
// 不可变值对象。运算出错时错误随结果传递，后续运算保留第一个错误。
type Node struct {
	ws       *Workspace
	id       symbol.NodeID
	lit      float64 // 未挂到工作区的纯数值
	name     string
	unit     unit.Unit
	typ      Type
	symbols  SymbolMap // 自由符号
	literals SymbolMap // 已指定、以常数参与运算的量
	err      error
}

// Lit 无量纲数值节点
func Lit(v float64) Node {
	return Node{id: symbol.None, lit: v, name: formatFloat(v), unit: unit.Dimensionless}
}

func errNode(err error) Node {
	return Node{id: symbol.None, err: err}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// asNode 将运算数转换为节点
func asNode(x any) Node {
	switch v := x.(type) {
	case Node:
		return v
	case float64:
		return Lit(v)
	case float32:
		return Lit(float64(v))
	case int:
		return Lit(float64(v))
	case int64:
		return Lit(float64(v))
	case *Variable:
		if v == nil {
			return nilQuantity("变量")
		}
		return quantityNode(v)
	case *Parameter:
		if v == nil {
			return nilQuantity("参数")
		}
		return quantityNode(v)
	case *Constant:
		if v == nil {
			return nilQuantity("常量")
		}
		return quantityNode(v)
	case Quantity:
		if v == nil {
			return nilQuantity("量")
		}
		return quantityNode(v)
	}
	return errNode(&types.UnexpectedValueError{Context: "无法作为表达式节点", Value: x})
}

func quantityNode(q Quantity) Node {
	if q.Workspace() == nil {
		return errNode(&types.UnexpectedValueError{Context: "量未注册到工作区", Value: q.Name()})
	}
	return q.Node()
}

// nilQuantity 未声明（nil）的量
func nilQuantity(kind string) Node {
	return errNode(&types.UnexpectedValueError{Context: "声明阶段未创建的量", Value: kind})
}

// Err 构造过程中的第一个错误
func (n Node) Err() error { return n.err }

// Name 表达式名称
func (n Node) Name() string { return n.name }

// Unit 单位
func (n Node) Unit() unit.Unit { return n.unit }

// Type 类型
func (n Node) Type() Type { return n.typ }

// Symbols 自由符号映射
func (n Node) Symbols() SymbolMap { return n.symbols }

// Literals 以常数参与运算的已指定量
func (n Node) Literals() SymbolMap { return n.literals }

// Workspace 所属工作区，纯数值节点为 nil
func (n Node) Workspace() *Workspace { return n.ws }

// ID 节点下标，纯数值节点为 symbol.None
func (n Node) ID() symbol.NodeID {
	if n.ws == nil {
		return symbol.None
	}
	return n.id
}

// Constant 节点是否为常数及其值
func (n Node) Constant() (float64, bool) {
	if n.err != nil {
		return 0, false
	}
	if n.ws == nil {
		return n.lit, true
	}
	if n.ws.arena.IsConst(n.id) {
		return n.ws.arena.Value(n.id), true
	}
	return 0, false
}

// String 表达式字符串
func (n Node) String() string {
	switch {
	case n.err != nil:
		return "<error: " + n.err.Error() + ">"
	case n.ws == nil:
		return n.name
	}
	return n.ws.arena.Format(n.id, symbol.Namer{})
}

// Eval 以各量当前值求值
func (n Node) Eval() (float64, error) {
	if n.err != nil {
		return 0, n.err
	}
	if n.ws == nil {
		return n.lit, nil
	}
	return n.ws.arena.Eval(n.id, n.env())
}

func (n Node) env() symbol.Env {
	env := symbol.Env{Symbols: make(map[symbol.SymbolID]float64, n.symbols.Len())}
	for _, id := range n.symbols.ids {
		env.Symbols[id] = n.symbols.qs[id].Value()
	}
	return env
}

// withUnit 替换单位
func (n Node) withUnit(u unit.Unit) Node {
	n.unit = u
	return n
}

// ref 节点在工作区中的下标，纯数值节点挂为常数
func (n Node) ref(ws *Workspace) symbol.NodeID {
	if n.ws == nil {
		return ws.arena.Const(n.lit)
	}
	return n.id
}

// Neg 取负
func (n Node) Neg() Node {
	if n.err != nil {
		return n
	}
	out := n
	out.name = "-" + paren(n.name)
	if n.ws == nil {
		out.lit = -n.lit
		return out
	}
	out.id = n.ws.arena.Neg(n.id)
	return out
}

// Add 加法，两侧量纲必须一致
func (n Node) Add(x any) Node { return n.binary(symbol.OpAdd, x) }

// Sub 减法，两侧量纲必须一致
func (n Node) Sub(x any) Node { return n.binary(symbol.OpSub, x) }

// Mul 乘法
func (n Node) Mul(x any) Node { return n.binary(symbol.OpMul, x) }

// Div 除法
func (n Node) Div(x any) Node { return n.binary(symbol.OpDiv, x) }

// Pow 乘方，指数必须无量纲
func (n Node) Pow(x any) Node { return n.binary(symbol.OpPow, x) }

// binary 二元运算：合并符号映射，推导单位和类型
func (n Node) binary(op symbol.Op, x any) Node {
	m := asNode(x)
	if n.err != nil {
		return n
	}
	if m.err != nil {
		return m
	}
	ws := n.ws
	switch {
	case ws == nil:
		ws = m.ws
	case m.ws != nil && m.ws != ws:
		return errNode(&types.UnexpectedValueError{Context: "运算数属于不同的工作区", Value: m.name})
	}

	out := Node{ws: ws, id: symbol.None}
	var err error
	if out.symbols, err = n.symbols.merge(m.symbols); err != nil {
		return errNode(err)
	}
	if out.literals, err = n.literals.merge(m.literals); err != nil {
		return errNode(err)
	}
	out.typ = MergeType(n.typ, m.typ)

	switch op {
	case symbol.OpAdd, symbol.OpSub:
		if !n.unit.Coherent(m.unit) {
			return errNode(&types.DimensionalCoherenceError{Op: n.name + " " + op.String() + " " + m.name, Left: n.unit.Dim, Right: m.unit.Dim})
		}
		out.unit = n.unit
		if n.ws == nil && m.ws != nil {
			out.unit = m.unit
		}
		if op == symbol.OpAdd {
			out.name = n.name + " + " + m.name
		} else {
			out.name = n.name + " - " + paren(m.name)
		}
	case symbol.OpMul:
		out.unit = n.unit.Multiply(m.unit)
		if n.symbols.Len() > 0 && m.symbols.Len() > 0 {
			out.typ = MergeType(out.typ, Nonlinear)
		}
		out.name = paren(n.name) + "*" + paren(m.name)
	case symbol.OpDiv:
		out.unit = n.unit.Divide(m.unit)
		if m.symbols.Len() > 0 {
			out.typ = MergeType(out.typ, Nonlinear)
		}
		out.name = paren(n.name) + "/" + paren(m.name)
	case symbol.OpPow:
		u, err := powUnit(n, m)
		if err != nil {
			return errNode(err)
		}
		out.unit = u
		if v, ok := m.Constant(); !ok || v != 1 {
			out.typ = MergeType(out.typ, Nonlinear)
		}
		out.name = atom(n.name) + "**" + atom(m.name)
	}

	if ws == nil {
		out.lit = apply(op, n.lit, m.lit)
		return out
	}
	a, b := n.ref(ws), m.ref(ws)
	switch op {
	case symbol.OpAdd:
		out.id = ws.arena.Add(a, b)
	case symbol.OpSub:
		out.id = ws.arena.Sub(a, b)
	case symbol.OpMul:
		out.id = ws.arena.Mul(a, b)
	case symbol.OpDiv:
		out.id = ws.arena.Div(a, b)
	case symbol.OpPow:
		out.id = ws.arena.Pow(a, b)
	}
	return out
}

// powUnit 乘方的单位
// 底数无量纲时结果无量纲；否则指数必须是不含自由符号的常数。
func powUnit(base, exp Node) (unit.Unit, error) {
	if !exp.unit.IsDimensionless() {
		return unit.Unit{}, &types.DimensionalCoherenceError{Op: base.name + " ** " + exp.name, Left: exp.unit.Dim, Right: unit.Dimensionless.Dim}
	}
	if base.unit.IsDimensionless() {
		return unit.Dimensionless, nil
	}
	v, ok := exp.Constant()
	if !ok {
		return unit.Unit{}, &types.UnexpectedValueError{Context: "有量纲底数的指数必须是常数", Value: exp.name}
	}
	return base.unit.Power(v), nil
}

func apply(op symbol.Op, a, b float64) float64 {
	switch op {
	case symbol.OpAdd:
		return a + b
	case symbol.OpSub:
		return a - b
	case symbol.OpMul:
		return a * b
	case symbol.OpDiv:
		return a / b
	case symbol.OpPow:
		return math.Pow(a, b)
	}
	return math.NaN()
}

// paren 含加减的名称加括号
func paren(name string) string {
	if strings.ContainsAny(name, " ") {
		return "(" + name + ")"
	}
	return name
}

// atom 非原子名称加括号
func atom(name string) string {
	if strings.ContainsAny(name, " */") || strings.HasPrefix(name, "-") {
		return "(" + name + ")"
	}
	return name
}
