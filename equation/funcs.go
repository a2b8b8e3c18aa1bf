package equation

import (
	"math"

	"procsim/symbol"
	"procsim/types"
)

// Log 自然对数
func Log(x any) Node { return call(symbol.OpLog, math.Log, x) }

// Log10 常用对数
func Log10(x any) Node { return call(symbol.OpLog10, math.Log10, x) }

// Sqrt 开方
func Sqrt(x any) Node { return call(symbol.OpSqrt, math.Sqrt, x) }

// Exp 指数
func Exp(x any) Node { return call(symbol.OpExp, math.Exp, x) }

// Sin 正弦
func Sin(x any) Node { return call(symbol.OpSin, math.Sin, x) }

// Cos 余弦
func Cos(x any) Node { return call(symbol.OpCos, math.Cos, x) }

// Tan 正切
func Tan(x any) Node { return call(symbol.OpTan, math.Tan, x) }

// Abs 绝对值
func Abs(x any) Node { return call(symbol.OpAbs, math.Abs, x) }

// call 超越函数，参数必须无量纲，结果无量纲且至少为非线性
func call(op symbol.Op, f func(float64) float64, x any) Node {
	n := asNode(x)
	if n.err != nil {
		return n
	}
	if !n.unit.IsDimensionless() {
		return errNode(&types.NonDimensionalArgumentError{Func: op.String(), Dim: n.unit.Dim})
	}
	out := n
	out.name = op.String() + "(" + n.name + ")"
	out.typ = MergeType(n.typ, Nonlinear)
	out.unit = n.unit
	if n.ws == nil {
		out.lit = f(n.lit)
		return out
	}
	id, err := n.ws.arena.Func(op, n.id)
	if err != nil {
		return errNode(err)
	}
	out.id = id
	return out
}

// Diff 表达式对自变量的导数
// 表达式中至少要有一个分布在以 indep 为自变量的域上的变量。
func Diff(x any, indep *Variable) Node {
	n := asNode(x)
	if n.err != nil {
		return n
	}
	if indep == nil {
		return errNode(&types.AbsentRequiredObjectError{Object: "自变量", Context: "Diff " + n.name})
	}
	if n.ws != nil && indep.ws != n.ws {
		return errNode(&types.UnexpectedValueError{Context: "自变量属于不同的工作区", Value: indep.name})
	}
	dependent := func(s symbol.SymbolID) bool {
		q, ok := n.symbols.Get(s)
		if !ok {
			return false
		}
		v, ok := q.(*Variable)
		return ok && v.domain != nil && v.domain.indep == indep
	}
	found := false
	for _, s := range n.symbols.ids {
		if dependent(s) {
			found = true
			break
		}
	}
	if !found {
		return errNode(&types.AbsentRequiredObjectError{Object: "分布在 " + indep.name + " 域上的变量", Context: "Diff " + n.name})
	}
	id, err := n.ws.arena.TimeDerivative(n.id, indep.sym, dependent)
	if err != nil {
		return errNode(err)
	}
	symbols, err := n.symbols.merge(singleSymbol(indep.sym, indep))
	if err != nil {
		return errNode(err)
	}
	return Node{
		ws:       n.ws,
		id:       id,
		name:     "d(" + n.name + ")/d(" + indep.name + ")",
		unit:     n.unit.Divide(indep.unit),
		typ:      Differential,
		symbols:  symbols,
		literals: n.literals,
	}
}
