package symbol

import (
	"math"

	"procsim/types"
)

// leafRule 叶子节点的导数
type leafRule func(id NodeID) (NodeID, error)

// Partial 对叶子节点（符号或导数节点）的符号偏导
func (a *Arena) Partial(root, leaf NodeID) (NodeID, error) {
	if !a.Valid(leaf) || (a.nodes[leaf].op != OpSymbol && a.nodes[leaf].op != OpDerivative) {
		return None, &types.UnexpectedValueError{Context: "偏导对象必须是符号或导数", Value: leaf}
	}
	zero := a.Const(0)
	return a.differentiate(root, true, func(id NodeID) (NodeID, error) {
		if id == leaf {
			return a.Const(1), nil
		}
		return zero, nil
	})
}

// TimeDerivative 对自变量 wrt 求全导数
// dependent 判断符号是否依赖于 wrt，依赖的符号生成导数节点。
func (a *Arena) TimeDerivative(root NodeID, wrt SymbolID, dependent func(SymbolID) bool) (NodeID, error) {
	zero := a.Const(0)
	return a.differentiate(root, false, func(id NodeID) (NodeID, error) {
		n := a.nodes[id]
		switch n.op {
		case OpSymbol:
			if n.sym == wrt {
				return a.Const(1), nil
			}
			if dependent != nil && dependent(n.sym) {
				return a.Derivative(id, wrt)
			}
		case OpDerivative:
			return None, &types.UnexpectedValueError{Context: "不支持高阶导数", Value: a.Name(a.nodes[n.a].sym)}
		}
		return zero, nil
	})
}

// differentiate 按拓扑序逐节点应用求导法则
func (a *Arena) differentiate(root NodeID, derivativeLeaf bool, leaf leafRule) (NodeID, error) {
	order := a.reach([]NodeID{root}, !derivativeLeaf)
	d := make(map[NodeID]NodeID, len(order))
	for _, id := range order {
		n := a.nodes[id]
		var r NodeID
		switch n.op {
		case OpConst:
			r = a.Const(0)
		case OpSymbol, OpDerivative:
			v, err := leaf(id)
			if err != nil {
				return None, err
			}
			r = v
		case OpNeg:
			r = a.Neg(d[n.a])
		case OpAdd:
			r = a.Add(d[n.a], d[n.b])
		case OpSub:
			r = a.Sub(d[n.a], d[n.b])
		case OpMul:
			r = a.Add(a.Mul(d[n.a], n.b), a.Mul(n.a, d[n.b]))
		case OpDiv:
			// (a'b - ab')/b^2
			r = a.Sub(a.Div(d[n.a], n.b), a.Div(a.Mul(n.a, d[n.b]), a.Mul(n.b, n.b)))
		case OpPow:
			r = a.diffPow(id, n, d[n.a], d[n.b])
		default:
			v, err := a.diffFunc(id, n, d[n.a])
			if err != nil {
				return None, err
			}
			r = v
		}
		d[id] = r
	}
	return d[root], nil
}

func (a *Arena) diffPow(id NodeID, n node, da, db NodeID) NodeID {
	if a.isValue(db, 0) {
		// b * x^(b-1) * x'
		if a.isValue(da, 0) {
			return a.Const(0)
		}
		return a.Mul(a.Mul(n.b, a.Pow(n.a, a.Sub(n.b, a.Const(1)))), da)
	}
	// x^y * (y' ln x + y x'/x)
	ln, _ := a.Func(OpLog, n.a)
	return a.Mul(id, a.Add(a.Mul(db, ln), a.Div(a.Mul(n.b, da), n.a)))
}

func (a *Arena) diffFunc(id NodeID, n node, da NodeID) (NodeID, error) {
	if a.isValue(da, 0) {
		return da, nil
	}
	x := n.a
	var inner NodeID
	switch n.op {
	case OpLog:
		return a.Div(da, x), nil
	case OpLog10:
		return a.Div(da, a.Mul(x, a.Const(math.Ln10))), nil
	case OpSqrt:
		return a.Div(da, a.Mul(a.Const(2), id)), nil
	case OpExp:
		return a.Mul(id, da), nil
	case OpSin:
		c, _ := a.Func(OpCos, x)
		inner = c
	case OpCos:
		s, _ := a.Func(OpSin, x)
		inner = a.Neg(s)
	case OpTan:
		c, _ := a.Func(OpCos, x)
		return a.Div(da, a.Mul(c, c)), nil
	case OpAbs:
		return a.Mul(da, a.Div(x, id)), nil
	default:
		return None, &types.UnresolvedPanicError{Context: "未知运算 " + n.op.String()}
	}
	return a.Mul(inner, da), nil
}
