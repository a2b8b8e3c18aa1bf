package symbol

import (
	"strconv"
)

// Namer 格式化时的符号命名
// 字段为空时使用符号驻留名称。
type Namer struct {
	Symbol     func(s SymbolID) string
	Derivative func(of, wrt SymbolID) string
}

// 运算优先级
const (
	precSum = iota + 1
	precProduct
	precUnary
	precPower
	precAtom
)

// Format 表达式字符串
func (a *Arena) Format(root NodeID, namer Namer) string {
	if root == None {
		return ""
	}
	if namer.Symbol == nil {
		namer.Symbol = a.Name
	}
	if namer.Derivative == nil {
		namer.Derivative = func(of, wrt SymbolID) string {
			return "d(" + a.Name(of) + ")/d(" + a.Name(wrt) + ")"
		}
	}
	order := a.reach([]NodeID{root}, false)
	text := make(map[NodeID]string, len(order))
	prec := make(map[NodeID]int, len(order))
	wrap := func(id NodeID, p int) string {
		if prec[id] < p {
			return "(" + text[id] + ")"
		}
		return text[id]
	}
	for _, id := range order {
		n := a.nodes[id]
		switch n.op {
		case OpConst:
			text[id], prec[id] = strconv.FormatFloat(n.val, 'g', -1, 64), precAtom
			if n.val < 0 {
				prec[id] = precUnary
			}
		case OpSymbol:
			text[id], prec[id] = namer.Symbol(n.sym), precAtom
		case OpDerivative:
			text[id], prec[id] = namer.Derivative(a.nodes[n.a].sym, n.sym), precAtom
		case OpNeg:
			text[id], prec[id] = "-"+wrap(n.a, precUnary+1), precUnary
		case OpAdd:
			text[id], prec[id] = wrap(n.a, precSum)+" + "+wrap(n.b, precSum), precSum
		case OpSub:
			text[id], prec[id] = wrap(n.a, precSum)+" - "+wrap(n.b, precProduct), precSum
		case OpMul:
			text[id], prec[id] = wrap(n.a, precProduct)+"*"+wrap(n.b, precProduct), precProduct
		case OpDiv:
			text[id], prec[id] = wrap(n.a, precProduct)+"/"+wrap(n.b, precUnary), precProduct
		case OpPow:
			text[id], prec[id] = wrap(n.a, precAtom)+"**"+wrap(n.b, precAtom), precPower
		default:
			text[id], prec[id] = n.op.String()+"("+text[n.a]+")", precAtom
		}
	}
	return text[root]
}
