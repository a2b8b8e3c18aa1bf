package symbol

import (
	"procsim/types"
)

// Env 求值环境
type Env struct {
	Symbols     map[SymbolID]float64 // 符号取值
	Derivatives map[SymbolID]float64 // 导数取值，以被求导符号为键
}

// Eval 数值求值
func (a *Arena) Eval(root NodeID, env Env) (float64, error) {
	vals, err := a.EvalAll(env, root)
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

// EvalAll 一次遍历对多个根求值
func (a *Arena) EvalAll(env Env, roots ...NodeID) ([]float64, error) {
	order := a.reach(roots, false)
	reg := make(map[NodeID]float64, len(order))
	for _, id := range order {
		n := a.nodes[id]
		switch {
		case n.op == OpConst:
			reg[id] = n.val
		case n.op == OpSymbol:
			v, ok := env.Symbols[n.sym]
			if !ok {
				return nil, &types.UnexpectedValueError{Context: "符号未赋值", Value: a.Name(n.sym)}
			}
			reg[id] = v
		case n.op == OpDerivative:
			s := a.nodes[n.a].sym
			v, ok := env.Derivatives[s]
			if !ok {
				return nil, &types.UnexpectedValueError{Context: "导数未赋值", Value: a.Name(s)}
			}
			reg[id] = v
		case n.op == OpNeg || n.op.IsFunc():
			reg[id] = apply1(n.op, reg[n.a])
		default:
			reg[id] = apply2(n.op, reg[n.a], reg[n.b])
		}
	}
	out := make([]float64, len(roots))
	for i, r := range roots {
		out[i] = reg[r]
	}
	return out, nil
}
