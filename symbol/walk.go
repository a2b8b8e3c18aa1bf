package symbol

import "sort"

// Reachable 从根出发可达的全部节点，按下标升序（拓扑序）
func (a *Arena) Reachable(roots ...NodeID) []NodeID {
	return a.reach(roots, true)
}

// reach 迭代收集可达节点，intoDerivative 为 false 时不进入导数节点的操作数
func (a *Arena) reach(roots []NodeID, intoDerivative bool) []NodeID {
	seen := make(map[NodeID]struct{}, len(roots)*4)
	stack := make([]NodeID, 0, len(roots))
	for _, r := range roots {
		if r != None {
			stack = append(stack, r)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		n := a.nodes[id]
		if n.op == OpDerivative && !intoDerivative {
			continue
		}
		if n.a != None {
			stack = append(stack, n.a)
		}
		if n.b != None {
			stack = append(stack, n.b)
		}
	}
	order := make([]NodeID, 0, len(seen))
	for id := range seen {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return order
}

// Symbols 表达式中出现的自由符号，按首次创建顺序
// 只出现在导数内部的符号不计入。
func (a *Arena) Symbols(roots ...NodeID) []SymbolID {
	var out []SymbolID
	for _, id := range a.reach(roots, false) {
		if n := a.nodes[id]; n.op == OpSymbol {
			out = append(out, n.sym)
		}
	}
	return out
}

// Derivatives 表达式中被求导的符号，按导数节点创建顺序去重
func (a *Arena) Derivatives(roots ...NodeID) []SymbolID {
	var out []SymbolID
	seen := make(map[SymbolID]bool)
	for _, id := range a.Reachable(roots...) {
		n := a.nodes[id]
		if n.op != OpDerivative {
			continue
		}
		s := a.nodes[n.a].sym
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// HasDerivative 表达式是否包含导数节点
func (a *Arena) HasDerivative(roots ...NodeID) bool {
	for _, id := range a.Reachable(roots...) {
		if a.nodes[id].op == OpDerivative {
			return true
		}
	}
	return false
}

// DerivativeWrt 表达式中导数节点使用的自变量，按创建顺序去重
func (a *Arena) DerivativeWrt(roots ...NodeID) []SymbolID {
	var out []SymbolID
	seen := make(map[SymbolID]bool)
	for _, id := range a.Reachable(roots...) {
		n := a.nodes[id]
		if n.op == OpDerivative && !seen[n.sym] {
			seen[n.sym] = true
			out = append(out, n.sym)
		}
	}
	return out
}
