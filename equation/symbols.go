package equation

import (
	"procsim/symbol"
	"procsim/types"
)

// SymbolMap 有序的符号到量的映射
// 不可变，合并时生成新映射。
type SymbolMap struct {
	ids []symbol.SymbolID
	qs  map[symbol.SymbolID]Quantity
}

func singleSymbol(id symbol.SymbolID, q Quantity) SymbolMap {
	return SymbolMap{ids: []symbol.SymbolID{id}, qs: map[symbol.SymbolID]Quantity{id: q}}
}

// Len 条目数
func (m SymbolMap) Len() int { return len(m.ids) }

// Keys 按加入顺序的符号
func (m SymbolMap) Keys() []symbol.SymbolID {
	return append([]symbol.SymbolID(nil), m.ids...)
}

// Get 查找符号对应的量
func (m SymbolMap) Get(id symbol.SymbolID) (Quantity, bool) {
	q, ok := m.qs[id]
	return q, ok
}

// Quantities 按加入顺序的量
func (m SymbolMap) Quantities() []Quantity {
	out := make([]Quantity, len(m.ids))
	for i, id := range m.ids {
		out[i] = m.qs[id]
	}
	return out
}

// Names 按加入顺序的名称
func (m SymbolMap) Names() []string {
	out := make([]string, len(m.ids))
	for i, id := range m.ids {
		out[i] = m.qs[id].Name()
	}
	return out
}

// merge 合并两个映射
// 同一符号绑定到不同的量说明符号空间被破坏。
func (m SymbolMap) merge(o SymbolMap) (SymbolMap, error) {
	if o.Len() == 0 {
		return m, nil
	}
	if m.Len() == 0 {
		return o, nil
	}
	out := SymbolMap{
		ids: make([]symbol.SymbolID, len(m.ids), len(m.ids)+len(o.ids)),
		qs:  make(map[symbol.SymbolID]Quantity, len(m.ids)+len(o.ids)),
	}
	copy(out.ids, m.ids)
	for k, v := range m.qs {
		out.qs[k] = v
	}
	for _, id := range o.ids {
		q := o.qs[id]
		if prev, ok := out.qs[id]; ok {
			if prev != q {
				return SymbolMap{}, &types.UnresolvedPanicError{Context: "符号 " + q.Name() + " 绑定到两个不同的量"}
			}
			continue
		}
		out.ids = append(out.ids, id)
		out.qs[id] = q
	}
	return out, nil
}
