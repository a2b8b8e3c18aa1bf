package symbol

import (
	"procsim/types"
)

// Layout 编译输入布局：符号或导数到输入向量下标
type Layout struct {
	Symbols     map[SymbolID]int
	Derivatives map[SymbolID]int // 以被求导符号为键
}

// instr 寄存器指令
type instr struct {
	op   Op
	a, b int32   // 操作数寄存器
	val  float64 // 常数
	slot int     // 输入下标
}

// Program 编译后的指令带
// 寄存器为内部缓冲，同一 Program 不可并发执行。
type Program struct {
	code    []instr
	regs    []float64
	outputs []int32
	inputs  int
}

// Compile 将多个根编译为一条指令带
func (a *Arena) Compile(roots []NodeID, layout Layout) (*Program, error) {
	order := a.reach(roots, false)
	reg := make(map[NodeID]int32, len(order))
	p := &Program{code: make([]instr, 0, len(order))}
	for _, id := range order {
		n := a.nodes[id]
		in := instr{op: n.op, a: -1, b: -1, slot: -1}
		switch n.op {
		case OpConst:
			in.val = n.val
		case OpSymbol:
			slot, ok := layout.Symbols[n.sym]
			if !ok {
				return nil, &types.UnexpectedValueError{Context: "编译时符号缺少输入位置", Value: a.Name(n.sym)}
			}
			in.slot = slot
		case OpDerivative:
			s := a.nodes[n.a].sym
			slot, ok := layout.Derivatives[s]
			if !ok {
				return nil, &types.UnexpectedValueError{Context: "编译时导数缺少输入位置", Value: a.Name(s)}
			}
			in.slot = slot
		default:
			in.a = reg[n.a]
			if n.b != None {
				in.b = reg[n.b]
			}
		}
		if in.slot >= p.inputs {
			p.inputs = in.slot + 1
		}
		reg[id] = int32(len(p.code))
		p.code = append(p.code, in)
	}
	p.regs = make([]float64, len(p.code))
	p.outputs = make([]int32, len(roots))
	for i, r := range roots {
		p.outputs[i] = reg[r]
	}
	return p, nil
}

// NumInputs 最少输入长度
func (p *Program) NumInputs() int { return p.inputs }

// NumOutputs 输出长度
func (p *Program) NumOutputs() int { return len(p.outputs) }

// Run 执行指令带，in 按 Layout 排列，结果写入 out
func (p *Program) Run(in, out []float64) {
	regs := p.regs
	for i, c := range p.code {
		switch c.op {
		case OpConst:
			regs[i] = c.val
		case OpSymbol, OpDerivative:
			regs[i] = in[c.slot]
		case OpAdd:
			regs[i] = regs[c.a] + regs[c.b]
		case OpSub:
			regs[i] = regs[c.a] - regs[c.b]
		case OpMul:
			regs[i] = regs[c.a] * regs[c.b]
		case OpDiv:
			regs[i] = regs[c.a] / regs[c.b]
		case OpPow:
			regs[i] = apply2(OpPow, regs[c.a], regs[c.b])
		default:
			regs[i] = apply1(c.op, regs[c.a])
		}
	}
	for i, r := range p.outputs {
		out[i] = regs[r]
	}
}
