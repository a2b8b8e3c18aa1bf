package symbol

import (
	"fmt"
	"math"

	"procsim/types"
)

// Op 节点运算类型
type Op uint8

// 节点运算
const (
	OpConst Op = iota // 常数
	OpSymbol          // 符号
	OpNeg             // 取负
	OpAdd             // 加
	OpSub             // 减
	OpMul             // 乘
	OpDiv             // 除
	OpPow             // 乘方
	OpLog             // 自然对数
	OpLog10           // 常用对数
	OpSqrt            // 开方
	OpExp             // 指数
	OpSin             // 正弦
	OpCos             // 余弦
	OpTan             // 正切
	OpAbs             // 绝对值
	OpDerivative      // 对自变量的导数，操作数必为符号节点
)

var opNames = [...]string{
	OpConst: "const", OpSymbol: "symbol", OpNeg: "-", OpAdd: "+", OpSub: "-", OpMul: "*",
	OpDiv: "/", OpPow: "**", OpLog: "log", OpLog10: "log10", OpSqrt: "sqrt", OpExp: "exp",
	OpSin: "sin", OpCos: "cos", OpTan: "tan", OpAbs: "abs", OpDerivative: "d",
}

// String 运算名称
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// IsFunc 是否单参数函数
func (op Op) IsFunc() bool {
	return op >= OpLog && op <= OpAbs
}

// NodeID 节点在 Arena 中的下标
type NodeID int32

// None 空节点
const None NodeID = -1

// SymbolID 驻留符号编号
type SymbolID int32

// node 节点存储
// 操作数下标总是小于节点自身下标，按下标升序即为拓扑序。
type node struct {
	op  Op
	a   NodeID   // 第一个操作数
	b   NodeID   // 第二个操作数
	val float64  // 常数值
	sym SymbolID // 符号；导数节点为自变量符号
}

// Arena 表达式节点池
// 节点不可变，结构相同的子表达式共享同一下标。
type Arena struct {
	nodes   []node
	index   map[node]NodeID
	names   []string
	symbols map[string]SymbolID
}

// NewArena 创建节点池
func NewArena() *Arena {
	return &Arena{
		nodes:   make([]node, 0, 64),
		index:   make(map[node]NodeID, 64),
		symbols: make(map[string]SymbolID),
	}
}

// Intern 驻留符号名称，同名返回同一编号
func (a *Arena) Intern(name string) SymbolID {
	if id, ok := a.symbols[name]; ok {
		return id
	}
	id := SymbolID(len(a.names))
	a.names = append(a.names, name)
	a.symbols[name] = id
	return id
}

// Lookup 查找已驻留符号
func (a *Arena) Lookup(name string) (SymbolID, bool) {
	id, ok := a.symbols[name]
	return id, ok
}

// Name 符号名称
func (a *Arena) Name(s SymbolID) string {
	if s < 0 || int(s) >= len(a.names) {
		return fmt.Sprintf("sym%d", s)
	}
	return a.names[s]
}

// Len 节点数量
func (a *Arena) Len() int { return len(a.nodes) }

// Op 节点运算
func (a *Arena) Op(id NodeID) Op { return a.nodes[id].op }

// Operands 节点操作数
func (a *Arena) Operands(id NodeID) (NodeID, NodeID) {
	n := a.nodes[id]
	return n.a, n.b
}

// Value 常数节点的值
func (a *Arena) Value(id NodeID) float64 { return a.nodes[id].val }

// Symbol 符号节点的符号，导数节点返回自变量
func (a *Arena) Symbol(id NodeID) SymbolID { return a.nodes[id].sym }

// IsConst 是否常数节点
func (a *Arena) IsConst(id NodeID) bool { return a.nodes[id].op == OpConst }

// Valid 检查下标
func (a *Arena) Valid(id NodeID) bool { return id >= 0 && int(id) < len(a.nodes) }

func (a *Arena) isValue(id NodeID, v float64) bool {
	n := a.nodes[id]
	return n.op == OpConst && n.val == v
}

// add 驻留节点
func (a *Arena) add(n node) NodeID {
	if id, ok := a.index[n]; ok {
		return id
	}
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, n)
	a.index[n] = id
	return id
}

// Const 常数节点
func (a *Arena) Const(v float64) NodeID {
	return a.add(node{op: OpConst, a: None, b: None, val: v, sym: -1})
}

// Sym 符号节点
func (a *Arena) Sym(s SymbolID) NodeID {
	return a.add(node{op: OpSymbol, a: None, b: None, sym: s})
}

// Derivative 符号 x 对自变量 wrt 的导数节点
func (a *Arena) Derivative(x NodeID, wrt SymbolID) (NodeID, error) {
	if !a.Valid(x) || a.nodes[x].op != OpSymbol {
		return None, &types.UnexpectedValueError{Context: "导数节点的操作数必须是符号", Value: x}
	}
	return a.add(node{op: OpDerivative, a: x, b: None, sym: wrt}), nil
}

// Neg 取负
func (a *Arena) Neg(x NodeID) NodeID {
	n := a.nodes[x]
	switch n.op {
	case OpConst:
		return a.Const(-n.val)
	case OpNeg:
		return n.a
	}
	return a.add(node{op: OpNeg, a: x, b: None, sym: -1})
}

// Add 加
func (a *Arena) Add(x, y NodeID) NodeID {
	switch {
	case a.IsConst(x) && a.IsConst(y):
		return a.Const(a.nodes[x].val + a.nodes[y].val)
	case a.isValue(x, 0):
		return y
	case a.isValue(y, 0):
		return x
	}
	return a.binary(OpAdd, x, y)
}

// Sub 减
func (a *Arena) Sub(x, y NodeID) NodeID {
	switch {
	case a.IsConst(x) && a.IsConst(y):
		return a.Const(a.nodes[x].val - a.nodes[y].val)
	case a.isValue(y, 0):
		return x
	case a.isValue(x, 0):
		return a.Neg(y)
	}
	return a.binary(OpSub, x, y)
}

// Mul 乘
func (a *Arena) Mul(x, y NodeID) NodeID {
	switch {
	case a.IsConst(x) && a.IsConst(y):
		return a.Const(a.nodes[x].val * a.nodes[y].val)
	case a.isValue(x, 0) || a.isValue(y, 0):
		return a.Const(0)
	case a.isValue(x, 1):
		return y
	case a.isValue(y, 1):
		return x
	}
	return a.binary(OpMul, x, y)
}

// Div 除
func (a *Arena) Div(x, y NodeID) NodeID {
	switch {
	case a.IsConst(x) && a.IsConst(y):
		return a.Const(a.nodes[x].val / a.nodes[y].val)
	case a.isValue(y, 1):
		return x
	case a.isValue(x, 0) && !a.IsConst(y):
		return a.Const(0)
	}
	return a.binary(OpDiv, x, y)
}

// Pow 乘方
func (a *Arena) Pow(x, y NodeID) NodeID {
	switch {
	case a.IsConst(x) && a.IsConst(y):
		return a.Const(math.Pow(a.nodes[x].val, a.nodes[y].val))
	case a.isValue(y, 1):
		return x
	case a.isValue(y, 0):
		return a.Const(1)
	}
	return a.binary(OpPow, x, y)
}

// Func 单参数函数
func (a *Arena) Func(op Op, x NodeID) (NodeID, error) {
	if !op.IsFunc() {
		return None, &types.UnexpectedValueError{Context: "不是单参数函数", Value: op.String()}
	}
	if a.IsConst(x) {
		return a.Const(apply1(op, a.nodes[x].val)), nil
	}
	return a.add(node{op: op, a: x, b: None, sym: -1}), nil
}

func (a *Arena) binary(op Op, x, y NodeID) NodeID {
	return a.add(node{op: op, a: x, b: y, sym: -1})
}

// apply1 单参数函数求值
func apply1(op Op, x float64) float64 {
	switch op {
	case OpNeg:
		return -x
	case OpLog:
		return math.Log(x)
	case OpLog10:
		return math.Log10(x)
	case OpSqrt:
		return math.Sqrt(x)
	case OpExp:
		return math.Exp(x)
	case OpSin:
		return math.Sin(x)
	case OpCos:
		return math.Cos(x)
	case OpTan:
		return math.Tan(x)
	case OpAbs:
		return math.Abs(x)
	}
	return math.NaN()
}

// apply2 二元运算求值
func apply2(op Op, x, y float64) float64 {
	switch op {
	case OpAdd:
		return x + y
	case OpSub:
		return x - y
	case OpMul:
		return x * y
	case OpDiv:
		return x / y
	case OpPow:
		return math.Pow(x, y)
	}
	return math.NaN()
}
