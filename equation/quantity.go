package equation

import (
	"fmt"
	"math"

	"procsim/symbol"
	"procsim/types"
	"procsim/unit"
)

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// Kind 量的类别
type Kind int

// 量的类别
const (
	KindVariable Kind = iota
	KindParameter
	KindConstant
)

// String 类别名称
func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindParameter:
		return "parameter"
	case KindConstant:
		return "constant"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Quantity 有名称、单位和数值的量
// 调用 Node 得到表达式节点：未指定时为符号，已指定时为带单位的常数。
type Quantity interface {
	Name() string
	Unit() unit.Unit
	Description() string
	Latex() string
	Value() float64
	IsSpecified() bool
	Kind() Kind
	Symbol() symbol.SymbolID
	Workspace() *Workspace
	Node() Node
	SetValue(v any, u ...unit.Unit) error
	base() *quantity
}

// quantity 量的公共部分
type quantity struct {
	ws          *Workspace
	sym         symbol.SymbolID
	name        string
	unit        unit.Unit
	description string
	latex       string
	value       float64
	specified   bool
}

func (q *quantity) Name() string { return q.name }
func (q *quantity) Unit() unit.Unit { return q.unit }
func (q *quantity) Description() string { return q.description }
func (q *quantity) Latex() string { return q.latex }
func (q *quantity) Value() float64 { return q.value }
func (q *quantity) IsSpecified() bool { return q.specified }
func (q *quantity) Symbol() symbol.SymbolID { return q.sym }
func (q *quantity) Workspace() *Workspace { return q.ws }
func (q *quantity) base() *quantity { return q }
func (q *quantity) String() string { return q.name }
func (q *quantity) setLatex(s string) { q.latex = s }
func (q *quantity) assign(v float64) { q.value, q.specified = v, true }

// node 量对应的表达式节点
func (q *quantity) node(self Quantity) Node {
	n := Node{ws: q.ws, name: q.name, unit: q.unit, typ: Linear}
	if q.specified {
		n.id = q.ws.arena.Const(q.value)
		n.literals = singleSymbol(q.sym, self)
		return n
	}
	n.id = q.ws.arena.Sym(q.sym)
	n.symbols = singleSymbol(q.sym, self)
	return n
}

// setValue 赋值
// 接受数值或同类别的量；给出单位时检查量纲一致。
func (q *quantity) setValue(self Quantity, v any, u ...unit.Unit) error {
	if len(u) > 0 && !u[0].Coherent(q.unit) {
		return &types.DimensionalCoherenceError{Op: "SetValue " + q.name, Left: q.unit.Dim, Right: u[0].Dim}
	}
	switch x := v.(type) {
	case float64:
		q.assign(x)
	case float32:
		q.assign(float64(x))
	case int:
		q.assign(float64(x))
	case int64:
		q.assign(float64(x))
	case Quantity:
		if x == nil || x.Kind() != self.Kind() {
			return &types.UnexpectedValueError{Context: "SetValue " + q.name, Value: v}
		}
		if !x.Unit().Coherent(q.unit) {
			return &types.DimensionalCoherenceError{Op: "SetValue " + q.name, Left: q.unit.Dim, Right: x.Unit().Dim}
		}
		q.assign(x.Value())
	default:
		return &types.UnexpectedValueError{Context: "SetValue " + q.name, Value: v}
	}
	return nil
}

// Exposure 变量对外暴露方向
type Exposure int

// 暴露方向
const (
	Internal Exposure = iota
	Input
	Output
)

// String 方向名称
func (e Exposure) String() string {
	switch e {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return "internal"
}

// Variable 变量，未指定时为自由度
type Variable struct {
	quantity
	lower, upper  float64
	exposure      Exposure
	guess         float64
	hasGuess      bool
	domain        *Domain // 分布所在的域
	independentOf *Domain // 作为自变量所属的域
}

// VariableOption 变量选项
type VariableOption func(*Variable) error

// Bounds 上下界
func Bounds(lower, upper float64) VariableOption {
	return func(v *Variable) error {
		if lower > upper {
			return &types.UnexpectedValueError{Context: "变量上下界 " + v.name, Value: [2]float64{lower, upper}}
		}
		v.lower, v.upper = lower, upper
		return nil
	}
}

// Exposed 暴露方向
func Exposed(e Exposure) VariableOption {
	return func(v *Variable) error {
		v.exposure = e
		return nil
	}
}

// Guess 迭代初值
func Guess(g float64) VariableOption {
	return func(v *Variable) error {
		v.guess, v.hasGuess = g, true
		return nil
	}
}

// Latex 渲染标签
func Latex(s string) VariableOption {
	return func(v *Variable) error {
		v.setLatex(s)
		return nil
	}
}

// Value 创建即指定
func Value(x float64) VariableOption {
	return func(v *Variable) error {
		v.assign(x)
		return nil
	}
}

func (v *Variable) Kind() Kind { return KindVariable }

// Node 变量的表达式节点
func (v *Variable) Node() Node {
	if v == nil {
		return nilQuantity("变量")
	}
	return v.node(v)
}

// SetValue 指定变量值
func (v *Variable) SetValue(x any, u ...unit.Unit) error { return v.setValue(v, x, u...) }

// SetResult 写入求解结果，不改变指定状态
func (v *Variable) SetResult(x float64) { v.value = x }

// Bounds 上下界
func (v *Variable) Bounds() (float64, float64) { return v.lower, v.upper }

// Exposure 暴露方向
func (v *Variable) Exposure() Exposure { return v.exposure }

// Guess 迭代初值
func (v *Variable) Guess() (float64, bool) { return v.guess, v.hasGuess }

// Domain 分布所在的域
func (v *Variable) Domain() *Domain { return v.domain }

// IndependentOf 作为自变量所属的域
func (v *Variable) IndependentOf() *Domain { return v.independentOf }

// DistributeOnDomain 将变量分布到域上，域的存储随之重置
func (v *Variable) DistributeOnDomain(d *Domain) error {
	if d == nil {
		return &types.AbsentRequiredObjectError{Object: "域", Context: "DistributeOnDomain " + v.name}
	}
	if d.indep == v {
		return &types.UnexpectedValueError{Context: "自变量不能分布到自身的域", Value: v.name}
	}
	if v.domain != nil && v.domain != d {
		return &types.UnexpectedValueError{Context: "变量已分布到域 " + v.domain.name, Value: v.name}
	}
	v.domain = d
	d.distribute(v)
	return nil
}

// Diff 变量对自变量的导数
func (v *Variable) Diff(indep *Variable) Node {
	if v == nil {
		return nilQuantity("变量")
	}
	if v.domain == nil {
		return errNode(&types.AbsentRequiredObjectError{Object: "域", Context: "Diff " + v.name + " 需要先 DistributeOnDomain"})
	}
	return Diff(v.Node(), indep)
}

// Parameter 参数，未指定时计入自由度
type Parameter struct {
	quantity
}

func (p *Parameter) Kind() Kind { return KindParameter }

// Node 参数的表达式节点
func (p *Parameter) Node() Node {
	if p == nil {
		return nilQuantity("参数")
	}
	return p.node(p)
}

// SetValue 指定参数值
func (p *Parameter) SetValue(x any, u ...unit.Unit) error { return p.setValue(p, x, u...) }

// Constant 常量
type Constant struct {
	quantity
}

func (c *Constant) Kind() Kind { return KindConstant }

// Node 常量的表达式节点
func (c *Constant) Node() Node {
	if c == nil {
		return nilQuantity("常量")
	}
	return c.node(c)
}

// SetValue 修改常量值
func (c *Constant) SetValue(x any, u ...unit.Unit) error { return c.setValue(c, x, u...) }
