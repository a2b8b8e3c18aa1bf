package block

import (
	"fmt"
	"strconv"

	"github.com/go-logr/logr"

	"procsim/equation"
	"procsim/symbol"
	"procsim/types"
)

// Kind 方程组类别
type Kind int

// 方程组类别
const (
	Linear       Kind = iota // 线性代数方程组
	Nonlinear                // 非线性代数方程组
	Differential             // 常微分方程组
	DAE                      // 微分代数方程组
)

// String 类别名称
func (k Kind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Nonlinear:
		return "nonlinear"
	case Differential:
		return "differential"
	case DAE:
		return "dae"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Block 方程块
// 汇集问题中全部方程，确定变量顺序、分组和导数变量，构造编译后的向量函数。
type Block struct {
	ws          *equation.Workspace
	equations   []*equation.Equation
	groups      map[equation.Type][]*equation.Equation
	variables   []*equation.Variable
	independent []*equation.Variable
	parameters  []*equation.Parameter
	diffVars    []*equation.Variable
	yIndex      map[symbol.SymbolID]int
	ydIndex     map[symbol.SymbolID]int
	implicit    int
	kind        Kind
	log         logr.Logger
}

// Option 方程块配置
type Option func(*Block)

// WithLogger 指定日志
func WithLogger(log logr.Logger) Option {
	return func(b *Block) { b.log = log }
}

// New 装配方程块
// 变量顺序由方程顺序和方程内首次出现的位置决定。
func New(equations []*equation.Equation, opts ...Option) (*Block, error) {
	b := &Block{
		groups:  make(map[equation.Type][]*equation.Equation),
		yIndex:  make(map[symbol.SymbolID]int),
		ydIndex: make(map[symbol.SymbolID]int),
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if len(equations) == 0 {
		return nil, &types.AbsentRequiredObjectError{Object: "方程", Context: "方程块"}
	}
	b.ws = equations[0].Workspace()
	b.equations = append(b.equations, equations...)

	// 变量与参数
	seen := make(map[equation.Quantity]bool)
	for _, eq := range equations {
		if eq.Workspace() != b.ws {
			return nil, &types.UnexpectedValueError{Context: "方程属于不同的工作区", Value: eq.Name()}
		}
		for _, q := range eq.Declared() {
			if seen[q] {
				continue
			}
			seen[q] = true
			switch x := q.(type) {
			case *equation.Variable:
				if x.IndependentOf() != nil {
					b.independent = append(b.independent, x)
					continue
				}
				b.yIndex[x.Symbol()] = len(b.variables)
				b.variables = append(b.variables, x)
			case *equation.Parameter:
				b.parameters = append(b.parameters, x)
			default:
				return nil, &types.UnresolvedPanicError{Context: "自由符号绑定到常量 " + q.Name()}
			}
		}
		b.groups[eq.Type()] = append(b.groups[eq.Type()], eq)
	}

	// 导数变量
	arena := b.ws.Arena()
	wrt := make(map[symbol.SymbolID]bool)
	for _, eq := range b.groups[equation.Differential] {
		res, err := eq.ConvertToResidualForm()
		if err != nil {
			return nil, err
		}
		ds := arena.Derivatives(res.ID())
		if len(ds) == 0 {
			return nil, &types.AbsentRequiredObjectError{Object: "导数项", Context: "微分方程 " + eq.Name()}
		}
		for _, s := range ds {
			if _, ok := b.ydIndex[s]; ok {
				continue
			}
			q, ok := b.ws.QuantityOf(s)
			v, isVar := q.(*equation.Variable)
			if !ok || !isVar {
				return nil, &types.UnresolvedPanicError{Context: "导数符号没有对应的变量 " + arena.Name(s)}
			}
			b.ydIndex[s] = len(b.diffVars)
			b.diffVars = append(b.diffVars, v)
		}
		for _, s := range arena.DerivativeWrt(res.ID()) {
			wrt[s] = true
		}
	}
	for _, v := range b.independent {
		if wrt[v.Symbol()] {
			b.implicit++
		}
	}
	b.kind = b.classify()
	b.log.V(1).Info("方程块装配完成", "equations", len(b.equations), "variables", len(b.variables),
		"differential", len(b.diffVars), "kind", b.kind.String())
	return b, nil
}

// classify 判定方程组类别
func (b *Block) classify() Kind {
	nd := len(b.groups[equation.Differential])
	switch {
	case nd == 0 && len(b.groups[equation.Nonlinear]) == 0:
		return Linear
	case nd == 0:
		return Nonlinear
	case nd == len(b.equations) && len(b.diffVars) == len(b.variables):
		return Differential
	}
	return DAE
}

// Kind 方程组类别
func (b *Block) Kind() Kind { return b.kind }

// Workspace 工作区
func (b *Block) Workspace() *equation.Workspace { return b.ws }

// Equations 全部方程，按声明顺序
func (b *Block) Equations() []*equation.Equation {
	return append([]*equation.Equation(nil), b.equations...)
}

// Group 某一类型的方程
func (b *Block) Group(t equation.Type) []*equation.Equation {
	return append([]*equation.Equation(nil), b.groups[t]...)
}

// Variables 有序变量表，不含自变量
func (b *Block) Variables() []*equation.Variable {
	return append([]*equation.Variable(nil), b.variables...)
}

// VariableNames 有序变量名
func (b *Block) VariableNames() []string {
	out := make([]string, len(b.variables))
	for i, v := range b.variables {
		out[i] = v.Name()
	}
	return out
}

// Independent 方程中出现的自变量
func (b *Block) Independent() []*equation.Variable {
	return append([]*equation.Variable(nil), b.independent...)
}

// Parameters 方程中以符号出现（未指定）的参数
func (b *Block) Parameters() []*equation.Parameter {
	return append([]*equation.Parameter(nil), b.parameters...)
}

// DiffVariables 被求导的变量，按首次出现顺序
func (b *Block) DiffVariables() []*equation.Variable {
	return append([]*equation.Variable(nil), b.diffVars...)
}

// Implicit 出现在导数项中的自变量个数，自由度分析中计为隐含方程
func (b *Block) Implicit() int { return b.implicit }

// Index 变量在 y 中的位置
func (b *Block) Index(v *equation.Variable) (int, bool) {
	i, ok := b.yIndex[v.Symbol()]
	return i, ok
}

// DerivativeIndex 导数变量在 yd 中的位置
func (b *Block) DerivativeIndex(v *equation.Variable) (int, bool) {
	i, ok := b.ydIndex[v.Symbol()]
	return i, ok
}

// DerivativeNames 导数变量的初值键：名称及其 "_d" 形式
func (b *Block) DerivativeNames() (names, derivatives []string) {
	for _, v := range b.diffVars {
		names = append(names, v.Name())
		derivatives = append(derivatives, v.Name()+types.DerivativeSuffix)
	}
	return names, derivatives
}

// Rewrite 以 y[i]、yd[i] 位置形式显示方程残差
func (b *Block) Rewrite(eq *equation.Equation) (string, error) {
	res, err := eq.ConvertToResidualForm()
	if err != nil {
		return "", err
	}
	arena := b.ws.Arena()
	return arena.Format(res.ID(), symbol.Namer{
		Symbol: func(s symbol.SymbolID) string {
			if i, ok := b.yIndex[s]; ok {
				return "y[" + strconv.Itoa(i) + "]"
			}
			for _, v := range b.independent {
				if v.Symbol() == s {
					return "t"
				}
			}
			return arena.Name(s)
		},
		Derivative: func(of, _ symbol.SymbolID) string {
			if i, ok := b.ydIndex[of]; ok {
				return "yd[" + strconv.Itoa(i) + "]"
			}
			return "d(" + arena.Name(of) + ")"
		},
	}), nil
}

// residuals 各方程残差节点
func (b *Block) residuals() ([]symbol.NodeID, error) {
	roots := make([]symbol.NodeID, len(b.equations))
	for i, eq := range b.equations {
		res, err := eq.ConvertToResidualForm()
		if err != nil {
			return nil, err
		}
		roots[i] = res.ID()
	}
	return roots, nil
}
