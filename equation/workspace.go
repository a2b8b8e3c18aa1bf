package equation

import (
	"sort"

	"github.com/go-logr/logr"

	"procsim/symbol"
	"procsim/types"
	"procsim/unit"
)

// Workspace 一次装配使用的符号空间
// 持有表达式节点池、符号到量的注册表和域注册表。
type Workspace struct {
	arena      *symbol.Arena
	quantities map[symbol.SymbolID]Quantity
	order      []Quantity
	domains    []*Domain
	ids        IDGenerator
	log        logr.Logger
	values     map[string]float64 // 创建时即指定的值
	used       map[string]bool
}

// Option 工作区配置
type Option func(*Workspace)

// WithIDGenerator 指定编号生成器
func WithIDGenerator(g IDGenerator) Option {
	return func(ws *Workspace) {
		if g != nil {
			ws.ids = g
		}
	}
}

// WithLogger 指定日志
func WithLogger(log logr.Logger) Option {
	return func(ws *Workspace) { ws.log = log }
}

// WithValues 按限定名预设量的值，量创建时即被指定
func WithValues(values map[string]float64) Option {
	return func(ws *Workspace) {
		for k, v := range values {
			ws.values[k] = v
		}
	}
}

// NewWorkspace 创建工作区
func NewWorkspace(opts ...Option) *Workspace {
	ws := &Workspace{
		arena:      symbol.NewArena(),
		quantities: make(map[symbol.SymbolID]Quantity),
		ids:        UUIDGenerator{},
		log:        logr.Discard(),
		values:     make(map[string]float64),
		used:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

// Arena 表达式节点池
func (ws *Workspace) Arena() *symbol.Arena { return ws.arena }

// Logger 日志
func (ws *Workspace) Logger() logr.Logger { return ws.log }

// NextID 下一个唯一编号
func (ws *Workspace) NextID() string { return ws.ids.NextID() }

// Quantity 按限定名查找
func (ws *Workspace) Quantity(name string) (Quantity, bool) {
	sym, ok := ws.arena.Lookup(name)
	if !ok {
		return nil, false
	}
	q, ok := ws.quantities[sym]
	return q, ok
}

// QuantityOf 按符号查找
func (ws *Workspace) QuantityOf(sym symbol.SymbolID) (Quantity, bool) {
	q, ok := ws.quantities[sym]
	return q, ok
}

// Quantities 按创建顺序返回全部量
func (ws *Workspace) Quantities() []Quantity {
	return append([]Quantity(nil), ws.order...)
}

// Domains 已创建的域
func (ws *Workspace) Domains() []*Domain {
	return append([]*Domain(nil), ws.domains...)
}

// UnusedValues 没有对应量的预设值名称
func (ws *Workspace) UnusedValues() []string {
	var out []string
	for k := range ws.values {
		if !ws.used[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// preset 应用预设值
func (ws *Workspace) preset(q *quantity) {
	if v, ok := ws.values[q.name]; ok {
		q.assign(v)
		ws.used[q.name] = true
		ws.log.V(1).Info("预设值", "name", q.name, "value", v)
	}
}

// register 注册量，限定名重复时报错
func (ws *Workspace) register(q *quantity, self Quantity) error {
	if _, exists := ws.Quantity(q.name); exists {
		return &types.UnexpectedValueError{Context: "量名称重复", Value: q.name}
	}
	q.ws = ws
	q.sym = ws.arena.Intern(q.name)
	ws.quantities[q.sym] = self
	ws.order = append(ws.order, self)
	ws.log.V(2).Info("注册量", "name", q.name, "kind", self.Kind().String())
	return nil
}

// NewVariable 创建变量
func (ws *Workspace) NewVariable(name string, u unit.Unit, description string, opts ...VariableOption) (*Variable, error) {
	v := &Variable{
		quantity: quantity{name: name, unit: u, description: description, latex: name},
		lower:    negInf,
		upper:    posInf,
	}
	if err := ws.register(&v.quantity, v); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	ws.preset(&v.quantity)
	return v, nil
}

// NewParameter 创建参数，给出 value 时即为已指定
func (ws *Workspace) NewParameter(name string, u unit.Unit, description string, value ...float64) (*Parameter, error) {
	p := &Parameter{quantity: quantity{name: name, unit: u, description: description, latex: name}}
	if err := ws.register(&p.quantity, p); err != nil {
		return nil, err
	}
	if len(value) > 0 {
		p.assign(value[0])
	}
	ws.preset(&p.quantity)
	return p, nil
}

// NewConstant 创建常量，常量总是已指定
func (ws *Workspace) NewConstant(name string, u unit.Unit, description string, value float64) (*Constant, error) {
	c := &Constant{quantity: quantity{name: name, unit: u, description: description, latex: name, value: value, specified: true}}
	if err := ws.register(&c.quantity, c); err != nil {
		return nil, err
	}
	ws.preset(&c.quantity)
	return c, nil
}

// NewDomain 创建一维域，indep 为其自变量
func (ws *Workspace) NewDomain(name string, u unit.Unit, description string, indep *Variable) (*Domain, error) {
	if indep == nil {
		return nil, &types.AbsentRequiredObjectError{Object: "自变量", Context: "域 " + name}
	}
	if indep.ws != ws {
		return nil, &types.UnexpectedValueError{Context: "自变量不属于当前工作区", Value: indep.name}
	}
	if !indep.unit.Coherent(u) {
		return nil, &types.DimensionalCoherenceError{Op: "domain " + name, Left: u.Dim, Right: indep.unit.Dim}
	}
	if indep.domain != nil || indep.independentOf != nil {
		return nil, &types.UnexpectedValueError{Context: "变量已关联其他域", Value: indep.name}
	}
	d := &Domain{name: name, unit: u, description: description, indep: indep}
	indep.independentOf = d
	ws.domains = append(ws.domains, d)
	return d, nil
}
