package block

import (
	"gonum.org/v1/gonum/mat"

	"procsim/equation"
	"procsim/symbol"
	"procsim/types"
)

// AlgebraicSystem 代数方程组 f(y) = 0
type AlgebraicSystem struct {
	f, jac   *symbol.Program
	eqs, dim int
	buf      []float64
}

// AlgebraicSystem 编译代数方程组及其解析雅可比
func (b *Block) AlgebraicSystem() (*AlgebraicSystem, error) {
	if b.kind == Differential || b.kind == DAE {
		return nil, &types.UnexpectedValueError{Context: "含微分方程的方程块不能按代数方程组求解", Value: b.kind.String()}
	}
	roots, err := b.residuals()
	if err != nil {
		return nil, err
	}
	arena := b.ws.Arena()
	layout := symbol.Layout{Symbols: b.yIndex}
	f, err := arena.Compile(roots, layout)
	if err != nil {
		return nil, err
	}
	partials := make([]symbol.NodeID, 0, len(roots)*len(b.variables))
	for _, r := range roots {
		for _, v := range b.variables {
			p, err := arena.Partial(r, arena.Sym(v.Symbol()))
			if err != nil {
				return nil, err
			}
			partials = append(partials, p)
		}
	}
	jac, err := arena.Compile(partials, layout)
	if err != nil {
		return nil, err
	}
	n := len(b.variables)
	return &AlgebraicSystem{f: f, jac: jac, eqs: len(roots), dim: n, buf: make([]float64, len(roots)*n)}, nil
}

// Dims 方程数与未知量数
func (s *AlgebraicSystem) Dims() (eqs, vars int) { return s.eqs, s.dim }

// Residual 计算残差
func (s *AlgebraicSystem) Residual(y, out []float64) {
	s.f.Run(y, out)
}

// Jacobian 计算雅可比矩阵，j 为 eqs×vars
func (s *AlgebraicSystem) Jacobian(y []float64, j *mat.Dense) {
	s.jac.Run(y, s.buf)
	for r := 0; r < s.eqs; r++ {
		for c := 0; c < s.dim; c++ {
			j.Set(r, c, s.buf[r*s.dim+c])
		}
	}
}

// ResidualSystem 残差形式 F(t, y, yd) = 0
// y 为全部变量，yd 为导数变量的导数，DiffIndex[k] 给出 yd[k] 对应的 y 下标。
type ResidualSystem struct {
	f, jy, jyd   *symbol.Program
	NY, NYD      int
	Differential []bool // 各方程是否含导数
	DiffIndex    []int
	in           []float64
	jbuf         []float64
}

// ResidualSystem 编译残差形式的向量函数及对 y、yd 的雅可比
func (b *Block) ResidualSystem() (*ResidualSystem, error) {
	// 各模型的自变量共用输入槽 0，单位必须一致
	for i := 1; i < len(b.independent); i++ {
		if first, v := b.independent[0], b.independent[i]; !first.Unit().Coherent(v.Unit()) {
			return nil, &types.DimensionalCoherenceError{Op: "自变量 " + first.Name() + " 与 " + v.Name(), Left: first.Unit().Dim, Right: v.Unit().Dim}
		}
	}
	roots, err := b.residuals()
	if err != nil {
		return nil, err
	}
	arena := b.ws.Arena()
	ny, nyd := len(b.variables), len(b.diffVars)
	layout := symbol.Layout{
		Symbols:     make(map[symbol.SymbolID]int, ny+1),
		Derivatives: make(map[symbol.SymbolID]int, nyd),
	}
	for _, v := range b.independent {
		layout.Symbols[v.Symbol()] = 0
	}
	for s, i := range b.yIndex {
		layout.Symbols[s] = 1 + i
	}
	for s, k := range b.ydIndex {
		layout.Derivatives[s] = 1 + ny + k
	}

	sys := &ResidualSystem{
		NY:           ny,
		NYD:          nyd,
		Differential: make([]bool, len(roots)),
		DiffIndex:    make([]int, nyd),
		in:           make([]float64, 1+ny+nyd),
	}
	for i, eq := range b.equations {
		sys.Differential[i] = eq.Type() == equation.Differential
	}
	dnodes := make([]symbol.NodeID, nyd)
	for k, v := range b.diffVars {
		i, ok := b.yIndex[v.Symbol()]
		if !ok {
			return nil, &types.UnresolvedPanicError{Context: "导数变量不在变量表中 " + v.Name()}
		}
		sys.DiffIndex[k] = i
		d, err := arena.Derivative(arena.Sym(v.Symbol()), v.Domain().Independent().Symbol())
		if err != nil {
			return nil, err
		}
		dnodes[k] = d
	}

	if sys.f, err = arena.Compile(roots, layout); err != nil {
		return nil, err
	}
	py := make([]symbol.NodeID, 0, len(roots)*ny)
	pyd := make([]symbol.NodeID, 0, len(roots)*nyd)
	for _, r := range roots {
		for _, v := range b.variables {
			p, err := arena.Partial(r, arena.Sym(v.Symbol()))
			if err != nil {
				return nil, err
			}
			py = append(py, p)
		}
		for _, d := range dnodes {
			p, err := arena.Partial(r, d)
			if err != nil {
				return nil, err
			}
			pyd = append(pyd, p)
		}
	}
	if sys.jy, err = arena.Compile(py, layout); err != nil {
		return nil, err
	}
	if sys.jyd, err = arena.Compile(pyd, layout); err != nil {
		return nil, err
	}
	sys.jbuf = make([]float64, len(roots)*max(ny, nyd))
	return sys, nil
}

// NumEquations 方程数
func (s *ResidualSystem) NumEquations() int { return len(s.Differential) }

// Dims 方程数、变量数与导数个数
func (s *ResidualSystem) Dims() (eqs, ny, nyd int) { return len(s.Differential), s.NY, s.NYD }

// DerivativeMap yd 下标到 y 下标
func (s *ResidualSystem) DerivativeMap() []int { return append([]int(nil), s.DiffIndex...) }

func (s *ResidualSystem) load(t float64, y, yd []float64) {
	s.in[0] = t
	copy(s.in[1:], y[:s.NY])
	copy(s.in[1+s.NY:], yd[:s.NYD])
}

// Residual 计算 F(t, y, yd)
func (s *ResidualSystem) Residual(t float64, y, yd, out []float64) {
	s.load(t, y, yd)
	s.f.Run(s.in, out)
}

// JacobianY 计算 ∂F/∂y
func (s *ResidualSystem) JacobianY(t float64, y, yd []float64, j *mat.Dense) {
	s.load(t, y, yd)
	s.jacobian(s.jy, s.NY, j)
}

// JacobianYd 计算 ∂F/∂yd
func (s *ResidualSystem) JacobianYd(t float64, y, yd []float64, j *mat.Dense) {
	s.load(t, y, yd)
	s.jacobian(s.jyd, s.NYD, j)
}

func (s *ResidualSystem) jacobian(p *symbol.Program, cols int, j *mat.Dense) {
	rows := len(s.Differential)
	buf := s.jbuf[:rows*cols]
	p.Run(s.in, buf)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			j.Set(r, c, buf[r*cols+c])
		}
	}
}
