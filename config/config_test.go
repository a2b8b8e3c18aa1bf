package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procsim/solver"
	"procsim/types"
)

const lv = `
simulation "lv" {
  problem            = "lotka_volterra"
  start_time         = 0
  end_time           = 16
  initial_conditions = { u_lv = 10, v_lv = 5 }
  solver {
    rel_tol = 1e-10
    abs_tol = 1e-12
  }
  report {
    png  = "lv.png"
    html = "lv.html"
    dot  = "lv.dot"
  }
}

simulation "fit" {
  problem    = "tank"
  end_time   = 2 * pi
  parameters = { flow_feed = 0.4 }
  optimize {
    objective = "h_tank"
    target    = 0.5
    decision "k_tank" {
      lower   = 0.1
      upper   = 2
      initial = 0.5
    }
  }
}
`

// TestParse 解析块、默认值与表达式
func TestParse(t *testing.T) {
	f, err := Parse([]byte(lv), "run.hcl")
	require.NoError(t, err)
	require.Len(t, f.Simulations, 2)

	s, err := f.Simulation("lv")
	require.NoError(t, err)
	assert.Equal(t, "lotka_volterra", s.Problem)
	assert.True(t, s.Dynamic())
	assert.Equal(t, map[string]float64{"u_lv": 10, "v_lv": 5}, s.InitialConditions)
	assert.Equal(t, "lv.png", s.Report.PNG)
	assert.Empty(t, s.Report.SVG)

	o := s.SolverOptions()
	assert.Equal(t, 1e-10, o.RelTol)
	assert.Equal(t, 1e-12, o.AbsTol)
	assert.Equal(t, solver.DefaultOptions().Tolerance, o.Tolerance)
	assert.Equal(t, types.MaxIterations, o.MaxIterations)

	fit, err := f.Simulation("fit")
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Pi, fit.EndTime, 1e-12)
	assert.Equal(t, 0.4, fit.Parameters["flow_feed"])
	require.NotNil(t, fit.Optimize)
	assert.Equal(t, 0.5, *fit.Optimize.Target)
	require.Len(t, fit.Optimize.Decisions, 1)
	assert.Equal(t, "k_tank", fit.Optimize.Decisions[0].Name)
	assert.Nil(t, fit.Solver)
	assert.Equal(t, solver.DefaultOptions().RelTol, fit.SolverOptions().RelTol)

	_, err = f.Simulation("ghost")
	assert.ErrorIs(t, err, types.ErrAbsentRequiredObject)
}

// TestParseErrors 语法错误、缺少属性和校验失败都带文件名
func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"syntax":    `simulation "a" {`,
		"missing":   `simulation "a" {}`,
		"empty":     ``,
		"duplicate": `simulation "a" { problem = "linear" } ` + "\n" + `simulation "a" { problem = "linear" }`,
		"interval":  `simulation "a" { problem = "lotka_volterra" ` + "\n" + ` start_time = 2 ` + "\n" + ` end_time = 1 }`,
	}
	for name, src := range cases {
		_, err := Parse([]byte(src), name+".hcl")
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), name+".hcl", name)
	}
}

// TestLoad 从文件读取
func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.hcl")
	require.NoError(t, os.WriteFile(path, []byte(lv), 0o644))
	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Simulations, 2)

	_, err = Load(filepath.Join(t.TempDir(), "none.hcl"))
	assert.Error(t, err)
}
