package procsim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procsim/config"
	"procsim/types"
)

// TestRunDifferential 配置驱动的积分并写出全部报告
func TestRunDifferential(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Simulation{
		Name:      "lv",
		Problem:   "lotka_volterra",
		StartTime: 0,
		EndTime:   16,
		Solver:    &config.Solver{RelTol: ptr(1e-10), AbsTol: ptr(1e-12)},
		Report: &config.Report{
			PNG:  filepath.Join(dir, "lv.png"),
			HTML: filepath.Join(dir, "lv.html"),
			DOT:  filepath.Join(dir, "lv.dot"),
		},
	}
	out, err := Run(cfg, logr.Discard())
	require.NoError(t, err)
	assert.Nil(t, out.Optimization)
	u, err := out.Simulation.Value("u_lv")
	require.NoError(t, err)
	assert.InDelta(t, 8.38505427, u, 1e-4)
	for _, name := range []string{"lv.png", "lv.html", "lv.dot"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

// TestRunAlgebraic 代数问题使用参数覆盖，不输出曲线
func TestRunAlgebraic(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Simulation{
		Name:    "nl",
		Problem: "nonlinear",
		Report:  &config.Report{PNG: filepath.Join(dir, "nl.png")},
	}
	out, err := Run(cfg, logr.Discard())
	require.NoError(t, err)
	a, err := out.Simulation.Value("a_nl")
	require.NoError(t, err)
	assert.InDelta(t, 0.148557, a, 1e-5)
	_, err = os.Stat(filepath.Join(dir, "nl.png"))
	assert.True(t, os.IsNotExist(err))

	_, err = Run(&config.Simulation{Name: "x", Problem: "ghost"}, logr.Discard())
	assert.ErrorIs(t, err, types.ErrAbsentRequiredObject)
}

// TestRunOptimize 调整出口系数使稳态液位达到目标，稳态时 h = (flow/k)²
func TestRunOptimize(t *testing.T) {
	cfg := &config.Simulation{
		Name:    "fit",
		Problem: "tank",
		EndTime: 60,
		Solver:  &config.Solver{RelTol: ptr(1e-4), AbsTol: ptr(1e-6)},
		Optimize: &config.Optimize{
			Objective:      "h_tank",
			Target:         ptr(0.64),
			MaxEvaluations: 200,
			Decisions:      []*config.Decision{{Name: "k_tank", Lower: 0.2, Upper: 2, Initial: 0.5}},
		},
		Parameters: map[string]float64{"flow_feed": 0.5},
	}
	out, err := Run(cfg, logr.Discard())
	require.NoError(t, err)
	require.NotNil(t, out.Optimization)
	assert.Zero(t, out.Optimization.Failures)
	assert.InDelta(t, 0.625, out.Optimization.X["k_tank"], 1e-2)
	h, err := out.Simulation.Value("h_tank")
	require.NoError(t, err)
	assert.InDelta(t, 0.64, h, 1e-2)
}

func ptr[T any](v T) *T { return &v }
