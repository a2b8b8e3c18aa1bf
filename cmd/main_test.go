package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestList 列出内置问题
func TestList(t *testing.T) {
	var out, errW bytes.Buffer
	require.NoError(t, run(&out, &errW, []string{"-list"}))
	for _, name := range []string{"linear", "nonlinear", "lotka_volterra", "tank"} {
		assert.Contains(t, out.String(), name)
	}
}

// TestExitCodes 参数错误退出码为 2，运行失败为普通错误
func TestExitCodes(t *testing.T) {
	var out, errW bytes.Buffer
	err := run(&out, &errW, []string{"-nope"})
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.code)

	err = run(&out, &errW, nil)
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.code)

	err = run(&out, &errW, []string{"-config", filepath.Join(t.TempDir(), "none.hcl")})
	require.Error(t, err)
	assert.False(t, errors.As(err, &ee))
}

// TestRunConfig 从配置文件运行代数问题
func TestRunConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.hcl")
	src := `
simulation "lin" {
  problem = "linear"
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	var out, errW bytes.Buffer
	require.NoError(t, run(&out, &errW, []string{"-config", path, "-log-format", "json"}))
	assert.Contains(t, out.String(), "== lin (linear) linear")
	assert.Contains(t, out.String(), "a_linear")
}

// TestDemo 示例配置中的单个 simulation
func TestDemo(t *testing.T) {
	var out, errW bytes.Buffer
	require.NoError(t, run(&out, &errW, []string{"-config", "testdata/demo.hcl", "-sim", "lv"}))
	assert.Contains(t, out.String(), "== lv (lotka_volterra) differential")
	assert.Contains(t, out.String(), "u_lv")
	assert.NotContains(t, out.String(), "== lin")

	err := run(&out, &errW, []string{"-config", "testdata/demo.hcl", "-sim", "ghost"})
	assert.Error(t, err)
}
