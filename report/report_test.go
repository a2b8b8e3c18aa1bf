package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procsim/equation"
	"procsim/library"
	"procsim/problem"
	"procsim/types"
	"procsim/unit"
)

// decay 在时间域上记录指数衰减
func decay(t *testing.T) *equation.Domain {
	ws := equation.NewWorkspace()
	tm, err := ws.NewVariable("t", unit.Second, "")
	require.NoError(t, err)
	x, err := ws.NewVariable("x", unit.Meter, "")
	require.NoError(t, err)
	d, err := ws.NewDomain("time", unit.Second, "decay", tm)
	require.NoError(t, err)
	require.NoError(t, x.DistributeOnDomain(d))
	v := 1.0
	for i := 0; i <= 20; i++ {
		require.NoError(t, d.Register([]float64{float64(i) * 0.1, v}))
		v *= 0.9
	}
	return d
}

// TestPlotDomain 输出 PNG 与 SVG
func TestPlotDomain(t *testing.T) {
	d := decay(t)
	var png bytes.Buffer
	require.NoError(t, PlotDomain(d, &png, "png"))
	assert.True(t, bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")))

	var svg bytes.Buffer
	require.NoError(t, PlotDomain(d, &svg, "svg"))
	assert.Contains(t, svg.String(), "<svg")

	d.Reset()
	assert.ErrorIs(t, PlotDomain(d, &png, "png"), types.ErrAbsentRequiredObject)
	assert.ErrorIs(t, PlotDomain(nil, &png, "png"), types.ErrAbsentRequiredObject)
}

// TestChartDomain HTML 页面包含曲线名
func TestChartDomain(t *testing.T) {
	var html bytes.Buffer
	require.NoError(t, ChartDomain(decay(t), &html))
	s := html.String()
	assert.Contains(t, s, "echarts")
	assert.Contains(t, s, `"x"`)
}

// TestProblemGraph 连接显示为边
func TestProblemGraph(t *testing.T) {
	e, err := library.Lookup("tank")
	require.NoError(t, err)
	p, err := e.New(problem.WithIDGenerator(&equation.SequenceGenerator{}))
	require.NoError(t, err)
	s := ProblemGraph(p).String()
	assert.True(t, strings.HasPrefix(s, "digraph"))
	assert.Contains(t, s, "feed")
	assert.Contains(t, s, "q -> qin")
}
