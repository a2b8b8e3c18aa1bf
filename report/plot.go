package report

import (
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	ectypes "github.com/go-echarts/go-echarts/v2/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"procsim/equation"
	"procsim/types"
)

// 图片尺寸
var (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

// series 域中的自变量与各因变量曲线
func series(d *equation.Domain) (x []float64, names []string, ys [][]float64, err error) {
	if d == nil {
		return nil, nil, nil, &types.AbsentRequiredObjectError{Object: "域", Context: "绘图"}
	}
	if d.Len() == 0 {
		return nil, nil, nil, &types.AbsentRequiredObjectError{Object: "记录", Context: "域 " + d.Name()}
	}
	cols := d.Columns()
	if x, err = d.Column(cols[0]); err != nil {
		return nil, nil, nil, err
	}
	for _, c := range cols[1:] {
		y, err := d.Column(c)
		if err != nil {
			return nil, nil, nil, err
		}
		names = append(names, c)
		ys = append(ys, y)
	}
	return x, names, ys, nil
}

// PlotDomain 用 gonum/plot 绘制域中全部因变量，format 为 png、svg、pdf 等
func PlotDomain(d *equation.Domain, w io.Writer, format string) error {
	x, names, ys, err := series(d)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = d.Name()
	p.X.Label.Text = d.Columns()[0] + " [" + d.Unit().String() + "]"
	p.Legend.Top = true
	for i, y := range ys {
		pts := make(plotter.XYs, len(x))
		for k := range x {
			pts[k].X, pts[k].Y = x[k], y[k]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(names[i], line)
	}
	p.Add(plotter.NewGrid())
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// ChartDomain 用 go-echarts 生成域曲线的 HTML 页面
func ChartDomain(d *equation.Domain, w io.Writer) error {
	x, names, ys, err := series(d)
	if err != nil {
		return err
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: ectypes.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    d.Name(),
			Subtitle: d.Description(),
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        d.Columns()[0],
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(true),
	)
	axis := make([]string, len(x))
	for i, t := range x {
		axis[i] = strconv.FormatFloat(t, 'g', 6, 64)
	}
	line.SetXAxis(axis)
	for i, y := range ys {
		items := make([]opts.LineData, len(y))
		for k, v := range y {
			items[k] = opts.LineData{Value: v}
		}
		line.AddSeries(names[i], items)
	}
	page := components.NewPage()
	page.AddCharts(line)
	return page.Render(w)
}
