package equation

import (
	"procsim/types"
	"procsim/unit"
)

// Domain 一维域，按行记录自变量及各因变量的取值
type Domain struct {
	name        string
	unit        unit.Unit
	description string
	indep       *Variable
	dependents  []*Variable
	rows        [][]float64
}

// Name 名称
func (d *Domain) Name() string { return d.name }

// Unit 单位
func (d *Domain) Unit() unit.Unit { return d.unit }

// Description 描述
func (d *Domain) Description() string { return d.description }

// Independent 自变量
func (d *Domain) Independent() *Variable { return d.indep }

// Dependents 按分布顺序的因变量
func (d *Domain) Dependents() []*Variable {
	return append([]*Variable(nil), d.dependents...)
}

// Columns 列名：自变量在前，其后为各因变量
func (d *Domain) Columns() []string {
	cols := make([]string, 0, len(d.dependents)+1)
	cols = append(cols, d.indep.name)
	for _, v := range d.dependents {
		cols = append(cols, v.name)
	}
	return cols
}

// distribute 加入因变量并重置存储
func (d *Domain) distribute(v *Variable) {
	for _, dep := range d.dependents {
		if dep == v {
			d.Reset()
			return
		}
	}
	d.dependents = append(d.dependents, v)
	d.Reset()
}

// Register 追加一行或多行记录，每行宽度必须等于列数
func (d *Domain) Register(rows ...[]float64) error {
	width := len(d.dependents) + 1
	for _, row := range rows {
		if len(row) != width {
			return &types.UnexpectedValueError{Context: "域 " + d.name + " 记录宽度", Value: len(row)}
		}
	}
	for _, row := range rows {
		d.rows = append(d.rows, append([]float64(nil), row...))
	}
	return nil
}

// Reset 清空记录，保留列结构
func (d *Domain) Reset() {
	d.rows = nil
}

// Len 记录行数
func (d *Domain) Len() int { return len(d.rows) }

// Rows 全部记录
func (d *Domain) Rows() [][]float64 {
	out := make([][]float64, len(d.rows))
	for i, r := range d.rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

// Column 按列名取一列
func (d *Domain) Column(name string) ([]float64, error) {
	for j, c := range d.Columns() {
		if c != name {
			continue
		}
		col := make([]float64, len(d.rows))
		for i, r := range d.rows {
			col[i] = r[j]
		}
		return col, nil
	}
	return nil, &types.AbsentRequiredObjectError{Object: "列 " + name, Context: "域 " + d.name}
}

// Last 最后一行记录
func (d *Domain) Last() ([]float64, bool) {
	if len(d.rows) == 0 {
		return nil, false
	}
	return append([]float64(nil), d.rows[len(d.rows)-1]...), true
}
