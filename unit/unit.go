package unit

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Dimension SI 基本量纲索引
type Dimension int

// SI 基本量纲
const (
	Length      Dimension = iota // 长度 m
	Mass                         // 质量 kg
	Time                         // 时间 s
	Current                      // 电流 A
	Temperature                  // 温度 K
	Amount                       // 物质的量 mol
	Luminous                     // 发光强度 cd
	NumDimensions
)

// symbols 量纲符号
var symbols = [NumDimensions]string{"m", "kg", "s", "A", "K", "mol", "cd"}

// String 量纲名称
func (d Dimension) String() string {
	if d >= 0 && d < NumDimensions {
		return symbols[d]
	}
	return fmt.Sprintf("Dimension(%d)", int(d))
}

// Exponents 量纲指数向量
// 固定长度数组，每个基本量纲始终存在（缺省为0），不会出现查找失败。
type Exponents [NumDimensions]float64

// String 格式化输出
func (e Exponents) String() string {
	parts := make([]string, 0, NumDimensions)
	for i, v := range e {
		parts = append(parts, fmt.Sprintf("%s:%g", Dimension(i), v))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Unit 单位，不可变值对象
type Unit struct {
	Name        string    // 单位名称
	Description string    // 描述
	Dim         Exponents // 量纲指数
}

// New 创建单位
func New(name, description string, dim Exponents) Unit {
	return Unit{Name: name, Description: description, Dim: dim}
}

// ErrInvalidTerms Derived 的参数不是 (单位, 指数) 对
var ErrInvalidTerms = errors.New("导出单位参数错误")

// Derived 由 (单位, 指数) 对组合得到导出单位
//
//	Derived("N", "newton", Kilogram, 1, Meter, 1, Second, -2)
func Derived(name, description string, terms ...any) (Unit, error) {
	if len(terms)%2 != 0 {
		return Unit{}, fmt.Errorf("%w: %s 参数个数 %d 不成对", ErrInvalidTerms, name, len(terms))
	}
	var dim Exponents
	for i := 0; i < len(terms); i += 2 {
		u, ok := terms[i].(Unit)
		if !ok {
			return Unit{}, fmt.Errorf("%w: %s 第 %d 项不是单位: %T", ErrInvalidTerms, name, i, terms[i])
		}
		var p float64
		switch v := terms[i+1].(type) {
		case int:
			p = float64(v)
		case float64:
			p = v
		default:
			return Unit{}, fmt.Errorf("%w: %s 第 %d 项指数类型 %T", ErrInvalidTerms, name, i+1, terms[i+1])
		}
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return Unit{}, fmt.Errorf("%w: %s 第 %d 项指数 %g", ErrInvalidTerms, name, i+1, p)
		}
		for k := range dim {
			dim[k] += u.Dim[k] * p
		}
	}
	return Unit{Name: name, Description: description, Dim: dim}, nil
}

// base 基本单位
func base(d Dimension, name, description string) Unit {
	var dim Exponents
	dim[d] = 1
	return Unit{Name: name, Description: description, Dim: dim}
}

// 预定义单位
var (
	Dimensionless = Unit{Name: "", Description: "dimensionless"}
	Meter         = base(Length, "m", "meter")
	Kilogram      = base(Mass, "kg", "kilogram")
	Second        = base(Time, "s", "second")
	Ampere        = base(Current, "A", "ampere")
	Kelvin        = base(Temperature, "K", "kelvin")
	Mole          = base(Amount, "mol", "mole")
	Candela       = base(Luminous, "cd", "candela")
)

// Multiply 乘法，指数相加
func (u Unit) Multiply(o Unit) Unit {
	var dim Exponents
	for i := range dim {
		dim[i] = u.Dim[i] + o.Dim[i]
	}
	return named(joinName(u.Name, "*", o.Name), dim)
}

// Divide 除法，指数相减
func (u Unit) Divide(o Unit) Unit {
	var dim Exponents
	for i := range dim {
		dim[i] = u.Dim[i] - o.Dim[i]
	}
	name := joinName(u.Name, "/", o.Name)
	if u.Name == "" && o.Name != "" {
		name = "1/" + o.Name
	}
	return named(name, dim)
}

// Power 乘方，指数按 p 缩放
func (u Unit) Power(p float64) Unit {
	var dim Exponents
	for i := range dim {
		dim[i] = u.Dim[i] * p
	}
	name := u.Name
	if name != "" && p != 1 {
		name = fmt.Sprintf("(%s)^%g", name, p)
	}
	if p == 0 {
		name = ""
	}
	return Unit{Name: name, Dim: dim}
}

// IsDimensionless 是否无量纲
func (u Unit) IsDimensionless() bool {
	return u.Dim == Exponents{}
}

// Coherent 量纲一致性检查，指数向量逐项相等
func (u Unit) Coherent(o Unit) bool {
	return u.Dim == o.Dim
}

// String 单位字符串
func (u Unit) String() string {
	if u.Name != "" {
		return u.Name
	}
	if u.IsDimensionless() {
		return "1"
	}
	var num, den []string
	for i, v := range u.Dim {
		switch {
		case v == 0:
		case v == 1:
			num = append(num, Dimension(i).String())
		case v > 0:
			num = append(num, fmt.Sprintf("%s^%s", Dimension(i), trim(v)))
		case v == -1:
			den = append(den, Dimension(i).String())
		default:
			den = append(den, fmt.Sprintf("%s^%s", Dimension(i), trim(-v)))
		}
	}
	s := "1"
	if len(num) > 0 {
		s = strings.Join(num, "*")
	}
	if len(den) > 0 {
		s += "/" + strings.Join(den, "/")
	}
	return s
}

// named 指数全为0时丢弃组合名称
func named(name string, dim Exponents) Unit {
	if dim == (Exponents{}) {
		name = ""
	}
	return Unit{Name: name, Dim: dim}
}

// joinName 组合单位名称
func joinName(a, op, b string) string {
	switch {
	case a == "" && b == "":
		return ""
	case b == "":
		return a
	case a == "":
		return b
	}
	return a + op + b
}

func trim(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
