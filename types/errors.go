package types

import (
	"errors"
	"fmt"
	"strings"

	"procsim/unit"
)

// 错误类别
var (
	ErrDimensionalCoherence        = errors.New("量纲不一致")
	ErrNonDimensionalArgument      = errors.New("参数必须无量纲")
	ErrUnexpectedValue             = errors.New("非预期的值")
	ErrUnexpectedObjectDeclaration = errors.New("引用了未声明的对象")
	ErrAbsentRequiredObject        = errors.New("缺少必需的对象")
	ErrUnresolvedPanic             = errors.New("内部不变量被破坏")
)

// DimensionalCoherenceError 加减或乘方时两侧量纲不一致
type DimensionalCoherenceError struct {
	Op          string
	Left, Right unit.Exponents
}

func (e *DimensionalCoherenceError) Error() string {
	return fmt.Sprintf("%v: %s 左侧 %v 右侧 %v", ErrDimensionalCoherence, e.Op, e.Left, e.Right)
}

func (e *DimensionalCoherenceError) Unwrap() error { return ErrDimensionalCoherence }

// NonDimensionalArgumentError 超越函数作用于有量纲参数
type NonDimensionalArgumentError struct {
	Func string
	Dim  unit.Exponents
}

func (e *NonDimensionalArgumentError) Error() string {
	return fmt.Sprintf("%v: %s(%v)", ErrNonDimensionalArgument, e.Func, e.Dim)
}

func (e *NonDimensionalArgumentError) Unwrap() error { return ErrNonDimensionalArgument }

// UnexpectedValueError 参数类型或形状不符合约定
type UnexpectedValueError struct {
	Context string
	Value   any
}

func (e *UnexpectedValueError) Error() string {
	return fmt.Sprintf("%v: %s: %v (%T)", ErrUnexpectedValue, e.Context, e.Value, e.Value)
}

func (e *UnexpectedValueError) Unwrap() error { return ErrUnexpectedValue }

// UnexpectedObjectDeclarationError 方程引用了模型未注册的量
type UnexpectedObjectDeclarationError struct {
	Model      string
	Undeclared []string // 未声明的量
	Known      []string // 模型已注册的全部量
}

func (e *UnexpectedObjectDeclarationError) Error() string {
	return fmt.Sprintf("%v: 模型 %s 中 [%s]，已注册 [%s]", ErrUnexpectedObjectDeclaration,
		e.Model, strings.Join(e.Undeclared, ", "), strings.Join(e.Known, ", "))
}

func (e *UnexpectedObjectDeclarationError) Unwrap() error { return ErrUnexpectedObjectDeclaration }

// AbsentRequiredObjectError 所需对象缺失
type AbsentRequiredObjectError struct {
	Object  string
	Context string
}

func (e *AbsentRequiredObjectError) Error() string {
	return fmt.Sprintf("%v: %s (%s)", ErrAbsentRequiredObject, e.Object, e.Context)
}

func (e *AbsentRequiredObjectError) Unwrap() error { return ErrAbsentRequiredObject }

// UnresolvedPanicError 不应发生的内部错误
type UnresolvedPanicError struct {
	Context string
}

func (e *UnresolvedPanicError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnresolvedPanic, e.Context)
}

func (e *UnresolvedPanicError) Unwrap() error { return ErrUnresolvedPanic }
