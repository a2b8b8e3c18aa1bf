package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procsim/unit"
)

// TestErrorsUnwrap 类型错误既能 As 也能 Is
func TestErrorsUnwrap(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&DimensionalCoherenceError{Op: "+", Left: unit.Meter.Dim, Right: unit.Second.Dim}, ErrDimensionalCoherence},
		{&NonDimensionalArgumentError{Func: "exp", Dim: unit.Meter.Dim}, ErrNonDimensionalArgument},
		{&UnexpectedValueError{Context: "SetValue", Value: "x"}, ErrUnexpectedValue},
		{&UnexpectedObjectDeclarationError{Model: "m", Undeclared: []string{"a"}}, ErrUnexpectedObjectDeclaration},
		{&AbsentRequiredObjectError{Object: "u_lv", Context: "初值"}, ErrAbsentRequiredObject},
		{&UnresolvedPanicError{Context: "symbol"}, ErrUnresolvedPanic},
	}
	for _, c := range cases {
		wrapped := fmt.Errorf("外层: %w", c.err)
		assert.ErrorIs(t, wrapped, c.sentinel)
		assert.NotEmpty(t, c.err.Error())
	}

	var dce *DimensionalCoherenceError
	require.True(t, errors.As(fmt.Errorf("x: %w", cases[0].err), &dce))
	assert.Equal(t, 1.0, dce.Left[unit.Length])
	assert.Equal(t, 1.0, dce.Right[unit.Time])
}

// TestObjectDeclarationMessage 错误信息包含未声明对象和注册表
func TestObjectDeclarationMessage(t *testing.T) {
	err := &UnexpectedObjectDeclarationError{Model: "tank", Undeclared: []string{"x_feed"}, Known: []string{"h_tank", "q_tank"}}
	assert.Contains(t, err.Error(), "x_feed")
	assert.Contains(t, err.Error(), "h_tank, q_tank")
}
