package equation

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator 唯一编号生成器，用于匿名方程命名
type IDGenerator interface {
	NextID() string
}

// UUIDGenerator 基于 UUID 的编号
type UUIDGenerator struct{}

// NextID 生成编号
func (UUIDGenerator) NextID() string {
	return uuid.NewString()
}

// SequenceGenerator 单调递增编号，测试中得到确定的名称
type SequenceGenerator struct {
	n atomic.Uint64
}

// NextID 生成编号
func (g *SequenceGenerator) NextID() string {
	return strconv.FormatUint(g.n.Add(1), 10)
}
