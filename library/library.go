package library

import (
	"fmt"
	"sort"
	"sync"

	"procsim/problem"
	"procsim/types"
)

// Factory 构造一个新的问题实例
type Factory func(opts ...problem.Option) (*problem.Problem, error)

// Entry 库中的一个问题
type Entry struct {
	Name        string
	Description string
	Factory     Factory
	Start, End  float64            // 默认积分区间，代数问题为零
	Initial     map[string]float64 // 默认初值
}

// Dynamic 是否需要积分
func (e Entry) Dynamic() bool { return e.End > e.Start }

// New 构造问题
func (e Entry) New(opts ...problem.Option) (*problem.Problem, error) {
	p, err := e.Factory(opts...)
	if err != nil {
		return nil, fmt.Errorf("构造 %s: %w", e.Name, err)
	}
	return p, nil
}

// InitialConditions 默认初值的拷贝
func (e Entry) InitialConditions() map[string]float64 {
	out := make(map[string]float64, len(e.Initial))
	for k, v := range e.Initial {
		out[k] = v
	}
	return out
}

var (
	mu       sync.RWMutex
	registry = map[string]Entry{}
)

// Register 注册问题，名称重复时 panic
func Register(e Entry) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[e.Name]; ok {
		panic(fmt.Errorf("指定问题已经注册: %s", e.Name))
	}
	if e.Factory == nil {
		panic(fmt.Errorf("问题没有构造函数: %s", e.Name))
	}
	registry[e.Name] = e
}

// Lookup 按名称查找
func Lookup(name string) (Entry, error) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[name]
	if !ok {
		return Entry{}, &types.AbsentRequiredObjectError{Object: "问题 " + name, Context: "库"}
	}
	return e, nil
}

// Names 已注册的名称，按字母排序
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
