// core/component.go
package core

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// Component 定义组件的基本接口
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	HealthCheck() error
	Dependencies() []string
	IsActive() bool
}

// OptionalSuffix marks a dependency that only orders startup when it is registered.
const OptionalSuffix = "?"

// BaseComponent 提供组件的基础实现
// active 会被 accept 循环和 admin 的 healthz 并发读取，所以用 atomic.
type BaseComponent struct {
	name   string
	active atomic.Bool
	deps   []string
}

// NewBaseComponent 创建基础组件
func NewBaseComponent(name string, deps ...string) *BaseComponent {
	return &BaseComponent{
		name: name,
		deps: deps,
	}
}

func (c *BaseComponent) Name() string {
	return c.name
}

func (c *BaseComponent) Dependencies() []string {
	return c.deps
}

func (c *BaseComponent) IsActive() bool {
	return c.active.Load()
}

func (c *BaseComponent) SetActive(active bool) {
	c.active.Store(active)
}

func (c *BaseComponent) Start(ctx context.Context) error {
	c.active.Store(true)
	return nil
}

func (c *BaseComponent) Stop(ctx context.Context) error {
	c.active.Store(false)
	return nil
}

func (c *BaseComponent) HealthCheck() error {
	if !c.active.Load() {
		return fmt.Errorf("component %s is not active", c.name)
	}
	return nil
}

// AddDependencies 在 StartAll 之前追加启动顺序约束
func (c *BaseComponent) AddDependencies(deps ...string) {
	if len(deps) == 0 {
		return
	}
	c.deps = append(c.deps, deps...)
}

// splitDependency returns the bare component name and whether it was marked optional.
func splitDependency(dep string) (string, bool) {
	if strings.HasSuffix(dep, OptionalSuffix) {
		return strings.TrimSuffix(dep, OptionalSuffix), true
	}
	return dep, false
}
