package registry

import (
	"fmt"

	"github.com/grand-thief-cash/humble/internal/config"
	"github.com/grand-thief-cash/humble/internal/core"
)

// BuilderFunc returns (enabled, component, error). enabled=false skips registration.
type BuilderFunc func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error)

// Builder pairs a component name with the function that builds it.
type Builder struct {
	Name string
	Fn   BuilderFunc
}

var builders []*Builder

func findBuilder(name string) *Builder {
	for _, b := range builders {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Register registers a component builder. Builders run in registration order.
func Register(name string, fn BuilderFunc) {
	if name == "" {
		panic("registry: empty name in Register")
	}
	if findBuilder(name) != nil {
		panic("registry: duplicate builder name " + name)
	}
	builders = append(builders, &Builder{Name: name, Fn: fn})
}

// Names lists registered builders in build order.
func Names() []string {
	out := make([]string, 0, len(builders))
	for _, b := range builders {
		out = append(out, b.Name)
	}
	return out
}

// BuildAndRegisterAll builds every enabled component and registers it in c.
// Start order is decided later by the container from Dependencies().
func BuildAndRegisterAll(cfg *config.AppConfig, c *core.Container) error {
	if cfg == nil {
		return fmt.Errorf("registry: nil config")
	}
	for _, b := range builders {
		enabled, comp, err := b.Fn(cfg, c)
		if err != nil {
			return fmt.Errorf("build %s failed: %w", b.Name, err)
		}
		if !enabled || comp == nil {
			continue
		}
		if err := c.Register(b.Name, comp); err != nil {
			return fmt.Errorf("register %s failed: %w", b.Name, err)
		}
	}
	return nil
}
