// Package extload discovers and loads compiled Go plugins that extend a
// Context with additional Types, Models, Formats, and Conversions at
// startup — the dynamic-extensibility surface spec.md §6 describes as an
// environment-variable-driven search path, analogous to how the original
// babl discovers .so modules on BABL_PATH.
package extload

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/kolbrek/fish/core"
)

// RegisterFunc is the symbol every extension plugin must export under the
// name "Register". It receives the Context to add descriptors to and
// returns an error if registration fails.
type RegisterFunc func(ctx *core.Context) error

// LoadFromEnv reads envVar as a colon-separated list of directories, finds
// every "*.so" file in each, opens it as a Go plugin, and calls its
// exported Register(ctx *core.Context) error symbol. A directory that
// doesn't exist is skipped rather than treated as an error — most Contexts
// never set the variable at all.
func LoadFromEnv(ctx *core.Context, envVar string) error {
	path := os.Getenv(envVar)
	if path == "" {
		return nil
	}
	for _, dir := range strings.Split(path, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		if err := loadDir(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

func loadDir(ctx *core.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("extload: reading %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".so" {
			continue
		}
		if err := loadPlugin(ctx, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func loadPlugin(ctx *core.Context, path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("extload: opening %s: %w", path, err)
	}
	sym, err := p.Lookup("Register")
	if err != nil {
		return fmt.Errorf("extload: %s has no Register symbol: %w", path, err)
	}
	register, ok := sym.(func(ctx *core.Context) error)
	if !ok {
		return fmt.Errorf("extload: %s's Register symbol has the wrong signature", path)
	}
	if err := register(ctx); err != nil {
		return fmt.Errorf("extload: %s.Register: %w", path, err)
	}
	return nil
}
