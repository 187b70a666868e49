// Package fish is a dynamically extensible pixel-format conversion library:
// register Types, Components, Models, Formats, and Conversions into a
// Context, then ask it to plan and execute a conversion between any two
// registered Formats it can find a path between.
package fish

import (
	"time"

	"github.com/kolbrek/fish/builtin"
	"github.com/kolbrek/fish/config"
	"github.com/kolbrek/fish/core"
	"github.com/kolbrek/fish/engine"
	apperrors "github.com/kolbrek/fish/errors"
	"github.com/kolbrek/fish/extload"
	"github.com/kolbrek/fish/hooks"
	"github.com/kolbrek/fish/planner"
)

// Re-export the registration and lookup surface so most callers never need
// to import core directly.
type (
	Type       = core.Type
	Component  = core.Component
	Model      = core.Model
	Format     = core.Format
	Conversion = core.Conversion
	TypeAttrs  = core.TypeAttrs
	FormatAttrs = core.FormatAttrs
	Kernel     = core.Kernel
	Hook       = core.Hook
	Logger     = core.Logger
	MetricsCollector = core.MetricsCollector
	Plan       = planner.Plan
)

const (
	TypeToType     = core.TypeToType
	ModelToModel   = core.ModelToModel
	FormatToFormat = core.FormatToFormat
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Context is the primary entry point: a registry of descriptors plus the
// planner and engine wired to use it. It is safe for concurrent use.
type Context struct {
	inner  *core.Context
	cache  *planner.Cache
	engine *engine.Engine
	cfg    config.Config

	hooks   []core.Hook
	metrics core.MetricsCollector
	logger  core.Logger
}

// New creates a Context with the stock Types/Components/Models/Formats
// registered (package builtin), and loads any compiled extensions found on
// cfg.ExtensionPath. Pass config.Default() to start from sensible defaults.
func New(cfg config.Config) (*Context, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "fish.New", err)
	}

	ctx := &Context{
		cache:  planner.NewCache(cfg.PlanCacheSize, cfg.PlanTimeout),
		cfg:    cfg,
		logger: hooks.NewDefaultLogger(cfg.LogLevel),
	}
	ctx.inner = core.NewContext(ctx.onFatal)
	ctx.engine = engine.New(cfg)

	builtin.Register(ctx.inner)

	if cfg.ExtensionPath != "" {
		if err := extload.LoadFromEnv(ctx.inner, cfg.ExtensionPath); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryExtension, "fish.New", err)
		}
	}

	return ctx, nil
}

func (c *Context) onFatal(err error) {
	if c.cfg.Fatal != nil {
		c.cfg.Fatal(err)
		return
	}
	panic(err)
}

// AddHook registers an observer invoked around every FindConversion/Process
// pair run through Convert.
func (c *Context) AddHook(h core.Hook) { c.hooks = append(c.hooks, h) }

// SetMetrics attaches a metrics collector fed by Convert.
func (c *Context) SetMetrics(m core.MetricsCollector) { c.metrics = m }

// SetLogger attaches a structured logger made available to hooks that need
// one (e.g. hooks.NewLoggingHook(ctx.Logger())).
func (c *Context) SetLogger(l core.Logger) { c.logger = l }

// Logger returns the Context's current structured logger: whatever was
// last passed to SetLogger, or a cfg.LogLevel-filtered default otherwise.
func (c *Context) Logger() core.Logger { return c.logger }

// Inner exposes the underlying core.Context for registering new
// descriptors, or for tests that want direct registry access.
func (c *Context) Inner() *core.Context { return c.inner }

// Type looks up a registered Type by name.
func (c *Context) Type(name string) (*core.Type, bool) { return c.inner.Type(name) }

// Model looks up a registered Model by name.
func (c *Context) Model(name string) (*core.Model, bool) { return c.inner.Model(name) }

// Format looks up a registered Format by name.
func (c *Context) Format(name string) (*core.Format, bool) { return c.inner.Format(name) }

// Component looks up a registered Component by name.
func (c *Context) Component(name string) (*core.Component, bool) { return c.inner.Component(name) }

// FindConversion plans a conversion between two registered Formats,
// consulting (and populating) the plan cache.
func (c *Context) FindConversion(src, dst *core.Format) (*planner.Plan, error) {
	return c.cache.Find(c.inner, src, dst)
}

// Convert runs a full find-plan-then-execute cycle for one-shot callers,
// invoking any registered hooks and metrics collector around the whole
// operation the way the engine alone would not.
func (c *Context) Convert(op string, src, dst *core.Format, srcBuf, dstBuf []byte, n int) (int, error) {
	for _, h := range c.hooks {
		h.BeforeConvert(op, src, dst)
	}
	start := time.Now()

	plan, err := c.FindConversion(src, dst)
	if err != nil {
		c.afterConvert(op, src, dst, time.Since(start), 0, err)
		return 0, err
	}

	processed, err := c.engine.Process(plan, srcBuf, dstBuf, n)
	c.afterConvert(op, src, dst, time.Since(start), processed, err)
	return processed, err
}

// Process executes a Plan already produced by FindConversion, without
// re-running hooks — use this in a hot loop over many batches of the same
// plan to avoid the per-call hook overhead Convert pays.
func (c *Context) Process(plan *planner.Plan, src, dst []byte, n int) (int, error) {
	return c.engine.Process(plan, src, dst, n)
}

// Shutdown releases the engine's idle scratch buffers and, when
// cfg.FatalOnImbalance is set, runs a babl_memory_sanity-style balance
// check over the allocator hooks passed to Config: more frees than allocs
// observed across the Context's lifetime invokes the Fatal hook. Callers
// that never set Config.Alloc/Free can skip calling Shutdown; the Go
// garbage collector reclaims those buffers on its own.
func (c *Context) Shutdown() {
	c.engine.Close()
}

// AllocStats returns the engine's running scratch-buffer allocate/free
// counts, for callers that supplied Config.Alloc/Free and want visibility
// without waiting for a FatalOnImbalance panic.
func (c *Context) AllocStats() (allocs, frees int64) {
	return c.engine.AllocStats()
}

func (c *Context) afterConvert(op string, src, dst *core.Format, d time.Duration, n int, err error) {
	for _, h := range c.hooks {
		h.AfterConvert(op, src, dst, d, n, err)
	}
	if c.metrics != nil {
		c.metrics.RecordConversionTime(op, d)
		if err != nil {
			c.metrics.RecordError(op, "execution")
		} else {
			c.metrics.RecordPixels(int64(n))
		}
	}
}
