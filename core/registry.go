package core

import (
	"fmt"
	"sync"

	apperrors "github.com/kolbrek/fish/errors"
)

// Context is the process-wide-singleton-made-explicit uniquing directory
// (spec.md §9 "Global registry"). Every descriptor is registered exactly
// once per name per Kind; a second registration with identical attributes
// returns the existing descriptor, a second registration with differing
// attributes is a DuplicateMismatch. Tests instantiate independent Contexts
// so worlds don't bleed into each other.
type Context struct {
	mu sync.RWMutex

	types       map[string]*Type
	components  map[string]*Component
	models      map[string]*Model
	formats     map[string]*Format
	conversions map[string]*Conversion

	typesByID       []*Type
	componentsByID  []*Component
	modelsByID      []*Model
	formatsByID     []*Format
	conversionsByID []*Conversion

	refModel  *Model
	refFormat *Format

	// convTypeEdges, convModelEdges and convFormatShortcuts index registered
	// TypeToType/ModelToModel/FormatToFormat conversions by (srcID, dstID)
	// within their Kind, keeping the
	// lowest-cost edge (ties broken by earliest registration — spec.md §4.3).
	convTypeEdges       map[[2]int]*Conversion
	convModelEdges      map[[2]int]*Conversion
	convFormatShortcuts map[[2]int]*Conversion

	registrationSeq int

	fatal func(error)
}

// NewContext returns an empty Context. fatal is called for registration
// errors that spec.md §7 classifies as fatal (DuplicateMismatch,
// InvalidAttributes, AllocFailed); pass nil to panic with the error, which
// is the default and is what makes registration bugs loud in tests.
func NewContext(fatal func(error)) *Context {
	if fatal == nil {
		fatal = func(err error) { panic(err) }
	}
	return &Context{
		types:               make(map[string]*Type),
		components:          make(map[string]*Component),
		models:              make(map[string]*Model),
		formats:             make(map[string]*Format),
		conversions:         make(map[string]*Conversion),
		convTypeEdges:       make(map[[2]int]*Conversion),
		convModelEdges:      make(map[[2]int]*Conversion),
		convFormatShortcuts: make(map[[2]int]*Conversion),
		fatal:               fatal,
	}
}

func (c *Context) fail(err error) {
	c.fatal(err)
}

// ── Type ──────────────────────────────────────────────────────────────────

// TypeAttrs is the attribute set validated by NewType.
type TypeAttrs struct {
	BitWidth      int
	IsFloating    bool
	Signed        bool
	MinValue      float64
	MaxValue      float64
	MinMeaningful float64
	MaxMeaningful float64
}

// NewType registers a Type, or returns the existing one if attrs match an
// already-registered Type of the same name.
func (c *Context) NewType(name string, attrs TypeAttrs) *Type {
	if attrs.BitWidth <= 0 {
		c.fail(apperrors.New(apperrors.CategoryRegistry, "type.new",
			fmt.Errorf("%w: %s has zero or negative bit width", apperrors.ErrInvalidAttributes, name)))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.types[name]; ok {
		if !typeAttrsEqual(existing, attrs) {
			c.fail(apperrors.New(apperrors.CategoryRegistry, "type.new",
				fmt.Errorf("%w: %s", apperrors.ErrDuplicateMismatch, name)))
			return nil
		}
		return existing
	}

	t := &Type{
		id:            len(c.typesByID),
		name:          name,
		BitWidth:      attrs.BitWidth,
		IsFloating:    attrs.IsFloating,
		Signed:        attrs.Signed,
		MinValue:      attrs.MinValue,
		MaxValue:      attrs.MaxValue,
		MinMeaningful: attrs.MinMeaningful,
		MaxMeaningful: attrs.MaxMeaningful,
	}
	c.types[name] = t
	c.typesByID = append(c.typesByID, t)
	c.registrationSeq++
	return t
}

func typeAttrsEqual(t *Type, a TypeAttrs) bool {
	return t.BitWidth == a.BitWidth &&
		t.IsFloating == a.IsFloating &&
		t.Signed == a.Signed &&
		t.MinValue == a.MinValue &&
		t.MaxValue == a.MaxValue &&
		t.MinMeaningful == a.MinMeaningful &&
		t.MaxMeaningful == a.MaxMeaningful
}

// Type looks up a registered Type by name.
func (c *Context) Type(name string) (*Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[name]
	return t, ok
}

// TypeByID looks up a registered Type by its dense id.
func (c *Context) TypeByID(id int) (*Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || id >= len(c.typesByID) {
		return nil, false
	}
	return c.typesByID[id], true
}

// Types returns every registered Type, in registration order.
func (c *Context) Types() []*Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Type, len(c.typesByID))
	copy(out, c.typesByID)
	return out
}

// ── Component ─────────────────────────────────────────────────────────────

// NewComponent registers a Component, or returns the existing one if flags
// match an already-registered Component of the same name.
func (c *Context) NewComponent(name string, flags ComponentFlag) *Component {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.components[name]; ok {
		if existing.Flags != flags {
			c.fail(apperrors.New(apperrors.CategoryRegistry, "component.new",
				fmt.Errorf("%w: %s", apperrors.ErrDuplicateMismatch, name)))
			return nil
		}
		return existing
	}

	comp := &Component{id: len(c.componentsByID), name: name, Flags: flags}
	c.components[name] = comp
	c.componentsByID = append(c.componentsByID, comp)
	c.registrationSeq++
	return comp
}

// Component looks up a registered Component by name.
func (c *Context) Component(name string) (*Component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	comp, ok := c.components[name]
	return comp, ok
}

// Components returns every registered Component, in registration order.
func (c *Context) Components() []*Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Component, len(c.componentsByID))
	copy(out, c.componentsByID)
	return out
}

// ── Model ─────────────────────────────────────────────────────────────────

// NewModel registers a Model (invariant 1: every component must already be
// registered). At most one Model across the Context's lifetime may set
// reference=true (invariant 3); attempting a second is InvalidAttributes.
func (c *Context) NewModel(name string, components []*Component, reference bool) *Model {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.models[name]; ok {
		if !modelAttrsEqual(existing, components, reference) {
			c.fail(apperrors.New(apperrors.CategoryRegistry, "model.new",
				fmt.Errorf("%w: %s", apperrors.ErrDuplicateMismatch, name)))
			return nil
		}
		return existing
	}

	if reference && c.refModel != nil {
		c.fail(apperrors.New(apperrors.CategoryRegistry, "model.new",
			fmt.Errorf("%w: a reference model is already registered (%s)", apperrors.ErrInvalidAttributes, c.refModel.name)))
		return nil
	}

	m := &Model{
		id:         len(c.modelsByID),
		name:       name,
		Components: append([]*Component(nil), components...),
		Reference:  reference,
	}
	c.models[name] = m
	c.modelsByID = append(c.modelsByID, m)
	if reference {
		c.refModel = m
	}
	c.registrationSeq++
	return m
}

func modelAttrsEqual(m *Model, components []*Component, reference bool) bool {
	if m.Reference != reference || len(m.Components) != len(components) {
		return false
	}
	for i, comp := range components {
		if m.Components[i] != comp {
			return false
		}
	}
	return true
}

// Model looks up a registered Model by name.
func (c *Context) Model(name string) (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[name]
	return m, ok
}

// ModelByID looks up a registered Model by its dense id.
func (c *Context) ModelByID(id int) (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || id >= len(c.modelsByID) {
		return nil, false
	}
	return c.modelsByID[id], true
}

// Models returns every registered Model, in registration order.
func (c *Context) Models() []*Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Model, len(c.modelsByID))
	copy(out, c.modelsByID)
	return out
}

// ReferenceModel returns the single canonical Model, if one has been
// registered.
func (c *Context) ReferenceModel() (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refModel, c.refModel != nil
}

// ── Format ────────────────────────────────────────────────────────────────

// FormatAttrs is the attribute set validated by NewFormat/NewPlanarFormat.
type FormatAttrs struct {
	Model      *Model
	Type       *Type
	Components []*Component
	Layout     Layout
	Reference  bool
}

// NewFormat registers an interleaved Format. NewPlanarFormat registers a
// planar one. Both validate invariant 2 (components subset of the model's,
// as a multiset) and invariant 3 (at most one reference Format, and it must
// point at the reference Model and a floating Type).
func (c *Context) NewFormat(name string, attrs FormatAttrs) *Format {
	attrs.Layout = LayoutInterleaved
	return c.newFormat(name, attrs)
}

func (c *Context) NewPlanarFormat(name string, attrs FormatAttrs) *Format {
	attrs.Layout = LayoutPlanar
	return c.newFormat(name, attrs)
}

func (c *Context) newFormat(name string, attrs FormatAttrs) *Format {
	if attrs.Model == nil || attrs.Type == nil || len(attrs.Components) == 0 {
		c.fail(apperrors.New(apperrors.CategoryRegistry, "format.new",
			fmt.Errorf("%w: %s is missing model, type, or components", apperrors.ErrInvalidAttributes, name)))
		return nil
	}
	if !componentsSubsetOf(attrs.Components, attrs.Model.Components) {
		c.fail(apperrors.New(apperrors.CategoryRegistry, "format.new",
			fmt.Errorf("%w: %s components are not a subset of model %s", apperrors.ErrInvalidAttributes, name, attrs.Model.name)))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.formats[name]; ok {
		if !formatAttrsEqual(existing, attrs) {
			c.fail(apperrors.New(apperrors.CategoryRegistry, "format.new",
				fmt.Errorf("%w: %s", apperrors.ErrDuplicateMismatch, name)))
			return nil
		}
		return existing
	}

	if attrs.Reference {
		if c.refFormat != nil {
			c.fail(apperrors.New(apperrors.CategoryRegistry, "format.new",
				fmt.Errorf("%w: a reference format is already registered (%s)", apperrors.ErrInvalidAttributes, c.refFormat.name)))
			return nil
		}
		if !attrs.Model.Reference || !attrs.Type.IsFloating {
			c.fail(apperrors.New(apperrors.CategoryRegistry, "format.new",
				fmt.Errorf("%w: reference format %s must use the reference model and a floating type", apperrors.ErrInvalidAttributes, name)))
			return nil
		}
	}

	f := &Format{
		id:            len(c.formatsByID),
		name:          name,
		Model:         attrs.Model,
		Type:          attrs.Type,
		Components:    append([]*Component(nil), attrs.Components...),
		Layout:        attrs.Layout,
		BytesPerPixel: (attrs.Type.BitWidth / 8) * len(attrs.Components),
		Reference:     attrs.Reference,
	}
	c.formats[name] = f
	c.formatsByID = append(c.formatsByID, f)
	if attrs.Reference {
		c.refFormat = f
	}
	c.registrationSeq++
	return f
}

func componentsSubsetOf(want, have []*Component) bool {
	remaining := make(map[*Component]int, len(have))
	for _, comp := range have {
		remaining[comp]++
	}
	for _, comp := range want {
		if remaining[comp] <= 0 {
			return false
		}
		remaining[comp]--
	}
	return true
}

func formatAttrsEqual(f *Format, attrs FormatAttrs) bool {
	if f.Model != attrs.Model || f.Type != attrs.Type || f.Layout != attrs.Layout || f.Reference != attrs.Reference {
		return false
	}
	if len(f.Components) != len(attrs.Components) {
		return false
	}
	for i, comp := range attrs.Components {
		if f.Components[i] != comp {
			return false
		}
	}
	return true
}

// Format looks up a registered Format by name.
func (c *Context) Format(name string) (*Format, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.formats[name]
	return f, ok
}

// FormatByID looks up a registered Format by its dense id.
func (c *Context) FormatByID(id int) (*Format, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || id >= len(c.formatsByID) {
		return nil, false
	}
	return c.formatsByID[id], true
}

// Formats returns every registered Format, in registration order.
func (c *Context) Formats() []*Format {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Format, len(c.formatsByID))
	copy(out, c.formatsByID)
	return out
}

// ReferenceFormat returns the single canonical Format, if one has been
// registered.
func (c *Context) ReferenceFormat() (*Format, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refFormat, c.refFormat != nil
}

// ── Conversion ────────────────────────────────────────────────────────────

// NewConversion registers a leaf edge between src and dst, which must both
// be *Type, *Model, or *Format and must agree in Kind (invariant 4).
// Duplicate edges (same src, same dst) retain the lowest-cost instance;
// ties are broken by registration order, first wins (spec.md §4.3).
// Re-registering an existing name returns the existing Conversion when kind,
// endpoints and cost match (kernels are not compared), and is a
// DuplicateMismatch otherwise.
func (c *Context) NewConversion(name string, kind ConversionKind, src, dst any, fn Kernel, cost float64) *Conversion {
	srcID, dstID, ok := endpointIDs(kind, src, dst)
	if !ok || fn == nil {
		c.fail(apperrors.New(apperrors.CategoryRegistry, "conversion.new",
			fmt.Errorf("%w: %s has mismatched endpoint kinds or a nil kernel", apperrors.ErrInvalidAttributes, name)))
		return nil
	}
	if cost <= 0 {
		cost = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.conversions[name]; ok {
		if existing.Kind != kind || existing.Src != src || existing.Dst != dst || existing.Cost != cost {
			c.fail(apperrors.New(apperrors.CategoryRegistry, "conversion.new",
				fmt.Errorf("%w: %s", apperrors.ErrDuplicateMismatch, name)))
			return nil
		}
		return existing
	}

	conv := &Conversion{
		id:    len(c.conversionsByID),
		name:  name,
		Kind:  kind,
		Src:   src,
		Dst:   dst,
		Fn:    fn,
		Cost:  cost,
		order: c.registrationSeq,
	}
	c.registrationSeq++
	c.conversionsByID = append(c.conversionsByID, conv)
	c.conversions[name] = conv

	key := [2]int{srcID, dstID}
	var table map[[2]int]*Conversion
	switch kind {
	case TypeToType:
		table = c.convTypeEdges
	case ModelToModel:
		table = c.convModelEdges
	case FormatToFormat:
		table = c.convFormatShortcuts
	}
	if existing, ok := table[key]; !ok || betterEdge(conv, existing) {
		table[key] = conv
	}
	return conv
}

// betterEdge reports whether candidate should replace incumbent under the
// lowest-cost-then-earliest-registration tie-break rule.
func betterEdge(candidate, incumbent *Conversion) bool {
	if candidate.Cost != incumbent.Cost {
		return candidate.Cost < incumbent.Cost
	}
	return candidate.order < incumbent.order
}

func endpointIDs(kind ConversionKind, src, dst any) (int, int, bool) {
	switch kind {
	case TypeToType:
		s, ok1 := src.(*Type)
		d, ok2 := dst.(*Type)
		if !ok1 || !ok2 {
			return 0, 0, false
		}
		return s.ID(), d.ID(), true
	case ModelToModel:
		s, ok1 := src.(*Model)
		d, ok2 := dst.(*Model)
		if !ok1 || !ok2 {
			return 0, 0, false
		}
		return s.ID(), d.ID(), true
	case FormatToFormat:
		s, ok1 := src.(*Format)
		d, ok2 := dst.(*Format)
		if !ok1 || !ok2 {
			return 0, 0, false
		}
		return s.ID(), d.ID(), true
	}
	return 0, 0, false
}

// Conversions returns every registered Conversion, in registration order,
// including edges later superseded by a lower-cost registration for the
// same (src, dst) pair.
func (c *Context) Conversions() []*Conversion {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Conversion, len(c.conversionsByID))
	copy(out, c.conversionsByID)
	return out
}

// TypeEdge returns the registered winning TypeToType conversion from src to
// dst, if any.
func (c *Context) TypeEdge(src, dst *Type) (*Conversion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conv, ok := c.convTypeEdges[[2]int{src.ID(), dst.ID()}]
	return conv, ok
}

// ModelEdge returns the registered winning ModelToModel conversion from src
// to dst, if any.
func (c *Context) ModelEdge(src, dst *Model) (*Conversion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conv, ok := c.convModelEdges[[2]int{src.ID(), dst.ID()}]
	return conv, ok
}

// FormatShortcut returns the registered winning FormatToFormat conversion
// from src to dst, if any (the planner's fast path, spec.md §4.4 step 1).
func (c *Context) FormatShortcut(src, dst *Format) (*Conversion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conv, ok := c.convFormatShortcuts[[2]int{src.ID(), dst.ID()}]
	return conv, ok
}

// TypeEdgesFrom returns every registered TypeToType edge whose source is t,
// for the planner's shortest-path search.
func (c *Context) TypeEdgesFrom(t *Type) []*Conversion {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Conversion
	for key, conv := range c.convTypeEdges {
		if key[0] == t.ID() {
			out = append(out, conv)
		}
	}
	return out
}

// ModelEdgesFrom returns every registered ModelToModel edge whose source is
// m, for the planner's shortest-path search.
func (c *Context) ModelEdgesFrom(m *Model) []*Conversion {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Conversion
	for key, conv := range c.convModelEdges {
		if key[0] == m.ID() {
			out = append(out, conv)
		}
	}
	return out
}

// NumTypes and NumModels expose the dense id space size for the planner's
// adjacency tables.
func (c *Context) NumTypes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.typesByID)
}

func (c *Context) NumModels() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.modelsByID)
}

// Generation is bumped on every mutating registration call and is used by
// the planner package to invalidate its plan cache (spec.md §4.4
// "Memoization" / §3 "Lifecycles").
func (c *Context) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint64(c.registrationSeq)
}
