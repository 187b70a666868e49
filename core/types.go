// Package core implements the object registry and the descriptor types that
// every other package in fish hangs off of: Type, Component, Model, Format
// and Conversion. Descriptors are uniqued by name within a Context and live
// for the Context's lifetime; identity is pointer identity.
package core

import "unsafe"

// Kind tags which of the five descriptor families a registration belongs to.
type Kind int

const (
	KindType Kind = iota
	KindComponent
	KindModel
	KindFormat
	KindConversion
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindComponent:
		return "component"
	case KindModel:
		return "model"
	case KindFormat:
		return "format"
	case KindConversion:
		return "conversion"
	default:
		return "unknown"
	}
}

// Type describes a numeric storage type: its bit-width, signedness,
// floating-ness, and the range it can represent vs. the range meaningful as
// a color sample.
type Type struct {
	id   int
	name string

	BitWidth   int
	IsFloating bool
	Signed     bool

	// Representable range (what the bits can hold).
	MinValue float64
	MaxValue float64

	// Meaningful range (e.g. [0,1] for a u16 interpreted as a linear sample).
	MinMeaningful float64
	MaxMeaningful float64
}

func (t *Type) ID() int      { return t.id }
func (t *Type) Name() string { return t.name }

// ComponentFlag bits describe a channel's semantic role.
type ComponentFlag int

const (
	ComponentAlpha ComponentFlag = 1 << iota
	ComponentGammaCorrected
	ComponentChroma
	ComponentLuminance
)

// Component is a named channel, e.g. "R", "A", "Y'".
type Component struct {
	id    int
	name  string
	Flags ComponentFlag
}

func (c *Component) ID() int                { return c.id }
func (c *Component) Name() string            { return c.name }
func (c *Component) Is(f ComponentFlag) bool { return c.Flags&f != 0 }

// Model groups components under a defined semantic (e.g. "RGBA").
// Exactly one Model in a Context carries Reference == true.
type Model struct {
	id         int
	name       string
	Components []*Component
	Reference  bool
}

func (m *Model) ID() int      { return m.id }
func (m *Model) Name() string { return m.name }

// Layout distinguishes planar vs. interleaved component storage.
type Layout int

const (
	LayoutInterleaved Layout = iota
	LayoutPlanar
)

// Format is a concrete pixel layout: a Model, a Type, and an ordered,
// possibly-repeating selection of the model's components.
type Format struct {
	id   int
	name string

	Model      *Model
	Type       *Type
	Components []*Component
	Layout     Layout

	BytesPerPixel int
	Reference     bool
}

func (f *Format) ID() int      { return f.id }
func (f *Format) Name() string { return f.name }

// ConversionKind constrains a Conversion's endpoints to agree in kind;
// cross-kind leaves (e.g. Type->Model) are forbidden.
type ConversionKind int

const (
	TypeToType ConversionKind = iota
	ModelToModel
	FormatToFormat
)

// Kernel is the leaf conversion ABI every registered conversion routine
// must respect (spec.md §4.6). src/dst reference at least `n` elements at
// the given byte pitches (which may be negative); the kernel returns the
// number of pixels it actually wrote, <= n.
type Kernel func(src, dst unsafe.Pointer, srcPitch, dstPitch int, n int) int

// Conversion is a registered single-step routine between two descriptors of
// the same Kind.
type Conversion struct {
	id   int
	name string

	Kind ConversionKind
	Src  any // *Type, *Model, or *Format, matching Kind
	Dst  any

	Fn   Kernel
	Cost float64

	// order breaks ties deterministically when two conversions between the
	// same descriptors have equal cost: the earlier registration wins.
	order int
}

func (c *Conversion) ID() int      { return c.id }
func (c *Conversion) Name() string { return c.name }
