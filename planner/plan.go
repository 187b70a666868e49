// Package planner implements the fishing algorithm: given a source and
// destination Format, it composes registered Conversion edges into an
// executable Plan by routing through the registry's canonical reference
// format (spec.md §4.4).
package planner

import "github.com/kolbrek/fish/core"

// StepKind distinguishes how the engine invokes a Step's kernel.
type StepKind int

const (
	// StepShortcut is a single registered FormatToFormat edge; the kernel is
	// invoked once per batch on whole pixels.
	StepShortcut StepKind = iota
	// StepType is a TypeToType edge applied independently to each channel of
	// a fixed-model pixel; the engine loops the kernel once per channel.
	StepType
	// StepModel is a ModelToModel edge operating on whole pixels in
	// reference-type space; the kernel is invoked once per batch.
	StepModel
)

// Step is one leaf conversion in a Plan, annotated with the layout
// information the engine needs to invoke it without consulting the
// registry again.
type Step struct {
	Kind StepKind
	Conv *core.Conversion

	// NumComponents is the channel count a StepType step loops over; unused
	// for StepShortcut/StepModel, which address a whole pixel per call.
	NumComponents int

	// SrcStride/DstStride are the byte pitches between consecutive pixels in
	// this step's source/destination buffers.
	SrcStride int
	DstStride int

	// SrcElemSize/DstElemSize are the byte widths of a single channel
	// sample, used by StepType to advance between channels.
	SrcElemSize int
	DstElemSize int

	// SrcPlanar/DstPlanar mark that this step's source/destination buffer
	// is the caller's own planar-layout Format buffer (one contiguous run
	// per channel) rather than the engine's interleaved scratch space. Find
	// sets these only on the first/last Step, the only places a Plan
	// touches a caller-supplied buffer directly; every Step in between
	// runs against interleaved scratch.
	SrcPlanar bool
	DstPlanar bool
}

// Plan is an ordered sequence of leaf conversions that, executed in order,
// converts a pixel run in Src's layout to Dst's layout.
type Plan struct {
	Src, Dst *core.Format
	Steps    []Step

	// generation is the Context.Generation() value the plan was computed
	// against; the cache uses it to detect staleness.
	generation uint64
}

// MaxStride is the widest per-pixel byte stride across every intermediate
// buffer the plan touches, including Src and Dst — the size the engine
// must allocate its ping-pong scratch buffers to.
func (p *Plan) MaxStride() int {
	max := p.Src.BytesPerPixel
	if p.Dst.BytesPerPixel > max {
		max = p.Dst.BytesPerPixel
	}
	for _, s := range p.Steps {
		if s.SrcStride > max {
			max = s.SrcStride
		}
		if s.DstStride > max {
			max = s.DstStride
		}
	}
	return max
}
