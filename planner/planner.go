package planner

import (
	"fmt"
	"time"

	"github.com/kolbrek/fish/core"
	apperrors "github.com/kolbrek/fish/errors"
)

var errNoPath = apperrors.ErrNoPath

// Find produces an executable Plan converting pixels from src's layout to
// dst's layout, following the fishing algorithm (spec.md §4.4):
//
//  1. if a FormatToFormat shortcut is registered, use it directly;
//  2. otherwise decompose into up to three legs — src.Type to the
//     reference Type, src.Model to dst.Model in reference-type space, and
//     the reference Type to dst.Type — each leg planned as a shortest
//     path through its own graph.
//
// Planning is grounded on the assumption (documented in DESIGN.md) that a
// Format's component list matches its Model's component list in order, so
// no separate reorder pass is needed for the builtin registrations this
// library ships; a Format that reorders or subsets its model's components
// would need that reorder modeled as its own step, which is out of scope
// here.
func Find(ctx *core.Context, src, dst *core.Format) (*Plan, error) {
	return FindWithTimeout(ctx, src, dst, 0)
}

// FindWithTimeout is Find, bounded by timeout (config.Config.PlanTimeout):
// if the graph search hasn't settled the destination node by the deadline,
// it gives up with ErrNoPath rather than searching indefinitely. A zero
// timeout means no bound, matching config.Config's "0 means no timeout"
// documentation.
func FindWithTimeout(ctx *core.Context, src, dst *core.Format, timeout time.Duration) (*Plan, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	if src == dst {
		return &Plan{Src: src, Dst: dst, generation: ctx.Generation()}, nil
	}

	if shortcut, ok := ctx.FormatShortcut(src, dst); ok {
		return &Plan{
			Src: src, Dst: dst,
			generation: ctx.Generation(),
			Steps: []Step{{
				Kind:      StepShortcut,
				Conv:      shortcut,
				SrcStride: src.BytesPerPixel,
				DstStride: dst.BytesPerPixel,
				SrcPlanar: src.Layout == core.LayoutPlanar,
				DstPlanar: dst.Layout == core.LayoutPlanar,
			}},
		}, nil
	}

	refModel, ok := ctx.ReferenceModel()
	if !ok {
		return nil, apperrors.New(apperrors.CategoryPlanner, "find", errNoPath)
	}
	refFormat, ok := ctx.ReferenceFormat()
	if !ok {
		return nil, apperrors.New(apperrors.CategoryPlanner, "find", errNoPath)
	}
	refType := refFormat.Type

	var steps []Step

	legA, err := typeLeg(ctx, src.Type, refType, len(src.Model.Components), deadline)
	if err != nil {
		return nil, apperrors.New(apperrors.CategoryPlanner, "find.legA", fmt.Errorf("%w: %s -> reference type", err, src.Type.Name()))
	}
	steps = append(steps, legA...)

	if src.Model != dst.Model {
		legB, err := modelLeg(ctx, src.Model, dst.Model, deadline)
		if err != nil {
			return nil, apperrors.New(apperrors.CategoryPlanner, "find.legB", fmt.Errorf("%w: %s -> %s", err, src.Model.Name(), dst.Model.Name()))
		}
		steps = append(steps, legB...)
	} else if src.Model != refModel {
		// still need an identity pass through the reference model's own
		// loop-back edge if one exists; none is required by this design
		// since Leg A and Leg C already bridge type space and the model is
		// unchanged, so nothing to add here.
	}

	legC, err := typeLeg(ctx, refType, dst.Type, len(dst.Model.Components), deadline)
	if err != nil {
		return nil, apperrors.New(apperrors.CategoryPlanner, "find.legC", fmt.Errorf("%w: reference type -> %s", err, dst.Type.Name()))
	}
	steps = append(steps, legC...)

	// Only the first/last Step reads/writes the caller's own Format
	// buffers; everything in between runs against the engine's interleaved
	// scratch space, so the planar flag only ever belongs on those two ends.
	if len(steps) > 0 {
		steps[0].SrcPlanar = src.Layout == core.LayoutPlanar
		steps[len(steps)-1].DstPlanar = dst.Layout == core.LayoutPlanar
	}

	return &Plan{Src: src, Dst: dst, Steps: steps, generation: ctx.Generation()}, nil
}

// typeLeg plans a chain of TypeToType edges from src to dst and annotates
// each with the fixed channel count it's applied across.
func typeLeg(ctx *core.Context, src, dst *core.Type, numComponents int, deadline time.Time) ([]Step, error) {
	if src == dst {
		return nil, nil
	}
	edges, err := dijkstraTypes(ctx, src, dst, deadline)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(edges))
	cur := src
	for _, edge := range edges {
		next := edge.Dst.(*core.Type)
		steps = append(steps, Step{
			Kind:          StepType,
			Conv:          edge,
			NumComponents: numComponents,
			SrcElemSize:   cur.BitWidth / 8,
			DstElemSize:   next.BitWidth / 8,
			SrcStride:     numComponents * (cur.BitWidth / 8),
			DstStride:     numComponents * (next.BitWidth / 8),
		})
		cur = next
	}
	return steps, nil
}

// modelLeg plans a chain of ModelToModel edges from src to dst, operating
// in the reference type's element size throughout.
func modelLeg(ctx *core.Context, src, dst *core.Model, deadline time.Time) ([]Step, error) {
	edges, err := dijkstraModels(ctx, src, dst, deadline)
	if err != nil {
		return nil, err
	}
	refFormat, _ := ctx.ReferenceFormat()
	elemSize := refFormat.Type.BitWidth / 8

	steps := make([]Step, 0, len(edges))
	for _, edge := range edges {
		srcModel := edge.Src.(*core.Model)
		dstModel := edge.Dst.(*core.Model)
		steps = append(steps, Step{
			Kind:        StepModel,
			Conv:        edge,
			SrcElemSize: elemSize,
			DstElemSize: elemSize,
			SrcStride:   len(srcModel.Components) * elemSize,
			DstStride:   len(dstModel.Components) * elemSize,
		})
	}
	return steps, nil
}
