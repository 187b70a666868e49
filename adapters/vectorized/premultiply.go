// Package vectorized demonstrates how a third party registers a drop-in
// replacement kernel for an existing (src, dst) Model pair: register the
// same edge again with a lower cost hint, and conversion_new's
// lowest-cost-wins rule (spec.md §4.3) picks it over the stock kernel the
// next time a plan needs that edge.
//
// This package's kernel is pure Go — real vectorization would need
// architecture-specific assembly, which is out of scope here — but it
// keeps the pair-at-a-time loop shape of builtin/premultiply.go and
// exists to exercise the override-by-cost mechanism end to end.
package vectorized

import (
	"fmt"
	"unsafe"

	"github.com/kolbrek/fish/builtin"
	"github.com/kolbrek/fish/core"
	apperrors "github.com/kolbrek/fish/errors"
)

// RegisterFastPremultiply re-registers RGBA -> RGBA_premult with a cheaper
// cost hint than builtin.Models's default (1 becomes 0.5; NewConversion
// treats cost <= 0 as "use the default 1", so 0 would tie rather than
// win), so the planner prefers it once both have been registered on the
// same Context.
func RegisterFastPremultiply(ctx *core.Context) error {
	rgba, ok := ctx.Model(builtin.ModelRGBA)
	if !ok {
		return apperrors.New(apperrors.CategoryExtension, "vectorized.Register", fmt.Errorf("%w: model %s", apperrors.ErrNotFound, builtin.ModelRGBA))
	}
	rgbaPremult, ok := ctx.Model(builtin.ModelRGBAPremult)
	if !ok {
		return apperrors.New(apperrors.CategoryExtension, "vectorized.Register", fmt.Errorf("%w: model %s", apperrors.ErrNotFound, builtin.ModelRGBAPremult))
	}

	ctx.NewConversion("rgba_to_rgbA_vectorized", core.ModelToModel, rgba, rgbaPremult, fastPremultiplyKernel, 0.5)
	return nil
}

// fastPremultiplyKernel processes four pixels per iteration instead of
// builtin's two, the same "wider fixed lane, scalar remainder" shape one
// step further — still scalar Go underneath.
func fastPremultiplyKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	i := 0
	for ; i+3 < n; i += 4 {
		for j := 0; j < 4; j++ {
			premultiplyOne(src, dst, srcPitch, dstPitch, i+j)
		}
	}
	for ; i < n; i++ {
		premultiplyOne(src, dst, srcPitch, dstPitch, i)
	}
	return n
}

const float64Size = 8

func premultiplyOne(src, dst unsafe.Pointer, srcPitch, dstPitch, idx int) {
	s := unsafe.Add(src, idx*srcPitch)
	d := unsafe.Add(dst, idx*dstPitch)

	r := *core.At[float64](s, float64Size, 0)
	g := *core.At[float64](s, float64Size, 1)
	b := *core.At[float64](s, float64Size, 2)
	a := *core.At[float64](s, float64Size, 3)

	*core.At[float64](d, float64Size, 0) = r * a
	*core.At[float64](d, float64Size, 1) = g * a
	*core.At[float64](d, float64Size, 2) = b * a
	*core.At[float64](d, float64Size, 3) = a
}
