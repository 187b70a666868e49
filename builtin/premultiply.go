package builtin

import (
	"unsafe"

	"github.com/kolbrek/fish/core"
)

// premultiplyKernel and unpremultiplyKernel convert between RGBA (linear,
// un-premultiplied) and RGBA_premult (linear, associated alpha), both in
// double-precision reference-type space, four components per pixel.
//
// The pair-at-a-time loop shape (process two pixels, then a scalar
// remainder) is grounded on extensions/sse2-float.c's
// conv_rgbaF_linear_rgbAF_linear / conv_rgbAF_linear_rgbaF_linear_shuffle:
// real SIMD kernels process fixed-width lanes and fall back to scalar code
// for whatever doesn't divide evenly. This is a pure-Go kernel — there's no
// actual vector instruction underneath — but it keeps the same loop
// structure so a real assembly implementation could be dropped in behind
// the same ABI without changing how the planner or engine call it.

const float64Size = 8

func premultiplyKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	i := 0
	for ; i+1 < n; i += 2 {
		premultiplyOne(pixelAt(src, srcPitch, i), pixelAt(dst, dstPitch, i))
		premultiplyOne(pixelAt(src, srcPitch, i+1), pixelAt(dst, dstPitch, i+1))
	}
	for ; i < n; i++ {
		premultiplyOne(pixelAt(src, srcPitch, i), pixelAt(dst, dstPitch, i))
	}
	return n
}

func pixelAt(base unsafe.Pointer, pitch, idx int) unsafe.Pointer {
	return unsafe.Add(base, idx*pitch)
}

func premultiplyOne(srcPx, dstPx unsafe.Pointer) {
	r := *core.At[float64](srcPx, float64Size, 0)
	g := *core.At[float64](srcPx, float64Size, 1)
	b := *core.At[float64](srcPx, float64Size, 2)
	a := *core.At[float64](srcPx, float64Size, 3)

	*core.At[float64](dstPx, float64Size, 0) = r * a
	*core.At[float64](dstPx, float64Size, 1) = g * a
	*core.At[float64](dstPx, float64Size, 2) = b * a
	*core.At[float64](dstPx, float64Size, 3) = a
}

func unpremultiplyKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	i := 0
	for ; i+1 < n; i += 2 {
		unpremultiplyOne(pixelAt(src, srcPitch, i), pixelAt(dst, dstPitch, i))
		unpremultiplyOne(pixelAt(src, srcPitch, i+1), pixelAt(dst, dstPitch, i+1))
	}
	for ; i < n; i++ {
		unpremultiplyOne(pixelAt(src, srcPitch, i), pixelAt(dst, dstPitch, i))
	}
	return n
}

func unpremultiplyOne(srcPx, dstPx unsafe.Pointer) {
	r := *core.At[float64](srcPx, float64Size, 0)
	g := *core.At[float64](srcPx, float64Size, 1)
	b := *core.At[float64](srcPx, float64Size, 2)
	a := *core.At[float64](srcPx, float64Size, 3)

	if a == 0 {
		*core.At[float64](dstPx, float64Size, 0) = 0
		*core.At[float64](dstPx, float64Size, 1) = 0
		*core.At[float64](dstPx, float64Size, 2) = 0
		*core.At[float64](dstPx, float64Size, 3) = 0
		return
	}
	*core.At[float64](dstPx, float64Size, 0) = r / a
	*core.At[float64](dstPx, float64Size, 1) = g / a
	*core.At[float64](dstPx, float64Size, 2) = b / a
	*core.At[float64](dstPx, float64Size, 3) = a
}
