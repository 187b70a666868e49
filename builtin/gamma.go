package builtin

import (
	"math"
	"unsafe"

	"github.com/kolbrek/fish/core"
)

// linearRGBAToGammaKernel and gammaRGBAToLinearKernel convert between the
// reference linear-light RGBA model and its gamma-corrected (sRGB transfer
// function) counterpart, four double components per pixel with alpha
// carried through unchanged. Grounded on base/model-rgb.c's
// rgba_to_rgbaGamma_float / rgbaGamma_to_rgba_float, generalized here to
// operate on the double reference Type rather than float.
func linearRGBAToGammaKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		s := pixelAt(src, srcPitch, i)
		d := pixelAt(dst, dstPitch, i)
		*core.At[float64](d, float64Size, 0) = linearToSRGB(*core.At[float64](s, float64Size, 0))
		*core.At[float64](d, float64Size, 1) = linearToSRGB(*core.At[float64](s, float64Size, 1))
		*core.At[float64](d, float64Size, 2) = linearToSRGB(*core.At[float64](s, float64Size, 2))
		*core.At[float64](d, float64Size, 3) = *core.At[float64](s, float64Size, 3)
	}
	return n
}

func gammaRGBAToLinearKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		s := pixelAt(src, srcPitch, i)
		d := pixelAt(dst, dstPitch, i)
		*core.At[float64](d, float64Size, 0) = srgbToLinear(*core.At[float64](s, float64Size, 0))
		*core.At[float64](d, float64Size, 1) = srgbToLinear(*core.At[float64](s, float64Size, 1))
		*core.At[float64](d, float64Size, 2) = srgbToLinear(*core.At[float64](s, float64Size, 2))
		*core.At[float64](d, float64Size, 3) = *core.At[float64](s, float64Size, 3)
	}
	return n
}

// linearToSRGB and srgbToLinear implement the sRGB transfer function's
// piecewise definition: a near-linear segment close to black to avoid an
// infinite-slope gamma curve there, and a power-law segment elsewhere.
func linearToSRGB(c float64) float64 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}
