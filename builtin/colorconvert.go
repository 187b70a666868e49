package builtin

import (
	"unsafe"

	"github.com/kolbrek/fish/core"
)

// Luminance weights for the linear-light sRGB primaries, matching
// base/model-gray.c's rgba_to_gray coefficients.
const (
	lumaR = 0.2126390059
	lumaG = 0.7151686788
	lumaB = 0.0721923153
)

func luminance(r, g, b float64) float64 {
	return lumaR*r + lumaG*g + lumaB*b
}

// rgbaToGrayKernel and grayToRGBAKernel convert between the reference RGBA
// model and single-channel Gray, collapsing/expanding alpha in the process
// (Gray carries no alpha; it is dropped on the way in and set to fully
// opaque on the way out).
func rgbaToGrayKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		s := pixelAt(src, srcPitch, i)
		r := *core.At[float64](s, float64Size, 0)
		g := *core.At[float64](s, float64Size, 1)
		b := *core.At[float64](s, float64Size, 2)
		*core.At[float64](dst, dstPitch, i) = luminance(r, g, b)
	}
	return n
}

func grayToRGBAKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		v := *core.At[float64](src, srcPitch, i)
		d := pixelAt(dst, dstPitch, i)
		*core.At[float64](d, float64Size, 0) = v
		*core.At[float64](d, float64Size, 1) = v
		*core.At[float64](d, float64Size, 2) = v
		*core.At[float64](d, float64Size, 3) = 1
	}
	return n
}

// rgbaToGrayAKernel and grayAToRGBAKernel are the alpha-carrying
// counterparts of the Gray conversion above.
func rgbaToGrayAKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		s := pixelAt(src, srcPitch, i)
		d := pixelAt(dst, dstPitch, i)
		r := *core.At[float64](s, float64Size, 0)
		g := *core.At[float64](s, float64Size, 1)
		b := *core.At[float64](s, float64Size, 2)
		a := *core.At[float64](s, float64Size, 3)
		*core.At[float64](d, float64Size, 0) = luminance(r, g, b)
		*core.At[float64](d, float64Size, 1) = a
	}
	return n
}

func grayAToRGBAKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		s := pixelAt(src, srcPitch, i)
		d := pixelAt(dst, dstPitch, i)
		v := *core.At[float64](s, float64Size, 0)
		a := *core.At[float64](s, float64Size, 1)
		*core.At[float64](d, float64Size, 0) = v
		*core.At[float64](d, float64Size, 1) = v
		*core.At[float64](d, float64Size, 2) = v
		*core.At[float64](d, float64Size, 3) = a
	}
	return n
}

// rgbaToCMYKKernel and cmykToRGBAKernel implement the naive (non-color-
// managed) subtractive conversion: K is the darkest of the three additive
// channels, and C/M/Ye are what's left after removing it. CMYK carries no
// alpha; cmyk_to_rgba produces fully opaque pixels.
func rgbaToCMYKKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		s := pixelAt(src, srcPitch, i)
		d := pixelAt(dst, dstPitch, i)
		r := *core.At[float64](s, float64Size, 0)
		g := *core.At[float64](s, float64Size, 1)
		b := *core.At[float64](s, float64Size, 2)

		k := 1 - max(r, max(g, b))
		var c, m, ye float64
		if k < 1 {
			c = (1 - r - k) / (1 - k)
			m = (1 - g - k) / (1 - k)
			ye = (1 - b - k) / (1 - k)
		}
		*core.At[float64](d, float64Size, 0) = c
		*core.At[float64](d, float64Size, 1) = m
		*core.At[float64](d, float64Size, 2) = ye
		*core.At[float64](d, float64Size, 3) = k
	}
	return n
}

func cmykToRGBAKernel(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		s := pixelAt(src, srcPitch, i)
		d := pixelAt(dst, dstPitch, i)
		c := *core.At[float64](s, float64Size, 0)
		m := *core.At[float64](s, float64Size, 1)
		ye := *core.At[float64](s, float64Size, 2)
		k := *core.At[float64](s, float64Size, 3)

		*core.At[float64](d, float64Size, 0) = (1 - c) * (1 - k)
		*core.At[float64](d, float64Size, 1) = (1 - m) * (1 - k)
		*core.At[float64](d, float64Size, 2) = (1 - ye) * (1 - k)
		*core.At[float64](d, float64Size, 3) = 1
	}
	return n
}
