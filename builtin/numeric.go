// Package builtin registers the stock types, components, models, formats,
// and conversions that ship with every fish.Context: the integer and
// floating-point Types, the RGBA/Gray/CMYK Models, their
// interleaved and planar Formats, and the conversions between them. It is
// this library's analogue of the teacher's built-in JPEG/PNG/WebP
// codec registrations.
package builtin

import (
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/kolbrek/fish/core"
)

// Reference and common Type names.
const (
	TypeDouble = "double"
	TypeFloat  = "float"
	TypeU8     = "u8"
	TypeU16    = "u16"
	TypeU32    = "u32"
)

// Types registers the reference double type plus u8/u16/u32/float, and a
// scaled conversion to and from double for each integer width, grounded on
// base/type-u16.c's convert_u16_double_scaled / convert_double_u16_scaled
// shape generalized with golang.org/x/exp/constraints so the formula is
// written once and instantiated per width instead of copy-pasted per type.
func Types(ctx *core.Context) {
	doubleT := ctx.NewType(TypeDouble, core.TypeAttrs{
		BitWidth: 64, IsFloating: true, Signed: true,
		MinValue: -1.797693134862315708145274237317043567981e+308,
		MaxValue: 1.797693134862315708145274237317043567981e+308,
		MinMeaningful: 0, MaxMeaningful: 1,
	})
	floatT := ctx.NewType(TypeFloat, core.TypeAttrs{
		BitWidth: 32, IsFloating: true, Signed: true,
		MinValue: -3.40282346638528859812e+38,
		MaxValue: 3.40282346638528859812e+38,
		MinMeaningful: 0, MaxMeaningful: 1,
	})
	u8T := ctx.NewType(TypeU8, core.TypeAttrs{BitWidth: 8, MinValue: 0, MaxValue: 0xff, MinMeaningful: 0, MaxMeaningful: 1})
	u16T := ctx.NewType(TypeU16, core.TypeAttrs{BitWidth: 16, MinValue: 0, MaxValue: 0xffff, MinMeaningful: 0, MaxMeaningful: 1})
	u32T := ctx.NewType(TypeU32, core.TypeAttrs{BitWidth: 32, MinValue: 0, MaxValue: 0xffffffff, MinMeaningful: 0, MaxMeaningful: 1})

	registerIntType(ctx, u8T, doubleT, 0, 0xff)
	registerIntType(ctx, u16T, doubleT, 0, 0xffff)
	registerIntType(ctx, u32T, doubleT, 0, 0xffffffff)

	ctx.NewConversion("float_to_double", core.TypeToType, floatT, doubleT, floatToDouble, 1)
	ctx.NewConversion("double_to_float", core.TypeToType, doubleT, floatT, doubleToFloat, 1)
}

// registerIntType registers the two scaled conversions between an integer
// Type t (with representable range [min,max]) and the reference double
// Type ref. Both directions are clamped to t's representable range.
func registerIntType(ctx *core.Context, t, ref *core.Type, min, max uint32) {
	switch t.BitWidth {
	case 8:
		ctx.NewConversion(t.Name()+"_to_double", core.TypeToType, t, ref, intToDoubleKernel[uint8](float64(min), float64(max)), 1)
		ctx.NewConversion("double_to_"+t.Name(), core.TypeToType, ref, t, doubleToIntKernel[uint8](float64(min), float64(max)), 1)
	case 16:
		ctx.NewConversion(t.Name()+"_to_double", core.TypeToType, t, ref, intToDoubleKernel[uint16](float64(min), float64(max)), 1)
		ctx.NewConversion("double_to_"+t.Name(), core.TypeToType, ref, t, doubleToIntKernel[uint16](float64(min), float64(max)), 1)
	case 32:
		ctx.NewConversion(t.Name()+"_to_double", core.TypeToType, t, ref, intToDoubleKernel[uint32](float64(min), float64(max)), 1)
		ctx.NewConversion("double_to_"+t.Name(), core.TypeToType, ref, t, doubleToIntKernel[uint32](float64(min), float64(max)), 1)
	}
}

// intToDoubleKernel builds a Kernel converting a fixed-width unsigned
// integer sample in [0, max] to a double sample in [0, 1], matching
// convert_u16_double_scaled's formula: (val-min)/(max-min).
func intToDoubleKernel[T constraints.Unsigned](min, max float64) core.Kernel {
	return func(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
		for i := 0; i < n; i++ {
			v := *core.At[T](src, srcPitch, i)
			dval := (float64(v) - min) / (max - min)
			*core.At[float64](dst, dstPitch, i) = dval
		}
		return n
	}
}

// doubleToIntKernel builds a Kernel converting a double sample, clamped to
// [0,1], to a fixed-width unsigned integer sample in [0, max], matching
// convert_double_u16_scaled's formula: (dval-min_val)/(max_val-min_val)*(max-min)+min.
func doubleToIntKernel[T constraints.Unsigned](min, max float64) core.Kernel {
	return func(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
		for i := 0; i < n; i++ {
			dval := *core.At[float64](src, srcPitch, i)
			var v float64
			switch {
			case dval < 0:
				v = min
			case dval > 1:
				v = max
			default:
				v = dval*(max-min) + min
			}
			*core.At[T](dst, dstPitch, i) = T(v)
		}
		return n
	}
}

func floatToDouble(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		v := *core.At[float32](src, srcPitch, i)
		*core.At[float64](dst, dstPitch, i) = float64(v)
	}
	return n
}

func doubleToFloat(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		v := *core.At[float64](src, srcPitch, i)
		*core.At[float32](dst, dstPitch, i) = float32(v)
	}
	return n
}
