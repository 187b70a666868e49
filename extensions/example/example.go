// Package main is a worked example of a fish extension: a Go plugin built
// with `go build -buildmode=plugin` and dropped into a directory on
// FISH_EXTENSION_PATH. It registers one additional Type — a signed 16-bit
// integer sample, "s16", useful for codecs that store centered rather than
// unsigned samples — and the scaled conversions to and from the reference
// double Type, following the same shape as builtin.registerIntType but for
// a signed range.
package main

import (
	"unsafe"

	"github.com/kolbrek/fish/core"
	apperrors "github.com/kolbrek/fish/errors"
)

const typeS16 = "s16"

// Register is the symbol extload.LoadFromEnv looks up and calls.
func Register(ctx *core.Context) error {
	double, ok := ctx.Type("double")
	if !ok {
		return apperrors.New(apperrors.CategoryExtension, "s16.Register", apperrors.ErrNotFound)
	}

	s16 := ctx.NewType(typeS16, core.TypeAttrs{
		BitWidth: 16, Signed: true,
		MinValue: -32768, MaxValue: 32767,
		MinMeaningful: -1, MaxMeaningful: 1,
	})

	ctx.NewConversion(typeS16+"_to_double", core.TypeToType, s16, double, s16ToDouble, 1)
	ctx.NewConversion("double_to_"+typeS16, core.TypeToType, double, s16, doubleToS16, 1)
	return nil
}

func s16ToDouble(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		v := *core.At[int16](src, srcPitch, i)
		*core.At[float64](dst, dstPitch, i) = float64(v) / 32767
	}
	return n
}

func doubleToS16(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		dval := *core.At[float64](src, srcPitch, i)
		switch {
		case dval < -1:
			dval = -1
		case dval > 1:
			dval = 1
		}
		*core.At[int16](dst, dstPitch, i) = int16(dval * 32767)
	}
	return n
}
