package builtin

import "github.com/kolbrek/fish/core"

// Format name constants.
const (
	FormatRGBAFloatLinear        = "RGBA float" // the reference format
	FormatRGBAPremultFloatLinear = "RGBA_premult float"
	FormatRGBAFloatGamma         = "R'G'B'A float"
	FormatRGBAU8                 = "RGBA u8"
	FormatGrayU8                 = "Y u8"
	FormatGrayDouble             = "Y double"
	FormatGrayAU8                = "YA u8"
	FormatCMYKU8                 = "CMYK u8"
	FormatRGBAU8Planar           = "RGBA u8 planar"
)

// formatSet bundles the Formats this library ships.
type formatSet struct {
	rgbaFloatLinear, rgbAFloatLinear, rgbaFloatGamma *core.Format
	rgbaU8                                            *core.Format
	grayU8, grayDouble, grayAU8                       *core.Format
	cmykU8                                            *core.Format
	rgbaU8Planar                                       *core.Format
}

// Formats registers the concrete pixel layouts built on top of the Models
// and Types already registered: the floating-point reference format itself
// (the only Format with Reference: true, per spec.md §3 invariant 3), its
// premultiplied and gamma-corrected siblings, the integer formats codecs
// actually hand the library, and one planar format exercising
// core.LayoutPlanar end to end.
//
// Every Format here carries exactly as many Components as its Model —
// Find's type legs size strides off the Model's component count (see
// planner.Find's doc comment), so a Format that dropped or reordered
// components relative to its Model would need its own reorder step, which
// this library doesn't model yet.
func Formats(ctx *core.Context, m modelSet) formatSet {
	double, _ := ctx.Type(TypeDouble)
	u8, _ := ctx.Type(TypeU8)

	r, _ := ctx.Component(CompR)
	g, _ := ctx.Component(CompG)
	b, _ := ctx.Component(CompB)
	a, _ := ctx.Component(CompA)
	rG, _ := ctx.Component(CompRGamma)
	gG, _ := ctx.Component(CompGGamma)
	bG, _ := ctx.Component(CompBGamma)
	grayC, _ := ctx.Component(CompGray)
	c, _ := ctx.Component(CompC)
	mm, _ := ctx.Component(CompM)
	ye, _ := ctx.Component(CompYe)
	k, _ := ctx.Component(CompK)

	rgbaFloatLinear := ctx.NewFormat(FormatRGBAFloatLinear, core.FormatAttrs{
		Model: m.rgba, Type: double, Components: []*core.Component{r, g, b, a}, Reference: true,
	})
	rgbAFloatLinear := ctx.NewFormat(FormatRGBAPremultFloatLinear, core.FormatAttrs{
		Model: m.rgbaPremult, Type: double, Components: []*core.Component{r, g, b, a},
	})
	rgbaFloatGamma := ctx.NewFormat(FormatRGBAFloatGamma, core.FormatAttrs{
		Model: m.rgbaGamma, Type: double, Components: []*core.Component{rG, gG, bG, a},
	})

	rgbaU8 := ctx.NewFormat(FormatRGBAU8, core.FormatAttrs{
		Model: m.rgba, Type: u8, Components: []*core.Component{r, g, b, a},
	})

	grayU8 := ctx.NewFormat(FormatGrayU8, core.FormatAttrs{
		Model: m.gray, Type: u8, Components: []*core.Component{grayC},
	})
	grayDouble := ctx.NewFormat(FormatGrayDouble, core.FormatAttrs{
		Model: m.gray, Type: double, Components: []*core.Component{grayC},
	})
	grayAU8 := ctx.NewFormat(FormatGrayAU8, core.FormatAttrs{
		Model: m.grayA, Type: u8, Components: []*core.Component{grayC, a},
	})

	cmykU8 := ctx.NewFormat(FormatCMYKU8, core.FormatAttrs{
		Model: m.cmyk, Type: u8, Components: []*core.Component{c, mm, ye, k},
	})

	rgbaU8Planar := ctx.NewPlanarFormat(FormatRGBAU8Planar, core.FormatAttrs{
		Model: m.rgba, Type: u8, Components: []*core.Component{r, g, b, a},
	})

	return formatSet{
		rgbaFloatLinear: rgbaFloatLinear,
		rgbAFloatLinear: rgbAFloatLinear,
		rgbaFloatGamma:  rgbaFloatGamma,
		rgbaU8:          rgbaU8,
		grayU8:          grayU8,
		grayDouble:      grayDouble,
		grayAU8:         grayAU8,
		cmykU8:          cmykU8,
		rgbaU8Planar:    rgbaU8Planar,
	}
}
