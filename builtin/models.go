package builtin

import "github.com/kolbrek/fish/core"

// Model name constants.
const (
	ModelRGBA          = "RGBA"         // linear light, un-premultiplied — the reference model
	ModelRGBAPremult   = "RGBA_premult" // linear light, associated alpha
	ModelRGBAGamma     = "R'G'B'A"      // gamma-corrected (sRGB transfer), un-premultiplied
	ModelGray          = "Gray"
	ModelGrayA         = "GrayA"
	ModelCMYK          = "CMYK"
)

// modelSet bundles every registered built-in Model so later files (formats,
// kernels) can refer to them without re-looking each up by name.
type modelSet struct {
	rgba, rgbaPremult, rgbaGamma, gray, grayA, cmyk *core.Model
}

// Models registers the color Models this library ships, plus the
// ModelToModel conversions between them: premultiply/unpremultiply
// (scenario 3/4 in spec.md §8), gamma/linear (scenario 5), and RGB<->Gray
// and RGB<->CMYK as supplementary conversions exercising longer routing
// chains through the reference model.
func Models(ctx *core.Context) modelSet {
	r, _ := ctx.Component(CompR)
	g, _ := ctx.Component(CompG)
	b, _ := ctx.Component(CompB)
	a, _ := ctx.Component(CompA)
	rG, _ := ctx.Component(CompRGamma)
	gG, _ := ctx.Component(CompGGamma)
	bG, _ := ctx.Component(CompBGamma)
	gray, _ := ctx.Component(CompGray)
	c, _ := ctx.Component(CompC)
	m, _ := ctx.Component(CompM)
	ye, _ := ctx.Component(CompYe)
	k, _ := ctx.Component(CompK)

	rgba := ctx.NewModel(ModelRGBA, []*core.Component{r, g, b, a}, true)
	rgbaPremult := ctx.NewModel(ModelRGBAPremult, []*core.Component{r, g, b, a}, false)
	rgbaGamma := ctx.NewModel(ModelRGBAGamma, []*core.Component{rG, gG, bG, a}, false)
	grayModel := ctx.NewModel(ModelGray, []*core.Component{gray}, false)
	grayAModel := ctx.NewModel(ModelGrayA, []*core.Component{gray, a}, false)
	cmyk := ctx.NewModel(ModelCMYK, []*core.Component{c, m, ye, k}, false)

	ctx.NewConversion("rgba_to_rgbA", core.ModelToModel, rgba, rgbaPremult, premultiplyKernel, 1)
	ctx.NewConversion("rgbA_to_rgba", core.ModelToModel, rgbaPremult, rgba, unpremultiplyKernel, 1)

	ctx.NewConversion("rgba_to_rgbaGamma", core.ModelToModel, rgba, rgbaGamma, linearRGBAToGammaKernel, 1)
	ctx.NewConversion("rgbaGamma_to_rgba", core.ModelToModel, rgbaGamma, rgba, gammaRGBAToLinearKernel, 1)

	ctx.NewConversion("rgba_to_gray", core.ModelToModel, rgba, grayModel, rgbaToGrayKernel, 2)
	ctx.NewConversion("gray_to_rgba", core.ModelToModel, grayModel, rgba, grayToRGBAKernel, 2)
	ctx.NewConversion("rgba_to_grayA", core.ModelToModel, rgba, grayAModel, rgbaToGrayAKernel, 2)
	ctx.NewConversion("grayA_to_rgba", core.ModelToModel, grayAModel, rgba, grayAToRGBAKernel, 2)

	ctx.NewConversion("rgba_to_cmyk", core.ModelToModel, rgba, cmyk, rgbaToCMYKKernel, 3)
	ctx.NewConversion("cmyk_to_rgba", core.ModelToModel, cmyk, rgba, cmykToRGBAKernel, 3)

	return modelSet{
		rgba: rgba, rgbaPremult: rgbaPremult, rgbaGamma: rgbaGamma,
		gray: grayModel, grayA: grayAModel, cmyk: cmyk,
	}
}
