package builtin

import "github.com/kolbrek/fish/core"

// Component name constants, shared across Models and Formats.
const (
	CompR  = "R"
	CompG  = "G"
	CompB  = "B"
	CompA  = "A"
	CompRGamma = "R'" // gamma-corrected red, distinct from linear R
	CompGGamma = "G'" // gamma-corrected green, distinct from linear G
	CompBGamma = "B'" // gamma-corrected blue, distinct from linear B
	CompGray = "Gray"
	CompC  = "C"
	CompM  = "M"
	CompYe = "Ye" // CMYK yellow, to avoid clashing with luma Y
	CompK  = "K"
)

// Components registers every Component used by the built-in Models below.
func Components(ctx *core.Context) {
	ctx.NewComponent(CompR, 0)
	ctx.NewComponent(CompG, 0)
	ctx.NewComponent(CompB, 0)
	ctx.NewComponent(CompA, core.ComponentAlpha)
	ctx.NewComponent(CompRGamma, core.ComponentGammaCorrected)
	ctx.NewComponent(CompGGamma, core.ComponentGammaCorrected)
	ctx.NewComponent(CompBGamma, core.ComponentGammaCorrected)
	ctx.NewComponent(CompGray, core.ComponentLuminance)
	ctx.NewComponent(CompC, 0)
	ctx.NewComponent(CompM, 0)
	ctx.NewComponent(CompYe, 0)
	ctx.NewComponent(CompK, 0)
}
