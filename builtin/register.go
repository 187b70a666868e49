package builtin

import "github.com/kolbrek/fish/core"

// Registered is everything Register built, for callers that want direct
// handles on the stock Models/Formats instead of looking them up by name.
type Registered struct {
	Models  modelSet
	Formats formatSet
}

// Register installs every built-in descriptor into ctx in the only order
// that satisfies their dependencies: Components before Models (a Model's
// Components must already exist), Types before the Model<->Format bridging
// conversions depend on a reference Type, then Models before Formats (a
// Format references a Model), and Formats last since the reference Format
// must resolve to the already-registered reference Model.
func Register(ctx *core.Context) Registered {
	Components(ctx)
	Types(ctx)
	models := Models(ctx)
	formats := Formats(ctx, models)
	return Registered{Models: models, Formats: formats}
}
