package core_test

import (
	"testing"
	"unsafe"

	"github.com/kolbrek/fish/core"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func newCtx(t *testing.T) *core.Context {
	t.Helper()
	var fatalErr error
	ctx := core.NewContext(func(err error) { fatalErr = err })
	t.Cleanup(func() {
		if fatalErr != nil {
			t.Fatalf("context reported a fatal registration error during test: %v", fatalErr)
		}
	})
	return ctx
}

func requireFatal(t *testing.T, fn func(fatal func(error))) error {
	t.Helper()
	var got error
	fn(func(err error) { got = err })
	if got == nil {
		t.Fatalf("expected a fatal registration error, got none")
	}
	return got
}

func noopKernel(_, _ unsafe.Pointer, _, _, n int) int { return n }

// ── Uniquing ──────────────────────────────────────────────────────────────────

func TestNewType_UniquesByName(t *testing.T) {
	ctx := newCtx(t)
	attrs := core.TypeAttrs{BitWidth: 16, MinValue: 0, MaxValue: 65535, MaxMeaningful: 1}

	a := ctx.NewType("u16", attrs)
	b := ctx.NewType("u16", attrs)

	if a != b {
		t.Fatalf("expected identical registration to return the same *Type, got %p and %p", a, b)
	}
	if len(ctx.Types()) != 1 {
		t.Fatalf("expected exactly one registered type, got %d", len(ctx.Types()))
	}
}

func TestNewType_MismatchedAttrsIsFatal(t *testing.T) {
	ctx := newCtx(t)
	ctx.NewType("u16", core.TypeAttrs{BitWidth: 16})

	err := requireFatal(t, func(fatal func(error)) {
		ctx2 := core.NewContext(fatal)
		ctx2.NewType("u16", core.TypeAttrs{BitWidth: 16})
		ctx2.NewType("u16", core.TypeAttrs{BitWidth: 32})
	})
	_ = ctx
	if err == nil {
		t.Fatal("expected duplicate-mismatch error")
	}
}

func TestNewType_ZeroBitWidthIsFatal(t *testing.T) {
	requireFatal(t, func(fatal func(error)) {
		ctx := core.NewContext(fatal)
		ctx.NewType("bogus", core.TypeAttrs{})
	})
}

func TestNewType_DenseIDs(t *testing.T) {
	ctx := newCtx(t)
	a := ctx.NewType("u8", core.TypeAttrs{BitWidth: 8})
	b := ctx.NewType("u16", core.TypeAttrs{BitWidth: 16})

	if a.ID() != 0 || b.ID() != 1 {
		t.Fatalf("expected dense 0-based ids, got %d and %d", a.ID(), b.ID())
	}
	got, ok := ctx.TypeByID(1)
	if !ok || got != b {
		t.Fatalf("TypeByID(1) = %v, %v; want %v, true", got, ok, b)
	}
}

// ── Model / Format invariants ─────────────────────────────────────────────────

func TestNewModel_OnlyOneReferenceAllowed(t *testing.T) {
	requireFatal(t, func(fatal func(error)) {
		ctx := core.NewContext(fatal)
		r := ctx.NewComponent("R", 0)
		ctx.NewModel("rgb", []*core.Component{r}, true)
		ctx.NewModel("rgb2", []*core.Component{r}, true)
	})
}

func TestNewFormat_ComponentsMustBeSubsetOfModel(t *testing.T) {
	requireFatal(t, func(fatal func(error)) {
		ctx := core.NewContext(fatal)
		r := ctx.NewComponent("R", 0)
		g := ctx.NewComponent("G", 0)
		model := ctx.NewModel("rg", []*core.Component{r}, false)
		u8 := ctx.NewType("u8", core.TypeAttrs{BitWidth: 8})
		ctx.NewFormat("rg_u8", core.FormatAttrs{Model: model, Type: u8, Components: []*core.Component{r, g}})
	})
}

func TestNewFormat_ReferenceRequiresReferenceModelAndFloatingType(t *testing.T) {
	requireFatal(t, func(fatal func(error)) {
		ctx := core.NewContext(fatal)
		r := ctx.NewComponent("R", 0)
		model := ctx.NewModel("rgb", []*core.Component{r}, true)
		u8 := ctx.NewType("u8", core.TypeAttrs{BitWidth: 8})
		ctx.NewFormat("refFormat", core.FormatAttrs{Model: model, Type: u8, Components: []*core.Component{r}, Reference: true})
	})
}

func TestNewFormat_BytesPerPixel(t *testing.T) {
	ctx := newCtx(t)
	r := ctx.NewComponent("R", 0)
	g := ctx.NewComponent("G", 0)
	model := ctx.NewModel("rg", []*core.Component{r, g}, false)
	u16 := ctx.NewType("u16", core.TypeAttrs{BitWidth: 16})

	f := ctx.NewFormat("rg_u16", core.FormatAttrs{Model: model, Type: u16, Components: []*core.Component{r, g}})
	if f.BytesPerPixel != 4 {
		t.Fatalf("BytesPerPixel = %d, want 4", f.BytesPerPixel)
	}
}

// ── Conversion edges: lowest-cost, earliest-registration tie-break ───────────

func TestNewConversion_LowestCostWins(t *testing.T) {
	ctx := newCtx(t)
	u8 := ctx.NewType("u8", core.TypeAttrs{BitWidth: 8})
	u16 := ctx.NewType("u16", core.TypeAttrs{BitWidth: 16})

	slow := ctx.NewConversion("u8_to_u16_slow", core.TypeToType, u8, u16, noopKernel, 10)
	fast := ctx.NewConversion("u8_to_u16_fast", core.TypeToType, u8, u16, noopKernel, 1)

	edge, ok := ctx.TypeEdge(u8, u16)
	if !ok {
		t.Fatal("expected an edge between u8 and u16")
	}
	if edge != fast {
		t.Fatalf("expected the lower-cost conversion %q to win, got %q", fast.Name(), edge.Name())
	}
	_ = slow
}

func TestNewConversion_TiesBrokenByRegistrationOrder(t *testing.T) {
	ctx := newCtx(t)
	u8 := ctx.NewType("u8", core.TypeAttrs{BitWidth: 8})
	u16 := ctx.NewType("u16", core.TypeAttrs{BitWidth: 16})

	first := ctx.NewConversion("first", core.TypeToType, u8, u16, noopKernel, 5)
	ctx.NewConversion("second", core.TypeToType, u8, u16, noopKernel, 5)

	edge, ok := ctx.TypeEdge(u8, u16)
	if !ok || edge != first {
		t.Fatalf("expected the first-registered conversion to win a cost tie, got %v", edge)
	}
}

func TestNewConversion_MismatchedKindIsFatal(t *testing.T) {
	requireFatal(t, func(fatal func(error)) {
		ctx := core.NewContext(fatal)
		r := ctx.NewComponent("R", 0)
		model := ctx.NewModel("rgb", []*core.Component{r}, false)
		u8 := ctx.NewType("u8", core.TypeAttrs{BitWidth: 8})
		ctx.NewConversion("bad", core.TypeToType, u8, model, noopKernel, 1)
	})
}

func TestGeneration_BumpsOnRegistration(t *testing.T) {
	ctx := newCtx(t)
	before := ctx.Generation()
	ctx.NewType("u8", core.TypeAttrs{BitWidth: 8})
	u16 := ctx.NewType("u16", core.TypeAttrs{BitWidth: 16})
	u8, _ := ctx.Type("u8")
	ctx.NewConversion("u8_to_u16", core.TypeToType, u8, u16, noopKernel, 1)
	after := ctx.Generation()

	if after <= before {
		t.Fatalf("expected Generation to advance after registrations: before=%d after=%d", before, after)
	}
}
