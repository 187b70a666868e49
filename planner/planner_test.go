package planner_test

import (
	"testing"
	"time"
	"unsafe"

	"github.com/google/go-cmp/cmp"

	"github.com/kolbrek/fish/core"
	"github.com/kolbrek/fish/planner"
)

func noopKernel(_, _ unsafe.Pointer, _, _, n int) int { return n }

func newCtx(t *testing.T) *core.Context {
	t.Helper()
	var fatalErr error
	ctx := core.NewContext(func(err error) { fatalErr = err })
	t.Cleanup(func() {
		if fatalErr != nil {
			t.Fatalf("unexpected fatal registration error: %v", fatalErr)
		}
	})
	return ctx
}

// fixture builds a minimal registry: a reference "double" type, a
// non-reference "u16" type with one edge each way to the reference type,
// and three one-component models A, Ref (the reference model), and C, with
// ModelToModel edges registered only A->Ref and Ref->C — no direct A->C —
// matching spec.md §8 scenario 6.
type fixture struct {
	ctx *core.Context

	doubleT, u16T         *core.Type
	modelA, modelRef, modelC *core.Model
	fmtA, fmtRef, fmtC    *core.Format
	fmtAU16               *core.Format

	aToRef, refToC *core.Conversion
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := newCtx(t)

	doubleT := ctx.NewType("double", core.TypeAttrs{BitWidth: 64, IsFloating: true, MinValue: -1e300, MaxValue: 1e300, MinMeaningful: 0, MaxMeaningful: 1})
	u16T := ctx.NewType("u16", core.TypeAttrs{BitWidth: 16, MaxValue: 0xffff, MaxMeaningful: 1})
	ctx.NewConversion("u16_to_double", core.TypeToType, u16T, doubleT, noopKernel, 1)
	ctx.NewConversion("double_to_u16", core.TypeToType, doubleT, u16T, noopKernel, 1)

	x := ctx.NewComponent("X", 0)
	modelA := ctx.NewModel("A", []*core.Component{x}, false)
	modelRef := ctx.NewModel("Ref", []*core.Component{x}, true)
	modelC := ctx.NewModel("C", []*core.Component{x}, false)

	aToRef := ctx.NewConversion("a_to_ref", core.ModelToModel, modelA, modelRef, noopKernel, 1)
	refToC := ctx.NewConversion("ref_to_c", core.ModelToModel, modelRef, modelC, noopKernel, 1)

	fmtA := ctx.NewFormat("A_double", core.FormatAttrs{Model: modelA, Type: doubleT, Components: []*core.Component{x}})
	fmtRef := ctx.NewFormat("Ref_double", core.FormatAttrs{Model: modelRef, Type: doubleT, Components: []*core.Component{x}, Reference: true})
	fmtC := ctx.NewFormat("C_double", core.FormatAttrs{Model: modelC, Type: doubleT, Components: []*core.Component{x}})
	fmtAU16 := ctx.NewFormat("A_u16", core.FormatAttrs{Model: modelA, Type: u16T, Components: []*core.Component{x}})

	return &fixture{
		ctx: ctx,
		doubleT: doubleT, u16T: u16T,
		modelA: modelA, modelRef: modelRef, modelC: modelC,
		fmtA: fmtA, fmtRef: fmtRef, fmtC: fmtC, fmtAU16: fmtAU16,
		aToRef: aToRef, refToC: refToC,
	}
}

// ── Invariant 2: round-trip ───────────────────────────────────────────────────

func TestFind_IdentityFormatIsEmptyPlan(t *testing.T) {
	f := newFixture(t)
	p, err := planner.Find(f.ctx, f.fmtA, f.fmtA)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(p.Steps) != 0 {
		t.Fatalf("expected an empty plan for F->F, got %d steps", len(p.Steps))
	}
}

// ── Scenario 6: routes through the reference when no direct
// edge is registered ──────────────────────────────────────────────────────────

func TestFind_RoutesThroughReferenceModel(t *testing.T) {
	f := newFixture(t)
	p, err := planner.Find(f.ctx, f.fmtA, f.fmtC)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("expected a 2-edge plan routing through the reference model, got %d", len(p.Steps))
	}
	if p.Steps[0].Conv != f.aToRef || p.Steps[1].Conv != f.refToC {
		t.Fatalf("expected edges [a_to_ref, ref_to_c], got [%s, %s]", p.Steps[0].Conv.Name(), p.Steps[1].Conv.Name())
	}
}

func TestFind_NoPathWhenUnreachable(t *testing.T) {
	f := newFixture(t)
	stray := f.ctx.NewComponent("Y", 0)
	strayModel := f.ctx.NewModel("Stray", []*core.Component{stray}, false)
	strayFmt := f.ctx.NewFormat("Stray_double", core.FormatAttrs{Model: strayModel, Type: f.doubleT, Components: []*core.Component{stray}})

	if _, err := planner.Find(f.ctx, f.fmtA, strayFmt); err == nil {
		t.Fatal("expected NoPath for a registered model with no edges")
	}
}

// ── Invariant 3: type legs compose with model legs ────────────────────────────

func TestFind_ComposesTypeAndModelLegs(t *testing.T) {
	f := newFixture(t)
	p, err := planner.Find(f.ctx, f.fmtAU16, f.fmtC)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	// Leg A (u16->double) + Leg B (A->Ref->C), no Leg C since dst is already double.
	if len(p.Steps) != 3 {
		t.Fatalf("expected 3 steps (1 type + 2 model), got %d", len(p.Steps))
	}
	if p.Steps[0].Kind != planner.StepType {
		t.Fatalf("expected the first step to be a type conversion, got kind %v", p.Steps[0].Kind)
	}
	if p.Steps[1].Kind != planner.StepModel || p.Steps[2].Kind != planner.StepModel {
		t.Fatalf("expected the remaining steps to be model conversions")
	}
}

// ── Invariant 4: stability ─────────────────────────────────────────────────────

func TestFind_StableAcrossRepeatedCalls(t *testing.T) {
	f := newFixture(t)
	cache := planner.NewCache(0, 0)

	p1, err := cache.Find(f.ctx, f.fmtA, f.fmtC)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	p2, err := cache.Find(f.ctx, f.fmtA, f.fmtC)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	if diff := cmp.Diff(names(p1.Steps), names(p2.Steps)); diff != "" {
		t.Fatalf("plan edge sequence changed across calls (-first +second):\n%s", diff)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected the cache to hold a single memoized plan for this pair, got %d", cache.Len())
	}
}

func TestCache_InvalidatedByNewRegistration(t *testing.T) {
	f := newFixture(t)
	cache := planner.NewCache(0, 0)

	if _, err := cache.Find(f.ctx, f.fmtA, f.fmtC); err != nil {
		t.Fatalf("Find: %v", err)
	}
	before := cache.Len()

	// A new registration bumps the generation; the next Find for the same
	// pair must not reuse the stale cached 2-step plan but replan and pick
	// up the new direct edge.
	f.ctx.NewConversion("a_to_c_direct", core.ModelToModel, f.modelA, f.modelC, noopKernel, 1)

	p, err := cache.Find(f.ctx, f.fmtA, f.fmtC)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(p.Steps) != 1 {
		t.Fatalf("expected the newly-registered direct edge to win now that it exists, got %d steps", len(p.Steps))
	}
	_ = before
}

// A cache bounded to one entry evicts the older pair once a second,
// distinct pair is planned, matching config.Config.PlanCacheSize.
func TestCache_EvictsOldestBeyondMaxSize(t *testing.T) {
	f := newFixture(t)
	cache := planner.NewCache(1, 0)

	if _, err := cache.Find(f.ctx, f.fmtA, f.fmtC); err != nil {
		t.Fatalf("Find: %v", err)
	}
	if _, err := cache.Find(f.ctx, f.fmtAU16, f.fmtC); err != nil {
		t.Fatalf("Find: %v", err)
	}

	if got := cache.Len(); got != 1 {
		t.Fatalf("expected the cache to stay capped at 1 entry, got %d", got)
	}
}

// A timeout too small to survive even the first loop iteration's own
// overhead makes the planner give up with ErrNoPath rather than returning
// a plan, matching config.Config.PlanTimeout's "bounds how long... may
// run" clause.
func TestFind_RespectsExpiredTimeout(t *testing.T) {
	f := newFixture(t)

	if _, err := planner.FindWithTimeout(f.ctx, f.fmtA, f.fmtC, time.Nanosecond); err == nil {
		t.Fatal("expected a near-zero timeout to fail the search")
	}
}

func names(steps []planner.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Conv.Name()
	}
	return out
}
