package engine_test

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"unsafe"

	"github.com/kolbrek/fish/config"
	"github.com/kolbrek/fish/core"
	"github.com/kolbrek/fish/engine"
	apperrors "github.com/kolbrek/fish/errors"
	"github.com/kolbrek/fish/planner"
)

// ── Test kernels ──────────────────────────────────────────────────────────────

func u8ToDouble(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		u := *(*uint8)(unsafe.Add(src, i*srcPitch))
		*(*float64)(unsafe.Add(dst, i*dstPitch)) = float64(u) / 255
	}
	return n
}

func doubleToU8(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
	for i := 0; i < n; i++ {
		d := *(*float64)(unsafe.Add(src, i*srcPitch))
		if d < 0 {
			d = 0
		}
		if d > 1 {
			d = 1
		}
		*(*uint8)(unsafe.Add(dst, i*dstPitch)) = uint8(math.Round(d * 255))
	}
	return n
}

// ── Fixture ───────────────────────────────────────────────────────────────────

func newFixture(t *testing.T) (*core.Context, *core.Format, *core.Format) {
	t.Helper()
	var fatalErr error
	ctx := core.NewContext(func(err error) { fatalErr = err })
	t.Cleanup(func() {
		if fatalErr != nil {
			t.Fatalf("unexpected fatal registration error: %v", fatalErr)
		}
	})

	u8T := ctx.NewType("u8", core.TypeAttrs{BitWidth: 8, MaxValue: 255, MaxMeaningful: 1})
	doubleT := ctx.NewType("double", core.TypeAttrs{BitWidth: 64, IsFloating: true, MinValue: -1e300, MaxValue: 1e300, MinMeaningful: 0, MaxMeaningful: 1})
	ctx.NewConversion("u8_to_double", core.TypeToType, u8T, doubleT, u8ToDouble, 1)
	ctx.NewConversion("double_to_u8", core.TypeToType, doubleT, u8T, doubleToU8, 1)

	x := ctx.NewComponent("X", 0)
	gray := ctx.NewModel("Gray", []*core.Component{x}, true)

	fmtU8 := ctx.NewFormat("Gray_u8", core.FormatAttrs{Model: gray, Type: u8T, Components: []*core.Component{x}})
	fmtDouble := ctx.NewFormat("Gray_double", core.FormatAttrs{Model: gray, Type: doubleT, Components: []*core.Component{x}, Reference: true})

	return ctx, fmtU8, fmtDouble
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestProcess_IdentityPlanCopiesBytes(t *testing.T) {
	ctx, fmtU8, _ := newFixture(t)
	plan, err := planner.Find(ctx, fmtU8, fmtU8)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	e := engine.New(config.Default())
	src := []byte{10, 20, 30, 40}
	dst := make([]byte, 4)
	n, err := e.Process(plan, src, dst, 4)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n != 4 {
		t.Fatalf("processed = %d, want 4", n)
	}
	for i := range src {
		if src[i] != dst[i] {
			t.Fatalf("dst[%d] = %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestProcess_U8ToDoubleRoundTrip(t *testing.T) {
	ctx, fmtU8, fmtDouble := newFixture(t)
	toDouble, err := planner.Find(ctx, fmtU8, fmtDouble)
	if err != nil {
		t.Fatalf("Find u8->double: %v", err)
	}
	toU8, err := planner.Find(ctx, fmtDouble, fmtU8)
	if err != nil {
		t.Fatalf("Find double->u8: %v", err)
	}

	e := engine.New(config.Default())
	src := []byte{0, 128, 255}
	mid := make([]byte, 3*8)
	if _, err := e.Process(toDouble, src, mid, 3); err != nil {
		t.Fatalf("Process (to double): %v", err)
	}

	back := make([]byte, 3)
	n, err := e.Process(toU8, mid, back, 3)
	if err != nil {
		t.Fatalf("Process (to u8): %v", err)
	}
	if n != 3 {
		t.Fatalf("processed = %d, want 3", n)
	}
	for i, want := range src {
		if back[i] != want {
			t.Errorf("round-trip[%d] = %d, want %d", i, back[i], want)
		}
	}
}

func TestProcess_BatchesAcrossMultipleChunks(t *testing.T) {
	ctx, fmtU8, fmtDouble := newFixture(t)
	plan, err := planner.Find(ctx, fmtU8, fmtDouble)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	cfg := config.Default()
	cfg.BatchSize = 4 // force several batches for an n well beyond one batch
	e := engine.New(cfg)

	const n = 17
	src := make([]byte, n)
	for i := range src {
		src[i] = byte(i * 10 % 256)
	}
	dst := make([]byte, n*8)

	processed, err := e.Process(plan, src, dst, n)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if processed != n {
		t.Fatalf("processed = %d, want %d", processed, n)
	}
	for i := 0; i < n; i++ {
		got := *(*float64)(unsafe.Pointer(&dst[i*8]))
		want := float64(src[i]) / 255
		if got != want {
			t.Errorf("pixel %d: got %v, want %v", i, got, want)
		}
	}
}

// ── Isolation (spec.md §8 invariant 5) ────────────────────────────────────────

func TestProcess_ConcurrentCallsOnDistinctPlansAreIsolated(t *testing.T) {
	ctx, fmtU8, fmtDouble := newFixture(t)
	planAB, err := planner.Find(ctx, fmtU8, fmtDouble)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	planBA, err := planner.Find(ctx, fmtDouble, fmtU8)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	cfg := config.Default()
	cfg.BatchSize = 8
	e := engine.New(cfg)

	const goroutines = 32
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			if g%2 == 0 {
				src := []byte{byte(g), byte(g * 2 % 256), byte(g * 3 % 256)}
				dst := make([]byte, 3*8)
				n, err := e.Process(planAB, src, dst, 3)
				if err != nil {
					errs <- err
					return
				}
				if n != 3 {
					errs <- fmt.Errorf("processed = %d, want 3", n)
					return
				}
				for i, want := range src {
					got := *(*float64)(unsafe.Pointer(&dst[i*8]))
					if got != float64(want)/255 {
						errs <- fmt.Errorf("pixel %d: got %v, want %v", i, got, float64(want)/255)
						return
					}
				}
			} else {
				src := make([]byte, 3*8)
				for i := range 3 {
					*(*float64)(unsafe.Pointer(&src[i*8])) = float64(i) / 2
				}
				dst := make([]byte, 3)
				if _, err := e.Process(planBA, src, dst, 3); err != nil {
					errs <- err
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// ── Scratch allocation failure (spec.md §7 ErrAllocFailed) ────────────────────

// A plan with two TypeToType edges in its legA (no direct u8<->double edge,
// only via an intermediate u16 type) needs ping-pong scratch, so this
// exercises the scratchPool.get allocation path the other fixtures' single-
// edge plans never touch.
func twoStepFixture(t *testing.T) (*core.Context, *core.Format, *core.Format) {
	t.Helper()
	var fatalErr error
	ctx := core.NewContext(func(err error) { fatalErr = err })
	t.Cleanup(func() {
		if fatalErr != nil {
			t.Fatalf("unexpected fatal registration error: %v", fatalErr)
		}
	})

	u8T := ctx.NewType("u8", core.TypeAttrs{BitWidth: 8, MaxValue: 255, MaxMeaningful: 1})
	u16T := ctx.NewType("u16", core.TypeAttrs{BitWidth: 16, MaxValue: 0xffff, MaxMeaningful: 1})
	doubleT := ctx.NewType("double", core.TypeAttrs{BitWidth: 64, IsFloating: true, MinValue: -1e300, MaxValue: 1e300, MinMeaningful: 0, MaxMeaningful: 1})
	ctx.NewConversion("u8_to_u16", core.TypeToType, u8T, u16T, func(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
		for i := 0; i < n; i++ {
			u := *(*uint8)(unsafe.Add(src, i*srcPitch))
			*(*uint16)(unsafe.Add(dst, i*dstPitch)) = uint16(u) << 8
		}
		return n
	}, 1)
	ctx.NewConversion("u16_to_double", core.TypeToType, u16T, doubleT, func(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
		for i := 0; i < n; i++ {
			u := *(*uint16)(unsafe.Add(src, i*srcPitch))
			*(*float64)(unsafe.Add(dst, i*dstPitch)) = float64(u) / 0xffff
		}
		return n
	}, 1)

	x := ctx.NewComponent("X", 0)
	gray := ctx.NewModel("Gray", []*core.Component{x}, true)
	fmtU8 := ctx.NewFormat("Gray_u8", core.FormatAttrs{Model: gray, Type: u8T, Components: []*core.Component{x}})
	fmtDouble := ctx.NewFormat("Gray_double", core.FormatAttrs{Model: gray, Type: doubleT, Components: []*core.Component{x}, Reference: true})
	return ctx, fmtU8, fmtDouble
}

func TestProcess_AllocFailureSurfacesAsTransientError(t *testing.T) {
	ctx, fmtU8, fmtDouble := twoStepFixture(t)
	plan, err := planner.Find(ctx, fmtU8, fmtDouble)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(plan.Steps) < 2 {
		t.Fatalf("expected a two-step plan needing scratch, got %d steps", len(plan.Steps))
	}

	cfg := config.Default()
	cfg.Alloc = func(size int) unsafe.Pointer { return nil } // simulate exhaustion
	cfg.Free = func(unsafe.Pointer, int) {}
	e := engine.New(cfg)

	src := []byte{10, 20, 30}
	dst := make([]byte, 3*8)
	if _, err := e.Process(plan, src, dst, 3); err == nil {
		t.Fatal("expected a nil Alloc result to surface as an error, not panic")
	} else if !apperrors.IsRetryable(err) {
		t.Errorf("expected a retryable (CategoryTransient) error, got %v", err)
	}
}

// twoStepPlanarFixture is twoStepFixture with its u8 Format registered
// planar, so Process forces batch = n (see Process's LayoutPlanar check)
// instead of capping at cfg.BatchSize — successive calls with a growing n
// then ask the plan's scratchPool for an ever-larger buffer out of the same
// pooled pair.
func twoStepPlanarFixture(t *testing.T) (*core.Context, *core.Format, *core.Format) {
	t.Helper()
	var fatalErr error
	ctx := core.NewContext(func(err error) { fatalErr = err })
	t.Cleanup(func() {
		if fatalErr != nil {
			t.Fatalf("unexpected fatal registration error: %v", fatalErr)
		}
	})

	u8T := ctx.NewType("u8", core.TypeAttrs{BitWidth: 8, MaxValue: 255, MaxMeaningful: 1})
	u16T := ctx.NewType("u16", core.TypeAttrs{BitWidth: 16, MaxValue: 0xffff, MaxMeaningful: 1})
	doubleT := ctx.NewType("double", core.TypeAttrs{BitWidth: 64, IsFloating: true, MinValue: -1e300, MaxValue: 1e300, MinMeaningful: 0, MaxMeaningful: 1})
	ctx.NewConversion("u8_to_u16", core.TypeToType, u8T, u16T, func(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
		for i := 0; i < n; i++ {
			u := *(*uint8)(unsafe.Add(src, i*srcPitch))
			*(*uint16)(unsafe.Add(dst, i*dstPitch)) = uint16(u) << 8
		}
		return n
	}, 1)
	ctx.NewConversion("u16_to_double", core.TypeToType, u16T, doubleT, func(src, dst unsafe.Pointer, srcPitch, dstPitch, n int) int {
		for i := 0; i < n; i++ {
			u := *(*uint16)(unsafe.Add(src, i*srcPitch))
			*(*float64)(unsafe.Add(dst, i*dstPitch)) = float64(u) / 0xffff
		}
		return n
	}, 1)

	x := ctx.NewComponent("X", 0)
	gray := ctx.NewModel("Gray", []*core.Component{x}, true)
	fmtU8 := ctx.NewPlanarFormat("Gray_u8_planar", core.FormatAttrs{Model: gray, Type: u8T, Components: []*core.Component{x}})
	fmtDouble := ctx.NewFormat("Gray_double", core.FormatAttrs{Model: gray, Type: doubleT, Components: []*core.Component{x}, Reference: true})
	return ctx, fmtU8, fmtDouble
}

func TestProcess_ScratchPoolGrowsAcrossLargerRebatches(t *testing.T) {
	ctx, fmtU8, fmtDouble := twoStepPlanarFixture(t)
	plan, err := planner.Find(ctx, fmtU8, fmtDouble)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(plan.Steps) < 2 {
		t.Fatalf("expected a two-step plan needing scratch, got %d steps", len(plan.Steps))
	}

	e := engine.New(config.Default())

	small := []byte{0, 128}
	smallDst := make([]byte, 2*8)
	if n, err := e.Process(plan, small, smallDst, 2); err != nil || n != 2 {
		t.Fatalf("Process(small): n=%d err=%v", n, err)
	}

	const big = 64
	large := make([]byte, big)
	for i := range large {
		large[i] = byte(i * 3 % 256)
	}
	largeDst := make([]byte, big*8)
	n, err := e.Process(plan, large, largeDst, big)
	if err != nil {
		t.Fatalf("Process(large): %v", err)
	}
	if n != big {
		t.Fatalf("processed = %d, want %d", n, big)
	}
	for i := 0; i < big; i++ {
		got := *(*float64)(unsafe.Pointer(&largeDst[i*8]))
		want := float64(uint16(large[i])<<8) / 0xffff
		if got != want {
			t.Errorf("pixel %d: got %v, want %v", i, got, want)
		}
	}
}
