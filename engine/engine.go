// Package engine executes a planner.Plan over a pixel run, calling each
// leaf kernel in sequence and managing the ping-pong intermediate buffers
// between steps (spec.md §4.5).
package engine

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/kolbrek/fish/config"
	"github.com/kolbrek/fish/core"
	apperrors "github.com/kolbrek/fish/errors"
	"github.com/kolbrek/fish/planner"
)

// Engine runs Plans. It is safe for concurrent use: distinct Process calls
// on distinct Plans never share scratch state, and concurrent calls on the
// *same* Plan each get their own buffer pair drawn from a per-plan free
// list (spec.md §5's "intermediate buffers owned per (plan, thread)"
// requirement). Buffers are allocated and freed through an AllocStats so
// a caller with custom Alloc/Free hooks (config.Config.Alloc/Free) sees
// every scratch allocation the engine makes, and Close reports back
// whatever it is still holding.
type Engine struct {
	cfg   config.Config
	alloc *core.AllocStats

	mu    sync.RWMutex
	pools map[*planner.Plan]*scratchPool
}

// New returns an Engine configured with the given batch size.
func New(cfg config.Config) *Engine {
	return &Engine{
		cfg:   cfg,
		alloc: core.NewAllocStats(cfg.Alloc, cfg.Free, cfg.FatalOnImbalance, cfg.Fatal),
		pools: make(map[*planner.Plan]*scratchPool),
	}
}

// AllocStats returns the running allocate/free counts for this Engine's
// scratch buffers.
func (e *Engine) AllocStats() (allocs, frees int64) {
	return e.alloc.Snapshot()
}

// Close frees every scratch buffer this Engine is currently holding idle.
// Buffers checked out by an in-flight Process call are unaffected; this is
// meant to run after all callers have stopped using the Engine.
func (e *Engine) Close() {
	e.mu.Lock()
	pools := make([]*scratchPool, 0, len(e.pools))
	for _, pool := range e.pools {
		pools = append(pools, pool)
	}
	e.pools = make(map[*planner.Plan]*scratchPool)
	e.mu.Unlock()

	for _, pool := range pools {
		pool.close()
	}
}

type scratchPair struct {
	a, b []byte
}

// scratchPool is a per-plan free list of scratchPairs, backed by an
// AllocStats instead of sync.Pool so Close can deterministically account
// for and release every buffer it handed out. A pair's buffers grow in
// place (rather than being discarded and reallocated) when a later get
// asks for more than they currently hold — a planar Plan forces Process
// to run the whole run as a single batch (see Process), so the size a
// pair needs varies with n across calls on the same Plan instead of
// staying fixed at cfg.BatchSize.
type scratchPool struct {
	mu    sync.Mutex
	free  []*scratchPair
	alloc *core.AllocStats
}

// get draws a scratchPair from the free list, growing it if it's smaller
// than want, or allocates a fresh pair through the pool's AllocStats. A
// custom config.Config.Alloc hook returning nil (simulating exhaustion)
// surfaces as a retryable apperrors.Transient rather than panicking inside
// unsafe.Slice.
func (p *scratchPool) get(want int) (*scratchPair, error) {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		pair := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		if err := p.growToFit(pair, want); err != nil {
			return nil, err
		}
		return pair, nil
	}
	p.mu.Unlock()

	a := p.alloc.Alloc(want)
	if a == nil {
		return nil, apperrors.Transient("engine.scratchAlloc", apperrors.ErrAllocFailed)
	}
	// b starts as a duplicate of a's freshly-zeroed bytes rather than a
	// second independent Alloc call, so both ping-pong buffers come from
	// the same allocator round trip.
	b := p.alloc.Dup(a, want)
	if b == nil {
		p.alloc.Free(a, want)
		return nil, apperrors.Transient("engine.scratchAlloc", apperrors.ErrAllocFailed)
	}
	return &scratchPair{
		a: unsafe.Slice((*byte)(a), want),
		b: unsafe.Slice((*byte)(b), want),
	}, nil
}

// growToFit resizes pair's buffers up to want bytes via AllocStats.Grow
// when they're currently smaller. Scratch buffers never carry state
// between batches, so the bytes Grow preserves are never read back; Grow
// is still the allocator's only resize primitive, so this pays for a copy
// it doesn't need rather than hand-rolling a second realloc path.
func (p *scratchPool) growToFit(pair *scratchPair, want int) error {
	if len(pair.a) < want {
		grown := p.alloc.Grow(unsafe.Pointer(&pair.a[0]), len(pair.a), want)
		if grown == nil {
			return apperrors.Transient("engine.scratchGrow", apperrors.ErrAllocFailed)
		}
		pair.a = unsafe.Slice((*byte)(grown), want)
	}
	if len(pair.b) < want {
		grown := p.alloc.Grow(unsafe.Pointer(&pair.b[0]), len(pair.b), want)
		if grown == nil {
			return apperrors.Transient("engine.scratchGrow", apperrors.ErrAllocFailed)
		}
		pair.b = unsafe.Slice((*byte)(grown), want)
	}
	return nil
}

func (p *scratchPool) put(pair *scratchPair) {
	p.mu.Lock()
	p.free = append(p.free, pair)
	p.mu.Unlock()
}

func (p *scratchPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pair := range p.free {
		p.alloc.Free(unsafe.Pointer(&pair.a[0]), len(pair.a))
		p.alloc.Free(unsafe.Pointer(&pair.b[0]), len(pair.b))
	}
	p.free = nil
}

func (e *Engine) poolFor(p *planner.Plan) *scratchPool {
	e.mu.RLock()
	pool, ok := e.pools[p]
	e.mu.RUnlock()
	if ok {
		return pool
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if pool, ok = e.pools[p]; ok {
		return pool
	}
	pool = &scratchPool{alloc: e.alloc}
	e.pools[p] = pool
	return pool
}

// Process converts n pixels from src (laid out as plan.Src) into dst
// (laid out as plan.Dst), batching the run in chunks of at most
// cfg.BatchSize pixels through the plan's steps (a single batch of all n
// pixels when either end is planar). It returns the number of
// pixels actually written, which may be less than n if a leaf kernel short
// wrote (spec.md §4.6/§7 KernelShortWrite) — that is reported through this
// return value alone, never as an error.
func (e *Engine) Process(plan *planner.Plan, src, dst []byte, n int) (int, error) {
	if n < 0 {
		return 0, apperrors.New(apperrors.CategoryExecution, "process", fmt.Errorf("negative pixel count %d", n))
	}
	if n == 0 {
		return 0, nil
	}
	if err := checkBufferSize(src, plan.Src.BytesPerPixel, n, "src"); err != nil {
		return 0, err
	}
	if err := checkBufferSize(dst, plan.Dst.BytesPerPixel, n, "dst"); err != nil {
		return 0, err
	}

	if len(plan.Steps) == 0 {
		// Identity plan: src and dst share a format, spec.md §4.2's
		// "trivial identity conversion" — a straight copy.
		want := n * plan.Src.BytesPerPixel
		copy(dst[:want], src[:want])
		return n, nil
	}

	batch := e.cfg.BatchSize
	if batch <= 0 {
		batch = 2048
	}
	if plan.Src.Layout == core.LayoutPlanar || plan.Dst.Layout == core.LayoutPlanar {
		// A planar Format's channels are each one contiguous n-element run,
		// so src[start*BytesPerPixel:] only lines up with a real sub-buffer
		// of `batch` pixels when start == 0. Run the whole thing as one
		// batch instead of slicing mid-stream.
		batch = n
	}

	var pair *scratchPair
	needsScratch := len(plan.Steps) > 1
	if needsScratch {
		pool := e.poolFor(plan)
		var err error
		pair, err = pool.get(batch * plan.MaxStride())
		if err != nil {
			return 0, err
		}
		defer pool.put(pair)
	}

	total := 0
	for start := 0; start < n; start += batch {
		count := batch
		if start+count > n {
			count = n - start
		}

		srcOff := start * plan.Src.BytesPerPixel
		dstOff := start * plan.Dst.BytesPerPixel
		processed := e.runBatch(plan, src[srcOff:], dst[dstOff:], pair, count)
		total += processed
		if processed < count {
			break // short write: stop early, as the kernel signaled it couldn't keep up
		}
	}
	if total > n {
		total = n
	}
	return total, nil
}

// runBatch pushes up to count pixels through every step of plan, ping-
// ponging between the two pooled scratch buffers for intermediate steps.
func (e *Engine) runBatch(plan *planner.Plan, src, dst []byte, pair *scratchPair, count int) int {
	cur := src
	var bufs [2][]byte
	if pair != nil {
		bufs = [2][]byte{pair.a, pair.b}
	}
	nextIdx := 0

	processed := count
	for i, step := range plan.Steps {
		last := i == len(plan.Steps)-1
		var out []byte
		if last {
			out = dst
		} else {
			out = bufs[nextIdx]
			nextIdx = 1 - nextIdx
		}

		processed = runStep(step, cur, out, processed)
		cur = out
		if processed <= 0 {
			break
		}
	}
	return processed
}

func runStep(step planner.Step, src, dst []byte, count int) int {
	srcPtr := unsafe.Pointer(&src[0])
	dstPtr := unsafe.Pointer(&dst[0])

	switch step.Kind {
	case planner.StepType:
		got := count
		for ch := 0; ch < step.NumComponents; ch++ {
			chSrc, srcStride := channelAddr(srcPtr, step.SrcPlanar, step.SrcElemSize, step.SrcStride, ch, count)
			chDst, dstStride := channelAddr(dstPtr, step.DstPlanar, step.DstElemSize, step.DstStride, ch, count)
			n := step.Conv.Fn(chSrc, chDst, srcStride, dstStride, count)
			if n < got {
				got = n
			}
		}
		return got
	default: // StepModel, StepShortcut: one call addressing whole pixels
		return step.Conv.Fn(srcPtr, dstPtr, step.SrcStride, step.DstStride, count)
	}
}

// channelAddr locates channel ch's samples within a StepType buffer and
// returns the pitch between consecutive samples of that channel.
// Interleaved buffers pack channels elemSize apart within each pixel, with
// the full per-pixel stride between samples. Planar buffers instead give
// each channel its own contiguous count-element run, addressed with
// core.Row the same way a kernel would address a decoded image's scanline,
// with the per-sample pitch collapsing to elemSize.
func channelAddr(base unsafe.Pointer, planar bool, elemSize, pixelStride, ch, count int) (unsafe.Pointer, int) {
	if !planar {
		return unsafe.Add(base, ch*elemSize), pixelStride
	}
	planeWidth := count * elemSize
	if !core.Contiguous(planeWidth, elemSize, count) {
		panic("engine: planar channel plane is not contiguous")
	}
	plane := core.Row(base, planeWidth, ch, planeWidth)
	return unsafe.Pointer(&plane[0]), elemSize
}

func checkBufferSize(buf []byte, bytesPerPixel, n int, which string) error {
	need := bytesPerPixel * n
	if len(buf) < need {
		return apperrors.New(apperrors.CategoryExecution, "process",
			fmt.Errorf("%s buffer too small: need %d bytes for %d pixels, got %d", which, need, n, len(buf)))
	}
	return nil
}
