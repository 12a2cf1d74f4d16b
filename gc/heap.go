package gc

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"
)

// DefaultBlockSize is the smallest unit of heap allocation accounting,
// in bytes. It must be a power of two and at least the size of a
// pointer on the host platform.
const DefaultBlockSize = 16

// DefaultBuckets is the number of size buckets used for the allocator's
// per-size "first free" hints (first_free_atb[1..K]).
const DefaultBuckets = 4

// DefaultMarkStackSize is the fixed capacity of the mark engine's
// overflow-recoverable stack of block indices.
const DefaultMarkStackSize = 128

// Heap is a conservative, non-moving, mark-and-sweep collector over a
// single contiguous byte region supplied by the host. The zero value is
// not usable; construct one with New.
type Heap struct {
	mu sync.Mutex

	logger *slog.Logger
	host   Host

	blockSize  uintptr
	numBuckets int

	regionStart, regionEnd uintptr
	atb                    []byte
	ftb                    []byte // nil unless finalisers are enabled
	poolStart, poolEnd     uintptr
	numBlocks              block

	// Allocator hints: lower/upper bounds on where free space may exist,
	// never tightened incorrectly.
	firstFreeATB    []uintptr
	lastFreeATB     uintptr
	lowestLongLived uintptr

	lockDepth int
	autoGC    bool

	allocThreshold uintptr
	allocAmount    uintptr

	// Mark engine state, live only between collectStart and collectEnd.
	markStack     []block
	markStackLen  int
	stackOverflow bool

	permanentHead uintptr // address of the head permanent-registry block, 0 if empty

	initialized bool

	// Counters surfaced through Info.
	totalAllocBytes uint64
	mallocs         uint64
	frees           uint64
}

// Option configures a Heap at construction time.
type Option func(*Heap)

// WithBlockSize overrides DefaultBlockSize. size must be a power of two
// and at least unsafe.Sizeof(uintptr(0)).
func WithBlockSize(size uintptr) Option {
	return func(h *Heap) { h.blockSize = size }
}

// WithFinalizers enables the finaliser table (FTB). Without this
// option, HasFinalizer allocation requests are accepted but the
// finaliser bit is never stored or consulted at sweep.
func WithFinalizers() Option {
	return func(h *Heap) { h.ftb = []byte{} }
}

// WithBuckets overrides DefaultBuckets, the number of allocator
// size-class hints tracked in first_free_atb.
func WithBuckets(n int) Option {
	return func(h *Heap) { h.numBuckets = n }
}

// WithMarkStackSize overrides DefaultMarkStackSize.
func WithMarkStackSize(n int) Option {
	return func(h *Heap) { h.markStack = make([]block, n) }
}

// WithHost installs the interpreter callbacks used for finaliser
// dispatch, scheduler locking, and safe-mode abort.
func WithHost(host Host) Option {
	return func(h *Heap) { h.host = host }
}

// WithLogger installs a structured logger for GC trace events. A nil
// logger (the default) disables tracing entirely; no log call sits on
// the allocation hot path when logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Heap) { h.logger = logger }
}

// WithAllocThreshold enables threshold-triggered collection: once the
// number of bytes allocated since the last collection reaches
// threshold, the next Alloc call runs a collection before searching for
// free space.
func WithAllocThreshold(threshold uintptr) Option {
	return func(h *Heap) { h.allocThreshold = threshold }
}

// WithoutAutoCollect disables the allocator's automatic collect-and-retry
// on exhaustion; Alloc simply returns nil once no free run is found.
func WithoutAutoCollect() Option {
	return func(h *Heap) { h.autoGC = false }
}

// New installs a heap over region, which must remain valid and
// unreferenced by anything else for the lifetime of the Heap. region
// plays the role of an externally supplied [start, end) range.
func New(region []byte, opts ...Option) (*Heap, error) {
	if len(region) == 0 {
		return nil, fmt.Errorf("gc: region must be non-empty")
	}
	h := &Heap{
		blockSize:  DefaultBlockSize,
		numBuckets: DefaultBuckets,
		markStack:  make([]block, DefaultMarkStackSize),
		autoGC:     true,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.blockSize == 0 || h.blockSize&(h.blockSize-1) != 0 {
		return nil, fmt.Errorf("gc: block size %d is not a power of two", h.blockSize)
	}
	if h.blockSize < unsafe.Sizeof(uintptr(0)) {
		return nil, fmt.Errorf("gc: block size %d is smaller than a pointer", h.blockSize)
	}
	if h.numBuckets < 1 {
		return nil, fmt.Errorf("gc: need at least one allocator bucket")
	}
	if h.allocThreshold == 0 {
		h.allocThreshold = ^uintptr(0)
	}
	finalisersEnabled := h.ftb != nil

	start := uintptr(unsafe.Pointer(&region[0]))
	end := start + uintptr(len(region))
	h.init(start, end, finalisersEnabled)
	return h, nil
}

// init solves the heap layout and installs the ATB/FTB/pool.
func (h *Heap) init(start, end uintptr, finalisersEnabled bool) {
	// Step 1: align end down to a block boundary.
	end -= (end - start) % h.blockSize
	h.regionStart, h.regionEnd = start, end

	totalBytes := end - start

	// Step 2: solve for the largest ATB byte length A such that
	// A + F + P <= total, following T = A * (1 + BLOCKS_PER_ATB/BLOCKS_PER_FTB
	// + BLOCKS_PER_ATB*BYTES_PER_BLOCK) (only the FTB term appears when
	// finalisers are enabled).
	var atbLen uintptr
	if finalisersEnabled {
		denom := 8 + (8*blocksPerATBByte)/blocksPerFTBByte + 8*blocksPerATBByte*int(h.blockSize)
		atbLen = (totalBytes * 8) / uintptr(denom)
	} else {
		atbLen = totalBytes / (1 + blocksPerATBByte*h.blockSize)
	}

	var ftbLen uintptr
	if finalisersEnabled {
		ftbLen = (atbLen*blocksPerATBByte + blocksPerFTBByte - 1) / blocksPerFTBByte
	}

	// Step 3: place ATB at start, FTB right after, pool end-aligned at end.
	poolBlocks := atbLen * blocksPerATBByte
	poolBytes := poolBlocks * h.blockSize

	atbStart := start
	h.atb = unsafe.Slice((*byte)(unsafe.Pointer(atbStart)), int(atbLen))

	if finalisersEnabled {
		ftbStart := atbStart + atbLen
		h.ftb = unsafe.Slice((*byte)(unsafe.Pointer(ftbStart)), int(ftbLen))
	} else {
		h.ftb = nil
	}

	h.poolStart = end - poolBytes
	h.poolEnd = end
	h.numBlocks = block(poolBlocks)

	// Step 4: zero ATB and FTB.
	for i := range h.atb {
		h.atb[i] = 0
	}
	for i := range h.ftb {
		h.ftb[i] = 0
	}

	// Step 5: reset allocator hints.
	h.resetAllocHints()
	h.lowestLongLived = h.poolEnd

	// Step 6: lock depth 0, auto-collect enabled (unless the caller
	// opted out before New finished), permanent registry empty.
	h.lockDepth = 0
	h.allocAmount = 0
	h.permanentHead = 0
	h.markStackLen = 0
	h.stackOverflow = false
	h.initialized = true

	h.trace("init", slog.Uint64("pool_bytes", uint64(poolBytes)), slog.Uint64("blocks", uint64(poolBlocks)))
}

func (h *Heap) resetAllocHints() {
	if h.firstFreeATB == nil || len(h.firstFreeATB) != h.numBuckets {
		h.firstFreeATB = make([]uintptr, h.numBuckets)
	}
	for i := range h.firstFreeATB {
		h.firstFreeATB[i] = 0
	}
	if len(h.atb) == 0 {
		h.lastFreeATB = 0
	} else {
		h.lastFreeATB = uintptr(len(h.atb)) - 1
	}
}

// bucket returns the first_free_atb index for an allocation of
// nBlocks blocks: min(nBlocks, numBuckets) - 1.
func (h *Heap) bucket(nBlocks uintptr) int {
	if nBlocks > uintptr(h.numBuckets) {
		return h.numBuckets - 1
	}
	return int(nBlocks) - 1
}

func (h *Heap) trace(msg string, args ...any) {
	if h.logger == nil {
		return
	}
	h.logger.Debug(msg, args...)
}

// BlockSize returns the configured block size in bytes.
func (h *Heap) BlockSize() uintptr { return h.blockSize }

// Deinit runs finalisers on every live object (as if by SweepAll) and
// invalidates the heap. Further calls to Alloc trigger SafeModeAborter.
func (h *Heap) Deinit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sweepAllLocked()
	h.initialized = false
}
