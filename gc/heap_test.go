package gc_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nm3210/mpgc/gc"
)

func newHeap(t *testing.T, size int) *gc.Heap {
	t.Helper()
	region := make([]byte, size)
	h, err := gc.New(region, gc.WithFinalizers())
	require.NoError(t, err)
	return h
}

func TestNewRejectsEmptyRegion(t *testing.T) {
	_, err := gc.New(nil)
	assert.Error(t, err)
}

func TestAllocZeroBytesReturnsNil(t *testing.T) {
	h := newHeap(t, 4096)
	assert.Nil(t, h.Alloc(0, 0, false))
}

func TestAllocReturnsDistinctNonOverlappingRegions(t *testing.T) {
	h := newHeap(t, 4096)
	a := h.Alloc(32, 0, false)
	b := h.Alloc(32, 0, false)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotEqual(t, a, b)
	assert.EqualValues(t, 32, h.NBytes(a))
	assert.EqualValues(t, 32, h.NBytes(b))
}

func TestAllocOnFreshHeapReturnsZeroedMemory(t *testing.T) {
	h := newHeap(t, 4096)
	ptr := h.Alloc(64, 0, false)
	require.NotNil(t, ptr)
	buf := unsafe.Slice((*byte)(ptr), 64)
	for i, v := range buf {
		assert.Zerof(t, v, "byte %d not zeroed", i)
	}
}

func TestUnreachableObjectIsReclaimedOnCollect(t *testing.T) {
	h := newHeap(t, 4096)
	ptr := h.Alloc(32, 0, false)
	require.NotNil(t, ptr)
	require.EqualValues(t, 32, h.NBytes(ptr))

	// Nothing roots ptr: no host, no registry entry, no explicit
	// CollectRoot call. A bare Collect must reclaim it.
	h.Collect()

	assert.Zero(t, h.NBytes(ptr), "unreachable object survived a collection")
}

func TestCollectRootKeepsObjectAlive(t *testing.T) {
	h := newHeap(t, 4096)
	ptr := h.Alloc(32, 0, false)
	require.NotNil(t, ptr)

	h.CollectStart()
	h.CollectRoot([]uintptr{uintptr(ptr)})
	h.CollectEnd()

	assert.EqualValues(t, 32, h.NBytes(ptr), "rooted object was reclaimed")
}

func TestCollectFollowsPointerChains(t *testing.T) {
	h := newHeap(t, 4096)

	// tail <- mid <- head, linked via the first pointer-sized word of
	// each block. Only head is rooted explicitly.
	tail := h.Alloc(unsafe.Sizeof(uintptr(0)), 0, false)
	mid := h.Alloc(unsafe.Sizeof(uintptr(0)), 0, false)
	head := h.Alloc(unsafe.Sizeof(uintptr(0)), 0, false)
	require.NotNil(t, tail)
	require.NotNil(t, mid)
	require.NotNil(t, head)

	*(*uintptr)(mid) = uintptr(tail)
	*(*uintptr)(head) = uintptr(mid)

	h.CollectStart()
	h.CollectPtr(uintptr(head))
	h.CollectEnd()

	assert.NotZero(t, h.NBytes(head))
	assert.NotZero(t, h.NBytes(mid))
	assert.NotZero(t, h.NBytes(tail), "transitively reachable object was reclaimed")
}

type finalizeRecorder struct {
	finalized []unsafe.Pointer
}

func (f *finalizeRecorder) Finalize(obj unsafe.Pointer) {
	f.finalized = append(f.finalized, obj)
}

func TestFinalizerFiresExactlyOnceOnCollect(t *testing.T) {
	rec := &finalizeRecorder{}
	region := make([]byte, 4096)
	h, err := gc.New(region, gc.WithFinalizers(), gc.WithHost(rec))
	require.NoError(t, err)

	ptr := h.Alloc(32, gc.HasFinalizer, false)
	require.NotNil(t, ptr)
	// A non-null type tag is required for sweepHead to dispatch.
	*(*uintptr)(ptr) = 1

	require.True(t, h.HasFinalizer(ptr))

	h.Collect()
	assert.Len(t, rec.finalized, 1)

	h.Collect()
	assert.Len(t, rec.finalized, 1, "finalizer ran more than once")
}

func TestFreeReclaimsImmediately(t *testing.T) {
	h := newHeap(t, 4096)
	ptr := h.Alloc(48, 0, false)
	require.NotNil(t, ptr)
	h.Free(ptr)
	assert.Zero(t, h.NBytes(ptr))
}

func TestFreeOfForeignPointerIsNoOp(t *testing.T) {
	h := newHeap(t, 4096)
	var x int
	assert.NotPanics(t, func() { h.Free(unsafe.Pointer(&x)) })
}

func TestMakeLongLivedReturnsLiveObjectOfSameSize(t *testing.T) {
	h := newHeap(t, 8192)
	ptr := h.Alloc(32, 0, false)
	require.NotNil(t, ptr)

	moved := h.MakeLongLived(ptr)
	require.NotNil(t, moved)
	assert.EqualValues(t, 32, h.NBytes(moved))
}

func TestMakeLongLivedIsIdempotent(t *testing.T) {
	h := newHeap(t, 8192)
	ptr := h.Alloc(32, 0, false)
	require.NotNil(t, ptr)

	once := h.MakeLongLived(ptr)
	twice := h.MakeLongLived(once)
	assert.Equal(t, once, twice)
}

func TestReallocGrowsInPlaceWhenRoomFollows(t *testing.T) {
	h := newHeap(t, 4096)
	ptr := h.Alloc(16, 0, false)
	require.NotNil(t, ptr)

	grown := h.Realloc(ptr, 32, true)
	require.NotNil(t, grown)
	assert.Equal(t, ptr, grown, "grow-in-place should not move the object")
	assert.EqualValues(t, 32, h.NBytes(grown))
}

func TestReallocMovesWhenNoRoomAndAllowed(t *testing.T) {
	h := newHeap(t, 4096)
	ptr := h.Alloc(16, 0, false)
	require.NotNil(t, ptr)
	// Wedge an allocation directly after ptr's block so grow-in-place
	// has nowhere to go.
	blocker := h.Alloc(16, 0, false)
	require.NotNil(t, blocker)

	moved := h.Realloc(ptr, 32, true)
	require.NotNil(t, moved)
	assert.NotEqual(t, ptr, moved)
	assert.EqualValues(t, 32, h.NBytes(moved))
}

func TestReallocReturnsNilWhenMoveDisallowed(t *testing.T) {
	h := newHeap(t, 4096)
	ptr := h.Alloc(16, 0, false)
	require.NotNil(t, ptr)
	blocker := h.Alloc(16, 0, false)
	require.NotNil(t, blocker)

	assert.Nil(t, h.Realloc(ptr, 4000, false))
	// The original allocation must be untouched.
	assert.EqualValues(t, 16, h.NBytes(ptr))
}

func TestReallocToZeroFrees(t *testing.T) {
	h := newHeap(t, 4096)
	ptr := h.Alloc(16, 0, false)
	require.NotNil(t, ptr)
	assert.Nil(t, h.Realloc(ptr, 0, true))
	assert.Zero(t, h.NBytes(ptr))
}

func TestNeverFreeSurvivesCollectionWithNoExplicitRoot(t *testing.T) {
	h := newHeap(t, 4096)
	ptr := h.Alloc(32, 0, false)
	require.NotNil(t, ptr)

	require.True(t, h.NeverFree(ptr))

	h.Collect()
	assert.EqualValues(t, 32, h.NBytes(ptr), "never_free pointer was reclaimed")
}

func TestNeverFreeRejectsInvalidPointer(t *testing.T) {
	h := newHeap(t, 4096)
	var x int
	assert.False(t, h.NeverFree(unsafe.Pointer(&x)))
}

func TestNeverFreeAcrossManyRegistryNodes(t *testing.T) {
	h := newHeap(t, 1<<16)
	const n = 200
	ptrs := make([]unsafe.Pointer, n)
	for i := range ptrs {
		p := h.Alloc(16, 0, false)
		require.NotNil(t, p)
		require.True(t, h.NeverFree(p))
		ptrs[i] = p
	}

	h.Collect()

	for i, p := range ptrs {
		assert.NotZerof(t, h.NBytes(p), "permanent pointer %d reclaimed", i)
	}
}

func TestMarkStackOverflowRecoversLongChain(t *testing.T) {
	region := make([]byte, 1<<20)
	h, err := gc.New(region, gc.WithMarkStackSize(4))
	require.NoError(t, err)

	const chainLen = 1024
	var head unsafe.Pointer
	prev := unsafe.Pointer(nil)
	var prevPrev unsafe.Pointer
	for i := 0; i < chainLen; i++ {
		node := h.Alloc(2*unsafe.Sizeof(uintptr(0)), 0, false)
		require.NotNil(t, node)
		if prev != nil {
			*(*uintptr)(node) = uintptr(prev)
		}
		// A second link, two nodes back, gives every node two unmarked
		// children, so the mark stack grows by one entry per node and
		// overflows its capacity of 4.
		if prevPrev != nil {
			*(*uintptr)(unsafe.Add(node, unsafe.Sizeof(uintptr(0)))) = uintptr(prevPrev)
		}
		prevPrev = prev
		prev = node
		if i == chainLen-1 {
			head = node
		}
	}

	h.CollectStart()
	h.CollectPtr(uintptr(head))
	h.CollectEnd()

	// Walk the whole chain back down from head; every link must have
	// survived even though the mark stack capacity (4) is far smaller
	// than the chain length.
	cur := head
	for i := 0; i < chainLen; i++ {
		require.NotZerof(t, h.NBytes(cur), "chain link %d lost after overflow recovery", i)
		next := *(*uintptr)(cur)
		if next == 0 {
			break
		}
		cur = unsafe.Pointer(next)
	}
}

func TestInfoReportsUsedAndFreeBytes(t *testing.T) {
	h := newHeap(t, 4096)
	before := h.Info()
	assert.Zero(t, before.UsedBytes)

	ptr := h.Alloc(64, 0, false)
	require.NotNil(t, ptr)

	after := h.Info()
	assert.Greater(t, after.UsedBytes, before.UsedBytes)
	assert.Equal(t, before.TotalBytes, after.TotalBytes)
	assert.EqualValues(t, 1, after.Mallocs)
}

func TestDumpRendersOneGlyphPerBlock(t *testing.T) {
	h := newHeap(t, 4096)
	before := h.Dump()
	assert.NotContains(t, before, "*")

	ptr := h.Alloc(16, 0, false)
	require.NotNil(t, ptr)
	after := h.Dump()
	assert.Contains(t, after, "*")
}

func TestLockPreventsAllocation(t *testing.T) {
	h := newHeap(t, 4096)
	h.Lock()
	defer h.Unlock()
	assert.True(t, h.IsLocked())
	assert.Nil(t, h.Alloc(16, 0, false))
}
