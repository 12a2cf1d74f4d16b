package gc

import "unsafe"

// Free reclaims the object at ptr immediately, without waiting for a
// collection. It is a silent no-op if the heap is locked or ptr is not
// a live HEAD pointer — free never reports errors.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.freeLocked(ptr)
}

func (h *Heap) freeLocked(ptr unsafe.Pointer) {
	if h.lockDepth > 0 {
		return
	}
	addr := uintptr(ptr)
	if !h.verifyPointer(addr) {
		return
	}
	startBlock := h.blockFromAddr(addr)
	if h.blockState(startBlock) != stateHead {
		return
	}
	h.clearFinalizerBit(startBlock)

	b := startBlock
	h.anyToFree(b)
	b++
	for b < h.numBlocks && h.blockState(b) == stateTail {
		h.anyToFree(b)
		b++
	}
	nBlocks := uintptr(b - startBlock)

	bucket := h.bucket(nBlocks)
	newFreeATB := uintptr(startBlock) / blocksPerATBByte
	if newFreeATB < h.firstFreeATB[bucket] {
		h.firstFreeATB[bucket] = newFreeATB
	}
	if newFreeATB > h.lastFreeATB {
		h.lastFreeATB = newFreeATB
	}
	h.frees++
	h.trace("free")
}
