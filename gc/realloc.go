package gc

import "unsafe"

// Realloc grows, shrinks, or moves ptr's allocation to hold nBytes. A nil ptr delegates to Alloc; a zero
// nBytes delegates to Free and returns nil. When the object cannot be
// resized in place and allowMove is false, Realloc returns nil without
// touching the original allocation.
func (h *Heap) Realloc(ptr unsafe.Pointer, nBytes uintptr, allowMove bool) unsafe.Pointer {
	if ptr == nil {
		return h.Alloc(nBytes, 0, false)
	}
	if nBytes == 0 {
		h.Free(ptr)
		return nil
	}

	h.mu.Lock()

	if h.lockDepth > 0 {
		h.mu.Unlock()
		return nil
	}

	addr := uintptr(ptr)
	startBlock := h.blockFromAddr(addr)

	newBlocks := (nBytes + h.blockSize - 1) / h.blockSize

	// Count the existing chain length M, then how many FREE blocks
	// immediately follow it, stopping as soon as we have enough for
	// newBlocks or we hit a non-FREE, non-chain block.
	existingBlocks := uintptr(1)
	nFree := uintptr(0)
	maxBlock := h.numBlocks
	for bl := startBlock + block(existingBlocks); block(bl) < block(maxBlock); bl++ {
		switch h.blockState(bl) {
		case stateTail:
			existingBlocks++
			continue
		case stateFree:
			nFree++
			if existingBlocks+nFree >= newBlocks {
				goto scanned
			}
			continue
		default:
			goto scanned
		}
	}
scanned:

	if newBlocks == existingBlocks {
		h.mu.Unlock()
		return ptr
	}

	if newBlocks < existingBlocks {
		h.shrinkLocked(startBlock, existingBlocks, newBlocks)
		h.mu.Unlock()
		return ptr
	}

	if existingBlocks+nFree >= newBlocks {
		h.growInPlaceLocked(startBlock, existingBlocks, newBlocks, nBytes)
		h.mu.Unlock()
		return ptr
	}

	hadFinalizer := h.finalizerBit(startBlock)
	h.mu.Unlock()

	if !allowMove {
		return nil
	}

	var flags AllocFlags
	if hadFinalizer {
		flags = HasFinalizer
	}
	newPtr := h.Alloc(nBytes, flags, false)
	if newPtr == nil {
		return nil
	}
	copyBytes(newPtr, ptr, existingBlocks*h.blockSize)
	h.Free(ptr)
	h.trace("realloc: moved")
	return newPtr
}

// shrinkLocked frees the trailing existingBlocks-newBlocks TAIL blocks
// and widens the allocator hints accordingly. h.mu must be held.
func (h *Heap) shrinkLocked(start block, existingBlocks, newBlocks uintptr) {
	for bl, count := start+block(newBlocks), existingBlocks-newBlocks; count > 0; bl, count = bl+1, count-1 {
		h.anyToFree(bl)
	}
	newFreeATB := uintptr(start+block(newBlocks)) / blocksPerATBByte
	bucket := h.bucket(existingBlocks - newBlocks)
	if newFreeATB < h.firstFreeATB[bucket] {
		h.firstFreeATB[bucket] = newFreeATB
	}
	if newFreeATB > h.lastFreeATB {
		h.lastFreeATB = newFreeATB
	}
}

// growInPlaceLocked converts trailing FREE blocks to TAIL and zeroes
// the newly acquired bytes. h.mu must be held.
func (h *Heap) growInPlaceLocked(start block, existingBlocks, newBlocks, nBytes uintptr) {
	for bl := start + block(existingBlocks); bl < start+block(newBlocks); bl++ {
		h.freeToTail(bl)
	}
	ptr := h.pointer(start)
	zeroFrom := unsafe.Add(ptr, existingBlocks*h.blockSize)
	zeroLen := (newBlocks - existingBlocks) * h.blockSize
	memzero(zeroFrom, zeroLen)
}

func copyBytes(dst, src unsafe.Pointer, n uintptr) {
	dstSlice := unsafe.Slice((*byte)(dst), int(n))
	srcSlice := unsafe.Slice((*byte)(src), int(n))
	copy(dstSlice, srcSlice)
}
