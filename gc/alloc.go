package gc

import (
	"log/slog"
	"unsafe"
)

// AllocFlags controls optional behavior of Alloc, mirroring the
// allocator's HAS_FINALISER flag bit.
type AllocFlags uint8

const HasFinalizer AllocFlags = 1 << 0

// Alloc finds nBytes worth of contiguous free blocks and returns a
// pointer to them, or nil on failure. A zero-size request returns nil
// without side effects, an uninitialised heap triggers safe-mode
// abort, and a locked heap returns nil without attempting collection.
func (h *Heap) Alloc(nBytes uintptr, flags AllocFlags, longLived bool) unsafe.Pointer {
	if nBytes == 0 {
		return nil
	}
	if !h.initialized {
		h.abort("gc: alloc attempted on an uninitialised heap")
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.lockDepth > 0 {
		return nil
	}

	nBlocks := (nBytes + h.blockSize - 1) / h.blockSize

	h.totalAllocBytes += uint64(nBytes)
	h.mallocs++

	collected := !h.autoGC
	if !collected && h.allocAmount >= h.allocThreshold {
		h.collectLocked()
		collected = true
	}

	crossover := h.blockFromAddr(h.lowestLongLived)

	var found block
	var runLen uintptr
	for {
		found, runLen = h.scanForRun(nBlocks, longLived, collected, crossover)
		if runLen >= nBlocks {
			break
		}
		// Nothing found and we haven't collected yet this call: collect
		// and retry once.
		if collected {
			return nil
		}
		h.trace("alloc: no free run, collecting", slog.Uint64("n_bytes", uint64(nBytes)))
		h.collectLocked()
		collected = true
	}

	var startBlock block
	if !longLived {
		endBlock := found
		startBlock = found - block(runLen) + 1
		if nBlocks < uintptr(h.numBuckets) {
			nextFree := uintptr(endBlock+1) / blocksPerATBByte
			for i := h.bucket(nBlocks); i < h.numBuckets; i++ {
				h.firstFreeATB[i] = nextFree
			}
		}
	} else {
		startBlock = found
		h.lastFreeATB = uintptr(found-1) / blocksPerATBByte
	}

	h.freeToHead(startBlock)
	for b := startBlock + 1; b < startBlock+block(nBlocks); b++ {
		h.freeToTail(b)
	}

	ptr := h.pointer(startBlock)
	allocBytes := nBlocks * h.blockSize

	if longLived {
		addr := uintptr(ptr)
		if addr < h.lowestLongLived {
			h.lowestLongLived = addr
		}
	}
	h.allocAmount += allocBytes

	// Zero at minimum the trailing unused bytes of the final block so
	// stale pointer-shaped bits cannot keep unrelated objects live.
	zeroFrom := unsafe.Add(ptr, nBytes)
	zeroLen := allocBytes - nBytes
	memzero(zeroFrom, zeroLen)

	if flags&HasFinalizer != 0 {
		h.setFinalizerBit(startBlock)
		// Clear the type-tag word in case it is never set.
		*(*uintptr)(ptr) = 0
	}

	h.trace("alloc", slog.Uint64("n_bytes", uint64(nBytes)), slog.Bool("long_lived", longLived))
	return ptr
}

// scanForRun searches the ATB for a run of at least nBlocks free
// blocks, in the direction dictated by longLived. It returns the block
// index where the run was found (the high end for short-lived scans,
// the low end for long-lived scans) and the run's length. runLen <
// nBlocks means no sufficient run was found; the scan stopped early
// (before collected is true) if it crossed into the other region.
func (h *Heap) scanForRun(nBlocks uintptr, longLived, collected bool, crossover block) (found block, runLen uintptr) {
	bucket := h.bucket(nBlocks)
	firstFree := block(h.firstFreeATB[bucket] * blocksPerATBByte)
	lastFree := block((h.lastFreeATB+1)*blocksPerATBByte - 1)
	if lastFree >= h.numBlocks {
		lastFree = h.numBlocks - 1
	}
	if firstFree > lastFree {
		return 0, 0
	}

	run := uintptr(0)
	// Walk the inclusive range [firstFree, lastFree] using a plain
	// ascending index i, then map it to the scan direction. This avoids
	// underflow when the descending (long-lived) scan would otherwise
	// decrement an unsigned block index past zero.
	span := uintptr(lastFree-firstFree) + 1
	for i := uintptr(0); i < span; i++ {
		var b block
		if !longLived {
			b = firstFree + block(i)
		} else {
			b = lastFree - block(i)
		}

		if h.blockState(b) == stateFree {
			run++
			if run >= nBlocks {
				return b, run
			}
			continue
		}

		if !collected {
			if (!longLived && b >= crossover) || (longLived && b < crossover) {
				return 0, run
			}
		}
		run = 0
	}
	return 0, run
}

// abort reports the one fatal condition the collector has: an
// allocation attempted on an uninitialised heap.
func (h *Heap) abort(reason string) {
	if a, ok := h.host.(SafeModeAborter); ok {
		a.SafeModeAbort(reason)
		return
	}
	panic(reason)
}

// memzero zeroes n bytes starting at ptr. Extracted as its own helper so
// every zeroing call site reads the same way.
func memzero(ptr unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	b := unsafe.Slice((*byte)(ptr), int(n))
	for i := range b {
		b[i] = 0
	}
}
