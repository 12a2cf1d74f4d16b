package gc

import "unsafe"

// MakeLongLived moves ptr into the long-lived region if doing so is
// beneficial, returning the (possibly unchanged) pointer. Applying it twice is idempotent: the second call observes
// the object already at or above lowestLongLived and returns it
// unchanged.
func (h *Heap) MakeLongLived(ptr unsafe.Pointer) unsafe.Pointer {
	h.mu.Lock()
	addr := uintptr(ptr)
	if addr >= h.lowestLongLived {
		h.mu.Unlock()
		return ptr
	}
	nBytes := h.nBytesLocked(ptr)
	if nBytes == 0 {
		h.mu.Unlock()
		return ptr
	}
	startBlock := h.blockFromAddr(addr)
	hasFinalizer := h.finalizerBit(startBlock)
	h.mu.Unlock()

	var flags AllocFlags
	if hasFinalizer {
		flags = HasFinalizer
	}
	newPtr := h.Alloc(nBytes, flags, true)
	if newPtr == nil {
		return ptr
	}
	if uintptr(newPtr) >= addr {
		// No benefit: the new allocation isn't strictly lower than the
		// old one. Give it back and keep the original.
		h.Free(newPtr)
		return ptr
	}
	copyBytes(newPtr, ptr, nBytes)
	h.trace("make_long_lived: moved")
	return newPtr
}
