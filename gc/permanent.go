package gc

import "unsafe"

var wordSize = unsafe.Sizeof(uintptr(0))

// slotsPerNode is how many pointer-sized slots a permanent-registry
// node has, including its slot-0 next pointer.
func (h *Heap) slotsPerNode() uintptr {
	return h.blockSize / wordSize
}

// markPermanentRegistry marks the head of the permanent-pointer
// registry as a root. Because registry nodes are themselves ordinary
// heap objects, marking the head transitively marks every reachable
// node through its slot-0 "next" link, and every registered pointer
// through the remaining slots — markSubtree treats them exactly like
// any other object's fields.
func (h *Heap) markPermanentRegistry() {
	if h.permanentHead == 0 {
		return
	}
	h.mark(h.permanentHead)
}

// NeverFree registers ptr to be unconditionally kept alive by every
// future collection. It returns false if ptr is not a valid live
// heap pointer.
func (h *Heap) NeverFree(ptr unsafe.Pointer) bool {
	if h.NBytes(ptr) == 0 {
		return false
	}
	p := uintptr(ptr)

	h.mu.Lock()
	node := h.permanentHead
	var tail uintptr
	slots := h.slotsPerNode()
	for node != 0 {
		for i := uintptr(1); i < slots; i++ {
			slot := (*uintptr)(unsafe.Pointer(node + i*wordSize))
			if *slot == 0 {
				*slot = p
				h.mu.Unlock()
				h.trace("never_free: stored in existing node")
				return true
			}
		}
		tail = node
		node = *(*uintptr)(unsafe.Pointer(node))
	}
	h.mu.Unlock()

	// No node had a free slot: append a fresh long-lived node. Alloc
	// takes its own lock, so this must happen with h.mu released.
	newNode := h.Alloc(h.blockSize, 0, true)
	if newNode == nil {
		return false
	}
	newAddr := uintptr(newNode)

	// Alloc only zeroes trailing slack past nBytes, which is zero here
	// since the request is exactly one block; the node may be carved
	// from previously freed, unzeroed memory. Its slot-0 "next" link
	// must start null or both this traversal and markPermanentRegistry
	// will chase a garbage pointer.
	memzero(newNode, h.blockSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	if tail == 0 {
		h.permanentHead = newAddr
	} else {
		*(*uintptr)(unsafe.Pointer(tail)) = newAddr
	}
	*(*uintptr)(unsafe.Pointer(newAddr + wordSize)) = p
	h.trace("never_free: appended new registry node")
	return true
}
