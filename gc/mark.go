package gc

import "unsafe"

// pushMark pushes a block index onto the bounded mark stack. If the
// stack is full, it sets the sticky stackOverflow flag and drops the
// push instead of growing — overflow is recovered later by a full-ATB
// rescan, never by allocating more stack space mid-collection.
func (h *Heap) pushMark(b block) {
	if h.markStackLen >= len(h.markStack) {
		h.stackOverflow = true
		return
	}
	h.markStack[h.markStackLen] = b
	h.markStackLen++
}

func (h *Heap) popMark() (block, bool) {
	if h.markStackLen == 0 {
		return 0, false
	}
	h.markStackLen--
	return h.markStack[h.markStackLen], true
}

// mark marks the object pointed to by addr, if addr looks like a valid
// pointer to an unmarked HEAD block, and walks its subtree. mark can
// handle arbitrary words, including ones that aren't pointers at all:
// verifyPointer silently rejects them.
func (h *Heap) mark(addr uintptr) {
	if !h.verifyPointer(addr) {
		return
	}
	b := h.blockFromAddr(addr)
	if h.blockState(b) != stateHead {
		return
	}
	h.headToMark(b)
	h.markSubtree(b)
}

// markSubtree marks all of a (head) block's children, recursively,
// using an explicit stack instead of Go call recursion so that deeply
// nested object graphs can't blow the Go stack — the bounded mark
// stack plays that role and is itself recovered from on overflow.
func (h *Heap) markSubtree(head block) {
	b := head
	for {
		n := h.blockCount(b)
		start := h.address(b)
		words := n * h.blockSize / unsafe.Sizeof(uintptr(0))
		base := (*uintptr)(unsafe.Pointer(start))
		slice := unsafe.Slice(base, int(words))
		for _, word := range slice {
			if !h.verifyPointer(word) {
				continue
			}
			child := h.blockFromAddr(word)
			if h.blockState(child) == stateHead {
				h.headToMark(child)
				h.pushMark(child)
			}
		}

		next, ok := h.popMark()
		if !ok {
			return
		}
		b = next
	}
}

// dealWithStackOverflow recovers from a mark-stack overflow: while the
// sticky flag is set, clear it and rescan every MARK block in the ATB,
// re-running markSubtree on each. Each pass either
// discovers more children that now fit on the (now-empty) stack or
// finds nothing new, so this terminates.
func (h *Heap) dealWithStackOverflow() {
	for h.stackOverflow {
		h.stackOverflow = false
		for b := block(0); b < h.numBlocks; b++ {
			if h.blockState(b) == stateMark {
				h.markSubtree(b)
			}
		}
	}
}

// markRange conservatively scans every pointer-sized word in
// [start, end) and marks anything that looks like a live object
// pointer. start must be pointer-aligned.
func (h *Heap) markRange(start, end uintptr) {
	if start >= end {
		return
	}
	step := unsafe.Sizeof(uintptr(0))
	for addr := start; addr+step <= end; addr += step {
		word := *(*uintptr)(unsafe.Pointer(addr))
		h.mark(word)
	}
}
