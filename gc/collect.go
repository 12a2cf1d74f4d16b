package gc

// Lock increments the reentrancy guard, pinning the heap against
// collection. Alloc and Free become no-ops while lockDepth > 0.
func (h *Heap) Lock() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lockDepth++
}

// Unlock decrements the reentrancy guard.
func (h *Heap) Unlock() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lockDepth--
}

// IsLocked reports whether the heap's reentrancy guard is currently
// held by anyone (explicit Lock, or mid-collection).
func (h *Heap) IsLocked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lockDepth != 0
}

// Collect runs a full collection cycle: mark every known root (host
// root sources, the permanent registry) then sweep. Use CollectStart /
// CollectRoot / CollectPtr / CollectEnd instead when the host needs to
// supply additional ad hoc roots between marking phases.
func (h *Heap) Collect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.collectLocked()
}

// collectLocked assumes h.mu is already held.
func (h *Heap) collectLocked() {
	h.collectStartLocked()
	if rs, ok := h.host.(RootSource); ok {
		for _, r := range rs.Roots() {
			h.markRange(r.Start, r.End)
		}
	}
	h.collectEndLocked()
}

// CollectStart begins a collection cycle: it increments the lock depth
// (so finalisers and reentrant allocation attempts safely no-op),
// resets the stack-overflow flag and the threshold counter, and marks
// the permanent-pointer registry. The host is expected to call
// CollectRoot / CollectPtr for its own root ranges before calling
// CollectEnd.
func (h *Heap) CollectStart() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.collectStartLocked()
}

func (h *Heap) collectStartLocked() {
	h.lockDepth++
	h.stackOverflow = false
	h.markStackLen = 0
	h.allocAmount = 0
	h.trace("collect_start")
	h.markPermanentRegistry()
}

// CollectRoot marks len pointer-sized roots starting at ptrs.
func (h *Heap) CollectRoot(ptrs []uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range ptrs {
		h.mark(p)
	}
}

// CollectPtr marks a single root pointer.
func (h *Heap) CollectPtr(p uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mark(p)
}

// CollectEnd finishes a collection cycle: it recovers from any mark
// stack overflow, sweeps, resets the allocator hints, and decrements
// the lock depth.
func (h *Heap) CollectEnd() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.collectEndLocked()
}

func (h *Heap) collectEndLocked() {
	h.dealWithStackOverflow()
	h.sweep()
	h.resetAllocHints()
	h.lockDepth--
	h.trace("collect_end")
}

// SweepAll sweeps every object in the heap without having marked
// anything, so every live object's finaliser fires. Used for teardown
// (see Deinit).
func (h *Heap) SweepAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sweepAllLocked()
}

func (h *Heap) sweepAllLocked() {
	h.lockDepth++
	h.collectEndLocked()
}

