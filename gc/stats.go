package gc

// Info reports a snapshot of heap occupancy and allocator traffic,
// matching the statistics an embedder typically wants from a heap.
type Info struct {
	TotalBytes uint64
	UsedBytes  uint64
	FreeBytes  uint64

	// MaxFreeRun is the size, in bytes, of the largest contiguous run of
	// FREE blocks found while scanning.
	MaxFreeRun uint64

	// OneBlockFree and TwoBlockFree count isolated free runs of exactly
	// one and exactly two blocks, mirroring MicroPython's gc_info "1-blocks"
	// / "2-blocks" fragmentation counters.
	OneBlockFree uint64
	TwoBlockFree uint64

	// MaxBlockFree is the size, in blocks, of the largest contiguous
	// free run (MaxFreeRun expressed in blocks rather than bytes).
	MaxBlockFree uint64

	NumBlocks uint64

	Mallocs uint64
	Frees   uint64
}

// Info walks the allocation table and returns a fresh occupancy
// snapshot. It does not trigger a collection.
func (h *Heap) Info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()

	info := Info{
		TotalBytes: uint64(h.numBlocks) * uint64(h.blockSize),
		NumBlocks:  uint64(h.numBlocks),
		Mallocs:    h.mallocs,
		Frees:      h.frees,
	}

	var run uint64
	var usedBlocks uint64
	flushRun := func() {
		switch run {
		case 0:
			return
		case 1:
			info.OneBlockFree++
		case 2:
			info.TwoBlockFree++
		}
		if run > info.MaxBlockFree {
			info.MaxBlockFree = run
		}
		run = 0
	}
	for b := block(0); b < h.numBlocks; b++ {
		if h.blockState(b) == stateFree {
			run++
			continue
		}
		flushRun()
		usedBlocks++
	}
	flushRun()

	info.MaxFreeRun = info.MaxBlockFree * uint64(h.blockSize)
	info.UsedBytes = usedBlocks * uint64(h.blockSize)
	info.FreeBytes = info.TotalBytes - info.UsedBytes
	return info
}
