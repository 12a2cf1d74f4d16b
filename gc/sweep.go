package gc

import (
	"log/slog"
	"unsafe"
)

// sweep performs the linear ATB pass: unmarked HEADs (plus their
// finalisers) and their TAILs go to FREE, MARK blocks revert to HEAD
// as survivors.
func (h *Heap) sweep() {
	freeTail := false
	freed := uint64(0)
	for b := block(0); b < h.numBlocks; b++ {
		switch h.blockState(b) {
		case stateHead:
			h.sweepHead(b)
			freeTail = true
			freed++
		case stateTail:
			if freeTail {
				h.anyToFree(b)
			}
		case stateMark:
			h.markToHead(b)
			freeTail = false
		}
	}
	h.frees += freed
	h.trace("sweep", slog.Uint64("freed_heads", freed))
}

// sweepHead dispatches a finaliser (if flagged and the type tag is
// non-null) for an unreached HEAD block, then reclaims it.
func (h *Heap) sweepHead(b block) {
	if h.finalizerBit(b) {
		obj := h.pointer(b)
		tag := *(*uintptr)(obj)
		if tag != 0 && h.host != nil {
			h.runFinalizer(obj)
		}
		h.clearFinalizerBit(b)
	}
	h.anyToFree(b)
}

// runFinalizer invokes host.Finalize under the optional scheduler lock,
// recovering from (and discarding) any panic the finaliser raises.
// h.mu is released for the duration of the call: lockDepth stays > 0
// throughout sweep, so a finaliser that reenters Alloc/Free/IsLocked
// observes the lock and no-ops instead of deadlocking on a mutex its
// own caller is still holding.
func (h *Heap) runFinalizer(obj unsafe.Pointer) {
	if locker, ok := h.host.(SchedulerLocker); ok {
		locker.LockScheduler()
		defer locker.UnlockScheduler()
	}

	h.mu.Unlock()
	defer h.mu.Lock()

	defer func() {
		if r := recover(); r != nil {
			h.trace("finalizer panicked, discarding", slog.Any("recover", r))
		}
	}()
	h.host.Finalize(obj)
}
