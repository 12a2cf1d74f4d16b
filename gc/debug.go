package gc

import (
	"strings"
	"unsafe"
)

// Dump renders the allocation table as a grid of one glyph per block,
// 64 blocks per line, for debugging purposes: '·' is FREE, '*' is HEAD,
// '-' is TAIL, '#' is MARK (only possible mid-collection).
func (h *Heap) Dump() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var sb strings.Builder
	for b := block(0); b < h.numBlocks; b++ {
		switch h.blockState(b) {
		case stateHead:
			sb.WriteByte('*')
		case stateTail:
			sb.WriteByte('-')
		case stateMark:
			sb.WriteByte('#')
		default:
			sb.WriteRune('·')
		}
		if b%64 == 63 || b+1 == h.numBlocks {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// ATB returns the raw allocation-table bytes backing the heap's block
// state. It is exposed read-only for diagnostic tooling (heapctl
// snapshot); callers must not mutate it.
func (h *Heap) ATB() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.atb
}

// FTB returns the raw finaliser-table bytes, or nil if finalisers are
// disabled on this heap.
func (h *Heap) FTB() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ftb
}

// Pool returns the raw block pool bytes.
func (h *Heap) Pool() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return unsafe.Slice((*byte)(unsafe.Pointer(h.poolStart)), int(h.poolEnd-h.poolStart))
}
