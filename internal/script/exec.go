package script

import (
	"fmt"
	"unsafe"

	"github.com/nm3210/mpgc/gc"
)

// Executor replays parsed Commands against a heap, assigning each
// successful alloc the next sequential $N handle.
type Executor struct {
	Heap    *gc.Heap
	handles map[int]unsafe.Pointer
	next    int
}

// NewExecutor wraps h for script replay.
func NewExecutor(h *gc.Heap) *Executor {
	return &Executor{Heap: h, handles: make(map[int]unsafe.Pointer)}
}

// Step runs one command and returns a short human-readable result
// line, suitable for heapctl watch's per-step output.
func (e *Executor) Step(cmd Command) (string, error) {
	switch cmd.Op {
	case OpAlloc:
		var flags gc.AllocFlags
		if cmd.Finalizer {
			flags = gc.HasFinalizer
		}
		ptr := e.Heap.Alloc(cmd.NBytes, flags, cmd.LongLived)
		if ptr == nil {
			return "", fmt.Errorf("alloc %d bytes failed", cmd.NBytes)
		}
		handle := e.next
		e.next++
		e.handles[handle] = ptr
		return fmt.Sprintf("$%d = alloc(%d) -> %#x", handle, cmd.NBytes, uintptr(ptr)), nil

	case OpFree:
		ptr, err := e.resolve(cmd.Handle)
		if err != nil {
			return "", err
		}
		e.Heap.Free(ptr)
		delete(e.handles, cmd.Handle)
		return fmt.Sprintf("free($%d)", cmd.Handle), nil

	case OpCollect:
		e.Heap.Collect()
		return "collect()", nil

	case OpPin:
		ptr, err := e.resolve(cmd.Handle)
		if err != nil {
			return "", err
		}
		if !e.Heap.NeverFree(ptr) {
			return "", fmt.Errorf("pin $%d: not a live pointer", cmd.Handle)
		}
		return fmt.Sprintf("pin($%d)", cmd.Handle), nil

	case OpLongLived:
		ptr, err := e.resolve(cmd.Handle)
		if err != nil {
			return "", err
		}
		moved := e.Heap.MakeLongLived(ptr)
		e.handles[cmd.Handle] = moved
		return fmt.Sprintf("longlived($%d) -> %#x", cmd.Handle, uintptr(moved)), nil

	default:
		return "", fmt.Errorf("unhandled op %v", cmd.Op)
	}
}

// Run replays every command in order, stopping at the first error.
func (e *Executor) Run(cmds []Command) ([]string, error) {
	out := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		line, err := e.Step(cmd)
		if err != nil {
			return out, fmt.Errorf("line %d %q: %w", cmd.Line, cmd.Raw, err)
		}
		out = append(out, line)
	}
	return out, nil
}

func (e *Executor) resolve(handle int) (unsafe.Pointer, error) {
	ptr, ok := e.handles[handle]
	if !ok {
		return nil, fmt.Errorf("no such handle $%d", handle)
	}
	return ptr, nil
}
