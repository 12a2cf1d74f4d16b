// Package gc implements a conservative, non-moving, mark-and-sweep garbage
// collector over a single contiguous heap carved into fixed-size blocks,
// using packed bitmap metadata.
//
// The design is a textbook mark/sweep implementation heavily inspired by
// the MicroPython/CircuitPython memory manager (py/gc.c): the pool is
// divided into blocks, a 2-bit-per-block allocation table (ATB) tracks
// FREE/HEAD/TAIL/MARK state, and an optional 1-bit-per-block finaliser
// table (FTB) flags heads that need a __del__-style callback at sweep.
//
// The collector never moves objects: pointers returned by Alloc stay
// valid for their entire lifetime. Root scanning is conservative — every
// pointer-sized word in a scanned range is treated as a potential
// pointer, and verified against block alignment and ATB state before
// being trusted.
//
// More information:
// https://github.com/micropython/micropython/blob/master/py/gc.c
// https://github.com/micropython/micropython/wiki/Memory-Manager
// "The Garbage Collection Handbook" by Richard Jones, Antony Hosking,
// Eliot Moss.
package gc
