// Package kheap implements the kernel heap: a single free list over a
// fixed-size byte arena, with first-fit allocation, splitting, and a
// coalescing sweep on every free.
package kheap

import (
	"unsafe"

	"github.com/Jithub-4pf/NanOS/kernel"
)

// Align is the minimum alignment of every returned payload.
const Align = 8

var errOutOfMemory = &kernel.Error{Module: "kheap", Message: "out of heap memory"}

// block is the header prefixed to every arena block, free or allocated.
// Its own size must itself be a multiple of Align so that payloads that
// immediately follow it stay aligned.
type block struct {
	size uintptr // payload bytes, not including this header
	free bool
	next *block
}

var blockHeaderSize = alignUp(unsafe.Sizeof(block{}), Align)

// Heap is a free-list allocator over an arena supplied by the caller (the
// bytes immediately following the kernel image, in production).
type Heap struct {
	arenaStart, arenaEnd uintptr
	freeList             *block
}

// Init carves the single free block spanning the whole arena. arena must be
// at least blockHeaderSize+Align bytes and must remain valid (and backed by
// memory outside the Go GC heap, in production) for the Heap's lifetime.
func (h *Heap) Init(arena []byte) *kernel.Error {
	if len(arena) < int(blockHeaderSize)+Align {
		return &kernel.Error{Module: "kheap", Message: "arena too small"}
	}

	start := uintptr(unsafe.Pointer(&arena[0]))
	aligned := alignUp(start, Align)
	slack := aligned - start
	end := start + uintptr(len(arena))

	h.arenaStart = aligned
	h.arenaEnd = end

	first := (*block)(unsafe.Pointer(aligned))
	first.size = end - aligned - blockHeaderSize
	first.free = true
	first.next = nil
	h.freeList = first
	_ = slack
	return nil
}

// Alloc returns a pointer to n bytes of 8-byte-aligned memory, or nil (with
// errOutOfMemory) if no free block is large enough. First-fit scan; if the
// chosen block has room for the request plus another header and an aligned
// remainder, it is split and the remainder re-inserted as a new free block.
func (h *Heap) Alloc(n uintptr) (unsafe.Pointer, *kernel.Error) {
	if n == 0 {
		return nil, nil
	}
	n = alignUp(n, Align)

	for cur := h.freeList; cur != nil; cur = cur.next {
		if cur.free && cur.size >= n {
			h.split(cur, n)
			cur.free = false
			return payloadOf(cur), nil
		}
	}
	return nil, errOutOfMemory
}

// split breaks block into a block of exactly size `n` followed by a new free
// block holding the remainder, but only if the remainder can itself hold a
// header plus Align bytes — otherwise the whole block is handed out as-is,
// slightly oversized.
func (h *Heap) split(b *block, n uintptr) {
	if b.size < n+blockHeaderSize+Align {
		return
	}
	remainderAddr := blockAddr(b) + blockHeaderSize + n
	remainder := (*block)(unsafe.Pointer(remainderAddr))
	remainder.size = b.size - n - blockHeaderSize
	remainder.free = true
	remainder.next = b.next

	b.size = n
	b.next = remainder
}

// Free marks the block containing ptr as free, then sweeps the list once,
// coalescing every run of adjacent free blocks. ptr must have come from
// Alloc on this Heap; a nil ptr is a no-op.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	b := blockFromPayload(ptr)
	b.free = true

	for cur := h.freeList; cur != nil; {
		if cur.free && cur.next != nil && cur.next.free {
			cur.size += blockHeaderSize + cur.next.size
			cur.next = cur.next.next
			continue // re-check cur against its new next
		}
		cur = cur.next
	}
}

// Stats reports total arena payload capacity, bytes currently allocated,
// and bytes currently free.
func (h *Heap) Stats() (total, used, free uintptr) {
	for cur := h.freeList; cur != nil; cur = cur.next {
		total += cur.size
		if cur.free {
			free += cur.size
		} else {
			used += cur.size
		}
	}
	return total, used, free
}

func alignUp(v uintptr, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

func blockAddr(b *block) uintptr {
	return uintptr(unsafe.Pointer(b))
}

func payloadOf(b *block) unsafe.Pointer {
	return unsafe.Pointer(blockAddr(b) + blockHeaderSize)
}

func blockFromPayload(ptr unsafe.Pointer) *block {
	return (*block)(unsafe.Pointer(uintptr(ptr) - blockHeaderSize))
}
