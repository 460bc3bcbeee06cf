// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tagheap

import "fmt"

// ErrInvalidArg describes a caller-supplied argument outside the range a
// Heap method accepts. No Heap method returns it: Free returns 0 for a
// slice outside the arena, and FreeTags with lo > hi does nothing.
type ErrInvalidArg struct {
	Op  string
	Arg int64
}

func (e *ErrInvalidArg) Error() string {
	return fmt.Sprintf("tagheap: %s: invalid argument %#x", e.Op, e.Arg)
}

// ErrCorrupt reports a broken heap invariant detected by Health (bad
// link, tag/partition mismatch, adjacent free blocks, a tiling gap). It is fatal: the heap
// is no longer trustworthy once one of these is observed.
type ErrCorrupt struct {
	Kind   string
	Offset int
	Detail string
}

func (e *ErrCorrupt) Error() string {
	return fmt.Sprintf("tagheap: corrupt heap: %s at offset %#x: %s", e.Kind, e.Offset, e.Detail)
}

// ErrOOM describes a partition having no free block large enough to
// satisfy a request, even after whatever coalescing happened during
// prior frees. It is recoverable: the heap itself remains valid and
// usable, the caller (typically package cache) decides policy. Alloc
// and Realloc do not return it; they signal this condition with nil.
type ErrOOM struct {
	Partition string
	Requested int
	FreeBytes int
}

func (e *ErrOOM) Error() string {
	return fmt.Sprintf("tagheap: out of memory in %s partition: requested %d, free %d", e.Partition, e.Requested, e.FreeBytes)
}
