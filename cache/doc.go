// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package cache implements a fixed-capacity, pin-counted LRU cache mapping
WAD lump ids to byte buffers resident in a tagheap.Heap's head partition.

A Cache owns a *wad.Package, a *tagheap.Heap, and a 256-slot entry table
with an intrusive LRU list. Resident lumps are pinned to protect raw
pointers across calls that might relocate or evict them, and the cache
participates in Heap.Defrag through a move-veto callback that refuses to
relocate any pinned entry.

Not safe for concurrent access: a Cache, like the Heap underneath it,
is intended to be driven from a single goroutine only.
*/
package cache
