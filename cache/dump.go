// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"fmt"
	"strings"

	"github.com/bdpedersen/minimem/tagheap"
)

// EntryDump is one row of a DumpState snapshot.
type EntryDump struct {
	EntryID  int
	LumpID   int
	PinCount int
	Size     int
	Static   bool
}

// Dump is a structured snapshot of cache and heap state, produced by
// DumpState and written to stderr on a fatal exit. It holds each
// partition's occupancy totals (tagheap.Stats) and the LRU chain with
// every entry's lump id, pin count and size; it does not list the
// heap's individual blocks or free blocks.
type Dump struct {
	Head    tagheap.Stats
	Tail    tagheap.Stats
	Entries []EntryDump // in LRU order, front (MRU) first
}

func (d Dump) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tagheap head: %+v\n", d.Head)
	fmt.Fprintf(&b, "tagheap tail: %+v\n", d.Tail)
	fmt.Fprintln(&b, "cache entries (LRU order, MRU first):")
	for _, e := range d.Entries {
		fmt.Fprintf(&b, "  entry=%d lump=%d pin=%d size=%d static=%v\n", e.EntryID, e.LumpID, e.PinCount, e.Size, e.Static)
	}
	return b.String()
}

// DumpState walks the LRU list front-to-back and returns a structured
// snapshot suitable for the diagnostic dump spec.md §7 requires before
// a fatal exit.
func (c *Cache) DumpState() Dump {
	head, tail := c.heap.Stats()
	d := Dump{Head: head, Tail: tail}

	for cur := c.entries[headSentinel].next; cur != tailSentinel; cur = c.entries[cur].next {
		e := &c.entries[cur]
		d.Entries = append(d.Entries, EntryDump{
			EntryID:  cur,
			LumpID:   e.lumpID,
			PinCount: e.pinCount,
			Size:     len(e.ptr),
			Static:   e.static,
		})
	}

	return d
}

// ErrFatal wraps an irrecoverable allocation failure or a pin/unpin
// imbalance together with the state dump captured at the moment of
// failure.
type ErrFatal struct {
	Err  error
	Dump Dump
}

func (e *ErrFatal) Error() string { return fmt.Sprintf("cache: fatal: %v", e.Err) }
func (e *ErrFatal) Unwrap() error { return e.Err }
