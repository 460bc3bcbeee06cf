// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"fmt"
	"log"
	"os"

	"github.com/bdpedersen/minimem/tagheap"
	"github.com/bdpedersen/minimem/wad"
)

const (
	headSentinel = 0
	tailSentinel = 255

	firstUsable       = 1
	lastUsable        = 254
	numStaticReserved = 3 // slots firstUsable .. firstUsable+numStaticReserved-1

	// NullLumpID is the sentinel lump id Init pre-installs, permanently
	// pinned, with no heap-resident bytes.
	NullLumpID = -1
)

// entry is one slot of the fixed 256-entry table. Slots 0 and 255 are
// the LRU list sentinels and are never free or evictable. A live slot
// participates in the doubly linked LRU list via prev/next; a free
// slot instead participates in the singly linked free list via
// nextFree, the tagged-variant-per-slot scheme the design notes call
// for, realized here as one struct whose fields are only meaningful
// for the state the inUse flag selects.
type entry struct {
	inUse  bool
	static bool // externally-owned, permanently pinned, not backed by the heap

	lumpID   int
	pinCount int
	ptr      []byte

	prev, next int // valid when inUse (including the two sentinels)
	nextFree   int // valid when !inUse
}

// Cache is a fixed-capacity, pin-counted LRU cache of WAD lumps backed
// by a tagheap.Heap's head partition.
type Cache struct {
	// Logger receives warnings (missing lump lookups) and, from the
	// default FatalHandler, the fatal error line; that handler writes
	// the state dump itself straight to stderr. Defaults to a stderr
	// logger tagged "minimem: ".
	Logger *log.Logger

	// FatalHandler is invoked on irrecoverable allocation failure and
	// on pin/unpin imbalance. The cache runs no heap or LRU integrity
	// checks of its own, so it never reports an invariant violation
	// here. The default dumps state to stderr and calls os.Exit(-1);
	// tests swap it for a
	// recording stub so the fatal path can be asserted without killing
	// the test binary.
	FatalHandler func(error)

	heap *tagheap.Heap
	wad  *wad.Package

	entries        [256]entry
	freeHead       int // head of the free-slot chain; 0 (unusable as a real slot) terminates it
	lumpToEntry    map[int]int
	nextStaticSlot int

	// defragVeto is a field rather than a plain method so tests can
	// wrap it (e.g. to observe which tags Defrag proposes) while still
	// delegating to the real pin-aware veto logic.
	defragVeto func(tagheap.Tag, []byte) bool
}

// New builds a Cache over an already-open WAD package and heap, and
// initializes it (see Init).
func New(w *wad.Package, h *tagheap.Heap) *Cache {
	c := &Cache{
		heap:   h,
		wad:    w,
		Logger: log.New(os.Stderr, "minimem: ", log.Lshortfile),
	}
	c.FatalHandler = c.defaultFatalHandler
	c.defragVeto = c.defaultDefragVeto
	c.Init()
	return c
}

// Init (re)initializes the entry/LRU tables and installs the null
// sentinel entry. It is idempotent, matching tagheap.Heap.Init and
// the engine's singleton init contract; it does not touch the heap or
// WAD package, only the cache's own bookkeeping, so calling it again
// discards all resident entries (pinned or not) without freeing their
// heap blocks. Callers that want a clean heap too should Flush and
// drop pinned handles first.
func (c *Cache) Init() {
	c.entries = [256]entry{}
	c.lumpToEntry = make(map[int]int)

	c.entries[headSentinel] = entry{inUse: true, next: tailSentinel}
	c.entries[tailSentinel] = entry{inUse: true, prev: headSentinel}

	c.freeHead = 0
	for slot := lastUsable; slot >= firstUsable+numStaticReserved; slot-- {
		c.pushFree(slot)
	}

	nullSlot := firstUsable
	c.entries[nullSlot] = entry{inUse: true, static: true, lumpID: NullLumpID, pinCount: 1}
	c.lumpToEntry[NullLumpID] = nullSlot
	c.insertFront(nullSlot)
	c.nextStaticSlot = firstUsable + 1
}

// RegisterStatic installs an externally-owned, permanently-pinned
// entry backed by data rather than the heap, the Go stand-in for the
// original engine's statically-linked graphic blob and sentinel line
// object (there is no renderer here to own them). There are
// numStaticReserved-1 such slots available after Init claims one for
// the null sentinel; a third call returns an error.
func (c *Cache) RegisterStatic(id int, data []byte) error {
	if c.nextStaticSlot >= firstUsable+numStaticReserved {
		return fmt.Errorf("cache: no reserved static slots remain for lump %d", id)
	}
	slot := c.nextStaticSlot
	c.nextStaticSlot++

	c.entries[slot] = entry{inUse: true, static: true, lumpID: id, pinCount: 1, ptr: data}
	c.lumpToEntry[id] = slot
	c.insertFront(slot)

	return nil
}

// TagForLump is the tagheap.Tag a resident lump's heap block carries:
// the lump id itself, in the head partition (bit 31 clear).
func TagForLump(id int) uint32 { return uint32(id) }

// CheckNumForName looks name up in the WAD directory and returns its
// lump id, or -1 (logging a warning) if it is absent. It never mutates
// cache state.
func (c *Cache) CheckNumForName(name string) int {
	id := c.wad.Lookup(name)
	if id < 0 && c.Logger != nil {
		c.Logger.Printf("warning: lump %q not found", name)
	}
	return id
}

// LumpLength returns a lump's size from its resident entry if cached,
// otherwise from the WAD directory.
func (c *Cache) LumpLength(id int) int64 {
	if entryID, ok := c.lumpToEntry[id]; ok {
		return int64(len(c.entries[entryID].ptr))
	}
	return c.wad.LumpSize(id)
}

// CacheLumpNum returns the bytes of lump id, allocating and reading
// them from the WAD on first access. The returned slice is valid only
// until the next CacheLumpNum, Pin, Flush, or a Defrag not covered by
// a pin scope for this entry. Callers that need a stable pointer
// across such calls must use Pin or PinHandle instead.
func (c *Cache) CacheLumpNum(id int) ([]byte, error) {
	if entryID, ok := c.lumpToEntry[id]; ok {
		c.touchFront(entryID)
		return c.entries[entryID].ptr, nil
	}
	return c.admit(id)
}

// Pin is the non-scoped counterpart to PinHandle, for asymmetric call
// sites that cannot hold a deferred Release. It ensures id is
// resident, increments its pin count (re-entrant: nested pins are
// counted), moves it to the LRU front, and returns a pointer stable
// until the matching Unpin.
func (c *Cache) Pin(id int) ([]byte, error) {
	if entryID, ok := c.lumpToEntry[id]; ok {
		e := &c.entries[entryID]
		e.pinCount++
		c.touchFront(entryID)
		return e.ptr, nil
	}

	buf, err := c.admit(id)
	if err != nil {
		return nil, err
	}
	c.entries[c.lumpToEntry[id]].pinCount++

	return buf, nil
}

// Unpin decrements id's pin count. It must be balanced with a prior
// Pin; an unbalanced Unpin is a pin/unpin imbalance (taxonomy item 5)
// and escalates through FatalHandler. Unpin never moves LRU position.
func (c *Cache) Unpin(id int) {
	entryID, ok := c.lumpToEntry[id]
	if !ok {
		return
	}
	e := &c.entries[entryID]
	if e.static {
		return
	}
	if e.pinCount <= 0 {
		c.fatal(fmt.Errorf("cache: pin/unpin imbalance on lump %d", id))
		return
	}
	e.pinCount--
}

// Flush evicts every evictable (unpinned, non-static) entry.
func (c *Cache) Flush() {
	for c.EvictOne() != 0 {
	}
}

// EvictOne walks the LRU list from the tail toward the head, evicts
// the first unpinned, non-static entry it finds, and returns the
// number of heap bytes reclaimed, or 0 if every entry is pinned or
// static.
func (c *Cache) EvictOne() int {
	cur := c.entries[tailSentinel].prev
	for cur != headSentinel {
		e := &c.entries[cur]
		if !e.static && e.pinCount == 0 {
			reclaimed := c.heap.Free(e.ptr)
			delete(c.lumpToEntry, e.lumpID)
			id := cur
			c.removeFromList(id)
			c.pushFree(id)
			return reclaimed
		}
		cur = e.prev
	}
	return 0
}

// FreeSomeMemoryForTail evicts up to maxEvict head-partition entries
// to relieve pressure on a failed tail-partition allocation, and
// returns the total bytes reclaimed.
func (c *Cache) FreeSomeMemoryForTail(maxEvict int) int {
	total := 0
	for i := 0; i < maxEvict; i++ {
		n := c.EvictOne()
		if n == 0 {
			break
		}
		total += n
	}
	return total
}

// admit runs the allocation-with-eviction loop and installs a fresh
// entry for a lump not currently resident.
func (c *Cache) admit(id int) ([]byte, error) {
	size := c.wad.LumpSize(id)
	if size < 0 {
		return nil, fmt.Errorf("cache: unknown lump id %d", id)
	}

	buf, err := c.allocForLump(id, int(size))
	if err != nil {
		return nil, err
	}

	entryID := c.freeHead
	if entryID == 0 {
		if c.EvictOne() == 0 {
			c.heap.Free(buf)
			return nil, c.fatal(fmt.Errorf("cache: no free entry slots for lump %d", id))
		}
		entryID = c.freeHead
	}
	c.popFree(entryID)

	if _, err := c.wad.Read(buf, c.wad.LumpFilePos(id), size); err != nil {
		c.heap.Free(buf)
		c.pushFree(entryID)
		return nil, err
	}

	c.entries[entryID] = entry{inUse: true, lumpID: id, ptr: buf}
	c.lumpToEntry[id] = entryID
	c.insertFront(entryID)

	return c.entries[entryID].ptr, nil
}

// allocForLump implements the four-step allocation-with-eviction loop:
// try a direct alloc; evict until count_free_head covers the request;
// retry; defrag and retry; evict one more and go again. It fails
// fatally only when nothing remains evictable.
func (c *Cache) allocForLump(id, size int) ([]byte, error) {
	tag := tagheap.Tag(TagForLump(id))

	if buf := c.heap.Alloc(size, tag); buf != nil {
		return buf, nil
	}

	for {
		for c.heap.CountFreeHead() < size {
			if c.EvictOne() == 0 {
				return nil, c.fatal(fmt.Errorf("cache: no evictable entries admitting lump %d (%d bytes)", id, size))
			}
		}

		if buf := c.heap.Alloc(size, tag); buf != nil {
			return buf, nil
		}

		c.heap.Defrag(c.defragVeto)
		if buf := c.heap.Alloc(size, tag); buf != nil {
			return buf, nil
		}

		if c.EvictOne() == 0 {
			return nil, c.fatal(fmt.Errorf("cache: defrag could not admit lump %d (%d bytes)", id, size))
		}
	}
}

// defaultDefragVeto is the move-veto callback the allocation loop
// hands to Heap.Defrag by default: pinned entries refuse the move,
// everything else grants it and records the block's new address. A
// tag with no cache entry is an unmapped leak and is always permitted
// to move.
func (c *Cache) defaultDefragVeto(tag tagheap.Tag, proposed []byte) bool {
	entryID, ok := c.lumpToEntry[int(tag)]
	if !ok {
		return true
	}
	e := &c.entries[entryID]
	if e.pinCount > 0 {
		return false
	}
	e.ptr = proposed
	return true
}

func (c *Cache) pushFree(slot int) {
	c.entries[slot] = entry{nextFree: c.freeHead}
	c.freeHead = slot
}

func (c *Cache) popFree(slot int) {
	c.freeHead = c.entries[slot].nextFree
}

func (c *Cache) removeFromList(id int) {
	e := c.entries[id]
	c.entries[e.prev].next = e.next
	c.entries[e.next].prev = e.prev
}

func (c *Cache) insertFront(id int) {
	first := c.entries[headSentinel].next
	c.entries[id].prev = headSentinel
	c.entries[id].next = first
	c.entries[headSentinel].next = id
	c.entries[first].prev = id
}

func (c *Cache) touchFront(id int) {
	c.removeFromList(id)
	c.insertFront(id)
}

// fatal builds an ErrFatal carrying a state dump, hands it to
// FatalHandler (whose default exits the process), and returns it so a
// swapped-in handler can let the caller observe the failure too.
func (c *Cache) fatal(err error) error {
	fe := &ErrFatal{Err: err, Dump: c.DumpState()}
	if c.FatalHandler != nil {
		c.FatalHandler(fe)
	}
	return fe
}

func (c *Cache) defaultFatalHandler(err error) {
	if fe, ok := err.(*ErrFatal); ok {
		fmt.Fprintln(os.Stderr, fe.Dump.String())
	}
	c.Logger.Printf("fatal: %v", err)
	os.Exit(-1)
}
