// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tagheap

import (
	"bytes"
	"flag"
	"testing"
)

var allocRndTestLimit = flag.Int("lim", 4096, "random allocator test block size limit")

func newTestHeap() *Heap { return New(4096, 4096) }

// S1 - basic alloc/free round-trip.
func TestAllocFreeRoundTrip(t *testing.T) {
	h := newTestHeap()
	f := h.CountFreeHead()

	p := h.Alloc(256, Tag(1))
	if p == nil {
		t.Fatal("alloc failed")
	}
	if got := h.CountFreeHead(); got > f-256 {
		t.Fatalf("CountFreeHead after alloc = %d, want <= %d", got, f-256)
	}

	h.Free(p)
	if got := h.CountFreeHead(); got != f {
		t.Fatalf("CountFreeHead after free = %d, want %d", got, f)
	}
	if err := h.Health(); err != nil {
		t.Fatal(err)
	}
}

// S2 - coalescing.
func TestFreeCoalescing(t *testing.T) {
	h := newTestHeap()
	f := h.CountFreeHead()

	p1 := h.Alloc(64, Tag(1))
	p2 := h.Alloc(64, Tag(2))
	p3 := h.Alloc(64, Tag(3))
	if p1 == nil || p2 == nil || p3 == nil {
		t.Fatal("alloc failed")
	}

	h.Free(p1)
	h.Free(p3)
	h.Free(p2)

	if got := h.CountFreeHead(); got != f {
		t.Fatalf("CountFreeHead after round trip = %d, want %d (no leaked free space)", got, f)
	}
	if err := h.Health(); err != nil {
		t.Fatal(err)
	}
}

// S3 - tail/head separation.
func TestPartitionSeparation(t *testing.T) {
	h := newTestHeap()

	hp := h.Alloc(100, Tag(0x0001))
	tp := h.Alloc(100, TailBit|1)
	if hp == nil || tp == nil {
		t.Fatal("alloc failed")
	}
	if addrOf(hp) >= addrOf(tp) {
		t.Fatalf("expected head allocation %#x below tail allocation %#x", addrOf(hp), addrOf(tp))
	}

	h.FreeTags(TailBit, Tag(0xFFFFFFFE))
	// The head block must still be readable/writable: a clean free of
	// the tail block must not disturb head bookkeeping.
	hp[0] = 0x42
	if err := h.Health(); err != nil {
		t.Fatal(err)
	}
}

// S4 - defrag preserves data and relocates.
func TestDefragPreservesData(t *testing.T) {
	h := newTestHeap()

	p1 := h.Alloc(64, Tag(1))
	p2 := h.Alloc(64, Tag(2))
	p3 := h.Alloc(64, Tag(3))
	for i := range p1 {
		p1[i] = 0x11
	}
	for i := range p2 {
		p2[i] = 0x22
	}
	for i := range p3 {
		p3[i] = 0x33
	}

	p1Addr := addrOf(p1)
	want3 := append([]byte(nil), p3...)

	h.Free(p2)
	h.Defrag(func(Tag, []byte) bool { return true })

	if err := h.Health(); err != nil {
		t.Fatal(err)
	}
	if addrOf(p1) != p1Addr {
		t.Fatalf("p1 moved during defrag: unexpected since nothing free preceded it")
	}
	for i, b := range p1 {
		if b != 0x11 {
			t.Fatalf("p1[%d] corrupted: %#x", i, b)
		}
	}

	// p3 must have relocated to immediately follow p1 and kept its bytes.
	part, local, ok := h.ptrToLocal(p1)
	if !ok {
		t.Fatal("p1 no longer resolvable")
	}
	bh := h.readHeader(part, local)
	p3Header := h.readHeader(part, bh.next)
	if p3Header.tag != Tag(3) {
		t.Fatalf("expected tag 3 immediately after p1, got %v", p3Header.tag)
	}
	newP3Off := dataOffset(part, bh.next)
	if !bytes.Equal(h.arena[newP3Off:newP3Off+64], want3) {
		t.Fatal("p3 bytes not preserved across defrag relocation")
	}
}

func TestDefragVeto(t *testing.T) {
	h := newTestHeap()

	p1 := h.Alloc(64, Tag(1))
	_ = h.Alloc(64, Tag(2))
	p2Addr := func() int {
		part, local, _ := h.ptrToLocal(p1)
		bh := h.readHeader(part, local)
		return dataOffset(part, bh.next)
	}()

	h.Free(p1)

	vetoed := false
	h.Defrag(func(tag Tag, proposed []byte) bool {
		if tag == Tag(2) {
			vetoed = true
			return false
		}
		return true
	})

	if !vetoed {
		t.Fatal("defrag never offered the move to the callback")
	}
	part := &h.head
	bh := h.readHeader(part, 0)
	if bh.tag != FreeTag {
		t.Fatalf("vetoed block should leave the free region in place, got tag %v", bh.tag)
	}
	if dataOffset(part, bh.next) != p2Addr {
		t.Fatal("vetoed block must not have moved")
	}
}

func TestReallocBoundary(t *testing.T) {
	h := newTestHeap()

	if got := h.Realloc(nil, 16); got != nil {
		t.Fatalf("Realloc(nil, 16) = %v, want nil", got)
	}

	p := h.Alloc(32, Tag(1))
	if h.Realloc(p, 0) != nil {
		t.Fatal("Realloc(p, 0) should return nil")
	}
	if err := h.Health(); err != nil {
		t.Fatal(err)
	}
}

func TestFreeTagsNoopOnInvertedRange(t *testing.T) {
	h := newTestHeap()
	p := h.Alloc(16, Tag(5))
	f := h.CountFreeHead()

	h.FreeTags(Tag(10), Tag(1)) // lo > hi: no-op
	if got := h.CountFreeHead(); got != f {
		t.Fatalf("FreeTags with lo>hi mutated state: got %d want %d", got, f)
	}

	h.FreeTags(Tag(5), Tag(5))
	if p == nil {
		t.Fatal("alloc failed")
	}
	if err := h.Health(); err != nil {
		t.Fatal(err)
	}
}

func TestAllocOOMWhenLargerThanFreeHead(t *testing.T) {
	h := New(256, 256)
	free := h.CountFreeHead()

	if got := h.Alloc(free+1, Tag(1)); got != nil {
		t.Fatal("expected OOM alloc to fail cleanly")
	}
	if err := h.Health(); err != nil {
		t.Fatal(err)
	}
}

func TestInitIdempotent(t *testing.T) {
	h := newTestHeap()
	f1 := h.CountFreeHead()
	h.Alloc(64, Tag(1))
	h.Init()
	if got := h.CountFreeHead(); got != f1 {
		t.Fatalf("Init not idempotent: CountFreeHead = %d, want %d", got, f1)
	}
}

func TestRandomAllocFreeSequence(t *testing.T) {
	h := newTestHeap()
	var live [][]byte

	for i := 0; i < 200; i++ {
		switch {
		case len(live) > 0 && i%3 == 0:
			idx := i % len(live)
			h.Free(live[idx])
			live = append(live[:idx], live[idx+1:]...)
		default:
			n := 1 + (i*17)%(*allocRndTestLimit/8)
			p := h.Alloc(n, Tag(uint32(i%200)))
			if p != nil {
				live = append(live, p)
			}
		}
		if err := h.Health(); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
	}
}
