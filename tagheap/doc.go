// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package tagheap implements a two-partition, bidirectional, defragmentable
byte-arena allocator.

A Heap reserves one fixed-size []byte arena up front and splits it into a
head partition and a tail partition. Every live block in either partition
carries a caller-supplied uint32 tag; bit 31 of the tag selects the
partition a block belongs to and also drives FreeTags, which frees every
block in a tag range in one call.

The head partition grows from its low address upward and is the only
partition Defrag ever compacts; it exists to back a pinned LRU content
cache (see package cache) whose entries can be relocated as long as they
are not pinned. The tail partition grows from its high address downward
and is never defragmented; it backs objects whose lifetime is tied to the
engine's level/session structure and is freed in bulk by FreeTags instead.

Heap is not safe for concurrent use. Exactly like a Filer in the lldb
storage layer this package's layout borrows from, a Heap is designed for
consumption by a single goroutine, or by a caller that serializes access
itself; there are no locks here.
*/
package tagheap
