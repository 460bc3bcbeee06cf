// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package guard implements a debug-build allocator that wraps every
allocation in hardware-enforced guard pages, so that overflow,
underflow and use-after-free turn into a SIGSEGV/SIGBUS at the faulting
instruction instead of silent heap corruption.

Each allocation reserves three page-aligned regions in one mmap: a
leading no-access guard page, a read/write data page range sized to the
request (rounded up to a whole number of pages), and a trailing
no-access guard page. GFree fills the user bytes with a recognizable
pattern, records the freeing site, and then protects the entire data
range no-access, but does not unmap it. That keeps the address range
reserved and faulting on any further access until GFlushFreed actually
releases it, so a use-after-free a long time after the matching GFree
still faults instead of landing on reused memory.

Guard is meant for debug builds only; it is not safe for concurrent
use, matching the rest of this module.
*/
package guard
