// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin

package guard

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func osPageSize() int { return unix.Getpagesize() }

// GAlloc reserves size bytes of read/write memory bracketed by a
// no-access guard page on either side, and returns a slice aliasing
// the data bytes. file/line identify the call site for GCheckLeaks.
func (g *Guard) GAlloc(size int, file string, line int) ([]byte, error) {
	if size < 1 {
		size = 1
	}

	dataLen := align(guardHeaderSize+size, g.pageSize)
	total := g.pageSize + dataLen + g.pageSize

	mapping, err := unix.Mmap(-1, 0, total, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}

	data := mapping[g.pageSize : g.pageSize+dataLen]
	if err := unix.Mprotect(data, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		_ = unix.Munmap(mapping)
		return nil, err
	}

	putLE64(data[0:8], uint64(size))
	putLE64(data[8:16], canary)

	user := data[guardHeaderSize : guardHeaderSize+size : guardHeaderSize+size]

	r := &region{
		mapping:  mapping,
		data:     data,
		userSize: size,
		allocAt:  Site{File: file, Line: line},
	}
	g.live[addrOf(user)] = r

	return user, nil
}

// GFree overwrites p's bytes with a fill pattern, records the freeing
// site, and protects the entire data region no-access. The address
// range is NOT unmapped until GFlushFreed, so use-after-free keeps
// faulting instead of silently succeeding against reused memory.
func (g *Guard) GFree(p []byte, file string, line int) error {
	r, ok := g.live[addrOf(p)]
	if !ok || r.freed {
		return &ErrUnknownPointer{Op: "GFree"}
	}

	for i := range r.data[guardHeaderSize:] {
		r.data[guardHeaderSize+i] = fillPattern
	}

	if err := unix.Mprotect(r.data, unix.PROT_NONE); err != nil {
		return err
	}

	r.freed = true
	r.freedAt = Site{File: file, Line: line}
	g.numFreed++
	g.pending = append(g.pending, r)

	return nil
}

// GFlushFreed actually unmaps every region freed since the last call,
// releasing their address space.
func (g *Guard) GFlushFreed() error {
	for _, r := range g.pending {
		if r.unmapped {
			continue
		}
		if err := unix.Munmap(r.mapping); err != nil {
			return err
		}
		r.unmapped = true
	}
	return nil
}

func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
