// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux && !darwin

package guard

import "errors"

// ErrUnsupported is returned by GAlloc, GFree and GFlushFreed on
// platforms where golang.org/x/sys/unix's mmap/mprotect primitives
// aren't available.
var ErrUnsupported = errors.New("guard: not supported on this platform")

func osPageSize() int { return 4096 }

func (g *Guard) GAlloc(size int, file string, line int) ([]byte, error) {
	return nil, ErrUnsupported
}

func (g *Guard) GFree(p []byte, file string, line int) error {
	return ErrUnsupported
}

func (g *Guard) GFlushFreed() error {
	return ErrUnsupported
}
