// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tagheap

import "unsafe"

// addrOf returns the address of b's first byte as an int, used only to
// recover which arena offset a previously-returned slice aliases. It
// never dereferences memory outside of b itself.
func addrOf(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	return int(uintptr(unsafe.Pointer(&b[0])))
}
