// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

// Handle is a scoped pin, the Pinned[T]/Sentinel[T] shape the design
// notes call for collapsed to the one element type this module
// actually caches: a byte slice. Construction (PinHandle) pins the
// entry; Release drops that pin exactly once. The zero Handle is not
// valid.
type Handle struct {
	c     *Cache
	id    int
	Bytes []byte
}

// PinHandle is the scoped counterpart to Pin: it pins id and returns a
// Handle whose Release (typically deferred) balances it. Prefer this
// over raw Pin/Unpin at any call site that can hold the handle for a
// single lexical scope.
func (c *Cache) PinHandle(id int) (Handle, error) {
	buf, err := c.Pin(id)
	if err != nil {
		return Handle{}, err
	}
	return Handle{c: c, id: id, Bytes: buf}, nil
}

// Release unpins the entry this handle pinned. Calling it more than
// once on the same Handle is a pin/unpin imbalance.
func (h Handle) Release() {
	h.c.Unpin(h.id)
}
