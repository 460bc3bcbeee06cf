// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package wad reads the id Software WAD archive format: a 12-byte header
(a 4-byte magic, a lump count and a directory offset, both little
endian int32), a directory of 16-byte entries (file position, size,
and an 8-byte zero-padded uppercase name), and the lump bodies
themselves at the offsets the directory names.

Package exposes exactly the two primitives the rest of this module
treats as an external collaborator, WR_Init (Open/OpenBytes) and
WR_Read (Package.Read), plus the directory name lookup the content
cache's CheckNumForName delegates to.
*/
package wad
