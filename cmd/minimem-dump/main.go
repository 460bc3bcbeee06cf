// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Minimem-dump opens a WAD file, drives the content cache over a
// sample of its lumps, and prints the heap/LRU/pin diagnostic dump.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bdpedersen/minimem/cache"
	"github.com/bdpedersen/minimem/tagheap"
	"github.com/bdpedersen/minimem/wad"
)

var (
	wadPath  = flag.String("wad", "", "path to a WAD file to open")
	headSize = flag.Int("head", tagheap.DefaultHeadSize, "head (cache) partition size in bytes")
	tailSize = flag.Int("tail", tagheap.DefaultTailSize, "tail (objects) partition size in bytes")
	pinLump  = flag.String("pin", "", "name of a lump to pin for the duration of the dump")
	loadAll  = flag.Bool("load-all", false, "cache every lump in the WAD before dumping")
)

func main() {
	log.SetFlags(log.Lshortfile)
	flag.Parse()

	if *wadPath == "" {
		fmt.Fprintln(os.Stderr, "usage: minimem-dump -wad <path> [-head N] [-tail N] [-pin NAME] [-load-all]")
		os.Exit(2)
	}

	pkg, err := wad.Open(*wadPath)
	if err != nil {
		log.Fatal(err)
	}
	defer pkg.Close()

	h := tagheap.New(*headSize, *tailSize)
	c := cache.New(pkg, h)

	if *loadAll {
		for id := 0; id < pkg.NumLumps(); id++ {
			if _, err := c.CacheLumpNum(id); err != nil {
				log.Printf("lump %d (%s): %v", id, pkg.LumpName(id), err)
			}
		}
	}

	if *pinLump != "" {
		id := c.CheckNumForName(*pinLump)
		if id < 0 {
			log.Fatalf("no such lump: %s", *pinLump)
		}
		if _, err := c.Pin(id); err != nil {
			log.Fatal(err)
		}
		defer c.Unpin(id)
	}

	fmt.Print(c.DumpState().String())

	if err := h.Health(); err != nil {
		log.Fatal(err)
	}
}
