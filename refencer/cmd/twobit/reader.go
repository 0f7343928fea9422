// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package twobit provides random access to sequences in 2bit files,
// with N blocks and soft-masked blocks decoded on the fly.
package twobit

import (
	"fmt"
	"os"
	"runtime"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"
)

// Reader provides random access to sequences of a 2bit file.
// All contigs share one read-only memory map, which is released by Close().
type Reader struct {
	File     string
	Reverse  bool   // the file is in the reverse byte order
	Version  uint32 // always 0
	Reserved uint32 // always 0

	// Contigs in the physical order of their records
	Contigs []*Contig

	name2contig map[string]*Contig

	fh *os.File
	mm mmap.MMap
}

// Open memory-maps a 2bit file and parses the header and block indexes of all
// sequences, with up to threads goroutines (0 for all CPUs).
// Any error aborts the whole operation and no reader is returned.
func Open(file string, threads int) (*Reader, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, err
	}
	if info.Size() < headerSize {
		fh.Close()
		return nil, &FormatError{File: file, Err: ErrBrokenFile}
	}

	mm, err := mmap.Map(fh, mmap.RDONLY, 0)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("2bit: failed to memory-map %s: %w", file, err)
	}

	r, err := parse(file, mm, threads)
	if err != nil {
		mm.Unmap()
		fh.Close()
		return nil, err
	}
	r.fh = fh
	r.mm = mm
	return r, nil
}

// Parse parses 2bit data in memory. The data should not be modified
// during the lifetime of the reader.
func Parse(data []byte, threads int) (*Reader, error) {
	return parse("", data, threads)
}

func parse(file string, data []byte, threads int) (*Reader, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, &FormatError{File: file, Err: err}
	}

	r := &Reader{
		File:        file,
		Reverse:     h.reverse,
		Version:     h.version,
		Reserved:    h.reserved,
		Contigs:     make([]*Contig, len(h.entries)),
		name2contig: make(map[string]*Contig, len(h.entries)),
	}

	dec := newDecoder(h.reverse)

	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(threads)
	for i, e := range h.entries {
		i, e := i, e
		g.Go(func() error {
			cb, err := parseContigBlock(data[e.offset:int(e.offset)+e.size], h.order)
			if err != nil {
				return &FormatError{File: file, Contig: e.name, Err: err}
			}
			r.Contigs[i] = newContig(e.name, cb, dec)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range r.Contigs {
		r.name2contig[c.Name] = c
	}
	return r, nil
}

// Contig returns the contig of a name.
func (r *Reader) Contig(name string) (*Contig, bool) {
	c, ok := r.name2contig[name]
	return c, ok
}

// Names returns names of all contigs, in the physical order.
func (r *Reader) Names() []string {
	names := make([]string, len(r.Contigs))
	for i, c := range r.Contigs {
		names[i] = c.Name
	}
	return names
}

// ZeroBased tells the coordinate system, which is 1-based and closed.
func (r *Reader) ZeroBased() bool { return false }

// TotalBases returns the sum of all sequence lengths.
func (r *Reader) TotalBases() int64 {
	var n int64
	for _, c := range r.Contigs {
		n += int64(c.length)
	}
	return n
}

// Close releases the memory map and the file.
// Contigs and iterators must not be used after that.
func (r *Reader) Close() error {
	if r.mm == nil {
		return nil
	}
	err := r.mm.Unmap()
	r.mm = nil
	err2 := r.fh.Close()
	if err != nil {
		return err
	}
	return err2
}
