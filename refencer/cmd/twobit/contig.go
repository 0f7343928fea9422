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

package twobit

import (
	"io"
	"strings"
)

// ReadMode controls how N blocks and masked blocks are presented.
type ReadMode uint8

const (
	// ModeNormal outputs N blocks as 'N' and masked blocks in lower case.
	ModeNormal ReadMode = 0
	// SkipNs omits bases in N blocks.
	SkipNs ReadMode = 1 << 0
	// RawNs outputs the packed bases of N blocks, as if they were normal bases.
	RawNs ReadMode = 1 << 1
	// SkipMasks omits bases in masked blocks.
	SkipMasks ReadMode = 1 << 2
	// IgnoreMasks outputs masked bases in upper case.
	IgnoreMasks ReadMode = 1 << 3
)

// Validate checks if the flags conflict with each other.
func (m ReadMode) Validate() error {
	if m&SkipNs != 0 && m&RawNs != 0 {
		return ErrInvalidReadMode
	}
	if m&SkipMasks != 0 && m&IgnoreMasks != 0 {
		return ErrInvalidReadMode
	}
	if m > SkipNs|RawNs|SkipMasks|IgnoreMasks {
		return ErrInvalidReadMode
	}
	return nil
}

func (m ReadMode) String() string {
	if m == ModeNormal {
		return "normal"
	}
	modes := make([]string, 0, 2)
	if m&SkipNs != 0 {
		modes = append(modes, "skip-n")
	}
	if m&RawNs != 0 {
		modes = append(modes, "raw-n")
	}
	if m&SkipMasks != 0 {
		modes = append(modes, "skip-masks")
	}
	if m&IgnoreMasks != 0 {
		modes = append(modes, "ignore-masks")
	}
	return strings.Join(modes, ",")
}

// Contig is one sequence in a 2bit file.
type Contig struct {
	Name     string
	Reserved uint32 // reserved field of the sequence record

	length  int
	nBlocks *BlockIndex
	mBlocks *BlockIndex
	packed  []byte // shared with the memory map of the file
	dec     *decoder
}

func newContig(name string, cb *contigBlock, dec *decoder) *Contig {
	return &Contig{
		Name:     name,
		Reserved: cb.reserved,
		length:   int(cb.dnaSize),
		nBlocks:  cb.nBlocks,
		mBlocks:  cb.mBlocks,
		packed:   cb.packed,
		dec:      dec,
	}
}

// Len returns the number of bases.
func (c *Contig) Len() int { return c.length }

// NBlocks returns the index of N blocks.
func (c *Contig) NBlocks() *BlockIndex { return c.nBlocks }

// MaskBlocks returns the index of masked blocks.
func (c *Contig) MaskBlocks() *BlockIndex { return c.mBlocks }

// ContainsNs tells if there's any N block.
func (c *Contig) ContainsNs() bool { return c.nBlocks.Len() > 0 }

// ContainsMasked tells if there's any masked block.
func (c *Contig) ContainsMasked() bool { return c.mBlocks.Len() > 0 }

// NRegions returns all N blocks.
func (c *Contig) NRegions() []Region { return c.nBlocks.Regions(N) }

// MaskedRegions returns all masked blocks.
func (c *Contig) MaskedRegions() []Region { return c.mBlocks.Regions(Masked) }

// Seq returns a lazy iterator of bases from start to end (1-based, both included).
// Every call returns an independent iterator.
func (c *Contig) Seq(start, end int, mode ReadMode) (*Iterator, error) {
	if start < 1 || end > c.length || end < start {
		return nil, &RangeError{Contig: c.Name, Start: start, End: end, Length: c.length}
	}
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	return newIterator(c, start, end, mode), nil
}

// NucleotideAt returns the base at a 1-based position.
func (c *Contig) NucleotideAt(pos int) (byte, error) {
	it, err := c.Seq(pos, pos, ModeNormal)
	if err != nil {
		return 0, err
	}
	b, ok := it.Next()
	if !ok {
		return 0, it.Err()
	}
	return b, nil
}

// SubSeq returns the bases from start to end (1-based, both included).
func (c *Contig) SubSeq(start, end int, mode ReadMode) ([]byte, error) {
	it, err := c.Seq(start, end, mode)
	if err != nil {
		return nil, err
	}
	s := make([]byte, 0, end-start+1)
	var b byte
	var ok bool
	for {
		b, ok = it.Next()
		if !ok {
			break
		}
		s = append(s, b)
	}
	return s, it.Err()
}

// Reader returns an io.Reader of the whole sequence.
func (c *Contig) Reader(mode ReadMode) (io.Reader, error) {
	if c.length == 0 {
		return eofReader{}, nil
	}
	it, err := c.Seq(1, c.length, mode)
	if err != nil {
		return nil, err
	}
	return it, nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// Regions splits the sequence into consecutive regions of normal bases,
// N blocks and masked blocks. N blocks take precedence over masked blocks.
func (c *Contig) Regions() []Region {
	regions := make([]Region, 0, 2*(c.nBlocks.Len()+c.mBlocks.Len())+1)

	add := func(kind RegionKind, start, end int) {
		if end < start {
			return
		}
		n := len(regions)
		if n > 0 && regions[n-1].Kind == kind && regions[n-1].End+1 == start {
			regions[n-1].End = end
			return
		}
		regions = append(regions, Region{Kind: kind, Start: start, End: end})
	}

	// masked and normal bases in [start, end], which contains no N blocks.
	var m int
	addMasked := func(start, end int) {
		for m < c.mBlocks.Len() && int(c.mBlocks.Ends[m]) < start {
			m++
		}
		pos := start
		var s, e int
		for j := m; j < c.mBlocks.Len() && int(c.mBlocks.Starts[j]) <= end; j++ {
			s, e = int(c.mBlocks.Starts[j]), int(c.mBlocks.Ends[j])
			if s < pos {
				s = pos
			}
			if e > end {
				e = end
			}
			add(Normal, pos, s-1)
			add(Masked, s, e)
			pos = e + 1
		}
		add(Normal, pos, end)
	}

	pos := 1
	var s, e int
	for i := range c.nBlocks.Starts {
		s, e = int(c.nBlocks.Starts[i]), int(c.nBlocks.Ends[i])
		if s < pos { // corrupted, overlapping blocks
			s = pos
		}
		addMasked(pos, s-1)
		add(N, s, e)
		pos = e + 1
	}
	addMasked(pos, c.length)

	return regions
}
