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

import "io"

// Iterator lazily decodes a range of a sequence, one base per step.
// It's not safe for concurrent use, while different iterators
// of the same contig can be used concurrently.
type Iterator struct {
	c    *Contig
	mode ReadMode

	pos int // next position to decode, 1-based
	end int

	byteIdx int                // index of the packed byte in tetra
	tetra   *[NucsPerByte]byte // bases of the current packed byte
	nCur    blockCursor        // cursor of N blocks
	mCur    blockCursor        // cursor of masked blocks
	err     error
}

func newIterator(c *Contig, start, end int, mode ReadMode) *Iterator {
	it := &Iterator{
		c:       c,
		mode:    mode,
		pos:     start,
		end:     end,
		byteIdx: -1,
	}
	if mode&RawNs == 0 {
		it.nCur = newBlockCursor(c.nBlocks, N, start, end)
	}
	if mode&IgnoreMasks == 0 {
		it.mCur = newBlockCursor(c.mBlocks, Masked, start, end)
	}
	return it
}

// Next returns the next base. ok is false when the range is finished
// or an error occurred, which can be checked with Err().
func (it *Iterator) Next() (b byte, ok bool) {
	var inN, inMasked bool
	var p, i int
	for it.err == nil && it.pos <= it.end {
		p = it.pos
		it.pos++

		inN, it.err = it.nCur.contains(p, it.c.Name)
		if it.err != nil {
			return 0, false
		}
		if inN {
			if it.mode&SkipNs != 0 {
				continue
			}
			return 'N', true
		}

		inMasked, it.err = it.mCur.contains(p, it.c.Name)
		if it.err != nil {
			return 0, false
		}
		if inMasked && it.mode&SkipMasks != 0 {
			continue
		}

		// p is 1-based
		i = (p - 1) / NucsPerByte
		if i != it.byteIdx {
			it.byteIdx = i
			it.tetra = it.c.dec.tetra(it.c.packed[i])
		}
		b = it.tetra[(p-1)%NucsPerByte]
		if inMasked {
			b += 'a' - 'A'
		}
		return b, true
	}
	return 0, false
}

// Err returns the error that stopped the iteration.
func (it *Iterator) Err() error { return it.err }

// Read implements io.Reader.
func (it *Iterator) Read(p []byte) (n int, err error) {
	var b byte
	var ok bool
	for n < len(p) {
		b, ok = it.Next()
		if !ok {
			if it.err != nil {
				return n, it.err
			}
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		p[n] = b
		n++
	}
	return n, nil
}

// blockCursor walks through the blocks overlapping with a range.
// Positions to check must be ascending.
type blockCursor struct {
	idx  *BlockIndex
	kind RegionKind
	cur  int
	last int
	ok   bool
}

func newBlockCursor(idx *BlockIndex, kind RegionKind, start, end int) blockCursor {
	first, last, ok := idx.Query(start, end)
	return blockCursor{idx: idx, kind: kind, cur: first, last: last, ok: ok}
}

func (c *blockCursor) contains(p int, contig string) (bool, error) {
	if !c.ok {
		return false, nil
	}
	for c.cur <= c.last && int(c.idx.Ends[c.cur]) < p {
		c.cur++
	}
	if c.cur > c.last {
		c.ok = false
		return false, nil
	}
	if int(c.idx.Starts[c.cur]) > p {
		return false, nil
	}
	if c.cur < c.last && int(c.idx.Starts[c.cur+1]) <= p {
		return true, &OverlapConflictError{Contig: contig, Kind: c.kind, Position: p}
	}
	return true, nil
}
