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
	"encoding/binary"
	"fmt"
	"sort"
)

// RegionKind is the kind of a region in a sequence.
type RegionKind uint8

const (
	// Normal regions are plain bases.
	Normal RegionKind = iota
	// N regions are runs of unknown bases.
	N
	// Masked regions are soft-masked (lower-case) bases.
	Masked
)

func (k RegionKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case N:
		return "N"
	case Masked:
		return "masked"
	default:
		return fmt.Sprintf("RegionKind(%d)", uint8(k))
	}
}

// Region is a 1-based closed interval of one kind.
type Region struct {
	Kind  RegionKind
	Start int
	End   int
}

// Len returns the number of bases in the region.
func (r Region) Len() int { return r.End - r.Start + 1 }

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Kind, r.Start, r.End)
}

// BlockIndex stores sorted and non-overlapping blocks of one kind,
// with 1-based closed coordinates.
type BlockIndex struct {
	Starts []uint32
	Ends   []uint32
}

// Len returns the number of blocks.
func (idx *BlockIndex) Len() int { return len(idx.Starts) }

// Bases returns the number of bases covered by all blocks.
func (idx *BlockIndex) Bases() int {
	var n int
	for i, s := range idx.Starts {
		n += int(idx.Ends[i]-s) + 1
	}
	return n
}

// Regions returns all blocks as regions of the given kind.
func (idx *BlockIndex) Regions(kind RegionKind) []Region {
	regions := make([]Region, len(idx.Starts))
	for i, s := range idx.Starts {
		regions[i] = Region{Kind: kind, Start: int(s), End: int(idx.Ends[i])}
	}
	return regions
}

// Query returns the closed index range [first, last] of blocks overlapping
// with the closed interval [start, end]. ok is false if there's none.
func (idx *BlockIndex) Query(start, end int) (first, last int, ok bool) {
	n := len(idx.Starts)
	if n == 0 || end < start {
		return -1, -1, false
	}

	// the first block with end >= start
	first = sort.Search(n, func(i int) bool { return int(idx.Ends[i]) >= start })
	if first == n || int(idx.Starts[first]) > end {
		return -1, -1, false
	}

	// the last block with start <= end
	last = first + sort.Search(n-first, func(i int) bool { return int(idx.Starts[first+i]) > end }) - 1
	return first, last, true
}

// contigBlock is the parsed record of one sequence.
type contigBlock struct {
	dnaSize  uint32
	nBlocks  *BlockIndex
	mBlocks  *BlockIndex
	reserved uint32
	packed   []byte // ceil(dnaSize/4) bytes
}

// parseContigBlock parses a sequence record:
//
//	dnaSize, nBlockCount, nBlockStarts, nBlockSizes,
//	maskBlockCount, maskBlockStarts, maskBlockSizes, reserved, packedDNA
func parseContigBlock(data []byte, order binary.ByteOrder) (*contigBlock, error) {
	if len(data) < 8 {
		return nil, ErrBrokenFile
	}
	cb := &contigBlock{dnaSize: order.Uint32(data[:4])}
	offset := 4

	var err error
	cb.nBlocks, offset, err = parseBlocks(data, offset, order, cb.dnaSize)
	if err != nil {
		return nil, err
	}

	if offset+4 > len(data) {
		return nil, ErrBrokenFile
	}
	cb.mBlocks, offset, err = parseBlocks(data, offset, order, cb.dnaSize)
	if err != nil {
		return nil, err
	}

	if offset+4 > len(data) {
		return nil, ErrBrokenFile
	}
	cb.reserved = order.Uint32(data[offset : offset+4])
	offset += 4

	nBytes := int((uint64(cb.dnaSize) + NucsPerByte - 1) / NucsPerByte)
	if offset+nBytes > len(data) {
		return nil, fmt.Errorf("%w: %d bytes of packed bases expected, %d left",
			ErrBrokenFile, nBytes, len(data)-offset)
	}
	cb.packed = data[offset : offset+nBytes]

	return cb, nil
}

// parseBlocks reads a block count, the starts and the sizes at offset,
// and returns the new offset.
func parseBlocks(data []byte, offset int, order binary.ByteOrder, dnaSize uint32) (*BlockIndex, int, error) {
	n := int(order.Uint32(data[offset : offset+4]))
	offset += 4

	// both arrays have to be complete.
	if n < 0 || offset+n*8 > len(data) || offset+n*8 < offset {
		return nil, offset, fmt.Errorf("%w: %d blocks declared, data for %d starts and sizes left",
			ErrBlockMismatch, n, (len(data)-offset)/8)
	}

	idx := &BlockIndex{
		Starts: make([]uint32, n),
		Ends:   make([]uint32, n),
	}
	var start, size uint32
	for i := 0; i < n; i++ {
		start = order.Uint32(data[offset+i*4 : offset+i*4+4])
		size = order.Uint32(data[offset+(n+i)*4 : offset+(n+i)*4+4])
		if size == 0 || uint64(start)+uint64(size) > uint64(dnaSize) {
			return nil, offset, fmt.Errorf("%w: block #%d (start: %d, size: %d) out of sequence length %d",
				ErrBlockMismatch, i+1, start, size, dnaSize)
		}
		// 0-based start -> 1-based closed interval
		idx.Starts[i] = start + 1
		idx.Ends[i] = start + size

		// both starts and ends need to be ascending for binary searches.
		// overlaps of sorted blocks are reported when decoding the positions.
		if i > 0 && (idx.Starts[i] < idx.Starts[i-1] || idx.Ends[i] < idx.Ends[i-1]) {
			return nil, offset, fmt.Errorf("%w: block #%d (%d-%d) not sorted, previous one: %d-%d",
				ErrBlockMismatch, i+1, idx.Starts[i], idx.Ends[i], idx.Starts[i-1], idx.Ends[i-1])
		}
	}
	offset += n * 8

	return idx, offset, nil
}
