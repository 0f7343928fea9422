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

// ForwardSignature is the signature of 2bit files, read in little-endian.
const ForwardSignature uint32 = 0x1A412743

// ReverseSignature is the signature read from files in the reverse byte order.
const ReverseSignature uint32 = 0x4327411A

// Version is the only supported version.
const Version uint32 = 0

// signature, version, sequence count, reserved
const headerSize = 16

var le = binary.LittleEndian
var be = binary.BigEndian

// indexEntry is one record of the sequence index in the header.
type indexEntry struct {
	name   string
	offset uint32
	size   int // bytes of the sequence record, computed from the offsets
}

type header struct {
	reverse  bool
	order    binary.ByteOrder
	version  uint32
	nSeqs    uint32
	reserved uint32

	entries []*indexEntry // in the physical order of sequence records
}

// parseHeader checks the signature, version and reserved field,
// and reads the sequence index.
func parseHeader(data []byte) (*header, error) {
	if len(data) < headerSize {
		return nil, ErrBrokenFile
	}

	h := &header{}
	switch le.Uint32(data[:4]) {
	case ForwardSignature:
		h.order = le
	case ReverseSignature:
		h.reverse = true
		h.order = be
	default:
		return nil, fmt.Errorf("%w: 0x%08X", ErrInvalidSignature, le.Uint32(data[:4]))
	}

	h.version = h.order.Uint32(data[4:8])
	if h.version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersionMismatch, h.version)
	}
	h.nSeqs = h.order.Uint32(data[8:12])
	h.reserved = h.order.Uint32(data[12:16])
	if h.reserved != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidReserved, h.reserved)
	}

	// ------------------------------------------------------------
	// sequence index

	// an index entry takes at least 5 bytes: name length, empty name, offset.
	if uint64(h.nSeqs)*5 > uint64(len(data)-headerSize) {
		return nil, fmt.Errorf("%w: %d sequences declared, index truncated", ErrBrokenFile, h.nSeqs)
	}

	offset := headerSize
	var nameLen int
	names := make(map[string]struct{}, h.nSeqs)
	h.entries = make([]*indexEntry, 0, h.nSeqs)
	for i := uint32(0); i < h.nSeqs; i++ {
		if offset >= len(data) {
			return nil, ErrBrokenFile
		}
		nameLen = int(data[offset])
		offset++
		if offset+nameLen+4 > len(data) {
			return nil, ErrBrokenFile
		}
		e := &indexEntry{name: string(data[offset : offset+nameLen])}
		offset += nameLen
		e.offset = h.order.Uint32(data[offset : offset+4])
		offset += 4

		if _, ok := names[e.name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateContig, e.name)
		}
		names[e.name] = struct{}{}

		h.entries = append(h.entries, e)
	}

	// ------------------------------------------------------------
	// sequence records follow the physical order, which is not always
	// the declared order. e.g., some writers save records in reverse.

	sort.SliceStable(h.entries, func(i, j int) bool {
		return h.entries[i].offset < h.entries[j].offset
	})

	last := len(h.entries) - 1
	for i, e := range h.entries {
		if int(e.offset) < offset || int(e.offset) > len(data) {
			return nil, fmt.Errorf("%w: offset of %s (%d) out of range", ErrBrokenFile, e.name, e.offset)
		}
		if i == last {
			e.size = len(data) - int(e.offset)
		} else {
			e.size = int(h.entries[i+1].offset) - int(e.offset)
		}
	}

	return h, nil
}
