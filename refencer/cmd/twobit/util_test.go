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
	"bytes"
	"encoding/binary"
)

// testSeq is a sequence for building 2bit data in tests.
// Ns are saved as N blocks, and lower-case bases are saved as masked blocks.
type testSeq struct {
	name string
	seq  string
}

var base2bit = map[byte]byte{'T': 0, 'C': 1, 'A': 2, 'G': 3}

// testRecord is a sequence record with explicit blocks (0-based starts, sizes).
type testRecord struct {
	name    string
	dna     string // bases to pack, N would be packed as T
	nBlocks [][2]uint32
	mBlocks [][2]uint32
}

func toRecord(s testSeq) testRecord {
	r := testRecord{name: s.name, dna: s.seq}
	r.nBlocks = runs(s.seq, func(b byte) bool { return b == 'N' || b == 'n' })
	r.mBlocks = runs(s.seq, func(b byte) bool { return b >= 'a' && b <= 'z' })
	return r
}

func runs(s string, in func(byte) bool) [][2]uint32 {
	var blocks [][2]uint32
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && in(s[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			blocks = append(blocks, [2]uint32{uint32(start), uint32(i - start)})
			start = -1
		}
	}
	return blocks
}

// encodeSeqs builds a 2bit file.
// reverse: use the reverse byte order.
// reverseRecords: save sequence records in the reverse order of the index.
func encodeSeqs(seqs []testSeq, reverse bool, reverseRecords bool) []byte {
	records := make([]testRecord, len(seqs))
	for i, s := range seqs {
		records[i] = toRecord(s)
	}
	return encodeRecords(records, reverse, reverseRecords)
}

func encodeRecords(records []testRecord, reverse bool, reverseRecords bool) []byte {
	var order binary.ByteOrder = binary.LittleEndian
	sig := ForwardSignature
	if reverse {
		order = binary.BigEndian
		sig = ForwardSignature // written in big-endian, it's read as the reverse signature
	}

	u32 := func(buf *bytes.Buffer, v uint32) {
		var b [4]byte
		order.PutUint32(b[:], v)
		buf.Write(b[:])
	}

	bodies := make([][]byte, len(records))
	for i, r := range records {
		bodies[i] = encodeRecord(r, order, reverse)
	}

	headerLen := headerSize
	for _, r := range records {
		headerLen += 1 + len(r.name) + 4
	}

	// offsets of records
	offsets := make([]uint32, len(records))
	offset := uint32(headerLen)
	if reverseRecords {
		for i := len(records) - 1; i >= 0; i-- {
			offsets[i] = offset
			offset += uint32(len(bodies[i]))
		}
	} else {
		for i := range records {
			offsets[i] = offset
			offset += uint32(len(bodies[i]))
		}
	}

	var buf bytes.Buffer
	u32(&buf, sig)
	u32(&buf, 0)
	u32(&buf, uint32(len(records)))
	u32(&buf, 0)
	for i, r := range records {
		buf.WriteByte(byte(len(r.name)))
		buf.WriteString(r.name)
		u32(&buf, offsets[i])
	}
	if reverseRecords {
		for i := len(records) - 1; i >= 0; i-- {
			buf.Write(bodies[i])
		}
	} else {
		for i := range records {
			buf.Write(bodies[i])
		}
	}
	return buf.Bytes()
}

func encodeRecord(r testRecord, order binary.ByteOrder, reverse bool) []byte {
	var buf bytes.Buffer
	u32 := func(v uint32) {
		var b [4]byte
		order.PutUint32(b[:], v)
		buf.Write(b[:])
	}

	u32(uint32(len(r.dna)))
	for _, blocks := range [][][2]uint32{r.nBlocks, r.mBlocks} {
		u32(uint32(len(blocks)))
		for _, b := range blocks {
			u32(b[0])
		}
		for _, b := range blocks {
			u32(b[1])
		}
	}
	u32(0)

	var code, b byte
	for i := 0; i < len(r.dna); i += 4 {
		b = 0
		for j := 0; j < 4; j++ {
			code = 0
			if i+j < len(r.dna) {
				code = base2bit[bytes.ToUpper([]byte{r.dna[i+j]})[0]]
			}
			b = b<<2 | code
		}
		if reverse {
			b = reverseByte(b)
		}
		buf.WriteByte(b)
	}
	return buf.Bytes()
}

// expected returns the sequence as decoded in the given mode.
func expected(s string, mode ReadMode) string {
	out := make([]byte, 0, len(s))
	var c byte
	for i := 0; i < len(s); i++ {
		c = s[i]
		if c == 'N' || c == 'n' {
			if mode&SkipNs != 0 {
				continue
			}
			if mode&RawNs == 0 {
				out = append(out, 'N')
				continue
			}
			// packed as T
			if c == 'n' {
				c = 't'
			} else {
				c = 'T'
			}
		}
		if c >= 'a' && c <= 'z' {
			if mode&SkipMasks != 0 {
				continue
			}
			if mode&IgnoreMasks != 0 {
				c -= 'a' - 'A'
			}
		}
		out = append(out, c)
	}
	return string(out)
}
