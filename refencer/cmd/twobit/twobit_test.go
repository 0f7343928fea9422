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
	"errors"
	"io"
	"os"
	"testing"
)

var _seqs = []testSeq{
	{"chr1", "ACGTACGT"},
	{"chr2", "A"},
	{"chr3", "CATGC"},
	{"chrM", "NNNNacgtACGTnnnnACGTNNacgTAcgNN"},
	{"scaffold_1", "ttttttGATTACAnnnnNNNNAAAAcccccccccGGGGNN"},
	{"chrUn", "NNNNNNNNNNNNN"},
	{"chrLow", "acgtacgtacgtag"},
}

var _modes = []ReadMode{
	ModeNormal,
	SkipNs,
	RawNs,
	SkipMasks,
	IgnoreMasks,
	SkipNs | SkipMasks,
	SkipNs | IgnoreMasks,
	RawNs | SkipMasks,
	RawNs | IgnoreMasks,
}

func TestDecoder(t *testing.T) {
	for _, reverse := range []bool{false, true} {
		d := newDecoder(reverse)

		tests := map[byte]string{
			0x00: "TTTT",
			0x1B: "TCAG",
			0xFF: "GGGG",
			0xE4: "GACT",
			0x27: "TACG",
		}
		var b byte
		for k, v := range tests {
			b = k
			if reverse {
				b = reverseByte(k)
			}
			if s := string(d.tetra(b)[:]); s != v {
				t.Errorf("reverse: %v, byte: %08b, expected: %s, result: %s", reverse, b, v, s)
			}
		}
	}
}

func TestReverseByte(t *testing.T) {
	tests := map[byte]byte{
		0x00: 0x00,
		0x01: 0x80,
		0x1B: 0xD8,
		0xF0: 0x0F,
		0xFF: 0xFF,
	}
	for k, v := range tests {
		if r := reverseByte(k); r != v {
			t.Errorf("%08b: expected %08b, result %08b", k, v, r)
		}
	}
	for i := 0; i < 256; i++ {
		if reverseByte(reverseByte(byte(i))) != byte(i) {
			t.Errorf("reversing %08b twice does not give itself", i)
		}
	}
}

func TestParseAndSeq(t *testing.T) {
	for _, reverse := range []bool{false, true} {
		for _, reverseRecords := range []bool{false, true} {
			data := encodeSeqs(_seqs, reverse, reverseRecords)
			r, err := Parse(data, 2)
			if err != nil {
				t.Errorf("reverse: %v, reverse records: %v, %s", reverse, reverseRecords, err)
				return
			}
			if r.Reverse != reverse {
				t.Errorf("byte order detected wrongly, expected reverse: %v", reverse)
			}
			if len(r.Contigs) != len(_seqs) {
				t.Errorf("expected %d contigs, returned %d", len(_seqs), len(r.Contigs))
				return
			}

			// physical order
			for i, c := range r.Contigs {
				j := i
				if reverseRecords {
					j = len(_seqs) - 1 - i
				}
				if c.Name != _seqs[j].name {
					t.Errorf("contig #%d: expected %s, returned %s", i+1, _seqs[j].name, c.Name)
				}
			}

			for _, s := range _seqs {
				c, ok := r.Contig(s.name)
				if !ok {
					t.Errorf("contig not found: %s", s.name)
					continue
				}
				if c.Len() != len(s.seq) {
					t.Errorf("%s: expected length %d, returned %d", s.name, len(s.seq), c.Len())
					continue
				}

				for _, mode := range _modes {
					seq, err := c.SubSeq(1, c.Len(), mode)
					if err != nil {
						t.Errorf("%s: %s", s.name, err)
						continue
					}
					if e := expected(s.seq, mode); string(seq) != e {
						t.Errorf("%s, mode %04b: expected %s, returned %s", s.name, mode, e, seq)
					}
				}

				// all ranges
				var start, end int
				for start = 1; start <= c.Len(); start++ {
					for end = start; end <= c.Len(); end++ {
						seq, err := c.SubSeq(start, end, ModeNormal)
						if err != nil {
							t.Errorf("%s:%d-%d: %s", s.name, start, end, err)
							continue
						}
						if e := expected(s.seq[start-1:end], ModeNormal); string(seq) != e {
							t.Errorf("%s:%d-%d: expected %s, returned %s", s.name, start, end, e, seq)
						}
					}
				}
			}
		}
	}
}

func TestByteOrderEquivalence(t *testing.T) {
	r1, err := Parse(encodeSeqs(_seqs, false, false), 1)
	if err != nil {
		t.Error(err)
		return
	}
	r2, err := Parse(encodeSeqs(_seqs, true, true), 1)
	if err != nil {
		t.Error(err)
		return
	}

	for _, c1 := range r1.Contigs {
		c2, ok := r2.Contig(c1.Name)
		if !ok {
			t.Errorf("contig not found: %s", c1.Name)
			continue
		}
		s1, err := c1.SubSeq(1, c1.Len(), ModeNormal)
		if err != nil {
			t.Error(err)
			continue
		}
		s2, err := c2.SubSeq(1, c2.Len(), ModeNormal)
		if err != nil {
			t.Error(err)
			continue
		}
		if !bytes.Equal(s1, s2) {
			t.Errorf("%s: forward: %s, reverse: %s", c1.Name, s1, s2)
		}
	}
}

func TestSeqIsIdempotent(t *testing.T) {
	r, err := Parse(encodeSeqs(_seqs, false, false), 1)
	if err != nil {
		t.Error(err)
		return
	}
	c, _ := r.Contig("scaffold_1")

	s1, _ := c.SubSeq(3, 30, ModeNormal)
	s2, _ := c.SubSeq(3, 30, ModeNormal)
	if !bytes.Equal(s1, s2) {
		t.Errorf("different results of the same range: %s, %s", s1, s2)
	}

	// two iterators of the same contig are independent
	it1, _ := c.Seq(1, c.Len(), ModeNormal)
	it2, _ := c.Seq(1, c.Len(), ModeNormal)
	var buf1, buf2 []byte
	var b byte
	var ok bool
	for {
		if b, ok = it1.Next(); !ok {
			break
		}
		buf1 = append(buf1, b)
		if b, ok = it2.Next(); ok {
			buf2 = append(buf2, b)
		}
	}
	for {
		if b, ok = it2.Next(); !ok {
			break
		}
		buf2 = append(buf2, b)
	}
	if !bytes.Equal(buf1, buf2) || string(buf1) != expected(_seqs[4].seq, ModeNormal) {
		t.Errorf("interleaved iterators: %s, %s", buf1, buf2)
	}
}

func TestRange(t *testing.T) {
	r, err := Parse(encodeSeqs(_seqs, false, false), 1)
	if err != nil {
		t.Error(err)
		return
	}
	c, _ := r.Contig("chr1")
	n := c.Len()

	for _, rg := range [][2]int{{1, 1}, {n, n}, {1, n}} {
		if _, err = c.Seq(rg[0], rg[1], ModeNormal); err != nil {
			t.Errorf("%d-%d: unexpected error: %s", rg[0], rg[1], err)
		}
	}

	var e *RangeError
	for _, rg := range [][2]int{{0, 1}, {n + 1, n + 1}, {5, 3}, {1, n + 1}, {-1, 2}} {
		_, err = c.Seq(rg[0], rg[1], ModeNormal)
		if !errors.As(err, &e) {
			t.Errorf("%d-%d: RangeError expected, returned: %v", rg[0], rg[1], err)
		}
	}

	// still usable
	b, err := c.NucleotideAt(3)
	if err != nil || b != 'G' {
		t.Errorf("unexpected base at 3: %c, %v", b, err)
	}
	if _, err = c.NucleotideAt(9); !errors.As(err, &e) {
		t.Errorf("RangeError expected, returned: %v", err)
	}

	if _, err = c.Seq(1, 2, SkipNs|RawNs); !errors.Is(err, ErrInvalidReadMode) {
		t.Errorf("ErrInvalidReadMode expected, returned: %v", err)
	}
}

func TestIteratorRead(t *testing.T) {
	r, err := Parse(encodeSeqs(_seqs, false, false), 1)
	if err != nil {
		t.Error(err)
		return
	}
	for _, s := range _seqs {
		c, _ := r.Contig(s.name)
		rdr, err := c.Reader(ModeNormal)
		if err != nil {
			t.Error(err)
			continue
		}
		data, err := io.ReadAll(rdr)
		if err != nil {
			t.Error(err)
			continue
		}
		if string(data) != expected(s.seq, ModeNormal) {
			t.Errorf("%s: expected %s, returned %s", s.name, expected(s.seq, ModeNormal), data)
		}
	}
}

func TestRegions(t *testing.T) {
	r, err := Parse(encodeSeqs(_seqs, false, false), 1)
	if err != nil {
		t.Error(err)
		return
	}

	kindOf := func(b byte) RegionKind {
		switch {
		case b == 'N' || b == 'n':
			return N
		case b >= 'a' && b <= 'z':
			return Masked
		default:
			return Normal
		}
	}

	for _, s := range _seqs {
		c, _ := r.Contig(s.name)
		regions := c.Regions()

		pos := 1
		for i, rg := range regions {
			if rg.Start != pos {
				t.Errorf("%s: region #%d (%s) does not start at %d", s.name, i+1, rg, pos)
			}
			if i > 0 && regions[i-1].Kind == rg.Kind {
				t.Errorf("%s: adjacent regions of the same kind: %s, %s", s.name, regions[i-1], rg)
			}
			for p := rg.Start; p <= rg.End; p++ {
				if k := kindOf(s.seq[p-1]); k != rg.Kind {
					t.Errorf("%s: position %d is %s, while region %s", s.name, p, k, rg)
					break
				}
			}
			pos = rg.End + 1
		}
		if pos != c.Len()+1 {
			t.Errorf("%s: regions end at %d, length: %d", s.name, pos-1, c.Len())
		}
	}
}

func TestFormatErrors(t *testing.T) {
	good := encodeSeqs(_seqs[:2], false, false)

	tests := []struct {
		name   string
		modify func([]byte) []byte
		err    error
	}{
		{"signature", func(d []byte) []byte { d[0] = 0; return d }, ErrInvalidSignature},
		{"version", func(d []byte) []byte { d[4] = 1; return d }, ErrVersionMismatch},
		{"reserved", func(d []byte) []byte { d[12] = 1; return d }, ErrInvalidReserved},
		{"header", func(d []byte) []byte { return d[:10] }, ErrBrokenFile},
		{"index", func(d []byte) []byte { return d[:headerSize+3] }, ErrBrokenFile},
		{"packed bases", func(d []byte) []byte { return d[:len(d)-1] }, ErrBrokenFile},
		{"sequence count", func(d []byte) []byte { le.PutUint32(d[8:12], 0xFFFFFFFF); return d[:headerSize] }, ErrBrokenFile},
		{"sequence count with data", func(d []byte) []byte { le.PutUint32(d[8:12], 0xFFFFFFFF); return d }, ErrBrokenFile},
	}

	for _, test := range tests {
		data := test.modify(append([]byte{}, good...))
		r, err := Parse(data, 1)
		if r != nil {
			t.Errorf("%s: no reader should be returned", test.name)
		}
		if !errors.Is(err, test.err) {
			t.Errorf("%s: expected %v, returned %v", test.name, test.err, err)
		}
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("%s: FormatError expected, returned %T", test.name, err)
		}
	}

	// block sizes missing
	records := []testRecord{
		{name: "ok", dna: "ACGT"},
		{name: "bad", dna: "ACGTACGT", nBlocks: [][2]uint32{{0, 2}, {4, 2}}},
	}
	data := encodeRecords(records, false, false)
	// declare 3 N blocks for the last record, the sizes array runs out of data
	off := len(data) - 2 - 4 - 4 - 16 - 4 // packed, reserved, mask count, N blocks, N count
	le.PutUint32(data[off:off+4], 300)
	_, err := Parse(data, 1)
	if !errors.Is(err, ErrBlockMismatch) {
		t.Errorf("ErrBlockMismatch expected, returned %v", err)
	}
	var fe *FormatError
	if errors.As(err, &fe) && fe.Contig != "bad" {
		t.Errorf("error should be reported for contig bad: %s", err)
	}
}

func TestUnsortedBlocks(t *testing.T) {
	tests := []struct {
		name    string
		nBlocks [][2]uint32
	}{
		{"nested", [][2]uint32{{0, 10}, {2, 2}}},
		{"descending", [][2]uint32{{6, 2}, {0, 2}}},
	}
	for _, test := range tests {
		records := []testRecord{
			{name: "ok", dna: "ACGT"},
			{name: "bad", dna: "ACGTACGTACGT", nBlocks: test.nBlocks},
		}
		r, err := Parse(encodeRecords(records, false, false), 1)
		if r != nil {
			t.Errorf("%s: no reader should be returned", test.name)
		}
		if !errors.Is(err, ErrBlockMismatch) {
			t.Errorf("%s: ErrBlockMismatch expected, returned %v", test.name, err)
		}
	}
}

func TestOverlapConflict(t *testing.T) {
	records := []testRecord{
		{name: "bad", dna: "ACGTACGTACGT", nBlocks: [][2]uint32{{1, 4}, {3, 4}}},
	}
	r, err := Parse(encodeRecords(records, false, false), 1)
	if err != nil {
		t.Error(err)
		return
	}
	c, _ := r.Contig("bad")

	// before the overlap
	s, err := c.SubSeq(1, 3, ModeNormal)
	if err != nil || string(s) != "ANN" {
		t.Errorf("unexpected result: %s, %v", s, err)
	}

	_, err = c.SubSeq(1, 12, ModeNormal)
	var e *OverlapConflictError
	if !errors.As(err, &e) {
		t.Errorf("OverlapConflictError expected, returned %v", err)
		return
	}
	if e.Position != 4 || e.Kind != N {
		t.Errorf("unexpected conflict: %s", e)
	}
}

func TestOpen(t *testing.T) {
	file := "t.2bit"
	err := os.WriteFile(file, encodeSeqs(_seqs, false, true), 0644)
	if err != nil {
		t.Error(err)
		return
	}

	r, err := Open(file, 0)
	if err != nil {
		t.Error(err)
		return
	}
	if r.ZeroBased() {
		t.Errorf("coordinates should be 1-based")
	}
	var total int64
	for _, s := range _seqs {
		total += int64(len(s.seq))
		c, ok := r.Contig(s.name)
		if !ok {
			t.Errorf("contig not found: %s", s.name)
			continue
		}
		seq, err := c.SubSeq(1, c.Len(), ModeNormal)
		if err != nil {
			t.Error(err)
			continue
		}
		if string(seq) != expected(s.seq, ModeNormal) {
			t.Errorf("%s: expected %s, returned %s", s.name, expected(s.seq, ModeNormal), seq)
		}
	}
	if r.TotalBases() != total {
		t.Errorf("total bases: expected %d, returned %d", total, r.TotalBases())
	}

	if err = r.Close(); err != nil {
		t.Error(err)
	}

	// clean up

	err = os.RemoveAll(file)
	if err != nil {
		t.Error(err)
		return
	}

	if _, err = Open(file, 0); err == nil {
		t.Errorf("error expected for a missing file")
	}
}
