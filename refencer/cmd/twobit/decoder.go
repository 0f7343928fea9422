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

// NucsPerByte is the number of bases packed in one byte.
const NucsPerByte = 4

// base order of the 2-bit codes: 00, 01, 10, 11
var bit2base = [4]byte{'T', 'C', 'A', 'G'}

// decoder maps a packed byte to its tetra-nucleotide.
// One decoder is built for every opened file, because
// files in reverse byte order need a bit-reversed table.
type decoder struct {
	reverse bool
	table   [256][NucsPerByte]byte
}

func newDecoder(reverse bool) *decoder {
	d := &decoder{reverse: reverse}

	var i int
	var idx byte
	for _, c := range bit2base {
		for _, e := range bit2base {
			for _, f := range bit2base {
				for _, g := range bit2base {
					idx = byte(i)
					if reverse {
						idx = reverseByte(idx)
					}
					d.table[idx] = [NucsPerByte]byte{c, e, f, g}
					i++
				}
			}
		}
	}
	return d
}

// tetra returns the 4 bases of a packed byte.
func (d *decoder) tetra(b byte) *[NucsPerByte]byte {
	return &d.table[b]
}

// reverseByte reverses the bit order of a byte.
func reverseByte(b byte) byte {
	b = b>>4 | b<<4
	b = (b&0xcc)>>2 | (b&0x33)<<2
	b = (b&0xaa)>>1 | (b&0x55)<<1
	return b
}
