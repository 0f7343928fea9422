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

// Package vcf reads variants from VCF files,
// with the fields needed for rebuilding personal sequences.
package vcf

import (
	"fmt"
	"io"
	"strings"
)

// MissingValue is the missing value marker in VCF.
const MissingValue = "."

// FilterPass is the FILTER value of variants passing all filters.
const FilterPass = "PASS"

// Variant is one VCF record.
type Variant struct {
	Chrom  string
	Pos    int // 1-based
	ID     string
	Ref    string
	Alt    []string
	Filter string

	Pass    bool // FILTER is PASS
	RefCall bool // no alternate allele, e.g., gVCF reference blocks

	Genotypes []string // GT of all samples
}

func (v *Variant) String() string {
	return fmt.Sprintf("%s:%d %s>%s", v.Chrom, v.Pos, v.Ref, strings.Join(v.Alt, ","))
}

// End returns the last position of the reference allele.
func (v *Variant) End() int { return v.Pos + len(v.Ref) - 1 }

// SelectAllele picks the first sample being homozygous or hemizygous
// for an alternate allele, and returns the sample index and the allele index,
// which is 1-based for ALT. ok is false if no sample qualifies.
func (v *Variant) SelectAllele() (sample int, allele int, ok bool) {
	var g Genotype
	for i, gt := range v.Genotypes {
		g = ParseGenotype(gt)
		if g.IsHomOrHemiAlt() {
			return i, g.Alleles[0], true
		}
	}
	return -1, -1, false
}

// AltAllele returns the ALT sequence of an allele index (1-based).
func (v *Variant) AltAllele(allele int) (string, bool) {
	if allele < 1 || allele > len(v.Alt) {
		return "", false
	}
	return v.Alt[allele-1], true
}

// isRefCall tells if there's no real alternate allele.
func isRefCall(alts []string) bool {
	for _, a := range alts {
		if a != MissingValue && a != "" && a != "<NON_REF>" && a != "<*>" {
			return false
		}
	}
	return true
}

// Iterator is a stream of variants, in ascending order of positions.
type Iterator interface {
	// Next returns the next variant, or io.EOF at the end.
	Next() (*Variant, error)
}

// SliceIterator iterates variants in a list.
type SliceIterator struct {
	variants []*Variant
	i        int
}

// NewSliceIterator creates an iterator of a variant list.
func NewSliceIterator(variants []*Variant) *SliceIterator {
	return &SliceIterator{variants: variants}
}

// Next returns the next variant, or io.EOF at the end.
func (it *SliceIterator) Next() (*Variant, error) {
	if it.i >= len(it.variants) {
		return nil, io.EOF
	}
	v := it.variants[it.i]
	it.i++
	return v, nil
}
