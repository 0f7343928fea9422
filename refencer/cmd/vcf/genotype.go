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

package vcf

import (
	"strconv"
	"strings"
)

// Zygosity of a sample at a site.
type Zygosity int

const (
	Unknown Zygosity = iota
	// diploid or higher
	Heterozygous
	HomozygousReference
	HomozygousAlternate

	// haploid, i.e., hemizygous
	Reference
	Alternate
)

func (z Zygosity) String() string {
	switch z {
	case Heterozygous:
		return "HETEROZYGOUS"
	case HomozygousReference:
		return "HOMOZYGOUS_REFERENCE"
	case HomozygousAlternate:
		return "HOMOZYGOUS_ALTERNATE"
	case Reference:
		return "REFERENCE"
	case Alternate:
		return "ALTERNATE"
	default:
		return "UNKNOWN"
	}
}

// Genotype is a parsed GT value.
type Genotype struct {
	Alleles []int // allele indexes, -1 for missing values
	Phased  bool
}

// ParseGenotype parses a GT value like "0/1", "1|1", "2" or "./.".
func ParseGenotype(gt string) Genotype {
	var g Genotype
	if gt == "" {
		return g
	}
	g.Phased = strings.IndexByte(gt, '|') >= 0

	var a string
	var i, n int
	var err error
	for {
		i = strings.IndexAny(gt, "/|")
		if i < 0 {
			a = gt
		} else {
			a = gt[:i]
		}

		n, err = strconv.Atoi(a)
		if err != nil || n < 0 {
			n = -1
		}
		g.Alleles = append(g.Alleles, n)

		if i < 0 {
			break
		}
		gt = gt[i+1:]
	}
	return g
}

// Ploidy returns the number of alleles.
func (g Genotype) Ploidy() int { return len(g.Alleles) }

// Zygosity returns the zygosity.
// Genotypes with any missing allele are Unknown.
func (g Genotype) Zygosity() Zygosity {
	if len(g.Alleles) == 0 {
		return Unknown
	}
	for _, a := range g.Alleles {
		if a < 0 {
			return Unknown
		}
	}

	if len(g.Alleles) == 1 {
		if g.Alleles[0] == 0 {
			return Reference
		}
		return Alternate
	}

	a0 := g.Alleles[0]
	for _, a := range g.Alleles[1:] {
		if a != a0 {
			return Heterozygous
		}
	}
	if a0 == 0 {
		return HomozygousReference
	}
	return HomozygousAlternate
}

// IsHomOrHemiAlt tells if the sample carries only one alternate allele,
// either homozygous or hemizygous.
func (g Genotype) IsHomOrHemiAlt() bool {
	z := g.Zygosity()
	return z == HomozygousAlternate || z == Alternate
}
