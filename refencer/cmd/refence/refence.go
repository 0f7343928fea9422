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

// Package refence rebuilds personal sequences by substituting called variants
// into reference contigs. Outputs are produced lazily, base by base.
package refence

import (
	"bytes"
	"io"
	"strings"

	"github.com/shenwei356/ReFencer/refencer/cmd/twobit"
	"github.com/shenwei356/ReFencer/refencer/cmd/vcf"
	"github.com/shenwei356/bio/seq"
)

// Logger receives warnings of skipped variants.
// *logging.Logger from go-logging satisfies it.
type Logger interface {
	Warningf(format string, args ...interface{})
}

type discardLogger struct{}

func (discardLogger) Warningf(string, ...interface{}) {}

// Options contains the options of a Processor.
type Options struct {
	// read mode of reference sequences
	ReadMode twobit.ReadMode

	// logger of skipped variants, nil for discarding them
	Logger Logger

	// also warn about variants overlapping previously applied ones
	WarnOverlaps bool
}

// Processor merges variants into reference contigs.
type Processor struct {
	mode   twobit.ReadMode
	logger Logger

	warnOverlaps bool
}

// NewProcessor creates a Processor. The read mode is checked here.
func NewProcessor(opt *Options) (*Processor, error) {
	if opt == nil {
		opt = &Options{}
	}
	if err := opt.ReadMode.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		mode:         opt.ReadMode,
		logger:       opt.Logger,
		warnOverlaps: opt.WarnOverlaps,
	}
	if p.logger == nil {
		p.logger = discardLogger{}
	}
	return p, nil
}

// Process returns the lazy merged sequence of a contig.
// Variants should be of the contig and sorted by positions.
func (p *Processor) Process(contig *twobit.Contig, variants vcf.Iterator) *Sequence {
	return &Sequence{
		p:        p,
		contig:   contig,
		variants: variants,
		start:    1,
		end:      contig.Len(),
		cursor:   1,
	}
}

// ProcessRegion returns the lazy merged sequence of a region (1-based, closed) of a contig.
// Variants not fully inside the region are not applied.
func (p *Processor) ProcessRegion(contig *twobit.Contig, start, end int, variants vcf.Iterator) (*Sequence, error) {
	if start < 1 || end > contig.Len() || end < start {
		return nil, &twobit.RangeError{Contig: contig.Name, Start: start, End: end, Length: contig.Len()}
	}
	return &Sequence{
		p:        p,
		contig:   contig,
		variants: variants,
		start:    start,
		end:      end,
		cursor:   start,
	}, nil
}

// Stats counts the processed variants of a contig.
type Stats struct {
	Contig string `toml:"contig"`

	Applied     int `toml:"applied"`
	Filtered    int `toml:"filtered"`      // FILTER is not PASS
	RefCalls    int `toml:"ref-calls"`     // no alternate allele
	NoGenotype  int `toml:"no-genotype"`   // no homozygous or hemizygous alternate sample
	Overlapping int `toml:"overlapping"`   // starting before the end of the previous applied one
	InvalidAlt  int `toml:"invalid-alt"`   // ALT with unknown symbols or allele index out of range
	OutOfRange  int `toml:"out-of-range"`  // REF span exceeding the contig or crossing the region
	OutOfRegion int `toml:"out-of-region"` // outside of the region
	OtherContig int `toml:"other-contig"`  // of a different contig

	InsertedBases int `toml:"inserted-bases"`
	DeletedBases  int `toml:"deleted-bases"`
}

// Add adds up the counts of another Stats.
func (s *Stats) Add(o *Stats) {
	s.Applied += o.Applied
	s.Filtered += o.Filtered
	s.RefCalls += o.RefCalls
	s.NoGenotype += o.NoGenotype
	s.Overlapping += o.Overlapping
	s.InvalidAlt += o.InvalidAlt
	s.OutOfRange += o.OutOfRange
	s.OutOfRegion += o.OutOfRegion
	s.OtherContig += o.OtherContig
	s.InsertedBases += o.InsertedBases
	s.DeletedBases += o.DeletedBases
}

// Total returns the number of all variants.
func (s *Stats) Total() int {
	return s.Applied + s.Filtered + s.RefCalls + s.NoGenotype +
		s.Overlapping + s.InvalidAlt + s.OutOfRange + s.OutOfRegion + s.OtherContig
}

// Sequence is the lazily merged sequence of a contig.
// It's not safe for concurrent use.
type Sequence struct {
	p        *Processor
	contig   *twobit.Contig
	variants vcf.Iterator

	start, end int // the region to output, 1-based and closed
	cursor     int // the next reference position to output

	ref    *twobit.Iterator // pending reference bases
	alt    string           // pending ALT bases
	altIdx int

	finished bool // all variants are consumed
	err      error

	stats Stats
}

// Name returns the contig name.
func (s *Sequence) Name() string { return s.contig.Name }

// Next returns the next base. ok is false at the end or on an error,
// which is returned by Err().
func (s *Sequence) Next() (b byte, ok bool) {
	for {
		if s.ref != nil {
			if b, ok = s.ref.Next(); ok {
				return b, true
			}
			if err := s.ref.Err(); err != nil {
				s.err = err
				return 0, false
			}
			s.ref = nil
		}

		if s.altIdx < len(s.alt) {
			b = s.alt[s.altIdx]
			s.altIdx++
			return b, true
		}

		if s.finished || s.err != nil {
			return 0, false
		}

		s.advance()
	}
}

// Err returns the first error.
func (s *Sequence) Err() error { return s.err }

// Read implements io.Reader.
func (s *Sequence) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	var b byte
	var ok bool
	for n < len(p) {
		if b, ok = s.Next(); !ok {
			break
		}
		p[n] = b
		n++
	}
	if n > 0 {
		return n, nil
	}
	if s.err != nil {
		return 0, s.err
	}
	return 0, io.EOF
}

// Stats returns the counts of variants processed so far.
func (s *Sequence) Stats() Stats {
	stats := s.stats
	stats.Contig = s.contig.Name
	return stats
}

// advance consumes the next variant and queues the bases to output.
func (s *Sequence) advance() {
	v, err := s.variants.Next()
	if err != nil {
		if err != io.EOF {
			s.err = err
			return
		}

		// the rest of the reference
		s.queueRef(s.cursor, s.end)
		s.cursor = s.end + 1
		s.finished = true
		return
	}

	if v.Chrom != s.contig.Name {
		s.stats.OtherContig++
		return
	}
	if !v.Pass {
		s.stats.Filtered++
		return
	}
	if v.RefCall {
		s.stats.RefCalls++
		return
	}

	_, allele, ok := v.SelectAllele()
	if !ok {
		s.stats.NoGenotype++
		return
	}

	end := v.End()
	if v.Pos > s.contig.Len() {
		s.stats.OutOfRange++
		s.p.logger.Warningf("%s: position out of range of the contig (length: %d), skipped", v, s.contig.Len())
		return
	}
	if end < s.start || v.Pos > s.end {
		s.stats.OutOfRegion++
		return
	}
	if v.Pos < s.start {
		s.stats.OutOfRange++
		s.p.logger.Warningf("%s: REF crossing the start of region %s:%d-%d, skipped", v, s.contig.Name, s.start, s.end)
		return
	}

	if v.Pos < s.cursor {
		s.stats.Overlapping++
		if s.p.warnOverlaps {
			s.p.logger.Warningf("%s: variant overlapping a previous one, skipped", v)
		}
		return
	}

	if end > s.end {
		s.stats.OutOfRange++
		if s.end == s.contig.Len() {
			s.p.logger.Warningf("%s: REF out of range of the contig (length: %d), skipped", v, s.contig.Len())
		} else {
			s.p.logger.Warningf("%s: REF crossing the end of region %s:%d-%d, skipped", v, s.contig.Name, s.start, s.end)
		}
		return
	}

	alt, ok := v.AltAllele(allele)
	if !ok {
		s.stats.InvalidAlt++
		s.p.logger.Warningf("%s: allele index %d out of range, the reference is kept", v, allele)
		s.queueRef(s.cursor, end)
		s.cursor = end + 1
		return
	}
	if !IsValidAlt(alt) {
		s.stats.InvalidAlt++
		s.p.logger.Warningf("%s: invalid ALT: %s, the reference is kept", v, alt)
		s.queueRef(s.cursor, end)
		s.cursor = end + 1
		return
	}

	s.queueRef(s.cursor, v.Pos-1)
	s.alt = strings.ToUpper(alt)
	s.altIdx = 0
	s.cursor = end + 1

	s.stats.Applied++
	if d := len(alt) - len(v.Ref); d > 0 {
		s.stats.InsertedBases += d
	} else {
		s.stats.DeletedBases -= d
	}
}

func (s *Sequence) queueRef(start, end int) {
	if end < start {
		return
	}
	s.ref, s.err = s.contig.Seq(start, end, s.p.mode)
}

// symbols allowed by the alphabet but meaningless in an allele
var invalidAltSymbols = []byte{'-', '.', '*', ' '}

// IsValidAlt checks if an ALT allele is a plain DNA sequence
// of IUPAC symbols. Missing values, deletions of upstream bases ("*")
// and symbolic alleles are not.
func IsValidAlt(alt string) bool {
	if alt == "" || alt == vcf.MissingValue {
		return false
	}
	if alt[0] == '<' || strings.ContainsAny(alt, "[]") { // <DEL>, breakends
		return false
	}
	b := []byte(alt)
	if bytes.ContainsAny(b, string(invalidAltSymbols)) {
		return false
	}
	return seq.DNAredundant.IsValid(b) == nil
}

// ReadAll outputs the whole sequence.
func ReadAll(s *Sequence) ([]byte, error) {
	buf := make([]byte, 0, s.contig.Len())
	var b byte
	var ok bool
	for {
		if b, ok = s.Next(); !ok {
			break
		}
		buf = append(buf, b)
	}
	return buf, s.err
}
