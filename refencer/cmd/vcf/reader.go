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
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shenwei356/ReFencer/refencer/util"
	"github.com/shenwei356/xopen"
)

// BufferSize is the maximum size of a line.
var BufferSize = 1 << 20

// number of fixed columns: CHROM POS ID REF ALT QUAL FILTER INFO
const nFixedColumns = 8

var ErrTooFewColumns = errors.New("vcf: too few columns")
var ErrInvalidPosition = errors.New("vcf: invalid position")
var ErrEmptyRef = errors.New("vcf: empty REF")

// ParseError is an error of a malformed line.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: line %d: %s", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader reads variants from a plain or gzipped VCF file.
type Reader struct {
	File    string
	Samples []string

	fh      *xopen.Reader
	scanner *bufio.Scanner
	line    int

	items []string
	err   error
}

// NewReader creates a streaming reader of a VCF file. "-" for stdin.
func NewReader(file string) (*Reader, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		File:  file,
		fh:    fh,
		items: make([]string, nFixedColumns+2),
	}

	r.scanner = bufio.NewScanner(fh)
	r.scanner.Buffer(make([]byte, 64<<10), BufferSize)
	return r, nil
}

// Next returns the next variant, or io.EOF at the end.
func (r *Reader) Next() (*Variant, error) {
	if r.err != nil {
		return nil, r.err
	}

	var line string
	for r.scanner.Scan() {
		r.line++
		line = strings.TrimRight(r.scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		if line[0] == '#' {
			if strings.HasPrefix(line, "#CHROM") {
				r.parseSamples(line)
			}
			continue
		}

		v, err := r.parse(line)
		if err != nil {
			r.err = &ParseError{File: r.File, Line: r.line, Err: err}
			return nil, r.err
		}
		return v, nil
	}
	if err := r.scanner.Err(); err != nil {
		r.err = err
		return nil, err
	}

	r.err = io.EOF
	return nil, io.EOF
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.fh.Close()
}

func (r *Reader) parseSamples(line string) {
	items := strings.Split(line, "\t")
	if len(items) > nFixedColumns+1 {
		r.Samples = items[nFixedColumns+1:]
	}
}

func (r *Reader) parse(line string) (*Variant, error) {
	util.StringSplitNByByte(line, '\t', nFixedColumns+2, &r.items)
	items := r.items
	if len(items) < nFixedColumns {
		return nil, fmt.Errorf("%w: %d (<%d)", ErrTooFewColumns, len(items), nFixedColumns)
	}

	pos, err := strconv.Atoi(items[1])
	if err != nil || pos < 1 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPosition, items[1])
	}
	if items[3] == "" || items[3] == MissingValue {
		return nil, ErrEmptyRef
	}

	v := &Variant{
		Chrom:  items[0],
		Pos:    pos,
		ID:     items[2],
		Ref:    strings.ToUpper(items[3]),
		Alt:    strings.Split(items[4], ","),
		Filter: items[6],
	}
	v.Pass = v.Filter == FilterPass
	v.RefCall = isRefCall(v.Alt)

	// FORMAT and samples
	if len(items) == nFixedColumns+2 {
		k := util.IndexOfField(items[8], ':', "GT")
		if k >= 0 {
			samples := strings.Split(items[9], "\t")
			v.Genotypes = make([]string, len(samples))
			for i, s := range samples {
				v.Genotypes[i], _ = util.NthField(s, ':', k)
			}
		}
	}

	return v, nil
}

// ReadAll reads all variants of a file.
func ReadAll(file string) ([]*Variant, error) {
	r, err := NewReader(file)
	if err != nil {
		return nil, err
	}

	variants := make([]*Variant, 0, 1024)
	var v *Variant
	for {
		v, err = r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			r.Close()
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, r.Close()
}

// ReadByContig reads variants from one or more files and groups them by contig.
// Variants of a contig are sorted by position, and for the same position,
// the order in the input (files and lines) is kept.
// Contig names are returned in the order of first appearance.
func ReadByContig(files ...string) (map[string][]*Variant, []string, error) {
	m := make(map[string][]*Variant, 128)
	names := make([]string, 0, 128)

	var variants []*Variant
	var err error
	var ok bool
	for _, file := range files {
		variants, err = ReadAll(file)
		if err != nil {
			return nil, nil, err
		}
		for _, v := range variants {
			if _, ok = m[v.Chrom]; !ok {
				names = append(names, v.Chrom)
			}
			m[v.Chrom] = append(m[v.Chrom], v)
		}
	}

	for _, vs := range m {
		sort.SliceStable(vs, func(i, j int) bool { return vs[i].Pos < vs[j].Pos })
	}

	return m, names, nil
}
