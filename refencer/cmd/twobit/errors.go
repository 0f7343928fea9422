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
	"errors"
	"fmt"
)

// ErrInvalidSignature means the file does not start with a 2bit signature.
var ErrInvalidSignature = errors.New("2bit: invalid signature")

// ErrVersionMismatch means the version field is not 0.
var ErrVersionMismatch = errors.New("2bit: unsupported version")

// ErrInvalidReserved means the reserved field in the header is not 0.
var ErrInvalidReserved = errors.New("2bit: non-zero reserved field")

// ErrBrokenFile means the file is not complete.
var ErrBrokenFile = errors.New("2bit: broken file")

// ErrBlockMismatch means the block starts and block sizes of a sequence do not pair up.
var ErrBlockMismatch = errors.New("2bit: mismatched block starts and sizes")

// ErrDuplicateContig means two sequences share one name.
var ErrDuplicateContig = errors.New("2bit: duplicated sequence name")

// ErrInvalidReadMode means conflicting read mode flags were combined.
var ErrInvalidReadMode = errors.New("2bit: invalid read mode")

// FormatError is returned when a 2bit file can not be opened.
// No reader is constructed when it happens.
type FormatError struct {
	File   string // file name, might be empty for in-memory data
	Contig string // sequence name, empty for header errors
	Err    error
}

func (e *FormatError) Error() string {
	file := e.File
	if file == "" {
		file = "<memory>"
	}
	if e.Contig != "" {
		return fmt.Sprintf("%s: sequence %s: %s", file, e.Contig, e.Err)
	}
	return fmt.Sprintf("%s: %s", file, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// RangeError means the requested range lies outside of a sequence,
// or the end is smaller than the start. The reader stays usable.
type RangeError struct {
	Contig string
	Start  int
	End    int
	Length int
}

func (e *RangeError) Error() string {
	if e.End < e.Start {
		return fmt.Sprintf("2bit: %s: end (%d) < start (%d)", e.Contig, e.End, e.Start)
	}
	return fmt.Sprintf("2bit: %s: range %d-%d out of [1, %d]", e.Contig, e.Start, e.End, e.Length)
}

// OverlapConflictError means one position is covered by more than one block
// of the same kind, i.e., the block data is corrupt.
type OverlapConflictError struct {
	Contig   string
	Kind     RegionKind
	Position int
}

func (e *OverlapConflictError) Error() string {
	return fmt.Sprintf("2bit: %s: position %d is covered by more than one %s block",
		e.Contig, e.Position, e.Kind)
}
