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

package cmd

import (
	"bufio"
	"fmt"
)

// DefaultLineWidth is the line width of output FASTA sequences.
const DefaultLineWidth = 50

// BaseStream is a lazily produced sequence.
// Both *twobit.Iterator and *refence.Sequence are BaseStreams.
type BaseStream interface {
	Next() (byte, bool)
	Err() error
}

// writeFasta writes a FASTA record with the sequence from a BaseStream,
// and returns the sequence length.
// A lineWidth of 0 means no line wrapping.
// The writer is flushed in the end, and any write error is returned.
func writeFasta(w *bufio.Writer, name string, s BaseStream, lineWidth int) (int, error) {
	if _, err := fmt.Fprintf(w, ">%s\n", name); err != nil {
		return 0, err
	}

	var b byte
	var ok bool
	var n, j int
	for {
		if b, ok = s.Next(); !ok {
			break
		}
		if lineWidth > 0 && j == lineWidth {
			w.WriteByte('\n')
			j = 0
		}
		// errors of bufio.Writer are sticky, checking the last one is enough.
		if err := w.WriteByte(b); err != nil {
			return n, err
		}
		n++
		j++
	}
	if err := s.Err(); err != nil {
		return n, err
	}

	if n > 0 {
		w.WriteByte('\n')
	}
	return n, w.Flush()
}
