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
	"math/rand"
	"sort"
	"testing"

	"github.com/rdleal/intervalst/interval"
)

func TestBlockIndexQuery(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	cmpFn := func(x, y int) int { return x - y }

	for round := 0; round < 200; round++ {
		// random sorted and non-overlapping blocks
		n := r.Intn(50)
		idx := &BlockIndex{
			Starts: make([]uint32, 0, n),
			Ends:   make([]uint32, 0, n),
		}
		tree := interval.NewSearchTree[int, int](cmpFn)
		pos := 1
		for i := 0; i < n; i++ {
			start := pos + r.Intn(20)
			end := start + r.Intn(10)
			idx.Starts = append(idx.Starts, uint32(start))
			idx.Ends = append(idx.Ends, uint32(end))
			// the tree rejects intervals with start == end,
			// coordinates are doubled to keep closed-interval semantics.
			if err := tree.Insert(2*start, 2*end+1, i); err != nil {
				t.Error(err)
				return
			}
			pos = end + 1
		}

		for q := 0; q < 100; q++ {
			start := 1 + r.Intn(pos+10)
			end := start + r.Intn(40)

			want, _ := tree.AllIntersections(2*start, 2*end+1)
			sort.Ints(want)

			first, last, ok := idx.Query(start, end)
			if !ok {
				if len(want) > 0 {
					t.Errorf("[round %d] %d-%d: no overlap found, expected: %v", round, start, end, want)
				}
				continue
			}
			if len(want) != last-first+1 {
				t.Errorf("[round %d] %d-%d: expected: %v, returned: [%d, %d]", round, start, end, want, first, last)
				continue
			}
			for j, i := range want {
				if i != first+j {
					t.Errorf("[round %d] %d-%d: expected: %v, returned: [%d, %d]", round, start, end, want, first, last)
					break
				}
			}
		}
	}
}

func TestBlockIndexQueryEdges(t *testing.T) {
	idx := &BlockIndex{
		Starts: []uint32{5, 20, 40},
		Ends:   []uint32{10, 30, 40},
	}

	tests := []struct {
		start, end  int
		first, last int
		ok          bool
	}{
		{1, 4, -1, -1, false},
		{1, 5, 0, 0, true},
		{10, 10, 0, 0, true},
		{11, 19, -1, -1, false},
		{10, 20, 0, 1, true},
		{1, 100, 0, 2, true},
		{31, 39, -1, -1, false},
		{40, 40, 2, 2, true},
		{41, 50, -1, -1, false},
		{25, 45, 1, 2, true},
		{7, 3, -1, -1, false},
	}
	for _, test := range tests {
		first, last, ok := idx.Query(test.start, test.end)
		if first != test.first || last != test.last || ok != test.ok {
			t.Errorf("%d-%d: expected (%d, %d, %v), returned (%d, %d, %v)",
				test.start, test.end, test.first, test.last, test.ok, first, last, ok)
		}
	}

	if idx.Bases() != 6+11+1 {
		t.Errorf("unexpected number of bases: %d", idx.Bases())
	}

	empty := &BlockIndex{}
	if _, _, ok := empty.Query(1, 100); ok {
		t.Errorf("no overlaps expected for empty index")
	}

	// adjacent one-base blocks
	adjacent := &BlockIndex{
		Starts: []uint32{3, 4, 5},
		Ends:   []uint32{3, 4, 5},
	}
	if first, last, ok := adjacent.Query(4, 4); !ok || first != 1 || last != 1 {
		t.Errorf("4-4: expected (1, 1, true), returned (%d, %d, %v)", first, last, ok)
	}
	if first, last, ok := adjacent.Query(5, 9); !ok || first != 2 || last != 2 {
		t.Errorf("5-9: expected (2, 2, true), returned (%d, %d, %v)", first, last, ok)
	}
}
