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

package util

import "strings"

// StringSplitNByByte splits a string into at most n fields by a byte,
// reusing the slice a. The last field holds the rest of the string.
func StringSplitNByByte(s string, sep byte, n int, a *[]string) {
	if a == nil {
		tmp := make([]string, n)
		a = &tmp
	}
	if cap(*a) < n {
		*a = make([]string, n)
	}
	*a = (*a)[:n]

	n--
	i := 0
	for i < n {
		m := strings.IndexByte(s, sep)
		if m < 0 {
			break
		}
		(*a)[i] = s[:m]
		s = s[m+1:]
		i++
	}
	(*a)[i] = s

	(*a) = (*a)[:i+1]
}

// IndexOfField returns the index of a field in a sep-separated string,
// or -1 if not found.
func IndexOfField(s string, sep byte, field string) int {
	var m, i int
	for {
		m = strings.IndexByte(s, sep)
		if m < 0 {
			if s == field {
				return i
			}
			return -1
		}
		if s[:m] == field {
			return i
		}
		s = s[m+1:]
		i++
	}
}

// NthField returns the nth (0-based) field of a sep-separated string,
// and false if there are not enough fields.
func NthField(s string, sep byte, n int) (string, bool) {
	var m int
	for i := 0; i < n; i++ {
		m = strings.IndexByte(s, sep)
		if m < 0 {
			return "", false
		}
		s = s[m+1:]
	}
	if m = strings.IndexByte(s, sep); m >= 0 {
		return s[:m], true
	}
	return s, true
}
