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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/iafan/cwalk"
	"github.com/pkg/errors"
	"github.com/shenwei356/ReFencer/refencer/cmd/twobit"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts"
)

// Options contains the global flags
type Options struct {
	NumCPUs int
	Verbose bool

	LogFile  string
	Log2File bool

	CompressionLevel int
}

func getOptions(cmd *cobra.Command) *Options {
	threads := getFlagNonNegativeInt(cmd, "threads")
	if threads == 0 {
		threads = runtime.NumCPU()
	}

	sorts.MaxProcs = threads
	runtime.GOMAXPROCS(threads)

	logfile := getFlagString(cmd, "log")
	return &Options{
		NumCPUs: threads,
		Verbose: !getFlagBool(cmd, "quiet"),

		LogFile:  logfile,
		Log2File: logfile != "",

		CompressionLevel: -1,
	}
}

// ----------------------------------------------------------------------------

func addReadModeFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("skip-n", "", false,
		formatFlagUsage(`Skip N bases, i.e., the bases in N blocks.`))

	cmd.Flags().BoolP("raw-n", "", false,
		formatFlagUsage(`Output the raw bases packed in N blocks (T in most files) instead of N.`))

	cmd.Flags().BoolP("skip-masks", "", false,
		formatFlagUsage(`Skip soft-masked (lower-case) bases.`))

	cmd.Flags().BoolP("ignore-masks", "", false,
		formatFlagUsage(`Output soft-masked bases in upper case.`))
}

func getReadMode(cmd *cobra.Command) twobit.ReadMode {
	mode := twobit.ModeNormal
	if getFlagBool(cmd, "skip-n") {
		mode |= twobit.SkipNs
	}
	if getFlagBool(cmd, "raw-n") {
		mode |= twobit.RawNs
	}
	if getFlagBool(cmd, "skip-masks") {
		mode |= twobit.SkipMasks
	}
	if getFlagBool(cmd, "ignore-masks") {
		mode |= twobit.IgnoreMasks
	}
	if err := mode.Validate(); err != nil {
		checkError(fmt.Errorf("flags --skip-n and --raw-n, or --skip-masks and --ignore-masks, are exclusive"))
	}
	return mode
}

// ----------------------------------------------------------------------------

// Region is a query region of a contig, 1-based and closed.
// An empty Contig means all contigs.
type Region struct {
	Contig     string
	Start, End int
}

func (r *Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Contig, r.Start, r.End)
}

var reRegion = regexp.MustCompile(`^(?:(.+):)?(\d+)-(\d+)$`)

// parseRegion parses regions like "chr1:100-200" or "100-200".
func parseRegion(s string) (*Region, error) {
	found := reRegion.FindStringSubmatch(s)
	if found == nil {
		return nil, fmt.Errorf("invalid region: %s. it should be like chr1:100-200 or 100-200", s)
	}

	r := &Region{Contig: found[1]}
	var err error
	r.Start, err = strconv.Atoi(found[2])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid start position: %s", found[2])
	}
	r.End, err = strconv.Atoi(found[3])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid end position: %s", found[3])
	}
	if r.Start <= 0 || r.End <= 0 {
		return nil, fmt.Errorf("both begin and end position should not be <= 0: %s", s)
	}
	if r.Start > r.End {
		return nil, fmt.Errorf("begin position should be <= end position: %s", s)
	}
	return r, nil
}

// ----------------------------------------------------------------------------

func checkInputFile(file string) {
	if isStdin(file) {
		checkError(fmt.Errorf("stdin not supported: %s", file))
	}
	ok, err := pathutil.Exists(file)
	checkError(errors.Wrap(err, file))
	if !ok {
		checkError(fmt.Errorf("file not found: %s", file))
	}
}

func makeOutDir(outDir string, force bool, logname string, verbose bool) {
	pwd, _ := os.Getwd()
	if outDir != "./" && outDir != "." && pwd != filepath.Clean(outDir) {
		existed, err := pathutil.DirExists(outDir)
		checkError(errors.Wrap(err, outDir))
		if existed {
			empty, err := pathutil.IsEmpty(outDir)
			checkError(errors.Wrap(err, outDir))
			if !empty {
				if force {
					if verbose {
						log.Infof("removing old output directory: %s", outDir)
					}
					checkError(os.RemoveAll(outDir))
				} else {
					checkError(fmt.Errorf("%s not empty: %s, use --force to overwrite", logname, outDir))
				}
			} else {
				checkError(os.RemoveAll(outDir))
			}
		}
		checkError(os.MkdirAll(outDir, 0777))
	} else {
		checkError(fmt.Errorf("%s should not be current directory", logname))
	}
}

func getFileListFromDir(path string, pattern *regexp.Regexp, threads int) ([]string, error) {
	files := make([]string, 0, 512)
	ch := make(chan string, threads)
	done := make(chan int)
	go func() {
		for file := range ch {
			files = append(files, file)
		}
		done <- 1
	}()

	cwalk.NumWorkers = threads
	err := cwalk.WalkWithSymlinks(path, func(_path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && pattern.MatchString(info.Name()) {
			ch <- filepath.Join(path, _path)
		}
		return nil
	})
	close(ch)
	<-done
	if err != nil {
		return nil, err
	}

	return files, err
}

var defaultExts = []string{".gz", ".xz", ".zst", ".bz"}

func filepathTrimExtension(file string, suffixes []string) (string, string, string) {
	if suffixes == nil {
		suffixes = defaultExts
	}

	var e, e1, e2 string
	f := strings.ToLower(file)
	for _, s := range suffixes {
		e = s
		if strings.HasSuffix(f, e) {
			e2 = e
			file = file[0 : len(file)-len(e)]
			break
		}
	}

	e1 = filepath.Ext(file)
	name := file[0 : len(file)-len(e1)]

	return name, e1, e2
}

var reUnsafeChars = regexp.MustCompile(`[\\/:*?"<>|\s]`)

// contigFileName returns a safe file name of a contig.
func contigFileName(contig string, gzipped bool) string {
	name := reUnsafeChars.ReplaceAllString(contig, "_")
	if gzipped {
		return name + ".fa.gz"
	}
	return name + ".fa"
}
