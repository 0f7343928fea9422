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
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/ReFencer/refencer/cmd/twobit"
	"github.com/shenwei356/bio/seq"
	"github.com/spf13/cobra"
)

var subseqCmd = &cobra.Command{
	Use:   "subseq",
	Short: "Extract subsequences from a 2bit file via contig name and positions",
	Long: `Extract subsequences from a 2bit file via contig name and positions

Attention:
  1. Positions are 1-based and closed, e.g., chr1:1-10 for the first 10 bases.
  2. If the contig name is omitted in the region, e.g., 1-10,
     subsequences of all contigs are extracted, and the end position
     is truncated to the length of each contig.
  3. By default, bases in N blocks are outputted as N, and soft-masked
     bases are in lower case.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		// ------------------------------

		genomeFile := expandPath(getFlagString(cmd, "genome"))
		regionStr := getFlagString(cmd, "region")
		if genomeFile == "" || regionStr == "" {
			cmd.Usage()
			return
		}

		region, err := parseRegion(regionStr)
		checkError(err)

		revcom := getFlagBool(cmd, "revcom")
		lineWidth := getFlagNonNegativeInt(cmd, "line-width")
		outFile := getFlagString(cmd, "out-file")
		mode := getReadMode(cmd)

		// ---------------------------------------------------------------

		checkInputFile(genomeFile)
		rdr, err := twobit.Open(genomeFile, opt.NumCPUs)
		checkError(errors.Wrapf(err, "failed to read genome file: %s", genomeFile))

		var contigs []*twobit.Contig
		if region.Contig != "" {
			c, ok := rdr.Contig(region.Contig)
			if !ok {
				checkError(fmt.Errorf("contig not found: %s", region.Contig))
			}
			contigs = []*twobit.Contig{c}
		} else {
			contigs = rdr.Contigs
		}

		// output file handler
		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			checkError(errors.Wrapf(closeOutStream(outfh, gw, w), "failed to write file: %s", outFile))
		}()

		var start, end int
		var sub []byte
		var s *seq.Seq
		for _, c := range contigs {
			start, end = region.Start, region.End
			if region.Contig == "" {
				if start > c.Len() {
					continue
				}
				if end > c.Len() {
					end = c.Len()
				}
			}

			sub, err = c.SubSeq(start, end, mode)
			checkError(err)

			s, err = seq.NewSeq(seq.DNAredundant, sub)
			checkError(err)
			if revcom {
				s.RevComInplace()
			}

			fmt.Fprintf(outfh, ">%s:%d-%d\n", c.Name, start, end)
			if lineWidth > 0 {
				outfh.Write(s.FormatSeq(lineWidth))
			} else {
				outfh.Write(s.Seq)
			}
			outfh.WriteByte('\n')
		}

		checkError(rdr.Close())
	},
}

func init() {
	RootCmd.AddCommand(subseqCmd)

	subseqCmd.Flags().StringP("genome", "g", "",
		formatFlagUsage(`Genome file in 2bit format.`))

	subseqCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))

	subseqCmd.Flags().StringP("region", "r", "",
		formatFlagUsage(`Region of the subsequence (1-based), e.g., chr1:1-100, or 1-100 for all contigs.`))

	subseqCmd.Flags().BoolP("revcom", "R", false,
		formatFlagUsage("Extract subsequence on the negative strand."))

	subseqCmd.Flags().IntP("line-width", "w", DefaultLineWidth,
		formatFlagUsage("Line width of sequence (0 for no wrap)."))

	addReadModeFlags(subseqCmd)

	subseqCmd.SetUsageTemplate(usageTemplate(""))
}
