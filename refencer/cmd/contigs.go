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
	"sync"

	"github.com/pkg/errors"
	"github.com/shenwei356/ReFencer/refencer/cmd/twobit"
	"github.com/shenwei356/ReFencer/refencer/util"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts"
)

var contigsCmd = &cobra.Command{
	Use:   "contigs",
	Short: "List contigs in a 2bit file",
	Long: `List contigs in a 2bit file

Output columns:
  1. contig:      contig name
  2. length:      sequence length
  3. n_blocks:    number of N blocks
  4. n_bases:     number of bases in N blocks
  5. mask_blocks: number of soft-masked blocks
  6. mask_bases:  number of bases in soft-masked blocks
  7. digest:      wyhash digest of the sequence, with the flag --digest.
                  Sequences are decoded in the read mode given by the flags
                  --skip-n, --raw-n, --skip-masks and --ignore-masks.

With the flag --regions, N, soft-masked and normal regions of each contig
are outputted in BED format (0-based start, 1-based end), with the region
type in the fourth column. N blocks take precedence over soft-masked blocks.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		genomeFile := expandPath(getFlagString(cmd, "genome"))
		if genomeFile == "" {
			cmd.Usage()
			return
		}
		outFile := getFlagString(cmd, "out-file")
		digest := getFlagBool(cmd, "digest")
		sortByLength := getFlagBool(cmd, "sort-by-length")
		outputRegions := getFlagBool(cmd, "regions")
		mode := getReadMode(cmd)

		// ---------------------------------------------------------------

		checkInputFile(genomeFile)
		rdr, err := twobit.Open(genomeFile, opt.NumCPUs)
		checkError(errors.Wrapf(err, "failed to read genome file: %s", genomeFile))

		contigs := make([]*twobit.Contig, len(rdr.Contigs))
		copy(contigs, rdr.Contigs)
		if sortByLength {
			sorts.Quicksort(contigsByLength(contigs))
		}

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			checkError(errors.Wrapf(closeOutStream(outfh, gw, w), "failed to write file: %s", outFile))
		}()

		if outputRegions {
			for _, c := range contigs {
				for _, r := range c.Regions() {
					fmt.Fprintf(outfh, "%s\t%d\t%d\t%s\n", c.Name, r.Start-1, r.End, r.Kind)
				}
			}
			checkError(rdr.Close())
			return
		}

		var digests []uint64
		if digest {
			digests = make([]uint64, len(contigs))

			var wg sync.WaitGroup
			tokens := make(chan int, opt.NumCPUs)
			for i, c := range contigs {
				tokens <- 1
				wg.Add(1)

				go func(i int, c *twobit.Contig) {
					defer func() {
						wg.Done()
						<-tokens
					}()

					if c.Len() == 0 {
						digests[i] = util.SeqDigest(nil)
						return
					}
					s, err := c.SubSeq(1, c.Len(), mode)
					checkError(errors.Wrapf(err, "contig: %s", c.Name))
					digests[i] = util.SeqDigest(s)
				}(i, c)
			}
			wg.Wait()
		}

		outfh.WriteString("contig\tlength\tn_blocks\tn_bases\tmask_blocks\tmask_bases")
		if digest {
			outfh.WriteString("\tdigest")
		}
		outfh.WriteByte('\n')

		for i, c := range contigs {
			fmt.Fprintf(outfh, "%s\t%d\t%d\t%d\t%d\t%d",
				c.Name, c.Len(),
				c.NBlocks().Len(), c.NBlocks().Bases(),
				c.MaskBlocks().Len(), c.MaskBlocks().Bases())
			if digest {
				fmt.Fprintf(outfh, "\t%016x", digests[i])
			}
			outfh.WriteByte('\n')
		}

		checkError(rdr.Close())
	},
}

// contigsByLength sorts contigs by length in descending order, and then by name.
type contigsByLength []*twobit.Contig

func (s contigsByLength) Len() int      { return len(s) }
func (s contigsByLength) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s contigsByLength) Less(i, j int) bool {
	if s[i].Len() == s[j].Len() {
		return s[i].Name < s[j].Name
	}
	return s[i].Len() > s[j].Len()
}

func init() {
	RootCmd.AddCommand(contigsCmd)

	contigsCmd.Flags().StringP("genome", "g", "",
		formatFlagUsage(`Genome file in 2bit format.`))

	contigsCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))

	contigsCmd.Flags().BoolP("digest", "d", false,
		formatFlagUsage(`Compute digests of sequences.`))

	contigsCmd.Flags().BoolP("sort-by-length", "s", false,
		formatFlagUsage(`Sort contigs by length in descending order.`))

	contigsCmd.Flags().BoolP("regions", "", false,
		formatFlagUsage(`Output N, soft-masked and normal regions in BED format.`))

	addReadModeFlags(contigsCmd)

	contigsCmd.SetUsageTemplate(usageTemplate(""))
}
