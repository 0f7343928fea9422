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
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/ReFencer/refencer/cmd/refence"
	"github.com/shenwei356/ReFencer/refencer/cmd/twobit"
	"github.com/shenwei356/ReFencer/refencer/cmd/vcf"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var refenceCmd = &cobra.Command{
	Use:   "refence",
	Short: "Rebuild personal sequences by merging variants into a reference genome",
	Long: `Rebuild personal sequences by merging variants into a reference genome

Input:
  1. A reference genome in 2bit format (-g/--genome).
  2. One or more plain or gzipped VCF files, given via the flag -v/--vcf,
     or a directory containing VCF files via the flag -V/--vcf-dir,
     with multiple-level sub-directories allowed. A regular expression
     for matching VCF files is available via the flag -r/--file-regexp.

Output:
  1. Merged sequences of all contigs in a FASTA file (-o/--out-file),
  2. Or one FASTA file per contig in a directory (-O/--out-dir).

Rules of merging variants, for each contig:
  1. Only variants with FILTER of PASS and at least one alternate allele are used.
  2. The allele of the first sample being homozygous or hemizygous for an
     alternate allele is applied. Variants without such samples are skipped.
  3. Variants starting before the end of the previously applied one are skipped,
     i.e., the first one wins.
  4. Variants with invalid ALT alleles (unknown symbols, missing values,
     symbolic alleles, or allele index out of range) are skipped
     with a warning, and the reference sequence is kept.
  5. Contigs without variants are outputted unchanged.

Attention:
  1. Variants of all VCF files are loaded into memory and sorted by position
     for each contig, so VCF files do not have to be sorted, at the cost of
     memory. Variants at the same position keep their order in the input.
  2. Structural variant files (-s/--sv-vcf) are not supported yet.
  3. With -o/--out-file, contigs are merged and outputted one by one in the
     order of the genome file. With -O/--out-dir, contigs are processed in
     parallel with -j/--threads.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		// ---------------------------------------------------------------
		// flags

		genomeFile := expandPath(getFlagString(cmd, "genome"))
		vcfFiles := getFlagStringSlice(cmd, "vcf")
		vcfDir := expandPath(getFlagString(cmd, "vcf-dir"))
		reFileStr := getFlagString(cmd, "file-regexp")
		svFile := getFlagString(cmd, "sv-vcf")
		outFile := expandPath(getFlagString(cmd, "out-file"))
		outDir := expandPath(getFlagString(cmd, "out-dir"))
		force := getFlagBool(cmd, "force")
		lineWidth := getFlagNonNegativeInt(cmd, "line-width")
		reportFile := expandPath(getFlagString(cmd, "report"))
		regionStr := getFlagString(cmd, "region")
		warnOverlaps := getFlagBool(cmd, "warn-overlaps")
		mode := getReadMode(cmd)

		if genomeFile == "" || (len(vcfFiles) == 0 && vcfDir == "") || (outFile == "" && outDir == "") {
			cmd.Usage()
			return
		}
		if outFile != "" && outDir != "" {
			checkError(fmt.Errorf("flag -o/--out-file and -O/--out-dir are exclusive"))
		}

		var region *Region
		var err error
		if regionStr != "" {
			region, err = parseRegion(regionStr)
			checkError(err)
			if region.Contig == "" {
				checkError(fmt.Errorf("contig name needed in the region: %s", regionStr))
			}
		}

		// ---------------------------------------------------------------
		// log

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		if outputLog {
			log.Infof("ReFencer v%s", VERSION)
			log.Info()

			log.Info("checking input files ...")
		}

		// ---------------------------------------------------------------
		// input files

		checkInputFile(genomeFile)

		if vcfDir != "" {
			reFile, err := regexp.Compile("(?i)" + reFileStr)
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))

			files, err := getFileListFromDir(vcfDir, reFile, opt.NumCPUs)
			if err != nil {
				checkError(errors.Wrapf(err, "walking dir: %s", vcfDir))
			}
			if len(files) == 0 {
				log.Warningf("  no files matching regular expression: %s", reFileStr)
			}
			vcfFiles = append(vcfFiles, files...)
		}
		for i, file := range vcfFiles {
			file = expandPath(file)
			checkInputFile(file)
			if _, e1, _ := filepathTrimExtension(file, nil); strings.ToLower(e1) == ".bcf" {
				checkError(fmt.Errorf("BCF files are not supported: %s", file))
			}
			vcfFiles[i] = file
		}
		if len(vcfFiles) == 0 {
			checkError(fmt.Errorf("VCF files needed"))
		}
		if outputLog {
			log.Infof("  %d VCF file(s) given", len(vcfFiles))
		}

		if svFile != "" {
			log.Warningf("structural variants are not supported yet, ignored: %s", svFile)
		}

		// ---------------------------------------------------------------
		// variants

		if outputLog {
			log.Info()
			log.Info("reading variants ...")
		}
		variants, vcfContigs, err := vcf.ReadByContig(vcfFiles...)
		checkError(err)
		if outputLog {
			var n int
			for _, vs := range variants {
				n += len(vs)
			}
			log.Infof("  %d variants of %d contigs", n, len(vcfContigs))
		}

		// ---------------------------------------------------------------
		// genome

		if outputLog {
			log.Info()
			log.Infof("reading genome: %s", genomeFile)
		}
		rdr, err := twobit.Open(genomeFile, opt.NumCPUs)
		checkError(errors.Wrapf(err, "failed to read genome file: %s", genomeFile))
		defer func() {
			checkError(rdr.Close())
		}()
		if outputLog {
			log.Infof("  %d contigs, %d bases", len(rdr.Contigs), rdr.TotalBases())
		}

		for _, name := range vcfContigs {
			if _, ok := rdr.Contig(name); !ok {
				log.Warningf("contig not found in the genome, %d variants ignored: %s", len(variants[name]), name)
			}
		}

		// ---------------------------------------------------------------
		// jobs

		processor, err := refence.NewProcessor(&refence.Options{
			ReadMode:     mode,
			Logger:       log,
			WarnOverlaps: warnOverlaps,
		})
		checkError(err)

		var contigs []*twobit.Contig
		if region != nil {
			c, ok := rdr.Contig(region.Contig)
			if !ok {
				checkError(fmt.Errorf("contig not found in the genome: %s", region.Contig))
			}
			contigs = []*twobit.Contig{c}
		} else {
			contigs = rdr.Contigs
		}

		seqName := func(c *twobit.Contig) string {
			if region == nil {
				return c.Name
			}
			return region.String()
		}

		newSequence := func(c *twobit.Contig) *refence.Sequence {
			it := vcf.NewSliceIterator(variants[c.Name])
			if region == nil {
				return processor.Process(c, it)
			}
			s, err := processor.ProcessRegion(c, region.Start, region.End, it)
			checkError(err)
			return s
		}

		// ---------------------------------------------------------------
		// output

		if outputLog {
			log.Info()
			if outDir != "" {
				log.Infof("merging variants into %d contig(s) with %d threads ...", len(contigs), opt.NumCPUs)
			} else {
				log.Infof("merging variants into %d contig(s) ...", len(contigs))
			}
		}

		// process bar
		var pbs *mpb.Progress
		var bar *mpb.Bar
		var chDuration chan time.Duration
		var doneDuration chan int
		if opt.Verbose {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(contigs)),
				mpb.PrependDecorators(
					decor.Name("processed contigs: ", decor.WC{W: len("processed contigs: "), C: decor.DindentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 3),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)

			chDuration = make(chan time.Duration, opt.NumCPUs)
			doneDuration = make(chan int)
			go func() {
				for t := range chDuration {
					bar.EwmaIncrBy(1, t)
				}
				doneDuration <- 1
			}()
		}

		// stats receiver
		allStats := make([]refence.Stats, 0, len(contigs))
		chStats := make(chan refence.Stats, opt.NumCPUs)
		doneStats := make(chan int)
		go func() {
			for s := range chStats {
				allStats = append(allStats, s)
			}
			doneStats <- 1
		}()

		// bases are pulled from the merged sequence and written directly.
		refenceContig := func(c *twobit.Contig, outfh *bufio.Writer) {
			startTime := time.Now()

			s := newSequence(c)
			_, err := writeFasta(outfh, seqName(c), s, lineWidth)
			checkError(errors.Wrapf(err, "contig: %s", c.Name))

			chStats <- s.Stats()

			if opt.Verbose {
				chDuration <- time.Since(startTime)
			}
		}

		if outDir == "" {
			// one output stream, contigs are written one by one in the genome order
			outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
			checkError(err)

			for _, c := range contigs {
				refenceContig(c, outfh)
			}

			checkError(errors.Wrapf(closeOutStream(outfh, gw, w), "failed to write file: %s", outFile))
		} else {
			makeOutDir(outDir, force, "output directory", opt.Verbose)

			var wg sync.WaitGroup
			tokens := make(chan int, opt.NumCPUs)
			for _, c := range contigs {
				tokens <- 1
				wg.Add(1)

				go func(c *twobit.Contig) {
					defer func() {
						wg.Done()
						<-tokens
					}()

					file := filepath.Join(outDir, contigFileName(seqName(c), true))
					outfh, gw, w, err := outStream(file, true, opt.CompressionLevel)
					checkError(err)

					refenceContig(c, outfh)

					checkError(errors.Wrapf(closeOutStream(outfh, gw, w), "failed to write file: %s", file))
				}(c)
			}
			wg.Wait()
		}

		close(chStats)
		<-doneStats

		// process bar
		if opt.Verbose {
			close(chDuration)
			<-doneDuration
			pbs.Wait()
		}

		// ---------------------------------------------------------------
		// summary

		var total refence.Stats
		for i := range allStats {
			total.Add(&allStats[i])
		}

		if outputLog {
			log.Info()
			log.Infof("variants applied: %d, skipped: %d", total.Applied, total.Total()-total.Applied)
			log.Infof("  filtered: %d, reference calls: %d, no qualified genotypes: %d",
				total.Filtered, total.RefCalls, total.NoGenotype)
			log.Infof("  overlapping: %d, invalid ALT: %d, out of range: %d",
				total.Overlapping, total.InvalidAlt, total.OutOfRange)
			log.Infof("bases inserted: %d, deleted: %d", total.InsertedBases, total.DeletedBases)
			if outDir != "" {
				log.Infof("sequences saved to directory: %s", outDir)
			} else if !isStdin(outFile) {
				log.Infof("sequences saved to: %s", outFile)
			}
		}

		if reportFile != "" {
			report := &Report{
				Version:  VERSION,
				Genome:   genomeFile,
				VCFs:     vcfFiles,
				ReadMode: mode.String(),
				Total:    total,
				Contigs:  allStats,
			}
			if outDir != "" {
				report.Output = outDir
			} else {
				report.Output = outFile
			}
			if region != nil {
				report.Region = region.String()
			}
			checkError(writeReport(reportFile, report))
			if outputLog {
				log.Infof("report saved to: %s", reportFile)
			}
		}
	},
}

// Report is the summary of a run.
type Report struct {
	Version  string   `toml:"version"`
	Genome   string   `toml:"genome"`
	VCFs     []string `toml:"vcfs"`
	Output   string   `toml:"output"`
	Region   string   `toml:"region,omitempty"`
	ReadMode string   `toml:"read-mode"`

	Total   refence.Stats   `toml:"total"`
	Contigs []refence.Stats `toml:"contigs"`
}

func writeReport(file string, report *Report) error {
	outfh, gw, w, err := outStream(file, strings.HasSuffix(file, ".gz"), -1)
	if err != nil {
		return err
	}

	enc := toml.NewEncoder(outfh)
	if err = enc.Encode(report); err != nil {
		return errors.Wrap(err, "failed to write report")
	}

	return errors.Wrap(closeOutStream(outfh, gw, w), "failed to write report")
}

func init() {
	RootCmd.AddCommand(refenceCmd)

	refenceCmd.Flags().StringP("genome", "g", "",
		formatFlagUsage(`Reference genome file in 2bit format.`))

	refenceCmd.Flags().StringSliceP("vcf", "v", []string{},
		formatFlagUsage(`VCF file(s), supports the ".gz" suffix. Multiple values supported.`))

	refenceCmd.Flags().StringP("vcf-dir", "V", "",
		formatFlagUsage(`Directory containing VCF files. Directory and file symlinks are followed.`))

	refenceCmd.Flags().StringP("file-regexp", "r", `\.vcf(\.gz)?$`,
		formatFlagUsage(`Regular expression for matching VCF files in -V/--vcf-dir, case ignored.`))

	refenceCmd.Flags().StringP("sv-vcf", "s", "",
		formatFlagUsage(`VCF file of structural variants. Not supported yet.`))

	refenceCmd.Flags().StringP("out-file", "o", "",
		formatFlagUsage(`Out file, supports the ".gz" suffix ("-" for stdout).`))

	refenceCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory, for saving sequences of each contig in a separate gzipped FASTA file.`))

	refenceCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existing output directory.`))

	refenceCmd.Flags().IntP("line-width", "w", DefaultLineWidth,
		formatFlagUsage("Line width of sequence (0 for no wrap)."))

	refenceCmd.Flags().StringP("report", "", "",
		formatFlagUsage(`Save a summary of applied and skipped variants of each contig to a TOML file.`))

	refenceCmd.Flags().StringP("region", "", "",
		formatFlagUsage(`Only output a region (1-based) of a contig, e.g., chr1:1000-2000. Only variants fully inside the region are applied.`))

	refenceCmd.Flags().BoolP("warn-overlaps", "", false,
		formatFlagUsage(`Also warn about variants overlapping previously applied ones.`))

	addReadModeFlags(refenceCmd)

	refenceCmd.SetUsageTemplate(usageTemplate(""))
}
