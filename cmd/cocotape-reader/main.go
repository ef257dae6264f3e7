// Cocotape Reader - Utility to inspect CoCo cassette recordings
// This program reads a WAV recording and displays its format, cycle length
// statistics and the tape blocks it contains, to help tune the decoder.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cocotape/internal/basic"
	"cocotape/internal/config"
	"cocotape/internal/decoder"
	"cocotape/internal/demod"
	"cocotape/internal/diag"
	"cocotape/internal/tape"
	"cocotape/internal/version"
	"cocotape/internal/wavfile"

	"github.com/spf13/cobra"
)

var (
	showStats   bool
	showGraph   bool
	showBlocks  bool
	showVersion bool
	graphWidth  int
	graphMax    int
	sampleRate  int
	thresholds  = config.DefaultDecoderConfig()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cocotape-reader [file.wav]",
	Short: "Inspect CoCo cassette recordings",
	Long: `Cocotape Reader displays the format of a cassette recording and what the
decoder sees in it. Useful for choosing classification thresholds for a
recording that does not decode cleanly.

Display modes:
  --stats      Show cycle length statistics per classification
  --graph      Show a histogram of cycle lengths
  --blocks     List every decoded block with a hex dump of its payload`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("Cocotape Reader"))
			return
		}

		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Error: filename required\n")
			cmd.Usage()
			os.Exit(1)
		}

		if err := displayFile(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().BoolVar(&showStats, "stats", false, "show cycle length statistics")
	rootCmd.Flags().BoolVarP(&showGraph, "graph", "g", false, "show a histogram of cycle lengths")
	rootCmd.Flags().BoolVarP(&showBlocks, "blocks", "b", false, "list decoded blocks with hex dumps")
	rootCmd.Flags().IntVar(&graphWidth, "graph-width", 60, "width of the histogram bars in characters")
	rootCmd.Flags().IntVar(&graphMax, "graph-max", 60, "longest cycle length shown in the histogram")
	rootCmd.Flags().IntVar(&sampleRate, "sample-rate", config.DefaultConfig().Input.SampleRate, "required sample rate of the recording (Hz)")

	rootCmd.Flags().IntVarP(&thresholds.OneLow, "one-low", "o", thresholds.OneLow, "shortest cycle read as a 1")
	rootCmd.Flags().IntVarP(&thresholds.OneHigh, "one-high", "O", thresholds.OneHigh, "longest cycle read as a 1")
	rootCmd.Flags().IntVarP(&thresholds.ZeroLow, "zero-low", "z", thresholds.ZeroLow, "shortest cycle read as a 0")
	rootCmd.Flags().IntVarP(&thresholds.ZeroHigh, "zero-high", "Z", thresholds.ZeroHigh, "longest cycle read as a 0")
}

// blockRecord is one completed block and where it ended
type blockRecord struct {
	block  *tape.Block
	sample int
}

// programCounter is a sink that only counts programs
type programCounter struct {
	programs []*basic.Program
}

func (p *programCounter) WriteProgram(prog *basic.Program) error {
	p.programs = append(p.programs, prog)
	return nil
}

// displayFile reads and displays the contents of a cassette recording
func displayFile(filename string) error {
	if err := thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}

	fileInfo, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}
	if err != nil {
		return err
	}

	meta, samples, err := wavfile.Load(filename, sampleRate)
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}

	fmt.Printf("COCOTAPE RECORDING READER %s\n\n", version.GetFullVersion())

	fmt.Printf("📁 File Information:\n")
	fmt.Printf("Name: %s\n", filepath.Base(filename))
	fmt.Printf("Size: %.2f MB (%d bytes)\n", float64(fileInfo.Size())/(1024*1024), fileInfo.Size())
	fmt.Printf("Modified: %s\n\n", fileInfo.ModTime().Format("2006-01-02 15:04:05"))

	displayMetadata(meta)

	// Decode everything, carrying on past errors so every block is seen
	cfg := thresholds
	cfg.ContinueOnError = true

	hist := newCycleHistogram()
	var blocks []blockRecord
	sink := &programCounter{}

	d := decoder.New(cfg, sink, nil,
		decoder.WithCycleObserver(hist.Add),
		decoder.WithBlockObserver(func(b *tape.Block, sample int) {
			blocks = append(blocks, blockRecord{block: b, sample: sample})
		}),
	)
	stats, runErr := d.Run(context.Background(), samples)

	displayDecodeSummary(stats, len(sink.programs), runErr)

	cls := demod.NewClassifier(thresholds)
	if showStats {
		displayStatistics(hist, cls)
	}
	if showGraph {
		fmt.Printf("📈 Cycle Length Histogram:\n")
		hist.Render(os.Stdout, cls, graphMax, graphWidth)
		fmt.Println()
	}
	if showBlocks {
		displayBlocks(blocks, meta.SampleRate)
	}

	return nil
}

func displayMetadata(meta *wavfile.Metadata) {
	fmt.Printf("🎵 Recording:\n")
	fmt.Printf("Sample Rate: %d Hz\n", meta.SampleRate)
	fmt.Printf("Channels: %d\n", meta.NumChannels)
	fmt.Printf("Bit Depth: %d\n", meta.BitDepth)
	fmt.Printf("Samples: %d\n", meta.NumSamples)
	fmt.Printf("Duration: %v\n\n", meta.Duration())
}

func displayDecodeSummary(stats *decoder.Stats, programs int, runErr error) {
	fmt.Printf("🔎 Decode Summary:\n")
	fmt.Printf("Thresholds: one %d-%d, zero %d-%d samples\n",
		thresholds.OneLow, thresholds.OneHigh, thresholds.ZeroLow, thresholds.ZeroHigh)
	fmt.Printf("Cycles: %d (%d unclassified)\n", stats.Cycles, stats.Unclassified)
	fmt.Printf("Blocks: %d Name, %d Data, %d EndOfFile\n",
		stats.Blocks[tape.BlockName], stats.Blocks[tape.BlockData], stats.Blocks[tape.BlockEOF])
	fmt.Printf("Resyncs: %d\n", stats.Resyncs)
	fmt.Printf("Programs: %d\n", programs)
	if runErr != nil {
		fmt.Printf("Errors: %d\n", stats.Errors)
		fmt.Printf("  %v\n", runErr)
	}
	fmt.Println()
}

func displayStatistics(h *cycleHistogram, cls demod.Classifier) {
	if h.total == 0 {
		fmt.Printf("📊 Statistics: No cycles to analyze\n\n")
		return
	}

	fmt.Printf("📊 Cycle Statistics:\n")
	fmt.Printf("   Total Cycles: %d\n", h.total)
	fmt.Printf("   Length Range: %d to %d samples\n", h.minLen, h.maxLen)
	for _, bit := range []demod.Bit{demod.One, demod.Zero, demod.Unclassified} {
		share := 100 * float64(h.byBit[bit]) / float64(h.total)
		mean, std := h.Spread(cls, bit)
		fmt.Printf("   Class %s: %d cycles (%.1f%%), mean %.2f ± %.2f samples\n", bit, h.byBit[bit], share, mean, std)
	}

	if l, c := h.Peak(thresholds.OneLow, thresholds.OneHigh); c > 0 {
		fmt.Printf("   One Peak: %d samples (%d cycles)\n", l, c)
	}
	if l, c := h.Peak(thresholds.ZeroLow, min(thresholds.ZeroHigh, h.maxLen)); c > 0 {
		fmt.Printf("   Zero Peak: %d samples (%d cycles)\n", l, c)
	}
	if split := h.SuggestedSplit(cls, thresholds.OneLow, min(thresholds.ZeroHigh, h.maxLen)); split > 0 {
		fmt.Printf("   Suggested one/zero split: %d samples\n", split)
	}
	fmt.Println()
}

func displayBlocks(blocks []blockRecord, rate uint32) {
	if len(blocks) == 0 {
		fmt.Printf("📦 Blocks: none found\n\n")
		return
	}

	fmt.Printf("📦 Blocks:\n")
	for i, rec := range blocks {
		b := rec.block
		at := float64(rec.sample) / float64(rate)
		fmt.Printf("#%d %s at %.3fs, length %d, checksum 0x%02X\n", i, b.Type, at, b.Length, b.ReceivedChecksum)

		switch b.Type {
		case tape.BlockName:
			fmt.Printf("   Name: %q\n", b.ProgramName())
			fmt.Printf("   File Type: %s\n", b.FileType)
			fmt.Printf("   ASCII Flag: 0x%02X  Gap Flag: 0x%02X\n", uint8(b.ASCIIFlag), uint8(b.GapFlag))
			fmt.Printf("   Start: 0x%04X  Load: 0x%04X\n", b.StartAddress(), b.LoadAddress())
		case tape.BlockData:
			if err := diag.Dump(os.Stdout, b.Data); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}
	fmt.Println()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
