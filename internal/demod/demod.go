// Package demod turns a 16-bit PCM sample stream into classified bits.
//
// A CoCo cassette encodes a 1 as one cycle of 2400 Hz and a 0 as one cycle
// of 1200 Hz. At 44.1 kHz that is about 18.4 and 36.8 samples per cycle, but
// the 6-bit DAC of the machine and the tape itself smear those numbers, so
// cycles are classified by configurable inclusive ranges rather than exact
// counts.
package demod

import (
	"cocotape/internal/config"
)

// Bit is the classification of one cycle
type Bit int8

const (
	// Unclassified marks a cycle whose length fits neither range.
	Unclassified Bit = -1
	Zero         Bit = 0
	One          Bit = 1
)

func (b Bit) String() string {
	switch b {
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return "?"
	}
}

// CycleDetector finds falling zero-crossings and reports the number of
// samples between consecutive ones.
type CycleDetector struct {
	samples []int16
	pos     int // next index to examine
	last    int // index the current cycle is measured from
}

// NewCycleDetector creates a detector positioned at the start of samples
func NewCycleDetector(samples []int16) *CycleDetector {
	return &CycleDetector{
		samples: samples,
		pos:     1,
		last:    1,
	}
}

// Next scans forward to the next falling zero-crossing and returns the
// length of the cycle that ended there. ok is false once the samples are
// exhausted; the trailing partial cycle is never reported.
func (d *CycleDetector) Next() (length int, ok bool) {
	for ; d.pos < len(d.samples); d.pos++ {
		if d.samples[d.pos] < 0 && d.samples[d.pos-1] >= 0 {
			length = d.pos - d.last
			d.last = d.pos
			d.pos++
			return length, true
		}
	}
	return 0, false
}

// Position returns the index of the next sample to be examined
func (d *CycleDetector) Position() int {
	return d.pos
}

// Classifier maps cycle lengths to bits. The one-range is tested first, so
// a length on a shared boundary reads as a 1.
type Classifier struct {
	oneLow, oneHigh   int
	zeroLow, zeroHigh int
}

// NewClassifier builds a classifier from validated decoder thresholds
func NewClassifier(cfg config.DecoderConfig) Classifier {
	return Classifier{
		oneLow:   cfg.OneLow,
		oneHigh:  cfg.OneHigh,
		zeroLow:  cfg.ZeroLow,
		zeroHigh: cfg.ZeroHigh,
	}
}

// Classify returns One, Zero or Unclassified for a cycle length
func (c Classifier) Classify(length int) Bit {
	switch {
	case length >= c.oneLow && length <= c.oneHigh:
		return One
	case length >= c.zeroLow && length <= c.zeroHigh:
		return Zero
	default:
		return Unclassified
	}
}
