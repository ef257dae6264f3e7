package main

import (
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"cocotape/internal/demod"
)

// cycleHistogram counts cycle lengths and their classifications
type cycleHistogram struct {
	counts map[int]int
	byBit  map[demod.Bit]int
	minLen int
	maxLen int
	total  int
}

func newCycleHistogram() *cycleHistogram {
	return &cycleHistogram{
		counts: make(map[int]int),
		byBit:  make(map[demod.Bit]int),
		minLen: math.MaxInt,
	}
}

// Add records one cycle; it matches decoder.CycleObserver
func (h *cycleHistogram) Add(length int, bit demod.Bit) {
	h.counts[length]++
	h.byBit[bit]++
	h.total++
	h.minLen = min(h.minLen, length)
	h.maxLen = max(h.maxLen, length)
}

// lengths returns the recorded cycle lengths in ascending order
func (h *cycleHistogram) lengths() []int {
	return slices.Sorted(maps.Keys(h.counts))
}

// Spread returns the mean and standard deviation of the lengths cls
// assigns to bit. The deviation is zero with fewer than two cycles.
func (h *cycleHistogram) Spread(cls demod.Classifier, bit demod.Bit) (mean, std float64) {
	var x, weights []float64
	n := 0
	for _, l := range h.lengths() {
		c := h.counts[l]
		if cls.Classify(l) != bit {
			continue
		}
		x = append(x, float64(l))
		weights = append(weights, float64(c))
		n += c
	}
	switch n {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, weights)
}

// Peak returns the most frequent length within [lo, hi]
func (h *cycleHistogram) Peak(lo, hi int) (length, count int) {
	for _, l := range h.lengths() {
		if l < lo || l > hi {
			continue
		}
		if c := h.counts[l]; c > count {
			length, count = l, c
		}
	}
	return length, count
}

// SuggestedSplit returns the length halfway between the one and zero peaks,
// a starting point for the one_high and zero_low thresholds.
func (h *cycleHistogram) SuggestedSplit(cls demod.Classifier, lo, hi int) int {
	onePeak, zeroPeak := 0, 0
	oneCount, zeroCount := 0, 0
	for _, l := range h.lengths() {
		if l < lo || l > hi {
			continue
		}
		c := h.counts[l]
		switch cls.Classify(l) {
		case demod.One:
			if c > oneCount {
				onePeak, oneCount = l, c
			}
		case demod.Zero:
			if c > zeroCount {
				zeroPeak, zeroCount = l, c
			}
		}
	}
	if oneCount == 0 || zeroCount == 0 {
		return 0
	}
	return (onePeak + zeroPeak) / 2
}

// Render draws one row per cycle length up to maxLen, each bar scaled to
// width and tagged with its classification.
func (h *cycleHistogram) Render(w io.Writer, cls demod.Classifier, maxLen, width int) {
	peak := 0
	for l := 0; l <= maxLen; l++ {
		peak = max(peak, h.counts[l])
	}
	if peak == 0 {
		fmt.Fprintf(w, "No cycles up to %d samples\n", maxLen)
		return
	}

	fmt.Fprintf(w, "Length Class Count\n")
	for l := 0; l <= maxLen; l++ {
		c := h.counts[l]
		if c == 0 {
			continue
		}
		bar := int(math.Ceil(float64(c) * float64(width) / float64(peak)))
		fmt.Fprintf(w, "%6d   %s   %-8d|%s\n", l, cls.Classify(l), c, strings.Repeat("#", bar))
	}

	over := 0
	for l, c := range h.counts {
		if l > maxLen {
			over += c
		}
	}
	if over > 0 {
		fmt.Fprintf(w, "  >%d         %d cycles not shown\n", maxLen, over)
	}
}
