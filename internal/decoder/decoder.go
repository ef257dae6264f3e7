// Package decoder runs the full pipeline over a recording: cycle detection,
// bit classification, block framing and program reconstruction.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cocotape/internal/basic"
	"cocotape/internal/config"
	"cocotape/internal/demod"
	"cocotape/internal/diag"
	"cocotape/internal/tape"
)

// Failure stages reported in Error
const (
	StageFrame       = "frame"
	StageReconstruct = "reconstruct"
	StageOutput      = "output"
)

// ctx is polled once per this many cycles
const ctxCheckInterval = 4096

// Error names the pipeline stage a fatal error came from
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Sink receives every reconstructed program
type Sink interface {
	WriteProgram(p *basic.Program) error
}

// BlockObserver sees each completed block along with the sample index at
// which it completed.
type BlockObserver func(b *tape.Block, sample int)

// CycleObserver sees every measured cycle and its classification
type CycleObserver func(length int, bit demod.Bit)

// Option configures a Decoder
type Option func(*Decoder)

// WithBlockObserver registers a callback for completed blocks
func WithBlockObserver(fn BlockObserver) Option {
	return func(d *Decoder) {
		d.onBlock = fn
	}
}

// WithCycleObserver registers a callback for every cycle
func WithCycleObserver(fn CycleObserver) Option {
	return func(d *Decoder) {
		d.onCycle = fn
	}
}

// Stats summarizes one run
type Stats struct {
	Samples      int
	Cycles       int
	Unclassified int
	Blocks       map[tape.BlockType]int
	Resyncs      int
	Programs     int
	Errors       int
}

// TotalBlocks returns the number of completed blocks of every type
func (s *Stats) TotalBlocks() int {
	n := 0
	for _, c := range s.Blocks {
		n += c
	}
	return n
}

// Decoder drives the stages over one sample sequence at a time
type Decoder struct {
	cfg        config.DecoderConfig
	classifier demod.Classifier
	sink       Sink
	logger     *slog.Logger
	onBlock    BlockObserver
	onCycle    CycleObserver
}

// New creates a decoder. cfg must already be validated.
func New(cfg config.DecoderConfig, sink Sink, logger *slog.Logger, opts ...Option) *Decoder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Decoder{
		cfg:        cfg,
		classifier: demod.NewClassifier(cfg),
		sink:       sink,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// run holds the per-call pipeline state
type run struct {
	det   *demod.CycleDetector
	asm   *tape.Assembler
	seq   tape.Sequence
	stats *Stats
	errs  []error

	// skipping drops the remaining blocks of a program that failed framing
	skipping bool
}

// Run decodes samples, handing each program to the sink as its EndOfFile
// block completes. By default the first framing or reconstruction error
// stops the run and is returned as *Error. With ContinueOnError the
// failing program is dropped and every error is returned joined at the end.
func (d *Decoder) Run(ctx context.Context, samples []int16) (*Stats, error) {
	r := &run{
		det: demod.NewCycleDetector(samples),
		asm: tape.NewAssembler(d.logger),
		stats: &Stats{
			Samples: len(samples),
			Blocks:  make(map[tape.BlockType]int),
		},
	}
	defer func() {
		r.stats.Resyncs = r.asm.Resyncs()
	}()

	for {
		if r.stats.Cycles%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return r.stats, err
			}
		}

		length, ok := r.det.Next()
		if !ok {
			break
		}
		r.stats.Cycles++

		bit := d.classifier.Classify(length)
		if d.onCycle != nil {
			d.onCycle(length, bit)
		}
		if bit == demod.Unclassified {
			r.stats.Unclassified++
			d.logger.Debug("unclassified cycle", "length", length, "sample", r.det.Position())
			continue
		}

		blk, err := r.asm.PushBit(bit)
		if err != nil {
			if err := d.fail(r, &Error{Stage: StageFrame, Err: err}); err != nil {
				return r.stats, err
			}
			r.skipping = true
			continue
		}
		if blk == nil {
			continue
		}

		if err := d.handleBlock(ctx, r, blk); err != nil {
			return r.stats, err
		}
	}

	if r.seq.Len() > 0 {
		d.logger.Warn("recording ended without an EndOfFile block", "blocks", r.seq.Len())
		if err := d.emit(ctx, r); err != nil {
			if err := d.fail(r, err); err != nil {
				return r.stats, err
			}
		}
	}

	d.logger.Info("decode finished",
		"samples", r.stats.Samples,
		"cycles", r.stats.Cycles,
		"unclassified", r.stats.Unclassified,
		"blocks", r.stats.TotalBlocks(),
		"resyncs", r.asm.Resyncs(),
		"programs", r.stats.Programs)

	return r.stats, errors.Join(r.errs...)
}

func (d *Decoder) handleBlock(ctx context.Context, r *run, blk *tape.Block) error {
	r.stats.Blocks[blk.Type]++
	if d.onBlock != nil {
		d.onBlock(blk, r.det.Position())
	}
	d.logger.Debug("block complete", "type", blk.Type, "length", blk.Length)

	if r.skipping {
		switch blk.Type {
		case tape.BlockEOF:
			r.skipping = false
			return nil
		case tape.BlockName:
			r.skipping = false
		default:
			return nil
		}
	}

	r.seq.Append(blk)
	if blk.Type != tape.BlockEOF {
		return nil
	}

	if err := d.emit(ctx, r); err != nil {
		return d.fail(r, err)
	}
	return nil
}

// emit reconstructs the current sequence and hands it to the sink. The
// sequence is released whether or not reconstruction succeeds.
func (d *Decoder) emit(ctx context.Context, r *run) *Error {
	defer r.seq.Reset()

	prog, rerr := basic.Reconstruct(r.seq.Blocks())
	if rerr != nil {
		d.dumpPayload(ctx, rerr)
	}

	if prog != nil && (prog.Header != nil || len(prog.Lines) > 0) {
		if err := d.sink.WriteProgram(prog); err != nil {
			return &Error{Stage: StageOutput, Err: err}
		}
	}

	if rerr != nil {
		return &Error{Stage: StageReconstruct, Err: rerr}
	}

	r.stats.Programs++
	return nil
}

// fail applies the failure policy. It returns err when the run must stop.
func (d *Decoder) fail(r *run, err *Error) error {
	r.stats.Errors++
	if !d.cfg.ContinueOnError || err.Stage == StageOutput {
		return err
	}

	d.logger.Warn("dropping program", "error", err)
	r.errs = append(r.errs, err)
	r.seq.Reset()
	r.asm.Resync()
	return nil
}

func (d *Decoder) dumpPayload(ctx context.Context, err error) {
	var bnErr *basic.BlockNumberError
	if !errors.As(err, &bnErr) || !d.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	var sb strings.Builder
	if diag.Dump(&sb, bnErr.Payload) == nil {
		d.logger.Debug("block payload", "offset", bnErr.Offset, "dump", "\n"+sb.String())
	}
}
