package tape

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cocotape/internal/demod"
)

// ErrChecksum is matched by every ChecksumError
var ErrChecksum = errors.New("checksum mismatch")

// ChecksumError reports a block whose received checksum disagrees with the
// sum of its type, length and payload bytes.
type ChecksumError struct {
	Type     BlockType
	Length   uint8
	Computed uint8
	Received uint8
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s block (length %d): checksum mismatch: computed 0x%02X, received 0x%02X",
		e.Type, e.Length, e.Computed, e.Received)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksum
}

// Assembler packs classified bits into bytes and drives the block state
// machine. It holds at most one block in progress.
type Assembler struct {
	logger *slog.Logger
	cur    *Block

	// aligned is false while hunting for the sync byte, when the byte
	// register is tested after every bit rather than every eighth.
	aligned bool

	resyncs int
}

// NewAssembler creates an assembler hunting for the first sync byte
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assembler{logger: logger}
}

// Current returns the block in progress, or nil between blocks
func (a *Assembler) Current() *Block {
	return a.cur
}

// Resyncs returns how many block attempts were abandoned on a bad type or length
func (a *Assembler) Resyncs() int {
	return a.resyncs
}

// Resync drops the block in progress and returns to sync hunting
func (a *Assembler) Resync() {
	a.cur = nil
	a.aligned = false
}

// PushBit feeds one classified bit. Unclassified bits are ignored. When the
// bit completes a block, the block is returned and ownership passes to the
// caller; the next bit starts a fresh block. A checksum mismatch is
// returned as a *ChecksumError and leaves the assembler between blocks.
func (a *Assembler) PushBit(bit demod.Bit) (*Block, error) {
	if bit == demod.Unclassified {
		return nil, nil
	}

	if a.cur == nil {
		a.cur = newBlock()
		a.aligned = false
	}
	b := a.cur

	b.shift >>= 1
	if bit == demod.One {
		b.shift |= 0x80
	}

	if !a.aligned {
		if b.shift == SyncByte {
			a.logger.Debug("found sync byte")
			b.shift = 0
			b.nbits = 0
			b.State = NeedBlockType
			a.aligned = true
		}
		return nil, nil
	}

	b.nbits++
	if b.nbits < 8 {
		return nil, nil
	}

	value := b.shift
	b.shift = 0
	b.nbits = 0

	if err := a.acceptByte(b, value); err != nil {
		a.cur = nil
		a.aligned = false
		return nil, err
	}

	if b.State == Done {
		a.cur = nil
		a.aligned = false
		return b, nil
	}
	return nil, nil
}

// acceptByte advances the state machine by one aligned byte
func (a *Assembler) acceptByte(b *Block, value byte) error {
	switch b.State {
	case NeedBlockType:
		switch BlockType(value) {
		case BlockName, BlockData, BlockEOF:
			b.Type = BlockType(value)
			b.Checksum = value
			b.State = NeedLength
			a.logger.Debug("found block type", "type", b.Type)
		default:
			a.logger.Debug("bad block type, resetting", "value", fmt.Sprintf("0x%02X", value))
			a.resync(b)
		}

	case NeedLength:
		b.Length = value
		b.Checksum += value
		a.logger.Debug("found length", "type", b.Type, "length", value)
		switch b.Type {
		case BlockName:
			if b.Length != NameBlockLength {
				a.logger.Debug("bad block length, resetting", "type", b.Type, "length", value)
				a.resync(b)
				return nil
			}
			b.State = NeedName
		case BlockEOF:
			if b.Length != 0 {
				a.logger.Debug("bad block length, resetting", "type", b.Type, "length", value)
				a.resync(b)
				return nil
			}
			b.State = NeedChecksum
		default:
			b.Data = make([]byte, b.Length)
			b.State = NeedData
			if b.Length == 0 {
				b.State = NeedChecksum
			}
		}

	case NeedName:
		b.Name[b.nameIdx] = value
		b.nameIdx++
		b.Checksum += value
		if b.nameIdx == NameLength {
			a.logger.Debug("found name", "name", b.ProgramName())
			b.State = NeedFileType
		}

	case NeedFileType:
		b.FileType = FileType(value)
		b.Checksum += value
		b.State = NeedASCIIFlag
		a.logger.Debug("found file type", "file_type", b.FileType)

	case NeedASCIIFlag:
		b.ASCIIFlag = ASCIIFlag(value)
		b.Checksum += value
		b.State = NeedGapFlag
		a.logger.Debug("found ascii flag", "value", fmt.Sprintf("0x%02X", value))

	case NeedGapFlag:
		b.GapFlag = GapFlag(value)
		b.Checksum += value
		b.State = NeedStartAddr
		a.logger.Debug("found gap flag", "value", fmt.Sprintf("0x%02X", value))

	case NeedStartAddr:
		b.StartAddr[b.startIdx] = value
		b.startIdx++
		b.Checksum += value
		if b.startIdx == len(b.StartAddr) {
			a.logger.Debug("found start address", "addr", fmt.Sprintf("0x%04X", b.StartAddress()))
			b.State = NeedLoadAddr
		}

	case NeedLoadAddr:
		b.LoadAddr[b.loadIdx] = value
		b.loadIdx++
		b.Checksum += value
		// The recorded length counts down over the load address bytes.
		// TODO: check against a hardware capture whether Length should stay 15.
		b.Length--
		if b.loadIdx == len(b.LoadAddr) {
			a.logger.Debug("found load address", "addr", fmt.Sprintf("0x%04X", b.LoadAddress()))
			b.State = NeedChecksum
		}

	case NeedData:
		b.Data[b.dataIdx] = value
		b.dataIdx++
		b.Checksum += value
		if b.dataIdx == len(b.Data) {
			b.State = NeedChecksum
		}

	case NeedChecksum:
		b.ReceivedChecksum = value
		a.logger.Debug("found checksum", "received", fmt.Sprintf("0x%02X", value),
			"computed", fmt.Sprintf("0x%02X", b.Checksum))
		if value != b.Checksum {
			return &ChecksumError{
				Type:     b.Type,
				Length:   b.Length,
				Computed: b.Checksum,
				Received: value,
			}
		}
		b.State = NeedLeadByte

	case NeedLeadByte:
		a.logger.Debug("found trailing leader", "value", fmt.Sprintf("0x%02X", value))
		b.State = Done

	default:
		return fmt.Errorf("bad block state %v", b.State)
	}

	return nil
}

// resync abandons the block attempt in place and hunts for a new sync byte
func (a *Assembler) resync(b *Block) {
	b.reset()
	a.aligned = false
	a.resyncs++
}
