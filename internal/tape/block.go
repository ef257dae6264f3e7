// Package tape reassembles the Color Computer cassette block protocol from
// a stream of classified bits.
//
// A recording is a leader of 0x55 bytes followed by blocks, each framed as
//
//	0x3C sync | type | length | payload (0-255 bytes) | checksum | 0x55 leader
//
// where the checksum is the 8-bit sum of type, length and payload. A
// program is a Name block (type 0x00, 15 bytes), one or more Data blocks
// (type 0x01) and an EndOfFile block (type 0xFF, empty).
package tape

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Protocol constants
const (
	SyncByte   = 0x3C
	LeaderByte = 0x55

	NameLength      = 8  // program name bytes in a Name block
	NameBlockLength = 15 // declared length of every Name block
)

// BlockType is the type byte of a block. BlockUnknown is used until the
// type byte has been accepted.
type BlockType int

const (
	BlockUnknown BlockType = -1
	BlockName    BlockType = 0x00
	BlockData    BlockType = 0x01
	BlockEOF     BlockType = 0xFF
)

func (t BlockType) String() string {
	switch t {
	case BlockName:
		return "Name"
	case BlockData:
		return "Data"
	case BlockEOF:
		return "EndOfFile"
	default:
		return "Unknown"
	}
}

// FileType describes the contents announced by a Name block
type FileType uint8

const (
	FileBASIC           FileType = 0x00
	FileData            FileType = 0x01
	FileMachineLanguage FileType = 0x02
)

func (f FileType) String() string {
	switch f {
	case FileBASIC:
		return "BASIC"
	case FileData:
		return "Data"
	case FileMachineLanguage:
		return "Machine Language"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint8(f))
	}
}

// ASCIIFlag tells whether a BASIC program was saved as text or tokens
type ASCIIFlag uint8

const (
	Binary ASCIIFlag = 0x00
	ASCII  ASCIIFlag = 0xFF
)

// GapFlag tells whether blocks are written continuously or with gaps.
// Recordings in the wild mostly carry 0x00, which the service manual
// does not define.
type GapFlag uint8

const (
	GapUnknown    GapFlag = 0x00
	GapContinuous GapFlag = 0x01
	GapGaps       GapFlag = 0xFF
)

// State is the framing state of a block
type State int

const (
	NeedLeadByte State = iota
	NeedSyncByte
	NeedBlockType
	NeedLength
	NeedData
	NeedName
	NeedFileType
	NeedASCIIFlag
	NeedGapFlag
	NeedStartAddr
	NeedLoadAddr
	NeedChecksum
	Done
)

var stateNames = [...]string{
	NeedLeadByte:  "NeedLeadByte",
	NeedSyncByte:  "NeedSyncByte",
	NeedBlockType: "NeedBlockType",
	NeedLength:    "NeedLength",
	NeedData:      "NeedData",
	NeedName:      "NeedName",
	NeedFileType:  "NeedFileType",
	NeedASCIIFlag: "NeedASCIIFlag",
	NeedGapFlag:   "NeedGapFlag",
	NeedStartAddr: "NeedStartAddr",
	NeedLoadAddr:  "NeedLoadAddr",
	NeedChecksum:  "NeedChecksum",
	Done:          "Done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Block is one framed protocol unit
type Block struct {
	State            State
	Type             BlockType
	Length           uint8
	Checksum         uint8 // running sum of type, length and payload
	ReceivedChecksum uint8
	Data             []byte // Data block payload, Length bytes

	// Name block fields
	Name      [NameLength]byte
	FileType  FileType
	ASCIIFlag ASCIIFlag
	GapFlag   GapFlag
	StartAddr [2]byte
	LoadAddr  [2]byte

	// decoding scratch
	shift    byte
	nbits    int
	dataIdx  int
	nameIdx  int
	startIdx int
	loadIdx  int
}

func newBlock() *Block {
	return &Block{
		State: NeedSyncByte,
		Type:  BlockUnknown,
	}
}

// reset returns the block to sync hunting, dropping everything gathered so far
func (b *Block) reset() {
	*b = Block{
		State: NeedSyncByte,
		Type:  BlockUnknown,
	}
}

// ProgramName returns the Name block name up to the first NUL byte
func (b *Block) ProgramName() string {
	name := b.Name[:]
	if i := strings.IndexByte(string(name), 0); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

// StartAddress returns the machine language exec address (6809 byte order)
func (b *Block) StartAddress() uint16 {
	return binary.BigEndian.Uint16(b.StartAddr[:])
}

// LoadAddress returns the machine language load address (6809 byte order)
func (b *Block) LoadAddress() uint16 {
	return binary.BigEndian.Uint16(b.LoadAddr[:])
}

// Complete reports whether the block reached the Done state
func (b *Block) Complete() bool {
	return b.State == Done
}

// Sequence is the ordered list of completed blocks making up one program
type Sequence struct {
	blocks []*Block
}

// Append adds a completed block in arrival order
func (s *Sequence) Append(b *Block) {
	s.blocks = append(s.blocks, b)
}

// Blocks returns the blocks in arrival order
func (s *Sequence) Blocks() []*Block {
	return s.blocks
}

// Len returns the number of blocks in the sequence
func (s *Sequence) Len() int {
	return len(s.blocks)
}

// Reset releases every block so the next program starts empty
func (s *Sequence) Reset() {
	clear(s.blocks)
	s.blocks = s.blocks[:0]
}
