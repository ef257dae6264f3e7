package basic

import (
	"errors"
	"fmt"

	"cocotape/internal/tape"
)

// MaxLineLength bounds the tokenized content of one line
const MaxLineLength = 4096

var (
	// ErrLineTooLong is returned when a line has no terminator within MaxLineLength bytes.
	ErrLineTooLong = errors.New("line too long for buffer")

	// ErrTruncated is returned when the data blocks end in the middle of a line.
	ErrTruncated = errors.New("data blocks end mid-line")
)

// BlockNumberError reports a line that does not start with the expected
// block number or its successor.
type BlockNumberError struct {
	Got      byte
	Expected byte
	Offset   int    // offset of the bad byte within its block
	Payload  []byte // payload of the block holding the bad byte
}

func (e *BlockNumberError) Error() string {
	return fmt.Sprintf("bad start of line 0x%02X != 0x%02X at offset 0x%02X", e.Got, e.Expected, e.Offset)
}

// Header is the Name block information announced before a program
type Header struct {
	Name         string
	FileType     tape.FileType
	ASCII        bool
	GapFlag      uint8
	StartAddress uint16
	LoadAddress  uint16
}

// Line is one reconstructed program line
type Line struct {
	Number uint16
	Raw    []byte
}

// Text returns the detokenized line content
func (l Line) Text() string {
	return Detokenize(l.Raw)
}

// Program is one decoded tape program
type Program struct {
	Header *Header
	Lines  []Line
}

// stream reads the payloads of consecutive Data blocks as one byte stream
type stream struct {
	blocks []*tape.Block
	cur    int // index into blocks
	pos    int // offset within blocks[cur].Data
	blkn   byte
}

func (s *stream) block() *tape.Block {
	if s.cur >= len(s.blocks) {
		return nil
	}
	return s.blocks[s.cur]
}

func (s *stream) eof() bool {
	return s.block() == nil
}

func (s *stream) peek() (byte, bool) {
	b := s.block()
	if b == nil {
		return 0, false
	}
	return b.Data[s.pos], true
}

// advance moves one byte on, stepping into the next block (and the next
// expected block number) when the current one is used up.
func (s *stream) advance() {
	s.pos++
	if s.pos == len(s.blocks[s.cur].Data) {
		s.pos = 0
		s.cur++
		s.blkn++
	}
}

func (s *stream) next() (byte, error) {
	c, ok := s.peek()
	if !ok {
		return 0, ErrTruncated
	}
	s.advance()
	return c, nil
}

// atEnd reports the end-of-program marker: the current block ends in a
// zero link, written as either three or two trailing zero bytes.
func (s *stream) atEnd() bool {
	b := s.block()
	rest := b.Data[s.pos:]
	if len(rest) != 2 && len(rest) != 3 {
		return false
	}
	for _, c := range rest {
		if c != 0 {
			return false
		}
	}
	return true
}

// Reconstruct rebuilds the program carried by a completed block sequence.
// On a structural error the lines recovered so far are returned alongside
// the error.
func Reconstruct(blocks []*tape.Block) (*Program, error) {
	prog := &Program{}

	if len(blocks) > 0 && blocks[0].Complete() && blocks[0].Type == tape.BlockName {
		prog.Header = headerOf(blocks[0])
	}

	var data []*tape.Block
	for _, b := range blocks {
		if b.Type == tape.BlockData && len(b.Data) > 0 {
			data = append(data, b)
		}
	}
	if len(data) == 0 {
		return prog, nil
	}

	s := &stream{blocks: data, blkn: data[0].Data[0]}
	for !s.eof() {
		if s.atEnd() {
			return prog, nil
		}

		line, err := readLine(s)
		if err != nil {
			return prog, err
		}
		prog.Lines = append(prog.Lines, line)
	}

	return prog, nil
}

func readLine(s *stream) (Line, error) {
	start, _ := s.peek()
	if start != s.blkn && start != s.blkn+1 {
		return Line{}, &BlockNumberError{
			Got:      start,
			Expected: s.blkn,
			Offset:   s.pos,
			Payload:  s.block().Data,
		}
	}
	s.advance()

	// The next-line offset is not reliable across blocks; lines are
	// delimited by their NUL terminator instead.
	if _, err := s.next(); err != nil {
		return Line{}, err
	}

	hi, err := s.next()
	if err != nil {
		return Line{}, err
	}
	lo, err := s.next()
	if err != nil {
		return Line{}, err
	}
	line := Line{Number: uint16(hi)<<8 | uint16(lo)}

	for {
		c, err := s.next()
		if err != nil {
			return Line{}, err
		}
		if c == 0 {
			break
		}
		line.Raw = append(line.Raw, c)
		if len(line.Raw) >= MaxLineLength {
			return Line{}, fmt.Errorf("%w (%d>=%d)", ErrLineTooLong, len(line.Raw), MaxLineLength)
		}
	}

	return line, nil
}

func headerOf(b *tape.Block) *Header {
	return &Header{
		Name:         b.ProgramName(),
		FileType:     b.FileType,
		ASCII:        b.ASCIIFlag == tape.ASCII,
		GapFlag:      uint8(b.GapFlag),
		StartAddress: b.StartAddress(),
		LoadAddress:  b.LoadAddress(),
	}
}
