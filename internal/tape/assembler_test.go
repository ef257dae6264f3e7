package tape

import (
	"bytes"
	"errors"
	"testing"

	"cocotape/internal/demod"
)

// bitsFor serializes bytes least-significant bit first, as the tape does
func bitsFor(data ...byte) []demod.Bit {
	bits := make([]demod.Bit, 0, len(data)*8)
	for _, v := range data {
		for i := 0; i < 8; i++ {
			if v&(1<<i) != 0 {
				bits = append(bits, demod.One)
			} else {
				bits = append(bits, demod.Zero)
			}
		}
	}
	return bits
}

func leader(n int) []byte {
	return bytes.Repeat([]byte{LeaderByte}, n)
}

func checksum(data ...byte) byte {
	var sum byte
	for _, v := range data {
		sum += v
	}
	return sum
}

// frame builds sync, type, length, payload, checksum and trailing leader
func frame(typ byte, payload []byte) []byte {
	out := []byte{SyncByte, typ, byte(len(payload))}
	out = append(out, payload...)
	return append(out, checksum(out[1:]...), LeaderByte)
}

func nameBlock(name string, fileType, asciiFlag, gapFlag byte, start, load [2]byte) []byte {
	payload := []byte(name)
	payload = append(payload, fileType, asciiFlag, gapFlag)
	payload = append(payload, start[:]...)
	payload = append(payload, load[:]...)
	return frame(byte(BlockName), payload)
}

func feed(a *Assembler, bits []demod.Bit) ([]*Block, error) {
	var done []*Block
	for _, bit := range bits {
		b, err := a.PushBit(bit)
		if err != nil {
			return done, err
		}
		if b != nil {
			done = append(done, b)
		}
	}
	return done, nil
}

func TestDataBlockAfterLeader(t *testing.T) {
	a := NewAssembler(nil)

	// 128 alternating cycles are 16 leader bytes
	stream := append(leader(16), frame(byte(BlockData), []byte{0xAA, 0xBB})...)
	blocks, err := feed(a, bitsFor(stream...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(blocks) != 1 {
		t.Fatalf("Expected 1 completed block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Type != BlockData {
		t.Errorf("Expected Data block, got %v", b.Type)
	}
	if b.Length != 2 {
		t.Errorf("Expected length 2, got %d", b.Length)
	}
	if !bytes.Equal(b.Data, []byte{0xAA, 0xBB}) {
		t.Errorf("Expected payload AA BB, got % X", b.Data)
	}
	if want := checksum(0x01, 0x02, 0xAA, 0xBB); b.ReceivedChecksum != want {
		t.Errorf("Expected checksum 0x%02X, got 0x%02X", want, b.ReceivedChecksum)
	}
	if !b.Complete() {
		t.Errorf("Expected block in Done state, got %v", b.State)
	}
	if a.Current() != nil {
		t.Error("Expected no block in progress after completion")
	}
}

func TestChecksumMismatch(t *testing.T) {
	a := NewAssembler(nil)

	stream := append(leader(16), frame(byte(BlockData), []byte{0xAA, 0xBB})...)
	stream[len(stream)-2]++ // checksum byte off by one

	blocks, err := feed(a, bitsFor(stream...))
	if err == nil {
		t.Fatal("expected checksum error but got none")
	}
	if len(blocks) != 0 {
		t.Errorf("Expected no completed blocks, got %d", len(blocks))
	}
	if !errors.Is(err, ErrChecksum) {
		t.Errorf("expected errors.Is(err, ErrChecksum), got %v", err)
	}

	var cerr *ChecksumError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ChecksumError, got %T", err)
	}
	want := checksum(0x01, 0x02, 0xAA, 0xBB)
	if cerr.Computed != want || cerr.Received != want+1 {
		t.Errorf("Expected computed 0x%02X received 0x%02X, got 0x%02X 0x%02X",
			want, want+1, cerr.Computed, cerr.Received)
	}
}

func TestCorruptPayloadByte(t *testing.T) {
	payload := []byte{0x1E, 0x00, 0x00, 0x64, 0x84, 0x00}
	for i := range payload {
		a := NewAssembler(nil)
		stream := append(leader(4), frame(byte(BlockData), payload)...)
		stream[4+3+i] ^= 0x10 // after leader, sync, type and length

		if _, err := feed(a, bitsFor(stream...)); !errors.Is(err, ErrChecksum) {
			t.Errorf("corrupting payload byte %d: expected checksum error, got %v", i, err)
		}
	}
}

func TestNameBlock(t *testing.T) {
	a := NewAssembler(nil)

	stream := append(leader(16), nameBlock("TEST    ", 0x00, 0x00, 0x01, [2]byte{0x0E, 0x00}, [2]byte{0x12, 0x34})...)
	blocks, err := feed(a, bitsFor(stream...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 completed block, got %d", len(blocks))
	}

	b := blocks[0]
	if b.Type != BlockName {
		t.Errorf("Expected Name block, got %v", b.Type)
	}
	if b.ProgramName() != "TEST    " {
		t.Errorf("Expected name %q, got %q", "TEST    ", b.ProgramName())
	}
	if b.FileType != FileBASIC {
		t.Errorf("Expected BASIC file type, got %v", b.FileType)
	}
	if b.ASCIIFlag != Binary {
		t.Errorf("Expected binary flag, got 0x%02X", b.ASCIIFlag)
	}
	if b.GapFlag != GapContinuous {
		t.Errorf("Expected continuous gap flag, got 0x%02X", b.GapFlag)
	}
	if b.StartAddress() != 0x0E00 {
		t.Errorf("Expected start address 0x0E00, got 0x%04X", b.StartAddress())
	}
	if b.LoadAddress() != 0x1234 {
		t.Errorf("Expected load address 0x1234, got 0x%04X", b.LoadAddress())
	}
	// Each load address byte counts the recorded length down.
	if b.Length != NameBlockLength-2 {
		t.Errorf("Expected recorded length %d, got %d", NameBlockLength-2, b.Length)
	}
}

func TestNameBlockWithNulPaddedName(t *testing.T) {
	a := NewAssembler(nil)

	blocks, err := feed(a, bitsFor(nameBlock("AB\x00\x00\x00\x00\x00\x00", 0x02, 0xFF, 0xFF, [2]byte{}, [2]byte{})...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 completed block, got %d", len(blocks))
	}
	if blocks[0].ProgramName() != "AB" {
		t.Errorf("Expected name %q, got %q", "AB", blocks[0].ProgramName())
	}
	if blocks[0].FileType != FileMachineLanguage {
		t.Errorf("Expected machine language file type, got %v", blocks[0].FileType)
	}
}

func TestEOFBlock(t *testing.T) {
	a := NewAssembler(nil)

	blocks, err := feed(a, bitsFor(append(leader(2), frame(byte(BlockEOF), nil)...)...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Type != BlockEOF {
		t.Fatalf("Expected one EndOfFile block, got %v", blocks)
	}
	if blocks[0].ReceivedChecksum != 0xFF {
		t.Errorf("Expected checksum 0xFF, got 0x%02X", blocks[0].ReceivedChecksum)
	}
}

func TestZeroLengthDataBlock(t *testing.T) {
	a := NewAssembler(nil)

	blocks, err := feed(a, bitsFor(frame(byte(BlockData), nil)...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 completed block, got %d", len(blocks))
	}
	if blocks[0].Length != 0 || len(blocks[0].Data) != 0 {
		t.Errorf("Expected empty payload, got length %d data % X", blocks[0].Length, blocks[0].Data)
	}
}

func TestByteOrderRoundTrip(t *testing.T) {
	for v := 0; v < 256; v++ {
		a := NewAssembler(nil)
		blocks, err := feed(a, bitsFor(frame(byte(BlockData), []byte{byte(v)})...))
		if err != nil {
			t.Fatalf("byte 0x%02X: unexpected error: %v", v, err)
		}
		if len(blocks) != 1 || len(blocks[0].Data) != 1 || blocks[0].Data[0] != byte(v) {
			t.Fatalf("byte 0x%02X: not reconstructed, got %v", v, blocks)
		}
	}
}

func TestUnclassifiedBitsAreDropped(t *testing.T) {
	a := NewAssembler(nil)

	var bits []demod.Bit
	for i, bit := range bitsFor(frame(byte(BlockData), []byte{0x12, 0x34, 0x56})...) {
		if i%3 == 0 {
			bits = append(bits, demod.Unclassified)
		}
		bits = append(bits, bit)
	}

	blocks, err := feed(a, bits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 || !bytes.Equal(blocks[0].Data, []byte{0x12, 0x34, 0x56}) {
		t.Fatalf("Expected payload 12 34 56, got %v", blocks)
	}
}

func TestBadBlockTypeResyncs(t *testing.T) {
	a := NewAssembler(nil)

	first := frame(byte(BlockData), []byte{0x01, 0x02, 0x03})
	stream := append(leader(4), first...)
	stream = append(stream, SyncByte, 0x42) // invalid type right after a sync
	stream = append(stream, leader(4)...)
	stream = append(stream, frame(byte(BlockData), []byte{0x09})...)

	blocks, err := feed(a, bitsFor(stream...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("Expected 2 completed blocks, got %d", len(blocks))
	}
	if !bytes.Equal(blocks[0].Data, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("first block corrupted: % X", blocks[0].Data)
	}
	if !bytes.Equal(blocks[1].Data, []byte{0x09}) {
		t.Errorf("second block: expected 09, got % X", blocks[1].Data)
	}
	if a.Resyncs() != 1 {
		t.Errorf("Expected 1 resync, got %d", a.Resyncs())
	}
}

func TestBadLengthResyncs(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
	}{
		{"name block not 15 bytes", []byte{SyncByte, byte(BlockName), 14}},
		{"eof block not empty", []byte{SyncByte, byte(BlockEOF), 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssembler(nil)
			stream := append([]byte{}, tt.header...)
			stream = append(stream, leader(2)...)
			stream = append(stream, frame(byte(BlockEOF), nil)...)

			blocks, err := feed(a, bitsFor(stream...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(blocks) != 1 || blocks[0].Type != BlockEOF {
				t.Fatalf("Expected only the following EOF block, got %v", blocks)
			}
			if a.Resyncs() != 1 {
				t.Errorf("Expected 1 resync, got %d", a.Resyncs())
			}
		})
	}
}

func TestSequenceReset(t *testing.T) {
	var seq Sequence
	seq.Append(newBlock())
	seq.Append(newBlock())
	if seq.Len() != 2 {
		t.Fatalf("Expected 2 blocks, got %d", seq.Len())
	}
	seq.Reset()
	if seq.Len() != 0 || len(seq.Blocks()) != 0 {
		t.Errorf("Expected empty sequence after reset, got %d", seq.Len())
	}
}
