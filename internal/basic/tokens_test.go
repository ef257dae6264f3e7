package basic

import "testing"

func TestTokenTableSizes(t *testing.T) {
	if len(operatorTokens) != 97 {
		t.Errorf("Expected 97 operator tokens, got %d", len(operatorTokens))
	}
	if len(functionTokens) != 39 {
		t.Errorf("Expected 39 function tokens, got %d", len(functionTokens))
	}
}

func TestKeyword(t *testing.T) {
	tests := []struct {
		b    byte
		want string
		ok   bool
	}{
		{0x80, "FOR", true},
		{0x83, "'", true},
		{0x87, "PRINT", true},
		{0xA4, "TAB(", true},
		{0xDF, "DSKI$", true},
		{0xE0, "DSKO$", true},
		{0xE1, "", false},
		{0x7F, "", false},
	}

	for _, tt := range tests {
		got, ok := Keyword(tt.b)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Keyword(0x%02X): expected %q %v, got %q %v", tt.b, tt.want, tt.ok, got, ok)
		}
	}
}

func TestFunctionKeyword(t *testing.T) {
	tests := []struct {
		b    byte
		want string
		ok   bool
	}{
		{0x80, "SGN", true},
		{0x86, "PEEK", true},
		{0x92, "INKEY$", true},
		{0xA6, "MKN$", true},
		{0xA7, "", false},
		{0x10, "", false},
	}

	for _, tt := range tests {
		got, ok := FunctionKeyword(tt.b)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FunctionKeyword(0x%02X): expected %q %v, got %q %v", tt.b, tt.want, tt.ok, got, ok)
		}
	}
}

func TestDetokenizeEveryToken(t *testing.T) {
	operators := []string{
		"FOR", "GO", "REM", "'", "ELSE", "IF", "DATA", "PRINT",
		"ON", "INPUT", "END", "NEXT", "DIM", "READ", "RUN", "RESTORE",
		"RETURN", "STOP", "POKE", "CONT", "LIST", "CLEAR", "NEW", "CLOAD",
		"CSAVE", "OPEN", "CLOSE", "LLIST", "SET", "RESET", "CLS", "MOTOR",
		"SOUND", "AUDIO", "EXEC", "SKIPF", "TAB(", "TO", "SUB", "THEN",
		"NOT", "STEP", "OFF", "+", "-", "*", "/", "^",
		"AND", "OR", ">", "=", "<", "DEL", "EDIT", "TRON",
		"TROFF", "DEF", "LET", "LINE", "PCLS", "PSET", "PRESET", "SCREEN",
		"PCLEAR", "COLOR", "CIRCLE", "PAINT", "GET", "PUT", "DRAW", "PCOPY",
		"PMODE", "PLAY", "DLOAD", "RENUM", "FN", "USING", "DIR", "DRIVE",
		"FIELD", "FILES", "KILL", "LOAD", "LSET", "MERGE", "RENAME", "RSET",
		"SAVE", "WRITE", "VERIFY", "UNLOAD", "DSKINI", "BACKUP", "COPY", "DSKI$",
	}
	functions := []string{
		"SGN", "INT", "ABS", "USR", "RND", "SIN", "PEEK", "LEN",
		"STR$", "VAL", "ASC", "CHR$", "EOF", "JOYSTK", "LEFT$", "RIGHT$",
		"MID$", "POINT", "INKEY$", "MEM", "ATN", "COS", "TAN", "EXP",
		"FIX", "LOG", "POS", "SQR", "HEX$", "VARPTR", "INSTR", "TIMER",
		"PPOINT", "STRING$", "CVN", "FREE", "LOC", "LOF", "MKN$",
	}

	if len(operators) != 96 || len(functions) != 39 {
		t.Fatalf("keyword lists have %d operators and %d functions", len(operators), len(functions))
	}

	for i, want := range operators {
		b := byte(0x80 + i)
		if got := Detokenize([]byte{b}); got != want {
			t.Errorf("operator 0x%02X: expected %q, got %q", b, want, got)
		}
	}
	if got := Detokenize([]byte{0xE0}); got != `\xE0` {
		t.Errorf("operator 0xE0: expected escape, got %q", got)
	}

	for i, want := range functions {
		b := byte(0x80 + i)
		if got := Detokenize([]byte{0xFF, b}); got != want {
			t.Errorf("function 0x%02X: expected %q, got %q", b, want, got)
		}
	}
}

func TestDetokenize(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, ""},
		{"printable", []byte(`A=1:B$="X"`), `A=1:B$="X"`},
		{"operator", []byte{0x87, ' ', '"', 'H', 'I', '"'}, `PRINT "HI"`},
		{"else", []byte{0x84}, "ELSE"},
		{"function", []byte{'X', 0xB3, 0xFF, 0x86, '(', '1', ')'}, "X=PEEK(1)"},
		{"last function", []byte{0xFF, 0xA6}, "MKN$"},
		{"nul is dropped", []byte{'A', 0x00, 'B'}, "AB"},
		{"control byte", []byte{0x01}, `\x01`},
		{"del", []byte{0x7F}, `\x7F`},
		{"past operator range", []byte{0xE0}, `\xE0`},
		{"high byte", []byte{0xF5}, `\xF5`},
		{"unknown function", []byte{0xFF, 0x20}, `\xFF\x20`},
		{"trailing prefix", []byte{'A', 0xFF}, `A\xFF`},
		{"for loop", []byte{0x80, 'I', 0xB3, '1', 0xA5, '1', '0'}, "FORI=1TO10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detokenize(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
