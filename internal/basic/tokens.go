// Package basic rebuilds tokenized Color BASIC programs from tape data
// blocks and renders them as text.
package basic

import (
	"fmt"
	"strings"
)

const (
	tokenBase      = 0x80
	operatorLimit  = 0xE0 // first byte past the detokenized operator range
	functionPrefix = 0xFF
	printableFirst = 0x20
	printableLast  = 0x7E
)

// Operator (statement) tokens of Color BASIC, Extended Color BASIC and
// Disk BASIC, indexed from 0x80.
var operatorTokens = [...]string{
	/* 0x80 */ "FOR", "GO", "REM", "'", "ELSE", "IF", "DATA", "PRINT",
	/* 0x88 */ "ON", "INPUT", "END", "NEXT", "DIM", "READ", "RUN", "RESTORE",
	/* 0x90 */ "RETURN", "STOP", "POKE", "CONT", "LIST", "CLEAR", "NEW", "CLOAD",
	/* 0x98 */ "CSAVE", "OPEN", "CLOSE", "LLIST", "SET", "RESET", "CLS", "MOTOR",
	/* 0xA0 */ "SOUND", "AUDIO", "EXEC", "SKIPF", "TAB(", "TO", "SUB", "THEN",
	/* 0xA8 */ "NOT", "STEP", "OFF", "+", "-", "*", "/", "^",
	/* 0xB0 */ "AND", "OR", ">", "=", "<", "DEL", "EDIT", "TRON",
	/* 0xB8 */ "TROFF", "DEF", "LET", "LINE", "PCLS", "PSET", "PRESET", "SCREEN",
	/* 0xC0 */ "PCLEAR", "COLOR", "CIRCLE", "PAINT", "GET", "PUT", "DRAW", "PCOPY",
	/* 0xC8 */ "PMODE", "PLAY", "DLOAD", "RENUM", "FN", "USING", "DIR", "DRIVE",
	/* 0xD0 */ "FIELD", "FILES", "KILL", "LOAD", "LSET", "MERGE", "RENAME", "RSET",
	/* 0xD8 */ "SAVE", "WRITE", "VERIFY", "UNLOAD", "DSKINI", "BACKUP", "COPY", "DSKI$",
	/* 0xE0 */ "DSKO$",
}

// Function tokens, written as 0xFF followed by the index byte from 0x80.
var functionTokens = [...]string{
	/* 0x80 */ "SGN", "INT", "ABS", "USR", "RND", "SIN", "PEEK", "LEN",
	/* 0x88 */ "STR$", "VAL", "ASC", "CHR$", "EOF", "JOYSTK", "LEFT$", "RIGHT$",
	/* 0x90 */ "MID$", "POINT", "INKEY$", "MEM", "ATN", "COS", "TAN", "EXP",
	/* 0x98 */ "FIX", "LOG", "POS", "SQR", "HEX$", "VARPTR", "INSTR", "TIMER",
	/* 0xA0 */ "PPOINT", "STRING$", "CVN", "FREE", "LOC", "LOF", "MKN$",
}

// Keyword returns the operator keyword for a token byte
func Keyword(b byte) (string, bool) {
	if b < tokenBase || int(b-tokenBase) >= len(operatorTokens) {
		return "", false
	}
	return operatorTokens[b-tokenBase], true
}

// FunctionKeyword returns the keyword for the byte following a 0xFF prefix
func FunctionKeyword(b byte) (string, bool) {
	if b < tokenBase || int(b-tokenBase) >= len(functionTokens) {
		return "", false
	}
	return functionTokens[b-tokenBase], true
}

// Detokenize renders a tokenized line. Printable ASCII is copied, tokens are
// expanded, NUL bytes vanish and anything else becomes a \xHH escape.
func Detokenize(line []byte) string {
	var sb strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c >= printableFirst && c <= printableLast:
			sb.WriteByte(c)
		case c >= tokenBase && c < operatorLimit:
			sb.WriteString(operatorTokens[c-tokenBase])
		case c == functionPrefix:
			if i+1 >= len(line) {
				writeEscape(&sb, c)
				break
			}
			i++
			if kw, ok := FunctionKeyword(line[i]); ok {
				sb.WriteString(kw)
			} else {
				writeEscape(&sb, c)
				writeEscape(&sb, line[i])
			}
		case c == 0:
		default:
			writeEscape(&sb, c)
		}
	}
	return sb.String()
}

func writeEscape(sb *strings.Builder, c byte) {
	fmt.Fprintf(sb, "\\x%02X", c)
}
