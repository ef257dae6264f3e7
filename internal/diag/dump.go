// Package diag formats raw block payloads for debugging output.
package diag

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	bytesPerLine = 16
	separator    = " |  "
)

// Dump writes data as offset, hex and ASCII columns, sixteen bytes per
// line. Runs of identical lines are collapsed into a repeat count.
func Dump(w io.Writer, data []byte) error {
	bw := bufio.NewWriter(w)

	var last string
	repeat := 0
	for off := 0; off < len(data); off += bytesPerLine {
		end := min(off+bytesPerLine, len(data))
		line := formatLine(data[off:end])

		if line == last {
			repeat++
			continue
		}
		if repeat > 0 {
			fmt.Fprintf(bw, "    Last line repeated %d time(s)\n", repeat)
		}
		fmt.Fprintf(bw, "%08x %s\n", off, line)
		last = line
		repeat = 0
	}
	if repeat > 0 {
		fmt.Fprintf(bw, "Line repeated %d time(s)\n", repeat)
	}

	return bw.Flush()
}

func formatLine(chunk []byte) string {
	var sb strings.Builder
	for _, c := range chunk {
		fmt.Fprintf(&sb, "%02X ", c)
	}

	// short lines pad the separator so the ASCII column stays aligned
	sb.WriteString(strings.Repeat(" ", (bytesPerLine-len(chunk))*3))
	sb.WriteString(separator)

	for _, c := range chunk {
		if c >= 0x20 && c <= 0x7E {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
