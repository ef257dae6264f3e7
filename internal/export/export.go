// Package export renders decoded programs as text listings, JSON or YAML.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"cocotape/internal/basic"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the accepted output formats
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// ProgramDoc is the structured form of a decoded program
type ProgramDoc struct {
	Header *HeaderDoc `json:"header,omitempty" yaml:"header,omitempty"`
	Lines  []LineDoc  `json:"lines" yaml:"lines"`
}

// HeaderDoc carries the Name block fields
type HeaderDoc struct {
	Name         string `json:"name" yaml:"name"`
	FileType     string `json:"file_type" yaml:"file_type"`
	ASCII        bool   `json:"ascii" yaml:"ascii"`
	GapFlag      uint8  `json:"gap_flag" yaml:"gap_flag"`
	StartAddress uint16 `json:"start_address" yaml:"start_address"`
	LoadAddress  uint16 `json:"load_address" yaml:"load_address"`
}

// LineDoc is one detokenized line
type LineDoc struct {
	Number uint16 `json:"number" yaml:"number"`
	Text   string `json:"text" yaml:"text"`
}

// NewProgramDoc converts a program to its structured form
func NewProgramDoc(p *basic.Program) *ProgramDoc {
	doc := &ProgramDoc{Lines: make([]LineDoc, 0, len(p.Lines))}
	if h := p.Header; h != nil {
		doc.Header = &HeaderDoc{
			Name:         h.Name,
			FileType:     h.FileType.String(),
			ASCII:        h.ASCII,
			GapFlag:      h.GapFlag,
			StartAddress: h.StartAddress,
			LoadAddress:  h.LoadAddress,
		}
	}
	for _, l := range p.Lines {
		doc.Lines = append(doc.Lines, LineDoc{Number: l.Number, Text: l.Text()})
	}
	return doc
}

// Writer renders every program it is given to one output stream
type Writer struct {
	w       io.Writer
	format  string
	jsonEnc *json.Encoder
	yamlEnc *yaml.Encoder
	encoded bool // a YAML document has been started
	closed  bool
}

// NewWriter creates a writer for one of Formats
func NewWriter(w io.Writer, format string) (*Writer, error) {
	wr := &Writer{w: w, format: format}
	switch format {
	case FormatText:
	case FormatJSON:
		wr.jsonEnc = json.NewEncoder(w)
		wr.jsonEnc.SetIndent("", "  ")
	case FormatYAML:
		wr.yamlEnc = yaml.NewEncoder(w)
		wr.yamlEnc.SetIndent(2)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return wr, nil
}

// WriteProgram renders one program
func (w *Writer) WriteProgram(p *basic.Program) error {
	switch w.format {
	case FormatJSON:
		if err := w.jsonEnc.Encode(NewProgramDoc(p)); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case FormatYAML:
		w.encoded = true
		if err := w.yamlEnc.Encode(NewProgramDoc(p)); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return nil
	default:
		return WriteText(w.w, p)
	}
}

// Close flushes any buffered document. A YAML writer that never received a
// program writes nothing. Later calls do nothing.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.yamlEnc != nil && w.encoded {
		return w.yamlEnc.Close()
	}
	return nil
}

// WriteText writes the classic listing: an optional name header, then
// each line as a right-aligned line number and its detokenized text.
func WriteText(w io.Writer, p *basic.Program) error {
	if p.Header != nil {
		if _, err := fmt.Fprintf(w, "Program: %8s\n", p.Header.Name); err != nil {
			return err
		}
	}
	for _, l := range p.Lines {
		if _, err := fmt.Fprintf(w, "%5d %s\n", l.Number, l.Text()); err != nil {
			return err
		}
	}
	return nil
}
