package freq

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Output formats accepted by Encode.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatCBOR     = "cbor"
	FormatMarkdown = "markdown"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatText, FormatJSON, FormatCBOR, FormatMarkdown}

// Document is the structured form of a report used by the JSON and CBOR
// encodings.
type Document struct {
	Total    int           `json:"total" cbor:"total"`
	Distinct int           `json:"distinct" cbor:"distinct"`
	Entries  []DocumentRow `json:"entries" cbor:"entries"`
}

// DocumentRow is one report entry. Bytes is the hex raw encoding.
type DocumentRow struct {
	Count int    `json:"count" cbor:"count"`
	Text  string `json:"text" cbor:"text"`
	Bytes string `json:"bytes" cbor:"bytes"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("freq: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Document converts r to its structured form.
func (r *Report) Document() Document {
	doc := Document{
		Total:    r.Total,
		Distinct: r.Distinct(),
		Entries:  make([]DocumentRow, 0, len(r.Entries)),
	}
	for _, e := range r.Entries {
		doc.Entries = append(doc.Entries, DocumentRow{
			Count: e.Count,
			Text:  e.Text,
			Bytes: hex.EncodeToString(e.Inst.Encoding()),
		})
	}
	return doc
}

// Encode writes r to w in the given format.
func (r *Report) Encode(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return r.WriteText(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.Document())
	case FormatCBOR:
		data, err := cborEncMode.Marshal(r.Document())
		if err != nil {
			return fmt.Errorf("marshal cbor: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, r.Markdown())
		return err
	}
	return fmt.Errorf("unknown output format: %s", format)
}

// DecodeCBOR parses a document written by Encode with FormatCBOR.
func DecodeCBOR(data []byte) (Document, error) {
	var doc Document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("freq: unmarshal report: %w", err)
	}
	return doc, nil
}

// Markdown renders r as a markdown table.
func (r *Report) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Instructions\n\n%d instructions, %d distinct\n\n", r.Total, r.Distinct())
	sb.WriteString("| Count | Instruction | Bytes |\n|---:|---|---|\n")
	for _, e := range r.Entries {
		text := strings.ReplaceAll(e.Text, "\t", " ")
		text = strings.ReplaceAll(text, "|", `\|`)
		fmt.Fprintf(&sb, "| %d | `%s` | `%s` |\n", e.Count, text, hex.EncodeToString(e.Inst.Encoding()))
	}
	return sb.String()
}
