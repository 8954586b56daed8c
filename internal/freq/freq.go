// Package freq counts how often each distinct instruction occurs in a
// bytecode image and produces a sorted report.
package freq

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"bcfreq/internal/bytecode"
	"bcfreq/internal/image"
)

// Entry is one distinct instruction and its number of occurrences.
type Entry struct {
	Inst  bytecode.Inst
	Text  string
	Count int
}

// Report is the result of a scan, sorted by descending count and then by
// ascending raw encoding.
type Report struct {
	Entries []Entry
	// Total is the number of instructions visited, excluding the stop marker.
	Total int
}

// Scan walks the image's code section once and counts every instruction by
// its raw encoding. It fails without a partial report on the first decode
// error or if the code ends before the stop marker.
func Scan(img *image.Image) (*Report, error) {
	index := make(map[string]int)
	var entries []Entry
	total := 0

	err := bytecode.Walk(img, func(off int, in bytecode.Inst) error {
		total++
		key := string(in.Encoding())
		if i, ok := index[key]; ok {
			entries[i].Count++
			return nil
		}
		text, err := bytecode.Format(in)
		if err != nil {
			return fmt.Errorf("offset %d: %w", off, err)
		}
		index[key] = len(entries)
		entries = append(entries, Entry{Inst: in, Text: text, Count: 1})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return bytes.Compare(entries[i].Inst.Encoding(), entries[j].Inst.Encoding()) < 0
	})

	slog.Debug("Scan complete", "instructions", total, "distinct", len(entries))
	return &Report{Entries: entries, Total: total}, nil
}

// Distinct returns the number of distinct instructions.
func (r *Report) Distinct() int { return len(r.Entries) }

// WriteText writes one "<count> x <text>" line per entry.
func (r *Report) WriteText(w io.Writer) error {
	for _, e := range r.Entries {
		if _, err := fmt.Fprintf(w, "%d x %s\n", e.Count, e.Text); err != nil {
			return err
		}
	}
	return nil
}

// Kind names the failure class of err: one of MalformedHeader,
// UnterminatedStringPool, UnexpectedEnd, StringOutOfBounds or InvalidOpcode.
// Other errors yield "".
func Kind(err error) string {
	switch {
	case errors.Is(err, image.ErrMalformedHeader):
		return "MalformedHeader"
	case errors.Is(err, image.ErrUnterminatedStringPool):
		return "UnterminatedStringPool"
	case errors.Is(err, image.ErrUnexpectedEnd):
		return "UnexpectedEnd"
	case errors.Is(err, image.ErrStringOutOfBounds):
		return "StringOutOfBounds"
	case errors.Is(err, bytecode.ErrInvalidOpcode):
		return "InvalidOpcode"
	}
	return ""
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	switch Kind(err) {
	case "":
		if err == nil {
			return 0
		}
		return 1
	case "MalformedHeader":
		return 2
	case "UnterminatedStringPool":
		return 3
	case "UnexpectedEnd":
		return 4
	case "StringOutOfBounds":
		return 5
	default:
		return 6
	}
}
