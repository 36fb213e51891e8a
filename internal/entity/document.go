package entity

import "strings"

// Line is a single cleaned line of OCR text with its position in the
// raw input preserved. Numbers are 1-based and refer to the raw text,
// so dropped garbage lines leave gaps.
type Line struct {
	Number int
	Text   string
}

// NormalizedDocument is the cleaned, line-oriented view of one OCR'd
// document. It is immutable once produced; every extractor reads the
// same instance.
type NormalizedDocument struct {
	Lines []Line
}

// Empty reports whether normalization retained no usable text.
func (d *NormalizedDocument) Empty() bool {
	return d == nil || len(d.Lines) == 0
}

// Text joins the retained lines back into a single string.
func (d *NormalizedDocument) Text() string {
	parts := make([]string, len(d.Lines))
	for i, ln := range d.Lines {
		parts[i] = ln.Text
	}
	return strings.Join(parts, "\n")
}

// Flatten returns the joined text plus the start offset of each line
// within it. Extractors that bind character offsets (entity spans,
// trigger positions) share this single coordinate system.
func (d *NormalizedDocument) Flatten() (string, []int) {
	starts := make([]int, len(d.Lines))
	var b strings.Builder
	for i, ln := range d.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		starts[i] = b.Len()
		b.WriteString(ln.Text)
	}
	return b.String(), starts
}

// LineNumberAt maps a character offset in the flattened text back to
// the source line number, given the starts slice from Flatten.
// Returns 0 when the document is empty.
func LineNumberAt(lines []Line, starts []int, offset int) int {
	if len(lines) == 0 {
		return 0
	}
	idx := 0
	for i, s := range starts {
		if s > offset {
			break
		}
		idx = i
	}
	return lines[idx].Number
}
