// Package textlayer extracts positioned text from a PDF page and renders it
// as an SVG overlay matching the page geometry.
package textlayer

import (
	"bytes"
	"fmt"
	"math"
	"unicode"

	"github.com/ledongthuc/pdf"

	"pdf2image/internal/domain"
)

// Run is a group of consecutive glyphs sharing a font, close enough
// horizontally to read as one piece of text. X and Y hold the origin of
// every glyph in the run.
type Run struct {
	X        []float64
	Y        []float64
	Text     string
	Font     string
	FontSize float64

	right float64
}

// runGapSlack is the extra horizontal distance, in points, tolerated between
// glyphs before a new run starts.
const runGapSlack = 5.0

// Page is the extracted text layer of one page.
type Page struct {
	Width  float64
	Height float64
	Runs   []Run
}

// Extract parses the PDF and groups the glyphs of the given zero-based page
// into runs. The pdf library panics on some malformed documents, so parsing
// is fenced with a recover.
func Extract(data []byte, page int) (p Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrBadDocument, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", domain.ErrBadDocument, err)
	}
	if page < 0 || page >= r.NumPage() {
		return Page{}, fmt.Errorf("%w: page %d of %d", domain.ErrPageOutOfRange, page, r.NumPage())
	}

	pg := r.Page(page + 1)
	if pg.V.IsNull() {
		return Page{}, fmt.Errorf("%w: page %d is null", domain.ErrBadDocument, page)
	}

	w, h := mediaBox(pg)
	return Page{Width: w, Height: h, Runs: groupRuns(pg.Content().Text)}, nil
}

// mediaBox resolves the page dimensions, walking up the page tree since
// MediaBox is inheritable. Falls back to US Letter.
func mediaBox(pg pdf.Page) (w, h float64) {
	for v := pg.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.IsNull() || box.Len() != 4 {
			continue
		}
		w = box.Index(2).Float64() - box.Index(0).Float64()
		h = box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return 612, 792
}

// groupRuns merges per-glyph fragments into runs. A new run starts on a font
// change or when the gap to the previous glyph exceeds the glyph width plus
// a small slack.
func groupRuns(frags []pdf.Text) []Run {
	var runs []Run
	var cur *Run

	for _, f := range frags {
		if f.X < 0 || f.Y < 0 || isControl(f.S) {
			continue
		}
		right := f.X + f.W

		if cur != nil {
			farApart := math.Abs(f.X-cur.right) > f.W+runGapSlack
			if cur.Font != f.Font || farApart {
				runs = append(runs, *cur)
				cur = nil
			}
		}

		if cur == nil {
			cur = &Run{
				X:        []float64{f.X},
				Y:        []float64{f.Y},
				Text:     f.S,
				Font:     f.Font,
				FontSize: f.FontSize,
				right:    right,
			}
			continue
		}

		cur.X = append(cur.X, f.X)
		cur.Y = append(cur.Y, f.Y)
		cur.Text += f.S
		cur.right = right
		cur.FontSize = math.Max(cur.FontSize, f.FontSize)
	}

	if cur != nil {
		runs = append(runs, *cur)
	}
	return runs
}

func isControl(s string) bool {
	for _, r := range s {
		if r == '\r' || r == '\n' || unicode.IsControl(r) {
			return true
		}
	}
	return false
}
