package textlayer

import (
	"strconv"
	"strings"
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// SVG renders the page's runs as an SVG text overlay. Glyph origins are in
// page coordinates; each run becomes one <text> element with per-glyph
// positions on its <tspan>.
func (p Page) SVG() string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="`)
	writeFloat(&b, p.Width)
	b.WriteString(`" height="`)
	writeFloat(&b, p.Height)
	b.WriteString(`" viewBox="0 0 `)
	writeFloat(&b, p.Width)
	b.WriteByte(' ')
	writeFloat(&b, p.Height)
	b.WriteString(`" style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; text-rendering: optimizeLegibility; shape-rendering: geometricPrecision"><title>text-layer</title>`)

	for _, run := range p.Runs {
		b.WriteString(`<text style="font-size:`)
		writeFloat(&b, run.FontSize)
		b.WriteString(`pt; white-space: pre; text-rendering: geometricPrecision; dominant-baseline: hanging; font-weight: 400; letter-spacing: -0.01em"><tspan x="`)
		writeFloats(&b, run.X)
		b.WriteString(`" y="`)
		writeFloats(&b, run.Y)
		b.WriteString(`">`)
		textEscaper.WriteString(&b, run.Text)
		b.WriteString(`</tspan></text>`)
	}

	b.WriteString("</svg>")
	return b.String()
}

func writeFloat(b *strings.Builder, v float64) {
	b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
}

func writeFloats(b *strings.Builder, vs []float64) {
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeFloat(b, v)
	}
}
