package report

import (
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/Lllllllleong/reportprinter/internal/models"
)

// Page geometry and the fixed style set, in points.
const (
	pageSize   = "Letter"
	pageMargin = 72.0

	titleFont    = 18.0
	titleLeading = 22.0

	headingFont        = 14.0
	headingLeading     = 18.0
	headingSpaceBefore = 12.0
	headingSpaceAfter  = 6.0

	listFont    = 10.0
	listLeading = 12.0
	listIndent  = 18.0
	markerSize  = 2.0

	bodyFont    = 12.0
	bodyLeading = 14.4
	bodySpacing = 12.0

	// The footer sits inside the bottom margin, right-aligned to footerRight
	// from the page edge.
	footerFont     = 9.0
	footerRight    = 40.0
	footerBaseline = 20.0

	fontFamily = "Go"
)

const (
	takeawaysHeading = "Key Takeaways"
	summaryHeading   = "Full Summary"
)

// Flowable is one layout unit. Flowables are drawn in sequence and flow onto
// new pages as needed.
type Flowable interface {
	draw(c *canvas)
}

// canvas is the drawing surface handed to each flowable.
type canvas struct {
	pdf *fpdf.Fpdf
}

// contentWidth is the page width between the side margins.
func (c *canvas) contentWidth() float64 {
	pageW, _ := c.pdf.GetPageSize()
	return pageW - 2*pageMargin
}

// wrap breaks text into lines that fit a cell of the given width in the
// current font. Words wider than a line are split between characters.
func (c *canvas) wrap(text string, width float64) []string {
	avail := width - 2*c.pdf.GetCellMargin()
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		for _, part := range c.splitWord(word, avail) {
			switch {
			case line == "":
				line = part
			case c.pdf.GetStringWidth(line+" "+part) <= avail:
				line += " " + part
			default:
				lines = append(lines, line)
				line = part
			}
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

func (c *canvas) splitWord(word string, avail float64) []string {
	if c.pdf.GetStringWidth(word) <= avail {
		return []string{word}
	}
	var parts []string
	var cur []rune
	for _, r := range word {
		if len(cur) > 0 && c.pdf.GetStringWidth(string(cur)+string(r)) > avail {
			parts = append(parts, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	return append(parts, string(cur))
}

// ensureSpace starts a new page if h points do not fit above the bottom margin.
func (c *canvas) ensureSpace(h float64) {
	_, pageH := c.pdf.GetPageSize()
	if c.pdf.GetY()+h > pageH-pageMargin {
		c.pdf.AddPage()
	}
}

// atTop reports whether nothing has been drawn on the current page yet.
func (c *canvas) atTop() bool {
	return c.pdf.GetY() <= pageMargin
}

type Title struct {
	Text string
}

func (t Title) draw(c *canvas) {
	c.pdf.SetFont(fontFamily, "B", titleFont)
	w := c.contentWidth()
	for _, line := range c.wrap(t.Text, w) {
		c.pdf.SetX(pageMargin)
		c.pdf.CellFormat(w, titleLeading, line, "", 2, "C", false, 0, "")
	}
}

type Heading struct {
	Text string
}

func (h Heading) draw(c *canvas) {
	if !c.atTop() {
		c.pdf.Ln(headingSpaceBefore)
	}
	c.ensureSpace(headingLeading + listLeading)
	c.pdf.SetFont(fontFamily, "B", headingFont)
	c.pdf.CellFormat(0, headingLeading, h.Text, "", 1, "L", false, 0, "")
	c.pdf.Ln(headingSpaceAfter)
}

type Spacer struct {
	Height float64
}

func (s Spacer) draw(c *canvas) {
	c.pdf.Ln(s.Height)
}

// BulletList draws one item per entry with a filled circular marker. An empty
// list draws nothing.
type BulletList struct {
	Items []string
}

func (l BulletList) draw(c *canvas) {
	c.pdf.SetFont(fontFamily, "", listFont)
	c.pdf.SetFillColor(0, 0, 0)
	w := c.contentWidth() - listIndent
	for _, item := range l.Items {
		c.ensureSpace(listLeading)
		y := c.pdf.GetY()
		c.pdf.Circle(pageMargin+listIndent/2, y+listLeading/2, markerSize, "F")
		for _, line := range c.wrap(item, w) {
			c.pdf.SetX(pageMargin + listIndent)
			c.pdf.CellFormat(w, listLeading, line, "", 2, "L", false, 0, "")
		}
	}
}

// Paragraph is justified body text followed by the paragraph spacing. The
// last line, and any line without a space to stretch, is set flush left.
type Paragraph struct {
	Text string
}

func (p Paragraph) draw(c *canvas) {
	c.pdf.SetFont(fontFamily, "", bodyFont)
	w := c.contentWidth()
	lines := c.wrap(p.Text, w)
	for i, line := range lines {
		align := "L"
		if i < len(lines)-1 && strings.Contains(line, " ") {
			align = "J"
		}
		c.pdf.SetX(pageMargin)
		c.pdf.CellFormat(w, bodyLeading, line, "", 2, align, false, 0, "")
	}
	c.pdf.Ln(bodySpacing)
}

type PageBreak struct{}

func (PageBreak) draw(c *canvas) {
	c.pdf.AddPage()
}

// Layout builds the flowable sequence for doc: title, takeaways, full
// summary and a closing page break.
func Layout(doc models.StructuredDocument) []Flowable {
	flow := []Flowable{
		Title{Text: doc.Topic + " — AI Research Summary"},
		Spacer{Height: 12},
		Heading{Text: takeawaysHeading},
		BulletList{Items: append([]string{}, doc.Bullets...)},
		Heading{Text: summaryHeading},
	}
	for _, para := range paragraphs(doc.FullText) {
		flow = append(flow, Paragraph{Text: para})
	}
	return append(flow, PageBreak{})
}

// paragraphs splits text on line breaks, dropping blank lines. Text without
// line breaks is returned unchanged as a single paragraph.
func paragraphs(text string) []string {
	if !strings.ContainsAny(text, "\r\n") {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}
	var out []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
