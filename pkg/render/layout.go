package render

import (
	"fmt"
	"strings"

	fterrors "github.com/tradelane/fleettrack/pkg/errors"
)

// Cursor is the renderer's layout position: a 1-based page index and the
// current vertical offset on that page (PDF coordinates, origin at the
// bottom-left, so drawing flows downward by decreasing Y). Cursors are
// values: every draw call takes one and returns the advanced one, and no
// cursor state lives outside the call chain.
type Cursor struct {
	Page int
	Y    float64
}

// Page accumulates the drawing operators for one output page. The underlay
// is drawn beneath the flowed content; the overlay stage uses it for the
// watermark so the stamp never obscures content.
type Page struct {
	under strings.Builder
	body  strings.Builder
}

// stream assembles the full content stream for the page.
func (p *Page) stream(width, height float64) string {
	var sb strings.Builder
	sb.WriteString("q\n")
	sb.WriteString("1 1 1 rg\n")
	sb.WriteString(fmt.Sprintf("0 0 %.2f %.2f re f\n", width, height))
	sb.WriteString(p.under.String())
	sb.WriteString(p.body.String())
	sb.WriteString("Q\n")
	return sb.String()
}

// Geometry fixes the page dimensions and margins for a render, in points.
type Geometry struct {
	PageWidth    float64
	PageHeight   float64
	MarginLeft   float64
	MarginRight  float64
	MarginTop    float64
	MarginBottom float64
	BaseFontSize float64
}

// DefaultGeometry returns US Letter with one-inch margins.
func DefaultGeometry() Geometry {
	return Geometry{
		PageWidth:    612,
		PageHeight:   792,
		MarginLeft:   72,
		MarginRight:  72,
		MarginTop:    72,
		MarginBottom: 72,
		BaseFontSize: 10,
	}
}

// ContentWidth returns the usable horizontal extent between margins.
func (g Geometry) ContentWidth() float64 {
	return g.PageWidth - g.MarginLeft - g.MarginRight
}

// layout owns the page list for a single render. It is created per render
// call and never shared.
type layout struct {
	geo   Geometry
	pages []*Page
}

func newLayout(geo Geometry) *layout {
	return &layout{geo: geo}
}

// page returns the page the cursor is on.
func (l *layout) page(c Cursor) *Page {
	return l.pages[c.Page-1]
}

// startPage appends a fresh page and returns a cursor at its top margin.
func (l *layout) startPage() Cursor {
	l.pages = append(l.pages, &Page{})
	return Cursor{Page: len(l.pages), Y: l.geo.PageHeight - l.geo.MarginTop}
}

// ensureRoom breaks to a new page when fewer than needed points remain
// above the bottom margin. The decision happens before drawing, so a
// heading is never stranded at the foot of a page.
func (l *layout) ensureRoom(c Cursor, needed float64) Cursor {
	if c.Y-needed < l.geo.MarginBottom {
		return l.startPage()
	}
	return c
}

// checkCursor validates a cursor against the layout invariants.
func (l *layout) checkCursor(c Cursor) error {
	if c.Page < 1 || c.Page > len(l.pages) {
		return fterrors.RenderErrorf("cursor page %d out of range 1..%d", c.Page, len(l.pages))
	}
	if c.Y < 0 {
		return fterrors.RenderErrorf("cursor offset %.2f is negative on page %d", c.Y, c.Page)
	}
	return nil
}

// textOpts selects font, size, and gray level for a text draw.
type textOpts struct {
	bold   bool
	size   float64
	gray   float64
	indent float64
}

// text draws a single line at the cursor and returns the advanced cursor.
// The caller is responsible for page-break decisions; text never overflows
// on its own.
func (l *layout) text(c Cursor, s string, o textOpts) Cursor {
	if o.size == 0 {
		o.size = l.geo.BaseFontSize
	}
	font := "/F1"
	if o.bold {
		font = "/F2"
	}

	sb := &l.page(c).body
	sb.WriteString("BT\n")
	sb.WriteString(fmt.Sprintf("%s %.2f Tf\n", font, o.size))
	sb.WriteString(fmt.Sprintf("%.2f %.2f %.2f rg\n", o.gray, o.gray, o.gray))
	sb.WriteString(fmt.Sprintf("%.2f %.2f Td\n", l.geo.MarginLeft+o.indent, c.Y))
	sb.WriteString(fmt.Sprintf("(%s) Tj\n", escapePDFString(s)))
	sb.WriteString("ET\n")

	c.Y -= o.size * 1.5
	return c
}

// textAt draws a line at an absolute position on the cursor's page without
// advancing the cursor. Used for fixed-offset header furniture and stamps.
func (l *layout) textAt(c Cursor, x, y float64, s string, o textOpts) {
	if o.size == 0 {
		o.size = l.geo.BaseFontSize
	}
	font := "/F1"
	if o.bold {
		font = "/F2"
	}

	sb := &l.page(c).body
	sb.WriteString("BT\n")
	sb.WriteString(fmt.Sprintf("%s %.2f Tf\n", font, o.size))
	sb.WriteString(fmt.Sprintf("%.2f %.2f %.2f rg\n", o.gray, o.gray, o.gray))
	sb.WriteString(fmt.Sprintf("%.2f %.2f Td\n", x, y))
	sb.WriteString(fmt.Sprintf("(%s) Tj\n", escapePDFString(s)))
	sb.WriteString("ET\n")
}

// rule draws a horizontal line across the content width at the cursor and
// returns the cursor advanced past it.
func (l *layout) rule(c Cursor, gray, width float64) Cursor {
	sb := &l.page(c).body
	sb.WriteString(fmt.Sprintf("%.2f %.2f %.2f RG\n", gray, gray, gray))
	sb.WriteString(fmt.Sprintf("%.2f w\n", width))
	sb.WriteString(fmt.Sprintf("%.2f %.2f m %.2f %.2f l S\n",
		l.geo.MarginLeft, c.Y, l.geo.MarginLeft+l.geo.ContentWidth(), c.Y))
	c.Y -= 8
	return c
}

// Table is a column-oriented table drawn by the flowing layout.
type Table struct {
	Headers []string
	Rows    [][]string
}

// tableLead is the minimum block a table places on a page before its row
// pagination can break: the header band plus one row. Callers that draw a
// heading immediately above a table reserve this on top of the heading's
// own extent so the heading is never orphaned.
func (l *layout) tableLead() float64 {
	return l.geo.BaseFontSize*1.4*2 + 10
}

// table draws a table starting at the cursor, paginating rows internally:
// when a row would cross the bottom margin the table breaks to a new page
// and repeats its header band before continuing. Returns the cursor after
// the last row on the last page the table used.
func (l *layout) table(c Cursor, t Table) (Cursor, error) {
	numCols := len(t.Headers)
	if numCols == 0 {
		return c, fterrors.RenderError("table has no columns")
	}

	lineHeight := l.geo.BaseFontSize * 1.4
	colWidth := l.geo.ContentWidth() / float64(numCols)

	c = l.ensureRoom(c, l.tableLead())
	c = l.tableHead(c, t.Headers, colWidth, lineHeight)

	for _, row := range t.Rows {
		if c.Y-lineHeight < l.geo.MarginBottom {
			c = l.startPage()
			c = l.tableHead(c, t.Headers, colWidth, lineHeight)
		}
		for i, cell := range row {
			if i >= numCols {
				break
			}
			x := l.geo.MarginLeft + float64(i)*colWidth + 5
			l.textAt(c, x, c.Y, cell, textOpts{gray: 0.3})
		}
		c.Y -= lineHeight
	}

	if err := l.checkCursor(c); err != nil {
		return c, err
	}
	return c, nil
}

// tableHead draws the shaded header band and underline rule for a table.
func (l *layout) tableHead(c Cursor, headers []string, colWidth, lineHeight float64) Cursor {
	sb := &l.page(c).body
	contentWidth := l.geo.ContentWidth()

	sb.WriteString("0.9 0.9 0.9 rg\n")
	sb.WriteString(fmt.Sprintf("%.2f %.2f %.2f %.2f re f\n",
		l.geo.MarginLeft, c.Y-4, contentWidth, lineHeight+4))

	for i, header := range headers {
		x := l.geo.MarginLeft + float64(i)*colWidth + 5
		l.textAt(c, x, c.Y, header, textOpts{bold: true})
	}
	c.Y -= lineHeight + 5

	sb.WriteString("0.5 0.5 0.5 RG\n")
	sb.WriteString("0.5 w\n")
	sb.WriteString(fmt.Sprintf("%.2f %.2f m %.2f %.2f l S\n",
		l.geo.MarginLeft, c.Y+3, l.geo.MarginLeft+contentWidth, c.Y+3))
	return c
}

// centerText stamps a centered line at an absolute Y on the cursor's page.
func (l *layout) centerText(c Cursor, y float64, s string, o textOpts) {
	if o.size == 0 {
		o.size = l.geo.BaseFontSize
	}
	textWidth := float64(len(s)) * o.size * 0.5
	x := (l.geo.PageWidth - textWidth) / 2
	l.textAt(c, x, y, s, o)
}
