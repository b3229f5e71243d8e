package render

import (
	"fmt"
	"image"

	fterrors "github.com/tradelane/fleettrack/pkg/errors"
)

// QR stamp placement on the first page, points.
const (
	qrSize       = 90.0
	qrCaptionGap = 8.0
)

// StampQR places the scannable viewer code near the bottom-right of the
// first page with a one-line caption beneath it. A nil image is a no-op:
// code generation failure never aborts document generation.
func (d *Document) StampQR(qr image.Image, caption string) {
	if qr == nil || len(d.lay.pages) == 0 {
		return
	}
	d.qr = qr

	geo := d.lay.geo
	x := geo.PageWidth - geo.MarginRight - qrSize
	y := geo.MarginBottom

	first := Cursor{Page: 1, Y: y}
	sb := &d.lay.page(first).body
	sb.WriteString("q\n")
	sb.WriteString(fmt.Sprintf("%.2f 0 0 %.2f %.2f %.2f cm\n", qrSize, qrSize, x, y))
	sb.WriteString("/ImQ Do\n")
	sb.WriteString("Q\n")

	d.lay.textAt(first, x, y-qrCaptionGap-4, caption, textOpts{size: 7, gray: 0.4})
}

// ApplyOverlay post-processes every rendered page: a faint watermark
// derived from the logo is laid beneath the content, and a footer rule
// with "Page i of n" is stamped near the bottom margin. The footer pass
// runs last so nothing overdraws it.
func (d *Document) ApplyOverlay() {
	l := d.lay
	geo := l.geo
	total := len(l.pages)

	if d.logo != nil {
		d.stampWatermarks()
	}

	for i, p := range l.pages {
		// Footer rule sits in the bottom margin band, below content.
		ruleY := geo.MarginBottom - 22
		p.body.WriteString("0.6 0.6 0.6 RG\n")
		p.body.WriteString("0.5 w\n")
		p.body.WriteString(fmt.Sprintf("%.2f %.2f m %.2f %.2f l S\n",
			geo.MarginLeft, ruleY, geo.PageWidth-geo.MarginRight, ruleY))

		label := fmt.Sprintf("Page %d of %d", i+1, total)
		l.centerText(Cursor{Page: i + 1}, ruleY-14, label, textOpts{size: 8, gray: 0.4})
	}
}

// stampWatermarks draws the logo centered on every page at reduced
// opacity, beneath the flowed content.
func (d *Document) stampWatermarks() {
	geo := d.lay.geo
	b := d.logo.Bounds()
	w, h := fitBox(float64(b.Dx()), float64(b.Dy()), geo.PageWidth*0.6, geo.PageHeight*0.6)
	x := (geo.PageWidth - w) / 2
	y := (geo.PageHeight - h) / 2

	for _, p := range d.lay.pages {
		p.under.WriteString("q\n")
		p.under.WriteString("/GSw gs\n")
		p.under.WriteString(fmt.Sprintf("%.2f 0 0 %.2f %.2f %.2f cm\n", w, h, x, y))
		p.under.WriteString("/ImL Do\n")
		p.under.WriteString("Q\n")
	}
}

// Bytes assembles the final PDF byte stream: shared resources first, then
// every page content stream in order.
func (d *Document) Bytes() ([]byte, error) {
	if len(d.lay.pages) == 0 {
		return nil, fterrors.RenderError("document has no pages")
	}

	w := newPDFWriter(d.info, d.compress)
	if d.logo != nil {
		w.addImage("ImL", d.logo)
		w.addExtGState("GSw", d.watermarkAlpha)
	}
	if d.qr != nil {
		w.addImage("ImQ", d.qr)
	}

	geo := d.lay.geo
	for _, p := range d.lay.pages {
		w.addPage(geo.PageWidth, geo.PageHeight, p.stream(geo.PageWidth, geo.PageHeight))
	}
	return w.build(), nil
}
