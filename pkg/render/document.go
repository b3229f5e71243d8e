// Package render provides the document renderer for fleet reports: a
// flowing page-layout engine over a hand-rolled PDF 1.4 writer. Layout
// state is an explicit Cursor value threaded through every draw call, so
// concurrent renders never share mutable state.
package render

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"sort"
	"strings"
	"time"
)

// PDF constants for document generation.
const (
	// pdfVersion is the PDF specification version used.
	pdfVersion = "1.4"

	// pdfProducer is the producer string embedded in PDF metadata.
	pdfProducer = "Fleettrack Report Engine"
)

// Reserved object numbers for fixed resources. Pages reference these
// directly, so they are written first in every document.
const (
	objCatalog  = 1
	objPages    = 2
	objFontBody = 3
	objFontBold = 4
)

// Info holds the PDF Info dictionary metadata.
type Info struct {
	Title   string
	Author  string
	Subject string

	// CreatedAt is the creation timestamp written to the Info dict.
	// Injected rather than read from the wall clock so that rendering the
	// same dataset twice yields byte-identical output.
	CreatedAt time.Time
}

// pdfWriter assembles a complete PDF file from page content streams and
// shared resources (fonts, image XObjects, transparency graphics states).
type pdfWriter struct {
	info     Info
	compress bool

	// objects holds every numbered object body; object n is objects[n-1].
	objects []string

	// pageIDs are the object numbers of page dictionaries, in page order.
	pageIDs []int

	// xobjects maps resource names (e.g. "ImL") to object numbers.
	xobjects map[string]int

	// gstates maps graphics-state names (e.g. "GSw") to object numbers.
	gstates map[string]int
}

func newPDFWriter(info Info, compress bool) *pdfWriter {
	w := &pdfWriter{
		info:     info,
		compress: compress,
		xobjects: make(map[string]int),
		gstates:  make(map[string]int),
	}
	// Reserve the fixed preamble objects; bodies are filled in build().
	w.objects = make([]string, 4)
	return w
}

// addObject appends an object body and returns its object number.
func (w *pdfWriter) addObject(body string) int {
	w.objects = append(w.objects, body)
	return len(w.objects)
}

// addImage registers an RGB image as an XObject under the given resource
// name. Alpha is composited over white since the report background is white.
func (w *pdfWriter) addImage(name string, img image.Image) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	raw := make([]byte, 0, width*height*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			raw = append(raw, compositeWhite(r, a), compositeWhite(g, a), compositeWhite(bl, a))
		}
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(raw)
	zw.Close()
	data := buf.Bytes()

	body := fmt.Sprintf("<< /Type /XObject\n/Subtype /Image\n/Width %d\n/Height %d\n/ColorSpace /DeviceRGB\n/BitsPerComponent 8\n/Filter /FlateDecode\n/Length %d\n>>\nstream\n%sendstream",
		width, height, len(data), data)
	w.xobjects[name] = w.addObject(body)
}

// addExtGState registers a transparency graphics state with the given
// fill alpha under the given resource name.
func (w *pdfWriter) addExtGState(name string, alpha float64) {
	body := fmt.Sprintf("<< /Type /ExtGState\n/ca %.2f\n/CA %.2f\n>>", alpha, alpha)
	w.gstates[name] = w.addObject(body)
}

// addPage adds a page with the given dimensions and content stream.
func (w *pdfWriter) addPage(width, height float64, content string) {
	var streamData []byte
	var filter string

	if w.compress {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		zw.Write([]byte(content))
		zw.Close()
		streamData = buf.Bytes()
		filter = "/Filter /FlateDecode\n"
	} else {
		streamData = []byte(content)
	}

	streamObj := fmt.Sprintf("<< /Length %d\n%s>>\nstream\n%sendstream",
		len(streamData), filter, streamData)
	streamNum := w.addObject(streamObj)

	pageObj := fmt.Sprintf("<< /Type /Page\n/Parent %d 0 R\n/MediaBox [0 0 %.2f %.2f]\n/Contents %d 0 R\n/Resources %s\n>>",
		objPages, width, height, streamNum, w.resourcesDict())
	w.pageIDs = append(w.pageIDs, w.addObject(pageObj))
}

// resourcesDict builds the shared resources dictionary naming the fonts
// and every registered XObject and graphics state.
func (w *pdfWriter) resourcesDict() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<< /Font << /F1 %d 0 R /F2 %d 0 R >>", objFontBody, objFontBold))

	if len(w.xobjects) > 0 {
		sb.WriteString(" /XObject <<")
		for _, name := range sortedKeys(w.xobjects) {
			sb.WriteString(fmt.Sprintf(" /%s %d 0 R", name, w.xobjects[name]))
		}
		sb.WriteString(" >>")
	}
	if len(w.gstates) > 0 {
		sb.WriteString(" /ExtGState <<")
		for _, name := range sortedKeys(w.gstates) {
			sb.WriteString(fmt.Sprintf(" /%s %d 0 R", name, w.gstates[name]))
		}
		sb.WriteString(" >>")
	}

	sb.WriteString(" >>")
	return sb.String()
}

// build generates the complete PDF file.
func (w *pdfWriter) build() []byte {
	// Fill in the reserved preamble objects now that all pages are known.
	var kids strings.Builder
	kids.WriteString("[")
	for i, id := range w.pageIDs {
		if i > 0 {
			kids.WriteString(" ")
		}
		kids.WriteString(fmt.Sprintf("%d 0 R", id))
	}
	kids.WriteString("]")

	w.objects[objCatalog-1] = fmt.Sprintf("<< /Type /Catalog\n/Pages %d 0 R\n>>", objPages)
	w.objects[objPages-1] = fmt.Sprintf("<< /Type /Pages\n/Kids %s\n/Count %d\n>>", kids.String(), len(w.pageIDs))
	w.objects[objFontBody-1] = "<< /Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica\n/Encoding /WinAnsiEncoding\n>>"
	w.objects[objFontBold-1] = "<< /Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica-Bold\n/Encoding /WinAnsiEncoding\n>>"

	infoNum := w.addObject(w.buildInfoDict())

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%%PDF-%s\n", pdfVersion))
	buf.WriteString("%\xE2\xE3\xCF\xD3\n")

	xref := make([]int, len(w.objects)+1)
	for i, obj := range w.objects {
		xref[i+1] = buf.Len()
		buf.WriteString(fmt.Sprintf("%d 0 obj\n%s\nendobj\n", i+1, obj))
	}

	xrefPos := buf.Len()
	buf.WriteString("xref\n")
	buf.WriteString(fmt.Sprintf("0 %d\n", len(w.objects)+1))
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(w.objects); i++ {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", xref[i]))
	}

	buf.WriteString("trailer\n")
	buf.WriteString(fmt.Sprintf("<< /Size %d\n/Root %d 0 R\n/Info %d 0 R\n>>", len(w.objects)+1, objCatalog, infoNum))
	buf.WriteString("\nstartxref\n")
	buf.WriteString(fmt.Sprintf("%d\n", xrefPos))
	buf.WriteString("%%EOF\n")

	return buf.Bytes()
}

// buildInfoDict creates the PDF Info dictionary for metadata.
func (w *pdfWriter) buildInfoDict() string {
	var sb strings.Builder
	sb.WriteString("<<\n")

	if w.info.Title != "" {
		sb.WriteString(fmt.Sprintf("/Title (%s)\n", escapePDFString(w.info.Title)))
	}
	if w.info.Author != "" {
		sb.WriteString(fmt.Sprintf("/Author (%s)\n", escapePDFString(w.info.Author)))
	}
	if w.info.Subject != "" {
		sb.WriteString(fmt.Sprintf("/Subject (%s)\n", escapePDFString(w.info.Subject)))
	}
	sb.WriteString(fmt.Sprintf("/Producer (%s)\n", escapePDFString(pdfProducer)))

	created := w.info.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	dateStr := created.UTC().Format("D:20060102150405Z")
	sb.WriteString(fmt.Sprintf("/CreationDate (%s)\n", dateStr))
	sb.WriteString(fmt.Sprintf("/ModDate (%s)\n", dateStr))

	sb.WriteString(">>")
	return sb.String()
}

// escapePDFString escapes special characters for PDF text strings.
func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "(", "\\(")
	s = strings.ReplaceAll(s, ")", "\\)")
	return s
}

// compositeWhite converts a 16-bit premultiplied channel to an 8-bit value
// composited over a white background.
func compositeWhite(c, a uint32) byte {
	// RGBA() channels are alpha-premultiplied, so compositing over an
	// opaque white background is c + (1 - a).
	out := (c + (0xFFFF - a)) >> 8
	if out > 0xFF {
		out = 0xFF
	}
	return byte(out)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
