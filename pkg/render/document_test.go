package render

import (
	"bytes"
	"image"
	"image/color"
	"testing"
	"time"
)

func TestEscapePDFString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain text", "plain text"},
		{"(parens)", "\\(parens\\)"},
		{"back\\slash", "back\\\\slash"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := escapePDFString(tt.input); got != tt.expected {
			t.Errorf("escapePDFString(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCompositeWhite(t *testing.T) {
	// Opaque channels pass through unchanged.
	if got := compositeWhite(0xFFFF, 0xFFFF); got != 0xFF {
		t.Errorf("opaque white = %d, want 255", got)
	}
	if got := compositeWhite(0, 0xFFFF); got != 0 {
		t.Errorf("opaque black = %d, want 0", got)
	}
	// Fully transparent pixels flatten to white.
	if got := compositeWhite(0, 0); got != 0xFF {
		t.Errorf("transparent = %d, want 255", got)
	}
}

func TestBuildMinimalDocument(t *testing.T) {
	w := newPDFWriter(Info{
		Title:     "Test",
		Author:    "Tradelane Logistics",
		CreatedAt: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}, false)
	w.addPage(612, 792, "BT /F1 10 Tf (hi) Tj ET\n")

	pdf := w.build()
	if !bytes.HasPrefix(pdf, []byte("%PDF-1.4")) {
		t.Error("missing PDF header")
	}
	if !bytes.HasSuffix(pdf, []byte("%%EOF\n")) {
		t.Error("missing EOF marker")
	}
	if !bytes.Contains(pdf, []byte("/Count 1")) {
		t.Error("page tree should count one page")
	}
	if !bytes.Contains(pdf, []byte("D:20260314103000Z")) {
		t.Error("creation date not written in PDF date format")
	}
	if !bytes.Contains(pdf, []byte("xref")) || !bytes.Contains(pdf, []byte("trailer")) {
		t.Error("cross-reference table incomplete")
	}
}

func TestCompressedPageStream(t *testing.T) {
	w := newPDFWriter(Info{CreatedAt: time.Unix(0, 0).UTC()}, true)
	w.addPage(612, 792, "BT /F1 10 Tf (compressed body) Tj ET\n")

	pdf := w.build()
	if !bytes.Contains(pdf, []byte("/Filter /FlateDecode")) {
		t.Error("compressed stream missing FlateDecode filter")
	}
	if bytes.Contains(pdf, []byte("compressed body")) {
		t.Error("page text should not appear in clear in a compressed stream")
	}
}

func TestAddImageRegistersXObject(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	w := newPDFWriter(Info{CreatedAt: time.Unix(0, 0).UTC()}, false)
	w.addImage("ImL", img)
	w.addPage(612, 792, "/ImL Do\n")

	pdf := w.build()
	if !bytes.Contains(pdf, []byte("/Subtype /Image")) {
		t.Error("image XObject dictionary missing")
	}
	if !bytes.Contains(pdf, []byte("/ColorSpace /DeviceRGB")) {
		t.Error("image must be flattened to RGB")
	}
	if !bytes.Contains(pdf, []byte("/ImL 5 0 R")) && !bytes.Contains(pdf, []byte("/XObject")) {
		t.Error("page resources do not reference the image")
	}
}
