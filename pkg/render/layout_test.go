package render

import (
	"fmt"
	"strings"
	"testing"
)

func TestStartPageCursor(t *testing.T) {
	l := newLayout(DefaultGeometry())
	c := l.startPage()

	if c.Page != 1 {
		t.Errorf("expected page 1, got %d", c.Page)
	}
	want := l.geo.PageHeight - l.geo.MarginTop
	if c.Y != want {
		t.Errorf("expected cursor at top margin %.1f, got %.1f", want, c.Y)
	}
}

func TestEnsureRoom(t *testing.T) {
	l := newLayout(DefaultGeometry())
	c := l.startPage()

	// Plenty of room: cursor is untouched.
	got := l.ensureRoom(c, 100)
	if got != c {
		t.Errorf("ensureRoom moved a cursor with room to spare: %+v", got)
	}

	// Near the bottom margin: the cursor must jump to a fresh page.
	c.Y = l.geo.MarginBottom + 20
	got = l.ensureRoom(c, 50)
	if got.Page != 2 {
		t.Errorf("expected break to page 2, got page %d", got.Page)
	}
	if got.Y != l.geo.PageHeight-l.geo.MarginTop {
		t.Errorf("new page cursor not at top margin: %.1f", got.Y)
	}
}

func TestTextAdvancesCursor(t *testing.T) {
	l := newLayout(DefaultGeometry())
	c := l.startPage()

	next := l.text(c, "hello", textOpts{size: 10})
	if next.Page != c.Page {
		t.Error("text must not break pages on its own")
	}
	if delta := c.Y - next.Y; delta != 15 {
		t.Errorf("expected 15pt advance for 10pt text, got %.1f", delta)
	}
	if !strings.Contains(l.page(c).body.String(), "(hello) Tj") {
		t.Error("text operator missing from page stream")
	}
}

func TestTablePaginatesRows(t *testing.T) {
	l := newLayout(DefaultGeometry())
	c := l.startPage()

	tbl := Table{Headers: []string{"ID", "Status"}}
	for i := 0; i < 120; i++ {
		tbl.Rows = append(tbl.Rows, []string{fmt.Sprintf("v%d", i), "AVAILABLE"})
	}

	end, err := l.table(c, tbl)
	if err != nil {
		t.Fatalf("table failed: %v", err)
	}
	if end.Page < 2 {
		t.Fatalf("120 rows should span multiple pages, ended on page %d", end.Page)
	}

	// The header band repeats on every page the table touches.
	for p := 1; p <= end.Page; p++ {
		if !strings.Contains(l.pages[p-1].body.String(), "(ID) Tj") {
			t.Errorf("page %d missing repeated table header", p)
		}
	}
}

func TestTableRejectsNoColumns(t *testing.T) {
	l := newLayout(DefaultGeometry())
	c := l.startPage()

	if _, err := l.table(c, Table{}); err == nil {
		t.Error("expected error for a table with no columns")
	}
}

func TestCheckCursor(t *testing.T) {
	l := newLayout(DefaultGeometry())
	c := l.startPage()

	if err := l.checkCursor(c); err != nil {
		t.Errorf("valid cursor rejected: %v", err)
	}
	if err := l.checkCursor(Cursor{Page: 5, Y: 100}); err == nil {
		t.Error("out-of-range page accepted")
	}
	if err := l.checkCursor(Cursor{Page: 1, Y: -1}); err == nil {
		t.Error("negative offset accepted")
	}
}

func TestPageStreamWrapsUnderlay(t *testing.T) {
	p := &Page{}
	p.under.WriteString("UNDER\n")
	p.body.WriteString("BODY\n")

	s := p.stream(612, 792)
	u, b := strings.Index(s, "UNDER"), strings.Index(s, "BODY")
	if u == -1 || b == -1 {
		t.Fatal("stream lost content")
	}
	if u > b {
		t.Error("underlay must precede body content")
	}
}
