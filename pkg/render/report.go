package render

import (
	"fmt"
	"image"
	"strconv"
	"time"

	fterrors "github.com/tradelane/fleettrack/pkg/errors"
	"github.com/tradelane/fleettrack/pkg/fleet"
	"github.com/tradelane/fleettrack/pkg/report"
)

// Kind selects the section structure of a report. All kinds share the
// same layout primitives.
type Kind string

const (
	KindInventory       Kind = "inventory"
	KindStatusSummary   Kind = "status_summary"
	KindLocationSummary Kind = "location_summary"
)

// Title returns the document title for a report kind.
func (k Kind) Title() string {
	switch k {
	case KindStatusSummary:
		return "Fleet Status Summary"
	case KindLocationSummary:
		return "Fleet Location Summary"
	default:
		return "Fleet Inventory Report"
	}
}

// Dimension returns the aggregation dimension a report kind is built from.
func (k Kind) Dimension() report.Dimension {
	if k == KindLocationSummary {
		return report.DimensionLocation
	}
	return report.DimensionStatus
}

// ValidKind reports whether s names a known report kind.
func ValidKind(s string) bool {
	switch Kind(s) {
	case KindInventory, KindStatusSummary, KindLocationSummary:
		return true
	}
	return false
}

// Company identifies the organization printed in the document header.
type Company struct {
	Name    string
	Address string
	Email   string
}

// Options configures a render.
type Options struct {
	Geometry Geometry
	Company  Company

	// Compress enables content stream compression. Tests disable it to
	// inspect the raw operators.
	Compress bool

	// Now supplies the generation timestamp. Injected so that rendering
	// the same dataset twice yields byte-identical output.
	Now func() time.Time

	// WatermarkAlpha is the watermark fill opacity. Default 0.10.
	WatermarkAlpha float64
}

// DefaultOptions returns Options with Letter geometry and compression on.
func DefaultOptions() Options {
	return Options{
		Geometry:       DefaultGeometry(),
		Compress:       true,
		Now:            time.Now,
		WatermarkAlpha: 0.10,
	}
}

// Document is a rendered report awaiting overlay and final assembly.
type Document struct {
	lay      *layout
	info     Info
	compress bool

	// logo is nil when asset loading degraded; the header then carries
	// text only and the watermark pass is skipped.
	logo image.Image

	watermarkAlpha float64
	qr             image.Image
}

// PageCount returns the number of pages rendered so far.
func (d *Document) PageCount() int {
	return len(d.lay.pages)
}

// Render lays the dataset out as a sequence of pages for the given report
// kind. The logo may be nil, in which case the header block renders with
// company text only. Rendering is strictly sequential per document; the
// returned Document owns all of its state.
func Render(ds *report.Dataset, kind Kind, logo image.Image, opts Options) (*Document, error) {
	if ds == nil {
		return nil, fterrors.RenderError("nil dataset")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WatermarkAlpha == 0 {
		opts.WatermarkAlpha = 0.10
	}
	if opts.Geometry.PageWidth == 0 {
		opts.Geometry = DefaultGeometry()
	}

	now := opts.Now()
	d := &Document{
		lay: newLayout(opts.Geometry),
		info: Info{
			Title:     kind.Title(),
			Author:    opts.Company.Name,
			Subject:   "Filters: " + ds.Filter.String(),
			CreatedAt: now,
		},
		compress:       opts.Compress,
		logo:           logo,
		watermarkAlpha: opts.WatermarkAlpha,
	}

	c := d.lay.startPage()
	c = d.drawHeader(c, ds, kind, now, opts.Company)

	var err error
	switch kind {
	case KindStatusSummary:
		c, err = d.drawSummaryKind(c, ds, Table{
			Headers: []string{"Status", "Count", "Share"},
			Rows:    statusSummaryRows(ds),
		})
	case KindLocationSummary:
		c, err = d.drawSummaryKind(c, ds, Table{
			Headers: []string{"Location", "Type", "Count"},
			Rows:    locationSummaryRows(ds),
		})
	default:
		c, err = d.drawInventory(c, ds)
	}
	if err != nil {
		return nil, err
	}

	if err := d.lay.checkCursor(c); err != nil {
		return nil, err
	}
	return d, nil
}

// drawHeader draws the fixed-offset header block: logo (or company text
// fallback), document title with underline rule, and the summary metrics.
// Its size is constant, so it never participates in overflow logic.
func (d *Document) drawHeader(c Cursor, ds *report.Dataset, kind Kind, now time.Time, company Company) Cursor {
	l := d.lay
	geo := l.geo
	top := geo.PageHeight - geo.MarginTop

	textX := geo.MarginLeft
	if d.logo != nil {
		d.drawLogo(c, geo.MarginLeft, top-logoBoxH)
		textX += logoBoxW + 14
	}
	l.textAt(c, textX, top-12, company.Name, textOpts{bold: true, size: 11})
	l.textAt(c, textX, top-26, company.Address, textOpts{size: 8, gray: 0.4})
	l.textAt(c, textX, top-38, company.Email, textOpts{size: 8, gray: 0.4})

	titleY := top - logoBoxH - 28
	l.textAt(c, geo.MarginLeft, titleY, kind.Title(), textOpts{bold: true, size: 16})
	c.Y = titleY - 8
	c = l.rule(c, 0.2, 1)
	c.Y -= 4

	c = l.text(c, fmt.Sprintf("Total vehicles: %d", ds.TotalCount), textOpts{gray: 0.3})
	c = l.text(c, fmt.Sprintf("Matching filter: %d", ds.FilteredCount), textOpts{gray: 0.3})
	c = l.text(c, "Filters: "+ds.Filter.String(), textOpts{gray: 0.3})
	c = l.text(c, "Generated: "+now.UTC().Format("2006-01-02 15:04 MST"), textOpts{size: 8, gray: 0.5})
	c.Y -= 10
	return c
}

// Logo box in the header, points.
const (
	logoBoxW = 120.0
	logoBoxH = 40.0
)

// drawLogo places the logo image into its header box, preserving aspect.
func (d *Document) drawLogo(c Cursor, x, y float64) {
	b := d.logo.Bounds()
	w, h := fitBox(float64(b.Dx()), float64(b.Dy()), logoBoxW, logoBoxH)

	sb := &d.lay.page(c).body
	sb.WriteString("q\n")
	sb.WriteString(fmt.Sprintf("%.2f 0 0 %.2f %.2f %.2f cm\n", w, h, x, y))
	sb.WriteString("/ImL Do\n")
	sb.WriteString("Q\n")
}

// drawInventory draws the single flowing table of all matching vehicles.
func (d *Document) drawInventory(c Cursor, ds *report.Dataset) (Cursor, error) {
	return d.lay.table(c, Table{
		Headers: []string{"ID", "Make", "Model", "Year", "Fuel", "Status", "Location"},
		Rows:    vehicleRows(flattenGroups(ds)),
	})
}

// drawSummaryKind draws the summary table followed by one detail section
// per non-empty group, in aggregation order. A section heading is drawn
// only after confirming room for its own extent plus the table's minimum
// lead block, so it is never the last element on a page.
func (d *Document) drawSummaryKind(c Cursor, ds *report.Dataset, summary Table) (Cursor, error) {
	l := d.lay

	if ds.FilteredCount == 0 {
		// Header and summary metrics only; nothing to tabulate.
		return c, nil
	}

	c, err := l.table(c, summary)
	if err != nil {
		return c, err
	}
	c.Y -= 20

	headingSize := l.geo.BaseFontSize * 1.2
	// Full vertical extent of a heading: its line advance plus the gap
	// before the member table.
	headingBlock := headingSize*1.5 + 2
	for _, g := range ds.Groups {
		members := ds.Members[g.Key]
		if len(members) == 0 {
			continue
		}

		c = l.ensureRoom(c, headingBlock+l.tableLead())
		c = l.text(c, fmt.Sprintf("%s (%d records)", g.Label, g.Count),
			textOpts{bold: true, size: headingSize})
		c.Y -= 2

		c, err = l.table(c, Table{
			Headers: []string{"ID", "Make", "Model", "Fuel", "Plate"},
			Rows:    memberRows(members),
		})
		if err != nil {
			return c, err
		}
		c.Y -= 18
	}
	return c, nil
}

// statusSummaryRows builds the status summary table rows.
func statusSummaryRows(ds *report.Dataset) [][]string {
	rows := make([][]string, len(ds.Groups))
	for i, g := range ds.Groups {
		rows[i] = []string{g.Label, strconv.Itoa(g.Count), fmt.Sprintf("%.2f%%", g.Percentage)}
	}
	return rows
}

// locationSummaryRows builds the location summary table rows.
func locationSummaryRows(ds *report.Dataset) [][]string {
	rows := make([][]string, len(ds.Groups))
	for i, g := range ds.Groups {
		rows[i] = []string{g.Label, g.LocationType, strconv.Itoa(g.Count)}
	}
	return rows
}

// flattenGroups concatenates group member lists in aggregation order.
func flattenGroups(ds *report.Dataset) []fleet.Vehicle {
	out := make([]fleet.Vehicle, 0, ds.FilteredCount)
	for _, g := range ds.Groups {
		out = append(out, ds.Members[g.Key]...)
	}
	return out
}

// vehicleRows formats vehicles for the inventory table.
func vehicleRows(vs []fleet.Vehicle) [][]string {
	rows := make([][]string, len(vs))
	for i, v := range vs {
		year := ""
		if v.Year > 0 {
			year = strconv.Itoa(v.Year)
		}
		rows[i] = []string{
			v.ID, v.Make, v.Model, year, v.FuelType,
			report.HumanizeLabel(v.Status), v.Location.Name,
		}
	}
	return rows
}

// memberRows formats vehicles for a group detail table.
func memberRows(vs []fleet.Vehicle) [][]string {
	rows := make([][]string, len(vs))
	for i, v := range vs {
		rows[i] = []string{v.ID, v.Make, v.Model, v.FuelType, v.Plate}
	}
	return rows
}

// fitBox scales (w, h) to fit within (boxW, boxH) preserving aspect ratio.
func fitBox(w, h, boxW, boxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return boxW, boxH
	}
	scale := boxW / w
	if s := boxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}
