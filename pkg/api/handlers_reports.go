package api

import (
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/tradelane/fleettrack/pkg/assets"
	fterrors "github.com/tradelane/fleettrack/pkg/errors"
	"github.com/tradelane/fleettrack/pkg/fleet"
	"github.com/tradelane/fleettrack/pkg/render"
	"github.com/tradelane/fleettrack/pkg/report"
	"github.com/tradelane/fleettrack/pkg/token"
)

// qrCaption is printed under the QR stamp on the first page.
const qrCaption = "Scan to view this report online"

// ReportHandler handles report generation and view-link requests.
type ReportHandler struct {
	agg      *report.Aggregator
	issuer   *token.Issuer
	fetcher  *assets.Fetcher
	logoURL  string
	opts     render.Options
	log      *logrus.Logger
	validate *validator.Validate
}

// NewReportHandler creates a ReportHandler over the given store and
// collaborators.
func NewReportHandler(store fleet.Store, issuer *token.Issuer, fetcher *assets.Fetcher,
	logoURL string, opts render.Options, log *logrus.Logger) *ReportHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReportHandler{
		agg:      report.NewAggregator(store),
		issuer:   issuer,
		fetcher:  fetcher,
		logoURL:  logoURL,
		opts:     opts,
		log:      log,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the report API routes on the router.
func (h *ReportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/reports/generate", h.Generate).Methods(http.MethodPost)
	r.HandleFunc("/api/reports/preview", h.Preview).Methods(http.MethodGet)
	r.HandleFunc("/view/report", h.View).Methods(http.MethodGet)
	r.HandleFunc("/api/health", h.Health).Methods(http.MethodGet)
}

// GenerateRequest is the request body for POST /api/reports/generate.
type GenerateRequest struct {
	ReportType string    `json:"reportType" validate:"required,oneof=inventory status_summary location_summary"`
	Filter     FilterDTO `json:"filter"`
}

// FilterDTO is the wire form of a vehicle filter. Empty fields and the
// literal "all" leave that dimension unconstrained.
type FilterDTO struct {
	Status     string `json:"status,omitempty"`
	LocationID string `json:"locationId,omitempty"`
	FuelType   string `json:"fuelType,omitempty"`
	Make       string `json:"make,omitempty"`
	Model      string `json:"model,omitempty"`
}

func (f FilterDTO) toFilterSet() fleet.FilterSet {
	return fleet.FilterSet{
		Status:     f.Status,
		LocationID: f.LocationID,
		FuelType:   f.FuelType,
		Make:       f.Make,
		Model:      f.Model,
	}
}

// Generate handles POST /api/reports/generate. It aggregates the fleet
// under the requested filter, renders the PDF, and returns it with the
// issued view token in the X-Report-Token header.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json",
			"Failed to parse request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "validation_failed",
			"Invalid report request: "+err.Error())
		return
	}

	kind := render.Kind(req.ReportType)
	filter := req.Filter.toFilterSet()

	tok, err := h.issuer.Issue(req.ReportType, filter)
	if err != nil {
		h.writeReportError(w, r, err)
		return
	}

	pdf, err := h.build(r, kind, filter, tok)
	if err != nil {
		h.writeReportError(w, r, err)
		return
	}

	filename := fmt.Sprintf("fleet_%s_%s.pdf", kind, time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Report-Token", tok)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// View handles GET /view/report?token=. It verifies the presented token
// and regenerates the report it encodes against the current fleet state.
func (h *ReportHandler) View(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		WriteError(w, http.StatusBadRequest, "missing_token", "The token query parameter is required")
		return
	}

	claims, err := h.issuer.Verify(tok)
	if err != nil {
		if fterrors.IsCode(err, fterrors.CodeTokenExpired) {
			WriteError(w, http.StatusGone, "token_expired", "This report link has expired")
		} else {
			WriteError(w, http.StatusUnauthorized, "token_invalid", "This report link is not valid")
		}
		return
	}

	if !render.ValidKind(claims.ReportType) {
		WriteError(w, http.StatusBadRequest, "unknown_report_type",
			"The token references an unknown report type")
		return
	}

	pdf, err := h.build(r, render.Kind(claims.ReportType), claims.Filter, tok)
	if err != nil {
		h.writeReportError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=\"fleet_report.pdf\"")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// PreviewResponse is the JSON body for GET /api/reports/preview.
type PreviewResponse struct {
	ReportType    string                `json:"reportType"`
	Filter        string                `json:"filter"`
	TotalCount    int                   `json:"totalCount"`
	FilteredCount int                   `json:"filteredCount"`
	Groups        []report.GroupSummary `json:"groups"`
}

// Preview handles GET /api/reports/preview. It runs the aggregation for a
// report without rendering it, so a UI can show counts before committing
// to a download.
func (h *ReportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reportType := q.Get("type")
	if reportType == "" {
		reportType = string(render.KindStatusSummary)
	}
	if !render.ValidKind(reportType) {
		WriteError(w, http.StatusBadRequest, "unknown_report_type",
			fmt.Sprintf("Unknown report type %q", reportType))
		return
	}

	filter := fleet.FilterSet{
		Status:     q.Get("status"),
		LocationID: q.Get("locationId"),
		FuelType:   q.Get("fuelType"),
		Make:       q.Get("make"),
		Model:      q.Get("model"),
	}

	kind := render.Kind(reportType)
	ds, err := h.agg.Aggregate(r.Context(), filter, kind.Dimension())
	if err != nil {
		h.writeReportError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, PreviewResponse{
		ReportType:    reportType,
		Filter:        ds.Filter.String(),
		TotalCount:    ds.TotalCount,
		FilteredCount: ds.FilteredCount,
		Groups:        ds.Groups,
	})
}

// Health handles GET /api/health.
func (h *ReportHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// build runs the full pipeline for one report: aggregate, render, stamp
// the QR for the view token, then the overlay pass.
func (h *ReportHandler) build(r *http.Request, kind render.Kind, filter fleet.FilterSet, tok string) ([]byte, error) {
	ctx := r.Context()

	ds, err := h.agg.Aggregate(ctx, filter, kind.Dimension())
	if err != nil {
		return nil, err
	}

	var logo image.Image
	if res := h.fetcher.Logo(ctx, h.logoURL); res.Ok() {
		logo = res.Image
	}

	doc, err := render.Render(ds, kind, logo, h.opts)
	if err != nil {
		return nil, err
	}

	if qr, err := h.issuer.QRImage(tok); err != nil {
		h.log.WithFields(logrus.Fields{
			"request_id": RequestID(r),
			"reason":     err.Error(),
		}).Warn("rendering without QR code")
	} else {
		doc.StampQR(qr, qrCaption)
	}

	doc.ApplyOverlay()
	return doc.Bytes()
}

// writeReportError maps a pipeline error onto an HTTP response.
func (h *ReportHandler) writeReportError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithFields(logrus.Fields{
		"request_id": RequestID(r),
		"error":      err.Error(),
	}).Error("report generation failed")

	switch {
	case fterrors.IsCategory(err, fterrors.CategoryAggregation):
		WriteError(w, http.StatusBadGateway, "aggregation_failed",
			"The fleet data store could not be queried")
	case fterrors.IsCategory(err, fterrors.CategoryValidation):
		WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "report_failed",
			"The report could not be generated")
	}
}
