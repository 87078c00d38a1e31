package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/sipas/persuratan/internal/auth"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
	"github.com/sipas/persuratan/internal/report"
)

// ReportAPI serves report downloads and the dashboard summary
type ReportAPI struct {
	reportSvc      *report.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewReportAPI creates a new report API handler
func NewReportAPI(reportSvc *report.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *ReportAPI {
	return &ReportAPI{
		reportSvc:      reportSvc,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers report routes
func (api *ReportAPI) RegisterRoutes(mux *http.ServeMux) {
	readers := api.authMiddleware.RequireRole(models.RoleAdmin, models.RoleOperator, models.RolePimpinan)

	mux.HandleFunc("GET /api/reports/{kind}", readers(api.handleReport))
	mux.HandleFunc("GET /api/dashboard", api.authMiddleware.RequireAuth(api.handleDashboard))
}

func (api *ReportAPI) handleReport(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeServiceError(w, api.logger, err, "generate report")
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeServiceError(w, api.logger, err, "generate report")
		return
	}

	format := report.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = report.FormatXLSX
	}

	rep, err := api.reportSvc.Generate(r.Context(), report.Kind(r.PathValue("kind")), from, to, format)
	if err != nil {
		writeServiceError(w, api.logger, err, "generate report")
		return
	}

	w.Header().Set("Content-Type", rep.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(rep.Data)
}

func (api *ReportAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tahun := parseIntQuery(r.URL.Query().Get("tahun"), 0)

	summary, err := api.reportSvc.Dashboard(r.Context(), tahun)
	if err != nil {
		writeServiceError(w, api.logger, err, "build dashboard")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
