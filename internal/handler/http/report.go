package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ReportHandler interface {
	GetMySummary(w http.ResponseWriter, r *http.Request)
	GetEmployeeSummary(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
}

func NewReportHandler(reportService report.ReportService) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
	}
}

// GetMySummary handles GET /attendance/summary
func (h *reportHandlerImpl) GetMySummary(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	h.summarize(w, r, identity.WorkerID)
}

// GetEmployeeSummary handles GET /employees/{employeeID}/attendance/summary
func (h *reportHandlerImpl) GetEmployeeSummary(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		response.BadRequest(w, "Employee ID is required", nil)
		return
	}

	h.summarize(w, r, employeeID)
}

func (h *reportHandlerImpl) summarize(w http.ResponseWriter, r *http.Request, workerID string) {
	req := report.AggregateRequest{WorkerID: workerID}

	query := r.URL.Query()
	if monthStr, yearStr := query.Get("month"), query.Get("year"); monthStr != "" || yearStr != "" {
		start, end, err := monthRange(monthStr, yearStr)
		if err != nil {
			response.BadRequest(w, err.Error(), nil)
			return
		}
		req.StartDate, req.EndDate = start, end
	} else {
		req.StartDate = query.Get("start_date")
		req.EndDate = query.Get("end_date")
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.reportService.ComputeAggregates(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// monthRange turns ?month=&year= into the first and last day of that month.
func monthRange(monthStr, yearStr string) (string, string, error) {
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return "", "", fmt.Errorf("invalid month parameter")
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 {
		return "", "", fmt.Errorf("invalid year parameter")
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(time.DateOnly), last.Format(time.DateOnly), nil
}
