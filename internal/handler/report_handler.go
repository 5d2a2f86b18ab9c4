package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/service"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
	"github.com/noah-isme/student-records-api/pkg/response"
)

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	reports *service.ReportService
	exports *service.ExportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// Full godoc
// @Summary Composite class report
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) Full(c *gin.Context) {
	report, err := h.reports.FullReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// ClassAverage godoc
// @Summary Class average
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/class-average [get]
func (h *ReportHandler) ClassAverage(c *gin.Context) {
	avg, err := h.reports.ClassAverage(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"class_average": avg})
}

// SubjectAverages godoc
// @Summary Class average per subject
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/subject-averages [get]
func (h *ReportHandler) SubjectAverages(c *gin.Context) {
	averages, err := h.reports.SubjectAverages(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, averages)
}

// AboveAverage godoc
// @Summary Students above the class average
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/above-average [get]
func (h *ReportHandler) AboveAverage(c *gin.Context) {
	students, err := h.reports.AboveAverage(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// LowAttendance godoc
// @Summary Students below an attendance threshold
// @Tags Reports
// @Produce json
// @Param threshold query number false "Attendance threshold percentage (default 75)"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /reports/low-attendance [get]
func (h *ReportHandler) LowAttendance(c *gin.Context) {
	threshold := h.reports.DefaultThreshold()
	if raw := strings.TrimSpace(c.Query("threshold")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || !service.ValidThreshold(parsed) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "threshold must be a number between 0 and 100"))
			return
		}
		threshold = parsed
	}
	students, err := h.reports.BelowAttendance(c.Request.Context(), threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"threshold": threshold})
}

// Export godoc
// @Summary Download the composite report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv, pdf or xlsx (default csv)"
// @Success 200 {file} binary
// @Failure 422 {object} response.Envelope
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	format, err := service.ParseReportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Data)
}
