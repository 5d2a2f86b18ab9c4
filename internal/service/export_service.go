package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
	"github.com/noah-isme/student-records-api/pkg/export"
)

type classReporter interface {
	FullReport(ctx context.Context) (*models.ClassReport, error)
}

// ExportResult is a rendered report ready to be streamed to the client.
type ExportResult struct {
	Filename    string
	ContentType string
	Format      models.ReportFormat
	Data        []byte
}

// ExportService renders the composite class report into downloadable files.
type ExportService struct {
	reports   classReporter
	renderers map[models.ReportFormat]export.Renderer
	title     string
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with CSV, PDF and XLSX renderers.
func NewExportService(reports classReporter, title string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(title) == "" {
		title = "Class Report"
	}
	return &ExportService{
		reports: reports,
		renderers: map[models.ReportFormat]export.Renderer{
			models.ReportFormatCSV:  export.NewCSVExporter(),
			models.ReportFormatPDF:  export.NewPDFExporter(),
			models.ReportFormatXLSX: export.NewXLSXExporter(),
		},
		title:  title,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ParseReportFormat validates a user supplied format, defaulting to CSV.
func ParseReportFormat(raw string) (models.ReportFormat, error) {
	switch format := models.ReportFormat(strings.ToLower(strings.TrimSpace(raw))); format {
	case "":
		return models.ReportFormatCSV, nil
	case models.ReportFormatCSV, models.ReportFormatPDF, models.ReportFormatXLSX:
		return format, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// Export renders the current class report in the requested format.
func (s *ExportService) Export(ctx context.Context, format models.ReportFormat) (*ExportResult, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	report, err := s.reports.FullReport(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(buildReportDataset(report, s.title))
	if err != nil {
		s.logger.Error("failed to render report export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("class_report_%s.%s", s.now().Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Format:      format,
		Data:        payload,
	}, nil
}

func buildReportDataset(report *models.ClassReport, title string) export.Dataset {
	headers := []string{"ID", "Name"}
	for i := 0; i < models.SubjectCount; i++ {
		headers = append(headers, subjectLabel(i))
	}
	headers = append(headers, "Attendance", "Average")

	rows := make([]map[string]string, 0, len(report.Students))
	for _, st := range report.Students {
		row := map[string]string{
			"ID":         st.ID,
			"Name":       st.Name,
			"Attendance": formatNumber(st.Attendance),
			"Average":    formatNumber(st.Average),
		}
		for i, grade := range st.Grades {
			row[subjectLabel(i)] = formatNumber(grade)
		}
		rows = append(rows, row)
	}

	summary := []export.SummaryLine{
		{Label: "Total students", Value: strconv.Itoa(report.TotalStudents)},
		{Label: "Class average", Value: formatNumber(report.ClassAverage)},
	}
	for _, sa := range report.SubjectAverages {
		summary = append(summary, export.SummaryLine{Label: sa.Subject + " average", Value: formatNumber(sa.Average)})
	}
	above := make([]string, 0, len(report.StudentsAboveAverage))
	for _, st := range report.StudentsAboveAverage {
		above = append(above, st.Name)
	}
	low := make([]string, 0, len(report.StudentsBelowAttendance))
	for _, st := range report.StudentsBelowAttendance {
		low = append(low, st.Name)
	}
	summary = append(summary,
		export.SummaryLine{Label: "Above class average", Value: strings.Join(above, ", ")},
		export.SummaryLine{Label: fmt.Sprintf("Attendance below %s%%", formatNumber(report.AttendanceThreshold)), Value: strings.Join(low, ", ")},
	)

	return export.Dataset{Title: title, Headers: headers, Rows: rows, Summary: summary}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
