package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

// DefaultAttendanceThreshold is used when no threshold is configured.
const DefaultAttendanceThreshold = 75.0

// Report kinds recorded in metrics.
const (
	reportClassAverage    = "class_average"
	reportSubjectAverages = "subject_averages"
	reportAboveAverage    = "above_average"
	reportLowAttendance   = "low_attendance"
	reportFull            = "full"
)

// ReportService derives aggregates from the student store. Every call reads a
// fresh listing; nothing is cached.
type ReportService struct {
	repo      repository.StudentStore
	threshold float64
	metrics   *MetricsService
	logger    *zap.Logger
}

// ValidThreshold reports whether v is an attendance percentage in [0, 100].
func ValidThreshold(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// NewReportService constructs the report service. A threshold outside [0, 100]
// falls back to DefaultAttendanceThreshold.
func NewReportService(repo repository.StudentStore, threshold float64, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if !ValidThreshold(threshold) {
		threshold = DefaultAttendanceThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, threshold: threshold, metrics: metrics, logger: logger}
}

// DefaultThreshold returns the configured attendance threshold.
func (s *ReportService) DefaultThreshold() float64 {
	return s.threshold
}

// StudentAverage is the mean of a student's grades, 0 when there are none.
func (s *ReportService) StudentAverage(student models.Student) float64 {
	return studentAverage(student)
}

// ClassAverage returns the mean of all student averages rounded to 2 decimals.
func (s *ReportService) ClassAverage(ctx context.Context) (float64, error) {
	students, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordReport(reportClassAverage)
	return classAverage(students), nil
}

// SubjectAverages returns one rounded mean per subject, always SubjectCount entries.
func (s *ReportService) SubjectAverages(ctx context.Context) ([]models.SubjectAverage, error) {
	students, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReport(reportSubjectAverages)
	return subjectAverages(students), nil
}

// AboveAverage lists students whose average is strictly above the class average.
func (s *ReportService) AboveAverage(ctx context.Context) ([]models.StudentAverage, error) {
	students, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReport(reportAboveAverage)
	return aboveAverage(students, classAverage(students)), nil
}

// BelowAttendance lists students with attendance strictly below threshold.
func (s *ReportService) BelowAttendance(ctx context.Context, threshold float64) ([]models.AttendanceAlert, error) {
	students, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReport(reportLowAttendance)
	return belowAttendance(students, threshold), nil
}

// FullReport computes every aggregate from a single listing.
func (s *ReportService) FullReport(ctx context.Context) (*models.ClassReport, error) {
	students, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReport(reportFull)
	return buildClassReport(students, s.threshold), nil
}

func (s *ReportService) snapshot(ctx context.Context) ([]models.Student, error) {
	start := time.Now()
	students, err := s.repo.List(ctx)
	s.metrics.ObserveStoreOperation("list", time.Since(start), err)
	if err != nil {
		s.logger.Warn("failed to list students for report", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load students")
	}
	s.metrics.SetStudentCount(len(students))
	return students, nil
}

func buildClassReport(students []models.Student, threshold float64) *models.ClassReport {
	avg := classAverage(students)
	rows := make([]models.StudentReportRow, 0, len(students))
	for _, st := range students {
		rows = append(rows, models.StudentReportRow{
			ID:         st.ID,
			Name:       st.Name,
			Grades:     append([]float64(nil), st.Grades...),
			Attendance: st.Attendance,
			Average:    round2(studentAverage(st)),
		})
	}
	return &models.ClassReport{
		TotalStudents:           len(students),
		Students:                rows,
		ClassAverage:            avg,
		SubjectAverages:         subjectAverages(students),
		StudentsAboveAverage:    aboveAverage(students, avg),
		StudentsBelowAttendance: belowAttendance(students, threshold),
		AttendanceThreshold:     threshold,
	}
}

func studentAverage(student models.Student) float64 {
	if len(student.Grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range student.Grades {
		sum += g
	}
	return sum / float64(len(student.Grades))
}

func classAverage(students []models.Student) float64 {
	if len(students) == 0 {
		return 0
	}
	var sum float64
	for _, st := range students {
		sum += studentAverage(st)
	}
	return round2(sum / float64(len(students)))
}

func subjectAverages(students []models.Student) []models.SubjectAverage {
	result := make([]models.SubjectAverage, models.SubjectCount)
	for i := range result {
		result[i].Subject = subjectLabel(i)
		if len(students) == 0 {
			continue
		}
		var sum float64
		for _, st := range students {
			if i < len(st.Grades) {
				sum += st.Grades[i]
			}
		}
		result[i].Average = round2(sum / float64(len(students)))
	}
	return result
}

// aboveAverage compares each raw average against the already rounded class average.
func aboveAverage(students []models.Student, classAvg float64) []models.StudentAverage {
	result := make([]models.StudentAverage, 0)
	for _, st := range students {
		avg := studentAverage(st)
		if avg > classAvg {
			result = append(result, models.StudentAverage{ID: st.ID, Name: st.Name, Average: round2(avg)})
		}
	}
	return result
}

func belowAttendance(students []models.Student, threshold float64) []models.AttendanceAlert {
	result := make([]models.AttendanceAlert, 0)
	for _, st := range students {
		if st.Attendance < threshold {
			result = append(result, models.AttendanceAlert{ID: st.ID, Name: st.Name, Attendance: st.Attendance})
		}
	}
	return result
}

func subjectLabel(index int) string {
	return fmt.Sprintf("Subject %d", index+1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
