package service

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository"
)

func seedStudents(t *testing.T, repo repository.StudentStore, inputs ...models.StudentInput) []*models.Student {
	t.Helper()
	out := make([]*models.Student, 0, len(inputs))
	for _, in := range inputs {
		st, err := repo.Create(context.Background(), in)
		require.NoError(t, err)
		out = append(out, st)
	}
	return out
}

func newTestReportService(threshold float64) (*ReportService, *repository.MemoryStudentRepository) {
	repo := repository.NewMemoryStudentRepository()
	return NewReportService(repo, threshold, NewMetricsService(), zap.NewNop()), repo
}

func TestStudentAverage(t *testing.T) {
	svc, _ := newTestReportService(DefaultAttendanceThreshold)

	assert.Equal(t, 7.6, svc.StudentAverage(models.Student{Grades: []float64{7.5, 8, 6.5, 9, 7}}))
	assert.Equal(t, 0.0, svc.StudentAverage(models.Student{}))
}

func TestReportServiceClassAverage(t *testing.T) {
	svc, repo := newTestReportService(DefaultAttendanceThreshold)

	avg, err := svc.ClassAverage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	seedStudents(t, repo,
		models.StudentInput{Name: "A", Grades: []float64{7.5, 8, 6.5, 9, 7}, Attendance: 85},
		models.StudentInput{Name: "B", Grades: []float64{8.5, 9, 7.5, 8.5, 9}, Attendance: 90},
	)

	avg, err = svc.ClassAverage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8.05, avg)
}

func TestReportServiceSubjectAveragesEmptyStore(t *testing.T) {
	svc, _ := newTestReportService(DefaultAttendanceThreshold)

	averages, err := svc.SubjectAverages(context.Background())
	require.NoError(t, err)
	require.Len(t, averages, models.SubjectCount)
	for i, avg := range averages {
		assert.Equal(t, subjectLabel(i), avg.Subject)
		assert.Equal(t, 0.0, avg.Average)
	}
	assert.Equal(t, "Subject 1", averages[0].Subject)
	assert.Equal(t, "Subject 5", averages[4].Subject)
}

func TestReportServiceSubjectAverages(t *testing.T) {
	svc, repo := newTestReportService(DefaultAttendanceThreshold)
	seedStudents(t, repo,
		models.StudentInput{Name: "A", Grades: []float64{7.5, 8, 6.5, 9, 7}, Attendance: 85},
		models.StudentInput{Name: "B", Grades: []float64{8.5, 9, 7.5, 8.5, 9}, Attendance: 90},
	)

	averages, err := svc.SubjectAverages(context.Background())
	require.NoError(t, err)
	got := make([]float64, 0, len(averages))
	for _, avg := range averages {
		got = append(got, avg.Average)
	}
	assert.Equal(t, []float64{8, 8.5, 7, 8.75, 8}, got)
}

func TestReportServiceAboveAverageIsStrict(t *testing.T) {
	svc, repo := newTestReportService(DefaultAttendanceThreshold)
	seedStudents(t, repo,
		models.StudentInput{Name: "A", Grades: []float64{7, 7, 7, 7, 7}, Attendance: 80},
		models.StudentInput{Name: "B", Grades: []float64{9, 9, 9, 9, 9}, Attendance: 80},
		models.StudentInput{Name: "C", Grades: []float64{8, 8, 8, 8, 8}, Attendance: 80},
	)

	above, err := svc.AboveAverage(context.Background())
	require.NoError(t, err)
	require.Len(t, above, 1)
	assert.Equal(t, "B", above[0].Name)
	assert.Equal(t, 9.0, above[0].Average)
}

func TestReportServiceAboveAverageAllEqual(t *testing.T) {
	svc, repo := newTestReportService(DefaultAttendanceThreshold)
	seedStudents(t, repo,
		models.StudentInput{Name: "A", Grades: []float64{8, 8, 8, 8, 8}, Attendance: 80},
		models.StudentInput{Name: "B", Grades: []float64{8, 8, 8, 8, 8}, Attendance: 80},
	)

	above, err := svc.AboveAverage(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, above)
	assert.Empty(t, above)
}

func TestReportServiceBelowAttendanceThreshold(t *testing.T) {
	svc, repo := newTestReportService(DefaultAttendanceThreshold)
	seedStudents(t, repo,
		models.StudentInput{Name: "A", Grades: []float64{5, 5, 5, 5, 5}, Attendance: 85},
		models.StudentInput{Name: "B", Grades: []float64{5, 5, 5, 5, 5}, Attendance: 75},
		models.StudentInput{Name: "C", Grades: []float64{5, 5, 5, 5, 5}, Attendance: 60},
	)

	low, err := svc.BelowAttendance(context.Background(), svc.DefaultThreshold())
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "C", low[0].Name)

	low, err = svc.BelowAttendance(context.Background(), 90)
	require.NoError(t, err)
	assert.Len(t, low, 3)
}

func TestReportServiceBelowAttendanceKeepsNameOrder(t *testing.T) {
	svc, repo := newTestReportService(DefaultAttendanceThreshold)
	seedStudents(t, repo,
		models.StudentInput{Name: "Carla", Grades: []float64{5, 5, 5, 5, 5}, Attendance: 50},
		models.StudentInput{Name: "Ana", Grades: []float64{5, 5, 5, 5, 5}, Attendance: 70},
		models.StudentInput{Name: "Bruno", Grades: []float64{5, 5, 5, 5, 5}, Attendance: 60},
	)

	low, err := svc.BelowAttendance(context.Background(), 75)
	require.NoError(t, err)
	names := make([]string, 0, len(low))
	for _, alert := range low {
		names = append(names, alert.Name)
	}
	assert.Equal(t, []string{"Ana", "Bruno", "Carla"}, names)
}

func TestReportServiceThresholdFallback(t *testing.T) {
	svc, _ := newTestReportService(-5)
	assert.Equal(t, DefaultAttendanceThreshold, svc.DefaultThreshold())

	svc, _ = newTestReportService(60)
	assert.Equal(t, 60.0, svc.DefaultThreshold())

	svc, _ = newTestReportService(0)
	assert.Equal(t, 0.0, svc.DefaultThreshold())

	svc, _ = newTestReportService(math.NaN())
	assert.Equal(t, DefaultAttendanceThreshold, svc.DefaultThreshold())
}

func TestValidThreshold(t *testing.T) {
	for _, v := range []float64{0, 75, 100} {
		assert.True(t, ValidThreshold(v), v)
	}
	for _, v := range []float64{-0.1, 100.5, math.NaN(), math.Inf(1)} {
		assert.False(t, ValidThreshold(v), v)
	}
}

func TestReportServiceFullReport(t *testing.T) {
	svc, repo := newTestReportService(DefaultAttendanceThreshold)
	seeded := seedStudents(t, repo,
		models.StudentInput{Name: "A", Grades: []float64{7.5, 8, 6.5, 9, 7}, Attendance: 85},
		models.StudentInput{Name: "B", Grades: []float64{8.5, 9, 7.5, 8.5, 9}, Attendance: 90},
	)

	report, err := svc.FullReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalStudents)
	assert.Equal(t, 8.05, report.ClassAverage)
	require.Len(t, report.Students, 2)
	assert.Equal(t, 7.6, report.Students[0].Average)
	assert.Len(t, report.SubjectAverages, models.SubjectCount)
	require.Len(t, report.StudentsAboveAverage, 1)
	assert.Equal(t, seeded[1].ID, report.StudentsAboveAverage[0].ID)
	assert.Empty(t, report.StudentsBelowAttendance)
	assert.Equal(t, DefaultAttendanceThreshold, report.AttendanceThreshold)
}

func TestReportServiceFullReportEmpty(t *testing.T) {
	svc, _ := newTestReportService(DefaultAttendanceThreshold)

	report, err := svc.FullReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalStudents)
	assert.Equal(t, 0.0, report.ClassAverage)
	assert.Empty(t, report.Students)
	assert.Len(t, report.SubjectAverages, models.SubjectCount)
}

func TestReportServiceStoreFailure(t *testing.T) {
	svc := NewReportService(failingStore{err: errors.New("down")}, 75, nil, nil)

	_, err := svc.FullReport(context.Background())
	assertAppError(t, err, http.StatusServiceUnavailable)
}
