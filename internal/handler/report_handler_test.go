package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records-api/internal/models"
)

func seedReportFixture(t *testing.T, srv *testServer) {
	t.Helper()
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/students", studentPayload("A", []float64{7.5, 8, 6.5, 9, 7}, 85)).Code)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/students", studentPayload("B", []float64{8.5, 9, 7.5, 8.5, 9}, 70)).Code)
}

func TestReportHandlerFull(t *testing.T) {
	srv := newTestServer()
	seedReportFixture(t, srv)

	w := srv.do(t, http.MethodGet, "/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.ClassReport
	decode(t, w, &report)
	assert.Equal(t, 2, report.TotalStudents)
	assert.Equal(t, 8.05, report.ClassAverage)
	require.Len(t, report.StudentsAboveAverage, 1)
	assert.Equal(t, "B", report.StudentsAboveAverage[0].Name)
	require.Len(t, report.StudentsBelowAttendance, 1)
	assert.Equal(t, "B", report.StudentsBelowAttendance[0].Name)
}

func TestReportHandlerAggregates(t *testing.T) {
	srv := newTestServer()
	seedReportFixture(t, srv)

	var avg map[string]float64
	decode(t, srv.do(t, http.MethodGet, "/reports/class-average", nil), &avg)
	assert.Equal(t, 8.05, avg["class_average"])

	var subjects []models.SubjectAverage
	decode(t, srv.do(t, http.MethodGet, "/reports/subject-averages", nil), &subjects)
	assert.Len(t, subjects, models.SubjectCount)

	var above []models.StudentAverage
	decode(t, srv.do(t, http.MethodGet, "/reports/above-average", nil), &above)
	require.Len(t, above, 1)
	assert.Equal(t, 8.5, above[0].Average)
}

func TestReportHandlerLowAttendance(t *testing.T) {
	srv := newTestServer()
	seedReportFixture(t, srv)

	var alerts []models.AttendanceAlert
	env := decode(t, srv.do(t, http.MethodGet, "/reports/low-attendance", nil), &alerts)
	assert.Len(t, alerts, 1)
	assert.EqualValues(t, 75, env.Meta["threshold"])

	alerts = nil
	decode(t, srv.do(t, http.MethodGet, "/reports/low-attendance?threshold=90", nil), &alerts)
	assert.Len(t, alerts, 2)

	assert.Equal(t, http.StatusUnprocessableEntity, srv.do(t, http.MethodGet, "/reports/low-attendance?threshold=abc", nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, srv.do(t, http.MethodGet, "/reports/low-attendance?threshold=101", nil).Code)

	for _, raw := range []string{"NaN", "nan", "Inf", "-1"} {
		w := srv.do(t, http.MethodGet, "/reports/low-attendance?threshold="+raw, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, raw)
		env := decode(t, w, nil)
		require.NotNil(t, env.Error, raw)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	}

	alerts = nil
	env = decode(t, srv.do(t, http.MethodGet, "/reports/low-attendance?threshold=0", nil), &alerts)
	assert.Empty(t, alerts)
	assert.EqualValues(t, 0, env.Meta["threshold"])
}

func TestReportHandlerExport(t *testing.T) {
	srv := newTestServer()
	seedReportFixture(t, srv)

	w := srv.do(t, http.MethodGet, "/reports/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, w.Body.String(), "Class average,8.05")

	w = srv.do(t, http.MethodGet, "/reports/export?format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotZero(t, w.Body.Len())

	assert.Equal(t, http.StatusUnprocessableEntity, srv.do(t, http.MethodGet, "/reports/export?format=doc", nil).Code)
}
