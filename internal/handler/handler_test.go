package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/repository"
	"github.com/noah-isme/student-records-api/internal/service"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *apiError              `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type apiError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

type testServer struct {
	engine *gin.Engine
	repo   *repository.MemoryStudentRepository
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryStudentRepository()
	metrics := service.NewMetricsService()
	students := NewStudentHandler(service.NewStudentService(repo, service.NewValidator(), metrics, zap.NewNop()))
	reportSvc := service.NewReportService(repo, 75, metrics, zap.NewNop())
	reports := NewReportHandler(reportSvc, service.NewExportService(reportSvc, "Class Report", zap.NewNop()))
	health := NewMetricsHandler(metrics, repo, "memory")

	r := gin.New()
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", health.Prometheus)
	r.GET("/students", students.List)
	r.POST("/students", students.Create)
	r.GET("/students/:id", students.Get)
	r.PUT("/students/:id", students.Update)
	r.DELETE("/students/:id", students.Delete)
	r.GET("/reports", reports.Full)
	r.GET("/reports/class-average", reports.ClassAverage)
	r.GET("/reports/subject-averages", reports.SubjectAverages)
	r.GET("/reports/above-average", reports.AboveAverage)
	r.GET("/reports/low-attendance", reports.LowAttendance)
	r.GET("/reports/export", reports.Export)
	return &testServer{engine: r, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func studentPayload(name string, grades []float64, attendance float64) map[string]interface{} {
	return map[string]interface{}{"name": name, "grades": grades, "attendance": attendance}
}
