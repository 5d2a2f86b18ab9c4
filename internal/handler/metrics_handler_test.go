package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/student-records-api/internal/repository"
)

type pingStore struct {
	repository.StudentStore
	err error
}

func (p pingStore) Ping(ctx context.Context) error {
	return p.err
}

func TestMetricsHandlerHealthAndMetrics(t *testing.T) {
	srv := newTestServer()

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/ready", nil).Code)

	srv.do(t, http.MethodGet, "/students", nil)
	w := srv.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "student_store_operation_duration_seconds")
}

func TestMetricsHandlerReadyPingsStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStudentRepository()

	for _, tc := range []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{errors.New("dial tcp: refused"), http.StatusServiceUnavailable},
	} {
		h := NewMetricsHandler(nil, pingStore{StudentStore: store, err: tc.err}, "postgres")
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
		h.Ready(c)
		assert.Equal(t, tc.status, w.Code)
	}
}
