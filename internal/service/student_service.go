package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	Name       string    `json:"name" validate:"required,min=1,max=100"`
	Grades     []float64 `json:"grades" validate:"required,len=5,dive,gte=0,lte=10"`
	Attendance *float64  `json:"attendance" validate:"required,gte=0,lte=100"`
}

// UpdateStudentRequest holds payload for replacing a student record.
type UpdateStudentRequest struct {
	Name       string    `json:"name" validate:"required,min=1,max=100"`
	Grades     []float64 `json:"grades" validate:"required,len=5,dive,gte=0,lte=10"`
	Attendance *float64  `json:"attendance" validate:"required,gte=0,lte=100"`
}

func (r UpdateStudentRequest) input() models.StudentInput {
	return models.StudentInput{Name: r.Name, Grades: r.Grades, Attendance: *r.Attendance}
}

func (r CreateStudentRequest) input() models.StudentInput {
	return models.StudentInput{Name: r.Name, Grades: r.Grades, Attendance: *r.Attendance}
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      repository.StudentStore
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo repository.StudentStore, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, metrics: metrics, logger: logger}
}

// List returns every student ordered by name.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	start := time.Now()
	students, err := s.repo.List(ctx)
	s.observe("list", start, err)
	if err != nil {
		return nil, s.storeError(err, "failed to list students")
	}
	s.metrics.SetStudentCount(len(students))
	return students, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	start := time.Now()
	student, err := s.repo.FindByID(ctx, id)
	s.observe("get", start, err)
	if err != nil {
		return nil, s.storeError(err, "failed to load student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	start := time.Now()
	student, err := s.repo.Create(ctx, req.input())
	s.observe("create", start, err)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			s.rejectDuplicate(req.Name)
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateName.Code, appErrors.ErrDuplicateName.Status, appErrors.ErrDuplicateName.Message)
		}
		return nil, s.storeError(err, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID))
	return student, nil
}

// Update replaces name, grades and attendance of a student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	start := time.Now()
	student, err := s.repo.Update(ctx, id, req.input())
	s.observe("update", start, err)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			s.rejectDuplicate(req.Name)
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateName.Code, appErrors.ErrDuplicateName.Status, appErrors.ErrDuplicateName.Message)
		}
		return nil, s.storeError(err, "failed to update student")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// Delete removes a student and its grades.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	removed, err := s.repo.Delete(ctx, id)
	s.observe("delete", start, err)
	if err != nil {
		return s.storeError(err, "failed to delete student")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

func (s *StudentService) observe(operation string, start time.Time, err error) {
	if errors.Is(err, repository.ErrDuplicateName) {
		err = nil
	}
	s.metrics.ObserveStoreOperation(operation, time.Since(start), err)
}

func (s *StudentService) rejectDuplicate(name string) {
	s.metrics.RecordDuplicateName()
	s.logger.Warn("duplicate student name rejected", zap.String("name", name))
}

func (s *StudentService) storeError(err error, message string) *appErrors.Error {
	s.logger.Warn(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, message)
}
