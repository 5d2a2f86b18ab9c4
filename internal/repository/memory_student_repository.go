package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/student-records-api/internal/models"
)

// MemoryStudentRepository keeps students in process memory.
type MemoryStudentRepository struct {
	mu       sync.RWMutex
	students map[string]models.Student
	now      func() time.Time
}

// NewMemoryStudentRepository constructs an empty in-memory store.
func NewMemoryStudentRepository() *MemoryStudentRepository {
	return &MemoryStudentRepository{
		students: make(map[string]models.Student),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new student after checking name uniqueness.
func (r *MemoryStudentRepository) Create(ctx context.Context, input models.StudentInput) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(input.Name, "") {
		return nil, ErrDuplicateName
	}
	now := r.now()
	student := models.Student{
		ID:         uuid.NewString(),
		Name:       input.Name,
		Grades:     append([]float64(nil), input.Grades...),
		Attendance: input.Attendance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.students[student.ID] = student
	out := student.Clone()
	return &out, nil
}

// List returns every student ordered by name.
func (r *MemoryStudentRepository) List(ctx context.Context) ([]models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	students := make([]models.Student, 0, len(r.students))
	for _, s := range r.students {
		students = append(students, s.Clone())
	}
	sortStudents(students)
	return students, nil
}

// FindByID returns the student or nil when absent.
func (r *MemoryStudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	student, ok := r.students[id]
	if !ok {
		return nil, nil
	}
	out := student.Clone()
	return &out, nil
}

// Update replaces name, grades and attendance of an existing student.
func (r *MemoryStudentRepository) Update(ctx context.Context, id string, input models.StudentInput) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	student, ok := r.students[id]
	if !ok {
		return nil, nil
	}
	if r.nameTaken(input.Name, id) {
		return nil, ErrDuplicateName
	}
	student.Name = input.Name
	student.Grades = append([]float64(nil), input.Grades...)
	student.Attendance = input.Attendance
	student.UpdatedAt = r.now()
	r.students[id] = student
	out := student.Clone()
	return &out, nil
}

// Delete removes a student and reports whether it existed.
func (r *MemoryStudentRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[id]; !ok {
		return false, nil
	}
	delete(r.students, id)
	return true, nil
}

// nameTaken must be called with the lock held.
func (r *MemoryStudentRepository) nameTaken(name, excludeID string) bool {
	key := models.NormalizeName(name)
	for id, s := range r.students {
		if id == excludeID {
			continue
		}
		if models.NormalizeName(s.Name) == key {
			return true
		}
	}
	return false
}
