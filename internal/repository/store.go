package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/noah-isme/student-records-api/internal/models"
)

// ErrDuplicateName is returned when a write would give two students the same
// trimmed, case-folded name.
var ErrDuplicateName = errors.New("student name already in use")

// StudentStore is the persistence contract shared by every backend.
//
// FindByID and Update return a nil student and a nil error when the id is
// unknown; Delete reports the same condition as false.
type StudentStore interface {
	Create(ctx context.Context, input models.StudentInput) (*models.Student, error)
	List(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Update(ctx context.Context, id string, input models.StudentInput) (*models.Student, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// sortStudents orders by name, then id, matching the SQL listing order.
func sortStudents(students []models.Student) {
	sort.SliceStable(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
}
