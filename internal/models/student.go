package models

import (
	"strings"
	"time"
)

// SubjectCount is the fixed number of graded subjects per student.
const SubjectCount = 5

// Student represents a learner with one grade per subject.
type Student struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Grades     []float64 `db:"-" json:"grades"`
	Attendance float64   `db:"attendance" json:"attendance"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentInput carries the mutable fields written on create and update.
type StudentInput struct {
	Name       string
	Grades     []float64
	Attendance float64
}

// StudentGrade is one persisted grade row.
type StudentGrade struct {
	StudentID    string  `db:"student_id" json:"student_id"`
	SubjectIndex int     `db:"subject_index" json:"subject_index"`
	Grade        float64 `db:"grade" json:"grade"`
}

// NormalizeName folds a name into the key used for uniqueness checks.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Clone returns a deep copy so callers cannot mutate stored grades.
func (s Student) Clone() Student {
	clone := s
	if s.Grades != nil {
		clone.Grades = append([]float64(nil), s.Grades...)
	}
	return clone
}
