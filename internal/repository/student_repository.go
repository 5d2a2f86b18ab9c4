package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/student-records-api/internal/models"
)

const (
	uniqueViolationCode = "23505"
	nameKeyConstraint   = "students_name_key_idx"
)

const selectStudentsWithGrades = `SELECT s.id, s.name, s.attendance, s.created_at, s.updated_at, g.subject_index, g.grade
        FROM students s
        LEFT JOIN student_grades g ON g.student_id = s.id`

const upsertGradeQuery = `INSERT INTO student_grades (student_id, subject_index, grade)
        VALUES (:student_id, :subject_index, :grade)
        ON CONFLICT (student_id, subject_index)
        DO UPDATE SET grade = EXCLUDED.grade`

// studentRow is the write shape of the students table.
type studentRow struct {
	models.Student
	NameKey string `db:"name_key"`
}

// studentGradeRow is one row of the students/grades join.
type studentGradeRow struct {
	models.Student
	SubjectIndex sql.NullInt64   `db:"subject_index"`
	Grade        sql.NullFloat64 `db:"grade"`
}

// StudentRepository persists students and their grades in PostgreSQL.
type StudentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Ping verifies the database connection.
func (r *StudentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// List returns every student with grades, ordered by name.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	query := selectStudentsWithGrades + ` ORDER BY s.name COLLATE "C" ASC, s.id ASC, g.subject_index ASC`
	students, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student with grades, returning nil when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if !validID(id) {
		return nil, nil
	}
	query := selectStudentsWithGrades + ` WHERE s.id = $1 ORDER BY g.subject_index ASC`
	students, err := r.query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	if len(students) == 0 {
		return nil, nil
	}
	return &students[0], nil
}

// Create inserts the student row and its grades in one transaction.
func (r *StudentRepository) Create(ctx context.Context, input models.StudentInput) (*models.Student, error) {
	now := r.now()
	row := studentRow{
		Student: models.Student{
			ID:         uuid.NewString(),
			Name:       input.Name,
			Grades:     append([]float64(nil), input.Grades...),
			Attendance: input.Attendance,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		NameKey: models.NormalizeName(input.Name),
	}

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		taken, err := nameTaken(ctx, tx, row.NameKey, "")
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateName
		}
		const query = `INSERT INTO students (id, name, name_key, attendance, created_at, updated_at)
        VALUES (:id, :name, :name_key, :attendance, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("insert student: %w", err)
		}
		return upsertGrades(ctx, tx, row.ID, row.Grades)
	})
	if err != nil {
		if isNameConflict(err) {
			return nil, ErrDuplicateName
		}
		if errors.Is(err, ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("create student: %w", err)
	}
	student := row.Student
	return &student, nil
}

// Update replaces name, attendance and all grades of a student.
func (r *StudentRepository) Update(ctx context.Context, id string, input models.StudentInput) (*models.Student, error) {
	if !validID(id) {
		return nil, nil
	}
	var updated *models.Student
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var current models.Student
		const lockQuery = `SELECT id, name, attendance, created_at, updated_at FROM students WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &current, lockQuery, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("lock student: %w", err)
		}
		row := studentRow{
			Student: models.Student{
				ID:         current.ID,
				Name:       input.Name,
				Grades:     append([]float64(nil), input.Grades...),
				Attendance: input.Attendance,
				CreatedAt:  current.CreatedAt,
				UpdatedAt:  r.now(),
			},
			NameKey: models.NormalizeName(input.Name),
		}
		taken, err := nameTaken(ctx, tx, row.NameKey, id)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateName
		}
		const query = `UPDATE students SET name = :name, name_key = :name_key, attendance = :attendance, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("update student row: %w", err)
		}
		if err := upsertGrades(ctx, tx, row.ID, row.Grades); err != nil {
			return err
		}
		updated = &row.Student
		return nil
	})
	if err != nil {
		if isNameConflict(err) {
			return nil, ErrDuplicateName
		}
		if errors.Is(err, ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("update student: %w", err)
	}
	return updated, nil
}

// Delete removes a student; grades go with it through ON DELETE CASCADE.
func (r *StudentRepository) Delete(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete student rows: %w", err)
	}
	return affected > 0, nil
}

func (r *StudentRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Student, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]models.Student, 0)
	for rows.Next() {
		var row studentGradeRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		if n := len(students); n == 0 || students[n-1].ID != row.ID {
			student := row.Student
			student.Grades = make([]float64, 0, models.SubjectCount)
			students = append(students, student)
		}
		if row.SubjectIndex.Valid && row.Grade.Valid {
			last := &students[len(students)-1]
			last.Grades = append(last.Grades, row.Grade.Float64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *StudentRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nameTaken(ctx context.Context, tx *sqlx.Tx, nameKey, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE name_key = $1"
	args := []interface{}{nameKey}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := tx.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check name: %w", err)
	}
	return true, nil
}

func upsertGrades(ctx context.Context, tx *sqlx.Tx, studentID string, grades []float64) error {
	for i, grade := range grades {
		row := models.StudentGrade{StudentID: studentID, SubjectIndex: i, Grade: grade}
		if _, err := tx.NamedExecContext(ctx, upsertGradeQuery, row); err != nil {
			return fmt.Errorf("upsert grade %d: %w", i, err)
		}
	}
	return nil
}

// isNameConflict detects the unique index violation from either driver.
func isNameConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode && pqErr.Constraint == nameKeyConstraint
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == nameKeyConstraint
	}
	return false
}

// validID accepts only the canonical hyphenated form; uuid.Parse also takes
// urn and braced forms that the uuid column type rejects.
func validID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == strings.ToLower(id)
}
