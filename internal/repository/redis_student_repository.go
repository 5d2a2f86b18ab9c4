package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/student-records-api/internal/models"
)

// RedisStudentRepository stores each student as a JSON document.
//
// Keys (all under the configured prefix):
//
//	student:<id>  JSON encoded models.Student
//	students      set of ids
//	student-names hash of normalized name -> id
type RedisStudentRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStudentRepository constructs a Redis backed store.
func NewRedisStudentRepository(client *redis.Client, prefix string) *RedisStudentRepository {
	return &RedisStudentRepository{client: client, prefix: prefix, now: func() time.Time { return time.Now().UTC() }}
}

// Ping verifies the Redis connection.
func (r *RedisStudentRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStudentRepository) studentKey(id string) string {
	return r.prefix + "student:" + id
}

func (r *RedisStudentRepository) idsKey() string {
	return r.prefix + "students"
}

func (r *RedisStudentRepository) namesKey() string {
	return r.prefix + "student-names"
}

// Create claims the normalized name with HSETNX and then writes the document.
func (r *RedisStudentRepository) Create(ctx context.Context, input models.StudentInput) (*models.Student, error) {
	now := r.now()
	student := models.Student{
		ID:         uuid.NewString(),
		Name:       input.Name,
		Grades:     append([]float64(nil), input.Grades...),
		Attendance: input.Attendance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	nameKey := models.NormalizeName(input.Name)
	claimed, err := r.client.HSetNX(ctx, r.namesKey(), nameKey, student.ID).Result()
	if err != nil {
		return nil, fmt.Errorf("claim student name: %w", err)
	}
	if !claimed {
		return nil, ErrDuplicateName
	}
	payload, err := json.Marshal(student)
	if err != nil {
		r.releaseName(ctx, nameKey)
		return nil, fmt.Errorf("marshal student: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.studentKey(student.ID), payload, 0)
		pipe.SAdd(ctx, r.idsKey(), student.ID)
		return nil
	})
	if err != nil {
		r.releaseName(ctx, nameKey)
		return nil, fmt.Errorf("create student: %w", err)
	}
	return &student, nil
}

// List loads every student document and orders them by name.
func (r *RedisStudentRepository) List(ctx context.Context) ([]models.Student, error) {
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list student ids: %w", err)
	}
	students := make([]models.Student, 0, len(ids))
	if len(ids) == 0 {
		return students, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.studentKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// removed between SMEMBERS and MGET
			continue
		}
		var student models.Student
		if err := json.Unmarshal([]byte(raw), &student); err != nil {
			return nil, fmt.Errorf("decode student %s: %w", ids[i], err)
		}
		students = append(students, student)
	}
	sortStudents(students)
	return students, nil
}

// FindByID returns the student or nil when the key does not exist.
func (r *RedisStudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, err := r.load(ctx, r.client, id)
	if err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	return student, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStudentRepository) load(ctx context.Context, c stringGetter, id string) (*models.Student, error) {
	raw, err := c.Get(ctx, r.studentKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var student models.Student
	if err := json.Unmarshal(raw, &student); err != nil {
		return nil, fmt.Errorf("decode student %s: %w", id, err)
	}
	return &student, nil
}

// maxWatchRetries bounds how often a write is retried after a concurrent
// change to the watched student key aborts its transaction.
const maxWatchRetries = 5

// Update rewrites the document, moving the name claim when the name changes.
// The student key is watched from the read to EXEC so a concurrent Delete
// aborts the write instead of being undone by it.
func (r *RedisStudentRepository) Update(ctx context.Context, id string, input models.StudentInput) (*models.Student, error) {
	key := r.studentKey(id)
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		var updated *models.Student
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := r.load(ctx, tx, id)
			if err != nil || current == nil {
				return err
			}
			oldKey := models.NormalizeName(current.Name)
			newKey := models.NormalizeName(input.Name)
			claimedNew := false
			if newKey != oldKey {
				claimed, err := tx.HSetNX(ctx, r.namesKey(), newKey, id).Result()
				if err != nil {
					return fmt.Errorf("claim student name: %w", err)
				}
				if !claimed {
					owner, err := tx.HGet(ctx, r.namesKey(), newKey).Result()
					if err != nil && !errors.Is(err, redis.Nil) {
						return fmt.Errorf("check student name: %w", err)
					}
					if owner != id {
						return ErrDuplicateName
					}
				}
				claimedNew = claimed
			}

			next := *current
			next.Name = input.Name
			next.Grades = append([]float64(nil), input.Grades...)
			next.Attendance = input.Attendance
			next.UpdatedAt = r.now()
			payload, err := json.Marshal(next)
			if err != nil {
				if claimedNew {
					r.releaseName(ctx, newKey)
				}
				return fmt.Errorf("marshal student: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				if newKey != oldKey {
					pipe.HDel(ctx, r.namesKey(), oldKey)
				}
				return nil
			})
			if err != nil {
				if claimedNew {
					r.releaseName(ctx, newKey)
				}
				return err
			}
			updated = &next
			return nil
		}, key)
		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrDuplicateName):
			return nil, err
		case err != nil:
			return nil, fmt.Errorf("update student: %w", err)
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update student %s: %w", id, redis.TxFailedErr)
}

// Delete removes the document, its id and its name claim together.
func (r *RedisStudentRepository) Delete(ctx context.Context, id string) (bool, error) {
	key := r.studentKey(id)
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		removed := false
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := r.load(ctx, tx, id)
			if err != nil || current == nil {
				return err
			}
			var del *redis.IntCmd
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				del = pipe.Del(ctx, key)
				pipe.SRem(ctx, r.idsKey(), id)
				pipe.HDel(ctx, r.namesKey(), models.NormalizeName(current.Name))
				return nil
			})
			if err != nil {
				return err
			}
			removed = del.Val() > 0
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("delete student: %w", err)
		}
		return removed, nil
	}
	return false, fmt.Errorf("delete student %s: %w", id, redis.TxFailedErr)
}

func (r *RedisStudentRepository) releaseName(ctx context.Context, nameKey string) {
	_ = r.client.HDel(ctx, r.namesKey(), nameKey).Err()
}
