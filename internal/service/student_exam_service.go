package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exam-hall-api/internal/dto"
	"github.com/noah-isme/exam-hall-api/internal/repository"
)

// ExamCache stores per-student exam listings in Redis. A nil cache or client disables caching.
type ExamCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewExamCache constructs the student exam cache.
func NewExamCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ExamCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &ExamCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "exam_cache").Logger(),
	}
}

// Enabled reports whether a Redis client is configured.
func (c *ExamCache) Enabled() bool {
	return c != nil && c.client != nil
}

func studentExamsKey(studentID uint) string {
	return fmt.Sprintf("exams:student:%d", studentID)
}

func (c *ExamCache) get(ctx context.Context, studentID uint) ([]dto.ExamResponse, bool) {
	if !c.Enabled() {
		return nil, false
	}

	cached, err := c.client.Get(ctx, studentExamsKey(studentID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read student exam cache")
		}
		return nil, false
	}

	var exams []dto.ExamResponse
	if err := json.Unmarshal([]byte(cached), &exams); err != nil {
		return nil, false
	}
	return exams, true
}

func (c *ExamCache) set(ctx context.Context, studentID uint, exams []dto.ExamResponse) {
	if !c.Enabled() {
		return
	}

	payload, err := json.Marshal(exams)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, studentExamsKey(studentID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store student exam cache")
	}
}

// Invalidate drops the cached listings of the given students.
func (c *ExamCache) Invalidate(ctx context.Context, studentIDs ...uint) {
	if !c.Enabled() || len(studentIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		keys = append(keys, studentExamsKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Int("keys", len(keys)).Msg("failed to invalidate student exam cache")
	}
}

// StudentExamService lists the exams a student reaches through group membership.
type StudentExamService interface {
	ListForStudent(ctx context.Context, actor Actor, studentID uint) ([]dto.ExamResponse, error)
}

type studentExamService struct {
	exams  repository.ExamRepository
	cache  *ExamCache
	logger zerolog.Logger
}

// NewStudentExamService constructs the student exam view.
func NewStudentExamService(exams repository.ExamRepository, cache *ExamCache, logger zerolog.Logger) StudentExamService {
	return &studentExamService{
		exams:  exams,
		cache:  cache,
		logger: logger.With().Str("component", "student_exam_service").Logger(),
	}
}

func (s *studentExamService) ListForStudent(ctx context.Context, actor Actor, studentID uint) ([]dto.ExamResponse, error) {
	if !actor.CanActFor(studentID) {
		return nil, ErrForbidden
	}

	if cached, ok := s.cache.get(ctx, studentID); ok {
		s.logger.Debug().Uint("student_id", studentID).Msg("student exam cache hit")
		return cached, nil
	}

	exams, err := s.exams.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	response := dto.NewExamResponses(exams)
	s.cache.set(ctx, studentID, response)

	return response, nil
}
