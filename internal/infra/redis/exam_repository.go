package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"exam-session-service/internal/domain"
	"exam-session-service/internal/infra/memory"
)

// ExamRepository caches exam definitions in Redis (JSON value per exam) and
// falls back to a loader on cache miss. Exams are read whole at attempt
// start, so a single value per exam beats per-question hashes here.
// Key scheme: exam:{examID}:def
type ExamRepository struct {
	client *redis.Client
	loader memory.ExamLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewExamRepository(client *redis.Client, loader memory.ExamLoader, ttl time.Duration) *ExamRepository {
	return &ExamRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ExamRepository) GetExam(ctx context.Context, examID string) (domain.ExamDefinition, error) {
	key := r.examKey(examID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		var exam domain.ExamDefinition
		if err := json.Unmarshal(raw, &exam); err == nil {
			return exam, nil
		}
	}

	result, err, _ := r.sf.Do(examID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			var exam domain.ExamDefinition
			if err := json.Unmarshal(raw, &exam); err == nil {
				return exam, nil
			}
		}

		exam, err := r.loader.LoadExam(ctx, examID)
		if err != nil {
			return domain.ExamDefinition{}, err
		}

		if raw, err := json.Marshal(exam); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return exam, nil
	})
	if err != nil {
		return domain.ExamDefinition{}, err
	}
	return result.(domain.ExamDefinition), nil
}

// ListBySubject bypasses the cache; subject listings only happen on grade
// computation and must see freshly added exams.
func (r *ExamRepository) ListBySubject(ctx context.Context, subjectID string) ([]domain.ExamDefinition, error) {
	return r.loader.LoadSubjectExams(ctx, subjectID)
}

func (r *ExamRepository) examKey(examID string) string {
	return "exam:" + examID + ":def"
}

func (r *ExamRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
