package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"exam-session-service/internal/domain"
)

// ExamLoader fetches exam definitions from a backing store (e.g., the subject
// module's database).
type ExamLoader interface {
	LoadExam(ctx context.Context, examID string) (domain.ExamDefinition, error)
	LoadSubjectExams(ctx context.Context, subjectID string) ([]domain.ExamDefinition, error)
}

// ExamRepository caches exam definitions with TTL to avoid repeated DB hits.
type ExamRepository struct {
	loader ExamLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedExam
}

type cachedExam struct {
	exam      domain.ExamDefinition
	expiresAt time.Time
}

func NewExamRepository(loader ExamLoader, ttl time.Duration) *ExamRepository {
	return &ExamRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedExam),
	}
}

func (r *ExamRepository) GetExam(ctx context.Context, examID string) (domain.ExamDefinition, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[examID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.exam, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(examID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[examID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.exam, nil
		}
		r.mu.RUnlock()

		exam, err := r.loader.LoadExam(ctx, examID)
		if err != nil {
			return domain.ExamDefinition{}, err
		}

		r.mu.Lock()
		r.cache[examID] = cachedExam{exam: exam, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return exam, nil
	})
	if err != nil {
		return domain.ExamDefinition{}, err
	}
	return result.(domain.ExamDefinition), nil
}

// ListBySubject always goes to the loader: subject listings are rare
// (grade computation) compared to per-attempt exam reads.
func (r *ExamRepository) ListBySubject(ctx context.Context, subjectID string) ([]domain.ExamDefinition, error) {
	return r.loader.LoadSubjectExams(ctx, subjectID)
}

func (r *ExamRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticExamLoader is a simple loader backed by an in-memory map (useful for
// tests/demos).
type StaticExamLoader struct {
	exams map[string]domain.ExamDefinition
}

func NewStaticExamLoader(exams map[string]domain.ExamDefinition) *StaticExamLoader {
	return &StaticExamLoader{exams: exams}
}

func (l *StaticExamLoader) LoadExam(_ context.Context, examID string) (domain.ExamDefinition, error) {
	if exam, ok := l.exams[examID]; ok {
		return exam, nil
	}
	return domain.ExamDefinition{}, domain.ErrExamNotFound
}

func (l *StaticExamLoader) LoadSubjectExams(_ context.Context, subjectID string) ([]domain.ExamDefinition, error) {
	var out []domain.ExamDefinition
	for _, exam := range l.exams {
		if exam.SubjectID == subjectID {
			out = append(out, exam)
		}
	}
	return out, nil
}
