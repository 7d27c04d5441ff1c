package memory

import (
	"context"
	"sync"
	"time"

	"exam-session-service/internal/domain"
)

// RecordRepository is an in-memory implementation of app.RecordRepository,
// used in tests and when no Postgres URL is configured.
type RecordRepository struct {
	mu      sync.RWMutex
	records map[string]domain.AnswerRecord
	order   []string // insertion order, newest-last per (student, exam) lookup
	clock   func() time.Time
}

func NewRecordRepository() *RecordRepository {
	return &RecordRepository{
		records: make(map[string]domain.AnswerRecord),
		clock:   time.Now,
	}
}

func (r *RecordRepository) Create(_ context.Context, rec *domain.AnswerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec.Clone()
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *RecordRepository) Get(_ context.Context, id string) (domain.AnswerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return domain.AnswerRecord{}, domain.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (r *RecordRepository) GetByStudentExam(_ context.Context, studentID, examID string) (domain.AnswerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		rec := r.records[r.order[i]]
		if rec.StudentID == studentID && rec.ExamID == examID {
			return rec.Clone(), nil
		}
	}
	return domain.AnswerRecord{}, domain.ErrRecordNotFound
}

func (r *RecordRepository) ReplaceAnswers(_ context.Context, id string, answers map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	rec.Answers = make(map[string]string, len(answers))
	for k, v := range answers {
		rec.Answers[k] = v
	}
	rec.UpdatedAt = r.clock()
	r.records[id] = rec
	return nil
}

func (r *RecordRepository) SetMarks(_ context.Context, id string, marks map[string]domain.MarkEntry, status domain.RecordStatus, checkedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	rec.Marks = make(map[string]domain.MarkEntry, len(marks))
	for k, v := range marks {
		rec.Marks[k] = v
	}
	rec.Status = status
	rec.CheckedAt = checkedAt
	rec.UpdatedAt = r.clock()
	r.records[id] = rec
	return nil
}

func (r *RecordRepository) ListChecked(_ context.Context, studentID string, examIDs []string) ([]domain.AnswerRecord, error) {
	wanted := make(map[string]struct{}, len(examIDs))
	for _, id := range examIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AnswerRecord
	for _, id := range r.order {
		rec := r.records[id]
		if rec.StudentID != studentID || rec.Status != domain.StatusChecked {
			continue
		}
		if _, ok := wanted[rec.ExamID]; !ok {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Delete removes a record outright. The core never calls this; it exists so
// tests can simulate administrative cleanup racing an open attempt.
func (r *RecordRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
}
