package app

import (
	"context"
	"time"

	"exam-session-service/internal/domain"
)

// RecordRepository abstracts answer-record persistence (Postgres, in-memory).
// Answer and mark maps are written wholesale; merge semantics live in the
// services, not the store.
type RecordRepository interface {
	Create(ctx context.Context, rec *domain.AnswerRecord) error
	Get(ctx context.Context, id string) (domain.AnswerRecord, error)
	// GetByStudentExam returns the newest record for the pair. More than one
	// may exist; uniqueness is deliberately not enforced at the data layer.
	GetByStudentExam(ctx context.Context, studentID, examID string) (domain.AnswerRecord, error)
	ReplaceAnswers(ctx context.Context, id string, answers map[string]string) error
	SetMarks(ctx context.Context, id string, marks map[string]domain.MarkEntry, status domain.RecordStatus, checkedAt *time.Time) error
	ListChecked(ctx context.Context, studentID string, examIDs []string) ([]domain.AnswerRecord, error)
}

// ExamRepository loads exam definitions (from cache/backing store).
type ExamRepository interface {
	GetExam(ctx context.Context, examID string) (domain.ExamDefinition, error)
	ListBySubject(ctx context.Context, subjectID string) ([]domain.ExamDefinition, error)
}

// AttemptRegistry marks which attempts are still open. An expired or removed
// marker means the attempt is finished regardless of credential validity.
type AttemptRegistry interface {
	Open(ctx context.Context, recordID string) error
	Close(ctx context.Context, recordID string) error
	Active(ctx context.Context, recordID string) (bool, error)
}

// DocumentService is the external collaborator that renders and stores
// per-question artifacts. Paths are opaque to the core.
type DocumentService interface {
	GenerateArtifact(ctx context.Context, recordID, questionKey, content string) (string, error)
	Release(ctx context.Context, ref string) error
}
