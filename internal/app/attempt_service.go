package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"exam-session-service/internal/domain"
	"exam-session-service/internal/token"
)

// AttemptService opens and closes exam attempts and captures answers while
// an attempt is running.
type AttemptService struct {
	records  RecordRepository
	exams    ExamRepository
	registry AttemptRegistry
	attempts *token.Issuer
	clock    func() time.Time
}

func NewAttemptService(records RecordRepository, exams ExamRepository, registry AttemptRegistry, attempts *token.Issuer) *AttemptService {
	return &AttemptService{
		records:  records,
		exams:    exams,
		registry: registry,
		attempts: attempts,
		clock:    time.Now,
	}
}

// StartedAttempt is what a student gets back when an attempt opens.
type StartedAttempt struct {
	Record     domain.AnswerRecord
	Exam       domain.ExamDefinition
	Credential string
}

// Start creates a fresh answer record for the (student, exam) pair and issues
// an exam-attempt credential scoped to it. No check is made for an existing
// open attempt: calling twice creates two records. That mirrors the platform's
// current contract; see DESIGN.md before adding a uniqueness constraint.
func (s *AttemptService) Start(ctx context.Context, studentID, displayName, examID string) (StartedAttempt, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return StartedAttempt{}, err
	}

	now := s.clock()
	rec := domain.AnswerRecord{
		ID:        uuid.NewString(),
		StudentID: studentID,
		ExamID:    examID,
		Answers:   map[string]string{},
		Marks:     map[string]domain.MarkEntry{},
		Status:    domain.StatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.records.Create(ctx, &rec); err != nil {
		return StartedAttempt{}, err
	}

	cred, err := s.attempts.Issue(token.Claims{
		SubjectID:   studentID,
		Role:        RoleStudent,
		DisplayName: displayName,
		AttemptID:   rec.ID,
	})
	if err != nil {
		return StartedAttempt{}, err
	}
	if err := s.registry.Open(ctx, rec.ID); err != nil {
		return StartedAttempt{}, err
	}

	return StartedAttempt{Record: rec, Exam: exam, Credential: cred}, nil
}

// SaveAnswers replaces the record's answer map with the one supplied.
// Authorization is the attempt credential alone; the login credential may
// well have expired mid-exam and that must not interrupt the attempt.
// The caller contract is full-map replacement: clients always send the
// complete accumulated map, never a delta, and the last writer wins.
func (s *AttemptService) SaveAnswers(ctx context.Context, claims token.Claims, answers map[string]string) error {
	active, err := s.registry.Active(ctx, claims.AttemptID)
	if err != nil {
		return err
	}
	if !active {
		return domain.ErrAttemptClosed
	}
	if _, err := s.records.Get(ctx, claims.AttemptID); err != nil {
		return err
	}
	return s.records.ReplaceAnswers(ctx, claims.AttemptID, answers)
}

// Finish flushes a final answer map (when supplied) and closes the attempt.
// Flush strictly precedes close so a forced finish never drops the last
// unsaved answer. The signed credential itself stays verifiable until its
// natural expiry; closing the registry marker is the logical revocation.
func (s *AttemptService) Finish(ctx context.Context, claims token.Claims, final map[string]string) error {
	if final != nil {
		if err := s.SaveAnswers(ctx, claims, final); err != nil && err != domain.ErrAttemptClosed {
			return err
		}
	}
	return s.registry.Close(ctx, claims.AttemptID)
}
