package memory

import (
	"context"
	"testing"
	"time"

	"exam-session-service/internal/domain"
)

func seed(t *testing.T, repo *RecordRepository, id, studentID, examID string, status domain.RecordStatus) {
	t.Helper()
	now := time.Now()
	rec := domain.AnswerRecord{
		ID:        id,
		StudentID: studentID,
		ExamID:    examID,
		Answers:   map[string]string{},
		Marks:     map[string]domain.MarkEntry{},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(context.Background(), &rec); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestGetByStudentExamReturnsNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository()
	seed(t, repo, "rec-1", "stu-1", "exam-1", domain.StatusSubmitted)
	seed(t, repo, "rec-2", "stu-1", "exam-1", domain.StatusSubmitted)

	rec, err := repo.GetByStudentExam(ctx, "stu-1", "exam-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ID != "rec-2" {
		t.Fatalf("expected newest record rec-2, got %s", rec.ID)
	}
}

func TestReplaceAnswersMissingRecord(t *testing.T) {
	repo := NewRecordRepository()
	err := repo.ReplaceAnswers(context.Background(), "nope", map[string]string{"q1": "a"})
	if err != domain.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestListCheckedFiltersStatusAndExam(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository()
	seed(t, repo, "rec-1", "stu-1", "exam-1", domain.StatusChecked)
	seed(t, repo, "rec-2", "stu-1", "exam-2", domain.StatusSubmitted)
	seed(t, repo, "rec-3", "stu-1", "exam-3", domain.StatusChecked)
	seed(t, repo, "rec-4", "stu-2", "exam-1", domain.StatusChecked)

	out, err := repo.ListChecked(ctx, "stu-1", []string{"exam-1", "exam-2"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].ID != "rec-1" {
		t.Fatalf("expected only rec-1, got %+v", out)
	}
}

func TestStoredRecordIsolatedFromCaller(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository()
	now := time.Now()
	rec := domain.AnswerRecord{
		ID: "rec-1", StudentID: "stu-1", ExamID: "exam-1",
		Answers: map[string]string{"q1": "a"}, Marks: map[string]domain.MarkEntry{},
		Status: domain.StatusSubmitted, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.Create(ctx, &rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec.Answers["q1"] = "mutated"

	got, _ := repo.Get(ctx, "rec-1")
	if got.Answers["q1"] != "a" {
		t.Fatalf("repository shares maps with caller")
	}
}
