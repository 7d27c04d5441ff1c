package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"exam-session-service/internal/domain"
)

type answerRecordModel struct {
	bun.BaseModel `bun:"table:answer_records,alias:ar"`

	ID        string                      `bun:"id,pk"`
	StudentID string                      `bun:"student_id,notnull"`
	ExamID    string                      `bun:"exam_id,notnull"`
	Answers   map[string]string           `bun:"answers,type:jsonb"`
	Marks     map[string]domain.MarkEntry `bun:"marks_obtained,type:jsonb"`
	Status    string                      `bun:"status,notnull"`
	CheckedAt *time.Time                  `bun:"checked_at"`
	CreatedAt time.Time                   `bun:"created_at,notnull"`
	UpdatedAt time.Time                   `bun:"updated_at,notnull"`
}

func (m *answerRecordModel) toDomain() domain.AnswerRecord {
	rec := domain.AnswerRecord{
		ID:        m.ID,
		StudentID: m.StudentID,
		ExamID:    m.ExamID,
		Answers:   m.Answers,
		Marks:     m.Marks,
		Status:    domain.RecordStatus(m.Status),
		CheckedAt: m.CheckedAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if rec.Answers == nil {
		rec.Answers = map[string]string{}
	}
	if rec.Marks == nil {
		rec.Marks = map[string]domain.MarkEntry{}
	}
	return rec
}

// RecordRepository persists answer records in Postgres through bun. The
// answer and mark maps live in JSONB columns and are always written whole,
// matching the service-level full-replace contract.
type RecordRepository struct {
	db    *bun.DB
	clock func() time.Time
}

func NewRecordRepository(db *bun.DB) *RecordRepository {
	return &RecordRepository{db: db, clock: time.Now}
}

func (r *RecordRepository) Create(ctx context.Context, rec *domain.AnswerRecord) error {
	model := &answerRecordModel{
		ID:        rec.ID,
		StudentID: rec.StudentID,
		ExamID:    rec.ExamID,
		Answers:   rec.Answers,
		Marks:     rec.Marks,
		Status:    string(rec.Status),
		CheckedAt: rec.CheckedAt,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return fmt.Errorf("insert answer record: %w", err)
	}
	return nil
}

func (r *RecordRepository) Get(ctx context.Context, id string) (domain.AnswerRecord, error) {
	model := new(answerRecordModel)
	err := r.db.NewSelect().Model(model).Where("ar.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AnswerRecord{}, domain.ErrRecordNotFound
		}
		return domain.AnswerRecord{}, fmt.Errorf("select answer record: %w", err)
	}
	return model.toDomain(), nil
}

func (r *RecordRepository) GetByStudentExam(ctx context.Context, studentID, examID string) (domain.AnswerRecord, error) {
	model := new(answerRecordModel)
	err := r.db.NewSelect().Model(model).
		Where("ar.student_id = ?", studentID).
		Where("ar.exam_id = ?", examID).
		OrderExpr("ar.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AnswerRecord{}, domain.ErrRecordNotFound
		}
		return domain.AnswerRecord{}, fmt.Errorf("select answer record: %w", err)
	}
	return model.toDomain(), nil
}

func (r *RecordRepository) ReplaceAnswers(ctx context.Context, id string, answers map[string]string) error {
	if answers == nil {
		answers = map[string]string{}
	}
	res, err := r.db.NewUpdate().Model((*answerRecordModel)(nil)).
		Set("answers = ?::jsonb", answersJSON(answers)).
		Set("updated_at = ?", r.clock()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("replace answers: %w", err)
	}
	return requireRow(res)
}

func (r *RecordRepository) SetMarks(ctx context.Context, id string, marks map[string]domain.MarkEntry, status domain.RecordStatus, checkedAt *time.Time) error {
	if marks == nil {
		marks = map[string]domain.MarkEntry{}
	}
	res, err := r.db.NewUpdate().Model((*answerRecordModel)(nil)).
		Set("marks_obtained = ?::jsonb", marksJSON(marks)).
		Set("status = ?", string(status)).
		Set("checked_at = ?", checkedAt).
		Set("updated_at = ?", r.clock()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set marks: %w", err)
	}
	return requireRow(res)
}

func (r *RecordRepository) ListChecked(ctx context.Context, studentID string, examIDs []string) ([]domain.AnswerRecord, error) {
	if len(examIDs) == 0 {
		return nil, nil
	}
	var models []answerRecordModel
	err := r.db.NewSelect().Model(&models).
		Where("ar.student_id = ?", studentID).
		Where("ar.status = ?", string(domain.StatusChecked)).
		Where("ar.exam_id IN (?)", bun.In(examIDs)).
		OrderExpr("ar.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list checked records: %w", err)
	}
	out := make([]domain.AnswerRecord, 0, len(models))
	for i := range models {
		out = append(out, models[i].toDomain())
	}
	return out, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// answersJSON and marksJSON marshal map fields for partial updates; Postgres
// casts the string parameter to jsonb on assignment.
func answersJSON(answers map[string]string) string {
	raw, _ := json.Marshal(answers)
	return string(raw)
}

func marksJSON(marks map[string]domain.MarkEntry) string {
	raw, _ := json.Marshal(marks)
	return string(raw)
}
