package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"exam-session-service/internal/domain"
)

// ExamLoader reads exam-definition JSONB from the subject module's tables.
// The core never writes these rows.
type ExamLoader struct {
	pool *pgxpool.Pool
}

func NewExamLoader(pool *pgxpool.Pool) *ExamLoader {
	return &ExamLoader{pool: pool}
}

func (l *ExamLoader) LoadExam(ctx context.Context, examID string) (domain.ExamDefinition, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM exams WHERE id=$1`, examID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExamDefinition{}, domain.ErrExamNotFound
		}
		return domain.ExamDefinition{}, fmt.Errorf("load exam: %w", err)
	}
	var exam domain.ExamDefinition
	if err := json.Unmarshal(raw, &exam); err != nil {
		return domain.ExamDefinition{}, fmt.Errorf("unmarshal exam: %w", err)
	}
	return exam, nil
}

func (l *ExamLoader) LoadSubjectExams(ctx context.Context, subjectID string) ([]domain.ExamDefinition, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM exams WHERE subject_id=$1`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load subject exams: %w", err)
	}
	defer rows.Close()

	var out []domain.ExamDefinition
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		var exam domain.ExamDefinition
		if err := json.Unmarshal(raw, &exam); err != nil {
			return nil, fmt.Errorf("unmarshal exam: %w", err)
		}
		out = append(out, exam)
	}
	return out, rows.Err()
}
