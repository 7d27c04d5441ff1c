package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"exam-session-service/internal/domain"
)

// GradingService reconciles instructor-entered marks and review artifacts
// into answer records and derives aggregate grades.
type GradingService struct {
	records RecordRepository
	exams   ExamRepository
	docs    DocumentService
	clock   func() time.Time
}

func NewGradingService(records RecordRepository, exams ExamRepository, docs DocumentService) *GradingService {
	return &GradingService{records: records, exams: exams, docs: docs, clock: time.Now}
}

// StudentAnswers returns the newest record for the pair. It never mutates
// state; questions whose artifacts are not generated yet show an empty
// pdfUrl, and callers run EnsureArtifacts first when they need them.
func (s *GradingService) StudentAnswers(ctx context.Context, studentID, examID string) (domain.AnswerRecord, error) {
	return s.records.GetByStudentExam(ctx, studentID, examID)
}

// AttachArtifact records a generated per-question artifact. Idempotent by
// presence: once a question carries a non-empty pdfUrl the call is a no-op,
// so re-running generation never clobbers an existing document.
func (s *GradingService) AttachArtifact(ctx context.Context, recordID, questionKey, artifactRef string) error {
	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return err
	}
	if entry, ok := rec.Marks[questionKey]; ok && entry.PDFURL != "" {
		return nil
	}
	rec.Marks[questionKey] = domain.MarkEntry{Marks: 0, Checked: false, PDFURL: artifactRef}
	return s.records.SetMarks(ctx, recordID, rec.Marks, rec.Status, rec.CheckedAt)
}

// EnsureArtifacts generates review artifacts for every answered question that
// does not have one yet. Safe to call repeatedly; existing artifacts are
// skipped by the same presence check AttachArtifact uses.
func (s *GradingService) EnsureArtifacts(ctx context.Context, recordID string) (domain.AnswerRecord, error) {
	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}

	keys := make([]string, 0, len(rec.Answers))
	for k := range rec.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changed := false
	for _, k := range keys {
		if entry, ok := rec.Marks[k]; ok && entry.PDFURL != "" {
			continue
		}
		ref, err := s.docs.GenerateArtifact(ctx, rec.ID, k, rec.Answers[k])
		if err != nil {
			return domain.AnswerRecord{}, fmt.Errorf("%w: generate %s/%s: %v", domain.ErrUpstream, rec.ID, k, err)
		}
		rec.Marks[k] = domain.MarkEntry{Marks: 0, Checked: false, PDFURL: ref}
		changed = true
	}
	if changed {
		if err := s.records.SetMarks(ctx, rec.ID, rec.Marks, rec.Status, rec.CheckedAt); err != nil {
			return domain.AnswerRecord{}, err
		}
	}
	return rec, nil
}

// RecordMarks merges one question's marks into the record. Existing keys are
// preserved; only the named question changes. A replacement artifact, when
// supplied, displaces the previous one, which is released on a best-effort
// basis (a failed release is logged, never fatal).
func (s *GradingService) RecordMarks(ctx context.Context, recordID, questionKey string, marks float64, checkedRef string) (domain.AnswerRecord, error) {
	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}

	entry := rec.Marks[questionKey]
	entry.Marks = marks
	entry.Checked = true
	if checkedRef != "" {
		if prev := rec.Marks[questionKey].PDFURL; prev != "" && prev != checkedRef {
			go func(ref string) {
				if err := s.docs.Release(context.Background(), ref); err != nil {
					log.Printf("grading: release artifact %s: %v", ref, err)
				}
			}(prev)
		}
		entry.PDFURL = checkedRef
	}
	rec.Marks[questionKey] = entry

	if err := s.records.SetMarks(ctx, recordID, rec.Marks, rec.Status, rec.CheckedAt); err != nil {
		return domain.AnswerRecord{}, err
	}
	return rec, nil
}

// SetStatusAndMarks is the bulk review path: a full-map replace of the marks
// plus a status update, stamping checkedAt. Unlike RecordMarks this does not
// merge: callers must send the complete map or lose untouched entries.
func (s *GradingService) SetStatusAndMarks(ctx context.Context, recordID string, marks map[string]domain.MarkEntry, status domain.RecordStatus) (domain.AnswerRecord, error) {
	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	if marks == nil {
		marks = map[string]domain.MarkEntry{}
	}
	now := s.clock()
	if err := s.records.SetMarks(ctx, recordID, marks, status, &now); err != nil {
		return domain.AnswerRecord{}, err
	}
	rec.Marks = marks
	rec.Status = status
	rec.CheckedAt = &now
	return rec, nil
}

// ComputeGrade aggregates a student's checked records across every exam in a
// subject. "No exams" and "no checked records" are reported as errors rather
// than zeroed: 0% is an earned result, absence of data is not.
func (s *GradingService) ComputeGrade(ctx context.Context, studentID, subjectID string) (domain.GradeReport, error) {
	exams, err := s.exams.ListBySubject(ctx, subjectID)
	if err != nil {
		return domain.GradeReport{}, err
	}
	if len(exams) == 0 {
		return domain.GradeReport{}, domain.ErrNoExamsForSubject
	}

	byID := make(map[string]domain.ExamDefinition, len(exams))
	examIDs := make([]string, 0, len(exams))
	for _, exam := range exams {
		byID[exam.ID] = exam
		examIDs = append(examIDs, exam.ID)
	}

	records, err := s.records.ListChecked(ctx, studentID, examIDs)
	if err != nil {
		return domain.GradeReport{}, err
	}
	if len(records) == 0 {
		return domain.GradeReport{}, domain.ErrNoCheckedRecords
	}

	var total, obtained float64
	for _, rec := range records {
		exam, ok := byID[rec.ExamID]
		if !ok {
			continue
		}
		total += exam.TotalMarks
		obtained += rec.ObtainedMarks()
	}
	if total == 0 {
		return domain.GradeReport{}, domain.ErrNoCheckedRecords
	}

	pct := math.Round(obtained/total*100*100) / 100
	return domain.GradeReport{
		TotalMarks:    total,
		ObtainedMarks: obtained,
		Percentage:    pct,
		Grade:         domain.LetterGrade(pct),
	}, nil
}
