package domain

import "time"

// RecordStatus tracks where an answer record sits in the grading pipeline.
// It is not a strict state machine: an explicit update may set any value.
type RecordStatus string

const (
	StatusSubmitted RecordStatus = "Submitted"
	StatusDraft     RecordStatus = "Draft"
	StatusChecked   RecordStatus = "Checked"
)

// MarkEntry holds one question's grading state. PDFURL points at the
// per-question review artifact; a non-empty value means the artifact
// exists and must not be regenerated.
type MarkEntry struct {
	Marks   float64 `json:"marks"`
	Checked bool    `json:"checked"`
	PDFURL  string  `json:"pdfUrl"`
}

// AnswerRecord tracks one student's answers and marks for one exam.
// Answers is replaced wholesale by the attempt holder; Marks is owned by
// instructors and grows key by key.
type AnswerRecord struct {
	ID        string               `json:"id"`
	StudentID string               `json:"studentId"`
	ExamID    string               `json:"examId"`
	Answers   map[string]string    `json:"answers"`
	Marks     map[string]MarkEntry `json:"marksObtained"`
	Status    RecordStatus         `json:"status"`
	CheckedAt *time.Time           `json:"checkedAt,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Clone returns a deep copy so callers can hand records across goroutines
// without sharing the maps.
func (r AnswerRecord) Clone() AnswerRecord {
	out := r
	out.Answers = make(map[string]string, len(r.Answers))
	for k, v := range r.Answers {
		out.Answers[k] = v
	}
	out.Marks = make(map[string]MarkEntry, len(r.Marks))
	for k, v := range r.Marks {
		out.Marks[k] = v
	}
	if r.CheckedAt != nil {
		t := *r.CheckedAt
		out.CheckedAt = &t
	}
	return out
}

// ObtainedMarks sums the per-question marks entered so far.
func (r AnswerRecord) ObtainedMarks() float64 {
	var total float64
	for _, entry := range r.Marks {
		total += entry.Marks
	}
	return total
}

// ExamDefinition is the subject module's view of an exam. The core reads it
// and never writes it.
type ExamDefinition struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	SubjectID       string            `json:"subjectId"`
	TotalQuestions  int               `json:"totalQuestions"`
	DurationMinutes int               `json:"totalAttemptMinutes"`
	TotalMarks      float64           `json:"totalMarks"`
	QuestionDocs    map[string]string `json:"perQuestionDocumentRefs,omitempty"`
	Mock            bool              `json:"mockFlag"`
}

// GradeReport is the aggregate outcome for a student across a subject's exams.
type GradeReport struct {
	TotalMarks    float64 `json:"totalMarks"`
	ObtainedMarks float64 `json:"obtainedMarks"`
	Percentage    float64 `json:"percentage"`
	Grade         string  `json:"grade"`
}

// LetterGrade maps a percentage to its letter band.
func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 85:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 55:
		return "C"
	case percentage >= 40:
		return "D"
	default:
		return "F"
	}
}
