package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"exam-session-service/internal/app"
	"exam-session-service/internal/domain"
	"exam-session-service/internal/infra/memory"
	"exam-session-service/internal/token"
)

type fixture struct {
	server  *httptest.Server
	records *memory.RecordRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	students := token.NewIssuer(token.NamespaceStudent, []byte("s-secret"), time.Hour)
	instructors := token.NewIssuer(token.NamespaceInstructor, []byte("i-secret"), time.Hour)
	attemptTok := token.NewIssuer(token.NamespaceAttempt, []byte("a-secret"), time.Hour)

	records := memory.NewRecordRepository()
	exams := memory.NewExamRepository(memory.NewStaticExamLoader(map[string]domain.ExamDefinition{
		"exam-1": {ID: "exam-1", Name: "Algebra Midterm", SubjectID: "subj-math", TotalQuestions: 3, DurationMinutes: 60, TotalMarks: 60},
	}), time.Minute)
	registry := memory.NewAttemptRegistry()
	docs := memory.NewDocumentStore()

	directory := memory.NewDirectory()
	if err := directory.AddUser("stu-1", "Alice", "alice@example.com", "pw-alice", app.RoleStudent); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	if err := directory.AddUser("ins-1", "Bob", "bob@example.com", "pw-bob", app.RoleInstructor); err != nil {
		t.Fatalf("seed instructor: %v", err)
	}

	attempts := app.NewAttemptService(records, exams, registry, attemptTok)
	grading := app.NewGradingService(records, exams, docs)
	api := NewAPI(students, instructors, attemptTok, directory, attempts, grading)

	mux := http.NewServeMux()
	api.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return fixture{server: server, records: records}
}

func doJSON(t *testing.T, method, url, bearer string, body, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	if out != nil {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func login(t *testing.T, f fixture, path, email, password string) string {
	t.Helper()
	var out loginResponse
	resp := doJSON(t, http.MethodPost, f.server.URL+path, "", loginRequest{Email: email, Password: password}, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", path, resp.StatusCode)
	}
	if out.Token == "" {
		t.Fatalf("login %s: empty token", path)
	}
	return out.Token
}

func TestAttemptLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	studentTok := login(t, f, "/api/auth/student-login", "alice@example.com", "pw-alice")

	var started startAttemptResponse
	resp := doJSON(t, http.MethodPost, f.server.URL+"/api/attempts", studentTok, startAttemptRequest{ExamID: "exam-1"}, &started)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start attempt: status %d", resp.StatusCode)
	}
	if started.AnswerRecordID == "" || started.AttemptCredential == "" {
		t.Fatalf("incomplete start response: %+v", started)
	}
	if started.AttemptMinutes != 60 {
		t.Fatalf("expected 60 attempt minutes, got %d", started.AttemptMinutes)
	}

	resp = doJSON(t, http.MethodPost, f.server.URL+"/api/attempts/answers", started.AttemptCredential,
		saveAnswersRequest{Answers: map[string]string{"q1": "x"}}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save answers: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, f.server.URL+"/api/attempts/finish", started.AttemptCredential, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finish: status %d", resp.StatusCode)
	}

	// Instructor reads back what the student wrote; status is untouched.
	instructorTok := login(t, f, "/api/auth/instructor-login", "bob@example.com", "pw-bob")
	var rec domain.AnswerRecord
	resp = doJSON(t, http.MethodGet, f.server.URL+"/api/grading/records?studentId=stu-1&examId=exam-1", instructorTok, nil, &rec)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("student answers: status %d", resp.StatusCode)
	}
	if rec.Answers["q1"] != "x" {
		t.Fatalf("expected q1=x, got %+v", rec.Answers)
	}
	if rec.Status != domain.StatusSubmitted {
		t.Fatalf("expected Submitted before review, got %s", rec.Status)
	}

	// Save after finish is rejected.
	resp = doJSON(t, http.MethodPost, f.server.URL+"/api/attempts/answers", started.AttemptCredential,
		saveAnswersRequest{Answers: map[string]string{"q1": "late"}}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for save after finish, got %d", resp.StatusCode)
	}
}

func TestCredentialNamespaceIsolationOverHTTP(t *testing.T) {
	f := newFixture(t)
	studentTok := login(t, f, "/api/auth/student-login", "alice@example.com", "pw-alice")

	// A student login credential must not pass the attempt verifier...
	resp := doJSON(t, http.MethodPost, f.server.URL+"/api/attempts/answers", studentTok,
		saveAnswersRequest{Answers: map[string]string{"q1": "x"}}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for student token on attempt endpoint, got %d", resp.StatusCode)
	}

	// ...nor the instructor verifier.
	resp = doJSON(t, http.MethodGet, f.server.URL+"/api/grading/records?studentId=stu-1&examId=exam-1", studentTok, nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for student token on grading endpoint, got %d", resp.StatusCode)
	}

	// And an attempt credential does not unlock directory-facing operations.
	var started startAttemptResponse
	doJSON(t, http.MethodPost, f.server.URL+"/api/attempts", studentTok, startAttemptRequest{ExamID: "exam-1"}, &started)
	resp = doJSON(t, http.MethodPost, f.server.URL+"/api/attempts", started.AttemptCredential, startAttemptRequest{ExamID: "exam-1"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for attempt token on start endpoint, got %d", resp.StatusCode)
	}
}

func TestMissingCredentialMessages(t *testing.T) {
	f := newFixture(t)

	resp := doJSON(t, http.MethodPost, f.server.URL+"/api/attempts", "", startAttemptRequest{ExamID: "exam-1"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestGradingFlowOverHTTP(t *testing.T) {
	f := newFixture(t)
	studentTok := login(t, f, "/api/auth/student-login", "alice@example.com", "pw-alice")

	var started startAttemptResponse
	doJSON(t, http.MethodPost, f.server.URL+"/api/attempts", studentTok, startAttemptRequest{ExamID: "exam-1"}, &started)
	doJSON(t, http.MethodPost, f.server.URL+"/api/attempts/answers", started.AttemptCredential,
		saveAnswersRequest{Answers: map[string]string{"q1": "essay one", "q2": "essay two"}}, nil)
	doJSON(t, http.MethodPost, f.server.URL+"/api/attempts/finish", started.AttemptCredential, nil, nil)

	instructorTok := login(t, f, "/api/auth/instructor-login", "bob@example.com", "pw-bob")

	var rec domain.AnswerRecord
	resp := doJSON(t, http.MethodPost, f.server.URL+"/api/grading/records/ensure-artifacts", instructorTok,
		ensureArtifactsRequest{StudentID: "stu-1", ExamID: "exam-1"}, &rec)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ensure artifacts: status %d", resp.StatusCode)
	}
	if rec.Marks["q1"].PDFURL == "" || rec.Marks["q2"].PDFURL == "" {
		t.Fatalf("expected artifacts backfilled, got %+v", rec.Marks)
	}

	resp = doJSON(t, http.MethodPut, f.server.URL+"/api/grading/records/marks", instructorTok,
		recordMarksRequest{StudentID: "stu-1", ExamID: "exam-1", QuestionKey: "q1", Marks: 25}, &rec)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("record marks: status %d", resp.StatusCode)
	}
	if rec.Marks["q1"].Marks != 25 || !rec.Marks["q1"].Checked {
		t.Fatalf("unexpected q1 entry: %+v", rec.Marks["q1"])
	}

	resp = doJSON(t, http.MethodPut, f.server.URL+"/api/grading/records/review", instructorTok,
		reviewRequest{
			StudentID: "stu-1",
			ExamID:    "exam-1",
			Marks: map[string]domain.MarkEntry{
				"q1": {Marks: 25, Checked: true, PDFURL: rec.Marks["q1"].PDFURL},
				"q2": {Marks: 20, Checked: true, PDFURL: rec.Marks["q2"].PDFURL},
			},
			Status: domain.StatusChecked,
		}, &rec)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("review: status %d", resp.StatusCode)
	}
	if rec.Status != domain.StatusChecked || rec.CheckedAt == nil {
		t.Fatalf("expected checked record, got %+v", rec)
	}

	var report domain.GradeReport
	resp = doJSON(t, http.MethodGet, f.server.URL+"/api/grading/grade?studentId=stu-1&subjectId=subj-math", instructorTok, nil, &report)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("grade: status %d", resp.StatusCode)
	}
	if report.ObtainedMarks != 45 || report.TotalMarks != 60 {
		t.Fatalf("expected 45/60, got %+v", report)
	}
	if report.Percentage != 75.00 || report.Grade != "B" {
		t.Fatalf("expected 75.00 B, got %+v", report)
	}
}

func TestGradeNoDataIsNotFound(t *testing.T) {
	f := newFixture(t)
	instructorTok := login(t, f, "/api/auth/instructor-login", "bob@example.com", "pw-bob")

	resp := doJSON(t, http.MethodGet, f.server.URL+"/api/grading/grade?studentId=stu-1&subjectId=subj-math", instructorTok, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for no checked records, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := newFixture(t)
	resp := doJSON(t, http.MethodPost, f.server.URL+"/api/auth/student-login", "",
		loginRequest{Email: "alice@example.com", Password: "wrong"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t)
	studentTok := login(t, f, "/api/auth/student-login", "alice@example.com", "pw-alice")

	resp := doJSON(t, http.MethodPost, f.server.URL+"/api/attempts", studentTok, map[string]string{}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing examId, got %d", resp.StatusCode)
	}
}
