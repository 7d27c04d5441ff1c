package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"exam-session-service/internal/app"
	"exam-session-service/internal/domain"
	"exam-session-service/internal/token"
)

// API exposes the attempt-lifecycle and grading endpoints.
type API struct {
	students    *token.Issuer
	instructors *token.Issuer
	attemptTok  *token.Issuer
	directory   app.Directory
	attempts    *app.AttemptService
	grading     *app.GradingService
	validate    *validator.Validate
}

func NewAPI(students, instructors, attemptTok *token.Issuer, directory app.Directory, attempts *app.AttemptService, grading *app.GradingService) *API {
	return &API{
		students:    students,
		instructors: instructors,
		attemptTok:  attemptTok,
		directory:   directory,
		attempts:    attempts,
		grading:     grading,
		validate:    validator.New(),
	}
}

// Register wires every route onto the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/student-login", a.studentLogin)
	mux.HandleFunc("POST /api/auth/instructor-login", a.instructorLogin)
	mux.HandleFunc("POST /api/auth/logout", a.logout)

	mux.HandleFunc("POST /api/attempts", a.startAttempt)
	mux.HandleFunc("POST /api/attempts/answers", a.saveAnswers)
	mux.HandleFunc("POST /api/attempts/finish", a.finishAttempt)

	mux.HandleFunc("GET /api/grading/records", a.studentAnswers)
	mux.HandleFunc("POST /api/grading/records/ensure-artifacts", a.ensureArtifacts)
	mux.HandleFunc("PUT /api/grading/records/marks", a.recordMarks)
	mux.HandleFunc("PUT /api/grading/records/review", a.review)
	mux.HandleFunc("GET /api/grading/grade", a.grade)
}

type apiError struct {
	status  int
	message string
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (a *API) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrExamNotFound),
		errors.Is(err, domain.ErrNoExamsForSubject),
		errors.Is(err, domain.ErrNoCheckedRecords):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrAttemptClosed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUpstream):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidLogin):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		log.Printf("api: unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decode parses and validates a JSON request body.
func (a *API) decode(r *http.Request, dst any) *apiError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &apiError{status: http.StatusUnprocessableEntity, message: "invalid request body"}
	}
	if err := a.validate.Struct(dst); err != nil {
		return &apiError{status: http.StatusUnprocessableEntity, message: err.Error()}
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token       string `json:"token"`
	DisplayName string `json:"displayName"`
}

func (a *API) studentLogin(w http.ResponseWriter, r *http.Request) {
	a.login(w, r, app.RoleStudent, a.students, CookieStudent)
}

func (a *API) instructorLogin(w http.ResponseWriter, r *http.Request) {
	a.login(w, r, app.RoleInstructor, a.instructors, CookieInstructor)
}

func (a *API) login(w http.ResponseWriter, r *http.Request, role string, issuer *token.Issuer, cookieName string) {
	var req loginRequest
	if apiErr := a.decode(r, &req); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	principal, err := a.directory.Authenticate(r.Context(), req.Email, req.Password, role)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	cred, err := issuer.Issue(token.Claims{
		SubjectID:   principal.ID,
		Role:        principal.Role,
		DisplayName: principal.DisplayName,
	})
	if err != nil {
		a.writeErr(w, err)
		return
	}
	setCredentialCookie(w, cookieName, cred, issuer.TTL())
	writeJSON(w, http.StatusOK, loginResponse{Token: cred, DisplayName: principal.DisplayName})
}

func (a *API) logout(w http.ResponseWriter, _ *http.Request) {
	clearCredentialCookie(w, CookieStudent)
	clearCredentialCookie(w, CookieInstructor)
	clearCredentialCookie(w, CookieAttempt)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startAttemptRequest struct {
	ExamID string `json:"examId" validate:"required"`
}

type startAttemptResponse struct {
	AnswerRecordID    string `json:"answerRecordId"`
	AttemptCredential string `json:"attemptCredential"`
	ExamName          string `json:"examName"`
	TotalQuestions    int    `json:"totalQuestions"`
	AttemptMinutes    int    `json:"totalAttemptMinutes"`
}

func (a *API) startAttempt(w http.ResponseWriter, r *http.Request) {
	claims, apiErr := authenticate(r, a.students, CookieStudent)
	if apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	var req startAttemptRequest
	if apiErr := a.decode(r, &req); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	started, err := a.attempts.Start(r.Context(), claims.SubjectID, claims.DisplayName, req.ExamID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	setCredentialCookie(w, CookieAttempt, started.Credential, a.attemptTok.TTL())
	writeJSON(w, http.StatusOK, startAttemptResponse{
		AnswerRecordID:    started.Record.ID,
		AttemptCredential: started.Credential,
		ExamName:          started.Exam.Name,
		TotalQuestions:    started.Exam.TotalQuestions,
		AttemptMinutes:    started.Exam.DurationMinutes,
	})
}

type saveAnswersRequest struct {
	// The complete accumulated map, never a delta; the server replaces the
	// stored map wholesale and the last writer wins.
	Answers map[string]string `json:"answers" validate:"required"`
}

func (a *API) saveAnswers(w http.ResponseWriter, r *http.Request) {
	// The attempt credential alone authorizes this: a student whose login
	// expired mid-exam keeps writing answers until the attempt ends.
	claims, apiErr := authenticate(r, a.attemptTok, CookieAttempt)
	if apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	var req saveAnswersRequest
	if apiErr := a.decode(r, &req); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	if err := a.attempts.SaveAnswers(r.Context(), claims, req.Answers); err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type finishAttemptRequest struct {
	Answers map[string]string `json:"answers"`
}

func (a *API) finishAttempt(w http.ResponseWriter, r *http.Request) {
	claims, apiErr := authenticate(r, a.attemptTok, CookieAttempt)
	if apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	var req finishAttemptRequest
	// Body is optional on finish; a vanished client may post nothing.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := a.attempts.Finish(r.Context(), claims, req.Answers); err != nil {
		a.writeErr(w, err)
		return
	}
	clearCredentialCookie(w, CookieAttempt)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) studentAnswers(w http.ResponseWriter, r *http.Request) {
	if _, apiErr := authenticate(r, a.instructors, CookieInstructor); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	studentID := r.URL.Query().Get("studentId")
	examID := r.URL.Query().Get("examId")
	if studentID == "" || examID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "studentId and examId are required"})
		return
	}
	rec, err := a.grading.StudentAnswers(r.Context(), studentID, examID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type ensureArtifactsRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	ExamID    string `json:"examId" validate:"required"`
}

func (a *API) ensureArtifacts(w http.ResponseWriter, r *http.Request) {
	if _, apiErr := authenticate(r, a.instructors, CookieInstructor); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	var req ensureArtifactsRequest
	if apiErr := a.decode(r, &req); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	rec, err := a.grading.StudentAnswers(r.Context(), req.StudentID, req.ExamID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	rec, err = a.grading.EnsureArtifacts(r.Context(), rec.ID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type recordMarksRequest struct {
	StudentID   string  `json:"studentId" validate:"required"`
	ExamID      string  `json:"examId" validate:"required"`
	QuestionKey string  `json:"questionKey" validate:"required"`
	Marks       float64 `json:"marks"`
	PDFURL      string  `json:"pdfUrl"`
}

func (a *API) recordMarks(w http.ResponseWriter, r *http.Request) {
	if _, apiErr := authenticate(r, a.instructors, CookieInstructor); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	var req recordMarksRequest
	if apiErr := a.decode(r, &req); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	rec, err := a.grading.StudentAnswers(r.Context(), req.StudentID, req.ExamID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	rec, err = a.grading.RecordMarks(r.Context(), rec.ID, req.QuestionKey, req.Marks, req.PDFURL)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type reviewRequest struct {
	StudentID string                      `json:"studentId" validate:"required"`
	ExamID    string                      `json:"examId" validate:"required"`
	Marks     map[string]domain.MarkEntry `json:"marksObtained" validate:"required"`
	Status    domain.RecordStatus         `json:"status" validate:"required"`
}

func (a *API) review(w http.ResponseWriter, r *http.Request) {
	if _, apiErr := authenticate(r, a.instructors, CookieInstructor); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	var req reviewRequest
	if apiErr := a.decode(r, &req); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	rec, err := a.grading.StudentAnswers(r.Context(), req.StudentID, req.ExamID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	rec, err = a.grading.SetStatusAndMarks(r.Context(), rec.ID, req.Marks, req.Status)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) grade(w http.ResponseWriter, r *http.Request) {
	if _, apiErr := authenticate(r, a.instructors, CookieInstructor); apiErr != nil {
		writeJSON(w, apiErr.status, errorResponse{Error: apiErr.message})
		return
	}
	studentID := r.URL.Query().Get("studentId")
	subjectID := r.URL.Query().Get("subjectId")
	if studentID == "" || subjectID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "studentId and subjectId are required"})
		return
	}
	report, err := a.grading.ComputeGrade(r.Context(), studentID, subjectID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
