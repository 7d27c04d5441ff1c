package domain

import "errors"

var (
	// ErrRecordNotFound is returned when the referenced answer record does not exist.
	ErrRecordNotFound = errors.New("answer record not found")
	// ErrExamNotFound indicates the exam definition could not be loaded.
	ErrExamNotFound = errors.New("exam not found")
	// ErrNoExamsForSubject is returned by grade computation when the subject has no exams.
	ErrNoExamsForSubject = errors.New("no exams found for subject")
	// ErrNoCheckedRecords is returned when a student has no checked records for a subject.
	// A grade of zero and "no data" are different answers; this keeps them apart.
	ErrNoCheckedRecords = errors.New("no checked answer records for student")
	// ErrAttemptClosed is returned when answers arrive for an attempt that has been finished.
	ErrAttemptClosed = errors.New("attempt already finished")
	// ErrUpstream wraps document service failures; callers surface it as a 502.
	ErrUpstream = errors.New("document service failure")
	// ErrInvalidLogin is returned when the directory rejects the presented login.
	ErrInvalidLogin = errors.New("invalid email or password")
)
