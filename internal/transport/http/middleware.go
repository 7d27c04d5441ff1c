package http

import (
	"net/http"
	"strings"
	"time"

	"exam-session-service/internal/token"
)

// Cookie names are a wire contract with the exam UI; each credential class
// travels under its own name and verifiers never accept a neighbor's token.
const (
	CookieStudent    = "token"
	CookieInstructor = "instructorToken"
	CookieAttempt    = "ExamToken"
)

// credentialFromRequest pulls a raw credential from the named cookie, falling
// back to the Authorization header for non-cookie clients.
func credentialFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// authenticate verifies the request against one issuer and classifies
// failures so the client can tell "log in again" from "broken request".
func authenticate(r *http.Request, issuer *token.Issuer, cookieName string) (token.Claims, *apiError) {
	raw := credentialFromRequest(r, cookieName)
	claims, err := issuer.Verify(raw)
	switch err {
	case nil:
		return claims, nil
	case token.ErrMissing:
		return token.Claims{}, &apiError{status: http.StatusUnauthorized, message: "no credential presented"}
	case token.ErrExpired:
		return token.Claims{}, &apiError{status: http.StatusUnauthorized, message: "credential expired, log in again"}
	default:
		return token.Claims{}, &apiError{status: http.StatusUnauthorized, message: "credential invalid"}
	}
}

func setCredentialCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearCredentialCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
