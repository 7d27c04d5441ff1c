package memory

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"exam-session-service/internal/app"
	"exam-session-service/internal/domain"
)

// Directory is an in-memory user directory with bcrypt-hashed passwords.
// The real directory lives in the provisioning service; this stands in for
// it in tests and demo mode.
type Directory struct {
	mu    sync.RWMutex
	users map[string]directoryEntry // keyed by email
}

type directoryEntry struct {
	principal    app.Principal
	passwordHash []byte
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[string]directoryEntry)}
}

// AddUser registers a user; the password is hashed before storage.
func (d *Directory) AddUser(id, displayName, email, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[email] = directoryEntry{
		principal:    app.Principal{ID: id, DisplayName: displayName, Role: role},
		passwordHash: hash,
	}
	return nil
}

func (d *Directory) Authenticate(_ context.Context, email, password, role string) (app.Principal, error) {
	d.mu.RLock()
	entry, ok := d.users[email]
	d.mu.RUnlock()
	if !ok || entry.principal.Role != role {
		return app.Principal{}, domain.ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword(entry.passwordHash, []byte(password)); err != nil {
		return app.Principal{}, domain.ErrInvalidLogin
	}
	return entry.principal, nil
}
