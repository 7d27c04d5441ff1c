package app

import "context"

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
)

// Principal is an authenticated directory entry.
type Principal struct {
	ID          string
	DisplayName string
	Role        string
}

// Directory is the external user directory. Provisioning of subjects,
// instructors, and students lives there; the core only asks it to check
// logins before minting a credential.
type Directory interface {
	Authenticate(ctx context.Context, email, password, role string) (Principal, error)
}
