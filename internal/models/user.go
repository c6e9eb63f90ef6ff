package models

import (
	"github.com/google/uuid"
)

const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User is the authenticated identity supplied by the platform's auth
// service. Wallet operations trust it and never re-verify.
type User struct {
	ID   uuid.UUID
	Role string
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
