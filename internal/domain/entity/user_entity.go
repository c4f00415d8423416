package entity

import (
	"time"
)

// User is the aggregate root for the credential domain
// A user is identified by email and may hold one access per application.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Access is a per-application credential owned by a User.
// CredentialHash holds the Argon2id encoded hash and must never leave the service.
type Access struct {
	ID             string
	UserID         string
	Application    string
	CredentialHash string `json:"-"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
