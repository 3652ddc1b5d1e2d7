package domain

import "time"

// Account is a login credential record. Email is empty when absent.
type Account struct {
	ID           string
	PrincipalID  string
	Username     string
	PasswordHash string
	Active       bool
	Email        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
