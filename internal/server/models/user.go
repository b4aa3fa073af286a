// Package models holds the persistent records of the credential service.
package models

import "time"

// MaxUserNameLength bounds UserName, counted in characters.
const MaxUserNameLength = 100

// User is an account that can authenticate. Only active users may log in or
// refresh their session.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}
