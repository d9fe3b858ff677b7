// Package models defines the records persisted by paleolab.
package models

import (
	"time"

	"github.com/dmitrijs2005/paleolab/internal/server/auth"
)

// Employee is a lab user account. Password is write-only: it can be
// replaced or verified but not read.
type Employee struct {
	ID        int64             `json:"id"`
	Email     string            `json:"email"`
	Username  string            `json:"username"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Password  auth.PasswordHash `json:"-"`
	IsAdmin   bool              `json:"is_admin"`
	CreatedAt time.Time         `json:"created_at"`
}

// FullName is first and last name joined by a space.
func (e *Employee) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}
