// Package services holds the paleolab business rules: the access guard,
// the session authenticator and the validated record services for
// employees and cores. Every operation checks permissions before it
// touches the store.
package services

import (
	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
)

// RequireAuthenticated fails with common.ErrorUnauthorized for an anonymous actor.
func RequireAuthenticated(actor *models.Employee) error {
	if actor == nil {
		return common.ErrorUnauthorized
	}
	return nil
}

// RequireAdmin fails with common.ErrorForbidden unless actor is an admin.
// An anonymous actor is forbidden too.
func RequireAdmin(actor *models.Employee) error {
	if actor == nil || !actor.IsAdmin {
		return common.ErrorForbidden
	}
	return nil
}
