// Package sessions stores the server side of login sessions, either in
// PostgreSQL or in Redis.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/paleolab/internal/server/models"
)

// Repository stores sessions by id. Get returns common.ErrorNotFound for an
// unknown id; expiry is checked by the caller. Deletes are idempotent.
type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int64) error
}
