// Package employees declares the storage contract for employee accounts.
package employees

import (
	"context"

	"github.com/dmitrijs2005/paleolab/internal/server/models"
)

// Repository persists employees. Lookups return common.ErrorNotFound when
// no row matches; writes that collide with a unique index return a
// *common.DuplicateKeyError naming the field.
type Repository interface {
	Create(ctx context.Context, e *models.Employee) (*models.Employee, error)
	GetByID(ctx context.Context, id int64) (*models.Employee, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Employee, error)
	GetByEmail(ctx context.Context, email string) (*models.Employee, error)
	GetByUsername(ctx context.Context, username string) (*models.Employee, error)
	// List returns every employee ordered by id.
	List(ctx context.Context) ([]*models.Employee, error)
	Update(ctx context.Context, e *models.Employee) error
	Delete(ctx context.Context, id int64) error

	// EmailTaken and UsernameTaken ignore the row with id excludeID.
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	CountAdmins(ctx context.Context) (int, error)
}
