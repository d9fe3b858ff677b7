// Package cores declares the storage contract for core sample sites.
package cores

import (
	"context"

	"github.com/dmitrijs2005/paleolab/internal/server/models"
)

// Repository persists cores. A name collision is reported as a
// *common.DuplicateKeyError with Field "name".
type Repository interface {
	Create(ctx context.Context, c *models.Core) (*models.Core, error)
	GetByID(ctx context.Context, id int64) (*models.Core, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Core, error)
	List(ctx context.Context) ([]*models.Core, error)
	Update(ctx context.Context, c *models.Core) error
	Delete(ctx context.Context, id int64) error
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
}
