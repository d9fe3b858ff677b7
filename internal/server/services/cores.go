package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/dbx"
	"github.com/dmitrijs2005/paleolab/internal/logging"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/repomanager"
)

// CoreInput is a core as entered on the "add core" form.
type CoreInput struct {
	Name        string             `json:"name" validate:"required,max=20"`
	Lat         *models.Coordinate `json:"lat" validate:"omitempty,lat"`
	Lon         *models.Coordinate `json:"lon" validate:"omitempty,lon"`
	WaterDepthM *int               `json:"w_depth_m" validate:"omitempty,min=0,max=2147483647"`
	LengthCM    *int               `json:"length_cm" validate:"omitempty,min=0,max=2147483647"`
	Type        *string            `json:"type" validate:"omitempty,max=10"`
}

// CorePatch changes only the non-nil fields.
type CorePatch struct {
	Name        *string            `json:"name"`
	Lat         *models.Coordinate `json:"lat"`
	Lon         *models.Coordinate `json:"lon"`
	WaterDepthM *int               `json:"w_depth_m"`
	LengthCM    *int               `json:"length_cm"`
	Type        *string            `json:"type"`
}

// CoreService manages cores. Any authenticated employee may read them;
// mutations additionally need an admin when mutationsRequireAdmin is set.
type CoreService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	logger                logging.Logger
	mutationsRequireAdmin bool
}

func NewCoreService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, mutationsRequireAdmin bool) *CoreService {
	return &CoreService{db: db, repomanager: m, logger: logger, mutationsRequireAdmin: mutationsRequireAdmin}
}

func (s *CoreService) guardMutation(actor *models.Employee) error {
	if s.mutationsRequireAdmin {
		return RequireAdmin(actor)
	}
	return RequireAuthenticated(actor)
}

func (s *CoreService) List(ctx context.Context, actor *models.Employee) ([]*models.Core, error) {
	if err := RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	return s.repomanager.Cores(s.db).List(ctx)
}

func (s *CoreService) Get(ctx context.Context, actor *models.Employee, id int64) (*models.Core, error) {
	if err := RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	return s.repomanager.Cores(s.db).GetByID(ctx, id)
}

func (s *CoreService) Create(ctx context.Context, actor *models.Employee, in CoreInput) (*models.Core, error) {
	if err := s.guardMutation(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	c := &models.Core{
		Name:        in.Name,
		Lat:         in.Lat,
		Lon:         in.Lon,
		WaterDepthM: in.WaterDepthM,
		LengthCM:    in.LengthCM,
		Type:        in.Type,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Cores(tx)
		taken, err := repo.NameTaken(ctx, c.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return &common.DuplicateKeyError{Field: "name"}
		}
		_, err = repo.Create(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "core created", "core_id", c.ID, "actor_id", actor.ID)
	return c, nil
}

func (s *CoreService) Update(ctx context.Context, actor *models.Employee, id int64, patch CorePatch) (*models.Core, error) {
	if err := s.guardMutation(actor); err != nil {
		return nil, err
	}

	var updated *models.Core
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Cores(tx)

		c, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		applyCorePatch(c, patch)

		if err := validateStruct(CoreInput{
			Name: c.Name, Lat: c.Lat, Lon: c.Lon, WaterDepthM: c.WaterDepthM, LengthCM: c.LengthCM, Type: c.Type,
		}); err != nil {
			return err
		}

		taken, err := repo.NameTaken(ctx, c.Name, c.ID)
		if err != nil {
			return err
		}
		if taken {
			return &common.DuplicateKeyError{Field: "name"}
		}
		if err := repo.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "core updated", "core_id", id, "actor_id", actor.ID)
	return updated, nil
}

func (s *CoreService) Delete(ctx context.Context, actor *models.Employee, id int64) error {
	if err := s.guardMutation(actor); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Cores(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "core deleted", "core_id", id, "actor_id", actor.ID)
	return nil
}

func applyCorePatch(c *models.Core, p CorePatch) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Lat != nil {
		c.Lat = p.Lat
	}
	if p.Lon != nil {
		c.Lon = p.Lon
	}
	if p.WaterDepthM != nil {
		c.WaterDepthM = p.WaterDepthM
	}
	if p.LengthCM != nil {
		c.LengthCM = p.LengthCM
	}
	if p.Type != nil {
		c.Type = p.Type
	}
}
