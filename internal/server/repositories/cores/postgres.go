package cores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/dbx"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
)

var uniqueFields = map[string]string{"ix_cores_name": "name"}

const selectColumns = `SELECT id, name, lat, lon, w_depth_m, length_cm, type, created_at FROM cores`

type scanner interface {
	Scan(dest ...any) error
}

func scanCore(s scanner) (*models.Core, error) {
	c := &models.Core{}
	err := s.Scan(&c.ID, &c.Name, &c.Lat, &c.Lon, &c.WaterDepthM, &c.LengthCM, &c.Type, &c.CreatedAt)
	return c, err
}

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Core) (*models.Core, error) {
	query := `
		INSERT INTO cores (name, lat, lon, w_depth_m, length_cm, type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.Name, c.Lat, c.Lon, c.WaterDepthM, c.LengthCM, c.Type,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, dbx.WrapUnique(err, uniqueFields)
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Core, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Core, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id int64) (*models.Core, error) {
	c, err := scanCore(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Wrap(err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Core, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, dbx.Wrap(err)
	}
	defer rows.Close()

	result := []*models.Core{}
	for rows.Next() {
		c, err := scanCore(rows)
		if err != nil {
			return nil, dbx.Wrap(err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Wrap(err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.Core) error {
	query := `
		UPDATE cores
		SET name = $1, lat = $2, lon = $3, w_depth_m = $4, length_cm = $5, type = $6
		WHERE id = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		c.Name, c.Lat, c.Lon, c.WaterDepthM, c.LengthCM, c.Type, c.ID)
	if err != nil {
		return dbx.WrapUnique(err, uniqueFields)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cores WHERE id = $1`, id)
	if err != nil {
		return dbx.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cores WHERE name = $1 AND id <> $2)`, name, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, dbx.Wrap(err)
	}
	return taken, nil
}
