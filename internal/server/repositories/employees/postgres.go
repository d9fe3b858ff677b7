package employees

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/dbx"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
)

// uniqueFields maps unique index names to the field reported to callers.
var uniqueFields = map[string]string{
	"ix_employees_email":    "email",
	"ix_employees_username": "username",
}

const selectColumns = `SELECT id, email, username, first_name, last_name, password_hash, is_admin, created_at
		FROM employees`

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Employee) (*models.Employee, error) {
	query := `
		INSERT INTO employees (email, username, first_name, last_name, password_hash, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.Email, e.Username, e.FirstName, e.LastName, e.Password, e.IsAdmin,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, dbx.WrapUnique(err, uniqueFields)
	}
	return e, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Employee, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Employee, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Employee, error) {
	return r.getOne(ctx, selectColumns+` WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Employee, error) {
	return r.getOne(ctx, selectColumns+` WHERE username = $1`, username)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Employee, error) {
	e := &models.Employee{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&e.ID, &e.Email, &e.Username, &e.FirstName, &e.LastName, &e.Password, &e.IsAdmin, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.Wrap(err)
	}
	return e, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Employee, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, dbx.Wrap(err)
	}
	defer rows.Close()

	result := []*models.Employee{}
	for rows.Next() {
		e := &models.Employee{}
		if err := rows.Scan(
			&e.ID, &e.Email, &e.Username, &e.FirstName, &e.LastName, &e.Password, &e.IsAdmin, &e.CreatedAt,
		); err != nil {
			return nil, dbx.Wrap(err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Wrap(err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.Employee) error {
	query := `
		UPDATE employees
		SET email = $1, username = $2, first_name = $3, last_name = $4, password_hash = $5, is_admin = $6
		WHERE id = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		e.Email, e.Username, e.FirstName, e.LastName, e.Password, e.IsAdmin, e.ID)
	if err != nil {
		return dbx.WrapUnique(err, uniqueFields)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return dbx.Wrap(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE email = $1 AND id <> $2)`, email, excludeID)
}

func (r *PostgresRepository) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE username = $1 AND id <> $2)`, username, excludeID)
}

func (r *PostgresRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, dbx.Wrap(err)
	}
	return ok, nil
}

func (r *PostgresRepository) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM employees WHERE is_admin`).Scan(&n); err != nil {
		return 0, dbx.Wrap(err)
	}
	return n, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
