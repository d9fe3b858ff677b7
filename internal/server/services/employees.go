package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/dbx"
	"github.com/dmitrijs2005/paleolab/internal/logging"
	"github.com/dmitrijs2005/paleolab/internal/server/auth"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/employees"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/sessions"
)

// EmployeeInput is a new account as entered on the registration or
// "add employee" form.
type EmployeeInput struct {
	Email           string `json:"email" validate:"required,email,max=60"`
	Username        string `json:"username" validate:"required,max=60"`
	FirstName       string `json:"first_name" validate:"required,max=60"`
	LastName        string `json:"last_name" validate:"required,max=60"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
	IsAdmin         bool   `json:"is_admin"`
}

// EmployeePatch changes only the fields that are non-nil. A new password
// must come with a matching ConfirmPassword.
type EmployeePatch struct {
	Email           *string `json:"email"`
	Username        *string `json:"username"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Password        *string `json:"password"`
	ConfirmPassword *string `json:"confirm_password"`
	IsAdmin         *bool   `json:"is_admin"`
}

// employeeRecord is what a stored employee must satisfy after any change.
type employeeRecord struct {
	Email     string `json:"email" validate:"required,email,max=60"`
	Username  string `json:"username" validate:"required,max=60"`
	FirstName string `json:"first_name" validate:"required,max=60"`
	LastName  string `json:"last_name" validate:"required,max=60"`
}

type passwordChange struct {
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

// EmployeeService manages employee accounts. Everything except the
// bootstrap path requires an admin actor.
type EmployeeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    sessions.Repository
	logger      logging.Logger
}

func NewEmployeeService(db *sql.DB, m repomanager.RepositoryManager, sess sessions.Repository, logger logging.Logger) *EmployeeService {
	return &EmployeeService{db: db, repomanager: m, sessions: sess, logger: logger}
}

func (s *EmployeeService) List(ctx context.Context, actor *models.Employee) ([]*models.Employee, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repomanager.Employees(s.db).List(ctx)
}

func (s *EmployeeService) Get(ctx context.Context, actor *models.Employee, id int64) (*models.Employee, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repomanager.Employees(s.db).GetByID(ctx, id)
}

// Create adds an account on behalf of an admin, who may grant admin rights.
func (s *EmployeeService) Create(ctx context.Context, actor *models.Employee, in EmployeeInput) (*models.Employee, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}

	e, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "employee created", "employee_id", e.ID, "actor_id", actor.ID, "is_admin", e.IsAdmin)
	return e, nil
}

// Bootstrap creates an admin account without an acting user. It is meant
// for the command-line seeding tool, never for request handlers.
func (s *EmployeeService) Bootstrap(ctx context.Context, in EmployeeInput) (*models.Employee, error) {
	in.IsAdmin = true
	e, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}

	admins, err := s.repomanager.Employees(s.db).CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	s.logger.Info(ctx, "admin bootstrapped", "employee_id", e.ID, "admins", admins)
	return e, nil
}

// register is the self-service path; the new account is never an admin.
func (s *EmployeeService) register(ctx context.Context, in EmployeeInput) (*models.Employee, error) {
	in.IsAdmin = false
	return s.create(ctx, in)
}

func (s *EmployeeService) create(ctx context.Context, in EmployeeInput) (*models.Employee, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	e := &models.Employee{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  hash,
		IsAdmin:   in.IsAdmin,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Employees(tx)
		if err := checkEmployeeUnique(ctx, repo, e, 0); err != nil {
			return err
		}
		_, err := repo.Create(ctx, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Update applies patch to employee id atomically.
func (s *EmployeeService) Update(ctx context.Context, actor *models.Employee, id int64, patch EmployeePatch) (*models.Employee, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}

	var newHash *auth.PasswordHash
	if patch.Password != nil {
		pc := passwordChange{Password: *patch.Password}
		if patch.ConfirmPassword != nil {
			pc.ConfirmPassword = *patch.ConfirmPassword
		}
		if err := validateStruct(pc); err != nil {
			return nil, err
		}
		h, err := auth.HashPassword(pc.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		newHash = &h
	}

	var updated *models.Employee
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Employees(tx)

		e, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		applyEmployeePatch(e, patch)
		if newHash != nil {
			e.Password = *newHash
		}

		if err := validateStruct(employeeRecord{
			Email: e.Email, Username: e.Username, FirstName: e.FirstName, LastName: e.LastName,
		}); err != nil {
			return err
		}
		if err := checkEmployeeUnique(ctx, repo, e, e.ID); err != nil {
			return err
		}
		if err := repo.Update(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "employee updated", "employee_id", id, "actor_id", actor.ID)
	return updated, nil
}

// Delete removes employee id and revokes all of their sessions.
func (s *EmployeeService) Delete(ctx context.Context, actor *models.Employee, id int64) error {
	if err := RequireAdmin(actor); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Employees(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	if err := s.sessions.DeleteByUser(ctx, id); err != nil {
		// the account is gone, so its tokens no longer resolve to a user
		s.logger.Warn(ctx, "revoking sessions of deleted employee failed", "employee_id", id, "error", err)
	}

	s.logger.Info(ctx, "employee deleted", "employee_id", id, "actor_id", actor.ID)
	return nil
}

func applyEmployeePatch(e *models.Employee, p EmployeePatch) {
	if p.Email != nil {
		e.Email = *p.Email
	}
	if p.Username != nil {
		e.Username = *p.Username
	}
	if p.FirstName != nil {
		e.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		e.LastName = *p.LastName
	}
	if p.IsAdmin != nil {
		e.IsAdmin = *p.IsAdmin
	}
}

// checkEmployeeUnique looks for another row holding e's email or username.
// The unique indexes remain the final authority.
func checkEmployeeUnique(ctx context.Context, repo employees.Repository, e *models.Employee, excludeID int64) error {
	taken, err := repo.EmailTaken(ctx, e.Email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return &common.DuplicateKeyError{Field: "email"}
	}

	taken, err = repo.UsernameTaken(ctx, e.Username, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return &common.DuplicateKeyError{Field: "username"}
	}
	return nil
}
