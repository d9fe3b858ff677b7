package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/logging"
	"github.com/dmitrijs2005/paleolab/internal/server/auth"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/sessions"
)

const sessionIDBytes = 32

// RegisterInput is the public sign-up form.
type RegisterInput struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Employee  *models.Employee
}

// AuthService logs employees in and out and resolves session tokens.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    sessions.Repository
	employees   *EmployeeService
	secret      []byte
	ttl         time.Duration
	now         func() time.Time
	logger      logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, sess sessions.Repository, es *EmployeeService,
	secret string, ttl time.Duration, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		sessions:    sess,
		employees:   es,
		secret:      []byte(secret),
		ttl:         ttl,
		now:         time.Now,
		logger:      logger,
	}
}

// Register creates a regular (non-admin) account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Employee, error) {
	e, err := s.employees.register(ctx, EmployeeInput{
		Email:           in.Email,
		Username:        in.Username,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "employee registered", "employee_id", e.ID)
	return e, nil
}

// Login checks the credentials and opens a session. A wrong password and an
// unknown email both yield common.ErrorUnauthorized after the same work.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if err := validateStruct(loginInput{Email: email, Password: password}); err != nil {
		return nil, err
	}

	e, err := s.repomanager.Employees(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.VerifyDummy(password)
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if !e.Password.Verify(password) {
		return nil, common.ErrorUnauthorized
	}

	sid, err := common.MakeRandHexString(sessionIDBytes)
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}

	now := s.now()
	sess := &models.Session{ID: sid, UserID: e.ID, ExpiresAt: now.Add(s.ttl)}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	token, err := auth.IssueToken(s.secret, e.ID, sid, now, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info(ctx, "employee logged in", "employee_id", e.ID)
	return &Session{Token: token, ExpiresAt: sess.ExpiresAt, Employee: e}, nil
}

// Logout revokes the session behind token. Unknown, expired or malformed
// tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(token, s.secret)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return err
	}
	s.logger.Info(ctx, "employee logged out", "employee_id", claims.UserID)
	return nil
}

// CurrentUser returns the employee behind a live session token, or
// common.ErrorUnauthorized when there is none.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.Employee, error) {
	if token == "" {
		return nil, common.ErrorUnauthorized
	}

	claims, err := auth.ParseToken(token, s.secret)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if sess.UserID != claims.UserID || sess.Expired(s.now()) {
		return nil, common.ErrorUnauthorized
	}

	e, err := s.repomanager.Employees(s.db).GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return e, nil
}
