// Package httpapi is the JSON HTTP surface of paleolab: registration and
// login, the employee and core registries, health and metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/paleolab/internal/logging"
	"github.com/dmitrijs2005/paleolab/internal/server/archive"
	"github.com/dmitrijs2005/paleolab/internal/server/metrics"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/dmitrijs2005/paleolab/internal/server/services"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.Employee, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*models.Employee, error)
}

type EmployeeService interface {
	List(ctx context.Context, actor *models.Employee) ([]*models.Employee, error)
	Get(ctx context.Context, actor *models.Employee, id int64) (*models.Employee, error)
	Create(ctx context.Context, actor *models.Employee, in services.EmployeeInput) (*models.Employee, error)
	Update(ctx context.Context, actor *models.Employee, id int64, patch services.EmployeePatch) (*models.Employee, error)
	Delete(ctx context.Context, actor *models.Employee, id int64) error
}

type CoreService interface {
	List(ctx context.Context, actor *models.Employee) ([]*models.Core, error)
	Get(ctx context.Context, actor *models.Employee, id int64) (*models.Core, error)
	Create(ctx context.Context, actor *models.Employee, in services.CoreInput) (*models.Core, error)
	Update(ctx context.Context, actor *models.Employee, id int64, patch services.CorePatch) (*models.Core, error)
	Delete(ctx context.Context, actor *models.Employee, id int64) error
}

type Archiver interface {
	Archive(ctx context.Context, actor *models.Employee) (*archive.Result, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Auth          AuthService
	Employees     EmployeeService
	Cores         CoreService
	Archive       Archiver
	Metrics       *metrics.Metrics
	DB            Pinger
	Logger        logging.Logger
	SecureCookies bool
}

type Server struct {
	auth          AuthService
	employees     EmployeeService
	cores         CoreService
	archive       Archiver
	metrics       *metrics.Metrics
	db            Pinger
	logger        logging.Logger
	secureCookies bool
}

func NewRouter(d Deps) http.Handler {
	s := &Server{
		auth:          d.Auth,
		employees:     d.Employees,
		cores:         d.Cores,
		archive:       d.Archive,
		metrics:       d.Metrics,
		db:            d.DB,
		logger:        d.Logger.With("module", "http"),
		secureCookies: d.SecureCookies,
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.instrument)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(requestTimeout))

	r.Get("/health", s.health)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		// public; a stale cookie must not block these
		v1.Post("/auth/register", s.register)
		v1.Post("/auth/login", s.login)
		v1.Post("/auth/logout", s.logout)

		v1.Group(func(p chi.Router) {
			p.Use(s.session)
			p.Use(requireActor)

			p.Get("/auth/me", s.me)

			p.Route("/cores", func(c chi.Router) {
				c.Get("/", s.listCores)
				c.Post("/", s.createCore)
				c.Post("/archive", s.archiveCores)
				c.Get("/{id}", s.getCore)
				c.Patch("/{id}", s.updateCore)
				c.Delete("/{id}", s.deleteCore)
			})

			p.Route("/employees", func(e chi.Router) {
				e.Get("/", s.listEmployees)
				e.Post("/", s.createEmployee)
				e.Get("/{id}", s.getEmployee)
				e.Patch("/{id}", s.updateEmployee)
				e.Delete("/{id}", s.deleteEmployee)
			})
		})
	})

	return r
}
