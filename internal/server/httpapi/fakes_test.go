package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/logging"
	"github.com/dmitrijs2005/paleolab/internal/server/archive"
	"github.com/dmitrijs2005/paleolab/internal/server/metrics"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/dmitrijs2005/paleolab/internal/server/services"
)

var (
	bob   = &models.Employee{ID: 2, Email: "bob@lab.org", Username: "bob"}
	admin = &models.Employee{ID: 1, Email: "root@lab.org", Username: "root", IsAdmin: true}
)

type fakeAuth struct {
	tokens     map[string]*models.Employee
	currentErr error
	loginErr   error
	registered *services.RegisterInput
	loggedOut  []string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{tokens: map[string]*models.Employee{"bob-token": bob, "admin-token": admin}}
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) (*models.Employee, error) {
	f.registered = &in
	if in.Password != in.ConfirmPassword {
		return nil, common.NewValidationError("confirm_password", "passwords must match")
	}
	return &models.Employee{ID: 9, Email: in.Email, Username: in.Username}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*services.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if email != bob.Email || password != "pw" {
		return nil, common.ErrorUnauthorized
	}
	return &services.Session{Token: "bob-token", ExpiresAt: time.Now().Add(time.Hour), Employee: bob}, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

func (f *fakeAuth) CurrentUser(_ context.Context, token string) (*models.Employee, error) {
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	if e, ok := f.tokens[token]; ok {
		return e, nil
	}
	return nil, common.ErrorUnauthorized
}

type fakeCores struct {
	core     *models.Core
	list     []*models.Core
	err      error
	actor    *models.Employee
	id       int64
	input    services.CoreInput
	patch    services.CorePatch
	deleted  bool
	archived bool
}

func (f *fakeCores) List(_ context.Context, actor *models.Employee) ([]*models.Core, error) {
	f.actor = actor
	return f.list, f.err
}

func (f *fakeCores) Get(_ context.Context, actor *models.Employee, id int64) (*models.Core, error) {
	f.actor, f.id = actor, id
	return f.core, f.err
}

func (f *fakeCores) Create(_ context.Context, actor *models.Employee, in services.CoreInput) (*models.Core, error) {
	f.actor, f.input = actor, in
	return f.core, f.err
}

func (f *fakeCores) Update(_ context.Context, actor *models.Employee, id int64, p services.CorePatch) (*models.Core, error) {
	f.actor, f.id, f.patch = actor, id, p
	return f.core, f.err
}

func (f *fakeCores) Delete(_ context.Context, actor *models.Employee, id int64) error {
	f.actor, f.id = actor, id
	f.deleted = f.err == nil
	return f.err
}

type fakeEmployees struct {
	employee *models.Employee
	list     []*models.Employee
	err      error
	actor    *models.Employee
	id       int64
	input    services.EmployeeInput
	patch    services.EmployeePatch
}

func (f *fakeEmployees) List(_ context.Context, actor *models.Employee) ([]*models.Employee, error) {
	f.actor = actor
	return f.list, f.err
}

func (f *fakeEmployees) Get(_ context.Context, actor *models.Employee, id int64) (*models.Employee, error) {
	f.actor, f.id = actor, id
	return f.employee, f.err
}

func (f *fakeEmployees) Create(_ context.Context, actor *models.Employee, in services.EmployeeInput) (*models.Employee, error) {
	f.actor, f.input = actor, in
	return f.employee, f.err
}

func (f *fakeEmployees) Update(_ context.Context, actor *models.Employee, id int64, p services.EmployeePatch) (*models.Employee, error) {
	f.actor, f.id, f.patch = actor, id, p
	return f.employee, f.err
}

func (f *fakeEmployees) Delete(_ context.Context, actor *models.Employee, id int64) error {
	f.actor, f.id = actor, id
	return f.err
}

type fakeArchive struct {
	res *archive.Result
	err error
}

func (f *fakeArchive) Archive(_ context.Context, actor *models.Employee) (*archive.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if actor == nil || !actor.IsAdmin {
		return nil, common.ErrorForbidden
	}
	return f.res, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type testEnv struct {
	handler   http.Handler
	auth      *fakeAuth
	cores     *fakeCores
	employees *fakeEmployees
	archive   *fakeArchive
	metrics   *metrics.Metrics
}

func newTestEnv(t *testing.T, secure bool, dbErr error) *testEnv {
	t.Helper()
	env := &testEnv{
		auth:      newFakeAuth(),
		cores:     &fakeCores{},
		employees: &fakeEmployees{},
		archive:   &fakeArchive{err: archive.ErrDisabled},
		metrics:   metrics.New(),
	}
	env.handler = NewRouter(Deps{
		Auth:          env.auth,
		Employees:     env.employees,
		Cores:         env.cores,
		Archive:       env.archive,
		Metrics:       env.metrics,
		DB:            fakePinger{err: dbErr},
		Logger:        logging.Nop(),
		SecureCookies: secure,
	})
	return env
}

// do sends a request; token, when set, goes in a Bearer header.
func (env *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

var errBoom = errors.New("pq: relation \"cores\" does not exist")
