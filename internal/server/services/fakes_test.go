package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/dbx"
	"github.com/dmitrijs2005/paleolab/internal/logging"
	"github.com/dmitrijs2005/paleolab/internal/server/auth"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/cores"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/employees"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/sessions"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// memStore is an in-memory stand-in for the three tables. Repositories
// hand out copies so callers cannot change stored rows without Update.
type memStore struct {
	mu        sync.Mutex
	employees map[int64]models.Employee
	cores     map[int64]models.Core
	sessions  map[string]models.Session
	nextID    int64

	// injected failures
	employeeCreateErr error
	coreUpdateErr     error
	deleteByUserErr   error
}

func newMemStore() *memStore {
	return &memStore{
		employees: map[int64]models.Employee{},
		cores:     map[int64]models.Core{},
		sessions:  map[string]models.Session{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

type fakeManager struct{ st *memStore }

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeManager) Employees(dbx.DBTX) employees.Repository      { return &memEmployees{m.st} }
func (m *fakeManager) Cores(dbx.DBTX) cores.Repository              { return &memCores{m.st} }
func (m *fakeManager) Sessions(dbx.DBTX) sessions.Repository        { return &memSessions{m.st} }

type memEmployees struct{ st *memStore }

func (r *memEmployees) Create(_ context.Context, e *models.Employee) (*models.Employee, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.employeeCreateErr != nil {
		return nil, r.st.employeeCreateErr
	}
	for _, other := range r.st.employees {
		if other.Email == e.Email {
			return nil, &common.DuplicateKeyError{Field: "email"}
		}
		if other.Username == e.Username {
			return nil, &common.DuplicateKeyError{Field: "username"}
		}
	}
	e.ID = r.st.id()
	r.st.employees[e.ID] = *e
	return e, nil
}

func (r *memEmployees) get(match func(models.Employee) bool) (*models.Employee, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, e := range r.st.employees {
		if match(e) {
			cp := e
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memEmployees) GetByID(_ context.Context, id int64) (*models.Employee, error) {
	return r.get(func(e models.Employee) bool { return e.ID == id })
}

func (r *memEmployees) GetByIDForUpdate(ctx context.Context, id int64) (*models.Employee, error) {
	return r.GetByID(ctx, id)
}

func (r *memEmployees) GetByEmail(_ context.Context, email string) (*models.Employee, error) {
	return r.get(func(e models.Employee) bool { return e.Email == email })
}

func (r *memEmployees) GetByUsername(_ context.Context, username string) (*models.Employee, error) {
	return r.get(func(e models.Employee) bool { return e.Username == username })
}

func (r *memEmployees) List(context.Context) ([]*models.Employee, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []*models.Employee{}
	for id := int64(1); id <= r.st.nextID; id++ {
		if e, ok := r.st.employees[id]; ok {
			cp := e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memEmployees) Update(_ context.Context, e *models.Employee) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.employees[e.ID]; !ok {
		return common.ErrorNotFound
	}
	r.st.employees[e.ID] = *e
	return nil
}

func (r *memEmployees) Delete(_ context.Context, id int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.employees[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.st.employees, id)
	return nil
}

func (r *memEmployees) EmailTaken(_ context.Context, email string, excludeID int64) (bool, error) {
	_, err := r.get(func(e models.Employee) bool { return e.Email == email && e.ID != excludeID })
	return err == nil, nil
}

func (r *memEmployees) UsernameTaken(_ context.Context, username string, excludeID int64) (bool, error) {
	_, err := r.get(func(e models.Employee) bool { return e.Username == username && e.ID != excludeID })
	return err == nil, nil
}

func (r *memEmployees) CountAdmins(context.Context) (int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	n := 0
	for _, e := range r.st.employees {
		if e.IsAdmin {
			n++
		}
	}
	return n, nil
}

type memCores struct{ st *memStore }

func (r *memCores) Create(_ context.Context, c *models.Core) (*models.Core, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, other := range r.st.cores {
		if other.Name == c.Name {
			return nil, &common.DuplicateKeyError{Field: "name"}
		}
	}
	c.ID = r.st.id()
	r.st.cores[c.ID] = *c
	return c, nil
}

func (r *memCores) GetByID(_ context.Context, id int64) (*models.Core, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.cores[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (r *memCores) GetByIDForUpdate(ctx context.Context, id int64) (*models.Core, error) {
	return r.GetByID(ctx, id)
}

func (r *memCores) List(context.Context) ([]*models.Core, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []*models.Core{}
	for id := int64(1); id <= r.st.nextID; id++ {
		if c, ok := r.st.cores[id]; ok {
			cp := c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memCores) Update(_ context.Context, c *models.Core) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.coreUpdateErr != nil {
		return r.st.coreUpdateErr
	}
	if _, ok := r.st.cores[c.ID]; !ok {
		return common.ErrorNotFound
	}
	r.st.cores[c.ID] = *c
	return nil
}

func (r *memCores) Delete(_ context.Context, id int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.cores[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.st.cores, id)
	return nil
}

func (r *memCores) NameTaken(_ context.Context, name string, excludeID int64) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, c := range r.st.cores {
		if c.Name == name && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type memSessions struct{ st *memStore }

func (r *memSessions) Create(_ context.Context, s *models.Session) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.sessions[s.ID] = *s
	return nil
}

func (r *memSessions) Get(_ context.Context, id string) (*models.Session, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (r *memSessions) Delete(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	delete(r.st.sessions, id)
	return nil
}

func (r *memSessions) DeleteByUser(_ context.Context, userID int64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.deleteByUserErr != nil {
		return r.st.deleteByUserErr
	}
	for id, s := range r.st.sessions {
		if s.UserID == userID {
			delete(r.st.sessions, id)
		}
	}
	return nil
}

// txDB is a real database handle for dbx.WithTx; the fakes ignore it.
func txDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type harness struct {
	st        *memStore
	employees *EmployeeService
	cores     *CoreService
	auth      *AuthService
}

func newHarness(t *testing.T, db *sql.DB, coreAdmin bool) *harness {
	t.Helper()
	st := newMemStore()
	m := &fakeManager{st: st}
	sess := m.Sessions(db)
	es := NewEmployeeService(db, m, sess, logging.Nop())
	return &harness{
		st:        st,
		employees: es,
		cores:     NewCoreService(db, m, logging.Nop(), coreAdmin),
		auth:      NewAuthService(db, m, sess, es, "test-secret", time.Hour, logging.Nop()),
	}
}

// seedEmployee stores an account directly, bypassing the services.
func (h *harness) seedEmployee(t *testing.T, username string, admin bool, password string) *models.Employee {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	e := &models.Employee{
		Email: username + "@lab.org", Username: username, FirstName: username, LastName: "Test",
		Password: hash, IsAdmin: admin,
	}
	_, err = (&memEmployees{h.st}).Create(context.Background(), e)
	require.NoError(t, err)
	return e
}

func ptr[T any](v T) *T { return &v }
