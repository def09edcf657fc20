package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anuragpardeshii/MediCare/internal/auth"
	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/internal/event"
	"github.com/anuragpardeshii/MediCare/internal/service"
	apperrors "github.com/anuragpardeshii/MediCare/pkg/errors"
	pkgkafka "github.com/anuragpardeshii/MediCare/pkg/kafka"
	"github.com/anuragpardeshii/MediCare/pkg/middleware"
)

// memDB is an in-memory store that enforces email uniqueness under a mutex,
// the way the users.email UNIQUE constraint does in Postgres.
type memDB struct {
	mu           sync.Mutex
	users        map[string]domain.User
	byEmail      map[string]string
	appointments map[string]domain.Appointment

	userLookups atomic.Int64
	// lookupErr, when set, fails every GetByID as a broken connection would.
	lookupErr atomic.Pointer[error]
}

func newMemDB() *memDB {
	return &memDB{
		users:        make(map[string]domain.User),
		byEmail:      make(map[string]string),
		appointments: make(map[string]domain.Appointment),
	}
}

func paginate[T any](items []T, page, perPage int) []T {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	return items[start:min(start+perPage, len(items))]
}

type memUserRepo struct{ db *memDB }

func (r memUserRepo) Create(_ context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.byEmail[u.Email]; ok {
		return apperrors.AlreadyExists("user", "email", u.Email)
	}
	r.db.users[u.ID] = *u
	r.db.byEmail[u.Email] = u.ID
	return nil
}

func (r memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.db.userLookups.Add(1)
	if err := r.db.lookupErr.Load(); err != nil {
		return nil, *err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return &u, nil
}

func (r memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, ok := r.db.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("user", email)
	}
	u := r.db.users[id]
	return &u, nil
}

func (r memUserRepo) List(_ context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.User
	q := strings.ToLower(f.Query)
	for _, u := range r.db.users {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Name), q) &&
			(u.Specialization == nil || !strings.Contains(strings.ToLower(*u.Specialization), q)) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return paginate(out, f.Page, f.PerPage), len(out), nil
}

func (r memUserRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	delete(r.db.users, id)
	delete(r.db.byEmail, u.Email)
	for aid, a := range r.db.appointments {
		if a.UserID == id {
			delete(r.db.appointments, aid)
		}
	}
	return nil
}

type memAppointmentRepo struct{ db *memDB }

func (r memAppointmentRepo) Create(_ context.Context, a *domain.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.appointments[a.ID] = *a
	return nil
}

func (r memAppointmentRepo) GetByID(_ context.Context, id string) (*domain.Appointment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", id)
	}
	return &a, nil
}

func (r memAppointmentRepo) List(_ context.Context, f domain.AppointmentFilter) ([]domain.Appointment, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Appointment
	for _, a := range r.db.appointments {
		if f.UserID == "" || a.UserID == f.UserID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return paginate(out, f.Page, f.PerPage), len(out), nil
}

func (r memAppointmentRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.appointments[id]; !ok {
		return apperrors.NotFound("appointment", id)
	}
	delete(r.db.appointments, id)
	return nil
}

// testServer is the full router over in-memory storage.
type testServer struct {
	*httptest.Server
	db *memDB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := testLogger()
	db := newMemDB()
	users := memUserRepo{db: db}
	appts := memAppointmentRepo{db: db}

	tokens := auth.NewTokenManager("test-secret-with-enough-length-for-hs256", time.Hour)
	cookie := auth.NewSessionCookie(tokens.Expiry(), false)
	events := event.NewProducer(pkgkafka.NopPublisher{}, logger)

	authSvc := service.NewAuthService(users, auth.NewPasswordHasher(4), tokens, events, logger)
	userSvc := service.NewUserService(users, logger)
	apptSvc := service.NewAppointmentService(appts, events, logger)

	router := NewRouter(RouterConfig{
		Auth:         NewAuthHandler(authSvc, cookie, logger),
		Users:        NewUserHandler(userSvc, logger),
		Appointments: NewAppointmentHandler(apptSvc, logger),
		Sessions:     authSvc,
		Cookie:       cookie,
		CORS:         middleware.DefaultCORSConfig([]string{"http://localhost:5173"}, "test"),
		Logger:       logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, db: db}
}

// do sends a request with an optional JSON body and session token.
func (s *testServer) do(t *testing.T, method, path, body, token string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
