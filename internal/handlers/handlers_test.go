package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-test/deep"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ultrahd-dev/session-booking/backend/internal/apperr"
	"github.com/Ultrahd-dev/session-booking/backend/internal/auth"
	"github.com/Ultrahd-dev/session-booking/backend/internal/handlers"
	"github.com/Ultrahd-dev/session-booking/backend/internal/jwt"
	"github.com/Ultrahd-dev/session-booking/backend/internal/memstore"
	"github.com/Ultrahd-dev/session-booking/backend/internal/sessions"
	"github.com/Ultrahd-dev/session-booking/backend/internal/teachers"
	"github.com/Ultrahd-dev/session-booking/backend/internal/users"
)

type testAPI struct {
	t        *testing.T
	store    *memstore.Store
	handler  http.Handler
	teachers *teachers.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := logr.Discard()
	store := memstore.New()
	tokens := jwt.NewManager("handler-test-secret", time.Hour)

	userService := users.NewService(store, bcrypt.MinCost)
	teacherService := teachers.NewService(store)
	h := handlers.New(handlers.Services{
		Auth:       auth.NewService(userService, tokens, log),
		Users:      userService,
		Teachers:   teacherService,
		Sessions:   sessions.NewService(store, userService, store, log),
		Middleware: auth.NewMiddleware(tokens, userService, log),
	}, log)

	return &testAPI{t: t, store: store, handler: h.Routes(), teachers: teacherService}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				a.t.Fatal(err)
			}
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// signup регистрирует пользователя и возвращает результат входа
func (a *testAPI) signup(email, password string) auth.LoginResult {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "firstName": "John", "lastName": "Smith", "password": password,
	})
	if rec.Code != http.StatusOK {
		a.t.Fatalf("register %s: %d %s", email, rec.Code, rec.Body)
	}

	rec = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	if rec.Code != http.StatusOK {
		a.t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body)
	}
	var res auth.LoginResult
	decode(a.t, rec, &res)
	return res
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) apperr.ErrorResponse {
	t.Helper()
	var body apperr.ErrorResponse
	decode(t, rec, &body)
	return body
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "john@example.com", "firstName": "John", "lastName": "Smith", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	var msg handlers.MessageResponse
	decode(t, rec, &msg)
	if msg.Message != "User registered successfully!" {
		t.Errorf("message = %q", msg.Message)
	}

	rec = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "john@example.com", "password": "secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}

	var raw map[string]any
	decode(t, rec, &raw)
	if tok, _ := raw["token"].(string); strings.TrimSpace(tok) == "" {
		t.Error("token must not be blank")
	}
	if raw["admin"] != false {
		t.Errorf("admin = %v, want false", raw["admin"])
	}
	if raw["type"] != "Bearer" || raw["username"] != "john@example.com" {
		t.Errorf("unexpected body %v", raw)
	}
}

func TestRegisterRejections(t *testing.T) {
	api := newTestAPI(t)
	api.signup("john@example.com", "secret123")

	tests := []struct {
		name string
		body any
		msg  string
	}{
		{
			name: "duplicate email",
			body: map[string]string{"email": "john@example.com", "firstName": "Johnny", "lastName": "Smith", "password": "secret123"},
			msg:  "Error: Email is already taken!",
		},
		{
			name: "malformed json",
			body: `{"email": `,
		},
		{
			name: "short password",
			body: map[string]string{"email": "jane@example.com", "firstName": "Jane", "lastName": "Smith", "password": "123"},
		},
		{
			name: "bad email",
			body: map[string]string{"email": "not-an-email", "firstName": "Jane", "lastName": "Smith", "password": "secret123"},
		},
		{
			name: "missing first name",
			body: map[string]string{"email": "jane@example.com", "lastName": "Smith", "password": "secret123"},
		},
		{
			name: "blank first name",
			body: map[string]string{"email": "jane@example.com", "firstName": "   ", "lastName": "Smith", "password": "secret123"},
			msg:  "firstName must not be blank",
		},
		{
			name: "blank password",
			body: map[string]string{"email": "jane@example.com", "firstName": "Jane", "lastName": "Smith", "password": "      "},
			msg:  "password must not be blank",
		},
		{
			name: "trailing data",
			body: `{"email":"jane@example.com","firstName":"Jane","lastName":"Smith","password":"secret123"} trailing`,
			msg:  "Malformed JSON request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := api.store.CountUsers()
			rec := api.do(http.MethodPost, "/api/auth/register", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
			body := errorBody(t, rec)
			if tt.msg != "" && body.Message != tt.msg {
				t.Errorf("message = %q, want %q", body.Message, tt.msg)
			}
			if after := api.store.CountUsers(); after != before {
				t.Errorf("user count changed %d -> %d", before, after)
			}
		})
	}
}

func TestLoginRejections(t *testing.T) {
	api := newTestAPI(t)
	api.signup("john@example.com", "secret123")

	rec := api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "john@example.com", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: %d", rec.Code)
	}

	rec = api.do(http.MethodPost, "/api/auth/login", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body: %d", rec.Code)
	}

	rec = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "   ", "password": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank credentials: %d", rec.Code)
	}

	rec = api.do(http.MethodPost, "/api/auth/login", "", `{"email":"john@example.com","password":"secret123"} trailing`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("trailing data: %d", rec.Code)
	}
	if msg := errorBody(t, rec).Message; msg != "Malformed JSON request" {
		t.Errorf("trailing data message = %q", msg)
	}

	rec = api.do(http.MethodPost, "/api/auth/login", "", `{"email":"john@example.com","password":"secret123"}{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("second value: %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)
	john := api.signup("john@example.com", "secret123")

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/user/1"},
		{http.MethodDelete, "/api/user/1"},
		{http.MethodGet, "/api/teacher"},
		{http.MethodGet, "/api/session"},
		{http.MethodPost, "/api/session/1/participate/1"},
		{http.MethodGet, "/api/sessions"},
		{http.MethodGet, "/api/nothing/here"},
	}

	for _, p := range paths {
		for _, token := range []string{"", "INVALID.TOKEN"} {
			rec := api.do(p.method, p.path, token, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%s %s token=%q: status %d", p.method, p.path, token, rec.Code)
				continue
			}
			want := apperr.ErrorResponse{Status: 401, Error: "Unauthorized", Message: auth.UnauthorizedMessage, Path: p.path}
			if diff := deep.Equal(errorBody(t, rec), want); diff != nil {
				t.Errorf("%s %s: %v", p.method, p.path, diff)
			}
		}
	}

	if _, err := api.store.GetUserByID(context.Background(), john.ID); err != nil {
		t.Errorf("user must survive unauthenticated delete: %v", err)
	}
}

func TestGetUser(t *testing.T) {
	api := newTestAPI(t)
	john := api.signup("john@example.com", "secret123")

	rec := api.do(http.MethodGet, "/api/user/"+itoa(john.ID), john.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var raw map[string]any
	decode(t, rec, &raw)
	if raw["email"] != "john@example.com" {
		t.Errorf("email = %v", raw["email"])
	}
	if _, leaked := raw["password"]; leaked {
		t.Error("password hash must not be serialized")
	}

	if rec := api.do(http.MethodGet, "/api/user/999", john.Token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing user: %d", rec.Code)
	}
}

func TestDeleteUserOwnership(t *testing.T) {
	api := newTestAPI(t)
	john := api.signup("john@example.com", "secret123")
	alice := api.signup("alice@example.com", "secret123")
	ctx := context.Background()

	rec := api.do(http.MethodDelete, "/api/user/"+itoa(alice.ID), john.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign delete: %d", rec.Code)
	}
	if _, err := api.store.GetUserByID(ctx, alice.ID); err != nil {
		t.Fatalf("alice must not be deleted: %v", err)
	}

	if rec := api.do(http.MethodDelete, "/api/user/abc", john.Token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: %d", rec.Code)
	}
	if rec := api.do(http.MethodDelete, "/api/user/999", john.Token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing user: %d", rec.Code)
	}

	if rec := api.do(http.MethodDelete, "/api/user/"+itoa(john.ID), john.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("self delete: %d %s", rec.Code, rec.Body)
	}
	if _, err := api.store.GetUserByID(ctx, john.ID); err == nil {
		t.Error("john must be deleted")
	}

	// Токен удаленного пользователя больше не дает доступа
	if rec := api.do(http.MethodGet, "/api/teacher", john.Token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted user's token: %d", rec.Code)
	}
}

func TestNonNumericIDsNeverReachStore(t *testing.T) {
	api := newTestAPI(t)
	john := api.signup("john@example.com", "secret123")

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/teacher/abc"},
		{http.MethodGet, "/api/session/abc"},
		{http.MethodDelete, "/api/session/1.5"},
		{http.MethodPost, "/api/session/abc/participate/1"},
		{http.MethodDelete, "/api/session/1/participate/xyz"},
	}

	for _, p := range paths {
		// Единственное обращение к хранилищу: поиск пользователя по токену
		req := httptest.NewRequest(p.method, p.path, nil)
		req.Header.Set("Authorization", "Bearer "+john.Token)

		before := api.store.Calls()
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status %d", p.method, p.path, rec.Code)
		}
		if got := api.store.Calls() - before; got != 1 {
			t.Errorf("%s %s: %d store calls, want only the principal lookup", p.method, p.path, got)
		}
	}
}

func TestTeachers(t *testing.T) {
	api := newTestAPI(t)
	john := api.signup("john@example.com", "secret123")

	rec := api.do(http.MethodGet, "/api/teacher", john.Token, nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list: %d %s", rec.Code, rec.Body)
	}

	teacher, err := api.teachers.Create(context.Background(), "Margot", "DELAHAYE")
	if err != nil {
		t.Fatal(err)
	}

	rec = api.do(http.MethodGet, "/api/teacher/"+itoa(teacher.ID), john.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	var got teachers.Teacher
	decode(t, rec, &got)
	if got.FirstName != "Margot" || got.LastName != "DELAHAYE" {
		t.Errorf("unexpected teacher %+v", got)
	}

	if rec := api.do(http.MethodGet, "/api/teacher/999", john.Token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing teacher: %d", rec.Code)
	}
}

func (a *testAPI) createSession(token string, body map[string]any) sessions.Session {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/session", token, body)
	if rec.Code != http.StatusOK {
		a.t.Fatalf("create session: %d %s", rec.Code, rec.Body)
	}
	var s sessions.Session
	decode(a.t, rec, &s)
	return s
}

func TestSessionCRUD(t *testing.T) {
	api := newTestAPI(t)
	john := api.signup("john@example.com", "secret123")
	teacher, _ := api.teachers.Create(context.Background(), "Margot", "DELAHAYE")

	created := api.createSession(john.Token, map[string]any{
		"name": "Yoga", "description": "Morning class", "date": "2025-01-01T10:00:00", "teacher_id": teacher.ID,
	})
	if created.ID == 0 || created.TeacherID == nil || *created.TeacherID != teacher.ID {
		t.Fatalf("unexpected session %+v", created)
	}
	if want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC); !created.Date.Equal(want) {
		t.Errorf("date = %v, want %v", created.Date, want)
	}

	rec := api.do(http.MethodPut, "/api/session/"+itoa(created.ID), john.Token, map[string]any{
		"name": "Pilates", "description": "Evening class", "date": "2025-02-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body)
	}

	rec = api.do(http.MethodGet, "/api/session/"+itoa(created.ID), john.Token, nil)
	var got sessions.Session
	decode(t, rec, &got)
	if got.Name != "Pilates" || got.TeacherID != nil {
		t.Errorf("update not applied: %+v", got)
	}

	rec = api.do(http.MethodGet, "/api/session", john.Token, nil)
	var list []sessions.Session
	decode(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("list has %d sessions", len(list))
	}

	if rec := api.do(http.MethodDelete, "/api/session/"+itoa(created.ID), john.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := api.do(http.MethodGet, "/api/session/"+itoa(created.ID), john.Token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rec.Code)
	}
	if rec := api.do(http.MethodPut, "/api/session/999", john.Token, map[string]any{
		"name": "x", "description": "y", "date": "2025-02-01",
	}); rec.Code != http.StatusNotFound {
		t.Errorf("update missing: %d", rec.Code)
	}
}

func TestSessionDateLayouts(t *testing.T) {
	api := newTestAPI(t)
	john := api.signup("john@example.com", "secret123")

	tests := []struct {
		date string
		want time.Time
	}{
		{"2025-01-01T10:00:00Z", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2025-01-01T12:00:00+02:00", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2025-01-01T10:00:00", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2025-01-01", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-01-01 10:00:00", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"Wed, 01 Jan 2025 10:00:00 +0000", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/session", john.Token, map[string]any{"name": "Yoga", "description": "d", "date": tt.date})
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d (%s)", rec.Code, rec.Body)
			}
			var s sessions.Session
			decode(t, rec, &s)
			if !s.Date.Equal(tt.want) {
				t.Errorf("date = %v, want %v", s.Date, tt.want)
			}
		})
	}
}

func TestCreateSessionRejections(t *testing.T) {
	api := newTestAPI(t)
	john := api.signup("john@example.com", "secret123")

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing name", map[string]any{"description": "d", "date": "2025-01-01"}, http.StatusBadRequest},
		{"name too long", map[string]any{"name": strings.Repeat("n", 51), "description": "d", "date": "2025-01-01"}, http.StatusBadRequest},
		{"bad date", map[string]any{"name": "Yoga", "description": "d", "date": "tomorrow"}, http.StatusBadRequest},
		{"blank name", map[string]any{"name": "  ", "description": "d", "date": "2025-01-01"}, http.StatusBadRequest},
		{"unknown teacher", map[string]any{"name": "Yoga", "description": "d", "date": "2025-01-01", "teacher_id": 42}, http.StatusNotFound},
		{"unknown participant", map[string]any{"name": "Yoga", "description": "d", "date": "2025-01-01", "users": []int64{42}}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := api.do(http.MethodPost, "/api/session", john.Token, tt.body); rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
		})
	}
}

func TestParticipation(t *testing.T) {
	api := newTestAPI(t)
	john := api.signup("john@example.com", "secret123")
	s := api.createSession(john.Token, map[string]any{"name": "Yoga", "description": "d", "date": "2025-01-01"})
	path := "/api/session/" + itoa(s.ID) + "/participate/" + itoa(john.ID)

	if rec := api.do(http.MethodPost, path, john.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("first participate: %d %s", rec.Code, rec.Body)
	}
	if rec := api.do(http.MethodPost, path, john.Token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("second participate: %d", rec.Code)
	}

	got, _ := api.store.GetSessionByID(context.Background(), s.ID)
	if diff := deep.Equal(got.Users, []int64{john.ID}); diff != nil {
		t.Errorf("roster: %v", diff)
	}

	if rec := api.do(http.MethodDelete, path, john.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("unparticipate: %d", rec.Code)
	}
	if rec := api.do(http.MethodDelete, path, john.Token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unparticipate twice: %d", rec.Code)
	}

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"participate missing session", http.MethodPost, "/api/session/999/participate/" + itoa(john.ID), http.StatusNotFound},
		{"participate missing user", http.MethodPost, "/api/session/" + itoa(s.ID) + "/participate/999", http.StatusNotFound},
		{"unparticipate missing session", http.MethodDelete, "/api/session/999/participate/" + itoa(john.ID), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := api.do(tt.method, tt.path, john.Token, nil); rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestUnknownAuthenticatedRoute(t *testing.T) {
	api := newTestAPI(t)
	john := api.signup("john@example.com", "secret123")

	rec := api.do(http.MethodGet, "/api/sessions", john.Token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := errorBody(t, rec); body.Path != "/api/sessions" || body.Status != 404 {
		t.Errorf("unexpected body %+v", body)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
