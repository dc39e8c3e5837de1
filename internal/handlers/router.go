// Package handlers предоставляет HTTP handlers REST API бронирования занятий
package handlers

import (
	"net/http"

	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Ultrahd-dev/session-booking/backend/internal/auth"
	"github.com/Ultrahd-dev/session-booking/backend/internal/sessions"
	"github.com/Ultrahd-dev/session-booking/backend/internal/teachers"
	"github.com/Ultrahd-dev/session-booking/backend/internal/users"
)

// Services зависимости HTTP слоя
type Services struct {
	Auth       *auth.Service
	Users      *users.Service
	Teachers   *teachers.Service
	Sessions   *sessions.Service
	Middleware *auth.Middleware
}

// Handler обрабатывает HTTP запросы REST API
type Handler struct {
	auth     *auth.Service
	users    *users.Service
	teachers *teachers.Service
	sessions *sessions.Service
	mw       *auth.Middleware
	validate *validator.Validate
	log      logr.Logger
}

// New создает handler
func New(svc Services, log logr.Logger) *Handler {
	return &Handler{
		auth:     svc.Auth,
		users:    svc.Users,
		teachers: svc.Teachers,
		sessions: svc.Sessions,
		mw:       svc.Middleware,
		validate: newValidator(),
		log:      log.WithName("http"),
	}
}

// Routes возвращает корневой http.Handler.
// Порядок обработки: трассировка, журнал запросов, разбор токена,
// проверка доступа, маршрутизация.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)

	mux.HandleFunc("GET /api/user/{id}", h.GetUser)
	mux.HandleFunc("DELETE /api/user/{id}", h.DeleteUser)

	mux.HandleFunc("GET /api/teacher", h.ListTeachers)
	mux.HandleFunc("GET /api/teacher/{id}", h.GetTeacher)

	mux.HandleFunc("GET /api/session", h.ListSessions)
	mux.HandleFunc("POST /api/session", h.CreateSession)
	mux.HandleFunc("GET /api/session/{id}", h.GetSession)
	mux.HandleFunc("PUT /api/session/{id}", h.UpdateSession)
	mux.HandleFunc("DELETE /api/session/{id}", h.DeleteSession)
	mux.HandleFunc("POST /api/session/{id}/participate/{userId}", h.Participate)
	mux.HandleFunc("DELETE /api/session/{id}/participate/{userId}", h.Unparticipate)

	mux.HandleFunc("/", h.notFound)

	var root http.Handler = mux
	root = h.mw.RequireAuth(root)
	root = h.mw.Authenticate(root)
	root = logRequests(h.log, root)
	return otelhttp.NewHandler(root, "booking-api")
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, r, http.StatusNotFound, "No handler found for "+r.Method+" "+r.URL.Path)
}
