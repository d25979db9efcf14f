package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fstt-incidents/api/handlers"
	"fstt-incidents/config"
	"fstt-incidents/core/rbac"
	"fstt-incidents/core/session"
	"fstt-incidents/core/store"
	"fstt-incidents/core/utils"
	"fstt-incidents/gui"
)

type Server struct {
	cfg         *config.AppConfig
	logger      *utils.Logger
	users       store.UsersStore
	departments store.DepartmentsStore
	incidents   store.IncidentsStore
	audits      store.AuditStore
	sessions    *session.Manager
	policy      *rbac.Policy
	guard       *handlers.Guard

	loginLimiter *requestLimiter
}

func NewServer(cfg *config.AppConfig, logger *utils.Logger, users store.UsersStore, departments store.DepartmentsStore, incidents store.IncidentsStore, audits store.AuditStore, sessions *session.Manager, policy *rbac.Policy) *Server {
	return &Server{
		cfg:          cfg,
		logger:       logger,
		users:        users,
		departments:  departments,
		incidents:    incidents,
		audits:       audits,
		sessions:     sessions,
		policy:       policy,
		guard:        handlers.NewGuard(sessions, users, policy),
		loginLimiter: newLimiter(10, time.Minute),
	}
}

type routeHandlers struct {
	auth      *handlers.AuthHandler
	incidents *handlers.IncidentsHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		auth:      handlers.NewAuthHandler(s.cfg, s.users, s.departments, s.sessions, s.audits, s.logger),
		incidents: handlers.NewIncidentsHandler(s.cfg, s.incidents, s.departments, s.sessions, s.guard, s.audits, s.logger),
	}
}

func (s *Server) Routes() http.Handler {
	h := s.newRouteHandlers()

	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.headersMiddleware)

	r.MethodFunc(http.MethodGet, "/", h.auth.LoginPage)
	r.MethodFunc(http.MethodPost, "/login", s.rateLimitMiddleware(h.auth.Login))
	r.MethodFunc(http.MethodGet, "/logout", h.auth.Logout)
	r.MethodFunc(http.MethodGet, "/logout-complete", h.auth.LogoutComplete)
	r.MethodFunc(http.MethodGet, "/check-session/{user_id:[0-9]+}", h.auth.CheckSession)
	r.MethodFunc(http.MethodGet, "/register", h.auth.RegisterPage)
	r.MethodFunc(http.MethodPost, "/register", h.auth.Register)

	r.MethodFunc(http.MethodGet, "/prof/{user_id:[0-9]+}", h.incidents.ProfDashboard)
	r.MethodFunc(http.MethodPost, "/prof/signaler/{user_id:[0-9]+}", h.incidents.Report)
	r.MethodFunc(http.MethodGet, "/admin/{user_id:[0-9]+}", h.incidents.AdminDashboard)
	r.MethodFunc(http.MethodPost, "/admin/update/{inc_id:[0-9]+}", h.incidents.UpdateStatus)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(gui.StaticFS()))))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.Uploads.Dir))))

	return r
}
