package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"fstt-incidents/config"
	"fstt-incidents/core/auth"
	"fstt-incidents/core/rbac"
	"fstt-incidents/core/session"
	"fstt-incidents/core/store"
	"fstt-incidents/core/utils"
	"fstt-incidents/gui"
)

type AuthHandler struct {
	cfg         *config.AppConfig
	users       store.UsersStore
	departments store.DepartmentsStore
	sessions    *session.Manager
	audits      store.AuditStore
	logger      *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, users store.UsersStore, departments store.DepartmentsStore, sessions *session.Manager, audits store.AuditStore, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, departments: departments, sessions: sessions, audits: audits, logger: logger}
}

// LoginPage destroys any session the visitor still holds: landing on
// the login form always means starting over.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		h.sessions.Invalidate(token)
	}
	clearSessionCookie(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := gui.Render(w, "login.html", map[string]any{
		"Error":      r.URL.Query().Get("error") != "",
		"Registered": r.URL.Query().Get("registered") != "",
	}); err != nil {
		h.logger.Errorf("render login: %v", err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	password := r.FormValue("password")
	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		h.logger.Errorf("login lookup %s: %v", username, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if user == nil || !auth.VerifyPassword(password, user.HashedPassword) {
		h.audits.Log(r.Context(), username, "auth.login_failed", "")
		http.Redirect(w, r, "/?error=1", http.StatusSeeOther)
		return
	}
	token, err := h.sessions.Create(user.ID)
	if err != nil {
		h.logger.Errorf("login session create for %s: %v", username, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	setSessionCookie(w, token, int(h.cfg.EffectiveSessionTTL().Seconds()))
	h.audits.Log(r.Context(), username, "auth.login_success", "")
	if user.Role == rbac.RoleChef {
		http.Redirect(w, r, "/admin/"+itoa(user.ID), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/prof/"+itoa(user.ID), http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		h.sessions.Invalidate(token)
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/logout-complete", http.StatusSeeOther)
}

// LogoutComplete is the interstitial page that keeps the browser's
// back button from landing on a cached dashboard.
func (h *AuthHandler) LogoutComplete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := gui.Render(w, "logout_complete.html", nil); err != nil {
		h.logger.Errorf("render logout: %v", err)
	}
}

func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	userID, ok := pathID(r, "user_id")
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"valid": false})
		return
	}
	valid, _ := h.sessions.Validate(sessionToken(r), userID)
	if !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"valid": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	departements, err := h.departments.List(r.Context())
	if err != nil {
		h.logger.Errorf("list departements: %v", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := gui.Render(w, "register.html", map[string]any{
		"Error":        r.URL.Query().Get("error"),
		"Departements": departements,
	}); err != nil {
		h.logger.Errorf("render register: %v", err)
	}
}

// Register creates a user. Every failure goes back to the form with an
// error flag instead of surfacing an error page.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	password := r.FormValue("password")
	role := strings.TrimSpace(r.FormValue("role"))
	nomComplet := strings.TrimSpace(r.FormValue("nom_complet"))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))

	if utils.ValidateUsername(username) != nil ||
		utils.ValidatePassword(password) != nil ||
		utils.ValidateEmail(email) != nil ||
		!rbac.ValidRole(role) {
		http.Redirect(w, r, "/register?error=invalid", http.StatusSeeOther)
		return
	}
	depID, ok := pathIDFromForm(r, "departement_id")
	if !ok {
		http.Redirect(w, r, "/register?error=invalid", http.StatusSeeOther)
		return
	}
	dep, err := h.departments.GetByID(r.Context(), depID)
	if err != nil || dep == nil {
		http.Redirect(w, r, "/register?error=invalid", http.StatusSeeOther)
		return
	}

	exists, err := h.users.ExistsUsername(r.Context(), username)
	if err != nil {
		h.logger.Errorf("register username check %s: %v", username, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Redirect(w, r, "/register?error=exists", http.StatusSeeOther)
		return
	}
	exists, err = h.users.ExistsEmail(r.Context(), email)
	if err != nil {
		h.logger.Errorf("register email check %s: %v", username, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Redirect(w, r, "/register?error=email", http.StatusSeeOther)
		return
	}

	user := &store.User{
		Username:   username,
		Role:       role,
		NomComplet: nomComplet,
		Email:      email,
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		h.logger.Errorf("register hash: %v", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	user.HashedPassword = hash

	if role == rbac.RoleChef {
		hasChef, err := h.departments.HasChef(r.Context(), dep.ID)
		if err != nil {
			h.logger.Errorf("register chef check: %v", err)
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if hasChef {
			http.Redirect(w, r, "/register?error=chef", http.StatusSeeOther)
			return
		}
		user.ChefDepartementID = &dep.ID
	} else {
		user.DepartementID = &dep.ID
	}

	if _, err := h.users.Create(r.Context(), user); err != nil {
		// The uniqueness checks above race with concurrent registrations;
		// the DB constraints are the source of truth.
		if errors.Is(err, store.ErrDuplicate) {
			flag := "exists"
			if role == rbac.RoleChef {
				flag = "chef"
			}
			http.Redirect(w, r, "/register?error="+flag, http.StatusSeeOther)
			return
		}
		h.logger.Errorf("register create %s: %v", username, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.audits.Log(r.Context(), username, "auth.registered", "role="+role)
	http.Redirect(w, r, "/?registered=1", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
