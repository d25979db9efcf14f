package handlers

import (
	"net/http"

	"fstt-incidents/core/rbac"
	"fstt-incidents/core/session"
	"fstt-incidents/core/store"
)

const SessionCookieName = "session_token"

type AuthStatus int

const (
	AuthOK AuthStatus = iota
	AuthUnauthenticated
	AuthForbidden
	AuthNotFound
)

// AuthResult is the single outcome type for per-request authorization.
// View routes map every non-OK status to a login redirect; mutating
// admin routes answer Forbidden with 403 and NotFound with 404.
type AuthResult struct {
	Status AuthStatus
	Token  string
	User   *store.User
}

// Guard runs the authorization state machine shared by all gated
// routes: cookie -> session validation -> user load -> role check.
type Guard struct {
	sessions *session.Manager
	users    store.UsersStore
	policy   *rbac.Policy
}

func NewGuard(sessions *session.Manager, users store.UsersStore, policy *rbac.Policy) *Guard {
	return &Guard{sessions: sessions, users: users, policy: policy}
}

func (g *Guard) Check(r *http.Request, expectedUserID int64, perm rbac.Permission) AuthResult {
	token := sessionToken(r)
	ok, sess := g.sessions.Validate(token, expectedUserID)
	if !ok || sess == nil {
		return AuthResult{Status: AuthUnauthenticated}
	}
	user, err := g.users.GetByID(r.Context(), expectedUserID)
	if err != nil || user == nil {
		return AuthResult{Status: AuthUnauthenticated}
	}
	if !g.policy.Allowed(user.Role, perm) {
		return AuthResult{Status: AuthForbidden, Token: token, User: user}
	}
	return AuthResult{Status: AuthOK, Token: token, User: user}
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
