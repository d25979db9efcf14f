package handlers

import (
	"net/http"
	"strings"

	"fstt-incidents/config"
	"fstt-incidents/core/rbac"
	"fstt-incidents/core/session"
	"fstt-incidents/core/store"
	"fstt-incidents/core/utils"
	"fstt-incidents/gui"
)

// Room for the text fields and multipart framing around the image.
const reportFormSlack = 64 << 10

type IncidentsHandler struct {
	cfg         *config.AppConfig
	incidents   store.IncidentsStore
	departments store.DepartmentsStore
	sessions    *session.Manager
	guard       *Guard
	audits      store.AuditStore
	logger      *utils.Logger
}

func NewIncidentsHandler(cfg *config.AppConfig, incidents store.IncidentsStore, departments store.DepartmentsStore, sessions *session.Manager, guard *Guard, audits store.AuditStore, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{cfg: cfg, incidents: incidents, departments: departments, sessions: sessions, guard: guard, audits: audits, logger: logger}
}

func (h *IncidentsHandler) ProfDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "user_id")
	if !ok {
		redirectToLogin(w, r)
		return
	}
	res := h.guard.Check(r, userID, rbac.PermDashboardProf)
	if res.Status != AuthOK {
		redirectToLogin(w, r)
		return
	}
	pageToken, err := h.sessions.CreatePageToken(res.Token)
	if err != nil {
		redirectToLogin(w, r)
		return
	}
	incidents, err := h.incidents.ListByProf(r.Context(), userID)
	if err != nil {
		h.logger.Errorf("prof dashboard list for %d: %v", userID, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := gui.Render(w, "prof.html", map[string]any{
		"UserID":    userID,
		"PageToken": pageToken,
		"Incidents": incidents,
		"Error":     r.URL.Query().Get("error"),
	}); err != nil {
		h.logger.Errorf("render prof: %v", err)
	}
}

// Report handles the incident form. This is the single place where the
// page token is enforced: a submission from a page older than the last
// dashboard load is treated as stale and bounced back.
func (h *IncidentsHandler) Report(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "user_id")
	if !ok {
		redirectToLogin(w, r)
		return
	}
	res := h.guard.Check(r, userID, rbac.PermReport)
	if res.Status != AuthOK {
		redirectToLogin(w, r)
		return
	}
	// Cap the body before parsing so an oversized upload is cut off at
	// the limit instead of being spooled to disk and rejected after.
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Uploads.MaxBytes+reportFormSlack)
	if err := r.ParseMultipartForm(h.cfg.Uploads.MaxBytes); err != nil {
		http.Redirect(w, r, "/prof/"+itoa(userID)+"?error=upload", http.StatusSeeOther)
		return
	}
	sess := h.sessions.Current(res.Token)
	if sess == nil || sess.PageToken == "" || sess.PageToken != r.FormValue("page_token") {
		http.Redirect(w, r, "/prof/"+itoa(userID)+"?error=stale", http.StatusSeeOther)
		return
	}
	if res.User.DepartementID == nil {
		http.Error(w, "professeur sans département assigné", http.StatusBadRequest)
		return
	}
	typeInc := strings.TrimSpace(r.FormValue("type_inc"))
	salle := strings.TrimSpace(r.FormValue("salle"))
	desc := strings.TrimSpace(r.FormValue("desc"))
	if typeInc == "" || salle == "" || desc == "" {
		http.Error(w, "champs requis manquants", http.StatusBadRequest)
		return
	}

	var imagePath *string
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		path, err := saveUpload(h.cfg, file, header)
		if err != nil {
			h.logger.Printf("UPLOAD rejected user=%d: %v", userID, err)
			http.Redirect(w, r, "/prof/"+itoa(userID)+"?error=upload", http.StatusSeeOther)
			return
		}
		imagePath = &path
	}

	inc := &store.Incident{
		TypeInc:       typeInc,
		Salle:         salle,
		Description:   desc,
		ImagePath:     imagePath,
		ProfID:        userID,
		DepartementID: *res.User.DepartementID,
	}
	if _, err := h.incidents.Create(r.Context(), inc); err != nil {
		h.logger.Errorf("incident create for %d: %v", userID, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.audits.Log(r.Context(), res.User.Username, "incident.create", inc.TypeInc+" "+inc.Salle)
	http.Redirect(w, r, "/prof/"+itoa(userID), http.StatusSeeOther)
}

func (h *IncidentsHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "user_id")
	if !ok {
		redirectToLogin(w, r)
		return
	}
	res := h.guard.Check(r, userID, rbac.PermDashboardAdmin)
	if res.Status != AuthOK || res.User.ChefDepartementID == nil {
		redirectToLogin(w, r)
		return
	}
	dep, err := h.departments.GetByID(r.Context(), *res.User.ChefDepartementID)
	if err != nil || dep == nil {
		h.logger.Errorf("admin dashboard departement for %d: %v", userID, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	pageToken, err := h.sessions.CreatePageToken(res.Token)
	if err != nil {
		redirectToLogin(w, r)
		return
	}
	incidents, err := h.incidents.ListByDepartement(r.Context(), dep.ID)
	if err != nil {
		h.logger.Errorf("admin dashboard list for %d: %v", userID, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	journal, err := h.audits.List(r.Context(), 20)
	if err != nil {
		// The journal is auxiliary; the dashboard still renders.
		h.logger.Errorf("admin dashboard journal: %v", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := gui.Render(w, "admin.html", map[string]any{
		"UserID":      userID,
		"PageToken":   pageToken,
		"Departement": dep,
		"Incidents":   incidents,
		"Journal":     journal,
	}); err != nil {
		h.logger.Errorf("render admin: %v", err)
	}
}

// UpdateStatus is the hard-error route: authorization failures answer
// with 403 and a missing incident with 404, never a silent redirect.
func (h *IncidentsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	incID, ok := pathID(r, "inc_id")
	if !ok {
		http.Error(w, "incident non trouvé", http.StatusNotFound)
		return
	}
	adminID, ok := pathIDFromForm(r, "admin_id")
	if !ok {
		redirectToLogin(w, r)
		return
	}
	res := h.guard.Check(r, adminID, rbac.PermManage)
	if res.Status == AuthUnauthenticated {
		redirectToLogin(w, r)
		return
	}
	if res.Status != AuthOK || res.User.ChefDepartementID == nil {
		http.Error(w, "accès non autorisé", http.StatusForbidden)
		return
	}
	newStatus := strings.TrimSpace(r.FormValue("new_status"))
	if !store.ValidStatus(newStatus) {
		http.Error(w, "statut invalide", http.StatusBadRequest)
		return
	}
	inc, err := h.incidents.GetByID(r.Context(), incID)
	if err != nil {
		h.logger.Errorf("incident get %d: %v", incID, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if inc == nil {
		http.Error(w, "incident non trouvé", http.StatusNotFound)
		return
	}
	if inc.DepartementID != *res.User.ChefDepartementID {
		http.Error(w, "accès non autorisé", http.StatusForbidden)
		return
	}
	var commentaire *string
	if c := strings.TrimSpace(r.FormValue("commentaire")); c != "" {
		commentaire = &c
	}
	if err := h.incidents.UpdateStatus(r.Context(), incID, newStatus, commentaire); err != nil {
		h.logger.Errorf("incident update %d: %v", incID, err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.audits.Log(r.Context(), res.User.Username, "incident.status_change", inc.Statut+" -> "+newStatus)
	http.Redirect(w, r, "/admin/"+itoa(adminID), http.StatusSeeOther)
}
