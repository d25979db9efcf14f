package tests

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"fstt-incidents/api"
	"fstt-incidents/config"
	"fstt-incidents/core/auth"
	"fstt-incidents/core/rbac"
	"fstt-incidents/core/session"
	"fstt-incidents/core/store"
	"fstt-incidents/core/utils"
)

type app struct {
	srv         *httptest.Server
	users       store.UsersStore
	departments store.DepartmentsStore
	incidents   store.IncidentsStore
}

func setupApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		DBDriver:   "sqlite",
		DBURL:      filepath.Join(dir, "incidents.db"),
		SessionTTL: 24 * time.Hour,
		Uploads:    config.UploadsConfig{Dir: filepath.Join(dir, "uploads"), MaxBytes: 1 << 20},
	}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, cfg.DBDriver, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	users := store.NewUsersStore(db)
	departments := store.NewDepartmentsStore(db)
	incidents := store.NewIncidentsStore(db)
	audits := store.NewAuditStore(db)
	if err := store.Seed(context.Background(), departments, users, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}
	sessions := session.NewManager(session.NewMemoryStore(), cfg, logger)
	policy, err := rbac.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	server := api.NewServer(cfg, logger, users, departments, incidents, audits, sessions, policy)
	srv := httptest.NewServer(server.Routes())
	t.Cleanup(srv.Close)
	return &app{srv: srv, users: users, departments: departments, incidents: incidents}
}

// newClient returns an http.Client with a cookie jar that does not
// follow redirects, so tests can assert on 303 responses directly.
func (a *app) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *app) login(t *testing.T, client *http.Client, username, password string) string {
	t.Helper()
	resp, err := client.PostForm(a.srv.URL+"/login", url.Values{
		"username": {username},
		"password": {password},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status %d, want 303", resp.StatusCode)
	}
	return resp.Header.Get("Location")
}

func (a *app) get(t *testing.T, client *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(a.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp, string(body)
}

var pageTokenRe = regexp.MustCompile(`name="page_token" value="([^"]+)"`)

func pageToken(t *testing.T, body string) string {
	t.Helper()
	m := pageTokenRe.FindStringSubmatch(body)
	if m == nil {
		t.Fatal("no page token in page")
	}
	return m[1]
}

func TestLoginLogoutFlow(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)

	loc := a.login(t, client, "prof1", "123")
	if !strings.HasPrefix(loc, "/prof/") {
		t.Fatalf("professor redirected to %q", loc)
	}
	userID := strings.TrimPrefix(loc, "/prof/")

	resp, _ := a.get(t, client, "/check-session/"+userID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check-session after login: %d", resp.StatusCode)
	}

	resp, _ = a.get(t, client, "/logout")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/logout-complete" {
		t.Fatalf("logout: %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, _ = a.get(t, client, "/check-session/"+userID)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("check-session after logout: %d, want 401", resp.StatusCode)
	}
}

func TestWrongPasswordRedirectsWithError(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)
	resp, err := client.PostForm(a.srv.URL+"/login", url.Values{
		"username": {"prof1"},
		"password": {"wrong"},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || !strings.Contains(resp.Header.Get("Location"), "error=1") {
		t.Fatalf("got %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestChefLandsOnAdminDashboard(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)
	loc := a.login(t, client, "chef1", "123")
	if !strings.HasPrefix(loc, "/admin/") {
		t.Fatalf("chef redirected to %q", loc)
	}
	resp, body := a.get(t, client, loc)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin dashboard: %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Informatique") {
		t.Fatal("admin dashboard does not name the departement")
	}
	// The login just performed must already appear in the journal.
	if !strings.Contains(body, "auth.login_success") {
		t.Fatal("admin dashboard does not show the activity journal")
	}
}

func TestRegisterThenReportIncident(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)

	info, err := a.departments.GetByCode(context.Background(), "INFO")
	if err != nil || info == nil {
		t.Fatalf("INFO departement: %v", err)
	}
	resp, err := client.PostForm(a.srv.URL+"/register", url.Values{
		"username":       {"p.nouveau"},
		"password":       {"123"},
		"nom_complet":    {"Nouveau Prof"},
		"email":          {"p.nouveau@fstt.ac.ma"},
		"role":           {"professeur"},
		"departement_id": {itoa(info.ID)},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || !strings.Contains(resp.Header.Get("Location"), "registered=1") {
		t.Fatalf("register: %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	loc := a.login(t, client, "p.nouveau", "123")
	_, body := a.get(t, client, loc)
	token := pageToken(t, body)

	resp = a.postIncident(t, client, loc, token, "Vidéoprojecteur", "A101", "ne s'allume plus")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != loc {
		t.Fatalf("report: %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	_, body = a.get(t, client, loc)
	if !strings.Contains(body, "Vidéoprojecteur") || !strings.Contains(body, "En attente") {
		t.Fatal("dashboard does not show the new incident as pending")
	}
}

func (a *app) postIncident(t *testing.T, client *http.Client, profPath, token, typeInc, salle, desc string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, val := range map[string]string{
		"page_token": token,
		"type_inc":   typeInc,
		"salle":      salle,
		"desc":       desc,
	} {
		if err := mw.WriteField(field, val); err != nil {
			t.Fatalf("form field %s: %v", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	userID := strings.TrimPrefix(profPath, "/prof/")
	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/prof/signaler/"+userID, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestStalePageTokenRejected(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)
	loc := a.login(t, client, "prof1", "123")

	_, body := a.get(t, client, loc)
	stale := pageToken(t, body)
	// A fresh dashboard load supersedes the token already held.
	a.get(t, client, loc)

	resp := a.postIncident(t, client, loc, stale, "PC", "B12", "clavier mort")
	if resp.StatusCode != http.StatusSeeOther || !strings.Contains(resp.Header.Get("Location"), "error=stale") {
		t.Fatalf("stale submit: %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	prof, _ := a.users.GetByUsername(context.Background(), "prof1")
	incidents, err := a.incidents.ListByProf(context.Background(), prof.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(incidents) != 0 {
		t.Fatalf("stale submission created %d incidents", len(incidents))
	}
}

func TestProfessorWithoutDepartementCannotReport(t *testing.T) {
	a := setupApp(t)
	ctx := context.Background()
	orphan := &store.User{
		Username: "p.orphan", HashedPassword: auth.MustHashPassword("123"),
		Role: rbac.RoleProfesseur, NomComplet: "Sans Département",
		Email: "p.orphan@fstt.ac.ma",
	}
	if _, err := a.users.Create(ctx, orphan); err != nil {
		t.Fatalf("create user: %v", err)
	}

	client := a.newClient(t)
	loc := a.login(t, client, "p.orphan", "123")
	_, body := a.get(t, client, loc)
	token := pageToken(t, body)

	resp := a.postIncident(t, client, loc, token, "PC", "A1", "x")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("orphan report: %d, want 400", resp.StatusCode)
	}
	incidents, err := a.incidents.ListByProf(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(incidents) != 0 {
		t.Fatal("orphan professor created an incident")
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func TestOversizedUploadBodyIsCutOff(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)
	loc := a.login(t, client, "prof1", "123")
	_, body := a.get(t, client, loc)
	token := pageToken(t, body)

	// 8 MiB file against the 1 MiB test cap.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, val := range map[string]string{
		"page_token": token,
		"type_inc":   "PC",
		"salle":      "A1",
		"desc":       "x",
	} {
		if err := mw.WriteField(field, val); err != nil {
			t.Fatalf("form field %s: %v", field, err)
		}
	}
	part, err := mw.CreateFormFile("image", "photo.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte{0}, 8<<20)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	total := int64(buf.Len())

	cr := &countingReader{r: &buf}
	userID := strings.TrimPrefix(loc, "/prof/")
	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/prof/signaler/"+userID, cr)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = total

	// The server may close the connection once the limit trips, so a
	// transport error is as acceptable as the redirect.
	if resp, err := client.Do(req); err == nil {
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("oversized upload: %d, want 303", resp.StatusCode)
		}
	}

	if cr.n >= total {
		t.Fatalf("server consumed the full %d-byte body", total)
	}
	prof, _ := a.users.GetByUsername(context.Background(), "prof1")
	incidents, err := a.incidents.ListByProf(context.Background(), prof.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(incidents) != 0 {
		t.Fatal("oversized upload created an incident")
	}
}

func TestChefCannotTouchOtherDepartement(t *testing.T) {
	a := setupApp(t)
	ctx := context.Background()

	math, err := a.departments.GetByCode(ctx, "MATH")
	if err != nil || math == nil {
		t.Fatalf("MATH departement: %v", err)
	}
	info, _ := a.departments.GetByCode(ctx, "INFO")
	prof, _ := a.users.GetByUsername(ctx, "prof1")
	incID, err := a.incidents.Create(ctx, &store.Incident{
		TypeInc: "Climatiseur", Salle: "C3", Description: "fuite",
		ProfID: prof.ID, DepartementID: info.ID,
	})
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}

	chefMath := &store.User{
		Username: "chef.math", HashedPassword: auth.MustHashPassword("123"),
		Role: rbac.RoleChef, NomComplet: "Chef Math",
		Email: "chef.math@fstt.ac.ma", ChefDepartementID: &math.ID,
	}
	if _, err := a.users.Create(ctx, chefMath); err != nil {
		t.Fatalf("create chef: %v", err)
	}

	client := a.newClient(t)
	a.login(t, client, "chef.math", "123")
	resp := a.postUpdate(t, client, incID, chefMath.ID, store.StatusInProgress, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-departement update: %d, want 403", resp.StatusCode)
	}

	inc, _ := a.incidents.GetByID(ctx, incID)
	if inc.Statut != store.StatusPending {
		t.Fatalf("incident mutated to %q", inc.Statut)
	}

	// The department's own chef succeeds.
	own := a.newClient(t)
	a.login(t, own, "chef1", "123")
	chef, _ := a.users.GetByUsername(ctx, "chef1")
	resp = a.postUpdate(t, own, incID, chef.ID, store.StatusInProgress, "technicien prévenu")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("own-departement update: %d, want 303", resp.StatusCode)
	}
	inc, _ = a.incidents.GetByID(ctx, incID)
	if inc.Statut != store.StatusInProgress || inc.CommentaireChef == nil {
		t.Fatalf("update not applied: %+v", inc)
	}
}

func (a *app) postUpdate(t *testing.T, client *http.Client, incID, adminID int64, status, comment string) *http.Response {
	t.Helper()
	form := url.Values{
		"admin_id":    {itoa(adminID)},
		"new_status":  {status},
		"commentaire": {comment},
	}
	resp, err := client.PostForm(a.srv.URL+"/admin/update/"+itoa(incID), form)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestInvalidStatusRejected(t *testing.T) {
	a := setupApp(t)
	ctx := context.Background()
	info, _ := a.departments.GetByCode(ctx, "INFO")
	prof, _ := a.users.GetByUsername(ctx, "prof1")
	incID, err := a.incidents.Create(ctx, &store.Incident{
		TypeInc: "PC", Salle: "A1", Description: "x",
		ProfID: prof.ID, DepartementID: info.ID,
	})
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}

	client := a.newClient(t)
	a.login(t, client, "chef1", "123")
	chef, _ := a.users.GetByUsername(ctx, "chef1")
	resp := a.postUpdate(t, client, incID, chef.ID, "Annulé", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid status: %d, want 400", resp.StatusCode)
	}
}

func TestProfessorCannotOpenAdminDashboard(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)
	loc := a.login(t, client, "prof1", "123")
	userID := strings.TrimPrefix(loc, "/prof/")

	resp, _ := a.get(t, client, "/admin/"+userID)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("prof on admin dashboard: %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestDashboardRequiresOwnSession(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)
	a.login(t, client, "prof1", "123")
	chef, _ := a.users.GetByUsername(context.Background(), "chef1")

	resp, _ := a.get(t, client, "/prof/"+itoa(chef.ID))
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("foreign dashboard: %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestSecondChefForDepartementRejected(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)
	info, err := a.departments.GetByCode(context.Background(), "INFO")
	if err != nil || info == nil {
		t.Fatalf("INFO departement: %v", err)
	}
	resp, err := client.PostForm(a.srv.URL+"/register", url.Values{
		"username":       {"chef.bis"},
		"password":       {"123"},
		"nom_complet":    {"Chef Bis"},
		"email":          {"chef.bis@fstt.ac.ma"},
		"role":           {"chef"},
		"departement_id": {itoa(info.ID)},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || !strings.Contains(resp.Header.Get("Location"), "error=chef") {
		t.Fatalf("second chef: %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestSecurityAndCacheHeaders(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)
	resp, _ := a.get(t, client, "/")
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store, no-cache, must-revalidate, max-age=0",
		"Pragma":                 "no-cache",
	} {
		if got := resp.Header.Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestLoginRateLimited(t *testing.T) {
	a := setupApp(t)
	client := a.newClient(t)
	var last int
	for i := 0; i < 12; i++ {
		resp, err := client.PostForm(a.srv.URL+"/login", url.Values{
			"username": {"prof1"},
			"password": {"wrong"},
		})
		if err != nil {
			t.Fatalf("login attempt %d: %v", i+1, err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("12th attempt status %d, want 429", last)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
