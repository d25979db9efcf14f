package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

func pathID(r *http.Request, key string) (int64, bool) {
	raw := chi.URLParam(r, key)
	if raw == "" {
		// Fallback for direct handler tests without chi route context:
		// the id is always the final path segment on this app's routes.
		segments := strings.Split(strings.Trim(strings.TrimSpace(r.URL.Path), "/"), "/")
		if len(segments) > 0 {
			raw = segments[len(segments)-1]
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pathIDFromForm(r *http.Request, field string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(field)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
