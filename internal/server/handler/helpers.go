package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/akbaridria/obrix/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseListOpts extracts pagination and filter parameters from the query
// string. Defaults: limit=10 (max 200), offset=0. An invalid pool filter is
// reported as an error.
func parseListOpts(r *http.Request) (domain.ListOpts, error) {
	q := r.URL.Query()

	limit := 10
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	opts := domain.ListOpts{
		Limit:    limit,
		Offset:   offset,
		Protocol: strings.ToLower(strings.TrimSpace(q.Get("protocol"))),
	}
	if pool := q.Get("pool"); pool != "" {
		id, err := domain.NormalizePoolID(pool)
		if err != nil {
			return domain.ListOpts{}, err
		}
		opts.PoolID = id
	}
	return opts, nil
}

// poolParam reads and normalizes the {id} path parameter of pool routes.
func poolParam(r *http.Request) (string, error) {
	return domain.NormalizePoolID(r.PathValue("id"))
}
