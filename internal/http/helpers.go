package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"quy/internal/core"
	"quy/internal/log"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeInternal logs err through the request logger and hides it from the client.
func writeInternal(w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), msg, err, op, log.LogFields{log.FieldPath: r.URL.Path})
	writeError(w, http.StatusInternalServerError, msg)
}

// decodeJSON reads a single JSON value into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// parseCriteria reads q, fund, start and end from the query string.
func parseCriteria(r *http.Request) (core.Criteria, error) {
	q := r.URL.Query()
	fund, err := core.ParseFund(q.Get("fund"))
	if err != nil {
		return core.Criteria{}, fmt.Errorf("fund %q: %w", q.Get("fund"), err)
	}
	c := core.Criteria{
		Search:    q.Get("q"),
		Fund:      fund,
		StartDate: strings.TrimSpace(q.Get("start")),
		EndDate:   strings.TrimSpace(q.Get("end")),
	}
	for _, d := range []string{c.StartDate, c.EndDate} {
		if d == "" {
			continue
		}
		if err := core.ValidateDate(d); err != nil {
			return core.Criteria{}, fmt.Errorf("date %q: %w", d, err)
		}
	}
	return c, nil
}

// parsePositiveInt returns def when the parameter is absent.
func parsePositiveInt(r *http.Request, name string, def, max int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("%s must be an integer between 1 and %d", name, max)
	}
	return n, nil
}

// confirmed reports whether a destructive request carries confirm=true.
func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}
