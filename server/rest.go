package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/umputun/boonscroll/pkg/scroll"
)

// getScrollHandler returns the next batch for a scrolling session
func (s *Server) getScrollHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := scroll.BatchRequest{
		User:    q.Get("user"),
		Session: q.Get("session"),
		Cursor:  q.Get("cursor"),
		Filter:  q.Get("filter"),
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			renderError(w, r, fmt.Errorf("invalid limit %q", limitStr), http.StatusBadRequest)
			return
		}
		req.Limit = limit
	}

	batch, err := s.feed.GetBatch(r.Context(), req)
	if err != nil {
		if errors.Is(err, scroll.ErrBadCursor) {
			renderError(w, r, err, http.StatusBadRequest)
			return
		}
		log.Printf("[ERROR] scroll batch failed: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, batch)
}

// dismissHandler marks items as dismissed so they stop appearing in batches
func (s *Server) dismissHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemIDs []string `json:"itemIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}

	dismissed := s.feed.Dismiss(r.Context(), req.ItemIDs)
	renderJSON(w, r, http.StatusOK, map[string]int{"dismissed": dismissed})
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":   "ok",
		"version":  s.version,
		"time":     time.Now().UTC(),
		"sessions": s.feed.Sessions(),
	}
	renderJSON(w, r, http.StatusOK, status)
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}
