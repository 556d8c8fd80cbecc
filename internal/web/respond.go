package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the uniform JSON response shape. Exactly one of Data or
// Error is set; Meta carries paging totals when relevant.
type envelope struct {
	Data  any        `json:"data"`
	Meta  *meta      `json:"meta,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type meta struct {
	TotalRecords int64 `json:"totalRecords"`
	TotalPages   int   `json:"totalPages"`
	PageNumber   int   `json:"pageNumber"`
	PageSize     int   `json:"pageSize"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondEnvelope(w, status, envelope{Data: data})
}

func respondPage(w http.ResponseWriter, data any, m meta) {
	respondEnvelope(w, http.StatusOK, envelope{Data: data, Meta: &m})
}

func respondEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("encode response", "error", err)
	}
}
