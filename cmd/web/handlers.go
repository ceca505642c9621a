package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/devraulu/refscout/pkg/reference"
)

const maxBodyBytes = 64 << 10

type runner interface {
	Run(ctx context.Context, query string, maxResults int) (reference.Result, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

func newMux(p runner, defaultMax int) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/retrieve_refs", handleRetrieve(p, defaultMax))
	mux.HandleFunc("GET /healthz", handleHealth)
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleRetrieve(p runner, defaultMax int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reference.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		maxResults := defaultMax
		if req.MaxResults != nil {
			maxResults = *req.MaxResults
		}
		if maxResults <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request: max_results must be positive"})
			return
		}

		slog.Info("retrieve", slog.String("query", req.Query), slog.Int("max_results", maxResults))

		res, err := p.Run(r.Context(), req.Query, maxResults)
		if errors.Is(err, reference.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		if err != nil {
			slog.Error("retrieve failed", slog.String("query", req.Query), slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "retrieval failed"})
			return
		}

		slog.Info("retrieve complete", slog.String("query", req.Query), slog.Int("references", len(res.References)))
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", slog.Any("err", err))
	}
}
