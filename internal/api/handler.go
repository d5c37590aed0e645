// Package api exposes the interview engine over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbarros/escuta/internal/composer"
	"github.com/mbarros/escuta/internal/interview"
	"github.com/mbarros/escuta/internal/knowledge"
	"github.com/mbarros/escuta/internal/report"
	"github.com/mbarros/escuta/internal/session"
)

const (
	maxBodySize   = 1 << 20 // 1MB
	ingestTimeout = 30 * time.Second
)

// AppDeps holds dependencies for the HTTP handler.
type AppDeps struct {
	Engine    *session.Engine
	Knowledge *knowledge.Base // optional; nil disables /ingest
}

// NewAppHandler builds the HTTP API router.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/sessions", handleBeginSession(deps))
	r.Get("/sessions/{id}", handleGetSession(deps))
	r.Post("/sessions/{id}/replies", handleReply(deps))
	r.Post("/sessions/{id}/consent", handleConsent(deps))
	r.Get("/sessions/{id}/transcript", handleTranscript(deps))
	r.Post("/sessions/{id}/report", handleReport(deps))
	r.Post("/ingest", handleIngest(deps))

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type beginSessionRequest struct {
	Route   string `json:"route"`
	Consent bool   `json:"consent"`
}

func handleBeginSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req beginSessionRequest
		if err := decodeBody(w, r, &req); err != nil {
			return
		}
		if req.Route == "" {
			req.Route = string(composer.RouteAssessment)
		}

		view, err := deps.Engine.Begin(composer.Route(req.Route), req.Consent)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "starting session: %v", err)
			return
		}
		respondJSON(w, http.StatusCreated, view)
	}
}

func handleGetSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := deps.Engine.Get(chi.URLParam(r, "id"))
		if err != nil {
			sessionError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

type replyRequest struct {
	Text string `json:"text"`
}

func handleReply(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replyRequest
		if err := decodeBody(w, r, &req); err != nil {
			return
		}

		turn, err := deps.Engine.Reply(r.Context(), chi.URLParam(r, "id"), req.Text)
		if err != nil {
			switch {
			case errors.Is(err, interview.ErrBlankReply):
				httpError(w, http.StatusBadRequest, "validation_error", "reply must not be blank")
			case errors.Is(err, interview.ErrCompleted):
				httpError(w, http.StatusConflict, "validation_error", "interview already completed")
			default:
				sessionError(w, err)
			}
			return
		}
		respondJSON(w, http.StatusOK, turn)
	}
}

type consentRequest struct {
	Consent bool `json:"consent"`
}

func handleConsent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req consentRequest
		if err := decodeBody(w, r, &req); err != nil {
			return
		}
		if err := deps.Engine.SetConsent(chi.URLParam(r, "id"), req.Consent); err != nil {
			sessionError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]bool{"consent": req.Consent})
	}
}

func handleTranscript(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := deps.Engine.Transcript(chi.URLParam(r, "id"))
		if err != nil {
			sessionError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"messages": msgs})
	}
}

func handleReport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Engine.SynthesizeReport(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			switch {
			case errors.Is(err, report.ErrConsentRequired):
				httpError(w, http.StatusForbidden, "consent_required", "consent is required for clinical report synthesis")
			case errors.Is(err, session.ErrNotCompleted):
				httpError(w, http.StatusConflict, "validation_error", "interview not yet completed")
			default:
				sessionError(w, err)
			}
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

type ingestRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
	Source  string `json:"source"`
}

func handleIngest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Knowledge == nil {
			httpError(w, http.StatusNotImplemented, "api_error", "knowledge base is not configured")
			return
		}

		var req ingestRequest
		if err := decodeBody(w, r, &req); err != nil {
			return
		}
		if req.Content == "" && req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one of content or url is required")
			return
		}

		var (
			doc any
			err error
		)
		if req.URL != "" {
			ctx, cancel := context.WithTimeout(r.Context(), ingestTimeout)
			defer cancel()
			doc, err = deps.Knowledge.IngestURL(ctx, req.URL)
		} else {
			if req.Source == "" {
				req.Source = "api"
			}
			doc, err = deps.Knowledge.IngestText(req.Title, req.Content, req.Source)
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "ingesting document: %v", err)
			return
		}
		respondJSON(w, http.StatusCreated, doc)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return err
	}
	return nil
}

func sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
