// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/secscore-io/secscore/internal/apierror"
)

// buildHandler wires every route onto a new ServeMux, matching the
// pack's Go 1.22+ method-prefixed pattern style.
func buildHandler(s *Server) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/cve/{cveId}", s.handleMetadata)
	mux.HandleFunc("GET /api/v1/enrich/cve/{cveId}", s.handleEnrich)
	mux.HandleFunc("POST /api/internal/refresh-kev", s.handleRefreshKEV)
	mux.HandleFunc("GET /api/internal/refresh-kev", s.handleRefreshKEV)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.withMiddleware(mux)
}

// withMiddleware applies request-id injection, structured logging and
// rate limiting, in that order. Rate limiting skips /api/internal/*,
// /api/health and /metrics; every other route is limited.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return requestIDMiddleware(loggingMiddleware(s.rateLimitMiddleware(next)))
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request",
			"method", r.Method, "path", r.URL.Path,
			"requestId", requestIDFromContext(r.Context()),
			"durationMs", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/internal/") || r.URL.Path == "/metrics" || r.URL.Path == "/api/health" {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r)
		if !s.rateLimit.Allow(ip) {
			apierror.Write(w, apierror.TooManyRequests("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return r.RemoteAddr
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	cveID, err := NormalizeCVEID(r.PathValue("cveId"))
	if err != nil {
		apierror.Write(w, apierror.BadRequest(err.Error()))
		return
	}

	result, apiErr := s.orchestrator.FetchMetadata(r.Context(), cveID)
	if apiErr != nil {
		apierror.Write(w, apiErr)
		return
	}

	w.Header().Set("SecScore-Model-Version", s.cfg.ModelVersion)
	w.Header().Set("X-Request-Id", requestIDFromContext(r.Context()))
	if result.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Cache-Control", "public, max-age=3600, stale-while-revalidate=86400")
	writeJSON(w, http.StatusOK, result.Metadata)
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	cveID, err := NormalizeCVEID(r.PathValue("cveId"))
	if err != nil {
		apierror.Write(w, apierror.BadRequest(err.Error()))
		return
	}

	if s.cfg.CaptchaEnabled {
		token := r.Header.Get("X-Captcha-Token")
		if token == "" {
			apierror.Write(w, apierror.BadRequest("missing captcha token"))
			return
		}
		result := s.captcha.Verify(r.Context(), token, clientIP(r))
		if !result.Success {
			apierror.Write(w, apierror.Forbidden("captcha verification failed", strings.Join(result.ErrorCodes, ",")))
			return
		}
	}

	requestID := requestIDFromContext(r.Context())
	result, apiErr := s.orchestrator.Enrich(r.Context(), cveID, requestID)
	if apiErr != nil {
		apierror.Write(w, apiErr)
		return
	}

	w.Header().Set("SecScore-Model-Version", s.cfg.ModelVersion)
	w.Header().Set("X-Request-Id", requestID)
	if result.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	if updated := s.orchestrator.KEVUpdatedAt(); updated != "" {
		w.Header().Set("X-KEV-Updated-At", updated)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600, stale-while-revalidate=86400")
	writeJSON(w, http.StatusOK, result.Response)
}

func (s *Server) handleRefreshKEV(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("x-cron-secret")
	if s.cfg.InternalRefreshSecret == "" || secret != s.cfg.InternalRefreshSecret {
		apierror.Write(w, &apierror.Error{Status: http.StatusUnauthorized, Message: "invalid or missing refresh secret"})
		return
	}

	result := s.kevManager.Refresh(r.Context())
	outcome := "unchanged"
	if result.Err != nil {
		outcome = "error"
	} else if result.Changed {
		outcome = "changed"
	}
	s.metrics.KEVRefreshes.WithLabelValues(outcome).Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"changed":   result.Changed,
		"updatedAt": result.UpdatedAt,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
		"memoryBytes":   mem.Alloc,
		"goroutines":    runtime.NumGoroutine(),
		"kevState":      string(s.kevManager.State()),
		"kevUpdatedAt":  s.kevManager.UpdatedAt(),
		"kevEntries":    s.kevManager.Size(),
		"pid":           os.Getpid(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
