package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"jdroaster/internal/errors"
	"jdroaster/internal/types"
)

const (
	certCriticalThreshold = 24 * time.Hour
	certWarningThreshold  = 7 * 24 * time.Hour
)

// analyzeTextHandler runs the full pipeline over rawText
func (s *Server) analyzeTextHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.AnalyzeTextRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	rawText := ""
	if req.RawText != nil {
		rawText = *req.RawText
	}
	if err := validateRawText(rawText, s.MinTextLength); err != nil {
		s.Logger.Debug("Rejected analysis request",
			"code", err.Code,
			"request_id", requestID(r.Context()))
		writeErrorResponse(w, err.Message, http.StatusBadRequest)
		return
	}

	report := s.om.TrackAnalysis(r.Context(), "http", func(context.Context) *types.Report {
		return s.Analyzer.Analyze(rawText)
	})

	s.Logger.Info("Analysis completed",
		"report_id", report.ID,
		"sentences", len(report.Sentences),
		"insights", len(report.Insights),
		"green_flags", len(report.GreenFlags),
		"request_id", requestID(r.Context()))

	writeJSONResponse(w, http.StatusOK, types.AnalyzeTextResponse{OK: true, Report: report})
}

// debugSentencesHandler returns the normalized text and its sentences
// without scoring. It accepts text of any length.
func (s *Server) debugSentencesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.AnalyzeTextRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	rawText := ""
	if req.RawText != nil {
		rawText = *req.RawText
	}
	result := s.Analyzer.Sentences(rawText)
	s.om.GetMetrics().RecordSegmentation(r.Context(), "http", len(result.Sentences))

	writeJSONResponse(w, http.StatusOK, types.DebugSentencesResponse{
		OK:             true,
		NormalizedText: result.NormalizedText,
		Sentences:      result.Sentences,
	})
}

// catalogHandler lists the rules of the active catalog
func (s *Server) catalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, s.Analyzer.Catalog().Summary())
}

// validateRawText enforces the minimum trimmed length in characters
func validateRawText(rawText string, minLength int) *errors.AppError {
	if utf8.RuneCountInString(strings.TrimSpace(rawText)) < minLength {
		return errors.NewValidationError(errors.ErrCodeTextTooShort,
			fmt.Sprintf("rawText must be at least %d characters", minLength), nil).
			WithContext("min_length", minLength)
	}
	return nil
}

// healthHandler reports liveness, the active catalog and certificate state
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cat := s.Analyzer.Catalog()
	response := map[string]any{
		"status":  "healthy",
		"service": "jdroaster",
		"version": s.Version,
		"catalog": map[string]any{
			"version": cat.Version(),
			"source":  cat.Source(),
			"rules":   cat.Len(),
		},
	}

	status := http.StatusOK
	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if healthy, ok := certStatus["healthy"].(bool); ok && !healthy {
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSONResponse(w, status, response)
}

// checkCertificateHealth classifies the time left on the served certificate
func (s *Server) checkCertificateHealth() map[string]any {
	if s.CertificateManager == nil {
		return nil
	}

	certStatus := make(map[string]any)

	timeToExpiry, err := s.CertificateManager.CheckExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())
	certStatus["time_to_expiry"] = timeToExpiry.String()

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= certCriticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= certWarningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}

	certStatus["auto_reload"] = s.CertificateManager.WatcherStatus()
	certStatus["reloads"] = s.CertificateManager.GetMetrics()

	return certStatus
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"service": "jdroaster",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"min_text_length":        s.MinTextLength,
		},
		"vault_circuit_breaker": s.VaultClient.BreakerStats(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	writeJSONResponse(w, http.StatusOK, response)
}

// decodeRequest parses a JSON body into v. On failure it writes the error
// response and returns false.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	err := parseJSONRequest(r, v)
	if err == nil {
		return true
	}

	status := http.StatusBadRequest
	message := "Invalid JSON body"

	var maxBytesErr *http.MaxBytesError
	switch {
	case stderrors.Is(err, errUnsupportedMediaType):
		status = http.StatusUnsupportedMediaType
		message = "Content-Type must be application/json"
	case stderrors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
		message = fmt.Sprintf("Request body too large (limit is %d bytes)", maxBytesErr.Limit)
	}

	s.Logger.Debug("Rejected request body",
		"endpoint", r.URL.Path,
		"error", err.Error(),
		"request_id", requestID(r.Context()))
	writeErrorResponse(w, message, status)
	return false
}

var errUnsupportedMediaType = stderrors.New("content-type must be application/json")

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errUnsupportedMediaType
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() { _ = r.Body.Close() }()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeErrorResponse writes the {ok:false, error} envelope
func writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, types.AnalyzeTextResponse{OK: false, Error: message})
}

// writeJSONResponse encodes v with the given status
func writeJSONResponse(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// the status line is already out, so an encoding failure cannot be reported
	_ = json.NewEncoder(w).Encode(v)
}
