package server

import (
	"fmt"
	"net/http"

	"jdroaster/internal/utils"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo(httpServer *http.Server) {
	s.displayListenInfo(httpServer)
	s.displayEndpoints()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayListenInfo shows the address and TLS mode
func (s *Server) displayListenInfo(httpServer *http.Server) {
	switch s.TLSConfig.Mode {
	case "server":
		fmt.Fprintf(s.out, "Starting server with HTTPS on https://%s\n", httpServer.Addr)
		fmt.Fprintln(s.out, "TLS mode: Server-only (no client certificates required)")
	case "mutual":
		fmt.Fprintf(s.out, "Starting server with mTLS on https://%s\n", httpServer.Addr)
		fmt.Fprintf(s.out, "TLS mode: Mutual (client auth policy: %s)\n", clientAuthPolicy(s.TLSConfig.ClientAuthPolicy))
	default:
		fmt.Fprintf(s.out, "Starting server on http://%s\n", httpServer.Addr)
		fmt.Fprintln(s.out, "TLS mode: Disabled (HTTP only)")
	}
	if s.CertificateManager != nil && s.TLSConfig.AutoReload.Enabled {
		fmt.Fprintln(s.out, "TLS auto-reload: ENABLED")
	}
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Fprintln(s.out, "Available endpoints:")
	fmt.Fprintln(s.out, "  POST /api/analyze-text     - Analyze a job description")
	fmt.Fprintln(s.out, "  POST /api/debug-sentences  - Normalize and segment text")
	fmt.Fprintln(s.out, "  GET  /api/catalog          - List the active rule catalog")
	fmt.Fprintln(s.out, "  GET  /health               - Health check")
	fmt.Fprintln(s.out, "  GET  /stats                - Server statistics")
	if s.om.PrometheusHandler() != nil {
		fmt.Fprintf(s.out, "  GET  %-22s - Prometheus metrics\n", s.om.PrometheusEndpoint())
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Fprintf(s.out, "Request size limit: %s\n", utils.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Fprintln(s.out, "Request size limit: DISABLED")
	}
	fmt.Fprintf(s.out, "Minimum text length: %d characters\n", s.MinTextLength)
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Fprintf(s.out, "Rate limiting: ENABLED (%d requests/min per client IP, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		fmt.Fprintln(s.out, "Rate limiting: DISABLED")
		fmt.Fprintln(s.out, "WARNING: No rate limiting configured!")
	}
}
