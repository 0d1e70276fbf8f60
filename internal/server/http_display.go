package server

import (
	"fmt"
	"net"

	"resumetailor/internal/utils"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayAddress()
	s.displayEndpoints()
	s.displayCredentialInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
	s.displayReloadInfo()
}

func (s *Server) displayAddress() {
	addr := net.JoinHostPort(s.Host, s.Port)
	switch s.TLSConfig.Mode {
	case "server":
		fmt.Printf("Starting server with HTTPS (server-only TLS) on https://%s\n", addr)
	case "mutual":
		fmt.Printf("Starting server with mTLS (mutual TLS) on https://%s\n", addr)
	default:
		fmt.Printf("Starting server on http://%s\n", addr)
		fmt.Println("TLS mode: Disabled (HTTP only)")
	}
}

// displayEndpoints shows available endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /                - Resume tailoring form")
	fmt.Println("  POST /upload          - Upload a resume file (.txt, .md, .pdf)")
	fmt.Println("  POST /generate        - Generate the tailored resume")
	fmt.Println("  POST /copy            - Copy the tailored resume")
	fmt.Println("  GET  /download        - Download tailored-resume.txt")
	fmt.Println("  POST /api/v1/tailor   - Tailor a resume (JSON)")
	fmt.Println("  POST /api/v1/extract  - Extract text from a file (multipart)")
	fmt.Println("  GET  /health          - Health check")
	fmt.Println("  GET  /health/model    - Model availability")
	fmt.Println("  GET  /stats           - Server statistics")
}

func (s *Server) displayCredentialInfo() {
	if s.creds != nil && s.creds.Configured() {
		fmt.Printf("Gemini API key: %s (source: %s)\n", utils.MaskSecret(s.creds.Get()), s.creds.Source())
		return
	}
	fmt.Println("Gemini API key: NOT CONFIGURED")
	fmt.Println("WARNING: generation requests will fail until GEMINI_API_KEY or API_KEY is set")
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %s\n", utils.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimiter != nil {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min per IP, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}

func (s *Server) displayReloadInfo() {
	if s.reload.envFile != nil {
		fmt.Printf("Env file watching: ENABLED (%s)\n", s.AppConfig.App.EnvFile)
	}
	if s.reload.vaultKey != nil {
		fmt.Println("Vault API key rotation: ENABLED")
	}
	if s.reload.tlsFiles != nil || s.reload.vaultCert != nil {
		fmt.Println("TLS auto-reload: ENABLED")
	}
}
