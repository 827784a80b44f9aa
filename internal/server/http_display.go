package server

import "fmt"

// displayServerInfo prints the listening address and the protection settings.
func (s *Server) displayServerInfo(addr string, tlsEnabled bool) {
	scheme := "http"
	if tlsEnabled {
		scheme = "https"
	}
	fmt.Printf("Starting server on %s://%s\n", scheme, addr)
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET   /health                              - Backend health")
	fmt.Println("  GET   /stats                               - Server statistics")
	fmt.Println("  POST  /api/interview/validate-code         - Check an interview code")
	fmt.Println("  POST  /api/interview/upload-resume         - Upload a resume, open a session")
	fmt.Println("  POST  /api/interview/start                 - Start the interview")
	fmt.Println("  POST  /api/interview/chat                  - Send a candidate message")
	fmt.Println("  POST  /api/interview/update-flags          - Report proctoring signals")
	fmt.Println("  POST  /api/interview/submit                - Finish and evaluate")
	fmt.Println("  GET   /api/interview/status/{token}        - Session progress")
	fmt.Println("  *     /api/recruitment, /api/candidates    - Recruiter API (requires API key)")
}

func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("Recruiter API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
	} else {
		fmt.Println("Recruiter API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: recruiter endpoints are publicly accessible!")
	}
}

func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
	}
}

func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
