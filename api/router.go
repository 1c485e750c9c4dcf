package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
)

// NewRouter creates and configures a new router with all API endpoints
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.Use(CORS)

	// API key management endpoints (master key guarded, no rate limit)
	r.HandleFunc("/api/keys", s.CreateAPIKey).Methods("POST")
	r.HandleFunc("/api/keys", s.ListAPIKeys).Methods("GET")
	r.HandleFunc("/api/keys", s.DeleteAPIKey).Methods("DELETE")

	// Apply rate limiting middleware to all other routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.RateLimit)

	// Student endpoints
	api.HandleFunc("/students/register", s.RegisterStudent).Methods("POST")
	api.HandleFunc("/students/{student_id}", s.GetStudent).Methods("GET")

	// Calibration & environment check
	api.HandleFunc("/proctoring/calibrate", s.Calibrate).Methods("POST")
	api.HandleFunc("/proctoring/environment-check", s.CheckEnvironment).Methods("POST")

	// Exam session endpoints
	api.HandleFunc("/sessions/start", s.StartSession).Methods("POST")
	api.HandleFunc("/sessions/active/list", s.ActiveSessions).Methods("GET")
	api.HandleFunc("/sessions/{session_id}", s.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{session_id}/end", s.EndSession).Methods("PUT")

	// Frame processing endpoint
	api.HandleFunc("/proctoring/process-frame", s.ProcessFrame).Methods("POST")

	// Violation endpoints
	api.HandleFunc("/violations/recent", s.RecentViolations).Methods("GET")
	api.HandleFunc("/violations/session/{session_id}", s.SessionViolations).Methods("GET")
	api.HandleFunc("/violations/student/{student_id}", s.StudentViolations).Methods("GET")

	// Admin dashboard endpoints
	api.HandleFunc("/admin/stats", s.AdminStats).Methods("GET")
	api.HandleFunc("/admin/sessions/all", s.AllSessions).Methods("GET")

	// Export endpoints
	api.HandleFunc("/export/violations/csv", s.ExportViolationsCSV).Methods("GET")
	api.HandleFunc("/export/summary/csv", s.ExportSummaryCSV).Methods("GET")
	api.HandleFunc("/export/summary/html", s.ExportSummaryHTML).Methods("GET")
	api.HandleFunc("/export/students/{student_id}/csv", s.ExportStudentCSV).Methods("GET")
	api.HandleFunc("/export/students/{student_id}/html", s.ExportStudentHTML).Methods("GET")

	// Basic routes
	api.HandleFunc("/", s.Root).Methods("GET")
	api.HandleFunc("/health", s.Health).Methods("GET")

	// WebSocket endpoints (outside the /api prefix, not rate limited)
	r.HandleFunc("/ws/admin", s.AdminWS)
	r.HandleFunc("/ws/student/{session_id}", s.StudentWS)

	return r
}

// CORS allows the dashboard origins configured via CORS_ORIGINS
// (comma-separated, default all).
func CORS(next http.Handler) http.Handler {
	origins := os.Getenv("CORS_ORIGINS")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if origins != "" && origins != "*" {
			for _, o := range strings.Split(origins, ",") {
				if strings.TrimSpace(o) == r.Header.Get("Origin") {
					origin = r.Header.Get("Origin")
					break
				}
			}
			if origin == "*" {
				origin = ""
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
