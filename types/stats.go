package types

// SessionStats is the admin dashboard's headline numbers.
type SessionStats struct {
	TotalSessions     int64 `json:"total_sessions"`
	ActiveSessions    int64 `json:"active_sessions"`
	CompletedSessions int64 `json:"completed_sessions"`
	TotalViolations   int64 `json:"total_violations"`
}
