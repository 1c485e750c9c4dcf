package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrSessionEnded indicates a write against a completed session row.
var ErrSessionEnded = errors.New("session already completed")

// StorageError wraps a persistence failure so callers can distinguish
// storage trouble from domain errors.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func InitDB() error {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
	)

	var err error
	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("error opening database: %v", err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("error connecting to the database: %v", err)
	}

	if err = createTables(); err != nil {
		return fmt.Errorf("error creating tables: %v", err)
	}

	return nil
}

func createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS api_keys (
			id SERIAL PRIMARY KEY,
			key VARCHAR(64) NOT NULL UNIQUE,
			description TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			last_used_at TIMESTAMP WITH TIME ZONE,
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS students (
			id VARCHAR(36) PRIMARY KEY,
			student_id VARCHAR(20) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS exam_sessions (
			id VARCHAR(36) PRIMARY KEY,
			student_id VARCHAR(20) NOT NULL,
			student_name VARCHAR(255) NOT NULL,
			calibrated_pitch DOUBLE PRECISION NOT NULL DEFAULT 0,
			calibrated_yaw DOUBLE PRECISION NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			start_time TIMESTAMP WITH TIME ZONE NOT NULL,
			end_time TIMESTAMP WITH TIME ZONE,
			total_frames BIGINT NOT NULL DEFAULT 0,
			violation_count BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS violations (
			id VARCHAR(36) PRIMARY KEY,
			session_id VARCHAR(36) NOT NULL,
			student_id VARCHAR(20) NOT NULL,
			student_name VARCHAR(255) NOT NULL,
			violation_type VARCHAR(100) NOT NULL,
			severity VARCHAR(20) NOT NULL,
			message TEXT NOT NULL,
			snapshot_url TEXT,
			snapshot_base64 TEXT,
			head_pitch DOUBLE PRECISION,
			head_yaw DOUBLE PRECISION,
			head_roll DOUBLE PRECISION,
			timestamp TIMESTAMP WITH TIME ZONE NOT NULL
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_sessions_status ON exam_sessions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON exam_sessions(start_time DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_violations_session ON violations(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_violations_student ON violations(student_id)`,
		`CREATE INDEX IF NOT EXISTS idx_violations_timestamp ON violations(timestamp DESC)`,
	}

	for _, query := range queries {
		_, err := DB.Exec(query)
		if err != nil {
			return err
		}
	}

	return nil
}

func CloseDB() {
	if DB != nil {
		DB.Close()
	}
}
