package db

import (
	"database/sql"
	"time"

	"github.com/exameye/proctor/models"
	"github.com/exameye/proctor/types"
)

// SessionStore persists exam session records in Postgres. Counter updates
// are single atomic UPDATE statements, so concurrent increments for the
// same session never lose writes.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Insert(session models.ExamSession) error {
	_, err := s.db.Exec(`
		INSERT INTO exam_sessions (
			id, student_id, student_name, calibrated_pitch, calibrated_yaw,
			status, start_time, total_frames, violation_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, session.ID, session.StudentID, session.StudentName,
		session.CalibratedPitch, session.CalibratedYaw,
		session.Status, session.StartTime,
		session.TotalFrames, session.ViolationCount)
	if err != nil {
		return storageErr("insert session", err)
	}
	return nil
}

func (s *SessionStore) Get(id string) (models.ExamSession, error) {
	var session models.ExamSession
	err := s.db.QueryRow(`
		SELECT id, student_id, student_name, calibrated_pitch, calibrated_yaw,
		       status, start_time, end_time, total_frames, violation_count
		FROM exam_sessions
		WHERE id = $1
	`, id).Scan(
		&session.ID,
		&session.StudentID,
		&session.StudentName,
		&session.CalibratedPitch,
		&session.CalibratedYaw,
		&session.Status,
		&session.StartTime,
		&session.EndTime,
		&session.TotalFrames,
		&session.ViolationCount,
	)
	if err == sql.ErrNoRows {
		return models.ExamSession{}, ErrNotFound
	}
	if err != nil {
		return models.ExamSession{}, storageErr("get session", err)
	}
	return session, nil
}

func (s *SessionStore) MarkEnded(id string, endTime time.Time) error {
	result, err := s.db.Exec(`
		UPDATE exam_sessions
		SET status = $1, end_time = $2
		WHERE id = $3
	`, models.SessionCompleted, endTime, id)
	if err != nil {
		return storageErr("end session", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("end session", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SessionStore) AddFrame(id string) error {
	return s.increment(id, "total_frames")
}

func (s *SessionStore) AddViolation(id string) error {
	return s.increment(id, "violation_count")
}

func (s *SessionStore) increment(id, column string) error {
	// column is one of two fixed names, never user input. The status
	// guard makes completed rows reject increments even when a caller
	// holds a stale view of the session.
	result, err := s.db.Exec(`
		UPDATE exam_sessions
		SET `+column+` = `+column+` + 1
		WHERE id = $1 AND status = $2
	`, id, models.SessionActive)
	if err != nil {
		return storageErr("increment "+column, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("increment "+column, err)
	}
	if rows == 0 {
		if _, err := s.Get(id); err != nil {
			return err
		}
		return ErrSessionEnded
	}
	return nil
}

func (s *SessionStore) ListActive() ([]models.ExamSession, error) {
	return s.list(`
		SELECT id, student_id, student_name, calibrated_pitch, calibrated_yaw,
		       status, start_time, end_time, total_frames, violation_count
		FROM exam_sessions
		WHERE status = $1
		ORDER BY start_time DESC
	`, models.SessionActive)
}

func (s *SessionStore) ListAll() ([]models.ExamSession, error) {
	return s.list(`
		SELECT id, student_id, student_name, calibrated_pitch, calibrated_yaw,
		       status, start_time, end_time, total_frames, violation_count
		FROM exam_sessions
		ORDER BY start_time DESC
	`)
}

func (s *SessionStore) list(query string, args ...interface{}) ([]models.ExamSession, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	defer rows.Close()

	var sessions []models.ExamSession
	for rows.Next() {
		var session models.ExamSession
		err := rows.Scan(
			&session.ID,
			&session.StudentID,
			&session.StudentName,
			&session.CalibratedPitch,
			&session.CalibratedYaw,
			&session.Status,
			&session.StartTime,
			&session.EndTime,
			&session.TotalFrames,
			&session.ViolationCount,
		)
		if err != nil {
			return nil, storageErr("scan session", err)
		}
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, storageErr("list sessions", err)
	}
	return sessions, nil
}

func (s *SessionStore) Counts() (types.SessionStats, error) {
	var stats types.SessionStats
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2)
		FROM exam_sessions
	`, models.SessionActive, models.SessionCompleted).Scan(
		&stats.TotalSessions,
		&stats.ActiveSessions,
		&stats.CompletedSessions,
	)
	if err != nil {
		return types.SessionStats{}, storageErr("count sessions", err)
	}
	return stats, nil
}
