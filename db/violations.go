package db

import (
	"database/sql"

	"github.com/exameye/proctor/models"
)

// ViolationStore is the append-only write path for violation records.
// Rows are never updated or deleted once written.
type ViolationStore struct {
	db *sql.DB
}

func NewViolationStore(db *sql.DB) *ViolationStore {
	return &ViolationStore{db: db}
}

func (s *ViolationStore) Append(v models.Violation) error {
	var pitch, yaw, roll *float64
	if v.HeadPose != nil {
		pitch, yaw, roll = &v.HeadPose.Pitch, &v.HeadPose.Yaw, &v.HeadPose.Roll
	}
	_, err := s.db.Exec(`
		INSERT INTO violations (
			id, session_id, student_id, student_name,
			violation_type, severity, message,
			snapshot_url, snapshot_base64,
			head_pitch, head_yaw, head_roll, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, v.ID, v.SessionID, v.StudentID, v.StudentName,
		v.ViolationType, v.Severity, v.Message,
		nullable(v.SnapshotURL), nullable(v.SnapshotBase64),
		pitch, yaw, roll, v.Timestamp)
	if err != nil {
		return storageErr("append violation", err)
	}
	return nil
}

func (s *ViolationStore) QueryBySession(sessionID string) ([]models.Violation, error) {
	return s.query(`
		SELECT id, session_id, student_id, student_name,
		       violation_type, severity, message,
		       snapshot_url, snapshot_base64,
		       head_pitch, head_yaw, head_roll, timestamp
		FROM violations
		WHERE session_id = $1
		ORDER BY timestamp ASC
	`, sessionID)
}

func (s *ViolationStore) QueryByStudent(studentID string) ([]models.Violation, error) {
	return s.query(`
		SELECT id, session_id, student_id, student_name,
		       violation_type, severity, message,
		       snapshot_url, snapshot_base64,
		       head_pitch, head_yaw, head_roll, timestamp
		FROM violations
		WHERE student_id = $1
		ORDER BY timestamp ASC
	`, studentID)
}

func (s *ViolationStore) QueryRecent(limit int) ([]models.Violation, error) {
	return s.query(`
		SELECT id, session_id, student_id, student_name,
		       violation_type, severity, message,
		       snapshot_url, snapshot_base64,
		       head_pitch, head_yaw, head_roll, timestamp
		FROM violations
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
}

func (s *ViolationStore) QueryAll() ([]models.Violation, error) {
	return s.query(`
		SELECT id, session_id, student_id, student_name,
		       violation_type, severity, message,
		       snapshot_url, snapshot_base64,
		       head_pitch, head_yaw, head_roll, timestamp
		FROM violations
		ORDER BY timestamp ASC
	`)
}

func (s *ViolationStore) CountAll() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM violations`).Scan(&count); err != nil {
		return 0, storageErr("count violations", err)
	}
	return count, nil
}

func (s *ViolationStore) query(query string, args ...interface{}) ([]models.Violation, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query violations", err)
	}
	defer rows.Close()

	var violations []models.Violation
	for rows.Next() {
		var v models.Violation
		var url, b64 sql.NullString
		var pitch, yaw, roll sql.NullFloat64
		err := rows.Scan(
			&v.ID,
			&v.SessionID,
			&v.StudentID,
			&v.StudentName,
			&v.ViolationType,
			&v.Severity,
			&v.Message,
			&url,
			&b64,
			&pitch,
			&yaw,
			&roll,
			&v.Timestamp,
		)
		if err != nil {
			return nil, storageErr("scan violation", err)
		}
		v.SnapshotURL = url.String
		v.SnapshotBase64 = b64.String
		if pitch.Valid {
			v.HeadPose = &models.HeadPose{
				Pitch: pitch.Float64,
				Yaw:   yaw.Float64,
				Roll:  roll.Float64,
			}
		}
		violations = append(violations, v)
	}
	if err = rows.Err(); err != nil {
		return nil, storageErr("query violations", err)
	}
	return violations, nil
}

// nullable maps an empty string to SQL NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
