package db

import (
	"database/sql"
	"errors"

	"github.com/exameye/proctor/models"
	"github.com/lib/pq"
)

// ErrDuplicateEmail indicates a registration with an email that is
// already taken.
var ErrDuplicateEmail = errors.New("email already registered")

// StudentStore persists student records in Postgres
type StudentStore struct {
	db *sql.DB
}

func NewStudentStore(db *sql.DB) *StudentStore {
	return &StudentStore{db: db}
}

func (s *StudentStore) Insert(student models.Student) error {
	_, err := s.db.Exec(`
		INSERT INTO students (id, student_id, name, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, student.ID, student.StudentID, student.Name, student.Email, student.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return storageErr("insert student", err)
	}
	return nil
}

func (s *StudentStore) FindByStudentID(studentID string) (models.Student, error) {
	var student models.Student
	err := s.db.QueryRow(`
		SELECT id, student_id, name, email, created_at
		FROM students
		WHERE student_id = $1
	`, studentID).Scan(
		&student.ID,
		&student.StudentID,
		&student.Name,
		&student.Email,
		&student.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Student{}, ErrNotFound
	}
	if err != nil {
		return models.Student{}, storageErr("find student", err)
	}
	return student, nil
}

func (s *StudentStore) ListAll() ([]models.Student, error) {
	rows, err := s.db.Query(`
		SELECT id, student_id, name, email, created_at
		FROM students
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, storageErr("list students", err)
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		var student models.Student
		err := rows.Scan(
			&student.ID,
			&student.StudentID,
			&student.Name,
			&student.Email,
			&student.CreatedAt,
		)
		if err != nil {
			return nil, storageErr("scan student", err)
		}
		students = append(students, student)
	}
	if err = rows.Err(); err != nil {
		return nil, storageErr("list students", err)
	}
	return students, nil
}
