package db

import (
	"database/sql"

	"github.com/exameye/proctor/models"
)

// APIKeyStore persists dashboard API keys.
type APIKeyStore struct {
	db *sql.DB
}

func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

func (s *APIKeyStore) Insert(key, description string) (models.APIKey, error) {
	var k models.APIKey
	err := s.db.QueryRow(`
		INSERT INTO api_keys (key, description)
		VALUES ($1, $2)
		RETURNING id, key, description, created_at, is_active
	`, key, description).Scan(&k.ID, &k.Key, &k.Description, &k.CreatedAt, &k.IsActive)
	if err != nil {
		return models.APIKey{}, storageErr("insert api key", err)
	}
	return k, nil
}

func (s *APIKeyStore) Delete(id int) error {
	result, err := s.db.Exec(`DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete api key", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("delete api key", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *APIKeyStore) ListAll() ([]models.APIKey, error) {
	rows, err := s.db.Query(`
		SELECT id, key, description, created_at, last_used_at, is_active
		FROM api_keys
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, storageErr("list api keys", err)
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		var k models.APIKey
		err := rows.Scan(
			&k.ID,
			&k.Key,
			&k.Description,
			&k.CreatedAt,
			&k.LastUsedAt,
			&k.IsActive,
		)
		if err != nil {
			return nil, storageErr("scan api key", err)
		}
		keys = append(keys, k)
	}
	if err = rows.Err(); err != nil {
		return nil, storageErr("list api keys", err)
	}
	return keys, nil
}

// Validate reports whether the key is active, stamping last_used_at as a
// side effect.
func (s *APIKeyStore) Validate(key string) bool {
	var exists bool
	err := s.db.QueryRow(`
		UPDATE api_keys
		SET last_used_at = NOW()
		WHERE key = $1 AND is_active = true
		RETURNING true
	`, key).Scan(&exists)
	return err == nil && exists
}
