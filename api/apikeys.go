package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/exameye/proctor/db"
	"github.com/exameye/proctor/models"
)

// generateAPIKey produces a random 64-character hex key.
func generateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// masterKeyOK guards key management behind the operator's master key.
// An unset master key locks these endpoints entirely.
func masterKeyOK(r *http.Request) bool {
	master := os.Getenv("MASTER_API_KEY")
	return master != "" && r.Header.Get("Authorization") == master
}

// CreateAPIKey issues a new dashboard key.
func (s *Server) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	if !masterKeyOK(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	key, err := generateAPIKey()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate API key")
		return
	}

	created, err := s.Keys.Insert(key, req.Description)
	if err != nil {
		log.Printf("API key creation error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// DeleteAPIKey revokes a key by id.
func (s *Server) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	if !masterKeyOK(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.Keys.Delete(req.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		log.Printf("API key deletion error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAPIKeys lists every issued key.
func (s *Server) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	if !masterKeyOK(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	keys, err := s.Keys.ListAll()
	if err != nil {
		log.Printf("API key listing error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list API keys")
		return
	}
	if keys == nil {
		keys = []models.APIKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}
