package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/exameye/proctor/api"
	"github.com/exameye/proctor/db"
	"github.com/exameye/proctor/hub"
	"github.com/exameye/proctor/proctor"
	"github.com/exameye/proctor/registry"
	"github.com/exameye/proctor/services/detector"
	"github.com/exameye/proctor/services/snapshots"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	// Initialize database connection
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	sessions := db.NewSessionStore(db.DB)
	students := db.NewStudentStore(db.DB)
	violations := db.NewViolationStore(db.DB)
	keys := db.NewAPIKeyStore(db.DB)

	// Session registry, recovering sessions left active by a restart
	reg := registry.New(sessions)
	if recovered, err := reg.Restore(); err != nil {
		log.Fatalf("Failed to restore active sessions: %v", err)
	} else if recovered > 0 {
		log.Printf("Recovered %d active session(s)", recovered)
	}

	// Notification hub for the admin dashboard and student connections
	notifier := hub.New()
	defer notifier.Close()

	detectorURL := os.Getenv("DETECTOR_URL")
	if detectorURL == "" {
		detectorURL = "http://localhost:8100"
	}
	detect := detector.NewClient(detectorURL)

	uploader := snapshots.NewUploader(
		os.Getenv("SNAPSHOT_STORE_URL"),
		os.Getenv("SNAPSHOT_STORE_KEY"),
		os.Getenv("SNAPSHOT_BUCKET"),
	)

	service := proctor.NewService(reg, violations, detect, uploader, notifier)

	router := api.NewRouter(&api.Server{
		Service:    service,
		Registry:   reg,
		Hub:        notifier,
		Students:   students,
		Sessions:   sessions,
		Violations: violations,
		Keys:       keys,
		Calibrator: detect,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting ExamEye Shield API on :%s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}
}
