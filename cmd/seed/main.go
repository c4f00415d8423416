package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/klovaare/authgate/config"
	"github.com/klovaare/authgate/pkg/crypto"
)

// Seeds a demo user with one credential so the service can be exercised
// immediately after `docker compose up`.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "demo@example.com"
	application := "demo-app"
	password := "Demo1234"

	hash, err := crypto.NewArgon2().Hash(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var userID string
	err = db.QueryRow(`
		INSERT INTO users (email)
		VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET updated_at = now()
		RETURNING id
	`, email).Scan(&userID)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}

	var accessID string
	err = db.QueryRow(`
		INSERT INTO accesses (user_id, application, credential_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, application) DO UPDATE SET credential_hash = EXCLUDED.credential_hash, updated_at = now()
		RETURNING id
	`, userID, application, hash).Scan(&accessID)
	if err != nil {
		log.Fatalf("failed to seed access: %v", err)
	}

	fmt.Printf("seeded user: id=%s email=%s application=%s password=%s access=%s\n",
		userID, email, application, password, accessID)
}
