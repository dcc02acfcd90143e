// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev admin (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"inotebook/backend/internal/config"
	"inotebook/backend/internal/db"
	notedomain "inotebook/backend/internal/note/domain"
	noterepo "inotebook/backend/internal/note/repository"
	"inotebook/backend/internal/security"
	userdomain "inotebook/backend/internal/user/domain"
	userrepo "inotebook/backend/internal/user/repository"
)

const (
	devUserEmail = "dev@example.com"
	memberEmail  = "member@example.com"
	devPassword  = "Dev-Password-123"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash(ctx, []byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	admin := &userdomain.User{
		ID:            uuid.New().String(),
		Email:         devUserEmail,
		Name:          "Dev Admin",
		PasswordHash:  passwordHash,
		IsAdmin:       true,
		EmailVerified: true,
		Status:        userdomain.UserStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	member := &userdomain.User{
		ID:            uuid.New().String(),
		Email:         memberEmail,
		Name:          "Member User",
		PasswordHash:  passwordHash,
		EmailVerified: true,
		Status:        userdomain.UserStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, u := range []*userdomain.User{admin, member} {
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create %s: %v", u.Email, err)
		}
	}

	// A sample note needs the at-rest cipher; skip it when ENCRYPTION_KEY is not set.
	if cipher, err := security.NewCipher(cfg.EncryptionKey); err == nil {
		body, err := cipher.Encrypt("Welcome to iNotebook. This note is stored encrypted.")
		if err != nil {
			log.Fatalf("encrypt note: %v", err)
		}
		note := &notedomain.Note{
			ID:        uuid.New().String(),
			UserID:    member.ID,
			Title:     "Welcome",
			BodyEnc:   body,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := noterepo.NewPostgresRepository(conn).Create(ctx, note); err != nil {
			log.Fatalf("create note: %v", err)
		}
	} else {
		log.Println("ENCRYPTION_KEY not set; skipping sample note")
	}

	log.Printf("Seed complete: %s (admin) and %s, password %q", devUserEmail, memberEmail, devPassword)
}
