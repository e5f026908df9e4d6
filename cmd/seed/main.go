package main

import (
	"log"
	"os"

	"github.com/CampusCare/CC-Backend/internal/auth"
	"github.com/CampusCare/CC-Backend/internal/issues"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Seeds a maintenance account and a demo student, and sanity-checks the
// category catalog. Safe to re-run: existing usernames are skipped.
func main() {
	godotenv.Load(".env.local")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("DB connection error: %v", err)
	}

	categoryFile := os.Getenv("CATEGORY_FILE")
	if categoryFile == "" {
		categoryFile = issues.DefaultCategoryFile
	}
	catalog, err := issues.LoadCatalog(categoryFile)
	if err != nil {
		log.Fatalf("Category catalog error: %v", err)
	}
	log.Printf("Catalog OK: %d categories", len(catalog.Categories))

	seedUser(db, "maintenance", envOr("SEED_MAINTENANCE_PASSWORD", "maintenance-dev"), "maintenance")
	seedUser(db, "demo-student", envOr("SEED_STUDENT_PASSWORD", "student-dev"), "student")
}

func seedUser(db *gorm.DB, username, password, role string) {
	var existing auth.User
	if err := db.First(&existing, "username = ?", username).Error; err == nil {
		log.Printf("User exists, skipping: %s", username)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Hash error: %v", err)
	}

	user := auth.User{
		UserID:         uuid.NewString(),
		Username:       username,
		HashedPassword: string(hashed),
		Role:           role,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("Create %s: %v", username, err)
	}
	log.Printf("Created %s user: %s", role, username)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
