package issues

import (
	"log"
	"os"

	"github.com/CampusCare/CC-Backend/internal/db"
	"github.com/CampusCare/CC-Backend/internal/geo"
	"github.com/CampusCare/CC-Backend/internal/vision"
)

// Collaborators wired at startup. The workflow registry owns one draft per
// active session.
var (
	catalog   *Catalog
	gate      geo.Gate
	validator vision.Validator
	store     Store
	blobs     BlobStore
	notifier  Notifier
	registry  *Registry
)

// DefaultCategoryFile is used when CATEGORY_FILE is unset.
const DefaultCategoryFile = "internal/issues/data/categories.yaml"

func Init() {
	if err := db.EnsureSchema(db.DB, "issues"); err != nil {
		log.Fatal("Failed to ensure schema issues: ", err)
	}

	if err := db.DB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Fatal("Failed to enable uuid-ossp extension:", err)
	}

	if err := db.DB.AutoMigrate(&Issue{}); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}

	categoryFile := os.Getenv("CATEGORY_FILE")
	if categoryFile == "" {
		categoryFile = DefaultCategoryFile
	}
	var err error
	catalog, err = LoadCatalog(categoryFile)
	if err != nil {
		log.Fatal("Failed to load category catalog: ", err)
	}
	log.Printf("[issues] loaded %d categories from %s", len(catalog.Categories), categoryFile)

	gate, err = geo.NewGate(geo.LoadFromEnv())
	if err != nil {
		log.Fatal("Failed to configure geofence gate: ", err)
	}

	validator, err = vision.NewFromConfig(vision.LoadFromEnv())
	if err != nil {
		log.Fatal("Failed to configure image validator: ", err)
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	blobs = DiskStore{Dir: uploadDir, BaseURL: os.Getenv("PUBLIC_BASE_URL")}

	if url := os.Getenv("NOTIFY_WEBHOOK_URL"); url != "" {
		notifier = NewWebhookNotifier(url)
	} else {
		log.Printf("[issues] NOTIFY_WEBHOOK_URL not set, notifications disabled")
	}

	store = GormStore{}
	registry = NewRegistry(validator, gate, store, blobs, notifier, catalog)
}
