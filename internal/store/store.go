// Package store is the typed repository layer over the relational
// database. Every successful write publishes a change event to the feed
// bus, which is what keeps live inbox sessions in sync.
package store

import (
	"fmt"
	"log"

	"support-inbox/internal/config"
	"support-inbox/internal/feed"
	rows "support-inbox/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// BlobStore is the attachment binary storage the repository cascades
// into on message deletion.
type BlobStore interface {
	PublicURL(path string) string
	Remove(path string) error
}

type Store struct {
	db      *gorm.DB
	bus     *feed.Bus
	blobs   BlobStore
	ownerID string
}

// NewStore wires the repository. ownerID is stamped on every created row.
func NewStore(db *gorm.DB, bus *feed.Bus, blobs BlobStore, ownerID string) *Store {
	return &Store{db: db, bus: bus, blobs: blobs, ownerID: ownerID}
}

// Open connects to PostgreSQL when DB_HOST is configured, otherwise to a
// local SQLite file, and runs auto-migration.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.DBHost != "" {
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(cfg.DBPath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database connected and migrated")
	return db, nil
}

// Migrate runs auto-migration for all inbox tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&rows.Customer{},
		&rows.Message{},
		&rows.Attachment{},
		&rows.ResponseTemplate{},
	)
	if err != nil {
		return fmt.Errorf("failed to run auto-migration: %w", err)
	}
	return nil
}

func (s *Store) publish(table string, kind feed.EventKind, row any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(feed.Event{Table: table, Kind: kind, Row: row})
}
