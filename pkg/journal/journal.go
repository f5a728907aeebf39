package journal

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Outcome describes how a conversation ended. Amounts and notes are deliberately absent:
// the submitted payload is never stored locally.
type Outcome struct {
	SenderID string
	Kind     string
	RecordID string
	At       time.Time
}

// Entry is the conversation_outcomes row.
type Entry struct {
	ID        uint      `gorm:"primaryKey"`
	SenderID  string    `gorm:"size:64;index;not null"`
	Outcome   string    `gorm:"size:32;not null"`
	RecordID  string    `gorm:"size:64"`
	CreatedAt time.Time `gorm:"index"`
}

func (Entry) TableName() string {
	return "conversation_outcomes"
}

type Journal struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the outcomes table.
func Open(dsn string) (*Journal, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	log.Printf("Journal ready (table %s)", Entry{}.TableName())
	return &Journal{db: db}, nil
}

func newWithDB(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Record(ctx context.Context, o Outcome) error {
	entry := toEntry(o)
	if err := j.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record %s outcome for %s: %w", o.Kind, o.SenderID, err)
	}
	return nil
}

// Recent returns the newest entries for senderID, newest first.
func (j *Journal) Recent(ctx context.Context, senderID string, limit int) ([]Entry, error) {
	var entries []Entry
	err := j.db.WithContext(ctx).
		Where("sender_id = ?", senderID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load outcomes for %s: %w", senderID, err)
	}
	return entries, nil
}

func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toEntry(o Outcome) Entry {
	at := o.At
	if at.IsZero() {
		at = time.Now()
	}
	return Entry{
		SenderID:  o.SenderID,
		Outcome:   o.Kind,
		RecordID:  o.RecordID,
		CreatedAt: at,
	}
}
