package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StorageEntry is one named value of durable client state
type StorageEntry struct {
	Name      string    `gorm:"primaryKey;size:128" json:"name"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryStorage keeps named entries in sqlite
type EntryStorage struct {
	db *gorm.DB
}

func NewEntryStorage(db *gorm.DB) *EntryStorage {
	return &EntryStorage{db: db}
}

func (s *EntryStorage) GetItem(name string) (string, bool, error) {
	var entry StorageEntry
	err := s.db.Where("name = ?", name).First(&entry).Error
	switch {
	case err == nil:
		return entry.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("get entry %q: %w", name, err)
	}
}

// SetItem inserts or replaces the entry
func (s *EntryStorage) SetItem(name, value string) error {
	entry := StorageEntry{Name: name, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("set entry %q: %w", name, err)
	}
	return nil
}

func (s *EntryStorage) RemoveItem(name string) error {
	if err := s.db.Where("name = ?", name).Delete(&StorageEntry{}).Error; err != nil {
		return fmt.Errorf("remove entry %q: %w", name, err)
	}
	return nil
}
