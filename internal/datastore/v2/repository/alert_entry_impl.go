package repository

import (
	"context"
	"fmt"

	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// alertEntryRepository implements AlertEntryRepository.
type alertEntryRepository struct {
	db *gorm.DB
}

// NewAlertEntryRepository creates a new AlertEntryRepository.
func NewAlertEntryRepository(db *gorm.DB) AlertEntryRepository {
	return &alertEntryRepository{db: db}
}

// ListByKind returns the entries of one kind ordered by start minute.
func (r *alertEntryRepository) ListByKind(ctx context.Context, kind int) ([]entities.AlertEntry, error) {
	var entries []entities.AlertEntry
	err := r.db.WithContext(ctx).Preload("AlertType").
		Where("kind = ?", kind).
		Order("start_minute ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alert entries for kind %d: %w", kind, err)
	}
	return entries, nil
}

// ListAll returns every entry ordered by kind then start minute.
func (r *alertEntryRepository) ListAll(ctx context.Context) ([]entities.AlertEntry, error) {
	var entries []entities.AlertEntry
	err := r.db.WithContext(ctx).Preload("AlertType").
		Order("kind ASC").Order("start_minute ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alert entries: %w", err)
	}
	return entries, nil
}

// Get returns a single entry by ID.
// Returns ErrAlertEntryNotFound if the entry does not exist.
func (r *alertEntryRepository) Get(ctx context.Context, id uint) (*entities.AlertEntry, error) {
	var entry entities.AlertEntry
	if err := r.db.WithContext(ctx).Preload("AlertType").First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertEntryNotFound
		}
		return nil, fmt.Errorf("failed to get alert entry %d: %w", id, err)
	}
	return &entry, nil
}

// Create inserts a new entry.
func (r *alertEntryRepository) Create(ctx context.Context, entry *entities.AlertEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkEntryRefs(tx, entry, 0); err != nil {
			return err
		}
		if err := tx.Omit("AlertType").Create(entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlertEntryStartTaken
			}
			return fmt.Errorf("failed to create alert entry: %w", err)
		}
		return loadEntryType(tx, entry)
	})
}

// Update writes start, value and alert type of an existing entry. The kind
// of an entry never changes.
func (r *alertEntryRepository) Update(ctx context.Context, entry *entities.AlertEntry) error {
	if entry.ID == 0 {
		return fmt.Errorf("failed to update alert entry: missing ID")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.AlertEntry
		if err := tx.First(&existing, entry.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertEntryNotFound
			}
			return fmt.Errorf("failed to load alert entry %d: %w", entry.ID, err)
		}
		entry.Kind = existing.Kind
		if err := checkEntryRefs(tx, entry, entry.ID); err != nil {
			return err
		}
		err := tx.Model(&entities.AlertEntry{ID: entry.ID}).
			Updates(map[string]any{
				"start_minute":  entry.Start,
				"value":         entry.Value,
				"alert_type_id": entry.AlertTypeID,
			}).Error
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlertEntryStartTaken
			}
			return fmt.Errorf("failed to update alert entry %d: %w", entry.ID, err)
		}
		if err := tx.First(entry, entry.ID).Error; err != nil {
			return fmt.Errorf("failed to reload alert entry %d: %w", entry.ID, err)
		}
		return loadEntryType(tx, entry)
	})
}

// Delete removes an entry.
func (r *alertEntryRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.AlertEntry{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert entry %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertEntryNotFound
	}
	return nil
}

// EnsureEntry inserts entry unless (kind, start) already exists.
func (r *alertEntryRepository) EnsureEntry(ctx context.Context, entry *entities.AlertEntry) (bool, error) {
	result := r.db.WithContext(ctx).Omit("AlertType").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "start_minute"}},
			DoNothing: true,
		}).
		Create(entry)
	if result.Error != nil {
		return false, fmt.Errorf("failed to ensure alert entry for kind %d: %w", entry.Kind, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountByKind returns the number of entries of one kind.
func (r *alertEntryRepository) CountByKind(ctx context.Context, kind int) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.AlertEntry{}).Where("kind = ?", kind).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count alert entries for kind %d: %w", kind, err)
	}
	return count, nil
}

// checkEntryRefs verifies the alert type exists and the start is free.
func checkEntryRefs(tx *gorm.DB, entry *entities.AlertEntry, excludeID uint) error {
	var typeCount int64
	if err := tx.Model(&entities.AlertType{}).Where("id = ?", entry.AlertTypeID).Count(&typeCount).Error; err != nil {
		return fmt.Errorf("failed to check alert type %d: %w", entry.AlertTypeID, err)
	}
	if typeCount == 0 {
		return ErrAlertTypeNotFound
	}

	var startCount int64
	query := tx.Model(&entities.AlertEntry{}).Where("kind = ? AND start_minute = ?", entry.Kind, entry.Start)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&startCount).Error; err != nil {
		return fmt.Errorf("failed to check entry start: %w", err)
	}
	if startCount > 0 {
		return ErrAlertEntryStartTaken
	}
	return nil
}

func loadEntryType(tx *gorm.DB, entry *entities.AlertEntry) error {
	var alertType entities.AlertType
	if err := tx.First(&alertType, entry.AlertTypeID).Error; err != nil {
		return fmt.Errorf("failed to load alert type %d: %w", entry.AlertTypeID, err)
	}
	entry.AlertType = &alertType
	return nil
}
