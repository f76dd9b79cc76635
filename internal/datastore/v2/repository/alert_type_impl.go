package repository

import (
	"context"
	"fmt"

	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/errors"
	"gorm.io/gorm"
)

// alertTypeRepository implements AlertTypeRepository.
type alertTypeRepository struct {
	db *gorm.DB
}

// NewAlertTypeRepository creates a new AlertTypeRepository.
func NewAlertTypeRepository(db *gorm.DB) AlertTypeRepository {
	return &alertTypeRepository{db: db}
}

// List returns all alert types in creation order.
func (r *alertTypeRepository) List(ctx context.Context) ([]entities.AlertType, error) {
	var types []entities.AlertType
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to list alert types: %w", err)
	}
	return types, nil
}

// Get returns a single alert type by ID.
// Returns ErrAlertTypeNotFound if the type does not exist.
func (r *alertTypeRepository) Get(ctx context.Context, id uint) (*entities.AlertType, error) {
	var alertType entities.AlertType
	if err := r.db.WithContext(ctx).First(&alertType, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertTypeNotFound
		}
		return nil, fmt.Errorf("failed to get alert type %d: %w", id, err)
	}
	return &alertType, nil
}

// GetByName returns the alert type with the exact name.
func (r *alertTypeRepository) GetByName(ctx context.Context, name string) (*entities.AlertType, error) {
	var alertType entities.AlertType
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&alertType).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertTypeNotFound
		}
		return nil, fmt.Errorf("failed to get alert type %q: %w", name, err)
	}
	return &alertType, nil
}

// Create inserts a new alert type after checking name uniqueness.
func (r *alertTypeRepository) Create(ctx context.Context, alertType *entities.AlertType) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := countTypesByName(tx, alertType.Name, 0)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAlertTypeNameTaken
		}
		if err := tx.Create(alertType).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlertTypeNameTaken
			}
			return fmt.Errorf("failed to create alert type: %w", err)
		}
		return nil
	})
}

// Update replaces all fields of an existing alert type.
func (r *alertTypeRepository) Update(ctx context.Context, alertType *entities.AlertType) error {
	if alertType.ID == 0 {
		return fmt.Errorf("failed to update alert type: missing ID")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.AlertType
		if err := tx.First(&existing, alertType.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertTypeNotFound
			}
			return fmt.Errorf("failed to load alert type %d: %w", alertType.ID, err)
		}
		count, err := countTypesByName(tx, alertType.Name, alertType.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAlertTypeNameTaken
		}
		alertType.CreatedAt = existing.CreatedAt
		if err := tx.Save(alertType).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlertTypeNameTaken
			}
			return fmt.Errorf("failed to update alert type %d: %w", alertType.ID, err)
		}
		return nil
	})
}

// Delete removes an alert type that no entry references.
func (r *alertTypeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.AlertType
		if err := tx.First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertTypeNotFound
			}
			return fmt.Errorf("failed to load alert type %d: %w", id, err)
		}
		refs, err := countEntriesForType(tx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return ErrAlertTypeInUse
		}
		if err := tx.Delete(&entities.AlertType{}, id).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return ErrAlertTypeInUse
			}
			return fmt.Errorf("failed to delete alert type %d: %w", id, err)
		}
		return nil
	})
}

// CountByName returns the number of types with exactly this name.
func (r *alertTypeRepository) CountByName(ctx context.Context, name string, excludeID uint) (int64, error) {
	return countTypesByName(r.db.WithContext(ctx), name, excludeID)
}

// CountEntries returns the number of entries that reference the type.
func (r *alertTypeRepository) CountEntries(ctx context.Context, id uint) (int64, error) {
	return countEntriesForType(r.db.WithContext(ctx), id)
}

func countTypesByName(db *gorm.DB, name string, excludeID uint) (int64, error) {
	var count int64
	query := db.Model(&entities.AlertType{}).Where("name = ?", name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count alert types by name: %w", err)
	}
	return count, nil
}

func countEntriesForType(db *gorm.DB, id uint) (int64, error) {
	var count int64
	if err := db.Model(&entities.AlertEntry{}).Where("alert_type_id = ?", id).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count entries for alert type %d: %w", id, err)
	}
	return count, nil
}
