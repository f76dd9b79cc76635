package repository

import (
	"context"

	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
)

// AlertTypeRepository handles alert type persistence.
type AlertTypeRepository interface {
	List(ctx context.Context) ([]entities.AlertType, error)
	Get(ctx context.Context, id uint) (*entities.AlertType, error)
	GetByName(ctx context.Context, name string) (*entities.AlertType, error)
	// Create returns ErrAlertTypeNameTaken if the name exists.
	Create(ctx context.Context, alertType *entities.AlertType) error
	// Update returns ErrAlertTypeNameTaken if another type has the name.
	Update(ctx context.Context, alertType *entities.AlertType) error
	// Delete returns ErrAlertTypeInUse while entries reference the type.
	Delete(ctx context.Context, id uint) error

	// CountByName counts types named name, ignoring excludeID when non-zero.
	CountByName(ctx context.Context, name string, excludeID uint) (int64, error)
	// CountEntries counts entries referencing the type.
	CountEntries(ctx context.Context, id uint) (int64, error)
}
