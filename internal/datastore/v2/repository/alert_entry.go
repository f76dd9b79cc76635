package repository

import (
	"context"

	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
)

// AlertEntryRepository handles alert schedule entry persistence. Returned
// entries have their AlertType preloaded.
type AlertEntryRepository interface {
	// ListByKind returns a kind's entries ordered by start.
	ListByKind(ctx context.Context, kind int) ([]entities.AlertEntry, error)
	ListAll(ctx context.Context) ([]entities.AlertEntry, error)
	Get(ctx context.Context, id uint) (*entities.AlertEntry, error)
	// Create returns ErrAlertEntryStartTaken if the kind already has an entry
	// at the same start and ErrAlertTypeNotFound for an unknown alert type.
	Create(ctx context.Context, entry *entities.AlertEntry) error
	// Update has the same checks as Create, excluding the entry itself.
	Update(ctx context.Context, entry *entities.AlertEntry) error
	Delete(ctx context.Context, id uint) error
	// EnsureEntry inserts entry unless its kind already has one at the same
	// start. Reports whether a row was inserted.
	EnsureEntry(ctx context.Context, entry *entities.AlertEntry) (bool, error)

	CountByKind(ctx context.Context, kind int) (int64, error)
}
