package repository

import (
	"context"

	"gorm.io/gorm"
)

// AlertStore bundles the alert repositories over one connection so that
// check-then-write sequences can share a transaction.
type AlertStore interface {
	AlertTypes() AlertTypeRepository
	AlertEntries() AlertEntryRepository
	// InTx runs fn with repositories bound to a single transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx AlertStore) error) error
}

type alertStore struct {
	db *gorm.DB
}

// NewAlertStore creates an AlertStore backed by db.
func NewAlertStore(db *gorm.DB) AlertStore {
	return &alertStore{db: db}
}

func (s *alertStore) AlertTypes() AlertTypeRepository {
	return NewAlertTypeRepository(s.db)
}

func (s *alertStore) AlertEntries() AlertEntryRepository {
	return NewAlertEntryRepository(s.db)
}

func (s *alertStore) InTx(ctx context.Context, fn func(tx AlertStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&alertStore{db: tx})
	})
}
