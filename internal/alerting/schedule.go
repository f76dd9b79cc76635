package alerting

import (
	"context"
	"fmt"

	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/datastore/v2/repository"
	"github.com/glucoalert/alertcore/internal/logger"
)

// Bounds is the range a schedule entry's start may be moved within.
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
	// Immutable is set for the default entry, whose start is fixed at 0.
	Immutable bool `json:"immutable"`
}

// Contains reports whether start is an allowed new start.
func (b Bounds) Contains(start int) bool {
	if b.Immutable {
		return false
	}
	return start >= b.Min && start <= b.Max
}

// boundsAt computes the bounds of entries[i]; entries must be sorted by start.
func boundsAt(entries []entities.AlertEntry, i int) Bounds {
	if entries[i].IsDefault() {
		return Bounds{Min: FirstMinute, Max: FirstMinute, Immutable: true}
	}
	b := Bounds{Min: FirstMinute + 1, Max: LastMinute}
	if i > 0 {
		b.Min = entries[i-1].Start + 1
	}
	if i+1 < len(entries) {
		b.Max = entries[i+1].Start - 1
	}
	return b
}

// EntryFields are the user-editable attributes of a schedule entry. Value
// is in the native unit.
type EntryFields struct {
	Start       int  `json:"start"`
	Value       int  `json:"value"`
	AlertTypeID uint `json:"alert_type_id"`
}

// Schedule owns the per-kind alert entry sequences. Every kind's sequence
// starts with a default entry at minute 0 that cannot be moved or deleted;
// each entry applies until the next entry's start.
type Schedule struct {
	store    repository.AlertStore
	bus      *ChangeBus
	observer OperationObserver
	log      logger.Logger
}

// NewSchedule creates a schedule over store. bus may be nil.
func NewSchedule(store repository.AlertStore, bus *ChangeBus, log logger.Logger) *Schedule {
	if log == nil {
		log = logger.NewNop()
	}
	return &Schedule{
		store:    store,
		bus:      bus,
		observer: nopObserver{},
		log:      log.Module("schedule"),
	}
}

// SetObserver installs the operation observer.
func (s *Schedule) SetObserver(o OperationObserver) {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

// ListForKind returns the kind's entries ordered by start.
func (s *Schedule) ListForKind(ctx context.Context, code int) ([]entities.AlertEntry, error) {
	if _, err := Lookup(code); err != nil {
		return nil, err
	}
	entries, err := s.store.AlertEntries().ListByKind(ctx, code)
	if err != nil {
		return nil, translateStoreError(err, "list alert entries")
	}
	return entries, nil
}

// Get returns the entry with id.
func (s *Schedule) Get(ctx context.Context, id uint) (*entities.AlertEntry, error) {
	e, err := s.store.AlertEntries().Get(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "get alert entry")
	}
	return e, nil
}

// EditableBounds returns the range entry id's start may be moved within.
func (s *Schedule) EditableBounds(ctx context.Context, id uint) (Bounds, error) {
	_, entries, i, err := loadWithSiblings(ctx, s.store, id)
	if err != nil {
		return Bounds{}, err
	}
	return boundsAt(entries, i), nil
}

// loadWithSiblings returns the entry, its kind's sorted sequence and the
// entry's index in it.
func loadWithSiblings(ctx context.Context, store repository.AlertStore, id uint) (*entities.AlertEntry, []entities.AlertEntry, int, error) {
	entry, err := store.AlertEntries().Get(ctx, id)
	if err != nil {
		return nil, nil, 0, translateStoreError(err, "get alert entry")
	}
	entries, err := store.AlertEntries().ListByKind(ctx, entry.Kind)
	if err != nil {
		return nil, nil, 0, translateStoreError(err, "list alert entries")
	}
	for i := range entries {
		if entries[i].ID == id {
			return entry, entries, i, nil
		}
	}
	return nil, nil, 0, fmt.Errorf("alert entry %d: %w", id, ErrNotFound)
}

// SetStart moves entry id to newStart, which must lie within its bounds.
func (s *Schedule) SetStart(ctx context.Context, id uint, newStart int) error {
	return s.mutate(ctx, OpEntrySetStart, id, func(_ Kind, current *entities.AlertEntry, b Bounds) error {
		if b.Immutable {
			return ErrIsDefaultEntry
		}
		if !b.Contains(newStart) {
			return outOfBoundsStart(newStart, b)
		}
		current.Start = newStart
		return nil
	})
}

// SetValue sets entry id's threshold, in the native unit.
func (s *Schedule) SetValue(ctx context.Context, id uint, value int) error {
	return s.mutate(ctx, OpEntrySetValue, id, func(k Kind, current *entities.AlertEntry, _ Bounds) error {
		if !k.NeedsValue {
			return fmt.Errorf("%w: %s", ErrKindHasNoValue, k.Name)
		}
		if err := checkValue(value); err != nil {
			return err
		}
		current.Value = value
		return nil
	})
}

// SetAlertType points entry id at another alert type.
func (s *Schedule) SetAlertType(ctx context.Context, id, alertTypeID uint) error {
	return s.mutate(ctx, OpEntrySetType, id, func(_ Kind, current *entities.AlertEntry, _ Bounds) error {
		current.AlertTypeID = alertTypeID
		return nil
	})
}

// Update writes all editable fields of entry id at once. A value change on a
// kind without a value and a start change on the default entry are refused.
func (s *Schedule) Update(ctx context.Context, id uint, fields EntryFields) error {
	return s.mutate(ctx, OpEntryUpdate, id, func(k Kind, current *entities.AlertEntry, b Bounds) error {
		if fields.Start != current.Start {
			if b.Immutable {
				return ErrIsDefaultEntry
			}
			if !b.Contains(fields.Start) {
				return outOfBoundsStart(fields.Start, b)
			}
		}
		if fields.Value != current.Value {
			if !k.NeedsValue {
				return fmt.Errorf("%w: %s", ErrKindHasNoValue, k.Name)
			}
			if err := checkValue(fields.Value); err != nil {
				return err
			}
		}
		current.Start = fields.Start
		current.Value = fields.Value
		current.AlertTypeID = fields.AlertTypeID
		return nil
	})
}

// mutate loads entry id and its neighbours in one transaction, lets apply
// change a copy, and writes it back.
func (s *Schedule) mutate(ctx context.Context, op string, id uint, apply func(Kind, *entities.AlertEntry, Bounds) error) error {
	var updated *entities.AlertEntry
	err := s.store.InTx(ctx, func(tx repository.AlertStore) error {
		entry, entries, i, err := loadWithSiblings(ctx, tx, id)
		if err != nil {
			return err
		}
		k, err := Lookup(entry.Kind)
		if err != nil {
			return err
		}

		next := *entry
		next.AlertType = nil
		if err := apply(k, &next, boundsAt(entries, i)); err != nil {
			return err
		}
		if err := tx.AlertEntries().Update(ctx, &next); err != nil {
			return translateStoreError(err, op)
		}
		updated = &next
		return nil
	})
	s.observer.ObserveOperation(op, err)
	if err != nil {
		return err
	}

	s.log.Info("alert entry updated",
		logger.String("operation", op),
		logger.Uint64("entry_id", uint64(id)),
		logger.Int("kind", updated.Kind),
		logger.Int("start", updated.Start))
	s.bus.Publish(Change{
		Kind:        ChangeEntryUpdated,
		EntryID:     id,
		AlertKind:   updated.Kind,
		AlertTypeID: updated.AlertTypeID,
	})
	return nil
}

// Create adds an entry to kind code. The first entry of a kind must start
// at 0. Kinds without a value always store 0.
func (s *Schedule) Create(ctx context.Context, code, start, value int, alertTypeID uint) (*entities.AlertEntry, error) {
	entry, err := s.create(ctx, code, start, value, alertTypeID)
	s.observer.ObserveOperation(OpEntryCreate, err)
	if err != nil {
		return nil, err
	}

	s.log.Info("alert entry created",
		logger.Uint64("entry_id", uint64(entry.ID)),
		logger.Int("kind", entry.Kind),
		logger.Int("start", entry.Start))
	s.bus.Publish(Change{
		Kind:        ChangeEntryCreated,
		EntryID:     entry.ID,
		AlertKind:   entry.Kind,
		AlertTypeID: entry.AlertTypeID,
	})
	return entry, nil
}

func (s *Schedule) create(ctx context.Context, code, start, value int, alertTypeID uint) (*entities.AlertEntry, error) {
	k, err := Lookup(code)
	if err != nil {
		return nil, err
	}
	if start < FirstMinute || start > LastMinute {
		return nil, fmt.Errorf("%w: start %d outside [%d, %d]", ErrOutOfBounds, start, FirstMinute, LastMinute)
	}
	if k.NeedsValue {
		if err := checkValue(value); err != nil {
			return nil, err
		}
	} else {
		value = 0
	}

	entry := &entities.AlertEntry{Kind: code, Start: start, Value: value, AlertTypeID: alertTypeID}
	err = s.store.InTx(ctx, func(tx repository.AlertStore) error {
		n, err := tx.AlertEntries().CountByKind(ctx, code)
		if err != nil {
			return translateStoreError(err, "count alert entries")
		}
		if n == 0 && start != FirstMinute {
			return fmt.Errorf("%w: the first %s entry must start at 00:00", ErrOutOfBounds, k.Name)
		}
		return translateStoreError(tx.AlertEntries().Create(ctx, entry), "create alert entry")
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes entry id. The default entry cannot be deleted.
func (s *Schedule) Delete(ctx context.Context, id uint) error {
	var deleted *entities.AlertEntry
	err := s.store.InTx(ctx, func(tx repository.AlertStore) error {
		entry, err := tx.AlertEntries().Get(ctx, id)
		if err != nil {
			return translateStoreError(err, "get alert entry")
		}
		if entry.IsDefault() {
			return ErrIsDefaultEntry
		}
		if err := tx.AlertEntries().Delete(ctx, id); err != nil {
			return translateStoreError(err, "delete alert entry")
		}
		deleted = entry
		return nil
	})
	s.observer.ObserveOperation(OpEntryDelete, err)
	if err != nil {
		return err
	}

	s.log.Info("alert entry deleted",
		logger.Uint64("entry_id", uint64(id)),
		logger.Int("kind", deleted.Kind))
	s.bus.Publish(Change{
		Kind:        ChangeEntryDeleted,
		EntryID:     id,
		AlertKind:   deleted.Kind,
		AlertTypeID: deleted.AlertTypeID,
	})
	return nil
}

func checkValue(value int) error {
	if value < 0 || value > MaxValue {
		return fmt.Errorf("%w: value %d outside [0, %d]", ErrOutOfBounds, value, MaxValue)
	}
	return nil
}

func outOfBoundsStart(start int, b Bounds) error {
	return fmt.Errorf("%w: start %d outside [%d, %d]", ErrOutOfBounds, start, b.Min, b.Max)
}
