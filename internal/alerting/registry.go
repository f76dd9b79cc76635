package alerting

import (
	"context"
	"fmt"

	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/datastore/v2/repository"
	"github.com/glucoalert/alertcore/internal/logger"
)

// AlertTypeFields are the user-editable attributes of an alert type.
type AlertTypeFields struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Vibrate bool   `json:"vibrate"`
	// SoundName is nil for the platform default and "" for silence.
	SoundName                  *string `json:"sound_name"`
	OverrideMute               bool    `json:"override_mute"`
	SnoozeViaNotification      bool    `json:"snooze_via_notification"`
	DefaultSnoozePeriodMinutes int     `json:"default_snooze_period_minutes"`
}

// FieldsOf copies the editable attributes of t.
func FieldsOf(t *entities.AlertType) AlertTypeFields {
	f := AlertTypeFields{
		Name:                       t.Name,
		Enabled:                    t.Enabled,
		Vibrate:                    t.Vibrate,
		OverrideMute:               t.OverrideMute,
		SnoozeViaNotification:      t.SnoozeViaNotification,
		DefaultSnoozePeriodMinutes: t.DefaultSnoozePeriodMinutes,
	}
	if t.SoundName != nil {
		sound := *t.SoundName
		f.SoundName = &sound
	}
	return f
}

func (f AlertTypeFields) validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAlertType)
	}
	if f.DefaultSnoozePeriodMinutes < 0 {
		return fmt.Errorf("%w: default snooze period must not be negative", ErrInvalidAlertType)
	}
	return nil
}

func (f AlertTypeFields) applyTo(t *entities.AlertType) {
	t.Name = f.Name
	t.Enabled = f.Enabled
	t.Vibrate = f.Vibrate
	t.SoundName = nil
	if f.SoundName != nil {
		sound := *f.SoundName
		t.SoundName = &sound
	}
	t.OverrideMute = f.OverrideMute
	t.SnoozeViaNotification = f.SnoozeViaNotification
	t.DefaultSnoozePeriodMinutes = f.DefaultSnoozePeriodMinutes
}

// Registry owns the named alert types. Names are unique by exact,
// case-sensitive comparison.
type Registry struct {
	store    repository.AlertStore
	bus      *ChangeBus
	observer OperationObserver
	log      logger.Logger
}

// NewRegistry creates a registry over store. bus may be nil.
func NewRegistry(store repository.AlertStore, bus *ChangeBus, log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{
		store:    store,
		bus:      bus,
		observer: nopObserver{},
		log:      log.Module("registry"),
	}
}

// SetObserver installs the operation observer.
func (r *Registry) SetObserver(o OperationObserver) {
	if o == nil {
		o = nopObserver{}
	}
	r.observer = o
}

// List returns all alert types in insertion order.
func (r *Registry) List(ctx context.Context) ([]entities.AlertType, error) {
	types, err := r.store.AlertTypes().List(ctx)
	if err != nil {
		return nil, translateStoreError(err, "list alert types")
	}
	return types, nil
}

// Get returns the alert type with id.
func (r *Registry) Get(ctx context.Context, id uint) (*entities.AlertType, error) {
	t, err := r.store.AlertTypes().Get(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "get alert type")
	}
	return t, nil
}

// Create adds a new alert type.
func (r *Registry) Create(ctx context.Context, fields AlertTypeFields) (*entities.AlertType, error) {
	t, err := r.create(ctx, fields)
	r.observer.ObserveOperation(OpTypeCreate, err)
	if err != nil {
		return nil, err
	}

	r.log.Info("alert type created",
		logger.Uint64("alert_type_id", uint64(t.ID)),
		logger.String("name", t.Name))
	r.bus.Publish(Change{Kind: ChangeTypeCreated, AlertTypeID: t.ID})
	return t, nil
}

func (r *Registry) create(ctx context.Context, fields AlertTypeFields) (*entities.AlertType, error) {
	if err := fields.validate(); err != nil {
		return nil, err
	}

	t := &entities.AlertType{}
	fields.applyTo(t)
	if err := r.store.AlertTypes().Create(ctx, t); err != nil {
		return nil, translateStoreError(err, "create alert type")
	}
	return t, nil
}

// Update replaces the attributes of alert type id.
func (r *Registry) Update(ctx context.Context, id uint, fields AlertTypeFields) error {
	err := r.update(ctx, id, fields)
	r.observer.ObserveOperation(OpTypeUpdate, err)
	if err != nil {
		return err
	}

	r.log.Info("alert type updated",
		logger.Uint64("alert_type_id", uint64(id)),
		logger.String("name", fields.Name))
	r.bus.Publish(Change{Kind: ChangeTypeUpdated, AlertTypeID: id})
	return nil
}

func (r *Registry) update(ctx context.Context, id uint, fields AlertTypeFields) error {
	if err := fields.validate(); err != nil {
		return err
	}

	t := &entities.AlertType{ID: id}
	fields.applyTo(t)
	if err := r.store.AlertTypes().Update(ctx, t); err != nil {
		return translateStoreError(err, "update alert type")
	}
	return nil
}

// Delete removes alert type id. It fails with ErrInUse while any entry
// references the type.
func (r *Registry) Delete(ctx context.Context, id uint) error {
	err := translateStoreError(r.store.AlertTypes().Delete(ctx, id), "delete alert type")
	r.observer.ObserveOperation(OpTypeDelete, err)
	if err != nil {
		return err
	}

	r.log.Info("alert type deleted", logger.Uint64("alert_type_id", uint64(id)))
	r.bus.Publish(Change{Kind: ChangeTypeDeleted, AlertTypeID: id})
	return nil
}

// CanDelete reports whether alert type id is unreferenced.
func (r *Registry) CanDelete(ctx context.Context, id uint) (bool, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	n, err := r.store.AlertTypes().CountEntries(ctx, id)
	if err != nil {
		return false, translateStoreError(err, "count alert type references")
	}
	return n == 0, nil
}
