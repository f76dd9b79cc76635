package alerting

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/glucoalert/alertcore/internal/conf"
	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/datastore/v2/repository"
	"github.com/glucoalert/alertcore/internal/errors"
	"github.com/glucoalert/alertcore/internal/logger"
)

// Options configures Initialize.
type Options struct {
	// SeedDefaults creates the default alert type and a start-of-day entry
	// for every kind that lacks one.
	SeedDefaults bool
	// Schedule lists extra entries to create when missing.
	Schedule []conf.SeedEntry
	CacheTTL time.Duration
	Log      logger.Logger
	Observer OperationObserver
}

// Service bundles the alerting components sharing one store and bus.
type Service struct {
	Registry  *Registry
	Schedule  *Schedule
	Evaluator *Evaluator
	Bus       *ChangeBus
}

// Initialize wires the alerting components over a migrated database and
// seeds defaults. Seeding is idempotent, so it repairs a store left without
// a default entry for some kind.
func Initialize(ctx context.Context, db *gorm.DB, opts Options) (*Service, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Module("alerting")

	store := repository.NewAlertStore(db)
	bus := NewChangeBus(log)
	svc := &Service{
		Registry: NewRegistry(store, bus, log),
		Schedule: NewSchedule(store, bus, log),
		Bus:      bus,
	}
	svc.Evaluator = NewEvaluator(svc.Schedule, bus, opts.CacheTTL, log)
	if opts.Observer != nil {
		svc.SetObserver(opts.Observer)
	}

	if !opts.SeedDefaults {
		return svc, nil
	}
	if err := seedDefaults(ctx, store, log); err != nil {
		return nil, err
	}
	if err := seedSchedule(ctx, store, opts.Schedule, log); err != nil {
		return nil, err
	}
	return svc, nil
}

// SetObserver installs o on every component.
func (s *Service) SetObserver(o OperationObserver) {
	s.Registry.SetObserver(o)
	s.Schedule.SetObserver(o)
	s.Evaluator.SetObserver(o)
}

// seedDefaults creates the default alert type when no type exists and a
// start-of-day entry for every kind missing one.
func seedDefaults(ctx context.Context, store repository.AlertStore, log logger.Logger) error {
	return store.InTx(ctx, func(tx repository.AlertStore) error {
		defaultType, err := ensureDefaultType(ctx, tx, log)
		if err != nil {
			return err
		}

		seeded := 0
		for _, k := range Kinds() {
			created, err := tx.AlertEntries().EnsureEntry(ctx, &entities.AlertEntry{
				Kind:        k.Code,
				Start:       FirstMinute,
				Value:       defaultEntryValue(k),
				AlertTypeID: defaultType.ID,
			})
			if err != nil {
				return seedError(err, "seed default entry")
			}
			if created {
				seeded++
			}
		}
		if seeded > 0 {
			log.Info("seeded default alert entries", logger.Int("count", seeded))
		}
		return nil
	})
}

func ensureDefaultType(ctx context.Context, tx repository.AlertStore, log logger.Logger) (*entities.AlertType, error) {
	types, err := tx.AlertTypes().List(ctx)
	if err != nil {
		return nil, seedError(err, "list alert types")
	}
	if len(types) > 0 {
		for i := range types {
			if types[i].Name == DefaultAlertTypeName {
				return &types[i], nil
			}
		}
		return &types[0], nil
	}

	t := &entities.AlertType{}
	DefaultAlertTypeFields().applyTo(t)
	if err := tx.AlertTypes().Create(ctx, t); err != nil {
		return nil, seedError(err, "create default alert type")
	}
	log.Info("seeded default alert type", logger.Uint64("alert_type_id", uint64(t.ID)))
	return t, nil
}

// seedSchedule creates configured entries that do not exist yet. A named
// alert type that does not exist is created with default attributes.
func seedSchedule(ctx context.Context, store repository.AlertStore, seeds []conf.SeedEntry, log logger.Logger) error {
	if len(seeds) == 0 {
		return nil
	}
	return store.InTx(ctx, func(tx repository.AlertStore) error {
		for _, seed := range seeds {
			k, err := LookupName(seed.Kind)
			if err != nil {
				return errors.New(err).
					Component("alerting").
					Category(errors.CategoryConfiguration).
					Context("kind", seed.Kind).
					Build()
			}
			value := defaultEntryValue(k)
			if k.NeedsValue && seed.Value != 0 {
				value = seed.Value
			}
			if err := checkValue(value); err != nil {
				return errors.New(err).
					Component("alerting").
					Category(errors.CategoryConfiguration).
					Context("kind", seed.Kind).
					Context("value", seed.Value).
					Build()
			}

			t, err := seedType(ctx, tx, seed.AlertType, log)
			if err != nil {
				return err
			}
			created, err := tx.AlertEntries().EnsureEntry(ctx, &entities.AlertEntry{
				Kind:        k.Code,
				Start:       seed.Start.Minutes(),
				Value:       value,
				AlertTypeID: t.ID,
			})
			if err != nil {
				return seedError(err, "seed configured entry")
			}
			if created {
				log.Info("seeded configured alert entry",
					logger.String("kind", k.Name),
					logger.String("start", seed.Start.String()),
					logger.String("alert_type", t.Name))
			}
		}
		return nil
	})
}

func seedType(ctx context.Context, tx repository.AlertStore, name string, log logger.Logger) (*entities.AlertType, error) {
	if name == "" {
		name = DefaultAlertTypeName
	}
	t, err := tx.AlertTypes().GetByName(ctx, name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, repository.ErrAlertTypeNotFound) {
		return nil, seedError(err, "get alert type")
	}

	fields := DefaultAlertTypeFields()
	fields.Name = name
	t = &entities.AlertType{}
	fields.applyTo(t)
	if err := tx.AlertTypes().Create(ctx, t); err != nil {
		return nil, seedError(err, "create configured alert type")
	}
	log.Info("seeded configured alert type", logger.String("name", name))
	return t, nil
}

func seedError(err error, operation string) error {
	return errors.New(err).
		Component("alerting").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
