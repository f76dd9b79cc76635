package alerting

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/logger"
)

// DefaultCacheTTL bounds how long a kind's schedule is served from memory
// when no change has evicted it.
const DefaultCacheTTL = 5 * time.Minute

// Decision is the outcome of evaluating a reading against a kind's schedule.
type Decision struct {
	Entry     entities.AlertEntry `json:"entry"`
	AlertType entities.AlertType  `json:"alert_type"`
	// Fire is set when the alert should be raised now.
	Fire bool `json:"fire"`
	// Breached is set when the reading crosses the entry's threshold,
	// regardless of the alert type being enabled or snoozed.
	Breached     bool       `json:"breached"`
	Snoozed      bool       `json:"snoozed"`
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty"`
}

// Evaluator resolves which entry of a kind applies at a time of day and
// whether a reading fires it. Snoozes are kept in memory per kind.
type Evaluator struct {
	schedule *Schedule
	cache    *cache.Cache
	observer OperationObserver
	log      logger.Logger

	mu      sync.Mutex
	snoozes map[int]time.Time

	// fillMu orders cache fills against evictions. gen advances on every
	// eviction so a fill that read the store before it is dropped.
	fillMu sync.Mutex
	gen    uint64

	now func() time.Time
}

// NewEvaluator creates an evaluator over schedule. Cached schedules are
// evicted through bus whenever alert settings change.
func NewEvaluator(schedule *Schedule, bus *ChangeBus, ttl time.Duration, log logger.Logger) *Evaluator {
	if log == nil {
		log = logger.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	e := &Evaluator{
		schedule: schedule,
		// No janitor: expired items are dropped lazily on Get.
		cache:    cache.New(ttl, 0),
		observer: nopObserver{},
		log:      log.Module("evaluator"),
		snoozes:  make(map[int]time.Time),
		now:      time.Now,
	}
	if bus != nil {
		bus.Subscribe(e.handleChange)
	}
	return e
}

// SetObserver installs the operation observer.
func (e *Evaluator) SetObserver(o OperationObserver) {
	if o == nil {
		o = nopObserver{}
	}
	e.observer = o
}

func cacheKey(code int) string {
	return "kind:" + strconv.Itoa(code)
}

func (e *Evaluator) handleChange(c Change) {
	e.fillMu.Lock()
	defer e.fillMu.Unlock()
	e.gen++
	if c.IsEntryChange() {
		e.cache.Delete(cacheKey(c.AlertKind))
		return
	}
	// Entries embed their alert type, so any type change stales every kind.
	e.cache.Flush()
}

func (e *Evaluator) entries(ctx context.Context, code int) ([]entities.AlertEntry, error) {
	if v, ok := e.cache.Get(cacheKey(code)); ok {
		return v.([]entities.AlertEntry), nil
	}
	e.fillMu.Lock()
	gen := e.gen
	e.fillMu.Unlock()

	entries, err := e.schedule.ListForKind(ctx, code)
	if err != nil {
		return nil, err
	}

	e.fillMu.Lock()
	if e.gen == gen {
		e.cache.SetDefault(cacheKey(code), entries)
	}
	e.fillMu.Unlock()
	return entries, nil
}

// ActiveEntry returns the entry of kind code in effect at minute of day:
// the one with the greatest start not after minute.
func (e *Evaluator) ActiveEntry(ctx context.Context, code, minute int) (*entities.AlertEntry, error) {
	if minute < FirstMinute || minute > LastMinute {
		return nil, fmt.Errorf("%w: minute %d outside [%d, %d]", ErrOutOfBounds, minute, FirstMinute, LastMinute)
	}
	entries, err := e.entries(ctx, code)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range entries {
		if entries[i].Start > minute {
			break
		}
		idx = i
	}
	if idx < 0 {
		return nil, fmt.Errorf("no alert entry for kind %d at minute %d: %w", code, minute, ErrNotFound)
	}

	active := entries[idx]
	if active.AlertType != nil {
		t := *active.AlertType
		active.AlertType = &t
	}
	return &active, nil
}

// MinuteOfDay returns the minute offset of t from its local midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Evaluate checks reading against the entry of kind code active at at.
// Glucose readings are in mg/dL.
func (e *Evaluator) Evaluate(ctx context.Context, code int, at time.Time, reading float64) (Decision, error) {
	d, err := e.evaluate(ctx, code, at, reading)
	e.observer.ObserveOperation(OpEvaluate, err)
	return d, err
}

func (e *Evaluator) evaluate(ctx context.Context, code int, at time.Time, reading float64) (Decision, error) {
	k, err := Lookup(code)
	if err != nil {
		return Decision{}, err
	}
	entry, err := e.ActiveEntry(ctx, code, MinuteOfDay(at))
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Entry: *entry}
	if entry.AlertType != nil {
		d.AlertType = *entry.AlertType
	}
	d.Entry.AlertType = nil
	d.Breached = k.Compare(reading, entry.Value)

	if until, ok := e.SnoozedUntil(code, at); ok {
		d.Snoozed = true
		d.SnoozedUntil = &until
	}
	d.Fire = d.Breached && d.AlertType.Enabled && !d.Snoozed

	if d.Fire {
		e.log.Info("alert fires",
			logger.String("kind", k.Name),
			logger.Float64("reading", reading),
			logger.Int("threshold", entry.Value),
			logger.String("alert_type", d.AlertType.Name))
	}
	return d, nil
}

// Snooze silences kind code from at for minutes. Zero minutes uses the
// default snooze period of the alert type active at at.
func (e *Evaluator) Snooze(ctx context.Context, code int, at time.Time, minutes int) (time.Time, error) {
	if _, err := Lookup(code); err != nil {
		return time.Time{}, err
	}
	if minutes < 0 {
		return time.Time{}, fmt.Errorf("%w: snooze minutes must not be negative", ErrOutOfBounds)
	}
	if minutes == 0 {
		entry, err := e.ActiveEntry(ctx, code, MinuteOfDay(at))
		if err != nil {
			return time.Time{}, err
		}
		if entry.AlertType != nil {
			minutes = entry.AlertType.DefaultSnoozePeriodMinutes
		}
	}

	until := at.Add(time.Duration(minutes) * time.Minute)
	e.mu.Lock()
	e.snoozes[code] = until
	e.mu.Unlock()

	e.log.Info("alert snoozed", logger.Int("kind", code), logger.Int("minutes", minutes))
	return until, nil
}

// Unsnooze clears a snooze on kind code.
func (e *Evaluator) Unsnooze(code int) {
	e.mu.Lock()
	delete(e.snoozes, code)
	e.mu.Unlock()
}

// SnoozedUntil reports the end of an active snooze on kind code at at.
// Expired snoozes are dropped.
func (e *Evaluator) SnoozedUntil(code int, at time.Time) (time.Time, bool) {
	if at.IsZero() {
		at = e.now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	until, ok := e.snoozes[code]
	if !ok {
		return time.Time{}, false
	}
	if !at.Before(until) {
		delete(e.snoozes, code)
		return time.Time{}, false
	}
	return until, true
}
