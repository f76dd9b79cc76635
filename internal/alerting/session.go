package alerting

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/logger"
	"github.com/glucoalert/alertcore/internal/units"
)

// SessionState is the lifecycle position of an editing session.
type SessionState int

// Session states. Committed and Discarded are terminal.
const (
	SessionOpen SessionState = iota
	SessionMutated
	SessionCommitted
	SessionDiscarded
)

func (s SessionState) String() string {
	switch s {
	case SessionOpen:
		return "open"
	case SessionMutated:
		return "mutated"
	case SessionCommitted:
		return "committed"
	case SessionDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are allowed.
func (s SessionState) Terminal() bool {
	return s == SessionCommitted || s == SessionDiscarded
}

// session holds the lifecycle shared by both session kinds.
type session struct {
	id    string
	state SessionState
	log   logger.Logger
}

func newSession(log logger.Logger, subject string) session {
	id := uuid.NewString()
	return session{
		id:  id,
		log: log.With(logger.String("session_id", id), logger.String("subject", subject)),
	}
}

func (s *session) mutate() error {
	if s.state.Terminal() {
		return ErrSessionClosed
	}
	s.state = SessionMutated
	return nil
}

func (s *session) discard() error {
	if s.state.Terminal() {
		return ErrSessionClosed
	}
	s.state = SessionDiscarded
	s.log.Debug("session discarded")
	return nil
}

// ID returns the session's correlation id.
func (s *session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *session) State() SessionState { return s.state }

// TypeSession stages edits to one alert type.
type TypeSession struct {
	session
	registry *Registry
	typeID   uint
	fields   AlertTypeFields
}

// EditNew opens a session for a new alert type seeded with defaults.
func (r *Registry) EditNew() *TypeSession {
	return &TypeSession{
		session:  newSession(r.log, "alert_type"),
		registry: r,
		fields:   DefaultAlertTypeFields(),
	}
}

// Edit opens a session seeded from alert type id.
func (r *Registry) Edit(ctx context.Context, id uint) (*TypeSession, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TypeSession{
		session:  newSession(r.log, "alert_type"),
		registry: r,
		typeID:   t.ID,
		fields:   FieldsOf(t),
	}, nil
}

// IsNew reports whether committing creates a new alert type.
func (s *TypeSession) IsNew() bool { return s.typeID == 0 }

// AlertTypeID returns the edited type's id, 0 until a new type is committed.
func (s *TypeSession) AlertTypeID() uint { return s.typeID }

// Fields returns a copy of the staged attributes.
func (s *TypeSession) Fields() AlertTypeFields {
	f := s.fields
	if f.SoundName != nil {
		sound := *f.SoundName
		f.SoundName = &sound
	}
	return f
}

// VisibleFields returns the form rows for the staged enabled flag.
func (s *TypeSession) VisibleFields() []FieldState {
	return TypeFormFields(s.fields.Enabled)
}

// CanDelete reports whether the edited type could be deleted now. A type
// that was never committed cannot.
func (s *TypeSession) CanDelete(ctx context.Context) (bool, error) {
	if s.IsNew() {
		return false, nil
	}
	return s.registry.CanDelete(ctx, s.typeID)
}

func (s *TypeSession) set(apply func(*AlertTypeFields)) error {
	if err := s.mutate(); err != nil {
		return err
	}
	apply(&s.fields)
	return nil
}

// SetName stages a new name. Uniqueness is checked on commit.
func (s *TypeSession) SetName(name string) error {
	return s.set(func(f *AlertTypeFields) { f.Name = name })
}

// SetEnabled stages the enabled flag.
func (s *TypeSession) SetEnabled(enabled bool) error {
	return s.set(func(f *AlertTypeFields) { f.Enabled = enabled })
}

// SetVibrate stages the vibrate flag.
func (s *TypeSession) SetVibrate(vibrate bool) error {
	return s.set(func(f *AlertTypeFields) { f.Vibrate = vibrate })
}

// SetSoundName stages the sound; nil selects the platform default.
func (s *TypeSession) SetSoundName(sound *string) error {
	return s.set(func(f *AlertTypeFields) {
		f.SoundName = nil
		if sound != nil {
			v := *sound
			f.SoundName = &v
		}
	})
}

// SetOverrideMute stages the override mute flag.
func (s *TypeSession) SetOverrideMute(override bool) error {
	return s.set(func(f *AlertTypeFields) { f.OverrideMute = override })
}

// SetSnoozeViaNotification stages the snooze via notification flag.
func (s *TypeSession) SetSnoozeViaNotification(snooze bool) error {
	return s.set(func(f *AlertTypeFields) { f.SnoozeViaNotification = snooze })
}

// SetDefaultSnoozePeriod stages the default snooze period in minutes.
func (s *TypeSession) SetDefaultSnoozePeriod(minutes int) error {
	if minutes < 0 {
		if s.state.Terminal() {
			return ErrSessionClosed
		}
		return fmt.Errorf("%w: default snooze period must not be negative", ErrInvalidAlertType)
	}
	return s.set(func(f *AlertTypeFields) { f.DefaultSnoozePeriodMinutes = minutes })
}

// Commit writes the staged attributes through the registry. On failure the
// session keeps its state so the caller can correct and retry.
func (s *TypeSession) Commit(ctx context.Context) error {
	if s.state.Terminal() {
		return ErrSessionClosed
	}

	var err error
	if s.IsNew() {
		var t *entities.AlertType
		if t, err = s.registry.Create(ctx, s.fields); err == nil {
			s.typeID = t.ID
		}
	} else {
		err = s.registry.Update(ctx, s.typeID, s.fields)
	}
	s.registry.observer.ObserveOperation(OpSessionCommit, err)
	if err != nil {
		s.log.Debug("session commit failed", logger.Error(err))
		return err
	}

	s.state = SessionCommitted
	s.log.Debug("session committed", logger.Uint64("alert_type_id", uint64(s.typeID)))
	return nil
}

// Discard abandons the staged edits.
func (s *TypeSession) Discard() error {
	err := s.discard()
	if err == nil {
		s.registry.observer.ObserveOperation(OpSessionDiscard, nil)
	}
	return err
}

// EntrySession stages edits to one schedule entry.
type EntrySession struct {
	session
	schedule *Schedule
	kind     Kind
	entryID  uint
	fields   EntryFields
	bounds   Bounds
}

// EditNew opens a session for a new entry of kind code. The staged start is
// one minute after the kind's last entry, or 0 for a kind without entries,
// and the value is copied from the last entry or the kind default.
func (s *Schedule) EditNew(ctx context.Context, code int, alertTypeID uint) (*EntrySession, error) {
	entries, err := s.ListForKind(ctx, code)
	if err != nil {
		return nil, err
	}
	k, _ := Lookup(code)

	es := &EntrySession{
		session:  newSession(s.log, "alert_entry"),
		schedule: s,
		kind:     k,
		fields:   EntryFields{AlertTypeID: alertTypeID, Value: k.DefaultValue},
	}
	if !k.NeedsValue {
		es.fields.Value = 0
	}

	if len(entries) == 0 {
		es.bounds = Bounds{Min: FirstMinute, Max: FirstMinute}
		return es, nil
	}

	last := entries[len(entries)-1]
	if last.Start >= LastMinute {
		return nil, fmt.Errorf("%w: no free start left for %s", ErrOutOfBounds, k.Name)
	}
	es.bounds = Bounds{Min: last.Start + 1, Max: LastMinute}
	es.fields.Start = last.Start + 1
	if k.NeedsValue {
		es.fields.Value = last.Value
	}
	if alertTypeID == 0 {
		es.fields.AlertTypeID = last.AlertTypeID
	}
	return es, nil
}

// Edit opens a session seeded from entry id.
func (s *Schedule) Edit(ctx context.Context, id uint) (*EntrySession, error) {
	entry, entries, i, err := loadWithSiblings(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	k, err := Lookup(entry.Kind)
	if err != nil {
		return nil, err
	}
	return &EntrySession{
		session:  newSession(s.log, "alert_entry"),
		schedule: s,
		kind:     k,
		entryID:  entry.ID,
		fields:   EntryFields{Start: entry.Start, Value: entry.Value, AlertTypeID: entry.AlertTypeID},
		bounds:   boundsAt(entries, i),
	}, nil
}

// IsNew reports whether committing creates a new entry.
func (s *EntrySession) IsNew() bool { return s.entryID == 0 }

// EntryID returns the edited entry's id, 0 until a new entry is committed.
func (s *EntrySession) EntryID() uint { return s.entryID }

// Kind returns the catalog entry of the edited entry.
func (s *EntrySession) Kind() Kind { return s.kind }

// Fields returns the staged attributes.
func (s *EntrySession) Fields() EntryFields { return s.fields }

// Bounds returns the range the staged start may take. A new first entry is
// pinned to 0 without being immutable.
func (s *EntrySession) Bounds() Bounds { return s.bounds }

// DisplayValue returns the staged value in the display unit.
func (s *EntrySession) DisplayValue(display units.Unit) float64 {
	return s.kind.DisplayValue(s.fields.Value, display)
}

// VisibleFields returns the form rows given the referenced type's enabled flag.
func (s *EntrySession) VisibleFields(alertTypeEnabled bool) []FieldState {
	return EntryFormFields(s.kind, s.fields.Start, alertTypeEnabled)
}

// SetStart stages a new start within Bounds.
func (s *EntrySession) SetStart(start int) error {
	if s.state.Terminal() {
		return ErrSessionClosed
	}
	if s.bounds.Immutable {
		return ErrIsDefaultEntry
	}
	if start < s.bounds.Min || start > s.bounds.Max {
		return outOfBoundsStart(start, s.bounds)
	}
	if err := s.mutate(); err != nil {
		return err
	}
	s.fields.Start = start
	return nil
}

// SetValue stages a threshold in the native unit.
func (s *EntrySession) SetValue(value int) error {
	if s.state.Terminal() {
		return ErrSessionClosed
	}
	if !s.kind.NeedsValue {
		return fmt.Errorf("%w: %s", ErrKindHasNoValue, s.kind.Name)
	}
	if err := checkValue(value); err != nil {
		return err
	}
	if err := s.mutate(); err != nil {
		return err
	}
	s.fields.Value = value
	return nil
}

// SetDisplayValue stages a threshold given in the display unit.
func (s *EntrySession) SetDisplayValue(value float64, display units.Unit) error {
	return s.SetValue(s.kind.NativeValue(value, display))
}

// SetAlertType stages the referenced alert type. Existence is checked on commit.
func (s *EntrySession) SetAlertType(alertTypeID uint) error {
	if err := s.mutate(); err != nil {
		return err
	}
	s.fields.AlertTypeID = alertTypeID
	return nil
}

// Commit writes the staged entry through the schedule. On failure the
// session keeps its state so the caller can correct and retry.
func (s *EntrySession) Commit(ctx context.Context) error {
	if s.state.Terminal() {
		return ErrSessionClosed
	}

	var err error
	if s.IsNew() {
		var e *entities.AlertEntry
		if e, err = s.schedule.Create(ctx, s.kind.Code, s.fields.Start, s.fields.Value, s.fields.AlertTypeID); err == nil {
			s.entryID = e.ID
		}
	} else {
		err = s.schedule.Update(ctx, s.entryID, s.fields)
	}
	s.schedule.observer.ObserveOperation(OpSessionCommit, err)
	if err != nil {
		s.log.Debug("session commit failed", logger.Error(err))
		return err
	}

	s.state = SessionCommitted
	s.log.Debug("session committed", logger.Uint64("entry_id", uint64(s.entryID)))
	return nil
}

// Discard abandons the staged edits.
func (s *EntrySession) Discard() error {
	err := s.discard()
	if err == nil {
		s.schedule.observer.ObserveOperation(OpSessionDiscard, nil)
	}
	return err
}
