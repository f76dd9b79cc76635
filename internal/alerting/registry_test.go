package alerting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
)

func TestRegistry_CreateRenameScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	low := createType(t, svc, "Low", true)

	_, err := svc.Registry.Create(ctx, AlertTypeFields{Name: "Low"})
	require.ErrorIs(t, err, ErrDuplicateName)

	fields := FieldsOf(low)
	fields.Name = "LowAlt"
	require.NoError(t, svc.Registry.Update(ctx, low.ID, fields))

	again, err := svc.Registry.Create(ctx, AlertTypeFields{Name: "Low"})
	require.NoError(t, err)
	assert.NotEqual(t, low.ID, again.ID)

	types, err := svc.Registry.List(ctx)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, at := range types {
		assert.False(t, seen[at.Name], "duplicate name %q", at.Name)
		seen[at.Name] = true
	}
	assert.True(t, seen["LowAlt"])
	assert.True(t, seen["Low"])
}

func TestRegistry_NamesAreExact(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	createType(t, svc, "Night", true)

	for _, name := range []string{"night", "Night ", " Night"} {
		_, err := svc.Registry.Create(ctx, AlertTypeFields{Name: name})
		require.NoError(t, err, "name %q", name)
	}
}

func TestRegistry_CreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Registry.Create(ctx, AlertTypeFields{})
	require.ErrorIs(t, err, ErrInvalidAlertType)

	_, err = svc.Registry.Create(ctx, AlertTypeFields{Name: "x", DefaultSnoozePeriodMinutes: -1})
	require.ErrorIs(t, err, ErrInvalidAlertType)
}

func TestRegistry_CreateStoresAllFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	silent := ""
	created, err := svc.Registry.Create(ctx, AlertTypeFields{
		Name:                       "Quiet",
		Enabled:                    true,
		Vibrate:                    false,
		SoundName:                  &silent,
		OverrideMute:               true,
		SnoozeViaNotification:      false,
		DefaultSnoozePeriodMinutes: 0,
	})
	require.NoError(t, err)

	got, err := svc.Registry.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quiet", got.Name)
	assert.True(t, got.Enabled)
	assert.False(t, got.Vibrate)
	assert.True(t, got.IsSilent())
	assert.True(t, got.OverrideMute)
	assert.False(t, got.SnoozeViaNotification)
	assert.Equal(t, 0, got.DefaultSnoozePeriodMinutes)
}

func TestRegistry_Update(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := createType(t, svc, "A", true)
	createType(t, svc, "B", true)

	t.Run("duplicate of another type", func(t *testing.T) {
		fields := FieldsOf(a)
		fields.Name = "B"
		require.ErrorIs(t, svc.Registry.Update(ctx, a.ID, fields), ErrDuplicateName)
	})

	t.Run("keeping own name", func(t *testing.T) {
		fields := FieldsOf(a)
		fields.Vibrate = false
		fields.DefaultSnoozePeriodMinutes = 15
		require.NoError(t, svc.Registry.Update(ctx, a.ID, fields))

		got, err := svc.Registry.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, got.Vibrate)
		assert.Equal(t, 15, got.DefaultSnoozePeriodMinutes)
	})

	t.Run("unknown id", func(t *testing.T) {
		require.ErrorIs(t, svc.Registry.Update(ctx, 9999, AlertTypeFields{Name: "Z"}), ErrNotFound)
	})
}

func TestRegistry_DeleteInUse(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	night := createType(t, svc, "Night", true)
	e1, err := svc.Schedule.Create(ctx, KindLow, 1320, 80, night.ID)
	require.NoError(t, err)
	e2, err := svc.Schedule.Create(ctx, KindHigh, 1320, 200, night.ID)
	require.NoError(t, err)

	ok, err := svc.Registry.CanDelete(ctx, night.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	require.ErrorIs(t, svc.Registry.Delete(ctx, night.ID), ErrInUse)

	require.NoError(t, svc.Schedule.Delete(ctx, e1.ID))
	require.ErrorIs(t, svc.Registry.Delete(ctx, night.ID), ErrInUse)

	require.NoError(t, svc.Schedule.Delete(ctx, e2.ID))
	ok, err = svc.Registry.CanDelete(ctx, night.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, svc.Registry.Delete(ctx, night.ID))

	_, err = svc.Registry.Get(ctx, night.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Registry.Delete(ctx, night.ID), ErrNotFound)

	_, err = svc.Registry.CanDelete(ctx, night.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_PublishesAndObserves(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	obs := &recordingObserver{}
	svc.SetObserver(obs)
	changes := recordChanges(svc.Bus)

	at := createType(t, svc, "Observed", true)
	_, err := svc.Registry.Create(ctx, AlertTypeFields{Name: "Observed"})
	require.ErrorIs(t, err, ErrDuplicateName)
	require.ErrorIs(t, obs.last().err, ErrDuplicateName)
	require.NoError(t, svc.Registry.Update(ctx, at.ID, FieldsOf(at)))
	require.NoError(t, svc.Registry.Delete(ctx, at.ID))

	assert.Equal(t, []string{OpTypeCreate, OpTypeCreate, OpTypeUpdate, OpTypeDelete}, obs.operations())
	assert.Equal(t, []ChangeKind{ChangeTypeCreated, ChangeTypeUpdated, ChangeTypeDeleted}, changes.kinds())
}

func TestFieldsOf_CopiesSound(t *testing.T) {
	t.Parallel()

	sound := "alarm"
	at := &entities.AlertType{Name: "x", SoundName: &sound}

	f := FieldsOf(at)
	*f.SoundName = "changed"
	assert.Equal(t, "alarm", *at.SoundName)
}
