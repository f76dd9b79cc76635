package alerting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/glucoalert/alertcore/internal/conf"
	datastore "github.com/glucoalert/alertcore/internal/datastore/v2"
	"github.com/glucoalert/alertcore/internal/errors"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	m, err := datastore.NewSQLiteManager(datastore.Config{DataDir: t.TempDir(), Logger: testLogger()})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })
	return m.DB()
}

func TestInitialize_SeedsOnce(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	svc, err := Initialize(ctx, db, Options{SeedDefaults: true, Log: testLogger()})
	require.NoError(t, err)

	types, err := svc.Registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, DefaultAlertTypeName, types[0].Name)
	assert.Equal(t, DefaultSnoozePeriodMinutes, types[0].DefaultSnoozePeriodMinutes)
	assert.True(t, types[0].UsesDefaultSound())

	svc, err = Initialize(ctx, db, Options{SeedDefaults: true, Log: testLogger()})
	require.NoError(t, err)
	types, err = svc.Registry.List(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 1)
	for _, k := range Kinds() {
		assert.Equal(t, []int{0}, starts(t, svc, k.Code))
	}
}

func TestInitialize_RepairsMissingDefaultEntry(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	svc, err := Initialize(ctx, db, Options{})
	require.NoError(t, err)
	custom := createType(t, svc, "Mine", true)
	_, err = svc.Schedule.Create(ctx, KindLow, 0, 90, custom.ID)
	require.NoError(t, err)

	svc, err = Initialize(ctx, db, Options{SeedDefaults: true, Log: testLogger()})
	require.NoError(t, err)

	low := entryAt(t, svc, KindLow, 0)
	assert.Equal(t, 90, low.Value, "existing default entry is kept")
	high := entryAt(t, svc, KindHigh, 0)
	assert.Equal(t, custom.ID, high.AlertTypeID, "existing type is reused")
}

func TestInitialize_ConfiguredSchedule(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	opts := Options{
		SeedDefaults: true,
		Log:          testLogger(),
		Schedule: []conf.SeedEntry{
			{Kind: "low", Start: 22 * 60, Value: 80, AlertType: "Night"},
			{Kind: "high", Start: 22 * 60, AlertType: "Night"},
			{Kind: "sensorwarmup", Start: 60, Value: 9},
		},
	}
	svc, err := Initialize(ctx, db, opts)
	require.NoError(t, err)

	night := entryAt(t, svc, KindLow, 1320)
	assert.Equal(t, 80, night.Value)
	require.NotNil(t, night.AlertType)
	assert.Equal(t, "Night", night.AlertType.Name)

	assert.Equal(t, 170, entryAt(t, svc, KindHigh, 1320).Value)
	assert.Equal(t, 0, entryAt(t, svc, KindSensorWarmup, 60).Value)

	// Re-running does not duplicate.
	svc, err = Initialize(ctx, db, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1320}, starts(t, svc, KindLow))
	types, err := svc.Registry.List(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 2)
}

func TestInitialize_BadSeed(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	_, err := Initialize(ctx, db, Options{
		SeedDefaults: true,
		Log:          testLogger(),
		Schedule:     []conf.SeedEntry{{Kind: "lowish", Start: 60}},
	})
	require.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, errors.CategoryConfiguration, errors.CategoryOf(err))

	_, err = Initialize(ctx, db, Options{
		SeedDefaults: true,
		Log:          testLogger(),
		Schedule:     []conf.SeedEntry{{Kind: "low", Start: 60, Value: MaxValue + 1}},
	})
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestInitialize_Observer(t *testing.T) {
	db := openDB(t)
	obs := &recordingObserver{}

	svc, err := Initialize(context.Background(), db, Options{SeedDefaults: true, Observer: obs})
	require.NoError(t, err)
	createType(t, svc, "Seen", true)
	assert.Equal(t, []string{OpTypeCreate}, obs.operations())
}
