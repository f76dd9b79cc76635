package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestEvaluator_ActiveEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	highSchedule(t, svc)

	tests := []struct {
		minute    int
		wantStart int
	}{
		{0, 0},
		{479, 0},
		{480, 480},
		{1000, 480},
		{1320, 1320},
		{LastMinute, 1320},
	}
	for _, tt := range tests {
		e, err := svc.Evaluator.ActiveEntry(ctx, KindHigh, tt.minute)
		require.NoError(t, err)
		assert.Equal(t, tt.wantStart, e.Start, "minute %d", tt.minute)
	}

	_, err := svc.Evaluator.ActiveEntry(ctx, KindHigh, 1440)
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, err = svc.Evaluator.ActiveEntry(ctx, 50, 10)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestEvaluator_NoEntries(t *testing.T) {
	svc := newTestServiceWith(t, Options{})
	_, err := svc.Evaluator.ActiveEntry(context.Background(), KindLow, 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEvaluator_CacheEvictedOnChange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	def := defaultType(t, svc)

	e, err := svc.Evaluator.ActiveEntry(ctx, KindLow, 600)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Start)

	_, err = svc.Schedule.Create(ctx, KindLow, 540, 90, def.ID)
	require.NoError(t, err)

	e, err = svc.Evaluator.ActiveEntry(ctx, KindLow, 600)
	require.NoError(t, err)
	assert.Equal(t, 540, e.Start)
	assert.Equal(t, 90, e.Value)

	fields := FieldsOf(def)
	fields.Enabled = false
	require.NoError(t, svc.Registry.Update(ctx, def.ID, fields))

	e, err = svc.Evaluator.ActiveEntry(ctx, KindLow, 600)
	require.NoError(t, err)
	require.NotNil(t, e.AlertType)
	assert.False(t, e.AlertType.Enabled)
}

func TestEvaluator_Evaluate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	def := defaultType(t, svc)
	off := createType(t, svc, "Off", false)

	_, err := svc.Schedule.Create(ctx, KindLow, 22*60, 80, off.ID)
	require.NoError(t, err)

	tests := []struct {
		name     string
		kind     int
		at       time.Time
		reading  float64
		fire     bool
		breached bool
		typeName string
	}{
		{"low below threshold", KindLow, at(10, 0), 65, true, true, def.Name},
		{"low at threshold", KindLow, at(10, 0), 70, false, false, def.Name},
		{"low at night with disabled type", KindLow, at(23, 0), 60, false, true, "Off"},
		{"high above", KindHigh, at(12, 0), 171, true, true, def.Name},
		{"high at threshold", KindHigh, at(12, 0), 170, false, false, def.Name},
		{"missed reading minutes", KindMissedReading, at(1, 0), 31, true, true, def.Name},
		{"phone battery", KindPhoneBatteryLow, at(1, 0), 25, false, false, def.Name},
		{"warmup always", KindSensorWarmup, at(6, 30), 0, true, true, def.Name},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := svc.Evaluator.Evaluate(ctx, tt.kind, tt.at, tt.reading)
			require.NoError(t, err)
			assert.Equal(t, tt.fire, d.Fire)
			assert.Equal(t, tt.breached, d.Breached)
			assert.Equal(t, tt.typeName, d.AlertType.Name)
			assert.Nil(t, d.Entry.AlertType)
			assert.False(t, d.Snoozed)
		})
	}

	_, err = svc.Evaluator.Evaluate(ctx, 99, at(1, 0), 0)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestEvaluator_Snooze(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	until, err := svc.Evaluator.Snooze(ctx, KindLow, at(10, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, at(11, 0), until)

	d, err := svc.Evaluator.Evaluate(ctx, KindLow, at(10, 30), 50)
	require.NoError(t, err)
	assert.True(t, d.Breached)
	assert.True(t, d.Snoozed)
	assert.False(t, d.Fire)
	require.NotNil(t, d.SnoozedUntil)
	assert.Equal(t, at(11, 0), *d.SnoozedUntil)

	// Other kinds are unaffected.
	d, err = svc.Evaluator.Evaluate(ctx, KindVeryLow, at(10, 30), 40)
	require.NoError(t, err)
	assert.True(t, d.Fire)

	d, err = svc.Evaluator.Evaluate(ctx, KindLow, at(11, 0), 50)
	require.NoError(t, err)
	assert.False(t, d.Snoozed)
	assert.True(t, d.Fire)

	_, err = svc.Evaluator.Snooze(ctx, KindLow, at(12, 0), 15)
	require.NoError(t, err)
	_, ok := svc.Evaluator.SnoozedUntil(KindLow, at(12, 10))
	assert.True(t, ok)
	svc.Evaluator.Unsnooze(KindLow)
	_, ok = svc.Evaluator.SnoozedUntil(KindLow, at(12, 10))
	assert.False(t, ok)

	_, err = svc.Evaluator.Snooze(ctx, KindLow, at(12, 0), -1)
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, err = svc.Evaluator.Snooze(ctx, 99, at(12, 0), 5)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestMinuteOfDay(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, MinuteOfDay(at(0, 0)))
	assert.Equal(t, 1439, MinuteOfDay(at(23, 59)))
	assert.Equal(t, 8*60+5, MinuteOfDay(at(8, 5)))
}
