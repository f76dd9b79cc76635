package metrics

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glucoalert/alertcore/internal/alerting"
	datastore "github.com/glucoalert/alertcore/internal/datastore/v2"
	"github.com/glucoalert/alertcore/internal/errors"
	"github.com/glucoalert/alertcore/internal/logger"
)

func TestObserveOperation(t *testing.T) {
	t.Parallel()

	m, err := NewAlertingMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveOperation(alerting.OpTypeCreate, nil)
	m.ObserveOperation(alerting.OpTypeCreate, nil)
	m.ObserveOperation(alerting.OpTypeCreate, alerting.ErrDuplicateName)
	m.ObserveOperation(alerting.OpTypeDelete, errors.NewStd("disk failure"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.operations.WithLabelValues(alerting.OpTypeCreate, ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operations.WithLabelValues(alerting.OpTypeCreate, ResultRefused)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operations.WithLabelValues(alerting.OpTypeDelete, ResultError)), 0)
}

func TestNewAlertingMetrics_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewAlertingMetrics(reg)
	require.NoError(t, err)

	_, err = NewAlertingMetrics(reg)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfiguration, errors.CategoryOf(err))
}

func TestTrack_ScheduleGauge(t *testing.T) {
	mgr, err := datastore.NewSQLiteManager(datastore.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())
	t.Cleanup(func() { _ = mgr.Close() })

	ctx := context.Background()
	svc, err := alerting.Initialize(ctx, mgr.DB(), alerting.Options{
		SeedDefaults: true,
		Log:          logger.NewZapLogger(io.Discard, logger.LogLevelError, nil),
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m, err := NewAlertingMetrics(reg)
	require.NoError(t, err)
	svc.SetObserver(m)
	require.NoError(t, m.Track(ctx, svc.Schedule, svc.Bus))

	assert.InDelta(t, 1, testutil.ToFloat64(m.entries.WithLabelValues("high")), 0)

	types, err := svc.Registry.List(ctx)
	require.NoError(t, err)
	_, err = svc.Schedule.Create(ctx, alerting.KindHigh, 600, 200, types[0].ID)
	require.NoError(t, err)
	assert.InDelta(t, 2, testutil.ToFloat64(m.entries.WithLabelValues("high")), 0)

	expected := `
# HELP alertcore_operations_total Alert settings operations by name and result.
# TYPE alertcore_operations_total counter
alertcore_operations_total{operation="alert_entry.create",result="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "alertcore_operations_total"))
}

func TestTrack_RefreshFailureIsLogged(t *testing.T) {
	mgr, err := datastore.NewSQLiteManager(datastore.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize())

	ctx := context.Background()
	svc, err := alerting.Initialize(ctx, mgr.DB(), alerting.Options{
		SeedDefaults: true,
		Log:          logger.NewZapLogger(io.Discard, logger.LogLevelError, nil),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	m, err := NewAlertingMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	m.SetLogger(logger.NewZapLogger(&buf, logger.LogLevelWarn, nil))
	require.NoError(t, m.Track(ctx, svc.Schedule, svc.Bus))

	require.NoError(t, mgr.Close())
	svc.Bus.Publish(alerting.Change{Kind: alerting.ChangeEntryUpdated, AlertKind: alerting.KindHigh})

	out := buf.String()
	assert.Contains(t, out, "failed to refresh schedule gauge")
	assert.Contains(t, out, `"kind":"high"`)
	assert.InDelta(t, 1, testutil.ToFloat64(m.entries.WithLabelValues("high")), 0, "gauge keeps its last value")
}
