// Package metrics exposes prometheus collectors for alert settings activity.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/errors"
	"github.com/glucoalert/alertcore/internal/logger"
)

const namespace = "alertcore"

// Operation results.
const (
	ResultSuccess = "success"
	ResultRefused = "refused"
	ResultError   = "error"
)

// AlertingMetrics counts alerting operations and tracks schedule sizes.
type AlertingMetrics struct {
	operations *prometheus.CounterVec
	entries    *prometheus.GaugeVec
	log        logger.Logger
}

// NewAlertingMetrics creates the collectors and registers them on reg.
func NewAlertingMetrics(reg prometheus.Registerer) (*AlertingMetrics, error) {
	m := &AlertingMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Alert settings operations by name and result.",
		}, []string{"operation", "result"}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedule_entries",
			Help:      "Number of schedule entries per alert kind.",
		}, []string{"kind"}),
		log: logger.NewNop(),
	}

	for _, c := range []prometheus.Collector{m.operations, m.entries} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Newf("failed to register alerting metrics: %w", err).
				Component("metrics").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	return m, nil
}

// SetLogger sets the logger used for gauge refresh failures.
func (m *AlertingMetrics) SetLogger(log logger.Logger) {
	if log == nil {
		log = logger.NewNop()
	}
	m.log = log.Module("metrics")
}

// ObserveOperation implements alerting.OperationObserver. Domain errors are
// counted as refused, anything else as error.
func (m *AlertingMetrics) ObserveOperation(operation string, err error) {
	result := ResultSuccess
	switch {
	case err == nil:
	case alerting.IsDomainError(err):
		result = ResultRefused
	default:
		result = ResultError
	}
	m.operations.WithLabelValues(operation, result).Inc()
}

// SetScheduleEntries sets the entry gauge of one kind.
func (m *AlertingMetrics) SetScheduleEntries(kind string, n int) {
	m.entries.WithLabelValues(kind).Set(float64(n))
}

// Track refreshes the entry gauges of every kind now and of the affected
// kind after each schedule change published on bus.
func (m *AlertingMetrics) Track(ctx context.Context, schedule *alerting.Schedule, bus *alerting.ChangeBus) error {
	for _, k := range alerting.Kinds() {
		if err := m.refresh(ctx, schedule, k); err != nil {
			return err
		}
	}
	bus.Subscribe(func(c alerting.Change) {
		if !c.IsEntryChange() {
			return
		}
		k, err := alerting.Lookup(c.AlertKind)
		if err != nil {
			return
		}
		// Failures leave the previous value in place.
		if err := m.refresh(context.Background(), schedule, k); err != nil {
			m.log.Warn("failed to refresh schedule gauge",
				logger.String("kind", k.Name),
				logger.Error(err))
		}
	})
	return nil
}

func (m *AlertingMetrics) refresh(ctx context.Context, schedule *alerting.Schedule, k alerting.Kind) error {
	entries, err := schedule.ListForKind(ctx, k.Code)
	if err != nil {
		return err
	}
	m.SetScheduleEntries(k.Name, len(entries))
	return nil
}
