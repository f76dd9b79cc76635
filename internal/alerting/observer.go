package alerting

// Operation names reported to an OperationObserver.
const (
	OpTypeCreate     = "alert_type.create"
	OpTypeUpdate     = "alert_type.update"
	OpTypeDelete     = "alert_type.delete"
	OpEntryCreate    = "alert_entry.create"
	OpEntryUpdate    = "alert_entry.update"
	OpEntryDelete    = "alert_entry.delete"
	OpEntrySetStart  = "alert_entry.set_start"
	OpEntrySetValue  = "alert_entry.set_value"
	OpEntrySetType   = "alert_entry.set_alert_type"
	OpEvaluate       = "evaluate"
	OpSessionCommit  = "session.commit"
	OpSessionDiscard = "session.discard"
)

// OperationObserver is told about every mutating operation and its outcome.
type OperationObserver interface {
	ObserveOperation(operation string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, error) {}
