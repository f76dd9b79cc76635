package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/glucoalert/alertcore/internal/logger"
)

// ChangeKind names what happened to alert settings.
type ChangeKind string

// Change kinds.
const (
	ChangeTypeCreated  ChangeKind = "alert_type.created"
	ChangeTypeUpdated  ChangeKind = "alert_type.updated"
	ChangeTypeDeleted  ChangeKind = "alert_type.deleted"
	ChangeEntryCreated ChangeKind = "alert_entry.created"
	ChangeEntryUpdated ChangeKind = "alert_entry.updated"
	ChangeEntryDeleted ChangeKind = "alert_entry.deleted"
)

// Change describes a committed settings mutation.
type Change struct {
	Kind        ChangeKind
	AlertTypeID uint
	EntryID     uint
	// AlertKind is the kind code of the affected entry. Meaningless for
	// alert type changes.
	AlertKind int
	At        time.Time
}

// IsEntryChange reports whether the change touched a schedule entry.
func (c Change) IsEntryChange() bool {
	switch c.Kind {
	case ChangeEntryCreated, ChangeEntryUpdated, ChangeEntryDeleted:
		return true
	default:
		return false
	}
}

// ChangeHandler receives committed changes.
type ChangeHandler func(change Change)

// ChangeBus fans committed changes out to subscribers. Publish runs handlers
// synchronously in subscription order; a panicking handler is logged and
// does not stop the others.
type ChangeBus struct {
	mu       sync.RWMutex
	handlers []ChangeHandler
	log      logger.Logger
}

// NewChangeBus creates an empty bus.
func NewChangeBus(log logger.Logger) *ChangeBus {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChangeBus{log: log.Module("changes")}
}

// Subscribe registers a handler.
func (b *ChangeBus) Subscribe(handler ChangeHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish delivers change to every handler. A nil bus drops the change.
func (b *ChangeBus) Publish(change Change) {
	if b == nil {
		return
	}
	if change.At.IsZero() {
		change.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]ChangeHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeCall(h, change)
	}
}

func (b *ChangeBus) safeCall(h ChangeHandler, change Change) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("change handler panicked",
				logger.String("change", string(change.Kind)),
				logger.String("panic", fmt.Sprint(r)))
		}
	}()
	h(change)
}
