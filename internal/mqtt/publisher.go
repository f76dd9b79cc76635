package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"github.com/glucoalert/alertcore/internal/logger"
)

const defaultPublishTimeout = 10 * time.Second

// TypesSnapshot is the retained payload of the alert types topic.
type TypesSnapshot struct {
	AlertTypes  []entities.AlertType `json:"alert_types"`
	PublishedAt time.Time            `json:"published_at"`
}

// EntriesSnapshot is the retained payload of a kind's schedule topic.
type EntriesSnapshot struct {
	Kind        string                `json:"kind"`
	Code        int                   `json:"code"`
	Entries     []entities.AlertEntry `json:"entries"`
	PublishedAt time.Time             `json:"published_at"`
}

// Publisher mirrors alert settings to retained topics below a base topic:
// <base>/alert-types and <base>/entries/<kind name>.
type Publisher struct {
	client   Client
	registry *alerting.Registry
	schedule *alerting.Schedule
	base     string
	timeout  time.Duration
	log      logger.Logger
	now      func() time.Time
}

// NewPublisher creates a publisher for svc.
func NewPublisher(client Client, svc *alerting.Service, baseTopic string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{
		client:   client,
		registry: svc.Registry,
		schedule: svc.Schedule,
		base:     strings.TrimSuffix(baseTopic, "/"),
		timeout:  defaultPublishTimeout,
		log:      log.Module("mqtt"),
		now:      time.Now,
	}
}

// TypesTopic returns the alert types topic.
func (p *Publisher) TypesTopic() string {
	return p.base + "/alert-types"
}

// EntriesTopic returns the schedule topic of kind k.
func (p *Publisher) EntriesTopic(k alerting.Kind) string {
	return p.base + "/entries/" + k.Name
}

// Subscribe publishes a fresh snapshot for every change on bus.
func (p *Publisher) Subscribe(bus *alerting.ChangeBus) {
	bus.Subscribe(p.handleChange)
}

func (p *Publisher) handleChange(c alerting.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	var err error
	if c.IsEntryChange() {
		err = p.publishKind(ctx, c.AlertKind)
	} else {
		// Entries embed their alert type, so a type change republishes all.
		err = p.PublishAll(ctx)
	}
	if err != nil {
		p.log.Warn("failed to publish alert settings",
			logger.String("change", string(c.Kind)),
			logger.Error(err))
	}
}

// PublishAll publishes the alert types and every kind's schedule.
func (p *Publisher) PublishAll(ctx context.Context) error {
	if err := p.publishTypes(ctx); err != nil {
		return err
	}
	for _, k := range alerting.Kinds() {
		if err := p.publishKind(ctx, k.Code); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishTypes(ctx context.Context) error {
	types, err := p.registry.List(ctx)
	if err != nil {
		return err
	}
	return p.publish(ctx, p.TypesTopic(), TypesSnapshot{AlertTypes: types, PublishedAt: p.now().UTC()})
}

func (p *Publisher) publishKind(ctx context.Context, code int) error {
	k, err := alerting.Lookup(code)
	if err != nil {
		return err
	}
	entries, err := p.schedule.ListForKind(ctx, code)
	if err != nil {
		return err
	}
	return p.publish(ctx, p.EntriesTopic(k), EntriesSnapshot{
		Kind:        k.Name,
		Code:        k.Code,
		Entries:     entries,
		PublishedAt: p.now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, topic string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := p.client.PublishWithRetain(ctx, topic, string(b), true); err != nil {
		return err
	}
	p.log.Debug("published alert settings", logger.String("topic", topic), logger.Int("bytes", len(b)))
	return nil
}
