// Package mqtt publishes alert settings snapshots to an MQTT broker so that
// companion devices can mirror them.
package mqtt

import (
	"context"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/glucoalert/alertcore/internal/conf"
	"github.com/glucoalert/alertcore/internal/errors"
	"github.com/glucoalert/alertcore/internal/logger"
)

// QoS is the delivery guarantee used for every publish.
const QoS byte = 1

const disconnectQuiesceMs = 250

// Client is the subset of broker operations the publisher needs.
type Client interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Publish(ctx context.Context, topic, payload string) error
	PublishWithRetain(ctx context.Context, topic, payload string, retain bool) error
	Disconnect()
}

type client struct {
	settings conf.MQTTSettings
	paho     paho.Client
	log      logger.Logger
}

// NewClient creates a paho backed client. It does not connect.
func NewClient(settings conf.MQTTSettings, log logger.Logger) (Client, error) {
	if settings.Broker == "" {
		return nil, errors.Newf("mqtt broker is not configured").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Module("mqtt")

	timeout := settings.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(settings.Broker)
	opts.SetClientID(settings.ClientID)
	if settings.Username != "" {
		opts.SetUsername(settings.Username)
		opts.SetPassword(settings.Password)
	}
	opts.SetConnectTimeout(timeout)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info("connected to mqtt broker", logger.String("broker", settings.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn("mqtt connection lost", logger.Error(err))
	})

	return &client{settings: settings, paho: paho.NewClient(opts), log: log}, nil
}

func (c *client) Connect(ctx context.Context) error {
	if err := wait(ctx, c.paho.Connect()); err != nil {
		return errors.Newf("failed to connect to mqtt broker: %w", err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("broker", c.settings.Broker).
			Build()
	}
	return nil
}

func (c *client) IsConnected() bool {
	return c.paho.IsConnectionOpen()
}

func (c *client) Publish(ctx context.Context, topic, payload string) error {
	return c.PublishWithRetain(ctx, topic, payload, false)
}

func (c *client) PublishWithRetain(ctx context.Context, topic, payload string, retain bool) error {
	if !c.IsConnected() {
		return errors.Newf("mqtt client is not connected").
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("topic", topic).
			Build()
	}
	if err := wait(ctx, c.paho.Publish(topic, QoS, retain, payload)); err != nil {
		return errors.Newf("failed to publish to %s: %w", topic, err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("topic", topic).
			Build()
	}
	return nil
}

func (c *client) Disconnect() {
	c.paho.Disconnect(disconnectQuiesceMs)
}

// wait blocks until token completes or ctx ends.
func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
