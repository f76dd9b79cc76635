package mqtt

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glucoalert/alertcore/internal/alerting"
	datastore "github.com/glucoalert/alertcore/internal/datastore/v2"
	"github.com/glucoalert/alertcore/internal/logger"
)

type published struct {
	topic   string
	payload string
	retain  bool
}

// fakeClient records publishes instead of talking to a broker.
type fakeClient struct {
	mu        sync.Mutex
	connected bool
	messages  []published
	err       error
}

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) Publish(ctx context.Context, topic, payload string) error {
	return f.PublishWithRetain(ctx, topic, payload, false)
}

func (f *fakeClient) PublishWithRetain(_ context.Context, topic, payload string, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{topic, payload, retain})
	return nil
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeClient) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.messages))
	for i, m := range f.messages {
		out[i] = m.topic
	}
	return out
}

func (f *fakeClient) lastPayload(topic string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].topic == topic {
			return f.messages[i].payload
		}
	}
	return ""
}

func (f *fakeClient) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
}

func testLogger() logger.Logger {
	return logger.NewZapLogger(io.Discard, logger.LogLevelError, nil)
}

func newTestService(t *testing.T) *alerting.Service {
	t.Helper()

	m, err := datastore.NewSQLiteManager(datastore.Config{DataDir: t.TempDir(), Logger: testLogger()})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })

	svc, err := alerting.Initialize(context.Background(), m.DB(), alerting.Options{SeedDefaults: true, Log: testLogger()})
	require.NoError(t, err)
	return svc
}
