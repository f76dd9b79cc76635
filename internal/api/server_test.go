package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glucoalert/alertcore/internal/alerting"
	apiv2 "github.com/glucoalert/alertcore/internal/api/v2"
	"github.com/glucoalert/alertcore/internal/conf"
	datastore "github.com/glucoalert/alertcore/internal/datastore/v2"
	"github.com/glucoalert/alertcore/internal/logger"
)

func newTestService(t *testing.T) *alerting.Service {
	t.Helper()
	log := logger.NewZapLogger(io.Discard, logger.LogLevelError, nil)

	m, err := datastore.NewSQLiteManager(datastore.Config{DataDir: t.TempDir(), Logger: log})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })

	svc, err := alerting.Initialize(context.Background(), m.DB(), alerting.Options{SeedDefaults: true, Log: log})
	require.NoError(t, err)
	return svc
}

func TestServer_Handler(t *testing.T) {
	s := NewServer(conf.HTTPSettings{}, newTestService(t), apiv2.Options{})

	for _, path := range []string{"/healthz", apiv2.Prefix + "/kinds"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_RateLimitFromSettings(t *testing.T) {
	s := NewServer(conf.HTTPSettings{RateLimit: 0.001, RateBurst: 1}, newTestService(t), apiv2.Options{})

	send := func() int {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, apiv2.Prefix+"/kinds", http.NoBody))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s := NewServer(conf.HTTPSettings{ShutdownTimeout: 2 * time.Second}, newTestService(t), apiv2.Options{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_StartInvalidAddress(t *testing.T) {
	s := NewServer(conf.HTTPSettings{Listen: "256.0.0.1:99999"}, newTestService(t), apiv2.Options{})
	err := s.Start(context.Background())
	require.Error(t, err)
}
