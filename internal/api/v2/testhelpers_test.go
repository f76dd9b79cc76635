package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/glucoalert/alertcore/internal/alerting"
	datastore "github.com/glucoalert/alertcore/internal/datastore/v2"
	"github.com/glucoalert/alertcore/internal/logger"
	"github.com/glucoalert/alertcore/internal/units"
)

type testServer struct {
	e   *echo.Echo
	svc *alerting.Service
}

func testLogger() logger.Logger {
	return logger.NewZapLogger(io.Discard, logger.LogLevelError, nil)
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	m, err := datastore.NewSQLiteManager(datastore.Config{DataDir: t.TempDir(), Logger: testLogger()})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })

	svc, err := alerting.Initialize(context.Background(), m.DB(), alerting.Options{
		SeedDefaults: true,
		Log:          testLogger(),
	})
	require.NoError(t, err)

	if opts.Unit == "" {
		opts.Unit = units.MgDL
	}
	opts.Log = testLogger()

	e := echo.New()
	New(e, svc, opts)
	return &testServer{e: e, svc: svc}
}

// do sends a request with an optional JSON body and returns the recorder.
func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, Prefix+path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, Prefix+path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) entryAt(t *testing.T, code, start int) uint {
	t.Helper()
	entries, err := s.svc.Schedule.ListForKind(context.Background(), code)
	require.NoError(t, err)
	for i := range entries {
		if entries[i].Start == start {
			return entries[i].ID
		}
	}
	t.Fatalf("no entry of kind %d at %d", code, start)
	return 0
}

func (s *testServer) defaultTypeID(t *testing.T) uint {
	t.Helper()
	types, err := s.svc.Registry.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, types)
	return types[0].ID
}
