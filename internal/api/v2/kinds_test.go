package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/units"
)

func TestListKinds(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, http.MethodGet, "/kinds?unit=mmol", "")
	require.Equal(t, http.StatusOK, rec.Code)

	schema := decode[alerting.Schema](t, rec)
	assert.Equal(t, string(units.MmolL), schema.Unit)
	require.Len(t, schema.Kinds, len(alerting.Kinds()))
	assert.Equal(t, "low", schema.Kinds[0].Name)
	assert.Equal(t, "mmol/L", schema.Kinds[0].UnitText)
	assert.InDelta(t, 3.9, schema.Kinds[0].DefaultValue, 0.001)
}

func TestListKinds_BadUnit(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := s.do(t, http.MethodGet, "/kinds?unit=kg", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEntries(t *testing.T) {
	s := newTestServer(t, Options{})

	for _, param := range []string{"low", "0"} {
		rec := s.do(t, http.MethodGet, "/kinds/"+param+"/entries", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[struct {
			Kind    string      `json:"kind"`
			Entries []EntryView `json:"entries"`
			Count   int         `json:"count"`
		}](t, rec)
		assert.Equal(t, "low", body.Kind)
		require.Equal(t, 1, body.Count)
		assert.True(t, body.Entries[0].IsDefault)
		assert.Equal(t, "00:00", body.Entries[0].Start.String())
		assert.Equal(t, "Default", body.Entries[0].AlertTypeName)
	}

	rec := s.do(t, http.MethodGet, "/kinds/nope/entries", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEntry(t *testing.T) {
	s := newTestServer(t, Options{})
	typeID := s.defaultTypeID(t)

	body := fmt.Sprintf(`{"start":"08:00","value":4.5,"alert_type_id":%d}`, typeID)
	rec := s.do(t, http.MethodPost, "/kinds/low/entries?unit=mmol", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	view := decode[EntryView](t, rec)
	assert.Equal(t, 480, view.StartMinute)
	assert.Equal(t, 81, view.Value)
	assert.InDelta(t, 4.5, view.DisplayValue, 0.001)
	assert.Equal(t, "4.5", view.DisplayText)
	assert.False(t, view.IsDefault)

	t.Run("overlap", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/kinds/low/entries", body)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("default value", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/kinds/high/entries", fmt.Sprintf(`{"start":"22:00","alert_type_id":%d}`, typeID))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, 170, decode[EntryView](t, rec).Value)
	})

	t.Run("unknown alert type", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/kinds/low/entries", `{"start":"09:00","alert_type_id":999}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing alert type", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/kinds/low/entries", `{"start":"09:00"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing start", func(t *testing.T) {
		for _, body := range []string{
			fmt.Sprintf(`{"alert_type_id":%d}`, typeID),
			fmt.Sprintf(`{"start":null,"value":90,"alert_type_id":%d}`, typeID),
		} {
			rec := s.do(t, http.MethodPost, "/kinds/high/entries", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}
		// Nothing lands at midnight beside the default entry.
		entries, err := s.svc.Schedule.ListForKind(context.Background(), alerting.KindHigh)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotEqual(t, 90, e.Value)
		}
	})

	t.Run("bad start", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/kinds/low/entries", `{"start":"25:00","alert_type_id":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetActiveEntry(t *testing.T) {
	s := newTestServer(t, Options{})
	typeID := s.defaultTypeID(t)

	rec := s.do(t, http.MethodPost, "/kinds/low/entries", fmt.Sprintf(`{"start":"08:00","value":80,"alert_type_id":%d}`, typeID))
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		query string
		want  int
		code  int
	}{
		{"minute=0", 0, http.StatusOK},
		{"minute=479", 0, http.StatusOK},
		{"time=08:00", 480, http.StatusOK},
		{"time=23:59", 480, http.StatusOK},
		{"minute=1440", 0, http.StatusUnprocessableEntity},
		{"minute=abc", 0, http.StatusBadRequest},
		{"", 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/kinds/low/active?"+tt.query, "")
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.want, decode[EntryView](t, rec).StartMinute)
			}
		})
	}
}

func TestEvaluateAndSnooze(t *testing.T) {
	s := newTestServer(t, Options{})
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC).Format(time.RFC3339)

	rec := s.do(t, http.MethodPost, "/kinds/low/evaluate", fmt.Sprintf(`{"reading":60,"at":%q}`, at))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decode[alerting.Decision](t, rec)
	assert.True(t, d.Breached)
	assert.True(t, d.Fire)

	rec = s.do(t, http.MethodPost, "/kinds/low/evaluate?unit=mmol", fmt.Sprintf(`{"reading":5.0,"at":%q}`, at))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[alerting.Decision](t, rec).Breached)

	rec = s.do(t, http.MethodPost, "/kinds/low/snooze", fmt.Sprintf(`{"minutes":30,"at":%q}`, at))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/kinds/low/evaluate", fmt.Sprintf(`{"reading":60,"at":%q}`, at))
	require.Equal(t, http.StatusOK, rec.Code)
	d = decode[alerting.Decision](t, rec)
	assert.True(t, d.Snoozed)
	assert.False(t, d.Fire)

	rec = s.do(t, http.MethodDelete, "/kinds/low/snooze", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, "/kinds/low/evaluate", fmt.Sprintf(`{"reading":60,"at":%q}`, at))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[alerting.Decision](t, rec).Fire)

	rec = s.do(t, http.MethodPost, "/kinds/low/evaluate", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/kinds/low/snooze", `{"minutes":-5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
