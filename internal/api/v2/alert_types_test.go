package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glucoalert/alertcore/internal/alerting"
)

type alertTypeList struct {
	AlertTypes []AlertTypeView `json:"alert_types"`
	Count      int             `json:"count"`
}

func TestListAlertTypes(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, http.MethodGet, "/alert-types", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[alertTypeList](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, alerting.DefaultAlertTypeName, list.AlertTypes[0].Name)
	assert.False(t, list.AlertTypes[0].CanDelete, "seeded entries reference the default type")
	assert.Len(t, list.AlertTypes[0].Fields, 7)
}

func TestCreateAlertType(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, http.MethodPost, "/alert-types", `{"name":"Night","vibrate":false,"sound_name":""}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	v := decode[AlertTypeView](t, rec)
	assert.Equal(t, "Night", v.Name)
	assert.True(t, v.Enabled, "omitted fields take the defaults")
	assert.False(t, v.Vibrate)
	require.NotNil(t, v.SoundName)
	assert.Empty(t, *v.SoundName)
	assert.True(t, v.CanDelete)
	assert.Equal(t, alerting.DefaultSnoozePeriodMinutes, v.DefaultSnoozePeriodMinutes)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"duplicate name", `{"name":"Night"}`, http.StatusConflict},
		{"missing name", `{"enabled":true}`, http.StatusBadRequest},
		{"negative snooze", `{"name":"Nap","default_snooze_period_minutes":-1}`, http.StatusUnprocessableEntity},
		{"bad sound", `{"name":"Nap","sound_name":42}`, http.StatusBadRequest},
		{"malformed", `{"name":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/alert-types", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdateAlertType(t *testing.T) {
	s := newTestServer(t, Options{})
	id := s.defaultTypeID(t)

	rec := s.do(t, http.MethodPut, fmt.Sprintf("/alert-types/%d", id), `{"enabled":false,"sound_name":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	v := decode[AlertTypeView](t, rec)
	assert.Equal(t, alerting.DefaultAlertTypeName, v.Name)
	assert.False(t, v.Enabled)
	assert.Nil(t, v.SoundName)
	require.Len(t, v.Fields, 1)
	assert.Equal(t, string(alerting.TypeFieldEnabled), v.Fields[0].Field)

	rec = s.do(t, http.MethodPost, "/alert-types", `{"name":"Other"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPut, fmt.Sprintf("/alert-types/%d", id), `{"name":"Other"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPut, "/alert-types/999", `{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/alert-types/abc", `{"enabled":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAlertType(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, http.MethodDelete, fmt.Sprintf("/alert-types/%d", s.defaultTypeID(t)), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/alert-types", `{"name":"Spare"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	spare := decode[AlertTypeView](t, rec)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/alert-types/%d", spare.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/alert-types/%d", spare.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
