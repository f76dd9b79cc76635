package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		query  string
		code   int
		native int
		mmol   float64
	}{
		{"value=100", http.StatusOK, 100, 5.5},
		{"value=5,5&unit=mmol", http.StatusOK, 99, 5.5},
		{"value=3.9&unit=mmol/L", http.StatusOK, 70, 3.9},
		{"value=abc", http.StatusBadRequest, 0, 0},
		{"value=1&unit=kg", http.StatusBadRequest, 0, 0},
		{"", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/convert?"+tt.query, "")
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusOK {
				return
			}
			resp := decode[ConversionResponse](t, rec)
			assert.Equal(t, tt.native, resp.Native)
			assert.Equal(t, float64(tt.native), resp.MgDL)
			assert.InDelta(t, tt.mmol, resp.MmolL, 0.001)
		})
	}
}
