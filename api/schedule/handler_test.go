package schedule

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacharyweiss/demandscheduling/core/model"
)

func TestLatestHandler(t *testing.T) {
	var current *model.Schedule
	h := NewLatestHandler(func() *model.Schedule { return current })

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	current = &model.Schedule{RunID: "r1", Horizon: 2, Prices: []float64{5, 6}, Cost: 11}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var got model.Schedule
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, []float64{5, 6}, got.Prices)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/schedule", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
