package runs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/zacharyweiss/demandscheduling/core/model"
	"github.com/zacharyweiss/demandscheduling/core/runlog"
)

func newStore(t *testing.T) runlog.Store {
	t.Helper()
	store, err := runlog.NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []runlog.Record{
		{Timestamp: base, RunID: "r1", State: "solved", Schedule: &model.Schedule{
			RunID: "r1", Cohorts: []model.CohortSchedule{{Name: "fleet"}}}},
		{Timestamp: base.Add(time.Hour), RunID: "r2", State: "failed", Error: "infeasible"},
	}
	for _, r := range recs {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return store
}

func get(t *testing.T, h http.Handler, url, token string) (*httptest.ResponseRecorder, []runlog.Record) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out []runlog.Record
	if rr.Code == http.StatusOK {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
	}
	return rr, out
}

func TestHandlerAuthAndFilters(t *testing.T) {
	h := NewHandler(newStore(t), "tok")

	rr, out := get(t, h, "/api/runs", "tok")
	if rr.Code != http.StatusOK || len(out) != 2 {
		t.Fatalf("status %d, %d records", rr.Code, len(out))
	}
	if _, out = get(t, h, "/api/runs?cohort=fleet", "tok"); len(out) != 1 || out[0].RunID != "r1" {
		t.Fatalf("cohort filter: %+v", out)
	}
	if _, out = get(t, h, "/api/runs?start=2026-03-01T12:30:00Z", "tok"); len(out) != 1 || out[0].RunID != "r2" {
		t.Fatalf("start filter: %+v", out)
	}
	if rr, out = get(t, h, "/api/runs?state=cancelled", "tok"); rr.Code != http.StatusOK || len(out) != 0 {
		t.Fatalf("empty result: %d %+v", rr.Code, out)
	}
	if rr, _ = get(t, h, "/api/runs?end=yesterday", "tok"); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	if rr, _ = get(t, h, "/api/runs", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestHandlerWithoutToken(t *testing.T) {
	rr, out := get(t, NewHandler(newStore(t), ""), "/api/runs?run_id=r2", "")
	if rr.Code != http.StatusOK || len(out) != 1 || out[0].Error != "infeasible" {
		t.Fatalf("status %d, %+v", rr.Code, out)
	}
}
