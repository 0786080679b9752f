package schedule

import (
	"encoding/json"
	"net/http"

	"github.com/zacharyweiss/demandscheduling/core/model"
)

// NewLatestHandler serves the most recent schedule via GET /api/schedule.
// It answers 404 until latest returns a schedule.
func NewLatestHandler(latest func() *model.Schedule) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s := latest()
		if s == nil {
			http.Error(w, "no schedule yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
