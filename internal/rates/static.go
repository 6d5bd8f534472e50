package rates

import (
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"

	"costs/internal/currency"
)

// StaticHandler serves a fixed rate table as JSON to any origin.
func StaticHandler(table currency.RateTable) http.Handler {
	body, err := json.Marshal(maps.Clone(table))
	if err != nil {
		// a map[string]float64 only fails to marshal on NaN or Inf
		slog.Error("Failed to encode static rate table", "error", err)
		body = []byte("{}")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		switch r.Method {
		case http.MethodGet, http.MethodHead:
		case http.MethodOptions:
			w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			w.Header().Set("Allow", "GET, HEAD, OPTIONS")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if r.Method == http.MethodHead {
			return
		}
		w.Write(body)
	})
}
