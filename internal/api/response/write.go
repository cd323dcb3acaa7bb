package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as a JSON body. Lobby state changes every few seconds,
// so nothing the API returns may be cached.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
