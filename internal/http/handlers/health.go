package handlers

import (
	"net/http"

	"github.com/pafrisco/clinic-booking/internal/directory"
)

// Health reports liveness and the size of the provider directory.
func Health(dir *directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"providers": dir.Len(),
		})
	}
}
