package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/pricing"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

type ctxKey struct{}

// requireUser rejects requests without the x-user-id header and stores the
// id on the request context.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("x-user-id")
		if id == "" {
			jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// writeErr maps domain errors to status codes. Anything unrecognised is a
// store failure: logged in full, reported generically.
func writeErr(w http.ResponseWriter, log *logging.Logger, err error) {
	var ve *marketplace.ValidationError
	switch {
	case errors.As(err, &ve):
		jsonError(w, ve.Msg, http.StatusBadRequest)
	case errors.Is(err, marketplace.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, marketplace.ErrNotOpen):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, pricing.ErrEstimateUnavailable):
		jsonError(w, err.Error(), http.StatusBadGateway)
	default:
		log.Error("request failed", "err", err)
		jsonError(w, "database error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, http.StatusOK, v)
}

func jsonStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonStatus(w, code, map[string]string{"error": msg})
}
