package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cbr-records/apiserver/internal/token"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// MessageResponse is the minimal response payload; every response body
// carries at least a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ItemResponse pairs a confirmation message with the affected record.
type ItemResponse struct {
	Message string `json:"message"`
	Item    any    `json:"item"`
}

func identityFromContext(ctx context.Context) (token.Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(token.Identity)
	if !ok || identity.UserID < 1 {
		return token.Identity{}, errors.New("missing identity")
	}
	return identity, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

func decodeBody(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}
	return json.NewDecoder(r.Body).Decode(out)
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "ok"})
}
