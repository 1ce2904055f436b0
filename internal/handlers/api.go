// Package handlers exposes the HTTP surface: the REST proxy over the Graph
// API and the Meta webhook verification/delivery endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"igrelay/internal/adapters/instagram"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Gateway is the subset of the Graph API client the REST proxy needs.
type Gateway interface {
	GetMe(ctx context.Context) (*instagram.Account, error)
	GetConversations(ctx context.Context) ([]instagram.Conversation, error)
	GetMessages(ctx context.Context, conversationID, cursor, direction string, limit int) (*instagram.PaginatedMessages, error)
}

// API holds the REST proxy handlers. Upstream failures surface as 500 with
// a message; parameters are forwarded as-is otherwise.
type API struct {
	gateway Gateway
}

// NewAPI creates the REST proxy handler set.
func NewAPI(gateway Gateway) (*API, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway cannot be nil for API handlers")
	}
	return &API{gateway: gateway}, nil
}

type apiResponse struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Paging  *instagram.Paging `json:"paging,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, payload apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Me handles GET /api/me.
func (a *API) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := a.gateway.GetMe(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to fetch account identity")
			respondJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Error: err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: account})
	}
}

// Conversations handles GET /api/conversations.
func (a *API) Conversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversations, err := a.gateway.GetConversations(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to fetch conversations")
			respondJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Error: err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: conversations})
	}
}

// Messages handles GET /api/conversations/{id}/messages with optional
// cursor, direction (before|after, default before) and limit (default 20)
// query parameters.
func (a *API) Messages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := mux.Vars(r)["id"]

		cursor := r.URL.Query().Get("cursor")
		direction := r.URL.Query().Get("direction")
		if direction == "" {
			direction = instagram.DirectionBefore
		}
		if direction != instagram.DirectionBefore && direction != instagram.DirectionAfter {
			respondJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "direction must be 'before' or 'after'"})
			return
		}

		limit := 20
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		page, err := a.gateway.GetMessages(r.Context(), conversationID, cursor, direction, limit)
		if err != nil {
			log.Error().Err(err).Str("conversationID", conversationID).Msg("Failed to fetch messages")
			respondJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Error: err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: page.Messages, Paging: &page.Paging})
	}
}
