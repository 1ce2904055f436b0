package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"igrelay/internal/services"

	"github.com/rs/zerolog/log"
)

// processTimeout bounds the detached processing of one webhook delivery.
const processTimeout = time.Minute

// Processor consumes decoded webhook payloads after the delivery has been
// acknowledged.
type Processor interface {
	ProcessPayload(ctx context.Context, payload *services.EventPayload)
}

// Webhook holds the Meta webhook endpoints: subscription verification and
// event delivery.
type Webhook struct {
	processor   Processor
	verifyToken string
}

// NewWebhook creates the webhook handler set.
func NewWebhook(processor Processor, verifyToken string) (*Webhook, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil for Webhook handlers")
	}
	if verifyToken == "" {
		return nil, fmt.Errorf("verify token cannot be empty for Webhook handlers")
	}
	return &Webhook{processor: processor, verifyToken: verifyToken}, nil
}

// Verify handles GET: echo hub.challenge iff hub.mode is "subscribe" and
// hub.verify_token matches the pre-shared secret. The presented token is
// compared in constant time and never logged.
func (h *Webhook) Verify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mode := q.Get("hub.mode")
		token := q.Get("hub.verify_token")
		challenge := q.Get("hub.challenge")

		log.Info().Str("mode", mode).Bool("tokenPresent", token != "").Msg("Webhook verification request")

		if mode == "subscribe" && subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) == 1 {
			log.Info().Msg("Webhook verified")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte(challenge)); err != nil {
				log.Error().Err(err).Msg("Failed to write webhook challenge")
			}
			return
		}

		log.Warn().Str("mode", mode).Msg("Webhook verification failed")
		w.WriteHeader(http.StatusForbidden)
	}
}

// Receive handles POST: acknowledge with 200 unconditionally, then process
// the payload in a detached goroutine. Meta enforces a short response
// budget and retries slow or non-2xx responses, so nothing after the
// acknowledgment may influence the response.
func (h *Webhook) Receive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, readErr := io.ReadAll(r.Body)

		w.WriteHeader(http.StatusOK)

		if readErr != nil {
			log.Error().Err(readErr).Msg("Failed to read webhook body")
			return
		}

		var payload services.EventPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Warn().Err(err).Msg("Webhook body is not a recognizable event payload")
			return
		}

		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Interface("panic", rec).Msg("Webhook processing panicked")
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
			defer cancel()
			h.processor.ProcessPayload(ctx, &payload)
		}()
	}
}
