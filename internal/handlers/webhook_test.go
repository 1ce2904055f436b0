package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"igrelay/internal/services"

	"github.com/stretchr/testify/require"
)

type channelProcessor struct {
	received chan *services.EventPayload
}

func newChannelProcessor() *channelProcessor {
	return &channelProcessor{received: make(chan *services.EventPayload, 1)}
}

func (p *channelProcessor) ProcessPayload(_ context.Context, payload *services.EventPayload) {
	p.received <- payload
}

func (p *channelProcessor) wait(t *testing.T) *services.EventPayload {
	t.Helper()
	select {
	case payload := <-p.received:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("processor was never invoked")
		return nil
	}
}

func (p *channelProcessor) expectSilence(t *testing.T) {
	t.Helper()
	select {
	case <-p.received:
		t.Fatal("processor invoked unexpectedly")
	case <-time.After(50 * time.Millisecond):
	}
}

func verifyRequest(mode, token, challenge string) *http.Request {
	q := url.Values{}
	q.Set("hub.mode", mode)
	q.Set("hub.verify_token", token)
	q.Set("hub.challenge", challenge)
	return httptest.NewRequest(http.MethodGet, "/api/webhook/instagram?"+q.Encode(), nil)
}

func TestNewWebhookValidatesInputs(t *testing.T) {
	_, err := NewWebhook(nil, "secret")
	require.Error(t, err)
	_, err = NewWebhook(newChannelProcessor(), "")
	require.Error(t, err)
}

func TestVerifyEchoesChallenge(t *testing.T) {
	wh, err := NewWebhook(newChannelProcessor(), "secret")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	wh.Verify()(rec, verifyRequest("subscribe", "secret", "challenge-42"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "challenge-42", rec.Body.String())
}

func TestVerifyRejectsMismatches(t *testing.T) {
	wh, err := NewWebhook(newChannelProcessor(), "secret")
	require.NoError(t, err)

	cases := []struct {
		name  string
		mode  string
		token string
	}{
		{"wrong mode", "unsubscribe", "secret"},
		{"wrong token", "subscribe", "guess"},
		{"empty token", "subscribe", ""},
		{"everything wrong", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			wh.Verify()(rec, verifyRequest(tc.mode, tc.token, "challenge-42"))

			require.Equal(t, http.StatusForbidden, rec.Code)
			require.NotContains(t, rec.Body.String(), "challenge-42")
		})
	}
}

func TestReceiveAcknowledgesAndDispatches(t *testing.T) {
	processor := newChannelProcessor()
	wh, err := NewWebhook(processor, "secret")
	require.NoError(t, err)

	body := `{"object":"instagram","entry":[{"id":"B1","messaging":[{"sender":{"id":"U1"},"recipient":{"id":"B1"},"message":{"text":"hi"}}]}]}`
	rec := httptest.NewRecorder()
	wh.Receive()(rec, httptest.NewRequest(http.MethodPost, "/api/webhook/instagram", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	payload := processor.wait(t)
	require.Equal(t, services.ObjectInstagram, payload.Object)
	require.Len(t, payload.Entry, 1)
	require.Equal(t, "hi", payload.Entry[0].Messaging[0].Message.Text)
}

func TestReceiveAlwaysReturns200(t *testing.T) {
	processor := newChannelProcessor()
	wh, err := NewWebhook(processor, "secret")
	require.NoError(t, err)

	cases := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not JSON", "certainly not json"},
		{"wrong shape", `[1,2,3]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			wh.Receive()(rec, httptest.NewRequest(http.MethodPost, "/api/webhook/instagram", strings.NewReader(tc.body)))

			require.Equal(t, http.StatusOK, rec.Code)
			processor.expectSilence(t)
		})
	}
}

func TestReceiveSurvivesPanickingProcessor(t *testing.T) {
	wh, err := NewWebhook(panickingProcessor{}, "secret")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	wh.Receive()(rec, httptest.NewRequest(http.MethodPost, "/api/webhook/instagram", strings.NewReader(`{"object":"instagram"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	// Give the detached goroutine time to panic and recover.
	time.Sleep(50 * time.Millisecond)
}

type panickingProcessor struct{}

func (panickingProcessor) ProcessPayload(context.Context, *services.EventPayload) {
	panic("boom")
}
