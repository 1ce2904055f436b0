package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := NewClient(ts.URL, "test-token")
	require.NoError(t, err)
	return c, ts
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClientValidatesInputs(t *testing.T) {
	_, err := NewClient("", "token")
	require.Error(t, err)
	_, err = NewClient("https://example.com", "")
	require.Error(t, err)
}

func TestGetMeIsMemoized(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me", r.URL.Path)
		require.Equal(t, "test-token", r.URL.Query().Get("access_token"))
		calls++
		writeJSON(t, w, map[string]string{"id": "B1", "username": "mybiz", "name": "My Biz"})
	})

	for n := 0; n < 3; n++ {
		me, err := c.GetMe(context.Background())
		require.NoError(t, err)
		require.Equal(t, "B1", me.ID)
		require.Equal(t, "mybiz", me.Username)
	}
	require.Equal(t, 1, calls)
}

func TestGetMeUpstreamError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad token"}}`)
	})

	_, err := c.GetMe(context.Background())
	require.Error(t, err)
}

func TestGetConversationsFiltersAndAnnotates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me":
			writeJSON(t, w, map[string]string{"id": "B1", "username": "mybiz"})
		case "/me/conversations":
			require.Equal(t, "instagram", r.URL.Query().Get("platform"))
			writeJSON(t, w, map[string]interface{}{
				"data": []map[string]interface{}{
					{
						"id":           "C1",
						"updated_time": "2026-01-10T10:00:00+0000",
						"participants": map[string]interface{}{"data": []map[string]string{
							{"id": "B1", "username": "mybiz"},
							{"id": "U1", "username": "client_one"},
						}},
					},
					{
						"id": "C2",
						"participants": map[string]interface{}{"data": []map[string]string{
							{"id": "B1", "username": "mybiz"},
							{"id": "U2", "username": "client_two"},
							{"id": "U3", "username": "client_three"},
						}},
					},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	conversations, err := c.GetConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, conversations, 1, "group threads must be filtered out")
	require.Equal(t, "C1", conversations[0].ID)
	require.NotNil(t, conversations[0].OtherParticipant)
	require.Equal(t, "U1", conversations[0].OtherParticipant.ID)
}

func TestGetMessagesAppliesCursorAndStripsURLs(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/C1/messages", r.URL.Path)
		require.Equal(t, "cursor-123", r.URL.Query().Get("after"))
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(t, w, map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "m2", "created_time": "2026-01-10T10:01:00+0000", "from": map[string]string{"id": "U1"}, "message": "newest"},
				{"id": "m1", "created_time": "2026-01-10T10:00:00+0000", "from": map[string]string{"id": "B1"}, "message": "older"},
			},
			"paging": map[string]interface{}{
				"cursors": map[string]string{"before": "bef", "after": "aft"},
				"next":    "https://graph.instagram.com/leaky?access_token=secret",
			},
		})
	})

	page, err := c.GetMessages(context.Background(), "C1", "cursor-123", DirectionAfter, 5)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	require.Equal(t, "newest", page.Messages[0].Text)
	require.True(t, page.Paging.HasMore)
	require.Equal(t, "bef", page.Paging.Before)
	require.Equal(t, "aft", page.Paging.After)

	// Nothing credential-bearing may cross the boundary.
	raw, err := json.Marshal(page.Paging)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "access_token")
	require.NotContains(t, string(raw), "http")
}

func TestGetMessagesRejectsBadDirection(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.GetMessages(context.Background(), "C1", "", "sideways", 20)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "direction"))
}

func TestGetMessagesNoPagingBlock(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]interface{}{"data": []map[string]interface{}{}})
	})

	page, err := c.GetMessages(context.Background(), "C1", "", DirectionBefore, 20)
	require.NoError(t, err)
	require.Empty(t, page.Messages)
	require.False(t, page.Paging.HasMore)
}
