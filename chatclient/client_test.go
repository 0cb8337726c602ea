package chatclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightdesk/agency-api/chatclient"
	"github.com/brightdesk/agency-api/models"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// echoChatServer speaks the server side of the chat protocol: a history
// frame on connect, then every inbound message frame echoed back with an id
func echoChatServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		history, _ := json.Marshal(models.HistoryFrame{
			Type: "history",
			Messages: []models.ChatMessage{
				{ID: 1, ProjectID: "p1", SenderUserID: "alice", Content: "earlier"},
			},
		})
		if err := conn.WriteMessage(websocket.TextMessage, history); err != nil {
			return
		}

		nextID := int64(1)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame models.ChatFrame
			if err := json.Unmarshal(data, &frame); err != nil || frame.Type != "message" {
				continue
			}
			nextID++
			echo, _ := json.Marshal(models.MessageFrame{
				Type: "message",
				Message: models.ChatMessage{
					ID:        nextID,
					ProjectID: "p1",
					Content:   frame.Content,
					CreatedAt: time.Now().UTC(),
				},
			})
			if err := conn.WriteMessage(websocket.TextMessage, echo); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSendAndReceive(t *testing.T) {
	srv := echoChatServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := chatclient.Dial(ctx, url, "test-token")
	require.NoError(t, err)
	defer client.Close()

	history, err := client.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "earlier", history[0].Content)

	require.NoError(t, client.Send("hello there"))

	msg, err := client.NextMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Content)
	assert.Equal(t, int64(2), msg.ID)
}

func TestClientSendAfterClose(t *testing.T) {
	srv := echoChatServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := chatclient.Dial(ctx, url, "")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	assert.ErrorIs(t, client.Send("too late"), chatclient.ErrClosed)
	// Close is idempotent
	assert.NoError(t, client.Close())
}
