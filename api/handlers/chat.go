package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/brightdesk/agency-api/api"
	"github.com/brightdesk/agency-api/chat"
	"github.com/brightdesk/agency-api/config"
	"github.com/brightdesk/agency-api/models"
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// Chat exposes the realtime project chat over websocket plus its read-model
// endpoints
type Chat struct {
	Rooms *chat.Registry
	Store chat.Store
}

// ChatWebSocketHandler upgrades the request and attaches the caller to the
// project's room. The identity comes from the authenticated request, so a
// session can never speak as another user.
func (c Chat) ChatWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]

	user, ok := api.UserFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, fmt.Errorf("no identity on request"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		zap.S().Errorw("failed to upgrade chat connection",
			"projectId", projectID,
			"error", err,
		)
		return
	}

	session := chat.NewSession(conn, user.ID(), user.UserName())
	room := c.Rooms.Lookup(projectID)
	if err := room.Join(session); err != nil {
		conn.Close()
		return
	}

	go session.WritePump()
	session.ReadPump(room)
}

// UnreadCountHandler returns how many messages a user has not yet seen in a
// project
func (c Chat) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	userID := mux.Vars(r)["user_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	count, err := c.Rooms.Lookup(projectID).Unread(ctx, userID)
	if err != nil {
		config.ErrorStatus("failed to get unread count", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.UnreadCountResponse{UnreadCount: count})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MarkReadHandler advances the caller's read cursor; stale values never move
// it backwards
func (c Chat) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]

	user, ok := api.UserFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, fmt.Errorf("no identity on request"))
		return
	}

	var body models.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if body.UpToID < 0 {
		config.ErrorStatus("upToId must not be negative", http.StatusBadRequest, w, fmt.Errorf("got %d", body.UpToID))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := c.Rooms.Lookup(projectID).MarkRead(ctx, user.ID(), body.UpToID); err != nil {
		config.ErrorStatus("failed to mark messages read", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChatHistoryHandler returns the most recent messages for a project in
// ascending id order
func (c Chat) ChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]

	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit <= 0 {
		limit = 50
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	msgs, err := c.Store.RecentWindow(ctx, projectID, limit)
	if err != nil {
		config.ErrorStatus("failed to get chat history", http.StatusInternalServerError, w, err)
		return
	}
	if len(msgs) == 0 {
		msgs = []models.ChatMessage{}
	}

	b, err := json.Marshal(msgs)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
