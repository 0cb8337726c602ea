package models

import "time"

// ChatMessage holds the structure for the chatmessages collection in mongo.
// IDs are assigned per project by the room actor and are never reused; the
// (projectId, id) pair is unique and createdAt is non-decreasing with id.
type ChatMessage struct {
	ID           int64     `json:"id" bson:"messageId"`
	ProjectID    string    `json:"projectId" bson:"projectId"`
	SenderUserID string    `json:"senderUserId" bson:"senderUserId"`
	SenderName   string    `json:"senderName" bson:"senderName"`
	Content      string    `json:"content" bson:"content"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// ChatFrame is the client->server websocket frame. Frames with an
// unrecognized Type are ignored by the server.
type ChatFrame struct {
	Type       string `json:"type"`
	ProjectID  string `json:"projectId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	Content    string `json:"content,omitempty"`
}

// MessageFrame is the server->client frame carrying a persisted message
type MessageFrame struct {
	Type    string      `json:"type"`
	Message ChatMessage `json:"message"`
}

// HistoryFrame hydrates a freshly connected client with the recent window
type HistoryFrame struct {
	Type     string        `json:"type"`
	Messages []ChatMessage `json:"messages"`
}

// ErrorFrame is sent to a single session when its request failed
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// UnreadCountResponse is the body of the unread count query
type UnreadCountResponse struct {
	UnreadCount int64 `json:"unreadCount"`
}

// MarkReadRequest advances the caller's read cursor up to a message id
type MarkReadRequest struct {
	UpToID int64 `json:"upToId"`
}
