package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brightdesk/agency-api/databases"
	"github.com/brightdesk/agency-api/models"
)

// Store is the persistence surface a Room depends on. The mongo-backed
// MessageStore is the production implementation; tests substitute their own.
type Store interface {
	Append(ctx context.Context, draft models.ChatMessage) (models.ChatMessage, error)
	RecentWindow(ctx context.Context, projectID string, limit int64) ([]models.ChatMessage, error)
	Cursor(ctx context.Context, projectID, userID string) (int64, error)
	AdvanceCursor(ctx context.Context, projectID, userID string, upToID int64) error
	UnreadCount(ctx context.Context, projectID, userID string) (int64, error)
	LatestID(ctx context.Context, projectID string) (int64, error)
}

// recentWindowSize bounds the in-memory tail kept per project
const recentWindowSize = 100

type window struct {
	msgs []models.ChatMessage
	// complete means msgs holds every message the project has, so any
	// window request can be served without touching mongo
	complete bool
}

// MessageStore is the durable, per-project append log plus read cursors.
// Message ids come from the sequences collection so they survive room
// restarts; the recent-window cache is an optimization only and mongo stays
// the source of truth.
type MessageStore struct {
	messages  databases.ChatMessageDatabase
	cursors   databases.ReadCursorDatabase
	sequences databases.SequenceDatabase

	mu     sync.Mutex
	recent map[string]*window
}

// NewMessageStore initializes a message store over the shared db connection
func NewMessageStore(db databases.DatabaseHelper) *MessageStore {
	return &MessageStore{
		messages:  databases.NewChatMessageDatabase(db),
		cursors:   databases.NewReadCursorDatabase(db),
		sequences: databases.NewSequenceDatabase(db),
		recent:    make(map[string]*window),
	}
}

// Append assigns the next id for the project and persists the message.
// Callers (the room actor) serialize appends per project; the sequence
// document serializes id assignment even across overlapping actor instances.
func (s *MessageStore) Append(ctx context.Context, draft models.ChatMessage) (models.ChatMessage, error) {
	id, err := s.sequences.Next(ctx, draft.ProjectID)
	if err != nil {
		return models.ChatMessage{}, err
	}

	msg := draft
	msg.ID = id
	msg.CreatedAt = time.Now().UTC()

	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		// the sequence was consumed; the id is skipped, never reused
		return models.ChatMessage{}, err
	}

	s.cacheAppend(msg)
	return msg, nil
}

// RecentWindow returns the most recent limit messages in ascending id order
func (s *MessageStore) RecentWindow(ctx context.Context, projectID string, limit int64) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = recentWindowSize
	}

	s.mu.Lock()
	w, warm := s.recent[projectID]
	if warm && (w.complete || int64(len(w.msgs)) >= limit) {
		msgs := w.msgs
		if int64(len(msgs)) > limit {
			msgs = msgs[int64(len(msgs))-limit:]
		}
		out := make([]models.ChatMessage, len(msgs))
		copy(out, msgs)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	fetch := limit
	if fetch < recentWindowSize {
		fetch = recentWindowSize
	}
	opts := options.Find().
		SetLimit(fetch).
		SetSort(bson.M{"messageId": -1})

	msgs, err := s.messages.Find(ctx, bson.M{"projectId": projectID}, opts)
	if err != nil {
		return nil, err
	}
	// mongo returned newest-first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	s.mu.Lock()
	s.recent[projectID] = &window{
		msgs:     msgs,
		complete: int64(len(msgs)) < fetch,
	}
	s.mu.Unlock()

	if int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	return msgs, nil
}

// Cursor returns the user's last seen message id, zero when the user has
// never read the project
func (s *MessageStore) Cursor(ctx context.Context, projectID, userID string) (int64, error) {
	cursor, err := s.cursors.FindOne(ctx, bson.M{"projectId": projectID, "userId": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return cursor.LastSeenID, nil
}

// AdvanceCursor raises the user's cursor to upToID. The $max update makes it
// a no-op for stale values, so a lagging client can never rewind progress.
func (s *MessageStore) AdvanceCursor(ctx context.Context, projectID, userID string, upToID int64) error {
	filter := bson.M{"projectId": projectID, "userId": userID}
	update := bson.M{
		"$max": bson.M{"lastSeenId": upToID},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.Update().SetUpsert(true)
	return s.cursors.UpdateOne(ctx, filter, update, opts)
}

// LatestID returns the highest message id the project has, zero when the
// project has no messages yet
func (s *MessageStore) LatestID(ctx context.Context, projectID string) (int64, error) {
	s.mu.Lock()
	if w, warm := s.recent[projectID]; warm {
		// the cache always holds the newest tail, so its last entry is
		// the latest id
		if n := len(w.msgs); n > 0 {
			id := w.msgs[n-1].ID
			s.mu.Unlock()
			return id, nil
		}
		if w.complete {
			s.mu.Unlock()
			return 0, nil
		}
	}
	s.mu.Unlock()

	opts := options.Find().
		SetLimit(1).
		SetSort(bson.M{"messageId": -1})
	msgs, err := s.messages.Find(ctx, bson.M{"projectId": projectID}, opts)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	return msgs[0].ID, nil
}

// UnreadCount counts messages past the user's cursor, excluding the user's
// own messages
func (s *MessageStore) UnreadCount(ctx context.Context, projectID, userID string) (int64, error) {
	lastSeen, err := s.Cursor(ctx, projectID, userID)
	if err != nil {
		return 0, err
	}
	filter := bson.M{
		"projectId":    projectID,
		"messageId":    bson.M{"$gt": lastSeen},
		"senderUserId": bson.M{"$ne": userID},
	}
	return s.messages.CountDocuments(ctx, filter)
}

func (s *MessageStore) cacheAppend(msg models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, warm := s.recent[msg.ProjectID]
	if !warm {
		// cold cache stays cold; the next RecentWindow hydrates from mongo
		return
	}
	w.msgs = append(w.msgs, msg)
	if len(w.msgs) > recentWindowSize {
		w.msgs = w.msgs[len(w.msgs)-recentWindowSize:]
		w.complete = false
	}
}
