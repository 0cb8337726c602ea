package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightdesk/agency-api/chat"
	"github.com/brightdesk/agency-api/models"
)

// memStore is an in-memory chat.Store so room behavior can be tested without
// mongo
type memStore struct {
	mu         sync.Mutex
	msgs       map[string][]models.ChatMessage
	cursors    map[string]int64
	nextID     map[string]int64
	failAppend bool
}

func newMemStore() *memStore {
	return &memStore{
		msgs:    make(map[string][]models.ChatMessage),
		cursors: make(map[string]int64),
		nextID:  make(map[string]int64),
	}
}

func (m *memStore) Append(ctx context.Context, draft models.ChatMessage) (models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend {
		return models.ChatMessage{}, errors.New("append failed")
	}
	m.nextID[draft.ProjectID]++
	msg := draft
	msg.ID = m.nextID[draft.ProjectID]
	msg.CreatedAt = time.Now().UTC()
	m.msgs[draft.ProjectID] = append(m.msgs[draft.ProjectID], msg)
	return msg, nil
}

func (m *memStore) RecentWindow(ctx context.Context, projectID string, limit int64) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.msgs[projectID]
	if int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *memStore) Cursor(ctx context.Context, projectID, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[projectID+"/"+userID], nil
}

func (m *memStore) AdvanceCursor(ctx context.Context, projectID, userID string, upToID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := projectID + "/" + userID
	if upToID > m.cursors[key] {
		m.cursors[key] = upToID
	}
	return nil
}

func (m *memStore) UnreadCount(ctx context.Context, projectID, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lastSeen := m.cursors[projectID+"/"+userID]
	var count int64
	for _, msg := range m.msgs[projectID] {
		if msg.ID > lastSeen && msg.SenderUserID != userID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) LatestID(ctx context.Context, projectID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.msgs[projectID]
	if len(msgs) == 0 {
		return 0, nil
	}
	return msgs[len(msgs)-1].ID, nil
}

func (m *memStore) setFailAppend(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAppend = fail
}

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// newChatServer serves the room registry over a bare websocket endpoint,
// binding identity from query params the way the real handler binds it from
// the authenticated request
func newChatServer(t *testing.T, reg *chat.Registry) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID := r.URL.Query().Get("project")
		userID := r.URL.Query().Get("user")
		name := r.URL.Query().Get("name")

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		session := chat.NewSession(conn, userID, name)
		room := reg.Lookup(projectID)
		if err := room.Join(session); err != nil {
			conn.Close()
			return
		}
		go session.WritePump()
		session.ReadPump(room)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialChat(t *testing.T, srv *httptest.Server, projectID, userID, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?project=" + projectID + "&user=" + userID + "&name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

func readHistory(t *testing.T, conn *websocket.Conn) models.HistoryFrame {
	t.Helper()
	var frame models.HistoryFrame
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &frame))
	require.Equal(t, "history", frame.Type)
	return frame
}

func readMessage(t *testing.T, conn *websocket.Conn) models.ChatMessage {
	t.Helper()
	var frame models.MessageFrame
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &frame))
	require.Equal(t, "message", frame.Type)
	return frame.Message
}

func sendMessage(t *testing.T, conn *websocket.Conn, content string) {
	t.Helper()
	frame, _ := json.Marshal(models.ChatFrame{Type: "message", Content: content})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func TestRoomBroadcastsInOrder(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	defer reg.Close()
	srv := newChatServer(t, reg)

	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)
	bob := dialChat(t, srv, "p1", "bob", "Bob")
	readHistory(t, bob)

	sendMessage(t, alice, "first")
	sendMessage(t, alice, "second")
	sendMessage(t, alice, "third")

	for i, want := range []string{"first", "second", "third"} {
		msg := readMessage(t, bob)
		assert.Equal(t, want, msg.Content)
		assert.Equal(t, int64(i+1), msg.ID)
		assert.Equal(t, "alice", msg.SenderUserID)
		assert.Equal(t, "Alice", msg.SenderName)
		assert.Equal(t, "p1", msg.ProjectID)

		// the sender hears their own message too
		echo := readMessage(t, alice)
		assert.Equal(t, want, echo.Content)
		assert.Equal(t, msg.ID, echo.ID)
	}
}

func TestRoomHistoryOnJoin(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	defer reg.Close()
	srv := newChatServer(t, reg)

	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)
	sendMessage(t, alice, "hello")
	sendMessage(t, alice, "anyone there?")
	readMessage(t, alice)
	readMessage(t, alice)

	bob := dialChat(t, srv, "p1", "bob", "Bob")
	history := readHistory(t, bob)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "hello", history.Messages[0].Content)
	assert.Equal(t, "anyone there?", history.Messages[1].Content)
	assert.Less(t, history.Messages[0].ID, history.Messages[1].ID)
}

func TestRoomsAreIsolated(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	defer reg.Close()
	srv := newChatServer(t, reg)

	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)
	carol := dialChat(t, srv, "p2", "carol", "Carol")
	readHistory(t, carol)

	sendMessage(t, alice, "project one only")
	readMessage(t, alice)

	// carol must not receive anything from the other project
	carol.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := carol.ReadMessage()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timeout") || errors.Is(err, context.DeadlineExceeded))
}

func TestUnreadCountsAndMarkRead(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	defer reg.Close()
	srv := newChatServer(t, reg)

	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)
	bob := dialChat(t, srv, "p1", "bob", "Bob")
	readHistory(t, bob)

	sendMessage(t, alice, "status update")
	sendMessage(t, alice, "second update")
	readMessage(t, alice)
	readMessage(t, alice)
	readMessage(t, bob)
	readMessage(t, bob)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	room := reg.Lookup("p1")

	// sending advanced the sender's own cursor
	count, err := room.Unread(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// bob received the frames but has not acknowledged them
	count, err = room.Unread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// carol never connected and has everything unread
	count, err = room.Unread(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, room.MarkRead(ctx, "bob", 2))
	count, err = room.Unread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// a stale acknowledgement never rewinds the cursor
	require.NoError(t, room.MarkRead(ctx, "bob", 1))
	count, err = room.Unread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMarkReadNeverPassesLatestMessage(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	defer reg.Close()
	srv := newChatServer(t, reg)

	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)
	sendMessage(t, alice, "only one so far")
	readMessage(t, alice)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	room := reg.Lookup("p1")

	// an acknowledgement past the newest message clamps to it instead of
	// pre-marking messages that do not exist yet
	require.NoError(t, room.MarkRead(ctx, "bob", 999))

	sendMessage(t, alice, "second")
	sendMessage(t, alice, "third")
	readMessage(t, alice)
	readMessage(t, alice)

	count, err := room.Unread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSlowConsumerIsDisconnected(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	defer reg.Close()

	// the stalled user's write pump is wedged, so its send queue fills up
	// while the socket stays open
	var mu sync.Mutex
	var stalled *chat.Session
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		session := chat.NewSession(conn, q.Get("user"), q.Get("name"))
		room := reg.Lookup(q.Get("project"))
		if err := room.Join(session); err != nil {
			conn.Close()
			return
		}
		if q.Get("user") == "stalled" {
			mu.Lock()
			stalled = session
			mu.Unlock()
		} else {
			go session.WritePump()
		}
		session.ReadPump(room)
	}))
	t.Cleanup(srv.Close)

	dialChat(t, srv, "p1", "stalled", "Stalled")
	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)

	// enough broadcasts to overflow a full send queue; the healthy session
	// keeps receiving every message in order
	for i := 0; i < 40; i++ {
		sendMessage(t, alice, "flood")
		msg := readMessage(t, alice)
		assert.Equal(t, int64(i+1), msg.ID)
	}

	// the room dropped the session that could not keep up
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if stalled == nil {
			return false
		}
		select {
		case <-stalled.Done():
			return true
		default:
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	sendMessage(t, alice, "after the drop")
	msg := readMessage(t, alice)
	assert.Equal(t, "after the drop", msg.Content)
	assert.Equal(t, int64(41), msg.ID)
}

func TestMalformedFrameClosesOnlyOffender(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	defer reg.Close()
	srv := newChatServer(t, reg)

	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)
	bob := dialChat(t, srv, "p1", "bob", "Bob")
	readHistory(t, bob)

	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte("not json")))

	// bob gets an error frame and then the connection shuts down
	var errFrame models.ErrorFrame
	require.NoError(t, json.Unmarshal(readFrame(t, bob), &errFrame))
	assert.Equal(t, "error", errFrame.Type)

	bob.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := bob.ReadMessage()
	require.Error(t, err)

	// alice is unaffected
	sendMessage(t, alice, "still here")
	msg := readMessage(t, alice)
	assert.Equal(t, "still here", msg.Content)
}

func TestUnknownFrameTypeIgnored(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	defer reg.Close()
	srv := newChatServer(t, reg)

	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)

	frame, _ := json.Marshal(map[string]string{"type": "typing"})
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, frame))

	// the session stays healthy and the next real message flows
	sendMessage(t, alice, "after unknown frame")
	msg := readMessage(t, alice)
	assert.Equal(t, "after unknown frame", msg.Content)
	assert.Equal(t, int64(1), msg.ID)
}

func TestAppendFailureNotifiesSenderOnly(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	defer reg.Close()
	srv := newChatServer(t, reg)

	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)
	bob := dialChat(t, srv, "p1", "bob", "Bob")
	readHistory(t, bob)

	store.setFailAppend(true)
	sendMessage(t, alice, "doomed")

	var errFrame models.ErrorFrame
	require.NoError(t, json.Unmarshal(readFrame(t, alice), &errFrame))
	assert.Equal(t, "error", errFrame.Type)

	// bob saw nothing
	bob.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := bob.ReadMessage()
	require.Error(t, err)

	// the room recovers once the store does
	store.setFailAppend(false)
	sendMessage(t, alice, "retry")
	msg := readMessage(t, alice)
	assert.Equal(t, "retry", msg.Content)
	assert.Equal(t, int64(1), msg.ID)
}

func TestOversizedContentRejected(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	defer reg.Close()
	srv := newChatServer(t, reg)

	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)

	sendMessage(t, alice, strings.Repeat("x", chat.MaxContentBytes+1))

	var errFrame models.ErrorFrame
	require.NoError(t, json.Unmarshal(readFrame(t, alice), &errFrame))
	assert.Equal(t, "error", errFrame.Type)

	alice.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := alice.ReadMessage()
	require.Error(t, err)
}

func TestRoomStopClosesSessions(t *testing.T) {
	store := newMemStore()
	reg := chat.NewRegistry(store)
	srv := newChatServer(t, reg)

	alice := dialChat(t, srv, "p1", "alice", "Alice")
	readHistory(t, alice)

	room := reg.Lookup("p1")
	room.Stop()

	alice.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := alice.ReadMessage()
	require.Error(t, err)

	assert.True(t, room.Closed())
	require.ErrorIs(t, room.Join(chat.NewSession(nil, "x", "X")), chat.ErrRoomClosed)
}
