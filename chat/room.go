package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brightdesk/agency-api/api"
	"github.com/brightdesk/agency-api/models"
)

// historyLimit is how many recent messages hydrate a freshly joined session
const historyLimit = 50

const messageFrameType = "message"

// ErrRoomClosed is returned when an operation races a room shutdown; callers
// resolve the room again through the registry.
var ErrRoomClosed = errors.New("chat: room closed")

type event interface{}

type joinEvent struct{ s *Session }

type leaveEvent struct{ s *Session }

type frameEvent struct {
	s    *Session
	data []byte
}

type unreadEvent struct {
	userID string
	reply  chan unreadReply
}

type unreadReply struct {
	count int64
	err   error
}

type markReadEvent struct {
	userID string
	upToID int64
	reply  chan error
}

type idleEvent struct {
	maxIdle time.Duration
	reply   chan bool
}

// Room is the per-project chat coordinator. Connects, frames, disconnects
// and unread queries all arrive as events on a single channel drained by one
// goroutine, so session state is never mutated by two operations at once and
// broadcast order always equals append order.
type Room struct {
	ProjectID string

	store  Store
	events chan event

	done     chan struct{}
	stopOnce sync.Once

	// owned by the run loop
	sessions   map[string]*Session
	lastActive time.Time
}

// NewRoom creates the coordinator for one project and starts its event loop.
// Use a Registry to guarantee one live room per project.
func NewRoom(projectID string, store Store) *Room {
	r := &Room{
		ProjectID:  projectID,
		store:      store,
		events:     make(chan event, 64),
		done:       make(chan struct{}),
		sessions:   make(map[string]*Session),
		lastActive: time.Now(),
	}
	go r.run()
	return r
}

// Join registers the session, restores its user's cursor context and
// hydrates it with recent history
func (r *Room) Join(s *Session) error {
	return r.post(joinEvent{s: s})
}

// Leave prunes a disconnected session; safe to call more than once
func (r *Room) Leave(s *Session) {
	_ = r.post(leaveEvent{s: s})
}

// Inbound hands a raw frame from a session's read pump to the event loop
func (r *Room) Inbound(s *Session, data []byte) {
	_ = r.post(frameEvent{s: s, data: data})
}

// Unread answers the unread count for a user, connected or not
func (r *Room) Unread(ctx context.Context, userID string) (int64, error) {
	reply := make(chan unreadReply, 1)
	if err := r.post(unreadEvent{userID: userID, reply: reply}); err != nil {
		return 0, err
	}
	select {
	case res := <-reply:
		return res.count, res.err
	case <-r.done:
		return 0, ErrRoomClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// MarkRead advances the user's cursor up to upToID; stale values are no-ops
func (r *Room) MarkRead(ctx context.Context, userID string, upToID int64) error {
	reply := make(chan error, 1)
	if err := r.post(markReadEvent{userID: userID, upToID: upToID, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShutdownIfIdle stops the room when it has no sessions and has been quiet
// for at least maxIdle. Returns true when the room is (now) stopped.
func (r *Room) ShutdownIfIdle(maxIdle time.Duration) bool {
	reply := make(chan bool, 1)
	if err := r.post(idleEvent{maxIdle: maxIdle, reply: reply}); err != nil {
		return true
	}
	select {
	case idle := <-reply:
		return idle
	case <-r.done:
		return true
	}
}

// Stop shuts the room down, closing every live session
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

// Closed reports whether the room's loop has been told to stop
func (r *Room) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *Room) post(e event) error {
	select {
	case r.events <- e:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

func (r *Room) run() {
	for {
		select {
		case e := <-r.events:
			switch ev := e.(type) {
			case joinEvent:
				r.lastActive = time.Now()
				r.handleJoin(ev.s)
			case frameEvent:
				r.lastActive = time.Now()
				r.handleFrame(ev.s, ev.data)
			case leaveEvent:
				r.lastActive = time.Now()
				r.remove(ev.s)
			case unreadEvent:
				r.lastActive = time.Now()
				ctx, cancel := api.WithQueryTimeout(context.Background())
				count, err := r.store.UnreadCount(ctx, r.ProjectID, ev.userID)
				cancel()
				ev.reply <- unreadReply{count: count, err: err}
			case markReadEvent:
				r.lastActive = time.Now()
				ctx, cancel := api.WithQueryTimeout(context.Background())
				ev.reply <- r.acknowledge(ctx, ev.userID, ev.upToID)
				cancel()
			case idleEvent:
				idle := len(r.sessions) == 0 && time.Since(r.lastActive) >= ev.maxIdle
				if idle {
					r.Stop()
				}
				ev.reply <- idle
			}
		case <-r.done:
			for _, s := range r.sessions {
				s.Close()
			}
			r.sessions = make(map[string]*Session)
			return
		}
	}
}

// acknowledge clamps upToID to the latest stored message id, so an eager
// client can never mark messages read before they exist. Runs on the event
// loop, which serializes it against appends for this project.
func (r *Room) acknowledge(ctx context.Context, userID string, upToID int64) error {
	latest, err := r.store.LatestID(ctx, r.ProjectID)
	if err != nil {
		return err
	}
	if upToID > latest {
		upToID = latest
	}
	return r.store.AdvanceCursor(ctx, r.ProjectID, userID, upToID)
}

func (r *Room) handleJoin(s *Session) {
	ctx, cancel := api.WithQueryTimeout(context.Background())
	defer cancel()

	history, err := r.store.RecentWindow(ctx, r.ProjectID, historyLimit)
	if err != nil {
		zap.S().Errorw("failed to load chat history",
			"projectId", r.ProjectID,
			"error", err,
		)
		history = nil
	}
	if history == nil {
		history = []models.ChatMessage{}
	}

	frame, _ := json.Marshal(models.HistoryFrame{Type: "history", Messages: history})
	if !s.enqueue(frame) {
		s.Close()
		return
	}

	r.sessions[s.ConnectionID] = s
	zap.S().Debugw("chat session joined",
		"projectId", r.ProjectID,
		"connectionId", s.ConnectionID,
		"userId", s.UserID,
	)
}

func (r *Room) handleFrame(s *Session, data []byte) {
	var frame models.ChatFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		r.protocolError(s, "malformed frame")
		return
	}

	// reserved for future control frames
	if frame.Type != messageFrameType {
		return
	}

	if frame.Content == "" || len(frame.Content) > MaxContentBytes {
		r.protocolError(s, "invalid content")
		return
	}

	// the session's bound identity is authoritative, not the frame's
	draft := models.ChatMessage{
		ProjectID:    r.ProjectID,
		SenderUserID: s.UserID,
		SenderName:   s.SenderName,
		Content:      frame.Content,
	}

	ctx, cancel := api.WithQueryTimeout(context.Background())
	msg, err := r.store.Append(ctx, draft)
	cancel()
	if err != nil {
		zap.S().Errorw("failed to append chat message",
			"projectId", r.ProjectID,
			"userId", s.UserID,
			"error", err,
		)
		// surfaced to the sender only; the message was not broadcast and
		// the client is expected to retry
		errFrame, _ := json.Marshal(models.ErrorFrame{Type: "error", Error: "message not saved, please retry"})
		if !s.enqueue(errFrame) {
			r.remove(s)
		}
		return
	}

	ctx, cancel = api.WithQueryTimeout(context.Background())
	if err := r.store.AdvanceCursor(ctx, r.ProjectID, s.UserID, msg.ID); err != nil {
		zap.S().Warnw("failed to advance sender cursor",
			"projectId", r.ProjectID,
			"userId", s.UserID,
			"error", err,
		)
	}
	cancel()

	r.broadcast(msg)
}

func (r *Room) broadcast(msg models.ChatMessage) {
	frame, _ := json.Marshal(models.MessageFrame{Type: messageFrameType, Message: msg})
	for _, s := range r.sessions {
		if !s.enqueue(frame) {
			zap.S().Warnw("chat session cannot keep up, disconnecting",
				"projectId", r.ProjectID,
				"connectionId", s.ConnectionID,
			)
			r.remove(s)
		}
	}
}

func (r *Room) protocolError(s *Session, reason string) {
	zap.S().Warnw("chat protocol violation",
		"projectId", r.ProjectID,
		"connectionId", s.ConnectionID,
		"reason", reason,
	)
	errFrame, _ := json.Marshal(models.ErrorFrame{Type: "error", Error: reason})
	s.enqueue(errFrame)
	r.remove(s)
}

func (r *Room) remove(s *Session) {
	if _, ok := r.sessions[s.ConnectionID]; ok {
		delete(r.sessions, s.ConnectionID)
		zap.S().Debugw("chat session left",
			"projectId", r.ProjectID,
			"connectionId", s.ConnectionID,
		)
	}
	s.Close()
}
