package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sherise/internal/middleware"
	"sherise/internal/models"
	"sherise/internal/notifications"
	"sherise/internal/store"
)

// Canned lines of the messages simulator.
const (
	OpeningLine = "Hi! Thanks for reaching out ✨"
	AutoReply   = "Thanks! I will get back to you shortly."
)

// DefaultReplyDelay is the wait before the simulated reply.
const DefaultReplyDelay = 600 * time.Millisecond

// MessageService simulates direct messages: every sent line gets a canned reply after a delay.
type MessageService struct {
	store *store.Store
	bus   *notifications.Bus
	delay time.Duration
	now   func() time.Time

	mu      sync.Mutex
	pending map[*time.Timer]struct{}
	closed  bool
}

func NewMessageService(s *store.Store, bus *notifications.Bus, delay time.Duration) *MessageService {
	if delay < 0 {
		delay = DefaultReplyDelay
	}
	return &MessageService{
		store:   s,
		bus:     bus,
		delay:   delay,
		now:     time.Now,
		pending: make(map[*time.Timer]struct{}),
	}
}

func (s *MessageService) line(role, text string) models.DirectMessage {
	return models.DirectMessage{Role: role, Text: text, TS: s.now().UnixMilli()}
}

// Thread returns the conversation between userID and peer. A thread never written
// to shows just the opening line.
func (s *MessageService) Thread(ctx context.Context, userID uint, peer models.RecordID) []models.DirectMessage {
	convos := store.Read(ctx, s.store, store.UserScope(userID), models.SliceConversations, models.Conversations{})
	if thread := convos[peer.String()]; len(thread) > 0 {
		return thread
	}
	return []models.DirectMessage{s.line(models.MessageRoleThem, OpeningLine)}
}

// Send appends text to the thread and schedules the canned reply.
func (s *MessageService) Send(ctx context.Context, userID uint, peer models.RecordID, text string) ([]models.DirectMessage, error) {
	if peer == "" {
		return nil, models.NewValidationError("Recipient is required")
	}
	if blank(text) {
		return nil, models.NewValidationError("Message is required")
	}

	thread, err := s.appendLine(ctx, userID, peer, s.line(models.MessageRoleMe, text))
	if err != nil {
		return nil, err
	}
	s.scheduleReply(context.WithoutCancel(ctx), userID, peer)
	return thread, nil
}

func (s *MessageService) appendLine(ctx context.Context, userID uint, peer models.RecordID, msg models.DirectMessage) ([]models.DirectMessage, error) {
	var thread []models.DirectMessage
	_, err := store.Update(ctx, s.store, store.UserScope(userID), models.SliceConversations, models.Conversations{},
		func(convos models.Conversations) (models.Conversations, error) {
			if convos == nil {
				convos = models.Conversations{}
			}
			thread = convos[peer.String()]
			if len(thread) == 0 {
				thread = []models.DirectMessage{s.line(models.MessageRoleThem, OpeningLine)}
			}
			thread = append(thread, msg)
			convos[peer.String()] = thread
			return convos, nil
		})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, notifications.UserEvent(notifications.EventConversationUpdated, userID,
		map[string]any{"peer": peer}))
	return thread, nil
}

func (s *MessageService) scheduleReply(ctx context.Context, userID uint, peer models.RecordID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.pending, timer)
		s.mu.Unlock()

		if _, err := s.appendLine(ctx, userID, peer, s.line(models.MessageRoleThem, AutoReply)); err != nil {
			middleware.Logger.WarnContext(ctx, "Simulated reply dropped",
				slog.String("peer", peer.String()),
				slog.String("error", err.Error()),
			)
		}
	})
	s.pending[timer] = struct{}{}
}

// Pending reports how many replies are still scheduled.
func (s *MessageService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close stops every scheduled reply. Later sends store the message but schedule nothing.
func (s *MessageService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for t := range s.pending {
		t.Stop()
	}
	clear(s.pending)
}
