// Package messaging provides the concrete implementation of the auth event
// broadcaster that keeps every connected client of a user in sync.
package messaging

import (
	"sync"

	"github.com/google/uuid"

	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/pkg/config"
)

// AuthEvent is one of the closed set of messages carried on the auth channel.
// Anything else is rejected at the Broadcast boundary.
type AuthEvent string

const (
	EventLoginUser  AuthEvent = "LOGIN_USER"
	EventLogoutUser AuthEvent = "LOGOUT_USER"
)

// IsValid reports whether e belongs to the closed message set.
func (e AuthEvent) IsValid() bool {
	return e == EventLoginUser || e == EventLogoutUser
}

// AuthBroadcaster fans auth events out to every subscriber registered for a
// user. Each browser tab or device holds one subscription; delivery is
// best-effort and never blocks the publisher.
type AuthBroadcaster struct {
	subscribers map[string]map[string]chan AuthEvent // userId -> subscriberId -> channel
	closed      bool
	mu          sync.Mutex
	logger      *logging.ChanneledLogger
}

var (
	globalBroadcaster *AuthBroadcaster
	once              sync.Once
)

// NewAuthBroadcaster creates the singleton AuthBroadcaster instance.
func NewAuthBroadcaster(logger *logging.ChanneledLogger) *AuthBroadcaster {
	once.Do(func() {
		globalBroadcaster = &AuthBroadcaster{
			subscribers: make(map[string]map[string]chan AuthEvent),
			logger:      logger,
		}
	})
	return globalBroadcaster
}

// Subscribe registers a new listener for a user's auth events and returns its
// subscriber ID together with the delivery channel.
func (b *AuthBroadcaster) Subscribe(userID string) (string, chan AuthEvent) {
	ch := make(chan AuthEvent, config.BroadcastBufferSize)
	subscriberID := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return subscriberID, ch
	}

	if b.subscribers[userID] == nil {
		b.subscribers[userID] = make(map[string]chan AuthEvent)
	}
	b.subscribers[userID][subscriberID] = ch

	b.logger.Broadcast().Debug("Auth subscriber registered", "userId", userID, "subscriberId", subscriberID, "count", len(b.subscribers[userID]))
	return subscriberID, ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *AuthBroadcaster) Unsubscribe(userID, subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if userSubs, exists := b.subscribers[userID]; exists {
		if ch, exists := userSubs[subscriberID]; exists {
			close(ch)
			delete(userSubs, subscriberID)
		}
		if len(userSubs) == 0 {
			delete(b.subscribers, userID)
		}
	}
	b.logger.Broadcast().Debug("Auth subscriber unregistered", "userId", userID, "subscriberId", subscriberID)
}

// Broadcast delivers an event to every subscriber of a user. Slow subscribers
// lose the message rather than blocking the rest.
func (b *AuthBroadcaster) Broadcast(userID string, event AuthEvent) {
	if !event.IsValid() {
		b.logger.Broadcast().Error("Rejected unknown auth event", "userId", userID, "event", event)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	userSubs, exists := b.subscribers[userID]
	if !exists {
		b.logger.Broadcast().Debug("Auth broadcast with no subscribers", "userId", userID, "event", event)
		return
	}

	for subscriberID, ch := range userSubs {
		select {
		case ch <- event:
		default:
			b.logger.Broadcast().Warn("Auth channel full, event dropped", "userId", userID, "subscriberId", subscriberID, "event", event)
		}
	}
	b.logger.Broadcast().Debug("Auth event broadcast", "userId", userID, "event", event, "subscribers", len(userSubs))
}

// SubscriberCount returns the number of listeners registered for a user.
func (b *AuthBroadcaster) SubscriberCount(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[userID])
}

// Close tears the channel down. Every subscriber channel is closed and later
// Broadcast and Subscribe calls become no-ops.
func (b *AuthBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for userID, userSubs := range b.subscribers {
		for _, ch := range userSubs {
			close(ch)
		}
		delete(b.subscribers, userID)
	}
	b.logger.Broadcast().Info("Auth broadcaster closed")
}
