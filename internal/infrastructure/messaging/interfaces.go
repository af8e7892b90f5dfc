package messaging

// Broadcaster is the contract the application layer uses to publish auth
// events without depending on the concrete fan-out implementation.
type Broadcaster interface {
	Broadcast(userID string, event AuthEvent)
	Subscribe(userID string) (string, chan AuthEvent)
	Unsubscribe(userID, subscriberID string)
	SubscriberCount(userID string) int
	Close()
}
