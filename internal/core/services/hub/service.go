package hub

import "gitlab.com/judge-relay.net/internal/domain"

// Subscriber is one live client connection.
type Subscriber interface {
	ID() string
	// Deliver must not block; it returns false when the event was dropped.
	Deliver(ev domain.ResultEvent) bool
}

// IHub tracks which subscribers watch which job and fans result events out
// to them. Events are never retained: a subscriber joining after a publish
// does not see it.
type IHub interface {
	Subscribe(sub Subscriber, jobID string) error
	Unsubscribe(subscriberID, jobID string)
	// Remove drops every subscription of a disconnected subscriber.
	Remove(subscriberID string)
	Publish(ev domain.ResultEvent) int
	SubscriberCount(jobID string) int
	Close()
}
