package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox row describes.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateSubscriber OutboxAggregateType = "newsletter_subscriber"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateSubscriber,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names the domain event stored in the outbox.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order_created"
	EventNewsletterSubscribed   OutboxEventType = "newsletter_subscribed"
	EventNewsletterUnsubscribed OutboxEventType = "newsletter_unsubscribed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventNewsletterSubscribed,
	EventNewsletterUnsubscribed,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
