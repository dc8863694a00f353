package domain

import (
	"context"
	"time"
)

// EventBus defines the interface for event-driven integration with the
// host platform. Supports Go channels (Community) or NATS (Pro). Kea only
// publishes; consumption happens outside the service.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, storeID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, storeID string, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	StoreID   string            `json:"storeId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Topics published for host-platform consumers.
const (
	TopicTaxIDChecked    = "kea.taxid.checked"
	TopicOrderClassified = "kea.order.classified"
)

// TaxIDCheckedEvent is published after every tax-id check.
type TaxIDCheckedEvent struct {
	StoreID     string            `json:"storeId"`
	CountryCode string            `json:"countryCode"`
	TaxID       string            `json:"taxId"`
	Result      *TaxIdCheckResult `json:"result"`
	CheckedAt   time.Time         `json:"checkedAt"`
}

// OrderClassifiedEvent is published after every classification.
type OrderClassifiedEvent struct {
	StoreID         string    `json:"storeId"`
	CustomerCountry string    `json:"customerCountry"`
	OrderValue      float64   `json:"orderValue"`
	Outcome         Outcome   `json:"outcome"`
	ClassifiedAt    time.Time `json:"classifiedAt"`
}
