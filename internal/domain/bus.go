package domain

import (
	"context"
)

// EventBus carries submission, assessment and alert events.
// Backed by Go channels in a single process or NATS across processes.
// All methods require tenantID for tenant isolation.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic. AllTenants receives the
	// topic for every tenant.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	Ping(ctx context.Context) error
	Close() error
}

// AllTenants subscribes to a topic across tenants.
const AllTenants = "*"

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is an event on the bus.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription is an active subscription.
type Subscription interface {
	Unsubscribe() error
	Topic() string
}

// EventBusConfig configures the event bus.
type EventBusConfig struct {
	// Type is "channel" or "nats".
	Type string `yaml:"type" validate:"oneof=channel nats"`

	ChannelBufferSize int `yaml:"channelBufferSize"`

	NATSUrl           string `yaml:"natsUrl"`
	NATSToken         string `yaml:"natsToken"`
	NATSMaxReconnects int    `yaml:"natsMaxReconnects"`
	NATSReconnectWait int    `yaml:"natsReconnectWait"` // seconds
}

// Topics.
const (
	TopicClaimSubmitted       = "harrier.claim.submitted"
	TopicApplicationSubmitted = "harrier.application.submitted"
	TopicFraudAssessed        = "harrier.fraud.assessed"
	TopicUnderwritingAssessed = "harrier.underwriting.assessed"
	TopicDocumentExtracted    = "harrier.document.extracted"
	TopicAlert                = "harrier.alert"
)

// Alert is the payload published on TopicAlert.
type Alert struct {
	AssessmentID string `json:"assessmentId"`
	Kind         string `json:"kind"`
	Subject      string `json:"subject"`
	Tier         string `json:"tier"`
	Score        int    `json:"score"`
	Summary      string `json:"summary"`
}
