// Package kafka forwards domain events to a Kafka topic. The service never
// reads them back; the topic exists for external subscribers (indexers,
// notification pipelines, audit archival).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"landledger/internal/events"
)

// DefaultTopic is used when the config does not override it.
const DefaultTopic = "landledger.events"

// payload is the JSON structure produced to Kafka. Field names are part of
// the external contract; renaming them breaks subscribers.
type payload struct {
	Action        string `json:"action"`
	Timestamp     string `json:"timestamp"`
	Actor         string `json:"actor,omitempty"`
	LandID        string `json:"land_id,omitempty"`
	Role          string `json:"role,omitempty"`
	Grantee       string `json:"grantee,omitempty"`
	RequestID     uint64 `json:"request_id,omitempty"`
	DocumentHash  string `json:"document_hash,omitempty"`
	ProofHash     string `json:"proof_hash,omitempty"`
	CertificateID uint64 `json:"certificate_id,omitempty"`
	TransferID    uint64 `json:"transfer_id,omitempty"`
	Counterparty  string `json:"counterparty,omitempty"`
	Amount        uint64 `json:"amount,omitempty"`
	Reason        string `json:"reason,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Producer is the subset of kgo.Client the sink needs. Narrowed for tests.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Sink implements events.Store by producing each event to a Kafka topic.
type Sink struct {
	producer Producer
	topic    string
}

// New dials Kafka, ensures the topic exists, and returns a ready sink.
func New(ctx context.Context, brokers []string, topic string) (*Sink, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("dial kafka: %w", err)
	}

	admin := kadm.NewClient(client)
	// CreateTopic returns an error response for an existing topic; that is
	// fine, the sink only needs the topic to exist.
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		if _, exists := checkTopicExists(ctx, admin, topic); !exists {
			client.Close()
			return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
		}
	}

	return &Sink{producer: client, topic: topic}, nil
}

// NewWithProducer wires an existing producer. Used by tests.
func NewWithProducer(producer Producer, topic string) *Sink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Sink{producer: producer, topic: topic}
}

func checkTopicExists(ctx context.Context, admin *kadm.Client, topic string) (kadm.TopicDetails, bool) {
	details, err := admin.ListTopics(ctx, topic)
	if err != nil {
		return nil, false
	}
	return details, details.Has(topic)
}

// Append produces the event synchronously. Events are keyed by land id so a
// parcel's history stays in one partition, ordered.
func (s *Sink) Append(ctx context.Context, event events.Event) error {
	p := payload{
		Action:        string(event.Action),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		Actor:         event.Actor.String(),
		LandID:        event.LandID.String(),
		Role:          string(event.Role),
		Grantee:       event.Grantee.String(),
		RequestID:     uint64(event.RequestID),
		DocumentHash:  string(event.DocumentHash),
		ProofHash:     string(event.ProofHash),
		CertificateID: uint64(event.CertificateID),
		TransferID:    uint64(event.TransferID),
		Counterparty:  event.Counterparty.String(),
		Amount:        event.Amount,
		Reason:        event.Reason,
		CorrelationID: event.CorrelationID,
	}
	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.LandID),
		Value: value,
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event: %w", err)
	}
	return nil
}

// Close releases the underlying client when the sink owns it.
func (s *Sink) Close() {
	if client, ok := s.producer.(*kgo.Client); ok {
		client.Close()
	}
}
