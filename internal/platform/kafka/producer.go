// Package kafka ships audit events to a Kafka-compatible broker.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	id "aegis/pkg/domain"
	audit "aegis/pkg/platform/audit"
	"aegis/pkg/platform/sentinel"
)

// Record is the JSON value written for each audit event.
type Record struct {
	Category   audit.EventCategory `json:"category"`
	Timestamp  time.Time           `json:"timestamp"`
	Action     string              `json:"action"`
	Actor      id.Identity         `json:"actor"`
	InstanceID string              `json:"instance_id,omitempty"`
	Subject    string              `json:"subject,omitempty"`
	Amount     int64               `json:"amount,omitempty"`
	Decision   string              `json:"decision,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	RequestID  string              `json:"request_id,omitempty"`
}

func NewRecord(e audit.Event) Record {
	r := Record{
		Category:  e.Category,
		Timestamp: e.Timestamp.UTC(),
		Action:    e.Action,
		Actor:     e.Actor,
		Subject:   e.Subject,
		Amount:    e.Amount,
		Decision:  e.Decision,
		Reason:    e.Reason,
		RequestID: e.RequestID,
	}
	if !e.InstanceID.IsNil() {
		r.InstanceID = e.InstanceID.String()
	}
	return r
}

// Key partitions records by instance so one instance's history stays ordered.
// Treasury-wide events share the "treasury" key.
func (r Record) Key() []byte {
	if r.InstanceID != "" {
		return []byte(r.InstanceID)
	}
	return []byte("treasury")
}

// Producer implements audit.Store on top of a franz-go client.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to brokers and ensures topic exists.
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	if err := ensureTopic(ctx, kadm.NewClient(client), topic); err != nil {
		client.Close()
		return nil, err
	}
	return &Producer{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, admin *kadm.Client, topic string) error {
	resps, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

// Append produces one record and waits for the broker acknowledgement.
func (p *Producer) Append(ctx context.Context, event audit.Event) error {
	record := NewRecord(event)
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	res := p.client.ProduceSync(ctx, &kgo.Record{
		Topic: p.topic,
		Key:   record.Key(),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(record.Action)},
		},
	})
	if err := res.FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Health pings the seed brokers.
func (p *Producer) Health(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka ping: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (p *Producer) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
