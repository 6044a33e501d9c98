package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"onboarding-gateway/internal/workflow/models"
)

// Kafka publishes to two topics: the committed event stream and the
// escalation alert channel. Records are keyed by workflow id so one
// workflow's events stay ordered within a partition.
type Kafka struct {
	client     *kgo.Client
	eventTopic string
	alertTopic string
	logger     *slog.Logger
}

// NewKafka connects to the brokers and ensures both topics exist.
func NewKafka(ctx context.Context, brokers []string, eventTopic, alertTopic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	if err := ensureTopics(ctx, client, eventTopic, alertTopic); err != nil {
		client.Close()
		return nil, err
	}
	return &Kafka{client: client, eventTopic: eventTopic, alertTopic: alertTopic, logger: logger}, nil
}

var _ Notifier = (*Kafka)(nil)

func ensureTopics(ctx context.Context, client *kgo.Client, topics ...string) error {
	adm := kadm.NewClient(client)
	responses, err := adm.CreateTopics(ctx, 3, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, response := range responses.Sorted() {
		if response.Err != nil && !errors.Is(response.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", response.Topic, response.Err)
		}
	}
	return nil
}

type eventRecord struct {
	EventID     string          `json:"event_id"`
	WorkflowID  string          `json:"workflow_id"`
	ApplicantID string          `json:"applicant_id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
	Seq         int64           `json:"seq"`
	Status      string          `json:"status"`
	Stage       string          `json:"stage"`
}

func (k *Kafka) PublishEvent(ctx context.Context, event *models.WorkflowEvent) error {
	payload, err := models.MarshalPayload(event.Payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(eventRecord{
		EventID:     event.ID.String(),
		WorkflowID:  event.WorkflowID.String(),
		ApplicantID: event.ApplicantID.String(),
		Type:        string(event.Type),
		Payload:     payload,
		Timestamp:   event.Timestamp,
		Seq:         event.Seq,
		Status:      string(event.AppliedStatus),
		Stage:       event.AppliedStage.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}
	record := &kgo.Record{
		Topic: k.eventTopic,
		Key:   []byte(event.WorkflowID.String()),
		Value: value,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event: %w", err)
	}
	return nil
}

func (k *Kafka) PublishEscalation(ctx context.Context, escalation Escalation) error {
	value, err := json.Marshal(escalation)
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}
	record := &kgo.Record{
		Topic: k.alertTopic,
		Key:   []byte(escalation.WorkflowID.String()),
		Value: value,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce escalation: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (k *Kafka) Close(ctx context.Context) error {
	if err := k.client.Flush(ctx); err != nil {
		k.logger.ErrorContext(ctx, "failed to flush kafka producer", "error", err)
	}
	k.client.Close()
	return nil
}
