package report

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

	"forensics/internal/intel/models"
)

// LogSink records each report's identity and hash.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(l *slog.Logger) *LogSink {
	return &LogSink{logger: l}
}

func (s *LogSink) Publish(ctx context.Context, r *models.Report) error {
	s.logger.InfoContext(ctx, "report published",
		"report_id", r.ID,
		"domain", r.Domain,
		"generated_at", r.GeneratedAt,
		"hash", r.Hash,
	)
	return nil
}

// DeliveryTimeout bounds how long a produced report may wait for broker
// acknowledgement, retries included.
const DeliveryTimeout = 10 * time.Second

// HashHeader carries the report hash on every produced record.
const HashHeader = "report-hash"

// KafkaSink produces each report as JSON to a topic, keyed by domain, so an
// external renderer can consume it.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to brokers and makes sure topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	client, err := kgo.NewClient(kafkaOpts(brokers, topic)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := EnsureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

func kafkaOpts(brokers []string, topic string) []kgo.Opt {
	return []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RecordDeliveryTimeout(DeliveryTimeout),
	}
}

// EnsureTopic creates topic with one partition and replication factor one
// unless it already exists.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

func (s *KafkaSink) Publish(ctx context.Context, r *models.Report) error {
	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	rec := &kgo.Record{
		Topic:   s.topic,
		Key:     []byte(r.Domain),
		Value:   value,
		Headers: []kgo.RecordHeader{{Key: HashHeader, Value: []byte(r.Hash)}},
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce report: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
