package publisher

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	config "github.com/thirdweb-dev/eth-ingest/configs"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
)

type MessageType string

const MessageTypeIngestionCompleted MessageType = "ingestion_completed"

// IngestionCompleted announces that a block range landed in the warehouse.
type IngestionCompleted struct {
	ChainID      uint64           `json:"chain_id"`
	Range        types.BlockRange `json:"range"`
	Table        string           `json:"table"`
	JobID        string           `json:"job_id"`
	RowsLoaded   int64            `json:"rows_loaded"`
	Transactions int              `json:"transactions"`
	Blocks       int              `json:"blocks"`
	ArchiveKeys  []string         `json:"archive_keys,omitempty"`
}

type PublishableMessagePayload struct {
	Data      IngestionCompleted `json:"data"`
	Type      MessageType        `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
}

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type Publisher struct {
	client producer
	topic  string
	mu     sync.Mutex
}

func New(cfg *config.KafkaConfig, chainID uint64) (*Publisher, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	brokers := strings.Split(cfg.Brokers, ",")

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerBatchCompression(kgo.ZstdCompression()),
		kgo.ClientID(fmt.Sprintf("eth-ingest-%d", chainID)),
		kgo.ProduceRequestTimeout(30 * time.Second),
		kgo.DialTimeout(10 * time.Second),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RequestRetries(5),
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsMechanism()))
	}

	if cfg.EnableTLS {
		tlsDialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: 10 * time.Second}}
		opts = append(opts, kgo.Dialer(tlsDialer.DialContext))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Kafka: %w", err)
	}

	return newPublisher(client, cfg.Topic, chainID), nil
}

func newPublisher(client producer, topic string, chainID uint64) *Publisher {
	if topic == "" {
		topic = fmt.Sprintf("eth-ingest.loads.%d", chainID)
	}
	return &Publisher{client: client, topic: topic}
}

// PublishIngestionCompleted blocks until the broker acknowledges the event.
func (p *Publisher) PublishIngestionCompleted(ctx context.Context, event IngestionCompleted) error {
	record, err := p.createRecord(event, time.Now().UTC())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return fmt.Errorf("no kafka client configured")
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", MessageTypeIngestionCompleted, err)
	}

	log.Debug().Str("topic", p.topic).Str("key", string(record.Key)).Msg("Published ingestion event")
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		p.client.Close()
		p.client = nil
		log.Debug().Msg("Publisher client closed")
	}
	return nil
}

func (p *Publisher) createRecord(event IngestionCompleted, timestamp time.Time) (*kgo.Record, error) {
	msg := PublishableMessagePayload{
		Data:      event,
		Type:      MessageTypeIngestionCompleted,
		Timestamp: timestamp,
	}

	msgJson, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingestion event: %w", err)
	}

	headers := []kgo.RecordHeader{
		{Key: "chain_id", Value: []byte(strconv.FormatUint(event.ChainID, 10))},
		{Key: "start_block", Value: []byte(strconv.FormatUint(event.Range.Start, 10))},
		{Key: "end_block", Value: []byte(strconv.FormatUint(event.Range.End, 10))},
		{Key: "type", Value: []byte(MessageTypeIngestionCompleted)},
		{Key: "timestamp", Value: []byte(timestamp.Format(time.RFC3339Nano))},
		{Key: "schema_version", Value: []byte("1")},
	}

	return &kgo.Record{
		Topic:   p.topic,
		Key:     []byte(fmt.Sprintf("%d:%s", event.ChainID, event.Range)),
		Value:   msgJson,
		Headers: headers,
	}, nil
}
