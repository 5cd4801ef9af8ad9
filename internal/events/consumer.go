package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/config"
	"github.com/investigate/case-graph/internal/domain"
)

// CallImporter stores raw call records
type CallImporter interface {
	ImportRecords(ctx context.Context, caseID int64, evidenceID *uuid.UUID, records []domain.CallRecord) (int, error)
}

// CryptoImporter stores crypto transactions and rebuilds wallets
type CryptoImporter interface {
	ImportTransactions(ctx context.Context, caseID int64, evidenceID *uuid.UUID, txs []domain.CryptoTransaction) (int, error)
}

// LocationImporter stores location points
type LocationImporter interface {
	ImportPoints(ctx context.Context, caseID int64, evidenceID *uuid.UUID, points []domain.LocationPoint) (int, error)
}

// EvidenceChecker confirms an evidence id belongs to the case before records reference it
type EvidenceChecker interface {
	Attachable(ctx context.Context, caseID int64, id *uuid.UUID) error
}

// Dispatcher routes ingestion messages to the importer registered for their topic.
//
// Every message is a JSON envelope {"case_id": 1, "evidence_id": "...", "records": [...]}
// where records are shaped like the matching HTTP import body.
type Dispatcher struct {
	topics    config.KafkaConfig
	calls     CallImporter
	crypto    CryptoImporter
	locations LocationImporter
	evidence  EvidenceChecker
}

// NewDispatcher creates a dispatcher. Importers may be nil; their topics are then rejected.
func NewDispatcher(topics config.KafkaConfig, calls CallImporter, crypto CryptoImporter, locations LocationImporter, evidence EvidenceChecker) *Dispatcher {
	return &Dispatcher{
		topics:    topics,
		calls:     calls,
		crypto:    crypto,
		locations: locations,
		evidence:  evidence,
	}
}

// Dispatch decodes one message and imports its records, returning how many were stored
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, value []byte) (int, error) {
	if !gjson.ValidBytes(value) {
		return 0, domain.ValidationError("message is not valid JSON")
	}
	env := gjson.ParseBytes(value)

	caseID := env.Get("case_id").Int()
	if caseID <= 0 {
		return 0, domain.ValidationError("message case_id is required")
	}

	var evidenceID *uuid.UUID
	if raw := env.Get("evidence_id").String(); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return 0, domain.ValidationError("message evidence_id %q is not a uuid", raw)
		}
		evidenceID = &id
	}
	if evidenceID != nil && d.evidence != nil {
		if err := d.evidence.Attachable(ctx, caseID, evidenceID); err != nil {
			return 0, err
		}
	}

	records := env.Get("records")
	if !records.IsArray() {
		return 0, domain.ValidationError("message records must be an array")
	}

	switch topic {
	case d.topics.CallTopic:
		if d.calls == nil {
			break
		}
		var calls []domain.CallRecord
		if err := json.Unmarshal([]byte(records.Raw), &calls); err != nil {
			return 0, domain.ValidationError("call records: %v", err)
		}
		return d.calls.ImportRecords(ctx, caseID, evidenceID, calls)
	case d.topics.CryptoTopic:
		if d.crypto == nil {
			break
		}
		var txs []domain.CryptoTransaction
		if err := json.Unmarshal([]byte(records.Raw), &txs); err != nil {
			return 0, domain.ValidationError("crypto transactions: %v", err)
		}
		return d.crypto.ImportTransactions(ctx, caseID, evidenceID, txs)
	case d.topics.LocationTopic:
		if d.locations == nil {
			break
		}
		var points []domain.LocationPoint
		if err := json.Unmarshal([]byte(records.Raw), &points); err != nil {
			return 0, domain.ValidationError("location points: %v", err)
		}
		return d.locations.ImportPoints(ctx, caseID, evidenceID, points)
	}
	return 0, domain.ValidationError("no importer for topic %q", topic)
}

// Retrying cannot fix a bad message or a missing case
func permanent(err error) bool {
	return errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound)
}

// IngestConsumer feeds bulk imports from Kafka into the services
type IngestConsumer struct {
	consumerGroup sarama.ConsumerGroup
	dispatcher    *Dispatcher
	topics        []string
	maxRetries    int
	logger        *zap.Logger
}

func NewIngestConsumer(cfg config.KafkaConfig, dispatcher *Dispatcher, logger *zap.Logger) (*IngestConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_8_0_0

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &IngestConsumer{
		consumerGroup: consumerGroup,
		dispatcher:    dispatcher,
		topics:        cfg.Topics(),
		maxRetries:    maxRetries,
		logger:        logger,
	}, nil
}

// Start consumes until ctx is cancelled
func (c *IngestConsumer) Start(ctx context.Context) error {
	handler := &ingestHandler{
		dispatcher: c.dispatcher,
		maxRetries: c.maxRetries,
		logger:     c.logger,
		backoff:    time.Second,
	}

	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("Error from consumer", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *IngestConsumer) Close() error {
	return c.consumerGroup.Close()
}

type ingestHandler struct {
	dispatcher *Dispatcher
	maxRetries int
	logger     *zap.Logger
	backoff    time.Duration
}

func (h *ingestHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *ingestHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }
func (h *ingestHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			// An interrupted message keeps its offset so the next owner of the partition redelivers it.
			if !h.process(ctx, message) {
				return nil
			}
			session.MarkMessage(message, "")
		case <-ctx.Done():
			return nil
		}
	}
}

// process imports one message, retrying transient failures with linear backoff.
// Messages that still fail are logged and skipped so the partition keeps moving.
// It returns false when ctx ended before the message was settled.
func (h *ingestHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	log := h.logger.With(
		zap.String("topic", msg.Topic),
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	for attempt := 1; attempt <= h.maxRetries; attempt++ {
		n, err := h.dispatcher.Dispatch(ctx, msg.Topic, msg.Value)
		if err == nil {
			log.Info("Ingested records", zap.Int("count", n))
			return true
		}
		if ctx.Err() != nil {
			log.Warn("Ingestion interrupted", zap.Error(err))
			return false
		}
		if permanent(err) {
			log.Warn("Dropping unprocessable message", zap.Error(err))
			return true
		}

		log.Error("Failed to ingest message", zap.Error(err), zap.Int("attempt", attempt))
		if attempt == h.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * h.backoff):
		}
	}
	log.Error("Dropping message after retries")
	return true
}
