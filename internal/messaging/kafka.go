package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/config"
	"github.com/drivekenya/recsys/pkg/models"
)

const (
	FeedbackDLQSuffix = "-dlq"
	ConsumerGroup     = "feedback-processors"
)

// FeedbackEvent is the message published for every piece of recommendation
// feedback; downstream consumers feed it back into personalization signal.
type FeedbackEvent struct {
	Feedback   models.Feedback `json:"feedback"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retry_count"`
}

type MessageBus struct {
	writer    *kafka.Writer
	reader    *kafka.Reader
	dlqWriter *kafka.Writer
	logger    *logrus.Logger

	retryBaseDelay time.Duration
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("no Kafka brokers configured")
	}

	topic := cfg.Kafka.Topics.Feedback

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Key by user for per-user ordering
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          topic,
		GroupID:        ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic + FeedbackDLQSuffix,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &MessageBus{
		writer:         writer,
		reader:         reader,
		dlqWriter:      dlqWriter,
		logger:         logger,
		retryBaseDelay: time.Second,
	}, nil
}

// PublishFeedback emits a feedback event keyed by user.
func (mb *MessageBus) PublishFeedback(ctx context.Context, feedback *models.Feedback) error {
	event := FeedbackEvent{
		Feedback:  *feedback,
		Timestamp: time.Now(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(feedback.UserID.String()),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "user_id", Value: []byte(feedback.UserID.String())},
			{Key: "vehicle_id", Value: []byte(feedback.VehicleID.String())},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mb.writer.WriteMessages(writeCtx, message); err != nil {
		mb.logger.WithError(err).WithField("user_id", feedback.UserID).
			Error("Failed to publish feedback event")
		return fmt.Errorf("failed to write feedback event: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"user_id":    feedback.UserID,
		"vehicle_id": feedback.VehicleID,
	}).Debug("Feedback event published")

	return nil
}

// ConsumeFeedback runs until the context is cancelled, handing each event to
// the handler with retries; exhausted events go to the DLQ.
func (mb *MessageBus) ConsumeFeedback(ctx context.Context, handler func(FeedbackEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := mb.reader.ReadMessage(ctx)
			if err != nil {
				mb.logger.WithError(err).Error("Failed to read feedback event")
				continue
			}

			var event FeedbackEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				mb.logger.WithError(err).Error("Failed to unmarshal feedback event")
				continue
			}

			if err := mb.processWithRetry(ctx, event, handler); err != nil {
				mb.logger.WithError(err).WithField("user_id", event.Feedback.UserID).
					Error("Failed to process feedback event after retries")
				if dlqErr := mb.sendToDLQ(ctx, event, err); dlqErr != nil {
					mb.logger.WithError(dlqErr).Error("Failed to send feedback event to DLQ")
				}
			}
		}
	}
}

func (mb *MessageBus) processWithRetry(ctx context.Context, event FeedbackEvent, handler func(FeedbackEvent) error) error {
	maxRetries := 3

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := mb.retryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		event.RetryCount = attempt
		if err := handler(event); err != nil {
			mb.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": event.Feedback.UserID,
				"attempt": attempt,
			}).Warn("Feedback event processing failed")

			if attempt == maxRetries {
				return fmt.Errorf("max retries exceeded: %w", err)
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("unexpected retry loop exit")
}

func (mb *MessageBus) sendToDLQ(ctx context.Context, event FeedbackEvent, originalError error) error {
	dlqPayload := map[string]interface{}{
		"original_event": event,
		"error":          originalError.Error(),
		"dlq_timestamp":  time.Now(),
	}

	dlqBytes, err := json.Marshal(dlqPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ payload: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.Feedback.UserID.String()),
		Value: dlqBytes,
		Headers: []kafka.Header{
			{Key: "user_id", Value: []byte(event.Feedback.UserID.String())},
			{Key: "error", Value: []byte(originalError.Error())},
		},
	}

	if err := mb.dlqWriter.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write DLQ message: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"user_id": event.Feedback.UserID,
		"error":   originalError.Error(),
	}).Warn("Feedback event sent to DLQ")

	return nil
}

func (mb *MessageBus) Close() error {
	var errors []error

	if err := mb.writer.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close producer: %w", err))
	}
	if err := mb.reader.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close consumer: %w", err))
	}
	if err := mb.dlqWriter.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errors)
	}
	return nil
}
