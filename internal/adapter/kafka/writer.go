// Package kafka publishes geocoded chapter records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/chapter-geocoder/internal/config"
	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every published message.
const (
	HeaderGeocodeNote = "geocode_note"
	HeaderNoteKind    = "note_kind"
)

// Writer produces output records to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes records in a single WriteMessages call.
// Records are keyed by row id so consumers can compact to the latest run.
func (w *Writer) Publish(ctx context.Context, records []domain.OutputRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d records to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Info("records published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an OutputRecord into a Kafka message.
func serializeToMessage(rec domain.OutputRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %d: %w", rec.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(rec.ID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderGeocodeNote, Value: []byte(rec.GeocodeNote)},
			{Key: HeaderNoteKind, Value: []byte(rec.GeocodeNote.Kind())},
		},
	}, nil
}
