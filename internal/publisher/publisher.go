// Package publisher forwards normalized records to a NATS message bus.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/telhawk-systems/lognorm/internal/logging"
	"github.com/telhawk-systems/lognorm/internal/model"
)

// Subject constants follow the pattern {domain}.{resource}.{qualifier}.
const (
	SubjectRecords = "lognorm.records" // append .{eventType}

	HeaderBatchID  = "Lognorm-Batch-Id"
	HeaderRecordID = "Lognorm-Record-Id"
	HeaderSeverity = "Lognorm-Severity"
)

// ErrNotConnected is returned when publishing through a closed publisher.
var ErrNotConnected = errors.New("publisher not connected")

// RecordSubject returns the subject a record of the given event type is
// published to. Example: lognorm.records.firewall
func RecordSubject(prefix string, eventType model.EventType) string {
	if prefix == "" {
		prefix = SubjectRecords
	}
	return strings.TrimSuffix(prefix, ".") + "." + string(eventType)
}

// Message is one outbound message.
type Message struct {
	Subject  string
	Data     []byte
	Metadata map[string]string
}

// Conn is the broker connection the publisher writes through.
type Conn interface {
	PublishMsg(ctx context.Context, msg *Message) error
	Flush(ctx context.Context) error
	Close() error
}

// RecordPublisher publishes one JSON message per record.
type RecordPublisher struct {
	conn   Conn
	prefix string
	logger *logging.Logger
}

// NewRecordPublisher creates a publisher writing under the subject prefix
// (SubjectRecords when empty).
func NewRecordPublisher(conn Conn, prefix string, logger *logging.Logger) *RecordPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	if prefix == "" {
		prefix = SubjectRecords
	}
	return &RecordPublisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With(logging.Component("publisher")),
	}
}

// Name identifies the sink.
func (p *RecordPublisher) Name() string {
	return "nats"
}

// Send publishes every record then flushes the connection.
func (p *RecordPublisher) Send(ctx context.Context, records []model.LogRecord) error {
	if p == nil || p.conn == nil {
		return ErrNotConnected
	}

	batchID := logging.GetBatchID(ctx)
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.ID, err)
		}

		msg := &Message{
			Subject: RecordSubject(p.prefix, rec.EventType),
			Data:    data,
			Metadata: map[string]string{
				HeaderRecordID: rec.ID,
				HeaderSeverity: string(rec.Severity),
			},
		}
		if batchID != "" {
			msg.Metadata[HeaderBatchID] = batchID
		}

		if err := p.conn.PublishMsg(ctx, msg); err != nil {
			return fmt.Errorf("publish record %s to %s: %w", rec.ID, msg.Subject, err)
		}
	}

	if err := p.conn.Flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	p.logger.DebugContext(ctx, "published records", logging.Records(len(records)))
	return nil
}

// Close releases the connection.
func (p *RecordPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
