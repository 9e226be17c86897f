// Package publisher fans boards out of the tracker: to NATS subjects for
// other services and to a writer for terminal use.
package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Caiqueoak/cade-meu-busao/internal/metrics"
	"github.com/Caiqueoak/cade-meu-busao/internal/models"
)

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// NATSPublisher publishes every board as JSON on <prefix>.<line>.
type NATSPublisher struct {
	nc     conn
	prefix string
	logger *slog.Logger
}

// BoardMessage is the payload published for a board.
type BoardMessage struct {
	SessionID   string       `json:"sessionId"`
	PublishedAt time.Time    `json:"publishedAt"`
	Board       models.Board `json:"board"`
}

func NewNATSPublisher(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("bustracker"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			metrics.NATSConnected.Set(0)
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			metrics.NATSConnected.Set(1)
			logger.Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			metrics.NATSConnected.Set(0)
			logger.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	metrics.NATSConnected.Set(1)
	return newNATSPublisher(nc, prefix, logger), nil
}

func newNATSPublisher(nc conn, prefix string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: strings.TrimSuffix(prefix, "."), logger: logger}
}

// Subject returns the subject boards of line are published on.
func (p *NATSPublisher) Subject(line string) string {
	if p.prefix == "" {
		return subjectToken(line)
	}
	return p.prefix + "." + subjectToken(line)
}

func (p *NATSPublisher) PublishBoard(sessionID string, b models.Board) error {
	data, err := json.Marshal(BoardMessage{
		SessionID:   sessionID,
		PublishedAt: time.Now().UTC(),
		Board:       b,
	})
	if err != nil {
		metrics.NATSPublishErrors.Inc()
		return err
	}

	subject := p.Subject(b.Line)
	if err := p.nc.Publish(subject, data); err != nil {
		metrics.NATSPublishErrors.Inc()
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	metrics.NATSPublished.Inc()
	p.logger.Debug("Published board", "subject", subject, "session_id", sessionID)
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("Failed to drain NATS connection", "error", err)
	}
	p.nc.Close()
}

// subjectToken makes s usable as a single NATS subject token.
func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
