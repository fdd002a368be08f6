// Package events publishes a notification for every transaction the service
// submits. Publishing is best effort: a broker outage never fails a request.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"disperse-backend/internal/metrics"
)

const txSubmittedSubject = "disperse.tx.submitted"

// Publisher emits submitted-transaction events to NATS.
type Publisher struct {
	conn *nats.Conn
	log  *logrus.Entry
}

// NewPublisher connects to the broker. Callers skip construction entirely
// when no NATS URL is configured.
func NewPublisher(url string, connectTimeout time.Duration) (*Publisher, error) {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			metrics.NATSConnectionStatus.Set(0)
			logrus.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			metrics.NATSConnectionStatus.Set(1)
			logrus.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)

	return &Publisher{
		conn: conn,
		log:  logrus.WithField("component", "events"),
	}, nil
}

type txSubmittedEvent struct {
	Operation string `json:"operation"`
	TxHash    string `json:"txHash"`
	Signer    string `json:"signer"`
	Timestamp int64  `json:"timestamp"`
}

// TransactionSubmitted publishes one event per accepted submission.
func (p *Publisher) TransactionSubmitted(operation string, txHash common.Hash, signer common.Address) {
	payload, err := json.Marshal(txSubmittedEvent{
		Operation: operation,
		TxHash:    txHash.Hex(),
		Signer:    signer.Hex(),
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		p.log.WithError(err).Error("failed to encode tx event")
		return
	}

	if err := p.conn.Publish(txSubmittedSubject, payload); err != nil {
		metrics.NATSEventsPublished.WithLabelValues(txSubmittedSubject, "error").Inc()
		p.log.WithError(err).WithField("tx_hash", txHash.Hex()).Warn("failed to publish tx event")
		return
	}
	metrics.NATSEventsPublished.WithLabelValues(txSubmittedSubject, "ok").Inc()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
