// Package mqtt connects the bridge to its message broker. Every payload goes
// out as a retained QoS 1 message so late subscribers immediately receive the
// last published snapshot.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
	"github.com/custodia-labs/taskbridge/internal/logger"
)

// Ensure Publisher implements the driven port.
var _ driven.Publisher = (*Publisher)(nil)

const (
	connectTimeout       = 30 * time.Second
	publishTimeout       = 10 * time.Second
	maxReconnectInterval = time.Minute
	disconnectQuiesceMs  = 250

	publishQoS = 1
)

// Publisher wraps a paho client. Connection state transitions happen on the
// client's own callbacks, so State reads are lock-free.
type Publisher struct {
	client paho.Client
	state  atomic.Value // domain.ConnectionState
}

// NewPublisher builds a broker client from settings. The connection is not
// opened until Connect is called.
func NewPublisher(settings domain.BrokerSettings) (*Publisher, error) {
	p := &Publisher{}
	p.state.Store(domain.ConnDisconnected)

	opts := paho.NewClientOptions().
		AddBroker(settings.URL).
		SetClientID("taskbridge_" + uuid.NewString()[:8]).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(maxReconnectInterval).
		SetConnectTimeout(connectTimeout)

	if settings.Username != "" {
		opts.SetUsername(settings.Username)
		opts.SetPassword(settings.Password)
	}

	if isSecureScheme(settings.URL) {
		tlsCfg, err := buildTLSConfig(settings.CAFile)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.SetOnConnectHandler(func(paho.Client) {
		p.state.Store(domain.ConnConnected)
		logger.Info("Broker connected: %s", settings.URL)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.state.Store(domain.ConnReconnecting)
		logger.Warn("Broker connection lost: %v", err)
	})
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		p.state.Store(domain.ConnReconnecting)
	})

	p.client = paho.NewClient(opts)
	return p, nil
}

// Connect opens the broker connection, waiting up to the connect timeout.
func (p *Publisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	if err := waitToken(ctx, token, connectTimeout); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// Disconnect closes the connection, allowing in-flight messages to drain.
func (p *Publisher) Disconnect() {
	p.client.Disconnect(disconnectQuiesceMs)
	p.state.Store(domain.ConnDisconnected)
}

// Publish delivers one retained QoS 1 message. While the client is
// reconnecting the call fails immediately with ErrNotConnected rather than
// queueing; the next sync cycle republishes the full snapshot anyway.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		return domain.ErrNotConnected
	}

	token := p.client.Publish(topic, publishQoS, true, payload)
	if err := waitToken(ctx, token, publishTimeout); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// State reports the current broker connection state.
func (p *Publisher) State() domain.ConnectionState {
	return p.state.Load().(domain.ConnectionState)
}

func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-token.Done():
		return token.Error()
	}
}

func isSecureScheme(url string) bool {
	return strings.HasPrefix(url, "ssl://") ||
		strings.HasPrefix(url, "tls://") ||
		strings.HasPrefix(url, "mqtts://") ||
		strings.HasPrefix(url, "wss://")
}

// buildTLSConfig loads the broker CA when one is configured. Without a CA
// file, certificate verification is disabled; self-hosted brokers commonly
// run on self-signed certificates.
func buildTLSConfig(caFile string) (*tls.Config, error) {
	if caFile == "" {
		logger.Warn("No broker CA file configured, skipping certificate verification")
		return &tls.Config{InsecureSkipVerify: true}, nil
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read broker CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("broker CA file %s contains no certificates", caFile)
	}
	return &tls.Config{RootCAs: pool}, nil
}
